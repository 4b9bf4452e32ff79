package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"respirapt-backend/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const taskColumns = `id, user_id, title, description, type, completed, completed_at, points, day, created_at`

type taskRepo struct {
	db *pgxpool.Pool
}

func NewTaskRepository(db *pgxpool.Pool) domain.TaskRepository {
	return &taskRepo{db: db}
}

func (r *taskRepo) CreateBatch(ctx context.Context, tasks []domain.Task) error {
	if len(tasks) == 0 {
		return nil
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, t := range tasks {
		_, err = tx.Exec(ctx, `
			INSERT INTO tasks (id, user_id, title, description, type, points, day, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		`, t.ID, t.UserID, t.Title, t.Description, t.Type, t.Points, t.Day)
		if err != nil {
			return fmt.Errorf("failed to insert task %s: %w", t.Title, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (r *taskRepo) GetByID(ctx context.Context, id string) (*domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`

	var t domain.Task
	err := r.db.QueryRow(ctx, query, id).Scan(
		&t.ID, &t.UserID, &t.Title, &t.Description, &t.Type,
		&t.Completed, &t.CompletedAt, &t.Points, &t.Day, &t.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to get task by id: %w", err)
	}
	return &t, nil
}

func (r *taskRepo) ListPending(ctx context.Context, userID string, day int, limit int) ([]domain.Task, error) {
	if limit <= 0 || limit > 20 {
		limit = 20
	}

	query := `SELECT ` + taskColumns + `
              FROM tasks
              WHERE user_id = $1 AND day = $2 AND completed = FALSE
              ORDER BY points DESC, created_at ASC
              LIMIT $3`

	rows, err := r.db.Query(ctx, query, userID, day, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending tasks: %w", err)
	}
	defer rows.Close()

	var tasks []domain.Task
	for rows.Next() {
		var t domain.Task
		if err := rows.Scan(
			&t.ID, &t.UserID, &t.Title, &t.Description, &t.Type,
			&t.Completed, &t.CompletedAt, &t.Points, &t.Day, &t.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan task row: %w", err)
		}
		tasks = append(tasks, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating task rows: %w", err)
	}
	return tasks, nil
}

// MarkCompleted flips the flag only when it was previously unset, so a
// double-complete affects zero rows and the caller skips the point award.
func (r *taskRepo) MarkCompleted(ctx context.Context, id string, at time.Time) (bool, error) {
	query := `UPDATE tasks
              SET completed = TRUE, completed_at = $2
              WHERE id = $1 AND completed = FALSE`

	tag, err := r.db.Exec(ctx, query, id, at)
	if err != nil {
		return false, fmt.Errorf("failed to mark task completed: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *taskRepo) CountByUser(ctx context.Context, userID string) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM tasks WHERE user_id = $1`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count tasks: %w", err)
	}
	return count, nil
}
