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

const progressColumns = `id, user_id, date, cigarettes_smoked, tasks_completed, points_earned, money_saved_cents, time_gained_minutes, streak`

type progressRepo struct {
	db *pgxpool.Pool
}

func NewProgressRepository(db *pgxpool.Pool) domain.ProgressRepository {
	return &progressRepo{db: db}
}

func scanProgress(row pgx.Row) (*domain.Progress, error) {
	var p domain.Progress
	err := row.Scan(
		&p.ID, &p.UserID, &p.Date, &p.CigarettesSmoked, &p.TasksCompleted,
		&p.PointsEarned, &p.MoneySavedCents, &p.TimeGainedMinutes, &p.Streak,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *progressRepo) GetByDate(ctx context.Context, userID string, date time.Time) (*domain.Progress, error) {
	query := `SELECT ` + progressColumns + ` FROM progress WHERE user_id = $1 AND date = $2`

	p, err := scanProgress(r.db.QueryRow(ctx, query, userID, date))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrProgressNotFound
		}
		return nil, fmt.Errorf("failed to get progress by date: %w", err)
	}
	return p, nil
}

// Upsert writes the whole daily row. (user_id, date) is unique, so a
// second write for the same day replaces the counters instead of
// duplicating the row.
func (r *progressRepo) Upsert(ctx context.Context, p *domain.Progress) error {
	query := `INSERT INTO progress (id, user_id, date, cigarettes_smoked, tasks_completed,
                                    points_earned, money_saved_cents, time_gained_minutes, streak)
              VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
              ON CONFLICT (user_id, date) DO UPDATE SET
                  cigarettes_smoked = EXCLUDED.cigarettes_smoked,
                  tasks_completed = EXCLUDED.tasks_completed,
                  points_earned = EXCLUDED.points_earned,
                  money_saved_cents = EXCLUDED.money_saved_cents,
                  time_gained_minutes = EXCLUDED.time_gained_minutes,
                  streak = EXCLUDED.streak`

	_, err := r.db.Exec(ctx, query,
		p.ID, p.UserID, p.Date, p.CigarettesSmoked, p.TasksCompleted,
		p.PointsEarned, p.MoneySavedCents, p.TimeGainedMinutes, p.Streak)
	if err != nil {
		return fmt.Errorf("failed to upsert progress: %w", err)
	}
	return nil
}

func (r *progressRepo) ListRange(ctx context.Context, userID string, from, to time.Time) ([]domain.Progress, error) {
	query := `SELECT ` + progressColumns + `
              FROM progress
              WHERE user_id = $1 AND date >= $2 AND date <= $3
              ORDER BY date ASC`

	rows, err := r.db.Query(ctx, query, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list progress range: %w", err)
	}
	defer rows.Close()

	var results []domain.Progress
	for rows.Next() {
		var p domain.Progress
		if err := rows.Scan(
			&p.ID, &p.UserID, &p.Date, &p.CigarettesSmoked, &p.TasksCompleted,
			&p.PointsEarned, &p.MoneySavedCents, &p.TimeGainedMinutes, &p.Streak,
		); err != nil {
			return nil, fmt.Errorf("failed to scan progress row: %w", err)
		}
		results = append(results, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating progress rows: %w", err)
	}
	return results, nil
}

func (r *progressRepo) Totals(ctx context.Context, userID string) (points, tasks, moneyCents int, err error) {
	query := `SELECT COALESCE(SUM(points_earned), 0),
                     COALESCE(SUM(tasks_completed), 0),
                     COALESCE(SUM(money_saved_cents), 0)
              FROM progress WHERE user_id = $1`

	if err = r.db.QueryRow(ctx, query, userID).Scan(&points, &tasks, &moneyCents); err != nil {
		return 0, 0, 0, fmt.Errorf("failed to aggregate progress totals: %w", err)
	}
	return points, tasks, moneyCents, nil
}
