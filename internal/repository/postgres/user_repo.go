package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"respirapt-backend/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgreSQL error codes
const (
	pgUniqueViolation = "23505"
)

const userColumns = `id, email, name, onboarding_completed, cigarettes_per_day, goal, method, premium, created_at, updated_at`

type userRepo struct {
	db *pgxpool.Pool
}

func NewUserRepository(db *pgxpool.Pool) domain.UserRepository {
	return &userRepo{db: db}
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var user domain.User
	err := row.Scan(
		&user.ID, &user.Email, &user.Name, &user.OnboardingCompleted,
		&user.CigarettesPerDay, &user.Goal, &user.Method, &user.Premium,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepo) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	query := `INSERT INTO users (id, email, name, onboarding_completed, premium, created_at, updated_at)
              VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
              RETURNING ` + userColumns

	created, err := scanUser(r.db.QueryRow(ctx, query,
		user.ID, user.Email, user.Name, user.OnboardingCompleted, user.Premium))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return nil, domain.ErrProfileExists
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return created, nil
}

func (r *userRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	user, err := scanUser(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrProfileNotFound
		}
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}
	return user, nil
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`

	user, err := scanUser(r.db.QueryRow(ctx, query, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrProfileNotFound
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return user, nil
}

func (r *userRepo) Update(ctx context.Context, user *domain.User) error {
	query := `UPDATE users
              SET email = $2, name = $3, onboarding_completed = $4,
                  cigarettes_per_day = $5, goal = $6, method = $7,
                  premium = $8, updated_at = NOW()
              WHERE id = $1`

	tag, err := r.db.Exec(ctx, query,
		user.ID, user.Email, user.Name, user.OnboardingCompleted,
		user.CigarettesPerDay, user.Goal, user.Method, user.Premium)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrProfileNotFound
	}
	return nil
}

// RelinkByEmail moves the row to a new primary key. Child rows follow
// through ON UPDATE CASCADE on the tasks and progress foreign keys.
func (r *userRepo) RelinkByEmail(ctx context.Context, email, newID string) (*domain.User, error) {
	query := `UPDATE users SET id = $2, updated_at = NOW() WHERE email = $1
              RETURNING ` + userColumns

	user, err := scanUser(r.db.QueryRow(ctx, query, email, newID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrProfileNotFound
		}
		return nil, fmt.Errorf("failed to relink user by email: %w", err)
	}
	return user, nil
}

func (r *userRepo) CompleteOnboarding(ctx context.Context, userID string, in domain.OnboardingInput) (*domain.User, error) {
	query := `UPDATE users
              SET cigarettes_per_day = $2, goal = $3, method = $4,
                  onboarding_completed = TRUE, updated_at = NOW()
              WHERE id = $1
              RETURNING ` + userColumns

	user, err := scanUser(r.db.QueryRow(ctx, query, userID, in.CigarettesPerDay, in.Goal, in.Method))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrProfileNotFound
		}
		return nil, fmt.Errorf("failed to complete onboarding: %w", err)
	}
	return user, nil
}

func (r *userRepo) SetPremium(ctx context.Context, userID string, premium bool) error {
	query := `UPDATE users SET premium = $2, updated_at = $3 WHERE id = $1`

	tag, err := r.db.Exec(ctx, query, userID, premium, time.Now())
	if err != nil {
		return fmt.Errorf("failed to set premium flag: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrProfileNotFound
	}
	return nil
}
