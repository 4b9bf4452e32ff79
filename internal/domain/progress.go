package domain

import (
	"context"
	"errors"
	"time"
)

var ErrProgressNotFound = errors.New("progress not found")

// Progress is the per-(user, day) aggregate shown on the dashboard.
// MoneySaved and TimeGainedMinutes are derived when the row is written,
// from the user's pre-onboarding baseline.
type Progress struct {
	ID                string    `json:"id"`
	UserID            string    `json:"user_id"`
	Date              time.Time `json:"date"`
	CigarettesSmoked  int       `json:"cigarettes_smoked"`
	TasksCompleted    int       `json:"tasks_completed"`
	PointsEarned      int       `json:"points_earned"`
	MoneySavedCents   int       `json:"money_saved_cents"`
	TimeGainedMinutes int       `json:"time_gained_minutes"`
	Streak            int       `json:"streak"`
}

// ProgressSummary aggregates lifetime stats and the gamification level.
type ProgressSummary struct {
	TotalPoints          int `json:"total_points"`
	Level                int `json:"level"`
	TotalMoneySavedCents int `json:"total_money_saved_cents"`
	TotalTasksCompleted  int `json:"total_tasks_completed"`
	CurrentStreak        int `json:"current_streak"`
}

type ProgressRepository interface {
	// GetByDate returns ErrProgressNotFound when the user has no row for the day.
	GetByDate(ctx context.Context, userID string, date time.Time) (*Progress, error)
	Upsert(ctx context.Context, p *Progress) error
	ListRange(ctx context.Context, userID string, from, to time.Time) ([]Progress, error)
	Totals(ctx context.Context, userID string) (points, tasks, moneyCents int, err error)
}

type ProgressUsecase interface {
	Today(ctx context.Context, userID string) (*Progress, error)
	Week(ctx context.Context, userID string) ([]Progress, error)
	Summary(ctx context.Context, userID string) (*ProgressSummary, error)
	// RecordTaskCompletion bumps today's task and point counters.
	RecordTaskCompletion(ctx context.Context, userID string, points int) error
	// LogCigarettes records how many cigarettes were smoked today and
	// recomputes the derived savings and streak.
	LogCigarettes(ctx context.Context, userID string, count int) (*Progress, error)
}
