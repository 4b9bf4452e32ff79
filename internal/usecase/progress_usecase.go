package usecase

import (
	"context"
	"errors"
	"time"

	"respirapt-backend/internal/domain"
	"respirapt-backend/pkg/apperror"

	"github.com/google/uuid"
)

// pointsPerLevel drives the gamification curve: level = points/100 + 1.
const pointsPerLevel = 100

type progressUsecase struct {
	progressRepo domain.ProgressRepository
	userRepo     domain.UserRepository

	cigarettePriceCents int
	minutesPerCigarette int
	now                 func() time.Time
}

func NewProgressUsecase(progressRepo domain.ProgressRepository, userRepo domain.UserRepository, cigarettePriceCents, minutesPerCigarette int) domain.ProgressUsecase {
	return &progressUsecase{
		progressRepo:        progressRepo,
		userRepo:            userRepo,
		cigarettePriceCents: cigarettePriceCents,
		minutesPerCigarette: minutesPerCigarette,
		now:                 time.Now,
	}
}

// dateOnly truncates to a UTC calendar day, the granularity of the
// progress table.
func dateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func (u *progressUsecase) Today(ctx context.Context, userID string) (*domain.Progress, error) {
	today := dateOnly(u.now())
	p, err := u.progressRepo.GetByDate(ctx, userID, today)
	if err != nil {
		if errors.Is(err, domain.ErrProgressNotFound) {
			// No activity logged yet: an empty day, not an error.
			return &domain.Progress{UserID: userID, Date: today}, nil
		}
		return nil, err
	}
	return p, nil
}

func (u *progressUsecase) Week(ctx context.Context, userID string) ([]domain.Progress, error) {
	today := dateOnly(u.now())
	return u.progressRepo.ListRange(ctx, userID, today.AddDate(0, 0, -6), today)
}

func (u *progressUsecase) Summary(ctx context.Context, userID string) (*domain.ProgressSummary, error) {
	points, tasks, moneyCents, err := u.progressRepo.Totals(ctx, userID)
	if err != nil {
		return nil, err
	}

	streak := 0
	today, err := u.Today(ctx, userID)
	if err != nil {
		return nil, err
	}
	if today.Streak > 0 {
		streak = today.Streak
	} else {
		// The streak survives until today's cigarettes are logged.
		yesterday, err := u.progressRepo.GetByDate(ctx, userID, dateOnly(u.now()).AddDate(0, 0, -1))
		if err == nil {
			streak = yesterday.Streak
		} else if !errors.Is(err, domain.ErrProgressNotFound) {
			return nil, err
		}
	}

	return &domain.ProgressSummary{
		TotalPoints:          points,
		Level:                points/pointsPerLevel + 1,
		TotalMoneySavedCents: moneyCents,
		TotalTasksCompleted:  tasks,
		CurrentStreak:        streak,
	}, nil
}

func (u *progressUsecase) RecordTaskCompletion(ctx context.Context, userID string, points int) error {
	p, err := u.Today(ctx, userID)
	if err != nil {
		return err
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	p.TasksCompleted++
	p.PointsEarned += points
	return u.progressRepo.Upsert(ctx, p)
}

func (u *progressUsecase) LogCigarettes(ctx context.Context, userID string, count int) (*domain.Progress, error) {
	if count < 0 {
		return nil, apperror.BadRequest("Cigarette count cannot be negative")
	}

	user, err := u.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	baseline := 0
	if user.CigarettesPerDay != nil {
		baseline = *user.CigarettesPerDay
	}

	p, err := u.Today(ctx, userID)
	if err != nil {
		return nil, err
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}

	avoided := baseline - count
	if avoided < 0 {
		avoided = 0
	}

	p.CigarettesSmoked = count
	p.MoneySavedCents = avoided * u.cigarettePriceCents
	p.TimeGainedMinutes = avoided * u.minutesPerCigarette

	if count == 0 {
		prev := 0
		yesterday, err := u.progressRepo.GetByDate(ctx, userID, dateOnly(u.now()).AddDate(0, 0, -1))
		if err == nil {
			prev = yesterday.Streak
		} else if !errors.Is(err, domain.ErrProgressNotFound) {
			return nil, err
		}
		p.Streak = prev + 1
	} else {
		p.Streak = 0
	}

	if err := u.progressRepo.Upsert(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}
