package usecase

import (
	"context"
	"errors"

	"respirapt-backend/internal/domain"
	"respirapt-backend/pkg/logger"
)

type authUsecase struct {
	userRepo domain.UserRepository
}

func NewAuthUsecase(userRepo domain.UserRepository) domain.AuthUsecase {
	return &authUsecase{userRepo: userRepo}
}

// EnsureProfileExists reconciles a verified credential with the profile
// table. This must be idempotent: it is called on every login sync and it
// can race the database trigger that creates the row on signup.
func (u *authUsecase) EnsureProfileExists(ctx context.Context, user *domain.User) (*domain.User, error) {
	// Happy path: returning user, row already keyed by the auth subject.
	existing, err := u.userRepo.GetByID(ctx, user.ID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, domain.ErrProfileNotFound) {
		return nil, err
	}

	// The email may exist under an old auth subject when the account was
	// deleted and recreated on the provider side. Re-link instead of
	// tripping the unique email constraint.
	_, err = u.userRepo.GetByEmail(ctx, user.Email)
	if err == nil {
		logger.Log.Info("relinking profile to new auth subject", "email", user.Email)
		return u.userRepo.RelinkByEmail(ctx, user.Email, user.ID)
	}
	if !errors.Is(err, domain.ErrProfileNotFound) {
		return nil, err
	}

	created, err := u.userRepo.Create(ctx, user)
	if errors.Is(err, domain.ErrProfileExists) {
		// The signup trigger won the race. The row is there now.
		return u.userRepo.GetByID(ctx, user.ID)
	}
	return created, err
}

func (u *authUsecase) GetCurrentUser(ctx context.Context, id string) (*domain.User, error) {
	return u.userRepo.GetByID(ctx, id)
}
