package usecase

import (
	"context"

	"respirapt-backend/internal/domain"
	"respirapt-backend/pkg/apperror"
	"respirapt-backend/pkg/logger"

	"github.com/go-playground/validator/v10"
)

type onboardingUsecase struct {
	userRepo domain.UserRepository
	tasks    domain.TaskUsecase
	validate *validator.Validate
}

func NewOnboardingUsecase(userRepo domain.UserRepository, tasks domain.TaskUsecase, validate *validator.Validate) domain.OnboardingUsecase {
	return &onboardingUsecase{userRepo: userRepo, tasks: tasks, validate: validate}
}

func (u *onboardingUsecase) Complete(ctx context.Context, userID string, in domain.OnboardingInput) (*domain.User, error) {
	if err := u.validate.Struct(in); err != nil {
		return nil, apperror.BadRequest("Invalid onboarding answers: " + err.Error())
	}
	if !in.Goal.IsValid() {
		return nil, apperror.BadRequest("Goal must be 'stop' or 'reduce'")
	}

	user, err := u.userRepo.CompleteOnboarding(ctx, userID, in)
	if err != nil {
		return nil, err
	}

	// Seeding is best effort. The dashboard seeds again on first load if
	// the user still has no tasks.
	if err := u.tasks.SeedDefaultPlan(ctx, userID); err != nil {
		logger.Log.Warn("failed to seed starter plan", "user_id", userID, "error", err)
	}

	return user, nil
}
