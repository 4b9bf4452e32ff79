package domain

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors shared by every profile-storage implementation
// (postgres repository and the Supabase REST store).
var (
	ErrProfileNotFound = errors.New("profile not found")
	ErrProfileExists   = errors.New("profile already exists")
)

// Goal is the smoking goal chosen during onboarding.
type Goal string

const (
	GoalStop   Goal = "stop"
	GoalReduce Goal = "reduce"
)

func (g Goal) IsValid() bool {
	return g == GoalStop || g == GoalReduce
}

// User is the application-owned profile row, keyed by the Supabase auth
// subject UUID. The row is created by a DB trigger on credential creation;
// clients re-create it when the trigger has not run yet.
type User struct {
	ID                  string    `json:"id"`
	Email               string    `json:"email"`
	Name                *string   `json:"name,omitempty"`
	OnboardingCompleted bool      `json:"onboarding_completed"`
	CigarettesPerDay    *int      `json:"cigarettes_per_day,omitempty"`
	Goal                *Goal     `json:"goal,omitempty"`
	Method              *string   `json:"method,omitempty"`
	Premium             bool      `json:"premium"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// OnboardingInput carries the questionnaire answers that complete onboarding.
type OnboardingInput struct {
	CigarettesPerDay int    `json:"cigarettes_per_day" validate:"required,min=1"`
	Goal             Goal   `json:"goal" validate:"required,oneof=stop reduce"`
	Method           string `json:"method" validate:"required"`
}

type UserRepository interface {
	// Create inserts a profile row and returns the stored row.
	// Returns ErrProfileExists on a unique-constraint conflict.
	Create(ctx context.Context, user *User) (*User, error)
	// GetByID returns ErrProfileNotFound when no row matches.
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	Update(ctx context.Context, user *User) error
	// RelinkByEmail rewrites the row's primary key after the auth provider
	// issued a new subject for an existing email (account recreation).
	RelinkByEmail(ctx context.Context, email, newID string) (*User, error)
	CompleteOnboarding(ctx context.Context, userID string, in OnboardingInput) (*User, error)
	SetPremium(ctx context.Context, userID string, premium bool) error
}

type AuthUsecase interface {
	// EnsureProfileExists reconciles a verified credential with the profile
	// table: returns the existing row, re-links a row whose auth ID changed,
	// or creates a fresh one.
	EnsureProfileExists(ctx context.Context, user *User) (*User, error)
	GetCurrentUser(ctx context.Context, id string) (*User, error)
}

type OnboardingUsecase interface {
	// Complete validates the questionnaire, stores the baseline habits and
	// seeds the starter task plan.
	Complete(ctx context.Context, userID string, in OnboardingInput) (*User, error)
}
