package session

import (
	"context"
	"errors"

	"respirapt-backend/internal/domain"
)

// Origin distinguishes a durable profile row from a best-effort in-memory
// stand-in that will be reconciled on the next Initialize/RefreshUser.
type Origin int

const (
	OriginPersisted Origin = iota
	OriginSynthesized
)

func (o Origin) String() string {
	if o == OriginSynthesized {
		return "synthesized"
	}
	return "persisted"
}

// Resolution is the outcome of resolving a credential to a profile.
type Resolution struct {
	Profile *domain.User
	Origin  Origin
}

// newProfileFromCredential builds the row the client inserts when the
// provider-side creation trigger has not materialized it.
func newProfileFromCredential(cred *Credential) *domain.User {
	u := &domain.User{
		ID:                  cred.UserID,
		Email:               cred.Email,
		OnboardingCompleted: false,
	}
	if cred.Name != "" {
		name := cred.Name
		u.Name = &name
	}
	return u
}

// resolveProfile looks up the profile row for a credential and creates it
// from provider metadata when missing. Idempotent: an existing row is
// returned as-is and never re-inserted.
func (s *Store) resolveProfile(ctx context.Context, cred *Credential) (Resolution, error) {
	profile, lookupErr := s.profiles.GetByID(ctx, cred.UserID)
	if lookupErr == nil {
		return Resolution{Profile: profile, Origin: OriginPersisted}, nil
	}
	if !errors.Is(lookupErr, domain.ErrProfileNotFound) {
		s.log.Warn("profile lookup failed, attempting creation", "user_id", cred.UserID, "error", lookupErr)
	}

	created, createErr := s.profiles.Insert(ctx, newProfileFromCredential(cred))
	if createErr == nil {
		return Resolution{Profile: created, Origin: OriginPersisted}, nil
	}

	// A concurrent writer (the DB trigger) may have won the insert race.
	if errors.Is(createErr, domain.ErrProfileExists) {
		if profile, err := s.profiles.GetByID(ctx, cred.UserID); err == nil {
			return Resolution{Profile: profile, Origin: OriginPersisted}, nil
		}
	}

	return Resolution{}, &ProfileResolutionError{
		UserID:    cred.UserID,
		LookupErr: lookupErr,
		CreateErr: createErr,
	}
}
