package session

import (
	"context"

	"respirapt-backend/internal/domain"
)

// Auth state change events, named after the GoTrue notification kinds.
const (
	EventSignedIn       = "SIGNED_IN"
	EventTokenRefreshed = "TOKEN_REFRESHED"
	EventSignedOut      = "SIGNED_OUT"
)

// Credential is the identity provider's notion of "currently logged in",
// independent of the application's own profile row.
type Credential struct {
	UserID      string
	Email       string
	Name        string // optional display name from provider metadata
	AccessToken string
}

// CredentialProvider is the identity-provider surface the store depends on.
// SignInWithPassword and SignUp return *CredentialError on provider
// rejection. CurrentSession returns (nil, nil) when no session exists.
type CredentialProvider interface {
	CurrentSession(ctx context.Context) (*Credential, error)
	SignInWithPassword(ctx context.Context, email, password string) (*Credential, error)
	SignUp(ctx context.Context, email, password, name string) (*Credential, error)
	SignOut(ctx context.Context) error
	// OnAuthStateChange registers a handler for credential changes (login in
	// another client, token refresh, logout). The returned function
	// unregisters it.
	OnAuthStateChange(fn func(event string, cred *Credential)) (unsubscribe func())
}

// ProfileStore is the profile-row surface the store depends on. GetByID
// returns domain.ErrProfileNotFound for a missing row; Insert returns
// domain.ErrProfileExists when a concurrent writer (the provider-side
// trigger) created the row first.
type ProfileStore interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	Insert(ctx context.Context, user *domain.User) (*domain.User, error)
}
