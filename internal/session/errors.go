package session

import "fmt"

// CredentialError wraps a rejection from the identity provider (bad
// password, duplicate email, weak password). The provider's message is
// preserved verbatim so the UI can display it unmodified.
type CredentialError struct {
	Op      string // "sign-in" or "sign-up"
	Message string
	Err     error
}

func (e *CredentialError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *CredentialError) Unwrap() error {
	return e.Err
}

// ProfileResolutionError reports that both the profile lookup and the
// fallback creation failed for an authenticated credential. The session
// still degrades to Anonymous; this error exists so callers can tell
// "wrong password" apart from "authenticated but profile unavailable".
type ProfileResolutionError struct {
	UserID    string
	LookupErr error
	CreateErr error
}

func (e *ProfileResolutionError) Error() string {
	return fmt.Sprintf("profile resolution failed for %s: lookup: %v, create: %v", e.UserID, e.LookupErr, e.CreateErr)
}
