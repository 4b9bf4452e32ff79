package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"respirapt-backend/internal/session"
)

// SessionManager keeps the GoTrue session for one client process: it
// persists tokens across restarts, refreshes them before expiry, and
// notifies listeners the way gotrue-js does. It implements
// session.CredentialProvider.
type SessionManager struct {
	client *Client
	log    *slog.Logger
	path   string // session cache file; empty disables persistence

	mu        sync.Mutex
	session   *Session
	listeners map[int]func(string, *session.Credential)
	nextID    int
	refresh   *time.Timer
}

func NewSessionManager(client *Client, cachePath string, log *slog.Logger) *SessionManager {
	if log == nil {
		log = slog.Default()
	}
	m := &SessionManager{
		client:    client,
		log:       log,
		path:      cachePath,
		listeners: map[int]func(string, *session.Credential){},
	}
	m.loadCachedSession()
	return m
}

func (m *SessionManager) CurrentSession(ctx context.Context) (*session.Credential, error) {
	m.mu.Lock()
	sess := m.session
	m.mu.Unlock()

	if sess == nil || sess.AccessToken == "" {
		return nil, nil
	}

	if sess.Expired() {
		refreshed, err := m.client.RefreshSession(ctx, sess.RefreshToken)
		if err != nil {
			var apiErr *APIError
			if errors.As(err, &apiErr) {
				// Refresh token revoked or rotated away: the credential
				// session is gone, not errored.
				m.log.Warn("session refresh rejected, treating as signed out", "error", err)
				m.clearSession()
				return nil, nil
			}
			return nil, err
		}
		m.setSession(refreshed)
		sess = refreshed
	}

	return credentialFrom(sess), nil
}

func (m *SessionManager) SignInWithPassword(ctx context.Context, email, password string) (*session.Credential, error) {
	sess, err := m.client.SignInWithEmail(ctx, email, password)
	if err != nil {
		return nil, asCredentialError("sign-in", err)
	}
	m.setSession(sess)
	cred := credentialFrom(sess)
	m.notify(session.EventSignedIn, cred)
	return cred, nil
}

func (m *SessionManager) SignUp(ctx context.Context, email, password, name string) (*session.Credential, error) {
	sess, err := m.client.SignUpWithEmail(ctx, email, password, name)
	if err != nil {
		return nil, asCredentialError("sign-up", err)
	}
	if sess.AccessToken != "" {
		m.setSession(sess)
	}
	cred := credentialFrom(sess)
	if cred.Name == "" {
		cred.Name = name
	}
	if sess.AccessToken != "" {
		m.notify(session.EventSignedIn, cred)
	}
	return cred, nil
}

func (m *SessionManager) SignOut(ctx context.Context) error {
	m.mu.Lock()
	sess := m.session
	m.mu.Unlock()

	m.clearSession()
	m.notify(session.EventSignedOut, nil)

	if sess == nil || sess.AccessToken == "" {
		return nil
	}
	return m.client.Logout(ctx, sess.AccessToken)
}

func (m *SessionManager) OnAuthStateChange(fn func(string, *session.Credential)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextID
	m.nextID++
	m.listeners[id] = fn
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.listeners, id)
	}
}

// AccessToken exposes the current bearer token for the row store.
func (m *SessionManager) AccessToken() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return ""
	}
	return m.session.AccessToken
}

func (m *SessionManager) setSession(sess *Session) {
	m.mu.Lock()
	m.session = sess
	m.scheduleRefreshLocked(sess)
	m.mu.Unlock()
	m.persist(sess)
}

func (m *SessionManager) clearSession() {
	m.mu.Lock()
	m.session = nil
	if m.refresh != nil {
		m.refresh.Stop()
		m.refresh = nil
	}
	m.mu.Unlock()
	if m.path != "" {
		_ = os.Remove(m.path)
	}
}

// scheduleRefreshLocked arms a timer one minute before token expiry, the
// same proactive refresh the browser client performs.
func (m *SessionManager) scheduleRefreshLocked(sess *Session) {
	if m.refresh != nil {
		m.refresh.Stop()
		m.refresh = nil
	}
	if sess == nil || sess.ExpiresAt == 0 || sess.RefreshToken == "" {
		return
	}
	wait := time.Until(time.Unix(sess.ExpiresAt, 0).Add(-time.Minute))
	if wait < time.Second {
		wait = time.Second
	}
	m.refresh = time.AfterFunc(wait, m.refreshNow)
}

func (m *SessionManager) refreshNow() {
	m.mu.Lock()
	sess := m.session
	m.mu.Unlock()
	if sess == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	refreshed, err := m.client.RefreshSession(ctx, sess.RefreshToken)
	if err != nil {
		m.log.Warn("scheduled token refresh failed", "error", err)
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			m.clearSession()
			m.notify(session.EventSignedOut, nil)
		}
		return
	}
	m.setSession(refreshed)
	m.notify(session.EventTokenRefreshed, credentialFrom(refreshed))
}

func (m *SessionManager) notify(event string, cred *session.Credential) {
	m.mu.Lock()
	fns := make([]func(string, *session.Credential), 0, len(m.listeners))
	for _, fn := range m.listeners {
		fns = append(fns, fn)
	}
	m.mu.Unlock()
	for _, fn := range fns {
		fn(event, cred)
	}
}

func (m *SessionManager) persist(sess *Session) {
	if m.path == "" || sess == nil {
		return
	}
	data, err := json.Marshal(sess)
	if err != nil {
		return
	}
	if err := os.MkdirAll(filepath.Dir(m.path), 0o700); err != nil {
		m.log.Warn("cannot create session cache dir", "error", err)
		return
	}
	if err := os.WriteFile(m.path, data, 0o600); err != nil {
		m.log.Warn("cannot persist session cache", "error", err)
	}
}

func (m *SessionManager) loadCachedSession() {
	if m.path == "" {
		return
	}
	data, err := os.ReadFile(m.path)
	if err != nil {
		return
	}
	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return
	}
	m.mu.Lock()
	m.session = &sess
	m.scheduleRefreshLocked(&sess)
	m.mu.Unlock()
}

func credentialFrom(sess *Session) *session.Credential {
	return &session.Credential{
		UserID:      sess.User.ID,
		Email:       sess.User.Email,
		Name:        sess.User.Name(),
		AccessToken: sess.AccessToken,
	}
}

func asCredentialError(op string, err error) error {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return &session.CredentialError{Op: op, Message: apiErr.Message, Err: err}
	}
	return &session.CredentialError{Op: op, Message: err.Error(), Err: err}
}
