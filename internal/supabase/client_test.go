package supabase_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"

	"respirapt-backend/internal/domain"
	"respirapt-backend/internal/session"
	"respirapt-backend/internal/supabase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSupabase emulates the GoTrue and PostgREST endpoints the client
// talks to, just enough for these tests.
type fakeSupabase struct {
	mux          *http.ServeMux
	refreshCalls atomic.Int32
	logoutCalls  atomic.Int32
	rows         []domain.User
	insertStatus int
}

func newFakeSupabase(t *testing.T) (*fakeSupabase, *httptest.Server) {
	t.Helper()
	f := &fakeSupabase{mux: http.NewServeMux(), insertStatus: http.StatusCreated}

	f.mux.HandleFunc("/auth/v1/token", func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("grant_type") {
		case "password":
			var body map[string]string
			_ = json.NewDecoder(r.Body).Decode(&body)
			if body["password"] != "correct-horse" {
				w.WriteHeader(http.StatusBadRequest)
				_ = json.NewEncoder(w).Encode(map[string]string{"msg": "Invalid login credentials"})
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"access_token":  "tok-1",
				"refresh_token": "ref-1",
				"expires_in":    5, // already inside the 30s expiry margin
				"user":          map[string]interface{}{"id": "u1", "email": body["email"]},
			})
		case "refresh_token":
			f.refreshCalls.Add(1)
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"access_token":  "tok-2",
				"refresh_token": "ref-2",
				"expires_in":    3600,
				"user":          map[string]interface{}{"id": "u1", "email": "ana@example.pt"},
			})
		default:
			w.WriteHeader(http.StatusBadRequest)
		}
	})

	f.mux.HandleFunc("/auth/v1/logout", func(w http.ResponseWriter, r *http.Request) {
		f.logoutCalls.Add(1)
		w.WriteHeader(http.StatusNoContent)
	})

	f.mux.HandleFunc("/rest/v1/users", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			if f.insertStatus >= 400 {
				w.WriteHeader(f.insertStatus)
				_ = json.NewEncoder(w).Encode(map[string]string{"message": "duplicate key value"})
				return
			}
			var row domain.User
			_ = json.NewDecoder(r.Body).Decode(&row)
			w.WriteHeader(f.insertStatus)
			_ = json.NewEncoder(w).Encode([]domain.User{row})
			return
		}
		_ = json.NewEncoder(w).Encode(f.rows)
	})

	srv := httptest.NewServer(f.mux)
	t.Cleanup(srv.Close)
	return f, srv
}

func TestSignInDecodesSession(t *testing.T) {
	_, srv := newFakeSupabase(t)
	client := supabase.NewClient(srv.URL, "anon")

	sess, err := client.SignInWithEmail(context.Background(), "ana@example.pt", "correct-horse")
	require.NoError(t, err)
	assert.Equal(t, "tok-1", sess.AccessToken)
	assert.Equal(t, "u1", sess.User.ID)
	assert.NotZero(t, sess.ExpiresAt)
}

func TestSignInSurfacesProviderMessage(t *testing.T) {
	_, srv := newFakeSupabase(t)
	client := supabase.NewClient(srv.URL, "anon")

	_, err := client.SignInWithEmail(context.Background(), "ana@example.pt", "wrong")
	var apiErr *supabase.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "Invalid login credentials", apiErr.Message)
}

func TestProfileStoreGetByID(t *testing.T) {
	f, srv := newFakeSupabase(t)
	store := supabase.NewProfileStore(supabase.NewClient(srv.URL, "anon"), nil)

	t.Run("Missing row maps to the domain sentinel", func(t *testing.T) {
		_, err := store.GetByID(context.Background(), "u1")
		assert.ErrorIs(t, err, domain.ErrProfileNotFound)
	})

	t.Run("Existing row is returned", func(t *testing.T) {
		f.rows = []domain.User{{ID: "u1", Email: "ana@example.pt"}}
		u, err := store.GetByID(context.Background(), "u1")
		require.NoError(t, err)
		assert.Equal(t, "ana@example.pt", u.Email)
	})
}

func TestProfileStoreInsertConflict(t *testing.T) {
	f, srv := newFakeSupabase(t)
	store := supabase.NewProfileStore(supabase.NewClient(srv.URL, "anon"), nil)

	f.insertStatus = http.StatusConflict
	_, err := store.Insert(context.Background(), &domain.User{ID: "u1", Email: "ana@example.pt"})
	assert.ErrorIs(t, err, domain.ErrProfileExists)
}

func TestSessionManagerRefreshesExpiredToken(t *testing.T) {
	f, srv := newFakeSupabase(t)
	manager := supabase.NewSessionManager(supabase.NewClient(srv.URL, "anon"), "", nil)

	_, err := manager.SignInWithPassword(context.Background(), "ana@example.pt", "correct-horse")
	require.NoError(t, err)

	// expires_in was 5s, inside the expiry margin, so CurrentSession must
	// rotate the token before handing out a credential.
	cred, err := manager.CurrentSession(context.Background())
	require.NoError(t, err)
	require.NotNil(t, cred)
	assert.Equal(t, "tok-2", cred.AccessToken)
	assert.GreaterOrEqual(t, f.refreshCalls.Load(), int32(1))
}

func TestSessionManagerSignOut(t *testing.T) {
	f, srv := newFakeSupabase(t)
	manager := supabase.NewSessionManager(supabase.NewClient(srv.URL, "anon"), "", nil)

	var events []string
	unsubscribe := manager.OnAuthStateChange(func(event string, cred *session.Credential) {
		events = append(events, event)
	})
	defer unsubscribe()

	_, err := manager.SignInWithPassword(context.Background(), "ana@example.pt", "correct-horse")
	require.NoError(t, err)

	require.NoError(t, manager.SignOut(context.Background()))

	cred, err := manager.CurrentSession(context.Background())
	require.NoError(t, err)
	assert.Nil(t, cred)
	assert.Equal(t, []string{session.EventSignedIn, session.EventSignedOut}, events)
	assert.Equal(t, int32(1), f.logoutCalls.Load())
}

func TestSessionPersistsAcrossRestarts(t *testing.T) {
	_, srv := newFakeSupabase(t)
	cachePath := filepath.Join(t.TempDir(), "session.json")
	client := supabase.NewClient(srv.URL, "anon")

	first := supabase.NewSessionManager(client, cachePath, nil)
	_, err := first.SignInWithPassword(context.Background(), "ana@example.pt", "correct-horse")
	require.NoError(t, err)

	// A new manager over the same cache file picks the session up, and
	// refreshes it since the stored token is near expiry.
	second := supabase.NewSessionManager(client, cachePath, nil)
	cred, err := second.CurrentSession(context.Background())
	require.NoError(t, err)
	require.NotNil(t, cred)
	assert.Equal(t, "u1", cred.UserID)
}

func TestSignInErrorsWrapAsCredentialError(t *testing.T) {
	_, srv := newFakeSupabase(t)
	manager := supabase.NewSessionManager(supabase.NewClient(srv.URL, "anon"), "", nil)

	_, err := manager.SignInWithPassword(context.Background(), "ana@example.pt", "wrong")
	var credErr *session.CredentialError
	require.True(t, errors.As(err, &credErr))
	assert.Equal(t, "sign-in", credErr.Op)
	assert.Equal(t, "Invalid login credentials", credErr.Message)
}
