package session

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"respirapt-backend/internal/domain"
)

// Snapshot is the externally visible session state. Views re-render from
// snapshots instead of caching stale reads.
type Snapshot struct {
	User    *domain.User
	Loading bool
	Origin  Origin
}

// Deps wires the store's collaborators, mirroring the handler wiring style
// used across the HTTP layer.
type Deps struct {
	Provider CredentialProvider
	Profiles ProfileStore
	Logger   *slog.Logger

	// Backoff returns the wait before sign-up profile poll attempt n
	// (1-based). Defaults to 500ms × n.
	Backoff func(attempt int) time.Duration
	// SignUpAttempts is the number of profile lookups tried before the
	// explicit insert fallback. Defaults to 5.
	SignUpAttempts int
	// SignOutTimeout bounds the fire-and-forget provider sign-out call.
	SignOutTimeout time.Duration
}

// Store is the single source of truth for "who is logged in and what is
// their profile". It reconciles the identity provider's credential session
// with the application-owned profile row and publishes the outcome.
//
// Concurrent resolutions (an auth-change event racing a manual SignIn) are
// serialized by a monotonic generation: a resolution only commits if no
// newer resolution has committed before it.
type Store struct {
	provider       CredentialProvider
	profiles       ProfileStore
	log            *slog.Logger
	backoff        func(int) time.Duration
	signUpAttempts int
	signOutTimeout time.Duration

	gen atomic.Uint64

	mu            sync.Mutex
	user          *domain.User
	origin        Origin
	loading       bool
	initialized   bool
	committed     uint64
	watchers      map[int]chan Snapshot
	nextWatcherID int
	unsubscribe   func()
	closed        bool

	wg sync.WaitGroup
}

func NewStore(deps Deps) *Store {
	s := &Store{
		provider:       deps.Provider,
		profiles:       deps.Profiles,
		log:            deps.Logger,
		backoff:        deps.Backoff,
		signUpAttempts: deps.SignUpAttempts,
		signOutTimeout: deps.SignOutTimeout,
		loading:        true,
		watchers:       make(map[int]chan Snapshot),
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	if s.backoff == nil {
		s.backoff = func(attempt int) time.Duration {
			return time.Duration(attempt) * 500 * time.Millisecond
		}
	}
	if s.signUpAttempts <= 0 {
		s.signUpAttempts = 5
	}
	if s.signOutTimeout <= 0 {
		s.signOutTimeout = 10 * time.Second
	}
	return s
}

// Initialize resolves the current credential session, if any, and registers
// the standing auth-change subscription. Idempotent and single-flight: the
// first caller proceeds, every later call is a no-op until Close.
func (s *Store) Initialize(ctx context.Context) error {
	s.mu.Lock()
	if s.initialized || s.closed {
		s.mu.Unlock()
		return nil
	}
	s.initialized = true
	s.mu.Unlock()

	gen := s.nextGen()

	cred, err := s.provider.CurrentSession(ctx)
	var resErr error
	switch {
	case err != nil:
		s.commit(gen, Resolution{}, err)
		resErr = err
	case cred == nil:
		s.commit(gen, Resolution{}, nil)
	default:
		res, rerr := s.resolveProfile(ctx, cred)
		s.commit(gen, res, rerr)
		resErr = rerr
	}

	s.mu.Lock()
	if !s.closed {
		s.unsubscribe = s.provider.OnAuthStateChange(s.handleAuthChange)
	}
	s.mu.Unlock()

	return resErr
}

// SignIn verifies credentials with the provider and resolves the profile
// row, creating it when a server-side trigger has not materialized it yet.
// Provider rejections surface as *CredentialError with no state mutation.
func (s *Store) SignIn(ctx context.Context, email, password string) error {
	cred, err := s.provider.SignInWithPassword(ctx, email, password)
	if err != nil {
		return err
	}

	gen := s.nextGen()
	res, rerr := s.resolveProfile(ctx, cred)
	s.commit(gen, res, rerr)
	return rerr
}

// SignUp creates the credential, then waits for the provider-side trigger
// to materialize the profile row with a bounded backoff. When the row never
// shows up and the explicit insert fails too, a transient in-memory profile
// is synthesized so the caller still ends up Authenticated; it reconciles
// to the real row on the next Initialize/RefreshUser.
func (s *Store) SignUp(ctx context.Context, email, password, name string) error {
	cred, err := s.provider.SignUp(ctx, email, password, name)
	if err != nil {
		return err
	}

	gen := s.nextGen()

	res, err := s.awaitProfile(ctx, cred)
	if err != nil {
		return err
	}
	s.commit(gen, res, nil)
	return nil
}

func (s *Store) awaitProfile(ctx context.Context, cred *Credential) (Resolution, error) {
	for attempt := 1; attempt <= s.signUpAttempts; attempt++ {
		profile, err := s.profiles.GetByID(ctx, cred.UserID)
		if err == nil {
			return Resolution{Profile: profile, Origin: OriginPersisted}, nil
		}
		if attempt == s.signUpAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return Resolution{}, ctx.Err()
		case <-time.After(s.backoff(attempt)):
		}
	}

	created, createErr := s.profiles.Insert(ctx, newProfileFromCredential(cred))
	if createErr == nil {
		return Resolution{Profile: created, Origin: OriginPersisted}, nil
	}

	// Conflict or permission failure usually means the trigger won the
	// race after our last poll. One final lookup before synthesizing.
	if profile, err := s.profiles.GetByID(ctx, cred.UserID); err == nil {
		return Resolution{Profile: profile, Origin: OriginPersisted}, nil
	}

	s.log.Warn("profile never materialized after sign-up, synthesizing",
		"user_id", cred.UserID, "error", createErr)
	return Resolution{Profile: newProfileFromCredential(cred), Origin: OriginSynthesized}, nil
}

// SignOut clears the local session unconditionally. The provider call is
// fire-and-forget: a failed or in-flight remote sign-out never resurrects
// the local user.
func (s *Store) SignOut(ctx context.Context) {
	gen := s.nextGen()
	s.commit(gen, Resolution{}, nil)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.signOutTimeout)
		defer cancel()
		if err := s.provider.SignOut(ctx); err != nil {
			s.log.Warn("provider sign-out failed, local session already cleared", "error", err)
		}
	}()
}

// RefreshUser re-resolves the profile for the current credential session and
// overwrites the user with the fresh row. With no credential session the
// state is left untouched (no implicit logout).
func (s *Store) RefreshUser(ctx context.Context) error {
	cred, err := s.provider.CurrentSession(ctx)
	if err != nil {
		return err
	}
	if cred == nil {
		return nil
	}

	gen := s.nextGen()
	res, rerr := s.resolveProfile(ctx, cred)
	if rerr != nil {
		return rerr
	}
	s.commit(gen, res, nil)
	return nil
}

// Snapshot returns the current session state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{User: s.user, Loading: s.loading, Origin: s.origin}
}

// Subscribe returns a channel receiving a snapshot on every committed state
// change, plus a cancel function. Slow consumers drop intermediate
// snapshots rather than block resolutions.
func (s *Store) Subscribe() (<-chan Snapshot, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan Snapshot, 8)
	id := s.nextWatcherID
	s.nextWatcherID++
	s.watchers[id] = ch

	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if w, ok := s.watchers[id]; ok {
			delete(s.watchers, id)
			close(w)
		}
	}
}

// Close cancels the auth-change subscription and waits for in-flight
// background resolutions. The store is unusable afterwards; tests close
// stores between cases.
func (s *Store) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	unsub := s.unsubscribe
	s.unsubscribe = nil
	for id, ch := range s.watchers {
		delete(s.watchers, id)
		close(ch)
	}
	s.mu.Unlock()

	if unsub != nil {
		unsub()
	}
	s.wg.Wait()
}

// handleAuthChange re-runs profile resolution for every credential-change
// notification (login in another client, token refresh, logout).
func (s *Store) handleAuthChange(event string, cred *Credential) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.wg.Add(1)
	s.mu.Unlock()

	gen := s.nextGen()
	go func() {
		defer s.wg.Done()
		if cred == nil {
			s.commit(gen, Resolution{}, nil)
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		res, err := s.resolveProfile(ctx, cred)
		if err != nil {
			s.log.Warn("profile resolution failed on auth change", "event", event, "error", err)
		}
		s.commit(gen, res, err)
	}()
}

func (s *Store) nextGen() uint64 {
	return s.gen.Add(1)
}

// commit publishes a resolution outcome, but only if no newer resolution
// has committed first. Resolution failures degrade to Anonymous; there is
// no Error state in the machine.
func (s *Store) commit(gen uint64, res Resolution, resErr error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || gen <= s.committed {
		return
	}
	s.committed = gen

	if resErr != nil || res.Profile == nil {
		s.user = nil
		s.origin = OriginPersisted
	} else {
		s.user = res.Profile
		s.origin = res.Origin
	}
	s.loading = false

	snap := Snapshot{User: s.user, Loading: s.loading, Origin: s.origin}
	for _, ch := range s.watchers {
		select {
		case ch <- snap:
		default:
		}
	}
}
