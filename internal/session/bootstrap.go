package session

import (
	"context"
	"log/slog"
	"sync"
)

// Bootstrapper fires Store.Initialize exactly once at process start,
// independent of which view is rendered first. Initialization failure is
// logged, never propagated: the failure mode is a permanently Anonymous
// session, not a crash.
type Bootstrapper struct {
	once  sync.Once
	store *Store
	log   *slog.Logger
}

func NewBootstrapper(store *Store, log *slog.Logger) *Bootstrapper {
	if log == nil {
		log = slog.Default()
	}
	return &Bootstrapper{store: store, log: log}
}

// Run is safe to mount multiple times; both the once-guard here and the
// store's own single-flight guard make repeats no-ops.
func (b *Bootstrapper) Run(ctx context.Context) {
	b.once.Do(func() {
		if err := b.store.Initialize(ctx); err != nil {
			b.log.Error("session initialization failed", "error", err)
		}
	})
}
