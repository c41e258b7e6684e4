package editing

import (
	"context"
	"time"

	"github.com/inkwell-app/inkwell/internal/logger"
)

// StartJanitor runs a goroutine that periodically reaps idle sessions,
// flushing unsaved edits as drafts before removing them. On ctx.Done it
// flushes every remaining session before returning. Returns a channel that
// is closed when the janitor has completed shutdown.
func (m *Manager) StartJanitor(ctx context.Context, interval time.Duration) <-chan struct{} {
	done := make(chan struct{})
	logger.WithComponent("editing").Debugf("starting session janitor with interval: %v, ttl: %v", interval, m.ttl)
	ticker := time.NewTicker(interval)
	go func() {
		defer close(done)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				// Final flush on shutdown - use a background context so it
				// is not cancelled out from under the saves.
				m.CloseAll(context.Background())
				logger.WithComponent("editing").Info("session janitor stopped after final flush")
				return
			case <-ticker.C:
				m.reapIdle(ctx)
			}
		}
	}()
	return done
}

func (m *Manager) reapIdle(ctx context.Context) {
	cutoff := time.Now().Add(-m.ttl)

	m.mu.Lock()
	expired := make([]*handle, 0)
	for id, h := range m.sessions {
		if h.lastActive.Before(cutoff) {
			expired = append(expired, h)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, h := range expired {
		logger.WithComponent("editing").Infof("reaping idle session %s", h.id)
		if err := h.session.Close(ctx); err != nil {
			logger.WithComponent("editing").Warnf("final flush for idle session %s failed: %v", h.id, err)
		}
	}
}
