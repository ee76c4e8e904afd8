package session

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// DefaultSweepInterval is how often StartCleanupJob evicts expired sessions.
const DefaultSweepInterval = time.Minute

// StartCleanupJob evicts expired sessions every interval. It blocks until ctx
// is done.
func (r *Registry) StartCleanupJob(ctx context.Context, interval time.Duration, log *zap.Logger) {
	if log == nil {
		log = zap.NewNop()
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Info("Session cleanup job started", zap.Duration("interval", interval))

	for {
		select {
		case <-ctx.Done():
			log.Info("Session cleanup job stopped")
			return
		case <-ticker.C:
			if n := r.SweepExpired(r.now()); n > 0 {
				log.Debug("Expired sessions evicted", zap.Int("count", n))
			}
		}
	}
}

// SweepExpired removes every session expired at now and returns how many
// were removed.
func (r *Registry) SweepExpired(now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for token, s := range r.sessions {
		if s.Expired(now) {
			delete(r.sessions, token)
			n++
		}
	}
	return n
}
