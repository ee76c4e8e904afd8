package donation

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// StartDraftCleanupJob closes drafts abandoned by their browser. It blocks
// until ctx is done.
func (c *Controller) StartDraftCleanupJob(ctx context.Context, interval, ttl time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	c.log.Info("Draft cleanup job started",
		zap.Duration("interval", interval),
		zap.Duration("ttl", ttl),
	)

	for {
		select {
		case <-ctx.Done():
			c.log.Info("Draft cleanup job stopped")
			return
		case <-ticker.C:
			if n := c.SweepExpired(ttl); n > 0 {
				c.log.Debug("Abandoned drafts closed", zap.Int("count", n))
			}
		}
	}
}

// SweepExpired closes drafts opened more than ttl ago that are not
// submitting, returning how many were closed.
func (c *Controller) SweepExpired(ttl time.Duration) int {
	cutoff := c.now().Add(-ttl)

	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for _, d := range c.drafts {
		if d.submitting || d.openedAt.After(cutoff) {
			continue
		}
		c.closeLocked(d)
		n++
	}
	return n
}
