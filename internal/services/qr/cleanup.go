package qr

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Cleaner periodically deletes records that expired more than retention ago.
// It only reclaims storage; expiry itself is computed at read time.
type Cleaner struct {
	store     TokenStore
	interval  time.Duration
	retention time.Duration
	now       Clock
	logger    *zap.Logger
}

func NewCleaner(store TokenStore, interval, retention time.Duration, now Clock, logger *zap.Logger) *Cleaner {
	if store == nil {
		panic("token store is required")
	}
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cleaner{store: store, interval: interval, retention: retention, now: now, logger: logger}
}

// RunOnce performs a single purge pass and returns the number of deleted records.
func (c *Cleaner) RunOnce(ctx context.Context) (int64, error) {
	cutoff := c.now().UTC().Add(-c.retention)
	n, err := c.store.DeleteExpiredBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		c.logger.Info("purged expired qr tokens", zap.Int64("count", n), zap.Time("cutoff", cutoff))
	}
	return n, nil
}

// Start runs RunOnce every interval until ctx is cancelled.
func (c *Cleaner) Start(ctx context.Context) {
	if c.interval <= 0 {
		c.logger.Info("qr cleanup disabled")
		return
	}
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := c.RunOnce(ctx); err != nil && ctx.Err() == nil {
				c.logger.Error("qr cleanup failed", zap.Error(err))
			}
		}
	}
}
