package services

import (
	"context"
	"time"

	"go.uber.org/zap"
)

type Reaper struct {
	log      *zap.Logger
	registry *Registry
	ttl      time.Duration
	interval time.Duration
}

func NewReaper(log *zap.Logger, registry *Registry, ttl, interval time.Duration) *Reaper {
	return &Reaper{
		log:      log,
		registry: registry,
		ttl:      ttl,
		interval: interval,
	}
}

// Start runs the reaper in a goroutine until ctx is done.
func (r *Reaper) Start(ctx context.Context) {
	r.log.Info("Starting session reaper...", zap.Duration("ttl", r.ttl), zap.Duration("interval", r.interval))
	go func() {
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.runReap()
			}
		}
	}()
}

func (r *Reaper) runReap() {
	if n := r.registry.Reap(r.ttl); n > 0 {
		r.log.Info("Evicted idle sessions", zap.Int("count", n), zap.Int("remaining", r.registry.Len()))
	}
}
