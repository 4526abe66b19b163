package app

import (
	"context"
	"time"

	"github.com/dmitrijs2005/litepos/internal/logging"
)

const probeTimeout = 3 * time.Second

type pinger interface {
	Ping(ctx context.Context) error
}

type connectivity interface {
	SetOnline(online bool)
}

type syncer interface {
	SyncAll(ctx context.Context) error
}

func probe(ctx context.Context, p pinger) bool {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	return p.Ping(ctx) == nil
}

// watchConnectivity probes the remote API at once and then on every tick,
// reporting each result to c.
func watchConnectivity(ctx context.Context, p pinger, c connectivity, interval time.Duration) {
	c.SetOnline(probe(ctx, p))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ok := probe(ctx, p)
			if ctx.Err() != nil {
				return
			}
			c.SetOnline(ok)
		case <-ctx.Done():
			return
		}
	}
}

// scheduleSync runs a full sync on every tick while online, and whenever
// wake fires.
func scheduleSync(ctx context.Context, s syncer, online func() bool, wake <-chan struct{}, interval time.Duration, log logging.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-wake:
		case <-ticker.C:
			if !online() {
				log.Debug(ctx, "skipping sync, offline")
				continue
			}
		}

		if err := s.SyncAll(ctx); err != nil && ctx.Err() == nil {
			log.Warn(ctx, "scheduled sync failed", "error", err)
		}
	}
}
