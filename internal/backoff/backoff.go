// Package backoff computes capped exponential retry delays for persisted
// jobs. The attempt count lives on the job itself, so the delay is derived
// from it instead of from a long-lived backoff object.
package backoff

import (
	"time"

	"github.com/sethvargo/go-retry"
)

// Policy is base × 2^(attempt-1), capped at Max.
type Policy struct {
	Base time.Duration
	Max  time.Duration
}

var (
	// Outbox is the delivery retry policy: 400ms doubling up to 30s.
	Outbox = Policy{Base: 400 * time.Millisecond, Max: 30 * time.Second}
	// Print is the device retry policy: 400ms doubling up to 10s.
	Print = Policy{Base: 400 * time.Millisecond, Max: 10 * time.Second}
)

// Delay returns the wait after the given failed attempt (1-based).
// Attempts below 1 yield zero.
func (p Policy) Delay(attempt int) time.Duration {
	if attempt < 1 || p.Base <= 0 {
		return 0
	}
	b := retry.WithCappedDuration(p.Max, retry.NewExponential(p.Base))

	var d time.Duration
	for i := 0; i < attempt; i++ {
		d, _ = b.Next()
		if d >= p.Max {
			return p.Max
		}
	}
	return d
}
