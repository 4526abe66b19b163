package metadata

import (
	"context"
)

// Repository stores integer cursors under string keys.
type Repository interface {
	Get(ctx context.Context, key string) (int64, error)
	Set(ctx context.Context, key string, value int64) error
	// Advance stores value only if it is greater than the stored one and
	// returns the value in effect afterwards.
	Advance(ctx context.Context, key string, value int64) (int64, error)
	Delete(ctx context.Context, key string) error
	List(ctx context.Context) (map[string]int64, error)
}
