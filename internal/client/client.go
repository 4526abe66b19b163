// Package client talks to the remote POS API: delivering outbox entries,
// pulling collection pages and probing connectivity.
package client

import (
	"context"
	"encoding/json"

	"github.com/dmitrijs2005/litepos/internal/models"
)

type Client interface {
	// Ping returns nil when the remote API is reachable and healthy.
	Ping(ctx context.Context) error
	// Push delivers one outbox entry.
	Push(ctx context.Context, entry models.OutboxEntry) error
	// Pull fetches one page of records changed since the cursor.
	Pull(ctx context.Context, collection string, since int64, limit, offset int) ([]json.RawMessage, error)
}
