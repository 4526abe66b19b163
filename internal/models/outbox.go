package models

import "encoding/json"

// OutboxEntry is a pending network operation. CreatedAt is unix milliseconds
// and fixes the delivery order; entries are deleted once delivered.
type OutboxEntry struct {
	ID        string          `json:"id"`
	Store     string          `json:"store"`
	Op        Op              `json:"op"`
	Payload   json.RawMessage `json:"payload"`
	RemoteURL string          `json:"remoteUrl"`
	Method    string          `json:"method"`
	CreatedAt int64           `json:"createdAt"`
	Tries     int             `json:"tries"`
}

// MetaEntry is a key/value row of the meta collection.
type MetaEntry struct {
	Key   string `json:"key"`
	Value int64  `json:"value"`
}

// SinceKey is the meta key holding the pull cursor of a collection.
func SinceKey(collection string) string {
	return "since:" + collection
}
