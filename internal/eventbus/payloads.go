package eventbus

import "github.com/dmitrijs2005/litepos/internal/models"

// ChangePayload accompanies KindChange. Value is set for single-record writes,
// Count for pulls.
type ChangePayload struct {
	Store string    `json:"store"`
	Op    models.Op `json:"op"`
	Value any       `json:"value,omitempty"`
	Count int       `json:"count,omitempty"`
}

// SyncErrorPayload accompanies KindSyncError.
type SyncErrorPayload struct {
	Job   models.OutboxEntry `json:"job"`
	Error string             `json:"error"`
}

// SyncState is the state of the sync engine.
type SyncState string

const (
	StateIdle    SyncState = "idle"
	StateRunning SyncState = "running"
	StateError   SyncState = "error"
)

// StatusPayload accompanies KindStatus.
type StatusPayload struct {
	State SyncState `json:"state"`
	Error string    `json:"error,omitempty"`
}

// PrintPayload accompanies KindPrintDone and KindPrintFailed.
type PrintPayload struct {
	Job   models.PrintJob `json:"job"`
	Error string          `json:"error,omitempty"`
}
