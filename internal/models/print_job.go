package models

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// PrintDest selects the ticket template and the device queue.
type PrintDest string

const (
	DestReceipt PrintDest = "receipt"
	DestKitchen PrintDest = "kitchen"
	DestBar     PrintDest = "bar"
)

// PrintStatus is the lifecycle state of a print job. Done and failed are terminal.
type PrintStatus string

const (
	PrintQueued PrintStatus = "queued"
	PrintDone   PrintStatus = "done"
	PrintFailed PrintStatus = "failed"
)

// PrintJob is a queued device job. Timestamps are unix milliseconds.
// Jobs are never removed; finished ones stay as an audit trail.
type PrintJob struct {
	ID        string          `json:"id"`
	Dest      PrintDest       `json:"dest"`
	Status    PrintStatus     `json:"status"`
	Priority  int             `json:"priority"`
	Tries     int             `json:"tries"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt int64           `json:"createdAt"`
	NextAt    int64           `json:"nextAt"`
}

// TicketPayload is the payload shape the ticket templates understand.
type TicketPayload struct {
	OrderID string          `json:"orderId"`
	Items   []OrderItem     `json:"items"`
	Total   decimal.Decimal `json:"total"`
	Notes   string          `json:"notes,omitempty"`
}
