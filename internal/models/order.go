package models

import (
	"fmt"
	"time"

	"github.com/dmitrijs2005/litepos/internal/common"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderStatus is the position of an order on the board.
type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderPreparing OrderStatus = "preparing"
	OrderReady     OrderStatus = "ready"
	OrderCompleted OrderStatus = "completed"
)

// OrderStatuses lists the statuses in their forward order.
var OrderStatuses = []OrderStatus{OrderPending, OrderPreparing, OrderReady, OrderCompleted}

func (s OrderStatus) Valid() bool {
	for _, v := range OrderStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// OrderItem is one cart line frozen into an order.
type OrderItem struct {
	ProductID string          `json:"productId" validate:"required"`
	Name      string          `json:"name" validate:"required"`
	Size      string          `json:"size,omitempty"`
	Price     decimal.Decimal `json:"price" validate:"gte=0"`
	Qty       int             `json:"qty" validate:"gt=0"`
}

// LineTotal is price × qty.
func (i OrderItem) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Qty)))
}

// Order is a customer order. Dirty is true while local changes have not been
// handed to the sync push. Rev is an opaque token with no ordering meaning.
type Order struct {
	ID        string          `json:"id"`
	Status    OrderStatus     `json:"status"`
	Items     []OrderItem     `json:"items"`
	Total     decimal.Decimal `json:"total"`
	CreatedAt Timestamp       `json:"createdAt"`
	UpdatedAt Timestamp       `json:"updatedAt"`
	Rev       string          `json:"rev"`
	Dirty     bool            `json:"dirty"`
}

func (o *Order) RecordID() string  { return o.ID }
func (o *Order) Touch(t time.Time) { o.UpdatedAt = At(t) }

// NewOrder builds a pending, dirty order. The total is computed once here and
// never recomputed.
func NewOrder(items []OrderItem, now time.Time) *Order {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.LineTotal())
	}
	return &Order{
		ID:        uuid.NewString(),
		Status:    OrderPending,
		Items:     items,
		Total:     total,
		CreatedAt: At(now),
		UpdatedAt: At(now),
		Rev:       uuid.NewString(),
		Dirty:     true,
	}
}

// MoveTo changes the status, regenerates rev and marks the order dirty.
// Backward moves are allowed; only unknown statuses are rejected.
func (o *Order) MoveTo(status OrderStatus, now time.Time) error {
	if !status.Valid() {
		return fmt.Errorf("%w: %q", common.ErrInvalidTransition, status)
	}
	o.Status = status
	o.UpdatedAt = At(now)
	o.Rev = uuid.NewString()
	o.Dirty = true
	return nil
}
