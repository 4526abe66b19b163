package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is a catalog item. The local copy is only ever written by pulls.
type Product struct {
	ID        string          `json:"id"`
	SKU       string          `json:"sku"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Category  string          `json:"category"`
	UpdatedAt Timestamp       `json:"updatedAt"`
}

func (p *Product) RecordID() string  { return p.ID }
func (p *Product) Touch(t time.Time) { p.UpdatedAt = At(t) }
