// Package models defines the records kept in the local collections and the
// identifiers of those collections.
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// The remote API and the UI exchange prices as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true
}

// Collection names as persisted and as used in remote URLs.
const (
	CollectionProducts  = "products"
	CollectionOrders    = "orders"
	CollectionPrintJobs = "printJobs"
	CollectionOutbox    = "outbox"
	CollectionMeta      = "meta"
)

// Op is the kind of mutation carried by a write or an outbox entry.
type Op string

const (
	OpUpsert Op = "upsert"
	OpDelete Op = "delete"
	// OpSync marks change notifications produced by a pull.
	OpSync Op = "sync"
)

// Record is a business record that goes through the offline write path.
type Record interface {
	// RecordID returns the primary key.
	RecordID() string
	// Touch stamps the modification time.
	Touch(t time.Time)
}
