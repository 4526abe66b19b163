// Package orders reads and saves orders in the local store.
package orders

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dmitrijs2005/litepos/internal/common"
	"github.com/dmitrijs2005/litepos/internal/logging"
	"github.com/dmitrijs2005/litepos/internal/models"
	"github.com/dmitrijs2005/litepos/internal/store"
)

type Repository interface {
	Get(ctx context.Context, id string) (*models.Order, error)
	// ListByStatus returns orders with status, or all orders for "",
	// oldest change first.
	ListByStatus(ctx context.Context, status models.OrderStatus) ([]models.Order, error)
	ListDirty(ctx context.Context) ([]models.Order, error)
	// Save writes o directly, bypassing the outbox.
	Save(ctx context.Context, o *models.Order) error
}

// StoreRepository lists skip records that do not decode as an Order, such
// as a malformed order pulled from the remote API, and log them instead of
// failing the whole list.
type StoreRepository struct {
	db  store.ReadWriter
	log logging.Logger
}

type Option func(*StoreRepository)

// WithLogger sets where skipped records are reported.
func WithLogger(log logging.Logger) Option {
	return func(r *StoreRepository) { r.log = log }
}

func NewStoreRepository(db store.ReadWriter, opts ...Option) *StoreRepository {
	r := &StoreRepository{db: db, log: logging.Nop()}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Get returns common.ErrorNotFound for an unknown id.
func (r *StoreRepository) Get(ctx context.Context, id string) (*models.Order, error) {
	o, err := store.GetAs[models.Order](ctx, r.db, models.CollectionOrders, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get order %s: %w", id, err)
	}
	if o == nil {
		return nil, fmt.Errorf("order %s: %w", id, common.ErrorNotFound)
	}
	return o, nil
}

func (r *StoreRepository) ListByStatus(ctx context.Context, status models.OrderStatus) ([]models.Order, error) {
	var (
		list []models.Order
		err  error
	)
	if status == "" {
		list, err = r.list(ctx, "by_updatedAt", nil)
	} else {
		list, err = r.list(ctx, "by_status", string(status))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return list, nil
}

func (r *StoreRepository) ListDirty(ctx context.Context) ([]models.Order, error) {
	list, err := r.list(ctx, "by_dirty", true)
	if err != nil {
		return nil, fmt.Errorf("failed to list dirty orders: %w", err)
	}
	return list, nil
}

func (r *StoreRepository) Save(ctx context.Context, o *models.Order) error {
	if err := r.db.Put(ctx, models.CollectionOrders, o); err != nil {
		return fmt.Errorf("failed to save order %s: %w", o.ID, err)
	}
	return nil
}

func (r *StoreRepository) list(ctx context.Context, index string, value any) ([]models.Order, error) {
	docs, err := r.db.GetAll(ctx, models.CollectionOrders, index, value)
	if err != nil {
		return nil, err
	}

	out := make([]models.Order, 0, len(docs))
	for _, doc := range docs {
		var o models.Order
		if err := json.Unmarshal(doc, &o); err != nil {
			r.log.Warn(ctx, "skipping undecodable order", "id", docID(doc), "error", err)
			continue
		}
		out = append(out, o)
	}
	return out, nil
}

func docID(doc json.RawMessage) string {
	var v struct {
		ID string `json:"id"`
	}
	_ = json.Unmarshal(doc, &v)
	return v.ID
}
