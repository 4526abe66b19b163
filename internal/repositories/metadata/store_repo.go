// Package metadata keeps per-collection sync cursors in the meta collection.
package metadata

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/litepos/internal/models"
	"github.com/dmitrijs2005/litepos/internal/store"
)

type StoreRepository struct {
	db store.ReadWriter
}

func NewStoreRepository(db store.ReadWriter) *StoreRepository {
	return &StoreRepository{db: db}
}

// Get returns 0 for a key that was never set.
func (r *StoreRepository) Get(ctx context.Context, key string) (int64, error) {
	e, err := store.GetAs[models.MetaEntry](ctx, r.db, models.CollectionMeta, key)
	if err != nil {
		return 0, fmt.Errorf("failed to get metadata[%s]: %w", key, err)
	}
	if e == nil {
		return 0, nil
	}
	return e.Value, nil
}

func (r *StoreRepository) Set(ctx context.Context, key string, value int64) error {
	if err := r.db.Put(ctx, models.CollectionMeta, models.MetaEntry{Key: key, Value: value}); err != nil {
		return fmt.Errorf("failed to set metadata[%s]: %w", key, err)
	}
	return nil
}

func (r *StoreRepository) Advance(ctx context.Context, key string, value int64) (int64, error) {
	cur, err := r.Get(ctx, key)
	if err != nil {
		return 0, err
	}
	if value <= cur {
		return cur, nil
	}
	if err := r.Set(ctx, key, value); err != nil {
		return cur, err
	}
	return value, nil
}

func (r *StoreRepository) Delete(ctx context.Context, key string) error {
	if err := r.db.Delete(ctx, models.CollectionMeta, key); err != nil {
		return fmt.Errorf("failed to delete metadata[%s]: %w", key, err)
	}
	return nil
}

func (r *StoreRepository) List(ctx context.Context) (map[string]int64, error) {
	entries, err := store.AllAs[models.MetaEntry](ctx, r.db, models.CollectionMeta, "", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list metadata: %w", err)
	}

	result := make(map[string]int64, len(entries))
	for _, e := range entries {
		result[e.Key] = e.Value
	}
	return result, nil
}
