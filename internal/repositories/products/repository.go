// Package products reads the local catalog.
package products

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/dmitrijs2005/litepos/internal/common"
	"github.com/dmitrijs2005/litepos/internal/models"
	"github.com/dmitrijs2005/litepos/internal/store"
)

type Repository interface {
	Get(ctx context.Context, id string) (*models.Product, error)
	// ListByCategory returns the products of category, or the whole
	// catalog for "", ordered by name.
	ListByCategory(ctx context.Context, category string) ([]models.Product, error)
}

type StoreRepository struct {
	db store.Reader
}

func NewStoreRepository(db store.Reader) *StoreRepository {
	return &StoreRepository{db: db}
}

func (r *StoreRepository) Get(ctx context.Context, id string) (*models.Product, error) {
	p, err := store.GetAs[models.Product](ctx, r.db, models.CollectionProducts, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get product %s: %w", id, err)
	}
	if p == nil {
		return nil, fmt.Errorf("product %s: %w", id, common.ErrorNotFound)
	}
	return p, nil
}

func (r *StoreRepository) ListByCategory(ctx context.Context, category string) ([]models.Product, error) {
	if category == "" {
		list, err := store.AllAs[models.Product](ctx, r.db, models.CollectionProducts, "by_name", nil)
		if err != nil {
			return nil, fmt.Errorf("failed to list products: %w", err)
		}
		return list, nil
	}

	list, err := store.AllAs[models.Product](ctx, r.db, models.CollectionProducts, "by_category", category)
	if err != nil {
		return nil, fmt.Errorf("failed to list products in %s: %w", category, err)
	}
	slices.SortStableFunc(list, func(a, b models.Product) int {
		return strings.Compare(a.Name, b.Name)
	})
	return list, nil
}
