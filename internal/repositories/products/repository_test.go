package products

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/dmitrijs2005/litepos/internal/common"
	"github.com/dmitrijs2005/litepos/internal/models"
	"github.com/dmitrijs2005/litepos/internal/store"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (*store.Store, *StoreRepository) {
	t.Helper()
	s, err := store.Open(context.Background(), filepath.Join(t.TempDir(), "products.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s, NewStoreRepository(s)
}

func TestListByCategory_SortedByName(t *testing.T) {
	s, r := setup(t)
	ctx := context.Background()

	for _, p := range []models.Product{
		{ID: "p1", Name: "Tea", Category: "Beverages", Price: decimal.NewFromInt(20)},
		{ID: "p2", Name: "Burger", Category: "Burgers", Price: decimal.NewFromInt(120)},
		{ID: "p3", Name: "Coffee", Category: "Beverages", Price: decimal.RequireFromString("45.50")},
	} {
		require.NoError(t, s.Put(ctx, models.CollectionProducts, p))
	}

	bev, err := r.ListByCategory(ctx, "Beverages")
	require.NoError(t, err)
	require.Len(t, bev, 2)
	assert.Equal(t, "Coffee", bev[0].Name)
	assert.Equal(t, "Tea", bev[1].Name)
	assert.Equal(t, "45.5", bev[0].Price.String())

	all, err := r.ListByCategory(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "Burger", all[0].Name)
}

func TestGet(t *testing.T) {
	s, r := setup(t)
	ctx := context.Background()
	require.NoError(t, s.Put(ctx, models.CollectionProducts, models.Product{ID: "p1", Name: "Tea"}))

	p, err := r.Get(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "Tea", p.Name)

	_, err = r.Get(ctx, "nope")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}
