package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/dmitrijs2005/litepos/internal/models"
	"github.com/dmitrijs2005/litepos/internal/store"
	"github.com/shopspring/decimal"
)

var demoCategories = []string{"Burgers", "Beverages", "Desserts", "Sides", "Combos"}

// SeedCatalog writes n demo products in one transaction when the catalog is
// empty and returns how many were written. A non-empty catalog is left as is.
func SeedCatalog(ctx context.Context, db *store.Store, n int, now time.Time) (int, error) {
	if n <= 0 {
		return 0, nil
	}

	written := 0
	err := db.Transaction(ctx, []string{models.CollectionProducts}, func(ctx context.Context, tx *store.Tx) error {
		empty := true
		err := tx.Iterate(ctx, models.CollectionProducts, "", nil, func(json.RawMessage) (bool, error) {
			empty = false
			return false, nil
		})
		if err != nil || !empty {
			return err
		}

		stamp := strconv.FormatInt(now.UnixMilli(), 36)
		for i := 1; i <= n; i++ {
			p := &models.Product{
				ID:        "p_" + strconv.FormatInt(int64(i), 36) + "_" + stamp,
				SKU:       fmt.Sprintf("SKU%d", i),
				Name:      fmt.Sprintf("Item %d", i),
				Price:     demoPrice(i),
				Category:  demoCategories[i%len(demoCategories)],
				UpdatedAt: models.At(now),
			}
			if err := tx.Put(ctx, models.CollectionProducts, p); err != nil {
				return err
			}
		}
		written = n
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("seed catalog: %w", err)
	}
	return written, nil
}

// demoPrice spreads prices over 20.00..219.99.
func demoPrice(i int) decimal.Decimal {
	cents := int64(2000 + (i*7919)%20000)
	return decimal.New(cents, -2)
}
