package store

import (
	"fmt"

	"github.com/dmitrijs2005/litepos/internal/common"
	"github.com/dmitrijs2005/litepos/internal/models"
)

// Index is a secondary index over one top-level document field.
type Index struct {
	Name  string
	Field string
}

// Collection describes one table: its key path and secondary indexes.
type Collection struct {
	Name    string
	KeyPath string
	Indexes []Index
}

func (c Collection) index(name string) (Index, bool) {
	for _, ix := range c.Indexes {
		if ix.Name == name {
			return ix, true
		}
	}
	return Index{}, false
}

// Schema maps collection names to their layout. It must agree with the
// embedded migrations.
type Schema map[string]Collection

// DefaultSchema is the layout created by the migrations package.
func DefaultSchema() Schema {
	return Schema{
		models.CollectionProducts: {
			Name:    models.CollectionProducts,
			KeyPath: "id",
			Indexes: []Index{
				{Name: "by_name", Field: "name"},
				{Name: "by_category", Field: "category"},
				{Name: "by_updatedAt", Field: "updatedAt"},
				{Name: "by_sku", Field: "sku"},
			},
		},
		models.CollectionOrders: {
			Name:    models.CollectionOrders,
			KeyPath: "id",
			Indexes: []Index{
				{Name: "by_status", Field: "status"},
				{Name: "by_dirty", Field: "dirty"},
				{Name: "by_updatedAt", Field: "updatedAt"},
			},
		},
		models.CollectionPrintJobs: {
			Name:    models.CollectionPrintJobs,
			KeyPath: "id",
			Indexes: []Index{
				{Name: "by_status", Field: "status"},
				{Name: "by_priority", Field: "priority"},
			},
		},
		models.CollectionOutbox: {
			Name:    models.CollectionOutbox,
			KeyPath: "id",
			Indexes: []Index{
				{Name: "by_createdAt", Field: "createdAt"},
			},
		},
		models.CollectionMeta: {
			Name:    models.CollectionMeta,
			KeyPath: "key",
		},
	}
}

func (s Schema) lookup(collection string) (Collection, error) {
	c, ok := s[collection]
	if !ok {
		return Collection{}, fmt.Errorf("%w: %q", common.ErrUnknownCollection, collection)
	}
	return c, nil
}

// column returns the SQL expression an index orders by. Names are checked
// against the schema, so the result is safe to interpolate.
func (c Collection) column(index string) (string, error) {
	if index == "" {
		return "id", nil
	}
	ix, ok := c.index(index)
	if !ok {
		return "", fmt.Errorf("unknown index %q on %s", index, c.Name)
	}
	return fmt.Sprintf("json_extract(doc, '$.%s')", ix.Field), nil
}
