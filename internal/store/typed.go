package store

import (
	"context"
	"encoding/json"

	"github.com/dmitrijs2005/litepos/internal/common"
)

// GetAs decodes the document under key into T. It returns nil, nil when
// there is none.
func GetAs[T any](ctx context.Context, r Reader, collection, key string) (*T, error) {
	doc, err := r.Get(ctx, collection, key)
	if err != nil || doc == nil {
		return nil, err
	}
	var v T
	if err := json.Unmarshal(doc, &v); err != nil {
		return nil, common.NewStorageError("decode", collection, err)
	}
	return &v, nil
}

// AllAs is GetAll decoding every document into T.
func AllAs[T any](ctx context.Context, r Reader, collection, index string, value any) ([]T, error) {
	docs, err := r.GetAll(ctx, collection, index, value)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(docs))
	for _, doc := range docs {
		var v T
		if err := json.Unmarshal(doc, &v); err != nil {
			return nil, common.NewStorageError("decode", collection, err)
		}
		out = append(out, v)
	}
	return out, nil
}
