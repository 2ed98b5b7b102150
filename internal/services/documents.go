package services

import (
	"context"

	"github.com/codyseavey/pokemon-collector/backend/internal/store"
)

// decodeAll decodes query results into T, stopping at the first bad document.
func decodeAll[T any](docs []store.Document) ([]T, error) {
	out := make([]T, 0, len(docs))
	for i := range docs {
		var v T
		if err := docs[i].DataTo(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// queryAs runs q and decodes every document into T.
func queryAs[T any](ctx context.Context, st store.DocumentStore, q store.Query) ([]T, error) {
	docs, err := st.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	return decodeAll[T](docs)
}

// getAs loads one document into T.
func getAs[T any](ctx context.Context, st store.DocumentStore, collection, id string) (*T, error) {
	doc, err := st.Get(ctx, collection, id)
	if err != nil {
		return nil, err
	}
	var v T
	if err := doc.DataTo(&v); err != nil {
		return nil, err
	}
	return &v, nil
}

// chunk splits ids into slices of at most size, for "in" filters that the
// document store caps at ten values.
func chunk(ids []string, size int) [][]string {
	var out [][]string
	for start := 0; start < len(ids); start += size {
		end := start + size
		if end > len(ids) {
			end = len(ids)
		}
		out = append(out, ids[start:end])
	}
	return out
}
