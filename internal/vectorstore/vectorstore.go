// Package vectorstore adapts the batch-oriented vector persistence contract
// the indexer and query engine depend on to concrete backends: Qdrant and
// an in-memory store for tests.
//
// Grounded on the per-id VectorStore interface and backends in
// manifold's internal/persistence/databases (qdrant_vector.go,
// postgres_vector.go, memory_vector.go), widened here to batch upsert and
// metadata-filtered enumeration.
package vectorstore

import (
	"context"
	"errors"
)

// MetaValue is a scalar metadata value: string, int64, float64, or bool.
type MetaValue any

// Metadata is the per-entry metadata map persisted alongside each vector.
type Metadata map[string]MetaValue

// Filter is an equality filter over metadata fields; all keys must match.
type Filter map[string]MetaValue

// QueryHit is one ranked result from Query, ordered ascending by Distance.
type QueryHit struct {
	ID       string
	Text     string
	Metadata Metadata
	Distance float64
}

// Entry is one row returned by GetWhere.
type Entry struct {
	ID       string
	Metadata Metadata
	Vector   []float32 // nil unless the backend returns vectors for GetWhere
}

// ErrDimensionMismatch is returned by QdrantStore.Upsert when a vector's
// length does not match the store's configured dimension.
var ErrDimensionMismatch = errors.New("vectorstore: dimension mismatch")

// Store is the contract the indexer and query engine depend on. All
// operations are scoped to a named collection so a single backend can host
// several logical indexes.
type Store interface {
	// Upsert stores or replaces entries by id. ids, vectors, texts, and
	// metadatas must all have the same length.
	Upsert(ctx context.Context, collection string, ids []string, vectors [][]float32, texts []string, metadatas []Metadata) error

	// DeleteWhere deletes every entry whose metadata matches filter.
	DeleteWhere(ctx context.Context, collection string, filter Filter) error

	// GetWhere enumerates entries matching filter, without ranking.
	GetWhere(ctx context.Context, collection string, filter Filter) ([]Entry, error)

	// Query returns up to n nearest neighbours to vector, ranked ascending
	// by distance, optionally restricted by filter.
	Query(ctx context.Context, collection string, vector []float32, n int, filter Filter) ([]QueryHit, error)

	// Count returns the number of entries in collection.
	Count(ctx context.Context, collection string) (int, error)

	Close() error
}

// matchesFilter reports whether md satisfies every equality constraint in f.
func matchesFilter(md Metadata, f Filter) bool {
	if len(f) == 0 {
		return true
	}
	for k, want := range f {
		got, ok := md[k]
		if !ok {
			return false
		}
		if !metaEqual(got, want) {
			return false
		}
	}
	return true
}

func metaEqual(a, b MetaValue) bool {
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if aok && bok {
		return af == bf
	}
	return a == b
}

func toFloat(v MetaValue) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case float32:
		return float64(n), true
	}
	return 0, false
}
