// Package store is the relational Chunk Store (C3): persistence for
// documents, chunks, and the document status lifecycle, with
// transactional multi-row writes during ingestion (§4.3).
//
// Grounded on manifold's internal/persistence/databases (pool.go's
// pgxpool bootstrap, postgres_search.go's CREATE TABLE IF NOT EXISTS /
// ON CONFLICT upsert style), retargeted from full-text search rows to the
// document/chunk relational schema of spec.md §3.
package store

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/intelligencedev/ragcore/internal/model"
)

// Sentinel errors per §7's error-kind taxonomy.
var (
	// ErrNotFound is returned when a document or chunk lookup misses.
	ErrNotFound = errors.New("store: not found")
	// ErrInvalidInput is the sentinel for malformed identifiers or
	// arguments; neither MemoryStore nor PostgresStore returns it.
	ErrInvalidInput = errors.New("store: invalid input")
)

// Store is the contract the ingestion pipeline, indexer, and query engine
// depend on. Implementations must serialize the multi-row writes of
// PersistChunks within a single transaction.
type Store interface {
	// CreateDocument inserts a new document row in StatusProcessing and
	// returns it with its assigned id and upload timestamp populated.
	CreateDocument(ctx context.Context, filename string, fileType model.FileType, sizeBytes int64, owner string) (model.Document, error)

	// MarkError advances a document to StatusError with the given message.
	// Any chunk rows already inserted for it are left in place (§4.6,
	// Open Question 3): cleanup happens only via DeleteDocumentCascade.
	MarkError(ctx context.Context, id uuid.UUID, message string) error

	// PersistChunks bulk-inserts chunks and sets the document's counters
	// and status to StatusIndexed, all within one transaction (§4.3, §4.6
	// step 5). Chunks must be ordered by ChunkIndex; the insert preserves
	// that order.
	PersistChunks(ctx context.Context, documentID uuid.UUID, chunks []model.Chunk, totalPages, totalCharacters int) error

	// GetDocument returns a document by id, or ErrNotFound.
	GetDocument(ctx context.Context, id uuid.UUID) (model.Document, error)

	// ListDocuments returns a page of documents ordered by upload time
	// descending, optionally filtered by owner.
	ListDocuments(ctx context.Context, skip, limit int, owner string) ([]model.Document, error)

	// ListChunksByDocument returns a document's chunks. When ordered is
	// true they are sorted by ChunkIndex ascending; when false the order is
	// the backend's (MemoryStore keeps insertion order, PostgresStore's
	// query has no ORDER BY).
	ListChunksByDocument(ctx context.Context, documentID uuid.UUID, ordered bool) ([]model.Chunk, error)

	// GetChunk returns one chunk of a document by chunk index, or
	// ErrNotFound.
	GetChunk(ctx context.Context, documentID uuid.UUID, chunkIndex int) (model.Chunk, error)

	// DeleteDocumentCascade removes the document and all its chunks.
	// Callers are responsible for the accompanying vector-store
	// delete-by-filter (§4.3); this method only touches relational state.
	DeleteDocumentCascade(ctx context.Context, id uuid.UUID) error

	// Ping reports whether the store is reachable, for the HTTP gateway's
	// readiness endpoint.
	Ping(ctx context.Context) error

	Close()
}
