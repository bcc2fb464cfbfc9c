// Package model defines the relational data model shared by the ingestion
// pipeline, indexer, and query engine: documents, their chunks, and the
// status lifecycle that ties them together.
package model

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Status is the document processing lifecycle. Stores create documents in
// processing; PersistChunks advances them to indexed, and MarkError sets
// error from any state, including indexed when embedding or the vector
// upsert fails after the chunks were persisted. No store assigns pending.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusIndexed    Status = "indexed"
	StatusError      Status = "error"
)

// FileType enumerates the declared document types the ingestion pipeline
// accepts.
type FileType string

const (
	FileTypePDF  FileType = "pdf"
	FileTypeDOCX FileType = "docx"
	FileTypeTXT  FileType = "txt"
	FileTypeHTML FileType = "html"
)

// Document is a single uploaded file and its processing state.
type Document struct {
	ID           uuid.UUID
	Filename     string
	FileType     FileType
	SizeBytes    int64
	Owner        string // optional; empty means no owner
	UploadedAt   time.Time
	Status       Status
	ErrorMessage string

	TotalPages      int // 0 means unknown/not applicable
	TotalChunks     int
	TotalCharacters int
}

// Chunk is one contiguous, overlap-aware slice of a document's normalized
// text.
type Chunk struct {
	ID            uuid.UUID
	DocumentID    uuid.UUID
	ChunkIndex    int
	StartChar     int
	EndChar       int
	PageNumber    int // 0 means "no page", since pages are 1-based when present
	Text          string
	TokenEstimate int
}

// CompositeID returns the vector-store entry id "{document_id}_{chunk_index}"
// for this chunk, per the data model's indexed-embedding key.
func (c Chunk) CompositeID() string {
	return CompositeID(c.DocumentID, c.ChunkIndex)
}

// CompositeID builds the vector-store entry id for a (document, chunk index)
// pair without requiring a materialized Chunk value.
func CompositeID(docID uuid.UUID, chunkIndex int) string {
	return docID.String() + "_" + strconv.Itoa(chunkIndex)
}

// ContentHash returns the first 16 hex characters of SHA-256(text), the
// short content hash stored as embedding metadata for dedup/staleness
// checks (§3).
func ContentHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])[:16]
}
