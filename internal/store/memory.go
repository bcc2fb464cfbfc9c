package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/intelligencedev/ragcore/internal/model"
)

// MemoryStore is an in-process Store for tests, grounded on the same
// bootstrap/CRUD shape as PostgresStore but backed by maps under a mutex.
type MemoryStore struct {
	mu        sync.Mutex
	documents map[uuid.UUID]model.Document
	chunks    map[uuid.UUID][]model.Chunk // by document id
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		documents: make(map[uuid.UUID]model.Document),
		chunks:    make(map[uuid.UUID][]model.Chunk),
	}
}

func (m *MemoryStore) Close() {}

func (m *MemoryStore) Ping(_ context.Context) error { return nil }

func (m *MemoryStore) CreateDocument(_ context.Context, filename string, fileType model.FileType, sizeBytes int64, owner string) (model.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc := model.Document{
		ID:         uuid.New(),
		Filename:   filename,
		FileType:   fileType,
		SizeBytes:  sizeBytes,
		Owner:      owner,
		UploadedAt: time.Now().UTC(),
		Status:     model.StatusProcessing,
	}
	m.documents[doc.ID] = doc
	return doc, nil
}

func (m *MemoryStore) MarkError(_ context.Context, id uuid.UUID, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.documents[id]
	if !ok {
		return ErrNotFound
	}
	doc.Status = model.StatusError
	doc.ErrorMessage = message
	m.documents[id] = doc
	return nil
}

func (m *MemoryStore) PersistChunks(_ context.Context, documentID uuid.UUID, chunks []model.Chunk, totalPages, totalCharacters int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.documents[documentID]
	if !ok {
		return ErrNotFound
	}
	stored := make([]model.Chunk, len(chunks))
	copy(stored, chunks)
	m.chunks[documentID] = stored

	doc.Status = model.StatusIndexed
	doc.TotalPages = totalPages
	doc.TotalChunks = len(chunks)
	doc.TotalCharacters = totalCharacters
	m.documents[documentID] = doc
	return nil
}

func (m *MemoryStore) GetDocument(_ context.Context, id uuid.UUID) (model.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.documents[id]
	if !ok {
		return model.Document{}, ErrNotFound
	}
	return doc, nil
}

func (m *MemoryStore) ListDocuments(_ context.Context, skip, limit int, owner string) ([]model.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []model.Document
	for _, d := range m.documents {
		if owner != "" && d.Owner != owner {
			continue
		}
		all = append(all, d)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].UploadedAt.After(all[j].UploadedAt) })
	if limit <= 0 {
		limit = 50
	}
	if skip >= len(all) {
		return nil, nil
	}
	end := skip + limit
	if end > len(all) {
		end = len(all)
	}
	return all[skip:end], nil
}

func (m *MemoryStore) ListChunksByDocument(_ context.Context, documentID uuid.UUID, ordered bool) ([]model.Chunk, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	chunks := append([]model.Chunk(nil), m.chunks[documentID]...)
	if ordered {
		sort.Slice(chunks, func(i, j int) bool { return chunks[i].ChunkIndex < chunks[j].ChunkIndex })
	}
	return chunks, nil
}

func (m *MemoryStore) GetChunk(_ context.Context, documentID uuid.UUID, chunkIndex int) (model.Chunk, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.chunks[documentID] {
		if c.ChunkIndex == chunkIndex {
			return c, nil
		}
	}
	return model.Chunk{}, ErrNotFound
}

func (m *MemoryStore) DeleteDocumentCascade(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.documents[id]; !ok {
		return ErrNotFound
	}
	delete(m.documents, id)
	delete(m.chunks, id)
	return nil
}
