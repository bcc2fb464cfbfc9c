package store

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/intelligencedev/ragcore/internal/model"
)

func newUUID() uuid.UUID { return uuid.New() }

func TestMemoryStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	doc, err := s.CreateDocument(ctx, "a.txt", model.FileTypeTXT, 10, "owner-1")
	require.NoError(t, err)
	require.Equal(t, model.StatusProcessing, doc.Status)

	chunks := []model.Chunk{
		{ID: newUUID(), DocumentID: doc.ID, ChunkIndex: 0, StartChar: 0, EndChar: 5, Text: "hello"},
		{ID: newUUID(), DocumentID: doc.ID, ChunkIndex: 1, StartChar: 5, EndChar: 10, Text: "world"},
	}
	require.NoError(t, s.PersistChunks(ctx, doc.ID, chunks, 0, 10))

	got, err := s.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	require.Equal(t, model.StatusIndexed, got.Status)
	require.Equal(t, 2, got.TotalChunks)
	require.Equal(t, 10, got.TotalCharacters)

	listed, err := s.ListChunksByDocument(ctx, doc.ID, true)
	require.NoError(t, err)
	require.Len(t, listed, 2)
	require.Equal(t, 0, listed[0].ChunkIndex)

	chunk, err := s.GetChunk(ctx, doc.ID, 1)
	require.NoError(t, err)
	require.Equal(t, "world", chunk.Text)

	require.NoError(t, s.DeleteDocumentCascade(ctx, doc.ID))
	_, err = s.GetDocument(ctx, doc.ID)
	require.ErrorIs(t, err, ErrNotFound)

	listed, err = s.ListChunksByDocument(ctx, doc.ID, true)
	require.NoError(t, err)
	require.Empty(t, listed)
}

func TestMemoryStoreMarkError(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	doc, err := s.CreateDocument(ctx, "bad.pdf", model.FileTypePDF, 10, "")
	require.NoError(t, err)

	require.NoError(t, s.MarkError(ctx, doc.ID, "parse failed"))
	got, err := s.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	require.Equal(t, model.StatusError, got.Status)
	require.Equal(t, "parse failed", got.ErrorMessage)
}

func TestMemoryStoreListDocumentsByOwner(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	_, err := s.CreateDocument(ctx, "a.txt", model.FileTypeTXT, 1, "alice")
	require.NoError(t, err)
	_, err = s.CreateDocument(ctx, "b.txt", model.FileTypeTXT, 1, "bob")
	require.NoError(t, err)

	docs, err := s.ListDocuments(ctx, 0, 10, "alice")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	require.Equal(t, "a.txt", docs[0].Filename)
}
