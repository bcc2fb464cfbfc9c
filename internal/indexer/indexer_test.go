package indexer

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/intelligencedev/ragcore/internal/embedder"
	"github.com/intelligencedev/ragcore/internal/model"
	"github.com/intelligencedev/ragcore/internal/store"
	"github.com/intelligencedev/ragcore/internal/vectorstore"
)

func seedDocument(t *testing.T, s store.Store, numChunks int) model.Document {
	t.Helper()
	doc, err := s.CreateDocument(context.Background(), "doc.txt", model.FileTypeTXT, 1024, "")
	require.NoError(t, err)

	chunks := make([]model.Chunk, numChunks)
	for i := range chunks {
		chunks[i] = model.Chunk{
			ID:         uuid.New(),
			DocumentID: doc.ID,
			ChunkIndex: i,
			StartChar:  i * 100,
			EndChar:    i*100 + 100,
			Text:       "chunk text number that is long enough to embed",
		}
	}
	require.NoError(t, s.PersistChunks(context.Background(), doc.ID, chunks, 1, numChunks*100))

	doc, err = s.GetDocument(context.Background(), doc.ID)
	require.NoError(t, err)
	return doc
}

func newIndexer(emb embedder.Embedder) *Indexer {
	return &Indexer{
		Store:      store.NewMemoryStore(),
		Embedder:   emb,
		Vectors:    vectorstore.NewMemoryStore(),
		Collection: "documents",
		Batch:      BatchOptions{Initial: 6, Min: 2, Max: 8},
	}
}

// oomEmbedder fails with ErrOutOfMemory while the batch exceeds a threshold,
// and succeeds otherwise, exercising the halving loop (S4).
type oomEmbedder struct {
	inner    embedder.Embedder
	okAtSize int
}

func (o *oomEmbedder) Embed(ctx context.Context, texts []string, batchSize int) ([][]float32, error) {
	if len(texts) > o.okAtSize {
		return nil, embedder.ErrOutOfMemory
	}
	return o.inner.Embed(ctx, texts, 0)
}
func (o *oomEmbedder) Dimension() int             { return o.inner.Dimension() }
func (o *oomEmbedder) Ping(ctx context.Context) error { return nil }

func TestIndexDocumentChunksBasic(t *testing.T) {
	idx := newIndexer(embedder.NewDeterministic(16, 0))
	doc := seedDocument(t, idx.Store, 10)

	report, err := idx.IndexDocumentChunks(context.Background(), doc.ID, true)
	require.NoError(t, err)
	require.Equal(t, 10, report.ChunksIndexed)
	require.Equal(t, 10, report.TotalChunks)
	require.Equal(t, 10, report.FinalCollectionCount)
	require.Empty(t, report.Errors)
}

func TestIndexDocumentChunksOOMAdaptiveBatching(t *testing.T) {
	base := embedder.NewDeterministic(16, 0)
	idx := newIndexer(&oomEmbedder{inner: base, okAtSize: 2})
	doc := seedDocument(t, idx.Store, 10)

	report, err := idx.IndexDocumentChunks(context.Background(), doc.ID, true)
	require.NoError(t, err)
	require.Equal(t, 10, report.ChunksIndexed)
	require.Greater(t, report.OOMRetries, 0)
	require.Empty(t, report.Errors)
}

func TestIndexDocumentChunksDedupSkipsExisting(t *testing.T) {
	idx := newIndexer(embedder.NewDeterministic(16, 0))
	doc := seedDocument(t, idx.Store, 10)

	first, err := idx.IndexDocumentChunks(context.Background(), doc.ID, true)
	require.NoError(t, err)
	require.Equal(t, 10, first.ChunksIndexed)

	second, err := idx.IndexDocumentChunks(context.Background(), doc.ID, true)
	require.NoError(t, err)
	require.Equal(t, 0, second.ChunksIndexed)
	require.Equal(t, 10, second.FinalCollectionCount)
}

func TestIndexDocumentChunksNoSkipReindexesAll(t *testing.T) {
	idx := newIndexer(embedder.NewDeterministic(16, 0))
	doc := seedDocument(t, idx.Store, 5)

	_, err := idx.IndexDocumentChunks(context.Background(), doc.ID, true)
	require.NoError(t, err)

	report, err := idx.IndexDocumentChunks(context.Background(), doc.ID, false)
	require.NoError(t, err)
	require.Equal(t, 5, report.ChunksIndexed)
	require.Equal(t, 5, report.FinalCollectionCount)
}
