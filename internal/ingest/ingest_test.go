package ingest

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/intelligencedev/ragcore/internal/chunker"
	"github.com/intelligencedev/ragcore/internal/embedder"
	"github.com/intelligencedev/ragcore/internal/model"
	"github.com/intelligencedev/ragcore/internal/normalizer"
	"github.com/intelligencedev/ragcore/internal/store"
	"github.com/intelligencedev/ragcore/internal/vectorstore"
)

func newPipeline() *Pipeline {
	return &Pipeline{
		Store:      store.NewMemoryStore(),
		Vectors:    vectorstore.NewMemoryStore(),
		Collection: "documents",
		Embedder:   embedder.NewDeterministic(32, 0),
		Options: Options{
			Chunk: chunker.Options{ChunkSize: 200, ChunkOverlap: 20, MinChunkSize: 20, MaxChunkSize: 400},
		},
	}
}

func TestIngestPlainText(t *testing.T) {
	p := newPipeline()
	raw := "Alpha. Beta. Gamma.\n\n\n\nDelta."
	res, err := p.Ingest(context.Background(), Request{
		Data:     []byte(raw),
		Filename: "doc.txt",
	})
	require.NoError(t, err)
	require.Equal(t, model.StatusIndexed, res.Status)
	require.Equal(t, len(normalizer.Normalize(raw)), res.TotalCharacters)
	require.GreaterOrEqual(t, res.TotalChunks, 1)

	count, err := p.Vectors.Count(context.Background(), p.Collection)
	require.NoError(t, err)
	require.Equal(t, res.TotalChunks, count)

	doc, err := p.Store.GetDocument(context.Background(), res.DocumentID)
	require.NoError(t, err)
	require.Equal(t, model.StatusIndexed, doc.Status)
	require.Equal(t, res.TotalChunks, doc.TotalChunks)
}

func TestIngestRejectsBadExtension(t *testing.T) {
	p := newPipeline()
	_, err := p.Ingest(context.Background(), Request{Data: []byte("x"), Filename: "doc.exe"})
	require.Error(t, err)
	var invalid ErrInvalidInput
	require.ErrorAs(t, err, &invalid)
}

func TestIngestRejectsOversizedFile(t *testing.T) {
	p := newPipeline()
	big := make([]byte, MaxUploadBytes+1)
	_, err := p.Ingest(context.Background(), Request{Data: big, Filename: "doc.txt"})
	require.Error(t, err)
}

func TestIngestEmptyDocumentMarksError(t *testing.T) {
	p := newPipeline()
	_, err := p.Ingest(context.Background(), Request{Data: []byte("   \n\n  "), Filename: "doc.txt"})
	require.Error(t, err)

	docs, err := p.Store.ListDocuments(context.Background(), 0, 10, "")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	require.Equal(t, model.StatusError, docs[0].Status)
	require.Contains(t, docs[0].ErrorMessage, "empty")
}

func TestIngestCleansUpVectorsOnEmbedFailure(t *testing.T) {
	p := newPipeline()
	p.Embedder = failingEmbedder{}
	_, err := p.Ingest(context.Background(), Request{
		Data:     []byte("Some reasonably long piece of text to chunk and embed."),
		Filename: "doc.txt",
	})
	require.Error(t, err)

	docs, err := p.Store.ListDocuments(context.Background(), 0, 10, "")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	require.Equal(t, model.StatusError, docs[0].Status)

	count, err := p.Vectors.Count(context.Background(), p.Collection)
	require.NoError(t, err)
	require.Equal(t, 0, count)
}

type failingEmbedder struct{}

func (failingEmbedder) Embed(context.Context, []string, int) ([][]float32, error) {
	return nil, assertErr
}
func (failingEmbedder) Dimension() int             { return 0 }
func (failingEmbedder) Ping(context.Context) error { return nil }

var assertErr = errors.New("embedder unavailable")
