package query

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/intelligencedev/ragcore/internal/embedder"
	"github.com/intelligencedev/ragcore/internal/vectorstore"
)

func seedVectors(t *testing.T, vs vectorstore.Store, emb embedder.Embedder, docID string, texts []string) {
	t.Helper()
	vecs, err := emb.Embed(context.Background(), texts, 0)
	require.NoError(t, err)
	ids := make([]string, len(texts))
	metas := make([]vectorstore.Metadata, len(texts))
	for i := range texts {
		ids[i] = docID + "_" + itoa(i)
		metas[i] = vectorstore.Metadata{"document_id": docID, "chunk_index": i}
	}
	require.NoError(t, vs.Upsert(context.Background(), "documents", ids, vecs, texts, metas))
}

func itoa(i int) string {
	return string(rune('0' + i))
}

func newEngine() (*Engine, vectorstore.Store, embedder.Embedder) {
	vs := vectorstore.NewMemoryStore()
	emb := embedder.NewDeterministic(32, 0)
	eng := New(vs, emb, "documents", Options{})
	return eng, vs, emb
}

func TestAnswerContextBasicRetrieval(t *testing.T) {
	eng, vs, emb := newEngine()
	seedVectors(t, vs, emb, "doc-1", []string{
		"The quick brown fox jumps over the lazy dog.",
		"Paris is the capital of France.",
	})

	res, err := eng.AnswerContext(context.Background(), "capital of France", 2, 2000, nil)
	require.NoError(t, err)
	require.Contains(t, res.Context, "[USER QUESTION]")
	require.Contains(t, res.Context, "capital of France")
	require.NotEmpty(t, res.Citations)
	require.Contains(t, res.Context, "[DOC: doc-1 | CHUNK:")
}

func TestAnswerContextEmptyRetrieval(t *testing.T) {
	eng, _, _ := newEngine()
	res, err := eng.AnswerContext(context.Background(), "anything", 5, 2000, nil)
	require.NoError(t, err)
	require.Contains(t, res.Context, "No relevant sources found.")
	require.Empty(t, res.Citations)
}

func TestAnswerContextValidatesTopK(t *testing.T) {
	eng, _, _ := newEngine()
	_, err := eng.AnswerContext(context.Background(), "q", 0, 2000, nil)
	require.Error(t, err)

	_, err = eng.AnswerContext(context.Background(), "q", 51, 2000, nil)
	require.Error(t, err)
}

func TestAnswerContextValidatesMaxContextChars(t *testing.T) {
	eng, _, _ := newEngine()
	_, err := eng.AnswerContext(context.Background(), "q", 5, 99, nil)
	require.Error(t, err)

	_, err = eng.AnswerContext(context.Background(), "q", 5, 50001, nil)
	require.Error(t, err)
}

func TestAnswerContextCachesResult(t *testing.T) {
	eng, vs, emb := newEngine()
	seedVectors(t, vs, emb, "doc-1", []string{"Paris is the capital of France."})

	first, err := eng.AnswerContext(context.Background(), "capital", 1, 2000, nil)
	require.NoError(t, err)

	// Mutate the store; a cache hit should still return the prior context.
	require.NoError(t, vs.DeleteWhere(context.Background(), "documents", vectorstore.Filter{"document_id": "doc-1"}))

	second, err := eng.AnswerContext(context.Background(), "capital", 1, 2000, nil)
	require.NoError(t, err)
	require.Equal(t, first.Context, second.Context)
}

func TestClearCacheForcesRefetch(t *testing.T) {
	eng, vs, emb := newEngine()
	seedVectors(t, vs, emb, "doc-1", []string{"Paris is the capital of France."})

	_, err := eng.AnswerContext(context.Background(), "capital", 1, 2000, nil)
	require.NoError(t, err)

	require.NoError(t, vs.DeleteWhere(context.Background(), "documents", vectorstore.Filter{"document_id": "doc-1"}))
	eng.ClearCache()

	res, err := eng.AnswerContext(context.Background(), "capital", 1, 2000, nil)
	require.NoError(t, err)
	require.Contains(t, res.Context, "No relevant sources found.")
}

func TestExtractiveTruncateFitsWholeSentences(t *testing.T) {
	text := "First sentence here. Second sentence here. Third one."
	out := extractiveTruncate(text, 30)
	require.True(t, len(out) <= 30)
	require.True(t, strings.HasPrefix(text, out) || strings.HasPrefix(out, "First sentence here."))
}

func TestExtractiveTruncateHardFallback(t *testing.T) {
	text := "Averylongsinglewordwithnobreaksatallwhatsoever."
	out := extractiveTruncate(text, 10)
	require.LessOrEqual(t, len(out), 10)
	require.True(t, strings.HasSuffix(out, "...") || out == "")
}

func TestContextRespectsMaxChars(t *testing.T) {
	eng, vs, emb := newEngine()
	longText := strings.Repeat("This is a sentence about foxes and dogs. ", 50)
	seedVectors(t, vs, emb, "doc-1", []string{longText})

	res, err := eng.AnswerContext(context.Background(), "foxes and dogs", 1, 200, nil)
	require.NoError(t, err)
	require.LessOrEqual(t, len(res.Context), 200+64) // footer/header accounting tolerance
}
