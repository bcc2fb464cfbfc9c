package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/intelligencedev/ragcore/internal/config"
)

func TestExtractCitations(t *testing.T) {
	text := "Paris is the capital [DOC: doc-1 | CHUNK: 3]. Also see [DOC: doc-2|CHUNK:0]."
	cites := ExtractCitations(text)
	require.Len(t, cites, 2)
	require.Equal(t, Citation{DocumentID: "doc-1", ChunkIndex: 3}, cites[0])
	require.Equal(t, Citation{DocumentID: "doc-2", ChunkIndex: 0}, cites[1])
}

func TestExtractCitationsNoneFound(t *testing.T) {
	require.Empty(t, ExtractCitations("no citations here"))
}

func TestPlaceholderGenerate(t *testing.T) {
	p := Placeholder{}
	res, err := p.Generate(context.Background(), DefaultSystemPrompt, "[DOC: doc-1 | CHUNK: 0]\ntext", "what is it?")
	require.NoError(t, err)
	require.Equal(t, "placeholder", res.Model)
	require.Len(t, res.Citations, 1)
}

func TestFactoryPlaceholder(t *testing.T) {
	p, err := New(context.Background(), config.Config{LLMProvider: config.ProviderPlaceholder})
	require.NoError(t, err)
	require.IsType(t, Placeholder{}, p)
}

func TestFactoryRejectsUnknownProvider(t *testing.T) {
	_, err := New(context.Background(), config.Config{LLMProvider: "nope"})
	require.Error(t, err)
}
