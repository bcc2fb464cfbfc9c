// Package llm implements the answer-generation contract (§6 "LLM contract",
// §9 "Dynamic provider selection"): a sealed variant over {Gemini,
// Placeholder, OpenAI, Anthropic} sharing one
// generate(system, context, question) -> Result call.
//
// Grounded on manifold's internal/llm/{google,anthropic,openai} clients for
// SDK construction, trimmed to a single non-streaming call with no tool
// calls, images, or multi-turn history - those are Non-goals here.
package llm

import (
	"context"
	"regexp"
)

// TokenUsage mirrors the provider's reported token accounting.
type TokenUsage struct {
	Prompt     int
	Completion int
	Total      int
}

// Citation is an extracted `[DOC: X | CHUNK: N]` reference, used only as a
// safety net against a provider inventing identifiers (§9 design note).
type Citation struct {
	DocumentID string
	ChunkIndex int
}

// Result is generate()'s return value.
type Result struct {
	Answer     string
	Citations  []Citation
	TokensUsed TokenUsage
	Model      string
}

// Provider is the capability contract every LLM variant satisfies.
type Provider interface {
	Generate(ctx context.Context, systemPrompt, contextStr, question string) (Result, error)
}

var citationPattern = regexp.MustCompile(`\[DOC:\s*([^|\]]+?)\s*\|\s*CHUNK:\s*(\d+)\s*\]`)

// ExtractCitations parses `[DOC: X | CHUNK: N]` occurrences out of text.
// Providers call this as a fallback when they cannot report citations
// directly; it never invents identifiers not present in text.
func ExtractCitations(text string) []Citation {
	matches := citationPattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}
	out := make([]Citation, 0, len(matches))
	for _, m := range matches {
		idx := 0
		for _, r := range m[2] {
			if r < '0' || r > '9' {
				idx = -1
				break
			}
		}
		if idx == -1 {
			continue
		}
		n := 0
		for _, r := range m[2] {
			n = n*10 + int(r-'0')
		}
		out = append(out, Citation{DocumentID: m[1], ChunkIndex: n})
	}
	return out
}

const DefaultSystemPrompt = "You are a retrieval-augmented assistant. " +
	"Answer strictly from the provided context and cite every claim using " +
	"the [DOC: id | CHUNK: n] markers already present in it."
