package llm

import "context"

// Placeholder answers deterministically from the context alone, without
// calling any external model. It exists so the service runs end to end
// without credentials (§9, LLM_PROVIDER=placeholder).
type Placeholder struct{}

func (Placeholder) Generate(_ context.Context, _ string, contextStr, question string) (Result, error) {
	answer := "No external LLM is configured; returning the retrieved context for: " + question
	return Result{
		Answer:     answer,
		Citations:  ExtractCitations(contextStr),
		TokensUsed: TokenUsage{},
		Model:      "placeholder",
	}, nil
}
