package llm

import (
	"context"
	"fmt"
	"strings"

	genai "google.golang.org/genai"
)

// Gemini calls Google's Generative AI API for a single, non-streaming
// completion. Grounded on manifold's internal/llm/google.Client.New/Chat,
// trimmed to drop tool calling, image generation, and thought signatures -
// this system has no chat-agent loop to carry them across turns.
type Gemini struct {
	client *genai.Client
	model  string
}

// NewGemini constructs a Gemini provider. model defaults to
// "gemini-2.0-flash" when empty.
func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	model = strings.TrimSpace(model)
	if model == "" {
		model = "gemini-2.0-flash"
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: strings.TrimSpace(apiKey)})
	if err != nil {
		return nil, fmt.Errorf("llm: init gemini client: %w", err)
	}
	return &Gemini{client: client, model: model}, nil
}

func (g *Gemini) Generate(ctx context.Context, systemPrompt, contextStr, question string) (Result, error) {
	prompt := contextStr + "\n" + question
	contents := []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}
	cfg := &genai.GenerateContentConfig{}
	if systemPrompt != "" {
		cfg.SystemInstruction = genai.NewContentFromText(systemPrompt, genai.RoleUser)
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, cfg)
	if err != nil {
		return Result{}, fmt.Errorf("llm: gemini generate: %w", err)
	}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return Result{}, fmt.Errorf("llm: gemini returned no candidates")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil {
			sb.WriteString(part.Text)
		}
	}
	answer := sb.String()

	usage := TokenUsage{}
	if resp.UsageMetadata != nil {
		usage = TokenUsage{
			Prompt:     int(resp.UsageMetadata.PromptTokenCount),
			Completion: int(resp.UsageMetadata.CandidatesTokenCount),
			Total:      int(resp.UsageMetadata.TotalTokenCount),
		}
	}

	return Result{
		Answer:     answer,
		Citations:  ExtractCitations(answer),
		TokensUsed: usage,
		Model:      g.model,
	}, nil
}
