package llm

import (
	"context"
	"fmt"
	"strings"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const anthropicDefaultMaxTokens int64 = 1024

// Anthropic calls Claude's Messages API for a single, non-streaming
// completion. Grounded on manifold's internal/llm/anthropic.Client.New/Chat,
// trimmed to one user turn with no extended thinking, prompt caching, or
// tool use.
type Anthropic struct {
	sdk   anthropic.Client
	model string
}

// NewAnthropic constructs an Anthropic provider. model defaults to Claude
// 3.5 Haiku when empty.
func NewAnthropic(apiKey, model string) *Anthropic {
	model = strings.TrimSpace(model)
	if model == "" {
		model = string(anthropic.ModelClaude3_5HaikuLatest)
	}
	return &Anthropic{
		sdk:   anthropic.NewClient(option.WithAPIKey(strings.TrimSpace(apiKey))),
		model: model,
	}
}

func (a *Anthropic) Generate(ctx context.Context, systemPrompt, contextStr, question string) (Result, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(a.model),
		MaxTokens: anthropicDefaultMaxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(contextStr + "\n" + question)),
		},
	}
	if systemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: systemPrompt}}
	}

	resp, err := a.sdk.Messages.New(ctx, params)
	if err != nil {
		return Result{}, fmt.Errorf("llm: anthropic generate: %w", err)
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if text, ok := block.AsAny().(anthropic.TextBlock); ok {
			sb.WriteString(text.Text)
		}
	}
	answer := sb.String()

	return Result{
		Answer:    answer,
		Citations: ExtractCitations(answer),
		TokensUsed: TokenUsage{
			Prompt:     int(resp.Usage.InputTokens),
			Completion: int(resp.Usage.OutputTokens),
			Total:      int(resp.Usage.InputTokens + resp.Usage.OutputTokens),
		},
		Model: a.model,
	}, nil
}
