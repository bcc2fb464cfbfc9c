package llm

import (
	"context"
	"fmt"
	"strings"

	sdk "github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
)

// OpenAI calls a Chat Completions-compatible endpoint for a single,
// non-streaming completion. Grounded on manifold's
// internal/llm/openai.Client.Chat, trimmed to one user turn with no tool
// calling, streaming, or self-hosted SSE workarounds.
type OpenAI struct {
	sdk   sdk.Client
	model string
}

// NewOpenAI constructs an OpenAI provider. model defaults to gpt-4o-mini
// when empty.
func NewOpenAI(apiKey, model string) *OpenAI {
	model = strings.TrimSpace(model)
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &OpenAI{
		sdk:   sdk.NewClient(option.WithAPIKey(strings.TrimSpace(apiKey))),
		model: model,
	}
}

func (o *OpenAI) Generate(ctx context.Context, systemPrompt, contextStr, question string) (Result, error) {
	messages := make([]sdk.ChatCompletionMessageParamUnion, 0, 2)
	if systemPrompt != "" {
		messages = append(messages, sdk.SystemMessage(systemPrompt))
	}
	messages = append(messages, sdk.UserMessage(contextStr+"\n"+question))

	params := sdk.ChatCompletionNewParams{
		Model:    sdk.ChatModel(o.model),
		Messages: messages,
	}

	comp, err := o.sdk.Chat.Completions.New(ctx, params)
	if err != nil {
		return Result{}, fmt.Errorf("llm: openai generate: %w", err)
	}
	if len(comp.Choices) == 0 {
		return Result{}, fmt.Errorf("llm: openai returned no choices")
	}
	answer := comp.Choices[0].Message.Content

	return Result{
		Answer:    answer,
		Citations: ExtractCitations(answer),
		TokensUsed: TokenUsage{
			Prompt:     int(comp.Usage.PromptTokens),
			Completion: int(comp.Usage.CompletionTokens),
			Total:      int(comp.Usage.TotalTokens),
		},
		Model: o.model,
	}, nil
}
