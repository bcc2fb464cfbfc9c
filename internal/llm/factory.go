package llm

import (
	"context"
	"fmt"

	"github.com/intelligencedev/ragcore/internal/config"
)

// New constructs the Provider selected by cfg.LLMProvider (§9 "sealed
// variant"). Grounded on manifold's internal/llm/providers/factory.go
// switch-on-config shape.
func New(ctx context.Context, cfg config.Config) (Provider, error) {
	switch cfg.LLMProvider {
	case config.ProviderGemini:
		return NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	case config.ProviderAnthropic:
		return NewAnthropic(cfg.AnthropicKey, cfg.AnthropicModel), nil
	case config.ProviderOpenAI:
		return NewOpenAI(cfg.OpenAIAPIKey, cfg.OpenAIModel), nil
	case config.ProviderPlaceholder:
		return Placeholder{}, nil
	default:
		return nil, fmt.Errorf("llm: unknown provider %q", cfg.LLMProvider)
	}
}
