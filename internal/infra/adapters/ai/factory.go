package ai

import (
	"context"
	"fmt"

	"fermi-notifier/internal/config"
	"fermi-notifier/internal/domain"
	"fermi-notifier/internal/domain/ports/adapter"
)

// New builds the instrumented generator selected by cfg.
func New(ctx context.Context, cfg config.AIConfig) (adapter.TextGenerator, error) {
	var (
		gen adapter.TextGenerator
		err error
	)
	switch p := config.ResolveProvider(cfg.Provider, cfg.Model); p {
	case config.ProviderGemini:
		gen, err = NewGeminiAdapter(ctx, cfg.GeminiKey, cfg.GeminiURL, cfg.Model)
	case config.ProviderOpenAI:
		gen, err = NewOpenAIAdapter(cfg.OpenAIKey, cfg.OpenAIBaseURL, cfg.Model)
	default:
		return nil, fmt.Errorf("%w: unknown ai provider %q", domain.ErrConfiguration, p)
	}
	if err != nil {
		return nil, err
	}
	return NewInstrumented(gen), nil
}
