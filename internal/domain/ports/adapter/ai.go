package adapter

import (
	"context"

	"fermi-notifier/internal/domain/model"
)

// Usage for a single generation call, as reported by the provider.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// TextGenerator is the port for one call to a language-generation API.
// Implementations perform exactly one outbound request and classify failures as
// domain.ErrGenerationTransient, domain.ErrGenerationRejected or domain.ErrGenerationInvalid.
type TextGenerator interface {
	// Name identifies the provider ("gemini", "openai") for logs and metrics.
	Name() string
	// Model is the model the provider calls.
	Model() string
	Generate(ctx context.Context, req model.GenerationRequest) (string, Usage, error)
}
