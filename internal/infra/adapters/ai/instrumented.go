package ai

import (
	"context"
	"time"

	"fermi-notifier/internal/domain"
	"fermi-notifier/internal/domain/model"
	"fermi-notifier/internal/domain/ports/adapter"
	"fermi-notifier/internal/infra/metrics"
)

// Compile-time check
var _ adapter.TextGenerator = (*instrumentedAI)(nil)

type instrumentedAI struct {
	inner adapter.TextGenerator
}

// NewInstrumented records token usage, latency and outcome of every call.
func NewInstrumented(inner adapter.TextGenerator) adapter.TextGenerator {
	return &instrumentedAI{inner: inner}
}

func (i *instrumentedAI) Name() string  { return i.inner.Name() }
func (i *instrumentedAI) Model() string { return i.inner.Model() }

func (i *instrumentedAI) Generate(ctx context.Context, req model.GenerationRequest) (string, adapter.Usage, error) {
	start := time.Now()
	text, usage, err := i.inner.Generate(ctx, req)
	metrics.ObserveGeneration(i.inner.Name(), i.inner.Model(), usage.PromptTokens, usage.CompletionTokens, time.Since(start), domain.Reason(err))
	return text, usage, err
}
