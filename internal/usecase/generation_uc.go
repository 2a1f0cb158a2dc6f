package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"fermi-notifier/internal/domain"
	"fermi-notifier/internal/domain/model"
	"fermi-notifier/internal/domain/ports/adapter"
	"fermi-notifier/internal/infra/logging"
)

// Compile-time check
var _ GenerationUseCase = (*generationUC)(nil)

type GenerationUseCase interface {
	// Generate performs exactly one generation attempt bounded by timeout and
	// returns a validated problem.
	Generate(ctx context.Context, req model.GenerationRequest, timeout time.Duration) (*model.EstimationProblem, error)
}

type generationUC struct {
	ai  adapter.TextGenerator
	log *zerolog.Logger
}

func NewGenerationUseCase(ai adapter.TextGenerator, logger *zerolog.Logger) *generationUC {
	compLog := logger.With().Str("component", "GenerationUC").Str("provider", ai.Name()).Logger()
	return &generationUC{ai: ai, log: &compLog}
}

func (g *generationUC) Generate(ctx context.Context, req model.GenerationRequest, timeout time.Duration) (*model.EstimationProblem, error) {
	log := logging.With(ctx, g.log)
	defer logging.TraceDuration(log, "GenerationUC.Generate")()

	attemptCtx, cancel := withOptionalTimeout(ctx, timeout)
	defer cancel()

	text, usage, err := g.ai.Generate(attemptCtx, req)
	if err != nil {
		return nil, classifyAttemptError(ctx, err, domain.ErrGenerationTransient)
	}
	log.Debug().
		Int("tokens_in", usage.PromptTokens).
		Int("tokens_out", usage.CompletionTokens).
		Str("output", logging.Preview(text, 200)).
		Msg("generation output received")

	parsed, err := parseProblem(text)
	if err != nil {
		log.Warn().Err(err).Str("output", logging.Preview(text, 500)).Msg("generated content rejected")
		return nil, err
	}
	return model.NewEstimationProblem(req, parsed.Question, parsed.Reasoning, parsed.Answer, parsed.Estimate), nil
}

func withOptionalTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

// classifyAttemptError separates the run deadline (ErrTimeout) from a single
// attempt running out of time or failing without a classification (transient).
func classifyAttemptError(runCtx context.Context, err error, transient error) error {
	if runErr := runCtx.Err(); runErr != nil {
		if errors.Is(runErr, context.DeadlineExceeded) {
			return fmt.Errorf("%w: %v", domain.ErrTimeout, err)
		}
		return fmt.Errorf("%w: %v", runErr, err)
	}
	if domain.Reason(err) == "Internal" || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", transient, err)
	}
	return err
}
