package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"fermi-notifier/internal/config"
	"fermi-notifier/internal/domain"
	"fermi-notifier/internal/domain/model"
	"fermi-notifier/internal/domain/ports/adapter"
	"fermi-notifier/internal/infra/logging"
)

const maxTitleRunes = 100

// Compile-time check
var _ NotificationUseCase = (*notificationUC)(nil)

type NotificationUseCase interface {
	// BuildMessage is deterministic for a given problem.
	BuildMessage(p *model.EstimationProblem) model.NotificationMessage
	// Publish sends one attempt bounded by timeout.
	Publish(ctx context.Context, msg model.NotificationMessage, timeout time.Duration) error
}

type notificationUC struct {
	notifier adapter.Notifier
	cfg      config.NotifyConfig
	priority model.Priority
	log      *zerolog.Logger
}

func NewNotificationUseCase(notifier adapter.Notifier, cfg config.NotifyConfig, logger *zerolog.Logger) (*notificationUC, error) {
	if strings.TrimSpace(cfg.Topic) == "" {
		return nil, fmt.Errorf("%w: notification topic is empty", domain.ErrConfiguration)
	}
	prio, err := model.ParsePriority(cfg.Priority)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrConfiguration, err)
	}
	if cfg.Title == "" {
		cfg.Title = "Fermi Question"
	}
	compLog := logger.With().Str("component", "NotificationUC").Str("topic", cfg.Topic).Logger()
	return &notificationUC{notifier: notifier, cfg: cfg, priority: prio, log: &compLog}, nil
}

func (n *notificationUC) BuildMessage(p *model.EstimationProblem) model.NotificationMessage {
	var body strings.Builder
	body.WriteString(p.Question)
	body.WriteString("\n\nAnswer: ")
	body.WriteString(p.Answer)
	if n.cfg.IncludeReasoning {
		body.WriteString("\n\nReasoning: ")
		body.WriteString(p.Reasoning)
	}

	title := []rune(n.cfg.Title)
	if len(title) > maxTitleRunes {
		title = title[:maxTitleRunes]
	}
	tags := append([]string(nil), n.cfg.Tags...)

	return model.NotificationMessage{
		Topic:    n.cfg.Topic,
		Title:    string(title),
		Body:     body.String(),
		Priority: n.priority,
		Tags:     tags,
		Delay:    n.cfg.Delay,
	}
}

func (n *notificationUC) Publish(ctx context.Context, msg model.NotificationMessage, timeout time.Duration) error {
	log := logging.With(ctx, n.log)
	defer logging.TraceDuration(log, "NotificationUC.Publish")()

	attemptCtx, cancel := withOptionalTimeout(ctx, timeout)
	defer cancel()

	if err := n.notifier.Publish(attemptCtx, msg); err != nil {
		return classifyAttemptError(ctx, err, domain.ErrNotificationTransient)
	}
	log.Info().Int("body_len", len(msg.Body)).Str("delay", msg.Delay).Msg("notification published")
	return nil
}
