package notify

import (
	"context"

	"github.com/rs/zerolog"

	"fermi-notifier/internal/domain/model"
	"fermi-notifier/internal/domain/ports/adapter"
	"fermi-notifier/internal/infra/logging"
)

var _ adapter.Notifier = (*LogNotifier)(nil)

// LogNotifier logs messages instead of sending them. Used by `run --dry-run`.
type LogNotifier struct {
	log *zerolog.Logger
}

func NewLogNotifier(logger *zerolog.Logger) *LogNotifier {
	compLog := logger.With().Str("component", "LogNotifier").Logger()
	return &LogNotifier{log: &compLog}
}

func (l *LogNotifier) Publish(ctx context.Context, msg model.NotificationMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	logging.With(ctx, l.log).Info().
		Str("topic", msg.Topic).
		Str("title", msg.Title).
		Strs("tags", msg.Tags).
		Str("priority", string(msg.Priority)).
		Str("body", msg.Body).
		Msg("dry run: notification not sent")
	return nil
}
