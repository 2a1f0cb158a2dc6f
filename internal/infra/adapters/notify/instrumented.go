package notify

import (
	"context"

	"fermi-notifier/internal/domain"
	"fermi-notifier/internal/domain/model"
	"fermi-notifier/internal/domain/ports/adapter"
	"fermi-notifier/internal/infra/metrics"
)

type instrumentedNotifier struct {
	inner adapter.Notifier
}

// NewInstrumented counts every publish attempt by outcome.
func NewInstrumented(inner adapter.Notifier) adapter.Notifier {
	return &instrumentedNotifier{inner: inner}
}

func (i *instrumentedNotifier) Publish(ctx context.Context, msg model.NotificationMessage) error {
	err := i.inner.Publish(ctx, msg)
	metrics.IncPublishAttempt(domain.Reason(err))
	return err
}
