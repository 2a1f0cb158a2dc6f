package adapter

import (
	"context"

	"fermi-notifier/internal/domain/model"
)

// Notifier is the port for the push-notification gateway.
// Publish sends exactly one request; 4xx maps to domain.ErrNotificationRejected,
// everything retryable to domain.ErrNotificationTransient.
type Notifier interface {
	Publish(ctx context.Context, msg model.NotificationMessage) error
}
