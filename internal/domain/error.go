package domain

import (
	"context"
	"errors"
)

var (
	// Startup
	ErrConfiguration = errors.New("configuration error")

	// Generation stage
	ErrGenerationTransient = errors.New("generation transient failure")
	ErrGenerationInvalid   = errors.New("generation returned invalid content")
	ErrGenerationRejected  = errors.New("generation request rejected")

	// Notification stage
	ErrNotificationTransient = errors.New("notification transient failure")
	ErrNotificationRejected  = errors.New("notification rejected by gateway")

	// Run level
	ErrTimeout = errors.New("run deadline exceeded")
	ErrBusy    = errors.New("a run is already in progress")
)

// Reason names the taxonomy bucket of err, used in logs, metrics and RunResult.
func Reason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrBusy):
		return "Busy"
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return "Timeout"
	case errors.Is(err, ErrConfiguration):
		return "ConfigurationError"
	case errors.Is(err, ErrGenerationInvalid):
		return "GenerationInvalid"
	case errors.Is(err, ErrGenerationRejected):
		return "GenerationRejected"
	case errors.Is(err, ErrGenerationTransient):
		return "GenerationTransient"
	case errors.Is(err, ErrNotificationRejected):
		return "NotificationRejected"
	case errors.Is(err, ErrNotificationTransient):
		return "NotificationTransient"
	case errors.Is(err, context.Canceled):
		return "Canceled"
	default:
		return "Internal"
	}
}

// Retryable reports whether err is a transient failure worth another attempt.
func Retryable(err error) bool {
	return errors.Is(err, ErrGenerationTransient) || errors.Is(err, ErrNotificationTransient)
}
