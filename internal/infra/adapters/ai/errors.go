package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"fermi-notifier/internal/domain"
)

// classifyStatus maps an API status code to the generation error taxonomy.
func classifyStatus(provider string, code int, msg string) error {
	switch {
	case code == http.StatusRequestTimeout, code == http.StatusTooManyRequests, code >= 500:
		return fmt.Errorf("%w: %s http %d: %s", domain.ErrGenerationTransient, provider, code, msg)
	case code >= 400:
		return fmt.Errorf("%w: %s http %d: %s", domain.ErrGenerationRejected, provider, code, msg)
	default:
		return fmt.Errorf("%w: %s http %d: %s", domain.ErrGenerationTransient, provider, code, msg)
	}
}

// classifyTransport handles errors that carry no status code. Context errors
// are passed through so the caller can tell a run deadline from an attempt timeout.
func classifyTransport(provider string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s: %w", provider, err)
	}
	return fmt.Errorf("%w: %s: %v", domain.ErrGenerationTransient, provider, err)
}
