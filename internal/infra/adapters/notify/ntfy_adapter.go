package notify

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"fermi-notifier/internal/domain"
	"fermi-notifier/internal/domain/model"
	"fermi-notifier/internal/domain/ports/adapter"
	"fermi-notifier/internal/infra/logging"
)

var _ adapter.Notifier = (*NtfyAdapter)(nil)

const DefaultNtfyURL = "https://ntfy.sh"

var (
	durationDelayRe = regexp.MustCompile(`^\d+[smhd]$`)
	unixDelayRe     = regexp.MustCompile(`^\d{10}$`)
	// "tomorrow", "10am", "tomorrow, 10am" or "today 3:30pm"; a comma needs a time after it.
	naturalDelayRe  = regexp.MustCompile(`(?i)^(?:(?:today|tomorrow)|(?:(?:today|tomorrow)(?:,\s*|\s+))?\d{1,2}(?::\d{2})?\s*(?:am|pm))$`)
)

// NtfyAdapter publishes plain-text messages to an ntfy server.
type NtfyAdapter struct {
	client *resty.Client
	log    *zerolog.Logger
}

// NewNtfyAdapter creates the adapter. token is optional; the per-attempt
// timeout comes from the caller's context.
func NewNtfyAdapter(baseURL, token string, logger *zerolog.Logger) *NtfyAdapter {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultNtfyURL
	}
	c := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetHeader("Content-Type", "text/plain; charset=utf-8")
	if token != "" {
		c.SetAuthToken(token)
	}
	compLog := logger.With().Str("component", "NtfyAdapter").Logger()
	return &NtfyAdapter{client: c, log: &compLog}
}

func (n *NtfyAdapter) Publish(ctx context.Context, msg model.NotificationMessage) error {
	log := logging.With(ctx, n.log)
	if msg.Topic == "" {
		return fmt.Errorf("%w: empty topic", domain.ErrNotificationRejected)
	}

	req := n.client.R().
		SetContext(ctx).
		SetBody(msg.Body)
	if msg.Title != "" {
		req.SetHeader("Title", headerSafe(msg.Title))
	}
	if len(msg.Tags) > 0 {
		req.SetHeader("Tags", strings.Join(msg.Tags, ","))
	}
	if msg.Priority != "" {
		req.SetHeader("Priority", strconv.Itoa(msg.Priority.Level()))
	}
	if msg.Delay != "" {
		if ValidDelay(msg.Delay) {
			req.SetHeader("X-Delay", msg.Delay)
		} else {
			log.Warn().Str("delay", msg.Delay).Msg("ignoring unsupported ntfy delay")
		}
	}

	start := time.Now()
	res, err := req.Post("/" + msg.Topic)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return fmt.Errorf("ntfy: %w", err)
		}
		return fmt.Errorf("%w: ntfy: %v", domain.ErrNotificationTransient, err)
	}
	log.Debug().Int("status", res.StatusCode()).Dur("took", time.Since(start)).Msg("ntfy responded")

	switch code := res.StatusCode(); {
	case res.IsSuccess():
		return nil
	case code >= 500:
		return fmt.Errorf("%w: ntfy http %d: %s", domain.ErrNotificationTransient, code, logging.Preview(res.String(), 200))
	default:
		return fmt.Errorf("%w: ntfy http %d: %s", domain.ErrNotificationRejected, code, logging.Preview(res.String(), 200))
	}
}

// ValidDelay reports whether d is a delay ntfy accepts: "30m", "2h", "1d",
// a unix timestamp, or a natural time such as "tomorrow, 10am".
func ValidDelay(d string) bool {
	d = strings.TrimSpace(d)
	if d == "" {
		return false
	}
	return durationDelayRe.MatchString(d) || unixDelayRe.MatchString(d) || naturalDelayRe.MatchString(d)
}

func headerSafe(s string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(s)
}
