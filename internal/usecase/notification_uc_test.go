package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fermi-notifier/internal/config"
	"fermi-notifier/internal/domain"
	"fermi-notifier/internal/domain/model"
)

func sampleProblem() *model.EstimationProblem {
	return &model.EstimationProblem{
		ID:        "01J0000000000000000000000",
		Question:  "Estimate the number of stars visible to the naked eye from a dark site",
		Reasoning: "About 6000 stars, half above the horizon.",
		Answer:    "~2500-5000",
	}
}

func TestNotificationUseCase_BuildMessage(t *testing.T) {
	uc, err := NewNotificationUseCase(&stubNotifier{}, testNotifyConfig(), newTestLogger())
	require.NoError(t, err)

	msg := uc.BuildMessage(sampleProblem())
	assert.Equal(t, "fermi-daily", msg.Topic)
	assert.Equal(t, "Fermi Question", msg.Title)
	assert.Equal(t, "Estimate the number of stars visible to the naked eye from a dark site\n\nAnswer: ~2500-5000", msg.Body)
	assert.Equal(t, model.PriorityDefault, msg.Priority)
	assert.Equal(t, []string{"brain", "puzzle"}, msg.Tags)
	assert.Equal(t, msg, uc.BuildMessage(sampleProblem()), "message must be deterministic")
}

func TestNotificationUseCase_BuildMessageOptions(t *testing.T) {
	cfg := testNotifyConfig()
	cfg.IncludeReasoning = true
	cfg.Priority = "high"
	cfg.Delay = "10m"
	cfg.Title = strings.Repeat("é", 150)

	uc, err := NewNotificationUseCase(&stubNotifier{}, cfg, newTestLogger())
	require.NoError(t, err)

	msg := uc.BuildMessage(sampleProblem())
	assert.True(t, strings.HasSuffix(msg.Body, "\n\nReasoning: About 6000 stars, half above the horizon."))
	assert.Equal(t, model.PriorityHigh, msg.Priority)
	assert.Equal(t, "10m", msg.Delay)
	assert.Equal(t, 100, len([]rune(msg.Title)))
}

func TestNewNotificationUseCase_InvalidConfig(t *testing.T) {
	_, err := NewNotificationUseCase(&stubNotifier{}, config.NotifyConfig{}, newTestLogger())
	assert.ErrorIs(t, err, domain.ErrConfiguration)

	_, err = NewNotificationUseCase(&stubNotifier{}, config.NotifyConfig{Topic: "t", Priority: "loud"}, newTestLogger())
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestNotificationUseCase_Publish(t *testing.T) {
	ctx := context.Background()

	t.Run("success sends once", func(t *testing.T) {
		n := &stubNotifier{}
		uc, _ := NewNotificationUseCase(n, testNotifyConfig(), newTestLogger())
		require.NoError(t, uc.Publish(ctx, uc.BuildMessage(sampleProblem()), time.Second))
		assert.Len(t, n.Sent(), 1)
	})

	t.Run("rejection passes through", func(t *testing.T) {
		n := &stubNotifier{script: []error{fmt.Errorf("%w: http 403", domain.ErrNotificationRejected)}}
		uc, _ := NewNotificationUseCase(n, testNotifyConfig(), newTestLogger())
		err := uc.Publish(ctx, model.NotificationMessage{}, time.Second)
		assert.ErrorIs(t, err, domain.ErrNotificationRejected)
	})

	t.Run("attempt timeout is transient", func(t *testing.T) {
		uc, _ := NewNotificationUseCase(&stubNotifier{hang: true}, testNotifyConfig(), newTestLogger())
		err := uc.Publish(ctx, model.NotificationMessage{}, 10*time.Millisecond)
		assert.ErrorIs(t, err, domain.ErrNotificationTransient)
	})

	t.Run("unknown errors are transient", func(t *testing.T) {
		uc, _ := NewNotificationUseCase(&stubNotifier{script: []error{errors.New("eof")}}, testNotifyConfig(), newTestLogger())
		err := uc.Publish(ctx, model.NotificationMessage{}, time.Second)
		assert.ErrorIs(t, err, domain.ErrNotificationTransient)
	})
}
