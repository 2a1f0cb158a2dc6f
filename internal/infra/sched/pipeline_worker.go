package sched

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"fermi-notifier/internal/domain"
	"fermi-notifier/internal/domain/model"
)

// Runner is the part of the pipeline the schedule needs.
type Runner interface {
	Run(ctx context.Context) (*model.RunResult, error)
}

// PipelineWorker triggers a pipeline run on every tick.
type PipelineWorker struct {
	interval   time.Duration
	runOnStart bool
	runner     Runner
	log        *zerolog.Logger
}

func NewPipelineWorker(interval time.Duration, runOnStart bool, runner Runner, logger *zerolog.Logger) *PipelineWorker {
	compLog := logger.With().Str("component", "PipelineWorker").Logger()
	return &PipelineWorker{
		interval:   interval,
		runOnStart: runOnStart,
		runner:     runner,
		log:        &compLog,
	}
}

// Run blocks until ctx is done.
func (w *PipelineWorker) Run(ctx context.Context) error {
	if w.interval <= 0 {
		return errors.New("schedule interval must be positive")
	}
	w.log.Info().Dur("interval", w.interval).Bool("run_on_start", w.runOnStart).Msg("Starting pipeline schedule")
	if w.runOnStart {
		w.tick(ctx)
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping pipeline schedule")
			return ctx.Err()
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

func (w *PipelineWorker) tick(ctx context.Context) {
	res, err := w.runner.Run(ctx)
	switch {
	case errors.Is(err, domain.ErrBusy):
		w.log.Info().Msg("scheduled run skipped: a run is already in progress")
	case err != nil:
		// the pipeline already logged the details
		w.log.Warn().Str("reason", domain.Reason(err)).Msg("scheduled run failed")
	case res != nil:
		w.log.Debug().Str("run_id", res.RunID).Msg("scheduled run done")
	}
}
