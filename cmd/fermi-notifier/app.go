package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"fermi-notifier/internal/config"
	"fermi-notifier/internal/domain/ports/adapter"
	aiAdapters "fermi-notifier/internal/infra/adapters/ai"
	notifyAdapters "fermi-notifier/internal/infra/adapters/notify"
	"fermi-notifier/internal/infra/api"
	"fermi-notifier/internal/infra/logging"
	"fermi-notifier/internal/infra/metrics"
	"fermi-notifier/internal/infra/sched"
	"fermi-notifier/internal/infra/worker"
	"fermi-notifier/internal/usecase"
)

type app struct {
	cfg      *config.Config
	log      *zerolog.Logger
	pipeline usecase.PipelineUseCase
}

func buildApp(ctx context.Context, dry bool) (*app, error) {
	cfg, err := config.LoadConfig(cfgPath, devMode)
	if err != nil {
		return nil, err
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	logger.Info().
		Str("version", version).
		Str("provider", cfg.AI.Provider).
		Str("model", cfg.AI.Model).
		Str("gemini_key", logging.Redact(cfg.AI.GeminiKey, cfg.Runtime.Dev)).
		Str("ntfy_url", cfg.Notify.BaseURL).
		Str("topic", cfg.Notify.Topic).
		Dur("total_timeout", cfg.Pipeline.TotalTimeout).
		Msg("configuration loaded")

	// ---- Adapters ----
	gen, err := aiAdapters.New(ctx, cfg.AI)
	if err != nil {
		return nil, err
	}
	var notifier adapter.Notifier = notifyAdapters.NewNtfyAdapter(cfg.Notify.BaseURL, cfg.Notify.Token, logger)
	if dry {
		notifier = notifyAdapters.NewLogNotifier(logger)
	}
	notifier = notifyAdapters.NewInstrumented(notifier)

	// ---- Use cases ----
	prompts, err := usecase.NewPromptBuilder(cfg.Prompt, cfg.AI)
	if err != nil {
		return nil, err
	}
	notifUC, err := usecase.NewNotificationUseCase(notifier, cfg.Notify, logger)
	if err != nil {
		return nil, err
	}
	pipeline := usecase.NewPipelineUseCase(
		prompts,
		usecase.NewGenerationUseCase(gen, logger),
		notifUC,
		cfg.Pipeline,
		logger,
		usecase.WithObserver(metrics.PipelineObserver{}),
	)
	return &app{cfg: cfg, log: logger, pipeline: pipeline}, nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(ctx, false)
	if err != nil {
		return err
	}
	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit)

	g, gctx := errgroup.WithContext(ctx)

	// Async triggers run one at a time; the pipeline guard rejects the rest.
	pool := worker.NewPool(1, 1, a.log)
	pool.Start(gctx)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.Server.Port),
		Handler:           api.NewServer(a.pipeline, pool, a.log).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g.Go(func() error {
		a.log.Info().Str("addr", srv.Addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		a.log.Info().Msg("Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		pool.Stop()
		return err
	})
	if a.cfg.Schedule.Interval > 0 {
		w := sched.NewPipelineWorker(a.cfg.Schedule.Interval, a.cfg.Schedule.RunOnStart, a.pipeline, a.log)
		g.Go(func() error {
			if err := w.Run(gctx); !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	err = g.Wait()
	if err != nil {
		a.log.Error().Err(err).Msg("server stopped with error")
		return err
	}
	a.log.Info().Msg("Shutdown complete")
	return nil
}

func runOnce(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(ctx, dryRun)
	if err != nil {
		return err
	}
	res, runErr := a.pipeline.Run(ctx)
	if res != nil {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			return err
		}
	}
	return runErr
}
