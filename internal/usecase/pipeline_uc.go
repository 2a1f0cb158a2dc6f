package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"fermi-notifier/internal/config"
	"fermi-notifier/internal/domain"
	"fermi-notifier/internal/domain/model"
	"fermi-notifier/internal/infra/logging"
)

// Compile-time check
var _ PipelineUseCase = (*pipelineUC)(nil)

// Submitter hands a task to a background runner (see infra/worker.Pool).
type Submitter interface {
	Submit(task func(ctx context.Context) error) error
}

// RunObserver receives run lifecycle events, e.g. for metrics. RunStarted and
// RunFinished are always paired; Busy is reported on its own.
type RunObserver interface {
	RunStarted()
	RunFinished(res *model.RunResult)
	Busy()
}

type noopObserver struct{}

func (noopObserver) RunStarted()                  {}
func (noopObserver) RunFinished(*model.RunResult) {}
func (noopObserver) Busy()                        {}

// PipelineStatus is a snapshot for the status endpoint.
type PipelineStatus struct {
	State   model.RunState   `json:"state"`
	RunID   string           `json:"run_id,omitempty"`
	LastRun *model.RunResult `json:"last_run,omitempty"`
}

type PipelineUseCase interface {
	// Run executes one pipeline run synchronously. It returns domain.ErrBusy
	// with a nil result when another run holds the guard; otherwise the result
	// is always set and the error is the failure cause, if any.
	Run(ctx context.Context) (*model.RunResult, error)
	// RunAsync takes the guard, hands the run to s and returns its ID.
	RunAsync(ctx context.Context, s Submitter) (string, error)
	Status() PipelineStatus
}

type pipelineUC struct {
	prompts *PromptBuilder
	gen     GenerationUseCase
	notif   NotificationUseCase
	cfg     config.PipelineConfig
	obs     RunObserver
	sleep   Sleeper
	now     func() time.Time
	log     *zerolog.Logger

	busy atomic.Bool

	mu      sync.RWMutex
	state   model.RunState
	current string
	last    *model.RunResult
}

type PipelineOption func(*pipelineUC)

func WithObserver(o RunObserver) PipelineOption {
	return func(p *pipelineUC) {
		if o != nil {
			p.obs = o
		}
	}
}

// WithSleeper replaces the backoff sleep, mainly for tests.
func WithSleeper(s Sleeper) PipelineOption {
	return func(p *pipelineUC) {
		if s != nil {
			p.sleep = s
		}
	}
}

func WithClock(now func() time.Time) PipelineOption {
	return func(p *pipelineUC) {
		if now != nil {
			p.now = now
		}
	}
}

func NewPipelineUseCase(
	prompts *PromptBuilder,
	gen GenerationUseCase,
	notif NotificationUseCase,
	cfg config.PipelineConfig,
	logger *zerolog.Logger,
	opts ...PipelineOption,
) *pipelineUC {
	compLog := logger.With().Str("component", "Pipeline").Logger()
	p := &pipelineUC{
		prompts: prompts,
		gen:     gen,
		notif:   notif,
		cfg:     cfg,
		obs:     noopObserver{},
		sleep:   sleepCtx,
		now:     time.Now,
		log:     &compLog,
		state:   model.RunStateIdle,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

func (p *pipelineUC) Run(ctx context.Context) (*model.RunResult, error) {
	runID := model.NewID()
	if !p.acquire(runID) {
		return nil, domain.ErrBusy
	}
	defer p.release()
	return p.execute(ctx, runID)
}

func (p *pipelineUC) RunAsync(ctx context.Context, s Submitter) (string, error) {
	runID := model.NewID()
	if !p.acquire(runID) {
		return "", domain.ErrBusy
	}
	traceID := logging.TraceID(ctx)
	err := s.Submit(func(taskCtx context.Context) error {
		defer p.release()
		if traceID != "" {
			taskCtx = logging.WithTraceID(taskCtx, traceID)
		}
		_, err := p.execute(taskCtx, runID)
		return err
	})
	if err != nil {
		p.release()
		return "", fmt.Errorf("submit run: %w", err)
	}
	return runID, nil
}

func (p *pipelineUC) Status() PipelineStatus {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return PipelineStatus{State: p.state, RunID: p.current, LastRun: p.last}
}

func (p *pipelineUC) acquire(runID string) bool {
	if !p.busy.CompareAndSwap(false, true) {
		p.obs.Busy()
		p.log.Info().Str("rejected_run_id", runID).Msg("trigger rejected: run in progress")
		return false
	}
	p.mu.Lock()
	p.current = runID
	p.mu.Unlock()
	return true
}

func (p *pipelineUC) release() {
	p.mu.Lock()
	p.state = model.RunStateIdle
	p.current = ""
	p.mu.Unlock()
	p.busy.Store(false)
}

func (p *pipelineUC) setState(s model.RunState) {
	p.mu.Lock()
	p.state = s
	p.mu.Unlock()
}

// execute walks idle -> generating -> generated -> publishing -> done, or to
// failed at any stage. The caller holds the busy guard.
func (p *pipelineUC) execute(parent context.Context, runID string) (*model.RunResult, error) {
	// Async runs may wait in the pool queue; they count as started only from here.
	p.obs.RunStarted()
	start := p.now()
	res := &model.RunResult{RunID: runID, StartedAt: start}

	ctx := logging.WithRunID(parent, runID)
	log := logging.With(ctx, p.log)
	if p.cfg.TotalTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.TotalTimeout)
		defer cancel()
	}
	log.Info().Dur("total_timeout", p.cfg.TotalTimeout).Msg("pipeline run started")

	// Generating
	p.setState(model.RunStateGenerating)
	req := p.prompts.Build(runID, start)
	log.Debug().Str("domain", req.Domain).Str("difficulty", string(req.Difficulty)).Msg("generation request built")

	var problem *model.EstimationProblem
	attempts, err := retry(ctx, p.cfg.GenerateRetry, p.sleep,
		func(attempt int, delay time.Duration, err error) {
			log.Warn().Err(err).Int("attempt", attempt).Dur("backoff", delay).Msg("generation failed, retrying")
		},
		func(int) error {
			var gerr error
			problem, gerr = p.gen.Generate(ctx, req, p.cfg.GenerateTimeout)
			return gerr
		})
	res.GenerationAttempts = attempts
	if err != nil {
		return p.finish(log, res, model.RunStateGenerating, err)
	}

	// Generated
	p.setState(model.RunStateGenerated)
	res.ProblemID = problem.ID
	log.Info().
		Str("problem_id", problem.ID).
		Str("question", logging.Preview(problem.Question, 120)).
		Str("answer", problem.Answer).
		Float64("estimate", problem.Estimate).
		Msg("problem generated")
	if err := ctx.Err(); err != nil {
		return p.finish(log, res, model.RunStateGenerated, runEnded(err, nil))
	}

	// Publishing: the message is built once and the loop stops at the first success.
	p.setState(model.RunStatePublishing)
	msg := p.notif.BuildMessage(problem)
	attempts, err = retry(ctx, p.cfg.PublishRetry, p.sleep,
		func(attempt int, delay time.Duration, err error) {
			log.Warn().Err(err).Int("attempt", attempt).Dur("backoff", delay).Msg("publish failed, retrying")
		},
		func(int) error {
			return p.notif.Publish(ctx, msg, p.cfg.PublishTimeout)
		})
	res.PublishAttempts = attempts
	if err != nil {
		return p.finish(log, res, model.RunStatePublishing, err)
	}

	return p.finish(log, res, model.RunStateDone, nil)
}

func (p *pipelineUC) finish(log *zerolog.Logger, res *model.RunResult, stage model.RunState, err error) (*model.RunResult, error) {
	res.Latency = p.now().Sub(res.StartedAt)
	if err == nil {
		res.Status = model.RunStatusDone
		p.setState(model.RunStateDone)
	} else {
		if errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, domain.ErrTimeout) {
			err = fmt.Errorf("%w: %v", domain.ErrTimeout, err)
		}
		res.Status = model.RunStatusFailed
		res.FailedStage = stage
		res.Reason = domain.Reason(err)
		res.Error = err.Error()
		p.setState(model.RunStateFailed)
	}

	p.mu.Lock()
	cp := *res
	p.last = &cp
	p.mu.Unlock()
	p.obs.RunFinished(res)

	ev := log.Info()
	if err != nil {
		ev = log.Error().Err(err).Str("failed_stage", string(stage)).Str("reason", res.Reason)
	}
	ev.Str("status", string(res.Status)).
		Int("generation_attempts", res.GenerationAttempts).
		Int("publish_attempts", res.PublishAttempts).
		Dur("latency", res.Latency).
		Msg("pipeline run finished")
	return res, err
}
