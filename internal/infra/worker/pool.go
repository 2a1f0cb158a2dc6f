package worker

import (
	"context"
	"errors"
	"runtime/debug"
	"sync"

	"github.com/rs/zerolog"
)

// Task is the unit of work. It is an alias so plain funcs satisfy
// interfaces declared in terms of func(ctx context.Context) error.
type Task = func(ctx context.Context) error

var (
	ErrQueueFull = errors.New("worker queue full")
	ErrStopped   = errors.New("worker pool stopped")
)

// Pool runs submitted tasks on a fixed number of goroutines. Submit never
// blocks: a full queue is reported to the caller.
type Pool struct {
	wg   sync.WaitGroup
	jobs chan Task
	quit chan struct{}
	n    int
	log  *zerolog.Logger

	mu      sync.Mutex
	stopped bool
	ctx     context.Context
	cancel  context.CancelFunc
}

func NewPool(workers, queue int, logger *zerolog.Logger) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if queue <= 0 {
		queue = workers
	}
	compLog := logger.With().Str("component", "WorkerPool").Logger()
	return &Pool{jobs: make(chan Task, queue), quit: make(chan struct{}), n: workers, log: &compLog}
}

// Start launches the workers. Tasks receive a context derived from ctx that
// is cancelled by Stop.
func (p *Pool) Start(ctx context.Context) {
	p.mu.Lock()
	p.ctx, p.cancel = context.WithCancel(ctx)
	taskCtx := p.ctx
	p.mu.Unlock()

	for i := 0; i < p.n; i++ {
		p.wg.Add(1)
		go func(id int) {
			defer p.wg.Done()
			for {
				select {
				case <-p.quit:
					return
				case task := <-p.jobs:
					p.run(taskCtx, id, task)
				}
			}
		}(i)
	}
}

func (p *Pool) run(ctx context.Context, id int, task Task) {
	if task == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			p.log.Error().Int("worker", id).Interface("panic", r).Bytes("stack", debug.Stack()).Msg("task panicked")
		}
	}()
	if err := task(ctx); err != nil {
		p.log.Warn().Err(err).Int("worker", id).Msg("task error")
	}
}

// Stop cancels running tasks and waits for the workers to exit. Tasks still
// queued are run with the cancelled context so they can release what they hold.
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	cancel, ctx := p.cancel, p.ctx
	p.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	close(p.quit)
	p.wg.Wait()

	if ctx == nil {
		var c context.CancelFunc
		ctx, c = context.WithCancel(context.Background())
		c()
	}
	for {
		select {
		case task := <-p.jobs:
			p.run(ctx, -1, task)
		default:
			return
		}
	}
}

func (p *Pool) Submit(task Task) error {
	if task == nil {
		return errors.New("nil task")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return ErrStopped
	}
	select {
	case p.jobs <- task:
		return nil
	default:
		return ErrQueueFull
	}
}
