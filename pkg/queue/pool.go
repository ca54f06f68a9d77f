package queue

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"TradePilot/pkg/logger"
)

// Pool runs submitted jobs on a fixed number of workers with a bounded backlog.
// Submit never blocks: when the backlog is full the job is dropped.
type Pool struct {
	logger   *logger.Logger
	config   QueueConfig
	observer Observer

	jobs     chan Job
	wg       sync.WaitGroup
	mu       sync.RWMutex
	running  bool
	ctx      context.Context
	cancel   context.CancelFunc
	inFlight atomic.Int64
}

// PoolOption configures Pool.
type PoolOption func(*Pool)

// WithObserver sets the job outcome observer.
func WithObserver(o Observer) PoolOption {
	return func(p *Pool) {
		if o != nil {
			p.observer = o
		}
	}
}

// NewPool creates a stopped pool.
func NewPool(lgr *logger.Logger, config QueueConfig, opts ...PoolOption) *Pool {
	if config.Workers <= 0 {
		config.Workers = 1
	}
	if config.QueueSize < 0 {
		config.QueueSize = 0
	}
	p := &Pool{
		logger:   lgr,
		config:   config,
		observer: nopObserver{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start launches the workers.
func (p *Pool) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return fmt.Errorf("pool already running")
	}
	p.ctx, p.cancel = context.WithCancel(context.Background())
	p.jobs = make(chan Job, p.config.QueueSize)
	p.running = true

	for i := 0; i < p.config.Workers; i++ {
		p.wg.Add(1)
		go p.worker(p.jobs)
	}

	p.logger.Info("worker pool started",
		logger.Int("workers", p.config.Workers),
		logger.Int("queue_size", p.config.QueueSize))
	return nil
}

// Submit enqueues job without waiting. It returns ErrQueueFull when the
// backlog is at capacity and ErrNotRunning before Start or after Stop.
func (p *Pool) Submit(job Job) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if !p.running {
		return ErrNotRunning
	}

	select {
	case p.jobs <- job:
		return nil
	default:
		p.observer.JobDropped(job.Name())
		return ErrQueueFull
	}
}

// InFlight returns the number of jobs currently executing.
func (p *Pool) InFlight() int {
	return int(p.inFlight.Load())
}

// Pending returns the number of queued jobs not yet picked up.
func (p *Pool) Pending() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.jobs == nil {
		return 0
	}
	return len(p.jobs)
}

// Stop rejects new jobs, cancels the pool context and waits for workers
// until ctx expires. Queued jobs that were not started are discarded.
func (p *Pool) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = false
	p.cancel()
	close(p.jobs)
	p.mu.Unlock()

	doneCh := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(doneCh)
	}()

	select {
	case <-ctx.Done():
		p.logger.Warn("timeout waiting for pool workers",
			logger.Int("in_flight", p.InFlight()),
			logger.Error(ctx.Err()))
		return fmt.Errorf("timeout: %w", ctx.Err())
	case <-doneCh:
		p.logger.Info("worker pool stopped gracefully")
		return nil
	}
}

func (p *Pool) worker(jobs <-chan Job) {
	defer p.wg.Done()
	for job := range jobs {
		if p.ctx.Err() != nil {
			continue
		}
		p.run(job)
	}
}

func (p *Pool) run(job Job) {
	p.inFlight.Add(1)
	defer p.inFlight.Add(-1)

	ctx := p.ctx
	if p.config.JobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.config.JobTimeout)
		defer cancel()
	}

	start := time.Now()
	err := safeHandle(ctx, job)
	elapsed := time.Since(start)
	p.observer.JobFinished(job.Name(), elapsed, err)

	if err != nil {
		if errors.Is(err, context.Canceled) {
			p.logger.Warn("job cancelled",
				logger.String("job", job.Name()),
				logger.Duration("elapsed_ms", elapsed))
			return
		}
		p.logger.Error("job failed",
			logger.String("job", job.Name()),
			logger.Duration("elapsed_ms", elapsed),
			logger.Error(err))
	}
}

func safeHandle(ctx context.Context, job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v\n%s", r, debug.Stack())
		}
	}()
	return job.Handle(ctx)
}
