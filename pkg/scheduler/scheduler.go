package scheduler

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sort"
	"strings"
	"sync"
	"time"

	"TradePilot/pkg/logger"
)

var (
	ErrDuplicateTask = errors.New("scheduler: task already registered")
	ErrStopped       = errors.New("scheduler: stopped")
	// ErrFatal marks a task error that should bring the owner down.
	ErrFatal = errors.New("scheduler: fatal")
)

// TaskFunc is one iteration of a periodic task.
type TaskFunc func(ctx context.Context) error

// TaskStats describes the history of one task.
type TaskStats struct {
	Name         string        `json:"name"`
	Interval     time.Duration `json:"interval"`
	Runs         int64         `json:"runs"`
	Failures     int64         `json:"failures"`
	Running      bool          `json:"running"`
	LastDuration time.Duration `json:"last_duration"`
	LastRun      time.Time     `json:"last_run"`
	LastError    string        `json:"last_error,omitempty"`
}

// Recorder receives iteration timings.
type Recorder interface {
	ObserveTask(name string, elapsed time.Duration, err error)
}

// Scheduler runs named tasks on independent fixed intervals. Iterations of
// one task never overlap; an overrun delays the next iteration.
type Scheduler struct {
	logger   *logger.Logger
	recorder Recorder
	onFatal  func(name string, err error)

	mu      sync.Mutex
	tasks   map[string]*task
	ctx     context.Context
	cancel  context.CancelFunc
	stopped bool
	wg      sync.WaitGroup
}

type task struct {
	name     string
	interval time.Duration
	body     TaskFunc
	done     chan struct{}

	mu    sync.Mutex
	stats TaskStats
}

type Option func(*Scheduler)

// WithRecorder sets the iteration timing recorder.
func WithRecorder(r Recorder) Option {
	return func(s *Scheduler) {
		s.recorder = r
	}
}

// WithFatalHandler sets the hook invoked when a task returns an error wrapping ErrFatal.
func WithFatalHandler(fn func(name string, err error)) Option {
	return func(s *Scheduler) {
		s.onFatal = fn
	}
}

func New(lgr *logger.Logger, opts ...Option) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		logger: lgr,
		tasks:  make(map[string]*task),
		ctx:    ctx,
		cancel: cancel,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Schedule registers body under name and starts it right away. The first
// iteration runs immediately; each following one starts interval after the
// previous one started, or as soon as it finished if it overran.
func (s *Scheduler) Schedule(name string, interval time.Duration, body TaskFunc) error {
	if interval <= 0 {
		return fmt.Errorf("schedule %s: interval must be positive", name)
	}
	if body == nil {
		return fmt.Errorf("schedule %s: nil body", name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return ErrStopped
	}
	if _, exists := s.tasks[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateTask, name)
	}

	t := &task{
		name:     name,
		interval: interval,
		body:     body,
		done:     make(chan struct{}),
		stats:    TaskStats{Name: name, Interval: interval},
	}
	s.tasks[name] = t

	s.wg.Add(1)
	go s.loop(t)

	s.logger.Info("task scheduled",
		logger.String("task", name),
		logger.Duration("interval_ms", interval))
	return nil
}

func (s *Scheduler) loop(t *task) {
	defer s.wg.Done()
	defer close(t.done)

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-timer.C:
		}

		start := time.Now()
		err := s.runOnce(t)
		elapsed := time.Since(start)

		t.record(start, elapsed, err)
		if s.recorder != nil {
			s.recorder.ObserveTask(t.name, elapsed, err)
		}

		if err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Error("task iteration failed",
				logger.String("task", t.name),
				logger.Duration("elapsed_ms", elapsed),
				logger.Error(err))
			if errors.Is(err, ErrFatal) && s.onFatal != nil {
				go s.onFatal(t.name, err)
			}
		}

		wait := t.interval - elapsed
		if wait < 0 {
			s.logger.Warn("task overran its interval",
				logger.String("task", t.name),
				logger.Duration("elapsed_ms", elapsed),
				logger.Duration("interval_ms", t.interval))
			wait = 0
		}
		timer.Reset(wait)
	}
}

func (s *Scheduler) runOnce(t *task) (err error) {
	t.mu.Lock()
	t.stats.Running = true
	t.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v\n%s", r, debug.Stack())
		}
	}()
	return t.body(s.ctx)
}

func (t *task) record(start time.Time, elapsed time.Duration, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.stats.Running = false
	t.stats.Runs++
	t.stats.LastRun = start
	t.stats.LastDuration = elapsed
	if err != nil {
		t.stats.Failures++
		t.stats.LastError = err.Error()
	} else {
		t.stats.LastError = ""
	}
}

// Stop cancels every task and waits for in-progress iterations until ctx
// expires. Tasks still running at the deadline are named in the error.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.stopped = true
	s.cancel()
	tasks := make([]*task, 0, len(s.tasks))
	for _, t := range s.tasks {
		tasks = append(tasks, t)
	}
	s.mu.Unlock()

	doneCh := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(doneCh)
	}()

	select {
	case <-doneCh:
		s.logger.Info("scheduler stopped gracefully", logger.Int("tasks", len(tasks)))
		return nil
	case <-ctx.Done():
	}

	var pending []string
	for _, t := range tasks {
		select {
		case <-t.done:
		default:
			pending = append(pending, t.name)
		}
	}
	sort.Strings(pending)
	s.logger.Warn("timeout waiting for scheduled tasks",
		logger.Strings("tasks", pending),
		logger.Error(ctx.Err()))
	return fmt.Errorf("tasks still running [%s]: %w", strings.Join(pending, ", "), ctx.Err())
}

// Stats returns a snapshot of every task sorted by name.
func (s *Scheduler) Stats() []TaskStats {
	s.mu.Lock()
	tasks := make([]*task, 0, len(s.tasks))
	for _, t := range s.tasks {
		tasks = append(tasks, t)
	}
	s.mu.Unlock()

	out := make([]TaskStats, 0, len(tasks))
	for _, t := range tasks {
		t.mu.Lock()
		out = append(out, t.stats)
		t.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Tasks returns the registered task names.
func (s *Scheduler) Tasks() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, 0, len(s.tasks))
	for name := range s.tasks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
