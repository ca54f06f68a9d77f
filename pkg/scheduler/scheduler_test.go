package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TradePilot/pkg/logger"
)

func stopWithin(t *testing.T, s *Scheduler, d time.Duration) error {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	return s.Stop(ctx)
}

func TestSchedule_RunsImmediatelyAndRepeats(t *testing.T) {
	s := New(logger.Nop())

	var runs atomic.Int32
	require.NoError(t, s.Schedule("tick", 10*time.Millisecond, func(context.Context) error {
		runs.Add(1)
		return nil
	}))

	require.Eventually(t, func() bool { return runs.Load() >= 3 }, time.Second, 5*time.Millisecond)
	require.NoError(t, stopWithin(t, s, time.Second))

	stats := s.Stats()
	require.Len(t, stats, 1)
	assert.Equal(t, "tick", stats[0].Name)
	assert.GreaterOrEqual(t, stats[0].Runs, int64(3))
}

func TestSchedule_RejectsDuplicateAndBadInterval(t *testing.T) {
	s := New(logger.Nop())
	defer func() { _ = stopWithin(t, s, time.Second) }()

	noop := func(context.Context) error { return nil }
	require.NoError(t, s.Schedule("a", time.Hour, noop))

	err := s.Schedule("a", time.Hour, noop)
	assert.ErrorIs(t, err, ErrDuplicateTask)

	assert.Error(t, s.Schedule("b", 0, noop))
	assert.Equal(t, []string{"a"}, s.Tasks())
}

func TestSchedule_IterationsNeverOverlap(t *testing.T) {
	s := New(logger.Nop())

	var active, maxActive, runs atomic.Int32
	require.NoError(t, s.Schedule("slow", time.Millisecond, func(context.Context) error {
		n := active.Add(1)
		for {
			m := maxActive.Load()
			if n <= m || maxActive.CompareAndSwap(m, n) {
				break
			}
		}
		time.Sleep(15 * time.Millisecond)
		active.Add(-1)
		runs.Add(1)
		return nil
	}))

	require.Eventually(t, func() bool { return runs.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, stopWithin(t, s, time.Second))
	assert.Equal(t, int32(1), maxActive.Load())
}

func TestSchedule_FailingTaskDoesNotStopOthers(t *testing.T) {
	s := New(logger.Nop())

	var healthy atomic.Int32
	require.NoError(t, s.Schedule("panics", 5*time.Millisecond, func(context.Context) error {
		panic("boom")
	}))
	require.NoError(t, s.Schedule("errors", 5*time.Millisecond, func(context.Context) error {
		return errors.New("upstream unavailable")
	}))
	require.NoError(t, s.Schedule("healthy", 5*time.Millisecond, func(context.Context) error {
		healthy.Add(1)
		return nil
	}))

	require.Eventually(t, func() bool { return healthy.Load() >= 3 }, time.Second, 5*time.Millisecond)
	require.NoError(t, stopWithin(t, s, time.Second))

	byName := map[string]TaskStats{}
	for _, st := range s.Stats() {
		byName[st.Name] = st
	}
	assert.GreaterOrEqual(t, byName["panics"].Runs, int64(1))
	assert.Equal(t, byName["panics"].Runs, byName["panics"].Failures)
	assert.Contains(t, byName["panics"].LastError, "panic: boom")
	assert.Equal(t, "upstream unavailable", byName["errors"].LastError)
	assert.Zero(t, byName["healthy"].Failures)
}

func TestSchedule_SlowTaskDoesNotBlockFastTask(t *testing.T) {
	s := New(logger.Nop())

	release := make(chan struct{})
	var fast atomic.Int32
	require.NoError(t, s.Schedule("stuck", time.Millisecond, func(ctx context.Context) error {
		select {
		case <-release:
		case <-ctx.Done():
		}
		return nil
	}))
	require.NoError(t, s.Schedule("fast", 5*time.Millisecond, func(context.Context) error {
		fast.Add(1)
		return nil
	}))

	require.Eventually(t, func() bool { return fast.Load() >= 5 }, time.Second, 5*time.Millisecond)
	close(release)
	require.NoError(t, stopWithin(t, s, time.Second))
}

func TestStop_IsBoundedAndNamesStuckTasks(t *testing.T) {
	s := New(logger.Nop())

	started := make(chan struct{})
	release := make(chan struct{})
	defer close(release)
	var once sync.Once
	require.NoError(t, s.Schedule("ignores_cancel", time.Hour, func(context.Context) error {
		once.Do(func() { close(started) })
		<-release
		return nil
	}))
	<-started

	begin := time.Now()
	err := stopWithin(t, s, 30*time.Millisecond)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Contains(t, err.Error(), "ignores_cancel")
	assert.Less(t, time.Since(begin), 500*time.Millisecond)

	assert.ErrorIs(t, s.Schedule("late", time.Second, func(context.Context) error { return nil }), ErrStopped)
}

func TestStop_CancelsContext(t *testing.T) {
	s := New(logger.Nop())

	started := make(chan struct{})
	var once sync.Once
	require.NoError(t, s.Schedule("waits", time.Hour, func(ctx context.Context) error {
		once.Do(func() { close(started) })
		<-ctx.Done()
		return ctx.Err()
	}))
	<-started

	require.NoError(t, stopWithin(t, s, time.Second))
}

func TestSchedule_FatalHook(t *testing.T) {
	fatal := make(chan string, 1)
	s := New(logger.Nop(), WithFatalHandler(func(name string, err error) {
		select {
		case fatal <- fmt.Sprintf("%s: %v", name, err):
		default:
		}
	}))
	defer func() { _ = stopWithin(t, s, time.Second) }()

	require.NoError(t, s.Schedule("doomed", time.Hour, func(context.Context) error {
		return fmt.Errorf("loop escaped: %w", ErrFatal)
	}))

	select {
	case msg := <-fatal:
		assert.Contains(t, msg, "doomed")
	case <-time.After(time.Second):
		t.Fatal("fatal hook not invoked")
	}
}

type recordingRecorder struct {
	mu    sync.Mutex
	names map[string]int
}

func (r *recordingRecorder) ObserveTask(name string, _ time.Duration, _ error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.names[name]++
}

func (r *recordingRecorder) count(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.names[name]
}

func TestSchedule_RecorderObservesIterations(t *testing.T) {
	rec := &recordingRecorder{names: map[string]int{}}
	s := New(logger.Nop(), WithRecorder(rec))

	require.NoError(t, s.Schedule("observed", 5*time.Millisecond, func(context.Context) error { return nil }))
	require.Eventually(t, func() bool { return rec.count("observed") >= 2 }, time.Second, 5*time.Millisecond)
	require.NoError(t, stopWithin(t, s, time.Second))
}
