package queue

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TradePilot/pkg/logger"
)

type countingObserver struct {
	mu       sync.Mutex
	dropped  int
	finished int
	failed   int
}

func (o *countingObserver) JobDropped(string) {
	o.mu.Lock()
	o.dropped++
	o.mu.Unlock()
}

func (o *countingObserver) JobFinished(_ string, _ time.Duration, err error) {
	o.mu.Lock()
	o.finished++
	if err != nil {
		o.failed++
	}
	o.mu.Unlock()
}

func (o *countingObserver) snapshot() (int, int, int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.dropped, o.finished, o.failed
}

func TestPool_SubmitBeforeStart(t *testing.T) {
	p := NewPool(logger.Nop(), QueueConfig{Workers: 1, QueueSize: 1})
	err := p.Submit(JobFunc{JobName: "x", Fn: func(context.Context) error { return nil }})
	assert.ErrorIs(t, err, ErrNotRunning)
}

func TestPool_RunsJobs(t *testing.T) {
	obs := &countingObserver{}
	p := NewPool(logger.Nop(), QueueConfig{Workers: 2, QueueSize: 10}, WithObserver(obs))
	require.NoError(t, p.Start())

	var ran atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		require.NoError(t, p.Submit(JobFunc{JobName: "count", Fn: func(context.Context) error {
			defer wg.Done()
			ran.Add(1)
			return nil
		}}))
	}
	wg.Wait()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, p.Stop(ctx))

	assert.Equal(t, int32(5), ran.Load())
	_, finished, failed := obs.snapshot()
	assert.Equal(t, 5, finished)
	assert.Equal(t, 0, failed)
}

func TestPool_DropsWhenFull(t *testing.T) {
	obs := &countingObserver{}
	p := NewPool(logger.Nop(), QueueConfig{Workers: 1, QueueSize: 1}, WithObserver(obs))
	require.NoError(t, p.Start())

	release := make(chan struct{})
	started := make(chan struct{})
	blocking := JobFunc{JobName: "block", Fn: func(context.Context) error {
		close(started)
		<-release
		return nil
	}}
	require.NoError(t, p.Submit(blocking))
	<-started

	noop := JobFunc{JobName: "noop", Fn: func(context.Context) error { return nil }}
	require.NoError(t, p.Submit(noop))

	begin := time.Now()
	err := p.Submit(noop)
	assert.ErrorIs(t, err, ErrQueueFull)
	assert.Less(t, time.Since(begin), 50*time.Millisecond)
	assert.Equal(t, 1, p.InFlight())

	dropped, _, _ := obs.snapshot()
	assert.Equal(t, 1, dropped)

	close(release)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, p.Stop(ctx))
}

func TestPool_RecoversPanics(t *testing.T) {
	obs := &countingObserver{}
	p := NewPool(logger.Nop(), QueueConfig{Workers: 1, QueueSize: 4}, WithObserver(obs))
	require.NoError(t, p.Start())

	done := make(chan struct{})
	require.NoError(t, p.Submit(JobFunc{JobName: "panic", Fn: func(context.Context) error {
		panic("boom")
	}}))
	require.NoError(t, p.Submit(JobFunc{JobName: "after", Fn: func(context.Context) error {
		close(done)
		return nil
	}}))

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not survive panic")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, p.Stop(ctx))

	_, finished, failed := obs.snapshot()
	assert.Equal(t, 2, finished)
	assert.Equal(t, 1, failed)
}

func TestPool_StopIsBounded(t *testing.T) {
	p := NewPool(logger.Nop(), QueueConfig{Workers: 1, QueueSize: 1})
	require.NoError(t, p.Start())

	started := make(chan struct{})
	release := make(chan struct{})
	defer close(release)
	require.NoError(t, p.Submit(JobFunc{JobName: "stuck", Fn: func(context.Context) error {
		close(started)
		<-release
		return nil
	}}))
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	begin := time.Now()
	err := p.Stop(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Less(t, time.Since(begin), 500*time.Millisecond)

	assert.ErrorIs(t, p.Submit(JobFunc{JobName: "late", Fn: func(context.Context) error { return nil }}), ErrNotRunning)
}

func TestPool_JobContextCancelledOnStop(t *testing.T) {
	p := NewPool(logger.Nop(), QueueConfig{Workers: 1, QueueSize: 1})
	require.NoError(t, p.Start())

	started := make(chan struct{})
	var sawCancel atomic.Bool
	require.NoError(t, p.Submit(JobFunc{JobName: "ctx", Fn: func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		sawCancel.Store(true)
		return ctx.Err()
	}}))
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, p.Stop(ctx))
	assert.True(t, sawCancel.Load())
}
