package queue

import (
	"errors"
	"time"
)

var (
	ErrQueueFull  = errors.New("queue: full")
	ErrNotRunning = errors.New("queue: not running")
)

// QueueConfig contains the configuration for the pool.
type QueueConfig struct {
	Workers    int           // number of workers
	QueueSize  int           // pending jobs beyond the running ones
	JobTimeout time.Duration // per-job deadline, 0 disables
}

// Observer receives job outcomes. All methods may be called concurrently.
type Observer interface {
	JobDropped(name string)
	JobFinished(name string, elapsed time.Duration, err error)
}

type nopObserver struct{}

func (nopObserver) JobDropped(string)                        {}
func (nopObserver) JobFinished(string, time.Duration, error) {}
