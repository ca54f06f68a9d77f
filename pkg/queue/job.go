package queue

import "context"

// Job defines a unit of detached work.
type Job interface {
	// Name returns the identifier used in logs and metrics.
	Name() string

	// Handle runs the job. ctx belongs to the pool, not to the submitter.
	Handle(ctx context.Context) error
}

// JobFunc adapts a function to Job.
type JobFunc struct {
	JobName string
	Fn      func(ctx context.Context) error
}

func (j JobFunc) Name() string { return j.JobName }

func (j JobFunc) Handle(ctx context.Context) error { return j.Fn(ctx) }
