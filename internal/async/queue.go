// Package async runs submitted jobs on a fixed set of workers.
package async

import (
	"context"
	"errors"
	"time"
)

// ErrQueueClosed is returned by Enqueue after Shutdown.
var ErrQueueClosed = errors.New("queue is shutting down")

// Job is one unit of work. Run receives the enqueuing context's values,
// detached from its cancellation and bounded by the queue's per-job timeout.
type Job struct {
	Name        string
	Run         func(ctx context.Context) error
	SubmittedAt time.Time

	ctx context.Context
}

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Shutdown(ctx context.Context)
}
