package async

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolRunsEveryJob(t *testing.T) {
	p := NewPool(nil, WithWorkers(3), WithQueueSize(1))
	var n atomic.Int32
	for i := 0; i < 20; i++ {
		require.NoError(t, p.Enqueue(context.Background(), Job{
			Name: "count",
			Run: func(context.Context) error {
				n.Add(1)
				return nil
			},
		}))
	}
	p.Shutdown(context.Background())
	assert.Equal(t, int32(20), n.Load())
}

func TestPoolFailedJobDoesNotStopWorkers(t *testing.T) {
	p := NewPool(nil, WithWorkers(1))
	var ran atomic.Bool
	require.NoError(t, p.Enqueue(context.Background(), Job{Name: "bad", Run: func(context.Context) error { return errors.New("boom") }}))
	require.NoError(t, p.Enqueue(context.Background(), Job{Name: "good", Run: func(context.Context) error { ran.Store(true); return nil }}))
	p.Shutdown(context.Background())
	assert.True(t, ran.Load())
}

func TestPoolJobTimeout(t *testing.T) {
	p := NewPool(nil, WithWorkers(1), WithJobTimeout(10*time.Millisecond))
	errCh := make(chan error, 1)
	require.NoError(t, p.Enqueue(context.Background(), Job{Name: "slow", Run: func(ctx context.Context) error {
		<-ctx.Done()
		errCh <- ctx.Err()
		return ctx.Err()
	}}))
	p.Shutdown(context.Background())
	assert.ErrorIs(t, <-errCh, context.DeadlineExceeded)
}

func TestEnqueueAfterShutdown(t *testing.T) {
	p := NewPool(nil)
	p.Shutdown(context.Background())
	p.Shutdown(context.Background())
	err := p.Enqueue(context.Background(), Job{Name: "late", Run: func(context.Context) error { return nil }})
	assert.ErrorIs(t, err, ErrQueueClosed)
}

type traceKey struct{}

func TestJobSeesEnqueueContextValues(t *testing.T) {
	p := NewPool(nil, WithWorkers(1), WithJobTimeout(time.Second))
	ctx, cancel := context.WithCancel(context.WithValue(context.Background(), traceKey{}, "batch-1"))

	release := make(chan struct{})
	type seen struct {
		trace string
		err   error
	}
	got := make(chan seen, 1)
	require.NoError(t, p.Enqueue(ctx, Job{Name: "trace", Run: func(jobCtx context.Context) error {
		<-release
		v, _ := jobCtx.Value(traceKey{}).(string)
		_, hasDeadline := jobCtx.Deadline()
		assert.True(t, hasDeadline)
		got <- seen{trace: v, err: jobCtx.Err()}
		return nil
	}}))

	cancel()
	close(release)
	p.Shutdown(context.Background())

	s := <-got
	assert.Equal(t, "batch-1", s.trace)
	assert.NoError(t, s.err, "cancelling the enqueue context does not cancel an accepted job")
}
