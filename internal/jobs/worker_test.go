package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorker_ShutdownDrainsQueue(t *testing.T) {
	w := NewWorker(2)

	var ran atomic.Int32
	for i := 0; i < 20; i++ {
		w.Enqueue(func(ctx context.Context) error {
			ran.Add(1)
			return nil
		})
	}
	w.Shutdown()

	assert.Equal(t, int32(20), ran.Load())
	stats := w.GetStats()
	assert.Equal(t, int64(20), stats.CompletedJobs)
	assert.Zero(t, stats.ActiveJobs)
}

func TestWorker_CountsFailuresAndPanics(t *testing.T) {
	w := NewWorker(1)
	w.Enqueue(func(ctx context.Context) error { return errors.New("store down") })
	w.Enqueue(func(ctx context.Context) error { panic("bad job") })
	w.Enqueue(func(ctx context.Context) error { return nil })
	w.Shutdown()

	stats := w.GetStats()
	assert.Equal(t, int64(3), stats.CompletedJobs)
	assert.Equal(t, int64(2), stats.FailedJobs)
}

func TestWorker_ScheduleEvery(t *testing.T) {
	w := NewWorker(1)

	ticks := make(chan struct{}, 10)
	w.ScheduleEvery(5*time.Millisecond, func(ctx context.Context) error {
		select {
		case ticks <- struct{}{}:
		default:
		}
		return nil
	})

	for i := 0; i < 2; i++ {
		select {
		case <-ticks:
		case <-time.After(2 * time.Second):
			require.FailNow(t, "scheduled job did not run")
		}
	}
	w.Shutdown()

	require.Error(t, w.Context().Err())
}

func TestWorker_EnqueueAsync(t *testing.T) {
	w := NewWorker(1)

	var ran atomic.Int32
	for i := 0; i < 5; i++ {
		w.EnqueueAsync(func(ctx context.Context) error {
			ran.Add(1)
			return nil
		})
	}
	w.Shutdown()
	assert.Equal(t, int32(5), ran.Load())
}
