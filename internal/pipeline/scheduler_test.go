package pipeline

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingRunner struct {
	calls  atomic.Int32
	failOn int32
	stopAt int32
	cancel context.CancelFunc
}

func (r *countingRunner) RunCycle(context.Context) error {
	n := r.calls.Add(1)
	if n == r.stopAt {
		r.cancel()
	}
	if n == r.failOn {
		return errors.New("source unavailable")
	}
	return nil
}

func TestSchedulerContinuesAfterFailure(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	runner := &countingRunner{failOn: 1, stopAt: 3, cancel: cancel}

	done := make(chan error, 1)
	go func() { done <- NewScheduler(runner, time.Millisecond).Run(ctx) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop after cancel")
	}
	assert.Equal(t, int32(3), runner.calls.Load())
}

func TestSchedulerStopsDuringWait(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	runner := &countingRunner{}

	done := make(chan error, 1)
	go func() { done <- NewScheduler(runner, time.Hour).Run(ctx) }()

	require.Eventually(t, func() bool { return runner.calls.Load() == 1 }, time.Second, time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop while waiting")
	}
	assert.Equal(t, int32(1), runner.calls.Load(), "cycles must not overlap or repeat before the interval")
}

func TestSchedulerRunOnce(t *testing.T) {
	runner := &countingRunner{failOn: 1}
	err := NewScheduler(runner, 0).RunOnce(context.Background())
	require.Error(t, err)
	assert.Equal(t, int32(1), runner.calls.Load())
}
