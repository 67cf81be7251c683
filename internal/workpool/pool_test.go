package workpool_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bdodson/shptrans/internal/workpool"
)

func TestStartWaitReturnsTaskError(t *testing.T) {
	want := errors.New("boom")
	task := workpool.Start(context.Background(), func(ctx context.Context) error {
		return want
	})
	assert.Equal(t, want, task.Wait())
}

func TestStartWaitSucceeds(t *testing.T) {
	task := workpool.Start(context.Background(), func(ctx context.Context) error {
		return nil
	})
	assert.NoError(t, task.Wait())
}

func TestCancelPropagatesToTaskContext(t *testing.T) {
	started := make(chan struct{})
	task := workpool.Start(context.Background(), func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	})

	<-started
	task.Cancel()

	err := task.Wait()
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParentCancellationPropagates(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	started := make(chan struct{})
	task := workpool.Start(ctx, func(taskCtx context.Context) error {
		close(started)
		<-taskCtx.Done()
		return taskCtx.Err()
	})

	<-started
	cancel()

	assert.ErrorIs(t, task.Wait(), context.Canceled)
}
