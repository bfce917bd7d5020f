package exec

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskManagerCompletesSuccessfully(t *testing.T) {
	m := NewTaskManager(2, PolicyBlock)
	m.Start(context.Background())
	defer m.Stop()

	id, err := m.Submit(context.Background(), func(ctx context.Context) (interface{}, error) {
		return "done", nil
	})
	require.NoError(t, err)

	val, err := m.Result(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "done", val)

	info, ok := m.Info(id)
	require.True(t, ok)
	assert.Equal(t, TaskCompleted, info.State)
}

func TestTaskManagerRecordsFailure(t *testing.T) {
	m := NewTaskManager(1, PolicyBlock)
	m.Start(context.Background())
	defer m.Stop()

	wantErr := errors.New("boom")
	id, err := m.Submit(context.Background(), func(ctx context.Context) (interface{}, error) {
		return nil, wantErr
	})
	require.NoError(t, err)

	_, err = m.Result(context.Background(), id)
	assert.ErrorIs(t, err, wantErr)
}

func TestTaskManagerCancel(t *testing.T) {
	m := NewTaskManager(1, PolicyBlock)
	m.Start(context.Background())
	defer m.Stop()

	started := make(chan struct{})
	id, err := m.Submit(context.Background(), func(ctx context.Context) (interface{}, error) {
		close(started)
		<-ctx.Done()
		return nil, ctx.Err()
	})
	require.NoError(t, err)

	<-started
	assert.True(t, m.Cancel(id))

	_, err = m.Result(context.Background(), id)
	assert.Error(t, err)
}

func TestTaskManagerCancelPendingNeverRuns(t *testing.T) {
	m := NewTaskManager(1, PolicyBlock)
	m.Start(context.Background())
	defer m.Stop()

	// Occupy the sole slot so the next submission stays Pending until we
	// cancel it.
	blocking := make(chan struct{})
	_, err := m.Submit(context.Background(), func(ctx context.Context) (interface{}, error) {
		<-blocking
		return nil, nil
	})
	require.NoError(t, err)

	var ran bool
	id, err := m.Submit(context.Background(), func(ctx context.Context) (interface{}, error) {
		ran = true
		return nil, nil
	})
	require.NoError(t, err)

	info, ok := m.Info(id)
	require.True(t, ok)
	require.Equal(t, TaskPending, info.State)

	assert.True(t, m.Cancel(id))
	info, ok = m.Info(id)
	require.True(t, ok)
	assert.Equal(t, TaskCancelled, info.State)

	close(blocking)
	time.Sleep(20 * time.Millisecond)
	assert.False(t, ran)

	info, ok = m.Info(id)
	require.True(t, ok)
	assert.Equal(t, TaskCancelled, info.State)
}

func TestTaskManagerListFiltersByStatus(t *testing.T) {
	m := NewTaskManager(2, PolicyBlock)
	m.Start(context.Background())
	defer m.Stop()

	okID, err := m.Submit(context.Background(), func(ctx context.Context) (interface{}, error) {
		return "ok", nil
	})
	require.NoError(t, err)
	_, _ = m.Result(context.Background(), okID)

	failID, err := m.Submit(context.Background(), func(ctx context.Context) (interface{}, error) {
		return nil, errors.New("boom")
	})
	require.NoError(t, err)
	_, _ = m.Result(context.Background(), failID)

	completed := m.List(TaskCompleted)
	require.Len(t, completed, 1)
	assert.Equal(t, okID, completed[0].ID)

	failed := m.List(TaskFailed)
	require.Len(t, failed, 1)
	assert.Equal(t, failID, failed[0].ID)

	assert.Len(t, m.List(), 2)
}

func TestTaskManagerClearCompleted(t *testing.T) {
	m := NewTaskManager(1, PolicyBlock)
	m.Start(context.Background())
	defer m.Stop()

	id, err := m.Submit(context.Background(), func(ctx context.Context) (interface{}, error) {
		return nil, nil
	})
	require.NoError(t, err)
	_, _ = m.Result(context.Background(), id)

	removed := m.ClearCompleted()
	assert.Equal(t, 1, removed)
	assert.Len(t, m.List(), 0)
}

func TestTaskManagerOverloadFailFast(t *testing.T) {
	m := NewTaskManager(1, PolicyFailFast)
	m.Start(context.Background())
	defer m.Stop()

	blocking := make(chan struct{})
	_, err := m.Submit(context.Background(), func(ctx context.Context) (interface{}, error) {
		<-blocking
		return nil, nil
	})
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)
	_, err = m.Submit(context.Background(), func(ctx context.Context) (interface{}, error) {
		return nil, nil
	})
	assert.ErrorIs(t, err, ErrOverloaded)
	close(blocking)
}
