package exec

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// TaskState is a background task's lifecycle state, per §4.7.
type TaskState string

const (
	TaskPending   TaskState = "pending"
	TaskRunning   TaskState = "running"
	TaskCompleted TaskState = "completed"
	TaskFailed    TaskState = "failed"
	TaskCancelled TaskState = "cancelled"
)

// TaskInfo is the externally-visible snapshot of a background task.
type TaskInfo struct {
	ID        string
	State     TaskState
	SubmitAt  time.Time
	StartAt   time.Time
	EndAt     time.Time
	Result    interface{}
	Err       error
}

type task struct {
	info   TaskInfo
	cancel context.CancelFunc
	mu     sync.Mutex
}

// TaskManager runs background jobs submitted via Submit, tracking each
// through Pending -> Running -> {Completed, Failed, Cancelled}, per §4.7.
type TaskManager struct {
	maxQueue int
	policy   OverloadPolicy
	sem      chan struct{}

	mu    sync.RWMutex
	tasks map[string]*task
	group *errgroup.Group
	ctx   context.Context
}

// NewTaskManager returns a TaskManager admitting at most maxQueue
// concurrently running tasks.
func NewTaskManager(maxQueue int, policy OverloadPolicy) *TaskManager {
	return &TaskManager{
		maxQueue: maxQueue,
		policy:   policy,
		sem:      make(chan struct{}, maxQueue),
		tasks:    make(map[string]*task),
	}
}

// Start prepares the manager to accept submissions, binding it to ctx so
// Stop can cancel every still-running task during shutdown.
func (m *TaskManager) Start(ctx context.Context) {
	group, gctx := errgroup.WithContext(ctx)
	m.mu.Lock()
	m.group = group
	m.ctx = gctx
	m.mu.Unlock()
}

// Stop cancels every running task and waits for them to return, matching
// §4.8's reverse-shutdown-order guarantee that no background work survives
// the server that owns it.
func (m *TaskManager) Stop() {
	m.mu.RLock()
	tasks := make([]*task, 0, len(m.tasks))
	for _, t := range m.tasks {
		tasks = append(tasks, t)
	}
	group := m.group
	m.mu.RUnlock()

	for _, t := range tasks {
		t.mu.Lock()
		if t.info.State == TaskPending || t.info.State == TaskRunning {
			if t.cancel != nil {
				t.cancel()
			}
		}
		t.mu.Unlock()
	}
	if group != nil {
		_ = group.Wait()
	}
}

// Submit schedules fn to run on the manager, returning its task ID
// immediately. fn's result and error become available via Result once its
// state reaches Completed or Failed.
func (m *TaskManager) Submit(parent context.Context, fn func(context.Context) (interface{}, error)) (string, error) {
	acquired := false
	select {
	case m.sem <- struct{}{}:
		acquired = true
	default:
		if m.policy == PolicyFailFast {
			return "", ErrOverloaded
		}
	}

	id := uuid.NewString()
	ctx, cancel := context.WithCancel(parent)
	t := &task{info: TaskInfo{ID: id, State: TaskPending, SubmitAt: time.Now()}, cancel: cancel}

	m.mu.Lock()
	m.tasks[id] = t
	group := m.group
	m.mu.Unlock()

	run := func() error {
		if !acquired {
			m.sem <- struct{}{} // wait for a free slot; the task stays Pending meanwhile
		}
		defer func() { <-m.sem }()

		t.mu.Lock()
		if t.info.State != TaskPending {
			// Cancel already moved this task to Cancelled while it was
			// still pending; never transition through Running.
			t.mu.Unlock()
			return nil
		}
		t.info.State = TaskRunning
		t.info.StartAt = time.Now()
		t.mu.Unlock()

		val, err := fn(ctx)

		t.mu.Lock()
		defer t.mu.Unlock()
		t.info.EndAt = time.Now()
		switch {
		case ctx.Err() != nil:
			t.info.State = TaskCancelled
			t.info.Err = ctx.Err()
		case err != nil:
			t.info.State = TaskFailed
			t.info.Err = err
		default:
			t.info.State = TaskCompleted
			t.info.Result = val
		}
		return nil
	}

	if group != nil {
		group.Go(run)
	} else {
		go run()
	}

	return id, nil
}

// Status returns the current state of the task with the given ID.
func (m *TaskManager) Status(id string) (TaskState, bool) {
	m.mu.RLock()
	t, ok := m.tasks[id]
	m.mu.RUnlock()
	if !ok {
		return "", false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.info.State, true
}

// Info returns a full snapshot of the task with the given ID.
func (m *TaskManager) Info(id string) (TaskInfo, bool) {
	m.mu.RLock()
	t, ok := m.tasks[id]
	m.mu.RUnlock()
	if !ok {
		return TaskInfo{}, false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.info, true
}

// Result blocks until the task with the given ID reaches a terminal state
// or ctx is cancelled, then returns its result/error.
func (m *TaskManager) Result(ctx context.Context, id string) (interface{}, error) {
	for {
		info, ok := m.Info(id)
		if !ok {
			return nil, ErrNotStarted
		}
		switch info.State {
		case TaskCompleted:
			return info.Result, nil
		case TaskFailed, TaskCancelled:
			return nil, info.Err
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(10 * time.Millisecond):
		}
	}
}

// Cancel requests cancellation of the task with the given ID. Per §8's
// boundary behavior, a still-pending task is moved straight to Cancelled
// under the same lock run() checks before it would ever set Running, so
// a pending task cancelled here can never observe a Running transition.
func (m *TaskManager) Cancel(id string) bool {
	m.mu.RLock()
	t, ok := m.tasks[id]
	m.mu.RUnlock()
	if !ok {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	switch t.info.State {
	case TaskPending:
		t.info.State = TaskCancelled
		t.info.EndAt = time.Now()
		t.info.Err = context.Canceled
		if t.cancel != nil {
			t.cancel()
		}
		return true
	case TaskRunning:
		if t.cancel != nil {
			t.cancel()
		}
		return true
	default:
		return false
	}
}

// List returns a snapshot of every tracked task's info, optionally
// restricted to a single state (§4.7's list(filter_status?)). Called with
// no argument, every task is returned regardless of state.
func (m *TaskManager) List(filterStatus ...TaskState) []TaskInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var want TaskState
	if len(filterStatus) > 0 {
		want = filterStatus[0]
	}
	out := make([]TaskInfo, 0, len(m.tasks))
	for _, t := range m.tasks {
		t.mu.Lock()
		if want == "" || t.info.State == want {
			out = append(out, t.info)
		}
		t.mu.Unlock()
	}
	return out
}

// ClearCompleted removes every task in a terminal state from the
// manager's bookkeeping, per §4.7's clear_completed().
func (m *TaskManager) ClearCompleted() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for id, t := range m.tasks {
		t.mu.Lock()
		terminal := t.info.State == TaskCompleted || t.info.State == TaskFailed || t.info.State == TaskCancelled
		t.mu.Unlock()
		if terminal {
			delete(m.tasks, id)
			removed++
		}
	}
	return removed
}
