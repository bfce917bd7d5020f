package pylon

import (
	"context"
	"testing"

	"github.com/pylon-dev/pylon/exec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingHook struct {
	name    string
	order   *[]string
	failure error
}

func (h *recordingHook) OnStartup(ctx context.Context) error {
	*h.order = append(*h.order, "start:"+h.name)
	return h.failure
}

func (h *recordingHook) OnShutdown(ctx context.Context) error {
	*h.order = append(*h.order, "stop:"+h.name)
	return nil
}

func TestLifespanManagerStartupShutdownOrder(t *testing.T) {
	var order []string
	blocking := exec.NewBlockingPool(2, exec.PolicyBlock)
	cpu := exec.NewCPUPool(1, nil)
	tasks := exec.NewTaskManager(2, exec.PolicyBlock)

	lm := NewLifespanManager(DefaultConfig(), NewLogger("test"), nil, blocking, cpu, tasks)
	lm.AddHook(&recordingHook{name: "a", order: &order})
	lm.AddHook(&recordingHook{name: "b", order: &order})

	require.NoError(t, lm.Startup(context.Background()))
	require.NoError(t, lm.Shutdown(context.Background()))

	assert.Equal(t, []string{"start:a", "start:b", "stop:b", "stop:a"}, order)
}

func TestLifespanManagerStartupIdempotent(t *testing.T) {
	var order []string
	lm := NewLifespanManager(DefaultConfig(), NewLogger("test"), nil, nil, nil, nil)
	lm.AddHook(&recordingHook{name: "once", order: &order})

	require.NoError(t, lm.Startup(context.Background()))
	require.NoError(t, lm.Startup(context.Background()))

	assert.Equal(t, []string{"start:once"}, order)
}
