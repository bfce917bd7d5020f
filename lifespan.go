package pylon

import (
	"context"
	"sync"

	"github.com/pylon-dev/pylon/exec"
	"github.com/pylon-dev/pylon/telemetry"
)

// LifecycleHook participates in the LifespanManager's startup/shutdown
// order, per §4.8. Apps mounted via Router.Mount that need startup/
// shutdown behavior implement this in addition to RoutingInstance.
type LifecycleHook interface {
	OnStartup(ctx context.Context) error
	OnShutdown(ctx context.Context) error
}

// LifespanManager enforces the strict startup order (config frozen ->
// logger bound -> execution pools started -> task manager started ->
// mounted apps' OnStartup in mount order) and the reverse shutdown order,
// continuing past individual app failures, mirroring air.Air's
// Serve/Shutdown/AddShutdownJob pattern in air.go.
type LifespanManager struct {
	Config    Config
	Logger    *Logger
	Telemetry *telemetry.Provider
	Blocking  *exec.BlockingPool
	CPU       *exec.CPUPool
	Tasks     *exec.TaskManager

	hooks []LifecycleHook

	startOnce sync.Once
	stopOnce  sync.Once
}

// NewLifespanManager wires a LifespanManager from its collaborators.
func NewLifespanManager(cfg Config, logger *Logger, telemetry *telemetry.Provider, blocking *exec.BlockingPool, cpu *exec.CPUPool, tasks *exec.TaskManager) *LifespanManager {
	return &LifespanManager{
		Config:    cfg,
		Logger:    logger,
		Telemetry: telemetry,
		Blocking:  blocking,
		CPU:       cpu,
		Tasks:     tasks,
	}
}

// AddHook registers a LifecycleHook to run in mount order during Startup
// and reverse order during Shutdown, mirroring air.Air.AddShutdownJob.
func (lm *LifespanManager) AddHook(h LifecycleHook) {
	lm.hooks = append(lm.hooks, h)
}

// Startup runs the fixed startup sequence exactly once, idempotent under
// duplicate calls (matching §4.8's "idempotent under duplicate signals").
func (lm *LifespanManager) Startup(ctx context.Context) error {
	var startErr error
	lm.startOnce.Do(func() {
		// config is already frozen by the time Startup is called (Config
		// is a plain value, copied in, never mutated after NewServer).
		// logger is already bound (constructed before the manager).
		if lm.Blocking != nil {
			lm.Blocking.Start()
		}
		if lm.CPU != nil {
			lm.CPU.Start()
		}
		if lm.Tasks != nil {
			lm.Tasks.Start(ctx)
		}
		for _, h := range lm.hooks {
			if err := h.OnStartup(ctx); err != nil {
				startErr = err
				return
			}
		}
	})
	return startErr
}

// Shutdown runs every hook's OnShutdown in reverse mount order, continuing
// past individual failures (collecting the first one to return), then
// stops the execution pools and finally tears down telemetry, mirroring
// air.Air.Shutdown's shutdownJobs drain followed by listener close.
func (lm *LifespanManager) Shutdown(ctx context.Context) error {
	var firstErr error
	lm.stopOnce.Do(func() {
		for i := len(lm.hooks) - 1; i >= 0; i-- {
			if err := lm.hooks[i].OnShutdown(ctx); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		if lm.Tasks != nil {
			lm.Tasks.Stop()
		}
		if lm.CPU != nil {
			lm.CPU.Stop()
		}
		if lm.Blocking != nil {
			lm.Blocking.Stop()
		}
		if lm.Telemetry != nil {
			if err := lm.Telemetry.Shutdown(ctx); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	})
	return firstErr
}
