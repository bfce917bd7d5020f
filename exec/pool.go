// Package exec implements pylon's execution subsystem (C7): a blocking
// worker pool for synchronous handlers, a CPU-bound worker pool for
// offloaded compute, and a background task manager, all sharing a common
// max-queue-depth overload policy.
package exec

import (
	"context"
	"errors"
	"runtime"
	"sync"

	"golang.org/x/sync/semaphore"
)

// ErrNotStarted is returned by Run/Submit when the pool has not been
// started yet or has already been stopped.
var ErrNotStarted = errors.New("exec: pool not started")

// ErrOverloaded is returned when the queue-depth policy is "fail fast"
// (non-blocking acquire) and the pool has no free capacity.
var ErrOverloaded = errors.New("exec: pool overloaded")

// OverloadPolicy decides what submission does when the pool is at its
// configured max queue depth.
type OverloadPolicy uint8

const (
	// PolicyBlock waits for capacity to free up (the default).
	PolicyBlock OverloadPolicy = iota
	// PolicyFailFast returns ErrOverloaded immediately.
	PolicyFailFast
)

// BlockingPool runs synchronous work on a fixed set of goroutines,
// mirroring the spec's "N worker threads" BlockingPool even though Go has
// no OS-thread-pinned execution model to match 1:1 — goroutines scheduled
// onto GOMAXPROCS OS threads are the idiomatic Go equivalent.
type BlockingPool struct {
	sem     *semaphore.Weighted
	policy  OverloadPolicy
	started bool
	mu      sync.Mutex
}

// NewBlockingPool returns a BlockingPool admitting at most size concurrent
// jobs.
func NewBlockingPool(size int, policy OverloadPolicy) *BlockingPool {
	return &BlockingPool{sem: semaphore.NewWeighted(int64(size)), policy: policy}
}

// Start marks the pool ready to accept work. BlockingPool has no
// persistent goroutines to launch (work runs synchronously, gated by the
// semaphore), so Start/Stop only toggle acceptance.
func (p *BlockingPool) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.started = true
}

// Stop marks the pool as no longer accepting new work. In-flight jobs run
// to completion.
func (p *BlockingPool) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.started = false
}

// RunBlocking runs fn on the pool, blocking the caller until fn returns (or
// the pool rejects the submission per its overload policy), per §4.7's
// run_blocking(fn).
func (p *BlockingPool) RunBlocking(ctx context.Context, fn func(context.Context) error) error {
	p.mu.Lock()
	started := p.started
	p.mu.Unlock()
	if !started {
		return ErrNotStarted
	}

	switch p.policy {
	case PolicyFailFast:
		if !p.sem.TryAcquire(1) {
			return ErrOverloaded
		}
	default:
		if err := p.sem.Acquire(ctx, 1); err != nil {
			return err
		}
	}
	defer p.sem.Release(1)

	return fn(ctx)
}

// CPUPool runs CPU-bound work on a fixed number of workers, optionally
// primed with an Initializer, realizing the spec's "M worker processes"
// CPUPool as a goroutine pool bound to GOMAXPROCS (see DESIGN.md Open
// Questions: Go has no multiprocessing primitive equivalent to a true
// process pool, so this is a deliberate simplification).
type CPUPool struct {
	jobs        chan cpuJob
	workerCount int
	initializer func(workerID int)
	wg          sync.WaitGroup
	started     bool
	mu          sync.Mutex
}

type cpuJob struct {
	fn   func(context.Context) (interface{}, error)
	resp chan cpuResult
}

type cpuResult struct {
	val interface{}
	err error
}

// NewCPUPool returns a CPUPool with workerCount workers (0 means
// runtime.GOMAXPROCS(0)), each primed by initializer if non-nil.
func NewCPUPool(workerCount int, initializer func(workerID int)) *CPUPool {
	if workerCount <= 0 {
		workerCount = runtime.GOMAXPROCS(0)
	}
	return &CPUPool{
		jobs:        make(chan cpuJob),
		workerCount: workerCount,
		initializer: initializer,
	}
}

// Start launches the pool's workers.
func (p *CPUPool) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return
	}
	p.started = true
	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

func (p *CPUPool) worker(id int) {
	defer p.wg.Done()
	if p.initializer != nil {
		p.initializer(id)
	}
	for job := range p.jobs {
		val, err := job.fn(context.Background())
		job.resp <- cpuResult{val: val, err: err}
	}
}

// Stop closes the job channel and waits for all workers to drain,
// mirroring §4.8's shutdown ordering for pools.
func (p *CPUPool) Stop() {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	p.started = false
	p.mu.Unlock()
	close(p.jobs)
	p.wg.Wait()
}

// RunCPU submits fn to the pool and blocks for its result, per §4.7's
// run_cpu(fn).
func (p *CPUPool) RunCPU(ctx context.Context, fn func(context.Context) (interface{}, error)) (interface{}, error) {
	p.mu.Lock()
	started := p.started
	p.mu.Unlock()
	if !started {
		return nil, ErrNotStarted
	}

	resp := make(chan cpuResult, 1)
	select {
	case p.jobs <- cpuJob{fn: fn, resp: resp}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case r := <-resp:
		return r.val, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
