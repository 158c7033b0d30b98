// Package executor implements a process-wide pool of worker goroutines
// for running independent tasks concurrently. The pool is initialized
// once per process with Init and torn down with Shutdown; callers fan
// work out over the pool with Run. Trainers use the pool to run
// experience collection for multiple rollout workers in parallel.
package executor

import (
	"context"
	"fmt"
	"runtime"
	"sync"
)

// Config describes the configuration of the process-wide pool
type Config struct {
	// NumGoroutines is the number of worker goroutines in the pool. A
	// value of 0 uses one goroutine per logical CPU.
	NumGoroutines int
}

// DefaultConfig returns the default pool configuration
func DefaultConfig() Config {
	return Config{NumGoroutines: 0}
}

// Task is a unit of work runnable on the pool. Tasks should return
// promptly once their context is cancelled.
type Task func(context.Context) error

// task pairs a Task with the channel its result is delivered on
type task struct {
	run  Task
	done chan error
}

// Executor is a fixed-size pool of worker goroutines
type Executor struct {
	ctx    context.Context
	cancel context.CancelFunc
	tasks  chan task
	wg     sync.WaitGroup
}

// New creates a new Executor with its worker goroutines running
func New(c Config) *Executor {
	n := c.NumGoroutines
	if n <= 0 {
		n = runtime.NumCPU()
	}

	ctx, cancel := context.WithCancel(context.Background())
	e := &Executor{
		ctx:    ctx,
		cancel: cancel,
		tasks:  make(chan task),
	}

	e.wg.Add(n)
	for i := 0; i < n; i++ {
		go e.work()
	}

	return e
}

// work runs tasks until the executor is closed
func (e *Executor) work() {
	defer e.wg.Done()
	for {
		select {
		case <-e.ctx.Done():
			return
		case t := <-e.tasks:
			t.done <- t.run(e.ctx)
		}
	}
}

// Run submits the argument tasks to the pool and blocks until all of
// them have completed. The first non-nil error is returned. Run may
// be called concurrently from multiple goroutines.
func (e *Executor) Run(tasks ...Task) error {
	done := make(chan error, len(tasks))
	for _, run := range tasks {
		select {
		case <-e.ctx.Done():
			return fmt.Errorf("run: executor is shut down")
		case e.tasks <- task{run: run, done: done}:
		}
	}

	var firstErr error
	for range tasks {
		if err := <-done; err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Close stops the pool and waits for its goroutines to exit. Tasks
// already running are cancelled through their contexts.
func (e *Executor) Close() {
	e.cancel()
	e.wg.Wait()
}

// Process-wide pool managed by Init and Shutdown
var (
	globalMu sync.Mutex
	global   *Executor
)

// Init initializes the process-wide pool. Calling Init when the pool
// is already initialized is an error.
func Init(c Config) error {
	globalMu.Lock()
	defer globalMu.Unlock()

	if global != nil {
		return fmt.Errorf("init: executor already initialized")
	}
	global = New(c)
	return nil
}

// Shutdown tears down the process-wide pool. Shutdown is a no-op if
// the pool is not initialized.
func Shutdown() {
	globalMu.Lock()
	defer globalMu.Unlock()

	if global != nil {
		global.Close()
		global = nil
	}
}

// Run fans the argument tasks out over the process-wide pool and
// blocks until all of them have completed. If the pool has not been
// initialized, it is initialized with the default configuration.
func Run(tasks ...Task) error {
	globalMu.Lock()
	if global == nil {
		global = New(DefaultConfig())
	}
	e := global
	globalMu.Unlock()

	return e.Run(tasks...)
}
