package executor

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
)

func TestRunExecutesAllTasks(t *testing.T) {
	e := New(Config{NumGoroutines: 4})
	defer e.Close()

	var count int64
	tasks := make([]Task, 16)
	for i := range tasks {
		tasks[i] = func(context.Context) error {
			atomic.AddInt64(&count, 1)
			return nil
		}
	}

	if err := e.Run(tasks...); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if count != 16 {
		t.Errorf("ran %v tasks, expected 16", count)
	}
}

func TestRunReturnsTaskError(t *testing.T) {
	e := New(Config{NumGoroutines: 2})
	defer e.Close()

	expected := fmt.Errorf("task failed")
	err := e.Run(
		func(context.Context) error { return nil },
		func(context.Context) error { return expected },
		func(context.Context) error { return nil },
	)
	if err != expected {
		t.Errorf("run error = %v, expected %v", err, expected)
	}
}

func TestRunMoreTasksThanWorkers(t *testing.T) {
	e := New(Config{NumGoroutines: 1})
	defer e.Close()

	var count int64
	tasks := make([]Task, 8)
	for i := range tasks {
		tasks[i] = func(context.Context) error {
			atomic.AddInt64(&count, 1)
			return nil
		}
	}

	if err := e.Run(tasks...); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if count != 8 {
		t.Errorf("ran %v tasks, expected 8", count)
	}
}

func TestConcurrentRuns(t *testing.T) {
	e := New(Config{NumGoroutines: 4})
	defer e.Close()

	var count int64
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := e.Run(
				func(context.Context) error {
					atomic.AddInt64(&count, 1)
					return nil
				},
				func(context.Context) error {
					atomic.AddInt64(&count, 1)
					return nil
				},
			)
			if err != nil {
				t.Errorf("run failed: %v", err)
			}
		}()
	}
	wg.Wait()

	if count != 8 {
		t.Errorf("ran %v tasks, expected 8", count)
	}
}

func TestInitTwiceFails(t *testing.T) {
	if err := Init(DefaultConfig()); err != nil {
		t.Fatalf("could not initialize executor: %v", err)
	}
	defer Shutdown()

	if err := Init(DefaultConfig()); err == nil {
		t.Errorf("expected error when initializing twice")
	}
}

func TestShutdownWithoutInit(t *testing.T) {
	// Must not panic
	Shutdown()
}

func TestPackageRunInitializesLazily(t *testing.T) {
	defer Shutdown()

	var count int64
	err := Run(func(context.Context) error {
		atomic.AddInt64(&count, 1)
		return nil
	})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if count != 1 {
		t.Errorf("ran %v tasks, expected 1", count)
	}
}
