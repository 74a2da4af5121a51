package concurrency

import (
	"context"
	"errors"
	"time"

	"github.com/fluxorio/linehttpd/pkg/core"
)

var (
	// ErrNilTask is returned by Submit for a nil task.
	ErrNilTask = errors.New("task cannot be nil")

	// ErrJobPanicked is reported to observers when a job panics.
	ErrJobPanicked = errors.New("job panicked")
)

// WorkerPool runs jobs on a fixed set of workers fed by one unbounded queue.
//
// Shutdown enqueues one termination signal per worker behind every job
// already submitted and waits for the workers to exit. Jobs submitted before
// Shutdown therefore all run; jobs submitted after it are accepted but never
// run, because every worker stops at a signal that is ahead of them.
//
// A job that panics takes its worker down with it: the panic is logged, the
// worker leaves its loop and the pool keeps running with one worker less.
// Lost workers are not respawned.
type WorkerPool interface {
	// Submit enqueues a job and returns immediately.
	Submit(task Task) error

	// Shutdown signals every worker to stop after draining prior jobs and
	// waits for them to exit. ctx bounds the wait only; it never cancels
	// queued or running jobs. Safe to call more than once.
	Shutdown(ctx context.Context) error

	// Close is Shutdown without a deadline.
	Close() error

	// Workers returns the configured worker count.
	Workers() int

	// Alive returns the number of workers whose loop is still running.
	Alive() int

	// IsRunning reports whether shutdown has not yet begun.
	IsRunning() bool

	// Stats returns a snapshot of pool counters.
	Stats() PoolStats
}

// PoolStats is a snapshot of WorkerPool counters.
type PoolStats struct {
	Workers   int   // Configured worker count
	Alive     int   // Workers still running their loop
	Queued    int   // Jobs waiting in the queue
	Completed int64 // Jobs that returned nil
	Failed    int64 // Jobs that returned an error
	Panicked  int64 // Jobs that panicked (each one cost a worker)
}

// Observer receives worker lifecycle events. Calls come from worker
// goroutines and must not block.
type Observer interface {
	WorkerStarted(worker int)
	WorkerExited(worker int, panicked bool)
	JobStarted(worker int, name string)
	JobFinished(worker int, name string, elapsed time.Duration, err error)
}

// NopObserver ignores every event.
type NopObserver struct{}

func (NopObserver) WorkerStarted(int)                             {}
func (NopObserver) WorkerExited(int, bool)                        {}
func (NopObserver) JobStarted(int, string)                        {}
func (NopObserver) JobFinished(int, string, time.Duration, error) {}

// WorkerPoolConfig configures a WorkerPool.
type WorkerPoolConfig struct {
	Workers  int         // Number of workers, must be > 0
	Logger   core.Logger // Defaults to core.NewDefaultLogger()
	Observer Observer    // Defaults to NopObserver
}

// DefaultWorkerPoolConfig returns the default configuration: four workers.
func DefaultWorkerPoolConfig() WorkerPoolConfig {
	return WorkerPoolConfig{Workers: 4}
}
