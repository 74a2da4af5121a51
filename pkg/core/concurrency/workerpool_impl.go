package concurrency

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fluxorio/linehttpd/pkg/core"
	"github.com/fluxorio/linehttpd/pkg/core/failfast"
)

type defaultWorkerPool struct {
	ctx      context.Context
	workers  int
	queue    *Queue
	wg       sync.WaitGroup
	logger   core.Logger
	observer Observer

	shutdownOnce sync.Once
	done         chan struct{}

	running   int32 // atomic
	alive     int32 // atomic
	completed int64 // atomic
	failed    int64 // atomic
	panicked  int64 // atomic
}

// NewWorkerPool creates and starts a pool of config.Workers workers.
// Jobs receive ctx; the pool never cancels it. Panics if config.Workers < 1.
func NewWorkerPool(ctx context.Context, config WorkerPoolConfig) WorkerPool {
	failfast.NotNil(ctx, "ctx")
	failfast.Positive(config.Workers, "worker pool size")

	if config.Logger == nil {
		config.Logger = core.NewDefaultLogger()
	}
	if config.Observer == nil {
		config.Observer = NopObserver{}
	}

	wp := &defaultWorkerPool{
		ctx:      ctx,
		workers:  config.Workers,
		queue:    NewQueue(),
		logger:   config.Logger,
		observer: config.Observer,
		done:     make(chan struct{}),
		running:  1,
	}

	wp.wg.Add(wp.workers)
	atomic.StoreInt32(&wp.alive, int32(wp.workers))
	for i := 0; i < wp.workers; i++ {
		wp.observer.WorkerStarted(i)
		go wp.worker(i)
	}
	return wp
}

func (wp *defaultWorkerPool) worker(id int) {
	log := wp.logger.WithFields(map[string]interface{}{"worker": id})
	panicked := false
	defer func() {
		atomic.AddInt32(&wp.alive, -1)
		wp.observer.WorkerExited(id, panicked)
		wp.wg.Done()
	}()

	for {
		it := wp.queue.pop()
		if it.stop {
			log.Debug("termination signal received")
			return
		}
		if !wp.run(id, log, it.task) {
			panicked = true
			log.Warnf("worker lost to panicking job, %d of %d workers left", wp.Alive()-1, wp.workers)
			return
		}
	}
}

// run executes one job and reports whether the worker may continue.
func (wp *defaultWorkerPool) run(id int, log core.Logger, task Task) (ok bool) {
	name := task.Name()
	start := time.Now()
	log.Debugf("job %s started", name)
	wp.observer.JobStarted(id, name)

	defer func() {
		if r := recover(); r != nil {
			elapsed := time.Since(start)
			atomic.AddInt64(&wp.panicked, 1)
			log.Errorf("job %s panicked after %v: %v", name, elapsed, r)
			wp.observer.JobFinished(id, name, elapsed, fmt.Errorf("%w: %v", ErrJobPanicked, r))
			ok = false
		}
	}()

	err := task.Execute(wp.ctx)
	elapsed := time.Since(start)
	if err != nil {
		atomic.AddInt64(&wp.failed, 1)
		log.Errorf("job %s failed after %v: %v", name, elapsed, err)
	} else {
		atomic.AddInt64(&wp.completed, 1)
		log.Debugf("job %s finished in %v", name, elapsed)
	}
	wp.observer.JobFinished(id, name, elapsed, err)
	return true
}

// Submit implements WorkerPool.
func (wp *defaultWorkerPool) Submit(task Task) error {
	if task == nil {
		return ErrNilTask
	}
	if !wp.IsRunning() {
		wp.logger.Warnf("job %s submitted after shutdown began; it will not run", task.Name())
	}
	wp.queue.Push(task)
	return nil
}

// Shutdown implements WorkerPool.
func (wp *defaultWorkerPool) Shutdown(ctx context.Context) error {
	wp.shutdownOnce.Do(func() {
		// One signal per configured worker. Signals meant for workers already
		// lost to a panic stay in the queue unread. A Submit that sees
		// running == 0 pushes behind all of them.
		wp.queue.pushStops(wp.workers, func() {
			atomic.StoreInt32(&wp.running, 0)
		})
		go func() {
			wp.wg.Wait()
			close(wp.done)
		}()
	})

	select {
	case <-wp.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("shutdown timeout: %w", ctx.Err())
	}
}

// Close implements WorkerPool.
func (wp *defaultWorkerPool) Close() error {
	return wp.Shutdown(context.Background())
}

// Workers implements WorkerPool.
func (wp *defaultWorkerPool) Workers() int {
	return wp.workers
}

// Alive implements WorkerPool.
func (wp *defaultWorkerPool) Alive() int {
	return int(atomic.LoadInt32(&wp.alive))
}

// IsRunning implements WorkerPool.
func (wp *defaultWorkerPool) IsRunning() bool {
	return atomic.LoadInt32(&wp.running) == 1
}

// Stats implements WorkerPool.
func (wp *defaultWorkerPool) Stats() PoolStats {
	return PoolStats{
		Workers:   wp.workers,
		Alive:     wp.Alive(),
		Queued:    wp.queue.Len(),
		Completed: atomic.LoadInt64(&wp.completed),
		Failed:    atomic.LoadInt64(&wp.failed),
		Panicked:  atomic.LoadInt64(&wp.panicked),
	}
}
