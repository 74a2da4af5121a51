package concurrency

import (
	"sync"
)

// item is either a job or a termination signal.
type item struct {
	task Task
	stop bool
}

// Queue is an unbounded FIFO handoff between producers and workers.
// Push never blocks; pop blocks until an item exists. The mutex is the only
// lock on the job path: it serializes consumers so every item goes to
// exactly one worker, in enqueue order.
type Queue struct {
	mu    sync.Mutex
	ready *sync.Cond
	items []item
	jobs  int
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	q := &Queue{}
	q.ready = sync.NewCond(&q.mu)
	return q
}

// Push appends a job.
func (q *Queue) Push(task Task) {
	q.push(item{task: task})
}

// pushStops appends n contiguous termination signals. locked, if non-nil,
// runs inside the same critical section, so any push that observes its
// effects lands behind every signal.
func (q *Queue) pushStops(n int, locked func()) {
	q.mu.Lock()
	if locked != nil {
		locked()
	}
	for i := 0; i < n; i++ {
		q.items = append(q.items, item{stop: true})
	}
	q.mu.Unlock()
	q.ready.Broadcast()
}

func (q *Queue) push(it item) {
	q.mu.Lock()
	q.items = append(q.items, it)
	q.jobs++
	q.mu.Unlock()
	q.ready.Signal()
}

// pop removes the head item, waiting while the queue is empty.
func (q *Queue) pop() item {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.items) == 0 {
		q.ready.Wait()
	}
	it := q.items[0]
	q.items[0] = item{}
	q.items = q.items[1:]
	if !it.stop {
		q.jobs--
	}
	return it
}

// Len returns the number of queued jobs, not counting termination signals.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.jobs
}
