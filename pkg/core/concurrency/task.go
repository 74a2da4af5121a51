package concurrency

import (
	"context"
)

// Task is one deferred unit of work (a job). A task captures everything it
// needs when it is created and is handed to the pool by value; exactly one
// worker executes it, at most once.
type Task interface {
	// Execute runs the job to completion on the calling worker.
	Execute(ctx context.Context) error

	// Name identifies the job in logs and metrics.
	Name() string
}

// TaskFunc adapts a plain function to Task.
type TaskFunc func(ctx context.Context) error

// Execute implements Task.
func (f TaskFunc) Execute(ctx context.Context) error {
	return f(ctx)
}

// Name implements Task.
func (f TaskFunc) Name() string {
	return "TaskFunc"
}

// NamedTask is a TaskFunc carrying a name, e.g. "conn-<id>".
type NamedTask struct {
	name string
	fn   TaskFunc
}

// NewNamedTask creates a NamedTask.
func NewNamedTask(name string, fn TaskFunc) *NamedTask {
	return &NamedTask{name: name, fn: fn}
}

// Execute implements Task.
func (nt *NamedTask) Execute(ctx context.Context) error {
	return nt.fn(ctx)
}

// Name implements Task.
func (nt *NamedTask) Name() string {
	return nt.name
}
