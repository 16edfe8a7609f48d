// Package dispatch runs independent, CPU-bound sub-computations on a fixed
// pool of persistent workers and hands the results back per batch.
package dispatch

import (
	"context"
	"fmt"
	"time"
)

// Kind identifies what a task computes. Results are grouped by kind.
type Kind string

const (
	KindHours       Kind = "hours-calculation"
	KindValues      Kind = "values-calculation"
	KindMultipliers Kind = "multipliers-calculation"
	KindTimeline    Kind = "timeline-calculation"
	KindFallback    Kind = "fallback-inference"
)

// Priority orders queued tasks. High priority tasks are dequeued before any
// normal one, FIFO within the same priority.
type Priority int

const (
	PriorityNormal Priority = iota
	PriorityHigh
)

// Func is the body of a task. It receives the batch context and must not
// block on I/O.
type Func func(ctx context.Context) (any, error)

// Task is one unit of work submitted in a batch.
type Task struct {
	ID       string
	Kind     Kind
	Priority Priority
	Run      Func
}

// Result is the outcome of one task. Exactly one of Value and Err is
// meaningful, selected by Success.
type Result struct {
	TaskID   string
	Kind     Kind
	Success  bool
	Value    any
	Err      error
	Worker   int
	Duration time.Duration
}

// PanicError is the failure attached to a task whose worker crashed.
type PanicError struct {
	TaskID string
	Value  any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("dispatch: task %s panicked: %v", e.TaskID, e.Value)
}
