package flatmap

import (
	"context"
	"fmt"
	"time"

	"github.com/sourcegraph/conc/panics"

	"github.com/kbukum/streamop/stream"
)

// TaskError is the failure of one user function invocation.
type TaskError struct {
	// Seq is the admission sequence number of the record, starting at 1 per run.
	Seq uint64
	// Timestamp is the timestamp of the record that failed.
	Timestamp time.Time
	Err       error
}

func (e *TaskError) Error() string {
	return fmt.Sprintf("record %d: %v", e.Seq, e.Err)
}

func (e *TaskError) Unwrap() error { return e.Err }

// runnable is what the worker pool executes.
type runnable interface {
	run(ctx context.Context) error
}

// pendingTask is one admitted record bound to the function and its own collector.
type pendingTask[I, O any] struct {
	seq       uint64
	record    stream.Record[I]
	fn        Function[I, O]
	collector *stream.TimestampedCollector[O]
}

func newPendingTask[I, O any](seq uint64, rec stream.Record[I], fn Function[I, O], out stream.Output[O]) *pendingTask[I, O] {
	return &pendingTask[I, O]{
		seq:       seq,
		record:    rec,
		fn:        fn,
		collector: stream.NewTimestampedCollector[O](out),
	}
}

// run stamps the collector and invokes the function. A panic in the function
// is returned as an error.
func (t *pendingTask[I, O]) run(ctx context.Context) error {
	var err error
	recovered := panics.Try(func() {
		t.collector.SetTimestamp(t.record.Timestamp)
		err = t.fn.FlatMap(ctx, t.record.Value, t.collector)
	})
	if recovered != nil {
		err = recovered.AsError()
	}
	if err != nil {
		return &TaskError{Seq: t.seq, Timestamp: t.record.Timestamp, Err: err}
	}
	return nil
}

// taskQueue holds pending tasks in admission order. It has one writer
// (Process) and one bulk reader (Stop) on the same goroutine, so it is not
// synchronised.
type taskQueue struct {
	tasks []runnable
}

func newTaskQueue() *taskQueue {
	return &taskQueue{}
}

func (q *taskQueue) push(t runnable) {
	q.tasks = append(q.tasks, t)
}

// drain returns every queued task in admission order and empties the queue.
func (q *taskQueue) drain() []runnable {
	tasks := q.tasks
	q.tasks = nil
	return tasks
}

func (q *taskQueue) size() int {
	return len(q.tasks)
}
