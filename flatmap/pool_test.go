package flatmap

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/kbukum/streamop/errors"
	"github.com/kbukum/streamop/logger"
	"github.com/kbukum/streamop/stream"
)

// runFunc adapts a function to runnable.
type runFunc func(ctx context.Context) error

func (f runFunc) run(ctx context.Context) error { return f(ctx) }

func TestWorkerPoolSizeAtLeastOne(t *testing.T) {
	wp := newWorkerPool(context.Background(), 0, time.Second, logger.NewNop())
	if wp.size != 1 {
		t.Errorf("expected size 1, got %d", wp.size)
	}
	if _, err := wp.invokeAll(context.Background(), nil); err != nil {
		t.Fatal(err)
	}
}

func TestWorkerPoolRejectsSecondSubmission(t *testing.T) {
	wp := newWorkerPool(context.Background(), 2, time.Second, logger.NewNop())
	if _, err := wp.invokeAll(context.Background(), nil); err != nil {
		t.Fatal(err)
	}
	_, err := wp.invokeAll(context.Background(), nil)
	if !errors.HasCode(err, errors.ErrCodePoolClosed) {
		t.Errorf("expected POOL_CLOSED, got %v", err)
	}
}

func TestWorkerPoolFailuresSortedBySeq(t *testing.T) {
	wp := newWorkerPool(context.Background(), 4, time.Second, logger.NewNop())
	tasks := make([]runnable, 0, 6)
	for seq := uint64(6); seq >= 1; seq-- {
		tasks = append(tasks, runFunc(func(context.Context) error {
			if seq%2 == 0 {
				return &TaskError{Seq: seq, Err: fmt.Errorf("even %d", seq)}
			}
			return nil
		}))
	}

	report, err := wp.invokeAll(context.Background(), tasks)
	if report.Failed != 3 || report.Completed != 6 {
		t.Fatalf("unexpected report %+v", report)
	}
	var merr *multierror.Error
	if !stderrors.As(err, &merr) {
		t.Fatalf("expected multierror, got %v", err)
	}
	var got []string
	for _, e := range merr.Errors {
		got = append(got, e.Error())
	}
	if want := "[record 2: even 2 record 4: even 4 record 6: even 6]"; fmt.Sprint(got) != want {
		t.Errorf("failures = %v, want %s", got, want)
	}
}

func TestWorkerPoolSkipsTasksAfterTermination(t *testing.T) {
	wp := newWorkerPool(context.Background(), 1, 20*time.Millisecond, logger.NewNop())
	ran := make(chan int, 3)
	tasks := []runnable{
		runFunc(func(ctx context.Context) error { ran <- 1; <-ctx.Done(); return nil }),
		runFunc(func(context.Context) error { ran <- 2; return nil }),
		runFunc(func(context.Context) error { ran <- 3; return nil }),
	}

	report, err := wp.invokeAll(context.Background(), tasks)
	if err != nil {
		t.Fatal(err)
	}
	if !report.Forced || report.Unfinished < 2 {
		t.Errorf("unexpected report %+v", report)
	}

	<-wp.done
	close(ran)
	var started []int
	for n := range ran {
		started = append(started, n)
	}
	if fmt.Sprint(started) != "[1]" {
		t.Errorf("expected only the first task to start, got %v", started)
	}
}

func TestGatedOutputClosesOnTermination(t *testing.T) {
	wp := newWorkerPool(context.Background(), 1, time.Second, logger.NewNop())
	out := stream.NewMemoryOutput[int]()
	gated := gatedOutput[int](wp, out)

	gated.Collect(stream.Untimed(1))
	wp.terminate()
	gated.Collect(stream.Untimed(2))

	if got := fmt.Sprint(out.Values()); got != "[1]" {
		t.Errorf("expected emissions after termination to be discarded, got %s", got)
	}
	if wp.deliver(func() {}) {
		t.Error("expected deliver to refuse after termination")
	}
}

func TestPendingTaskStampsCollector(t *testing.T) {
	out := stream.NewMemoryOutput[string]()
	ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	fn := FunctionFunc[int, string](func(_ context.Context, v int, c stream.Collector[string]) error {
		c.Emit(fmt.Sprint(v))
		return nil
	})

	task := newPendingTask[int, string](7, stream.NewRecord(42, ts), fn, out)
	if err := task.run(context.Background()); err != nil {
		t.Fatal(err)
	}
	recs := out.Records()
	if len(recs) != 1 || recs[0].Value != "42" || !recs[0].Timestamp.Equal(ts) {
		t.Errorf("unexpected output %+v", recs)
	}
}

func TestPendingTaskError(t *testing.T) {
	ts := time.Unix(10, 0)
	fn := FunctionFunc[int, int](func(context.Context, int, stream.Collector[int]) error {
		return errBadRecord
	})
	err := newPendingTask[int, int](3, stream.NewRecord(1, ts), fn, stream.NewMemoryOutput[int]()).run(context.Background())

	var te *TaskError
	if !stderrors.As(err, &te) {
		t.Fatalf("expected *TaskError, got %v", err)
	}
	if te.Seq != 3 || !te.Timestamp.Equal(ts) || !stderrors.Is(err, errBadRecord) {
		t.Errorf("unexpected task error %+v", te)
	}
	if te.Error() != "record 3: bad record" {
		t.Errorf("unexpected message %q", te.Error())
	}
}

func TestTaskQueueFIFO(t *testing.T) {
	q := newTaskQueue()
	for i := 1; i <= 3; i++ {
		q.push(runFunc(func(context.Context) error { return fmt.Errorf("%d", i) }))
	}
	if q.size() != 3 {
		t.Fatalf("expected size 3, got %d", q.size())
	}
	tasks := q.drain()
	if q.size() != 0 {
		t.Errorf("expected empty queue after drain, got %d", q.size())
	}
	for i, task := range tasks {
		if got := task.run(context.Background()).Error(); got != fmt.Sprint(i+1) {
			t.Errorf("task %d: expected admission order, got %s", i, got)
		}
	}
}
