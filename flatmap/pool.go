package flatmap

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/sourcegraph/conc/pool"

	apperrors "github.com/kbukum/streamop/errors"
	"github.com/kbukum/streamop/logger"
	"github.com/kbukum/streamop/observability"
	"github.com/kbukum/streamop/stream"
)

// ShutdownReport describes the last bulk run of a parallel operator.
type ShutdownReport struct {
	// Submitted is the number of tasks handed to the pool.
	Submitted int
	// Completed is the number of tasks whose function returned, failed ones included.
	Completed int
	// Failed is the number of tasks whose function returned an error or panicked.
	Failed int
	// Unfinished is Submitted minus Completed at the moment Stop returned.
	// It is non-zero only after a forced termination.
	Unfinished int
	// Forced reports whether the run stalled for a whole grace period or the
	// wait was cancelled.
	Forced bool
	// PeakConcurrency is the highest number of tasks observed running at once.
	PeakConcurrency int
	// Duration is the time spent in the bulk run and shutdown protocol.
	Duration time.Duration
}

func (r ShutdownReport) outcome() observability.StopOutcome {
	return observability.StopOutcome{
		Submitted:  r.Submitted,
		Completed:  r.Completed,
		Failed:     r.Failed,
		Unfinished: r.Unfinished,
		Forced:     r.Forced,
		Duration:   r.Duration,
	}
}

// workerPool runs one bulk submission on at most size goroutines and then
// shuts down. It cannot be reused.
type workerPool struct {
	size  int
	grace time.Duration
	log   *logger.Logger

	ctx    context.Context
	cancel context.CancelFunc
	tasks  *pool.ContextPool

	closed    atomic.Bool
	done      chan struct{}
	progress  chan struct{}
	running   atomic.Int64
	peak      atomic.Int64
	completed atomic.Int64
	failures  failureSet

	// gate guards terminated. Emissions hold the read lock, so none is
	// delivered once terminate has returned.
	gate       sync.RWMutex
	terminated bool
}

func newWorkerPool(parent context.Context, size int, grace time.Duration, log *logger.Logger) *workerPool {
	size = max(size, 1)
	ctx, cancel := context.WithCancel(parent)
	return &workerPool{
		size:     size,
		grace:    grace,
		log:      log,
		ctx:      ctx,
		cancel:   cancel,
		tasks:    pool.New().WithMaxGoroutines(size).WithContext(ctx),
		done:     make(chan struct{}),
		progress: make(chan struct{}, 1),
	}
}

// invokeAll submits every task in one bulk submission, closes the pool to
// further work and runs the shutdown protocol. Task failures are returned
// aggregated, ordered by admission sequence.
func (wp *workerPool) invokeAll(ctx context.Context, tasks []runnable) (ShutdownReport, error) {
	if !wp.closed.CompareAndSwap(false, true) {
		return ShutdownReport{}, apperrors.PoolClosed()
	}

	start := time.Now()
	go wp.dispatch(tasks)
	forced := wp.awaitTermination(ctx)

	completed := int(wp.completed.Load())
	failed, err := wp.failures.result()
	return ShutdownReport{
		Submitted:       len(tasks),
		Completed:       completed,
		Failed:          failed,
		Unfinished:      len(tasks) - completed,
		Forced:          forced,
		PeakConcurrency: int(wp.peak.Load()),
		Duration:        time.Since(start),
	}, err
}

// dispatch feeds the conc pool. Go blocks while all workers are busy, so it
// runs on its own goroutine to keep the grace period enforceable.
func (wp *workerPool) dispatch(tasks []runnable) {
	defer close(wp.done)
	for _, t := range tasks {
		wp.tasks.Go(wp.execute(t))
	}
	// Failures are collected by execute; Wait only joins the workers.
	_ = wp.tasks.Wait()
}

func (wp *workerPool) execute(t runnable) func(context.Context) error {
	return func(ctx context.Context) error {
		if ctx.Err() != nil {
			// terminated before this task started
			return nil
		}
		n := wp.running.Add(1)
		for {
			p := wp.peak.Load()
			if n <= p || wp.peak.CompareAndSwap(p, n) {
				break
			}
		}
		err := t.run(ctx)
		wp.running.Add(-1)
		if err != nil {
			wp.failures.add(err)
		}
		wp.completed.Add(1)
		select {
		case wp.progress <- struct{}{}:
		default:
		}
		return nil
	}
}

// awaitTermination waits for the bulk run to finish. The grace period
// restarts every time a task completes, so the pool is forced down only
// after a full grace period without progress, or at once when ctx is
// cancelled.
func (wp *workerPool) awaitTermination(ctx context.Context) bool {
	idle := time.NewTimer(wp.grace)
	defer idle.Stop()

	for {
		select {
		case <-wp.done:
			wp.terminate()
			return false
		case <-wp.progress:
			idle.Reset(wp.grace)
		case <-idle.C:
			wp.log.Warn("Worker pool made no progress within the grace period, forcing termination", logger.Fields(
				logger.FieldTimeout, wp.grace.Milliseconds(),
				logger.FieldCompleted, wp.completed.Load(),
			))
			wp.terminate()
			return true
		case <-ctx.Done():
			wp.log.Warn("Worker pool shutdown wait cancelled, forcing termination", logger.Fields(
				logger.FieldError, ctx.Err().Error(),
				logger.FieldCompleted, wp.completed.Load(),
			))
			wp.terminate()
			return true
		}
	}
}

// terminate cancels the pool context and closes the emission gate. Queued
// tasks are skipped; running tasks see a cancelled context and are not
// waited for, and whatever they emit afterwards is discarded.
func (wp *workerPool) terminate() {
	wp.cancel()
	wp.gate.Lock()
	wp.terminated = true
	wp.gate.Unlock()
}

// deliver runs collect unless the pool has terminated and reports whether
// it ran.
func (wp *workerPool) deliver(collect func()) bool {
	wp.gate.RLock()
	defer wp.gate.RUnlock()
	if wp.terminated {
		return false
	}
	collect()
	return true
}

// gatedOutput forwards to out for as long as wp has not terminated. Each
// run gets its own, so a task abandoned by a forced shutdown cannot emit
// into a later run.
func gatedOutput[O any](wp *workerPool, out stream.Output[O]) stream.Output[O] {
	return stream.OutputFunc[O](func(rec stream.Record[O]) {
		wp.deliver(func() { out.Collect(rec) })
	})
}

// failureSet accumulates task failures from concurrent workers.
type failureSet struct {
	mu   sync.Mutex
	errs []error
}

func (f *failureSet) add(err error) {
	f.mu.Lock()
	f.errs = append(f.errs, err)
	f.mu.Unlock()
}

// result returns the failure count and a multierror ordered by sequence.
func (f *failureSet) result() (int, error) {
	f.mu.Lock()
	errs := make([]error, len(f.errs))
	copy(errs, f.errs)
	f.mu.Unlock()

	sort.SliceStable(errs, func(i, j int) bool {
		return taskSeq(errs[i]) < taskSeq(errs[j])
	})
	var merr *multierror.Error
	for _, err := range errs {
		merr = multierror.Append(merr, err)
	}
	return len(errs), merr.ErrorOrNil()
}

func taskSeq(err error) uint64 {
	var te *TaskError
	if errors.As(err, &te) {
		return te.Seq
	}
	return 0
}
