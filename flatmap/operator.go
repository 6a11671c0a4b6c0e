package flatmap

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/kbukum/streamop/component"
	"github.com/kbukum/streamop/errors"
	"github.com/kbukum/streamop/logger"
	"github.com/kbukum/streamop/observability"
	"github.com/kbukum/streamop/stream"
)

type lifecycleState int32

const (
	stateCreated lifecycleState = iota
	stateRunning
	stateStopped
)

func (s lifecycleState) String() string {
	switch s {
	case stateRunning:
		return "running"
	case stateStopped:
		return "stopped"
	default:
		return "created"
	}
}

// Operator applies a Function to every processed record. See the package
// documentation for the inline and parallel execution contracts.
type Operator[I, O any] struct {
	cfg     Config
	id      string
	fn      Function[I, O]
	out     stream.Output[O]
	log     *logger.Logger
	metrics *observability.OperatorMetrics
	tracer  *observability.OperatorTracer

	state atomic.Int32
	seq   uint64
	queue *taskQueue
	pool  *workerPool
	// emit is the output of the current run.
	emit stream.Output[O]
	last ShutdownReport
}

var _ component.Component = (*Operator[int, int])(nil)

// New validates cfg and builds an operator that emits into out.
// Negative parallelism or shutdown timeout fail with INVALID_CONFIGURATION.
// out must be safe for concurrent use when cfg.Parallelism > 0.
func New[I, O any](cfg Config, fn Function[I, O], out stream.Output[O], opts ...Option) (*Operator[I, O], error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if fn == nil {
		return nil, errors.InvalidConfiguration("function", "a flat-map function is required")
	}
	if out == nil {
		return nil, errors.InvalidConfiguration("output", "an output is required")
	}

	o := buildOptions(cfg.Name, opts)
	mode := cfg.Mode()
	metrics, err := observability.NewOperatorMetrics(o.meterProvider.Meter(instrumentationName), cfg.Name, string(mode))
	if err != nil {
		return nil, errors.Internal(err)
	}

	id := uuid.NewString()
	op := &Operator[I, O]{
		cfg: cfg,
		id:  id,
		fn:  fn,
		log: o.logger.ForOperator(cfg.Name, id, string(mode), cfg.Parallelism),
		metrics: metrics,
		tracer:  observability.NewOperatorTracer(o.tracerProvider.Tracer(instrumentationName), id, cfg.Parallelism),
	}
	op.out = stream.OutputFunc[O](func(rec stream.Record[O]) {
		metrics.RecordEmitted(context.Background())
		out.Collect(rec)
	})
	return op, nil
}

// NewInline builds an operator with parallelism 0.
func NewInline[I, O any](fn Function[I, O], out stream.Output[O], opts ...Option) (*Operator[I, O], error) {
	return New(Config{}, fn, out, opts...)
}

// Name returns the configured operator name.
func (o *Operator[I, O]) Name() string { return o.cfg.Name }

// ID returns the unique instance ID attached to logs and spans.
func (o *Operator[I, O]) ID() string { return o.id }

// Mode returns the execution mode.
func (o *Operator[I, O]) Mode() Mode { return o.cfg.Mode() }

// Parallelism returns the configured worker count.
func (o *Operator[I, O]) Parallelism() int { return o.cfg.Parallelism }

// Pending returns the number of records queued for the next Stop.
// It is always 0 in inline mode.
func (o *Operator[I, O]) Pending() int {
	if o.queue == nil {
		return 0
	}
	return o.queue.size()
}

// LastShutdown returns the report of the most recent parallel Stop.
func (o *Operator[I, O]) LastShutdown() ShutdownReport { return o.last }

// Start prepares the operator for Process. In parallel mode it creates a
// worker pool of max(parallelism, 1) workers, an empty queue and an output
// that only this run's tasks can reach.
// Starting a running operator fails with ILLEGAL_LIFECYCLE_STATE; a stopped
// operator may be started again.
func (o *Operator[I, O]) Start(ctx context.Context) error {
	if s := o.loadState(); s == stateRunning {
		return errors.IllegalLifecycleState("Start", s.String())
	}

	o.seq = 0
	o.emit = o.out
	if o.cfg.Parallelism > 0 {
		o.queue = newTaskQueue()
		o.pool = newWorkerPool(context.WithoutCancel(ctx), o.cfg.Parallelism, o.cfg.ShutdownTimeout, o.log)
		o.emit = gatedOutput(o.pool, o.out)
	}
	o.state.Store(int32(stateRunning))

	o.log.Info("Operator started")
	return nil
}

// Process handles one record.
//
// Inline mode runs the function before returning and returns its error, a
// recovered panic included, as a *TaskError. Parallel mode only queues the
// record and returns nil; the function runs during Stop.
//
// Process fails with ILLEGAL_LIFECYCLE_STATE before Start and after Stop.
func (o *Operator[I, O]) Process(ctx context.Context, rec stream.Record[I]) error {
	if s := o.loadState(); s != stateRunning {
		return errors.IllegalLifecycleState("Process", s.String())
	}

	o.seq++
	task := newPendingTask(o.seq, rec, o.fn, o.emit)
	if o.queue != nil {
		o.queue.push(task)
		o.metrics.RecordAdmitted(ctx)
		return nil
	}

	err := task.run(ctx)
	if err != nil {
		o.metrics.RecordProcessed(ctx, 1, 1)
		o.log.Debug("Record failed", logger.Fields(logger.FieldTaskSeq, o.seq, logger.FieldError, err.Error()))
		return err
	}
	o.metrics.RecordProcessed(ctx, 1, 0)
	return nil
}

// Stop ends the run. In parallel mode it drains the queue into the worker
// pool in one bulk submission and blocks until every task has finished. The
// shutdown timeout applies from the last completed task: a run that makes no
// progress for that long, or whose ctx is cancelled, is terminated and
// anything its abandoned tasks emit later is discarded. Failed tasks are
// reported together as a TASK_FAILED error whose cause lists every failure
// in admission order. A forced termination is not an error; see LastShutdown.
//
// Stop fails with ILLEGAL_LIFECYCLE_STATE unless the operator is running.
func (o *Operator[I, O]) Stop(ctx context.Context) error {
	if s := o.loadState(); s != stateRunning {
		return errors.IllegalLifecycleState("Stop", s.String())
	}
	defer o.state.Store(int32(stateStopped))

	if o.pool == nil {
		o.log.Info("Operator stopped", logger.Fields(logger.FieldCompleted, o.seq))
		return nil
	}

	ctx, span := o.tracer.StartStop(ctx)

	tasks := o.queue.drain()
	pool := o.pool
	o.queue, o.pool = nil, nil
	o.metrics.RecordDrained(ctx, len(tasks))
	o.log.Debug("Submitting queued tasks", logger.Fields(logger.FieldSubmitted, len(tasks)))

	report, err := pool.invokeAll(ctx, tasks)
	o.last = report
	outcome := report.outcome()
	o.metrics.RecordStop(ctx, outcome)

	var stopErr error
	if err != nil {
		stopErr = errors.TaskFailed(report.Failed, err)
	}
	o.logStop(ctx, report, stopErr)
	observability.EndStop(span, outcome, stopErr)
	return stopErr
}

func (o *Operator[I, O]) logStop(ctx context.Context, report ShutdownReport, err error) {
	log := o.log.WithContext(ctx)
	fields := logger.Fields(
		logger.FieldSubmitted, report.Submitted,
		logger.FieldCompleted, report.Completed,
		logger.FieldFailed, report.Failed,
		logger.FieldUnfinished, report.Unfinished,
		logger.FieldDuration, report.Duration.Milliseconds(),
	)
	switch {
	case err != nil:
		log.Error("Operator stopped with failed tasks", logger.MergeWithError(fields, err))
	case report.Forced:
		log.Warn("Operator stopped after forced termination", fields)
	default:
		log.Info("Operator stopped", fields)
	}
}

// Health reports healthy while running. A run that ended in a forced
// termination degrades the status until the next Start.
func (o *Operator[I, O]) Health(_ context.Context) component.Health {
	s := o.loadState()
	h := component.Health{
		Name:    o.cfg.Name,
		Status:  component.StatusHealthy,
		Message: fmt.Sprintf("%s, %s mode", s, o.cfg.Mode()),
	}
	switch {
	case s != stateRunning && o.last.Forced:
		h.Status = component.StatusDegraded
		h.Message = fmt.Sprintf("%s, last shutdown abandoned %d task(s)", s, o.last.Unfinished)
	case s != stateRunning:
		h.Status = component.StatusUnhealthy
	}
	return h
}

func (o *Operator[I, O]) loadState() lifecycleState {
	return lifecycleState(o.state.Load())
}
