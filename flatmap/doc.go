// Package flatmap implements a one-to-many stream operator with an optional
// worker pool.
//
// An Operator applies a user Function to each record handed to Process and
// emits zero or more results through a stream.Collector. Every emitted record
// carries the timestamp of the record that produced it.
//
// # Modes
//
// Parallelism 0 selects inline mode: the function runs synchronously on the
// goroutine calling Process and its error is returned from Process.
//
// Parallelism N > 0 selects parallel mode, which defers all work until Stop:
//
//   - Process only appends a pending task to an unbounded FIFO queue. No
//     output is produced and nothing bounds the queue's memory.
//   - Stop hands every queued task to a pool of N workers in one bulk
//     submission and waits for them, bounded by Config.ShutdownTimeout.
//   - Outputs of different records arrive in no particular order. Only the
//     outputs of a single record keep the order the function emitted them in.
//
// This is not low-latency streaming; results of a parallel operator appear in
// one burst at shutdown.
//
// # Shutdown
//
// Stop closes the pool to new work and waits up to the grace period for the
// bulk run to finish. When the grace period elapses, or the context passed to
// Stop is cancelled, the pool context is cancelled and Stop returns without
// waiting further. Tasks that had not started are skipped and tasks still
// running are abandoned; their outputs may be partial or missing. This is not
// reported as an error: callers reasoning about at-least-once delivery must
// consult LastShutdown.
//
// # Calling contract
//
// Start, Process and Stop must be called from a single goroutine. The queue
// is not synchronised. Process after Stop, Process before Start and a second
// Start without Stop fail with ILLEGAL_LIFECYCLE_STATE.
//
//	op, err := flatmap.New(flatmap.Config{Parallelism: 4}, fn, out)
//	op.Start(ctx)
//	for _, rec := range records {
//	    op.Process(ctx, rec)
//	}
//	err = op.Stop(ctx) // all output is emitted here
package flatmap
