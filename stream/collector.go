package stream

import "time"

// Collector is the handle a user function emits results through.
type Collector[T any] interface {
	// Emit appends one output value.
	Emit(value T)
}

// TimestampedCollector stamps emitted values with a timestamp set before the
// user function runs. One collector belongs to one task at a time; it is not
// safe for concurrent use.
type TimestampedCollector[T any] struct {
	out Output[T]
	ts  time.Time
}

// NewTimestampedCollector creates a collector forwarding to out with no timestamp.
func NewTimestampedCollector[T any](out Output[T]) *TimestampedCollector[T] {
	return &TimestampedCollector[T]{out: out}
}

// SetTimestamp copies ts onto every subsequent emission. A zero ts erases the
// stamp so outputs of an untimed record carry no timestamp.
func (c *TimestampedCollector[T]) SetTimestamp(ts time.Time) {
	c.ts = ts
}

// EraseTimestamp clears the stamp.
func (c *TimestampedCollector[T]) EraseTimestamp() {
	c.ts = time.Time{}
}

// Timestamp returns the current stamp.
func (c *TimestampedCollector[T]) Timestamp() time.Time {
	return c.ts
}

// Emit forwards value to the output, stamped with the current timestamp.
func (c *TimestampedCollector[T]) Emit(value T) {
	c.out.Collect(Record[T]{Value: value, Timestamp: c.ts})
}
