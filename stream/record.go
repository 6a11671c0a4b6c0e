package stream

import "time"

// Record is one element flowing through a pipeline.
// A zero Timestamp means the record carries no timestamp.
type Record[T any] struct {
	Value     T
	Timestamp time.Time
}

// NewRecord creates a record with the given timestamp.
func NewRecord[T any](value T, ts time.Time) Record[T] {
	return Record[T]{Value: value, Timestamp: ts}
}

// Untimed creates a record without a timestamp.
func Untimed[T any](value T) Record[T] {
	return Record[T]{Value: value}
}

// HasTimestamp reports whether the record carries a timestamp.
func (r Record[T]) HasTimestamp() bool {
	return !r.Timestamp.IsZero()
}
