package pipeline

import (
	"context"
	"time"

	"github.com/kbukum/streamop/stream"
)

// Iterator provides pull-based sequential access to a stream of values.
type Iterator[T any] interface {
	// Next returns the next value. Returns (zero, false, nil) when exhausted.
	Next(ctx context.Context) (T, bool, error)
	// Close releases any resources held by the iterator.
	Close() error
}

// Source is a lazy stream of values. Nothing is read until Run pulls from it,
// and every Run opens a fresh iterator.
type Source[T any] struct {
	open func(ctx context.Context) Iterator[T]
}

// FromSlice reads the values of items in order.
func FromSlice[T any](items []T) *Source[T] {
	return &Source[T]{
		open: func(context.Context) Iterator[T] {
			return &sliceIter[T]{items: items}
		},
	}
}

// FromChannel reads values until ch is closed. A cancelled context ends the
// read with the context's error.
func FromChannel[T any](ch <-chan T) *Source[T] {
	return &Source[T]{
		open: func(context.Context) Iterator[T] {
			return chanIter[T](ch)
		},
	}
}

// Records wraps every value in an untimed record.
func Records[T any](src *Source[T]) *Source[stream.Record[T]] {
	return wrap(src, stream.Untimed[T])
}

// Timestamped wraps every value in a record stamped with clock() at the
// time it is read.
func Timestamped[T any](src *Source[T], clock func() time.Time) *Source[stream.Record[T]] {
	return wrap(src, func(v T) stream.Record[T] {
		return stream.NewRecord(v, clock())
	})
}

func wrap[T any](src *Source[T], rec func(T) stream.Record[T]) *Source[stream.Record[T]] {
	return &Source[stream.Record[T]]{
		open: func(ctx context.Context) Iterator[stream.Record[T]] {
			return &recordIter[T]{source: src.open(ctx), rec: rec}
		},
	}
}

type sliceIter[T any] struct {
	items []T
	index int
}

func (it *sliceIter[T]) Next(context.Context) (T, bool, error) {
	if it.index >= len(it.items) {
		var zero T
		return zero, false, nil
	}
	val := it.items[it.index]
	it.index++
	return val, true, nil
}

func (it *sliceIter[T]) Close() error { return nil }

type chanIter[T any] <-chan T

func (it chanIter[T]) Next(ctx context.Context) (T, bool, error) {
	select {
	case v, ok := <-it:
		return v, ok, nil
	case <-ctx.Done():
		var zero T
		return zero, false, ctx.Err()
	}
}

func (chanIter[T]) Close() error { return nil }

type recordIter[T any] struct {
	source Iterator[T]
	rec    func(T) stream.Record[T]
}

func (it *recordIter[T]) Next(ctx context.Context) (stream.Record[T], bool, error) {
	v, ok, err := it.source.Next(ctx)
	if err != nil || !ok {
		return stream.Record[T]{}, false, err
	}
	return it.rec(v), true, nil
}

func (it *recordIter[T]) Close() error { return it.source.Close() }
