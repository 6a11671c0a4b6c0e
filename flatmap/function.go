package flatmap

import (
	"context"

	"github.com/kbukum/streamop/stream"
)

// Function transforms one input value into zero or more outputs emitted
// through out. In parallel mode ctx is cancelled when the pool is forcibly
// terminated; long-running functions should watch it.
type Function[I, O any] interface {
	FlatMap(ctx context.Context, value I, out stream.Collector[O]) error
}

// FunctionFunc adapts a plain function to the Function interface.
type FunctionFunc[I, O any] func(ctx context.Context, value I, out stream.Collector[O]) error

// FlatMap calls f(ctx, value, out).
func (f FunctionFunc[I, O]) FlatMap(ctx context.Context, value I, out stream.Collector[O]) error {
	return f(ctx, value, out)
}
