package pipeline

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-multierror"

	"github.com/kbukum/streamop/stream"
)

// Stage is a lifecycle-managed record consumer, such as *flatmap.Operator.
type Stage[I any] interface {
	Start(ctx context.Context) error
	Process(ctx context.Context, rec stream.Record[I]) error
	Stop(ctx context.Context) error
}

// Run starts stage, feeds it every record of src from the calling goroutine
// and stops it. Feeding halts at the first source or Process error; Stop
// still runs and its error is returned together with the feeding error.
func Run[I any](ctx context.Context, src *Source[stream.Record[I]], stage Stage[I]) error {
	if err := stage.Start(ctx); err != nil {
		return fmt.Errorf("start stage: %w", err)
	}

	var errs *multierror.Error
	if err := feed(ctx, src, stage); err != nil {
		errs = multierror.Append(errs, err)
	}
	if err := stage.Stop(ctx); err != nil {
		errs = multierror.Append(errs, err)
	}
	return errs.ErrorOrNil()
}

func feed[I any](ctx context.Context, src *Source[stream.Record[I]], stage Stage[I]) error {
	iter := src.open(ctx)
	defer iter.Close()
	for {
		rec, ok, err := iter.Next(ctx)
		if err != nil {
			return fmt.Errorf("read source: %w", err)
		}
		if !ok {
			return nil
		}
		if err := stage.Process(ctx, rec); err != nil {
			return err
		}
	}
}
