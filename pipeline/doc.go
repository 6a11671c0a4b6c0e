// Package pipeline is the minimal runtime that drives records through a
// flat-map operator.
//
// A Source is a lazy, pull-based stream of values read from a slice or a
// channel; Records and Timestamped turn it into a stream of records. Run
// drives a Stage through its whole lifecycle:
//
//	Start → Process for every record → Stop
//
// Stop is always called once Start succeeded, so a parallel operator gets to
// execute its queued records even when the source fails part way.
//
// # Usage
//
//	src := pipeline.Timestamped(pipeline.FromChannel(lines), time.Now)
//	op, _ := flatmap.New(flatmap.Config{Parallelism: 4}, tokenize, sink)
//	err := pipeline.Run(ctx, src, op)
package pipeline
