// Package stream defines the record and output types shared by streamop
// operators.
//
// A Record pairs a value with the timestamp it was observed at. Operators
// hand user functions a Collector; a TimestampedCollector stamps every value
// emitted through it with the timestamp of the record being processed and
// forwards the stamped record to an Output.
//
// Outputs given to an operator running in parallel mode receive Collect calls
// from several goroutines and must be safe for concurrent use. MemoryOutput is.
package stream
