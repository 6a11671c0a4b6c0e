package stream

import (
	"sync"
	"sync/atomic"
)

// Output receives the records an operator emits.
type Output[T any] interface {
	Collect(rec Record[T])
}

// OutputFunc adapts a function to the Output interface.
type OutputFunc[T any] func(rec Record[T])

// Collect calls f(rec).
func (f OutputFunc[T]) Collect(rec Record[T]) { f(rec) }

// MemoryOutput buffers every collected record in arrival order.
// It is safe for concurrent use.
type MemoryOutput[T any] struct {
	mu      sync.Mutex
	records []Record[T]
	count   atomic.Int64
}

// NewMemoryOutput creates an empty MemoryOutput.
func NewMemoryOutput[T any]() *MemoryOutput[T] {
	return &MemoryOutput[T]{}
}

// Collect appends rec.
func (m *MemoryOutput[T]) Collect(rec Record[T]) {
	m.mu.Lock()
	m.records = append(m.records, rec)
	m.mu.Unlock()
	m.count.Add(1)
}

// Records returns a copy of everything collected so far.
func (m *MemoryOutput[T]) Records() []Record[T] {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Record[T], len(m.records))
	copy(out, m.records)
	return out
}

// Values returns the collected values without timestamps.
func (m *MemoryOutput[T]) Values() []T {
	recs := m.Records()
	out := make([]T, len(recs))
	for i, r := range recs {
		out[i] = r.Value
	}
	return out
}

// Len returns the number of collected records.
func (m *MemoryOutput[T]) Len() int {
	return int(m.count.Load())
}

// Reset discards everything collected so far.
func (m *MemoryOutput[T]) Reset() {
	m.mu.Lock()
	m.records = nil
	m.count.Store(0)
	m.mu.Unlock()
}
