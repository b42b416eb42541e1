// Package api defines the public contracts of syncres. Higher layers such as
// the workload runner accept these interfaces; the pkg/ packages return
// concrete types that satisfy them.
package api

import "context"

// Counter is a concurrency-safe integer counter.
type Counter interface {
	// Increment adds one to the counter.
	Increment()
	// Add adds delta to the counter.
	Add(delta int64)
	// Value returns the current count.
	Value() int64
}

// Queue is a bounded FIFO whose Put and Get block until space or data is
// available, the queue is closed, or ctx is done.
type Queue[T any] interface {
	Put(ctx context.Context, item T) error
	Get(ctx context.Context) (T, error)
	Close() error
	Len() int
	Cap() int
}

// Sink records a line on behalf of a worker. Implementations serialize
// concurrent appends so lines never interleave.
type Sink interface {
	Append(ctx context.Context, worker int, line string) error
}
