/*
 * Copyright 2025 SREDiag Authors
 * Copyright 2023 CloudWeGo Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package channel provides Bounded, a FIFO producer/consumer channel with a
// fixed capacity whose blocking operations can be cancelled through a context.
//
// Put blocks while the channel is full and Get blocks while it is empty. Close
// stops further Puts; Gets keep draining buffered items in order and then fail
// with ErrClosedEmpty. A cancelled Put or Get leaves the channel untouched.
package channel

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	queuepkg "github.com/Workiva/go-datastructures/queue"

	"github.com/srediag/syncres/api"
	"github.com/srediag/syncres/internal/logging"
	"github.com/srediag/syncres/pkg/guard"
)

var logger = logging.New("channel", nil)

// Stats is a point in time view of a channel.
type Stats struct {
	Len         int
	Cap         int
	Puts        uint64
	Gets        uint64
	Cancelled   uint64
	BlockedPuts int
	BlockedGets int
	Closed      bool
}

// Bounded is a FIFO channel holding at most Cap items.
type Bounded[T any] struct {
	name     string
	capacity int
	instr    *instruments

	mu       sync.Mutex
	items    *queuepkg.Queue
	closed   bool
	notFull  waitList
	notEmpty waitList

	puts      atomic.Uint64
	gets      atomic.Uint64
	cancelled atomic.Uint64
}

// New returns an empty channel holding at most capacity items.
func New[T any](capacity int) (*Bounded[T], error) {
	config := DefaultConfig()
	config.Capacity = capacity
	return NewWithConfig[T](config)
}

// NewWithConfig returns an empty channel configured by config.
func NewWithConfig[T any](config *Config) (*Bounded[T], error) {
	if err := VerifyConfig(config); err != nil {
		return nil, err
	}
	instr, err := newInstruments(config.Meter, config.Name)
	if err != nil {
		return nil, err
	}
	return &Bounded[T]{
		name:     config.Name,
		capacity: config.Capacity,
		instr:    instr,
		items:    queuepkg.New(int64(config.Capacity)),
	}, nil
}

// Put appends item, blocking while the channel is full. It fails with
// ErrClosed once the channel is closed, or with ErrCancelled when ctx is done
// first; in both cases item is not enqueued.
func (b *Bounded[T]) Put(ctx context.Context, item T) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for {
		if b.closed {
			return ErrClosed
		}
		if b.size() < b.capacity {
			break
		}
		if err := b.wait(ctx, &b.notFull); err != nil {
			return err
		}
	}
	b.push(ctx, item)
	return nil
}

// TryPut appends item if there is room, without blocking.
func (b *Bounded[T]) TryPut(item T) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}
	if b.size() >= b.capacity {
		return ErrFull
	}
	b.push(context.Background(), item)
	return nil
}

// Get removes and returns the oldest item, blocking while the channel is
// empty. Once the channel is closed and drained it fails with ErrClosedEmpty.
// It fails with ErrCancelled when ctx is done first, leaving the channel as it was.
func (b *Bounded[T]) Get(ctx context.Context) (T, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for {
		if b.size() > 0 {
			break
		}
		if b.closed {
			var zero T
			return zero, ErrClosedEmpty
		}
		if err := b.wait(ctx, &b.notEmpty); err != nil {
			var zero T
			return zero, err
		}
	}
	return b.pop(ctx), nil
}

// TryGet removes and returns the oldest item if there is one, without blocking.
func (b *Bounded[T]) TryGet() (T, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.size() == 0 {
		var zero T
		if b.closed {
			return zero, ErrClosedEmpty
		}
		return zero, ErrEmpty
	}
	return b.pop(context.Background()), nil
}

// Close stops accepting Puts and wakes every blocked caller. Buffered items
// stay available to Get. Closing twice returns ErrClosed.
func (b *Bounded[T]) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}
	b.closed = true
	logger.Debugf("channel %s closed with %d buffered, waking %d puts and %d gets",
		b.name, b.size(), b.notFull.len(), b.notEmpty.len())
	b.notFull.broadcast()
	b.notEmpty.broadcast()
	return nil
}

// Len returns the number of buffered items.
func (b *Bounded[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.size()
}

// Cap returns the capacity.
func (b *Bounded[T]) Cap() int {
	return b.capacity
}

// Closed reports whether Close was called.
func (b *Bounded[T]) Closed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

// Name returns the configured name.
func (b *Bounded[T]) Name() string {
	return b.name
}

func (b *Bounded[T]) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Stats{
		Len:         b.size(),
		Cap:         b.capacity,
		Puts:        b.puts.Load(),
		Gets:        b.gets.Load(),
		Cancelled:   b.cancelled.Load(),
		BlockedPuts: b.notFull.len(),
		BlockedGets: b.notEmpty.len(),
		Closed:      b.closed,
	}
}

func (b *Bounded[T]) size() int {
	return int(b.items.Len())
}

// push and pop require b.mu and a checked size.
func (b *Bounded[T]) push(ctx context.Context, item T) {
	if err := b.items.Put(item); err != nil {
		// the queue is never disposed while the channel is reachable
		panic(err)
	}
	b.puts.Add(1)
	b.instr.put(ctx)
	b.notEmpty.signal()
}

func (b *Bounded[T]) pop(ctx context.Context) T {
	items, err := b.items.Get(1)
	if err != nil || len(items) != 1 {
		panic("channel: buffered item vanished")
	}
	item, _ := items[0].(T)
	b.gets.Add(1)
	b.instr.get(ctx)
	b.notFull.signal()
	return item
}

// wait parks on list until signalled or ctx is done. It is entered and
// returns with b.mu held, but never holds b.mu while parked.
func (b *Bounded[T]) wait(ctx context.Context, list *waitList) error {
	ch := list.enqueue()
	b.mu.Unlock()
	start := time.Now()
	var err error
	select {
	case <-ch:
	case <-ctx.Done():
		err = guard.Cancelled(ctx)
	}
	b.instr.waited(ctx, time.Since(start))
	b.mu.Lock()
	if err != nil {
		if !list.remove(ch) {
			// signalled and cancelled at once, hand the wakeup on
			list.signal()
		}
		b.cancelled.Add(1)
		b.instr.cancel(ctx)
		logger.Tracef("channel %s: blocked call cancelled: %v", b.name, err)
	}
	return err
}

var _ api.Queue[int] = (*Bounded[int])(nil)
