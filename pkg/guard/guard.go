/*
 * Copyright 2025 SREDiag Authors
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

// Package guard provides Resource, a value that can only be reached while
// holding its exclusive lock.
//
// All access goes through closures, so the lock cannot be forgotten and is
// released on every exit path of the closure, panics included:
//
//	r := guard.New(map[string]int{})
//	err := r.WithLock(ctx, func(m *map[string]int) error {
//		(*m)["hits"]++
//		return nil
//	})
//
// A Resource must not be copied after first use; pass *Resource around.
package guard

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/srediag/syncres/internal/logging"
)

var (
	// ErrCancelled is returned when ctx is done before the lock was acquired.
	// The returned error also wraps the context cause.
	ErrCancelled = errors.New("operation cancelled")
	// ErrPoisoned is returned by a resource created WithPoisonOnPanic after a
	// closure panicked while holding the lock.
	ErrPoisoned = errors.New("resource poisoned by a panic while locked")
)

var logger = logging.New("guard", nil)

// Cancelled wraps the cause of ctx with ErrCancelled.
func Cancelled(ctx context.Context) error {
	return fmt.Errorf("%w: %w", ErrCancelled, context.Cause(ctx))
}

// noCopy lets go vet's copylocks check flag copies of a Resource.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}

// Option configures a Resource.
type Option func(*options)

type options struct {
	poisonOnPanic bool
}

// WithPoisonOnPanic makes a panic inside a closure poison the resource: the
// lock is still released, but later calls fail with ErrPoisoned until
// ClearPoison. Without it the value is considered valid after a panic.
func WithPoisonOnPanic() Option {
	return func(o *options) {
		o.poisonOnPanic = true
	}
}

// Resource owns a value of type T and the lock that protects it.
type Resource[T any] struct {
	_ noCopy

	// sem is a one slot semaphore. Blocked senders are queued in arrival
	// order, so every waiter is eventually served.
	sem      chan struct{}
	value    T
	opts     options
	poisoned atomic.Bool
}

// New returns a Resource owning initial.
func New[T any](initial T, opts ...Option) *Resource[T] {
	r := &Resource[T]{
		sem:   make(chan struct{}, 1),
		value: initial,
	}
	for _, opt := range opts {
		opt(&r.opts)
	}
	return r
}

func (r *Resource[T]) acquire(ctx context.Context) error {
	select {
	case r.sem <- struct{}{}:
		return nil
	default:
	}
	select {
	case r.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return Cancelled(ctx)
	}
}

func (r *Resource[T]) release() {
	<-r.sem
}

// run calls fn with the lock held and releases it however fn exits.
func (r *Resource[T]) run(fn func(*T) error) (err error) {
	if r.opts.poisonOnPanic && r.poisoned.Load() {
		r.release()
		return ErrPoisoned
	}
	completed := false
	defer func() {
		if !completed && r.opts.poisonOnPanic {
			r.poisoned.Store(true)
			logger.Warnf("resource poisoned by a panic in a locked closure")
		}
		r.release()
	}()
	err = fn(&r.value)
	completed = true
	return err
}

// WithLock runs fn with exclusive access to the value and returns fn's error.
// If ctx is done while waiting for the lock, fn is not called and the error
// wraps ErrCancelled. The pointer passed to fn must not escape fn.
func (r *Resource[T]) WithLock(ctx context.Context, fn func(v *T) error) error {
	if err := r.acquire(ctx); err != nil {
		return err
	}
	return r.run(fn)
}

// TryWithLock runs fn only if the lock is free. It reports whether fn ran.
func (r *Resource[T]) TryWithLock(fn func(v *T) error) (bool, error) {
	select {
	case r.sem <- struct{}{}:
	default:
		return false, nil
	}
	return true, r.run(fn)
}

// Do runs fn with exclusive access to the value of r and returns its result.
func Do[T, R any](ctx context.Context, r *Resource[T], fn func(v *T) (R, error)) (R, error) {
	var res R
	err := r.WithLock(ctx, func(v *T) error {
		var err error
		res, err = fn(v)
		return err
	})
	return res, err
}

// Load returns a copy of the value.
func (r *Resource[T]) Load(ctx context.Context) (T, error) {
	return Do(ctx, r, func(v *T) (T, error) {
		return *v, nil
	})
}

// Store replaces the value.
func (r *Resource[T]) Store(ctx context.Context, val T) error {
	return r.WithLock(ctx, func(v *T) error {
		*v = val
		return nil
	})
}

// Poisoned reports whether a panic poisoned the resource.
func (r *Resource[T]) Poisoned() bool {
	return r.poisoned.Load()
}

// ClearPoison marks the value as consistent again without touching it.
func (r *Resource[T]) ClearPoison() {
	r.poisoned.Store(false)
}

// Recover runs fn with the lock held even when the resource is poisoned, so
// the caller can repair the value. The poison is cleared when fn returns nil.
func (r *Resource[T]) Recover(ctx context.Context, fn func(v *T) error) error {
	if err := r.acquire(ctx); err != nil {
		return err
	}
	defer r.release()
	if err := fn(&r.value); err != nil {
		return err
	}
	r.poisoned.Store(false)
	return nil
}
