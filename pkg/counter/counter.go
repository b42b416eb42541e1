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

// Package counter implements api.Counter with two interchangeable strategies:
// a lock-based counter built on guard.Resource and a lock-free atomic one.
package counter

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/srediag/syncres/api"
	"github.com/srediag/syncres/pkg/guard"
)

// Strategy selects a counter implementation.
type Strategy int

const (
	StrategyMutex Strategy = iota
	StrategyAtomic
)

func (s Strategy) String() string {
	switch s {
	case StrategyMutex:
		return "mutex"
	case StrategyAtomic:
		return "atomic"
	default:
		return fmt.Sprintf("Strategy(%d)", int(s))
	}
}

// ParseStrategy maps "mutex" or "atomic" to a Strategy.
func ParseStrategy(name string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "mutex", "lock":
		return StrategyMutex, nil
	case "atomic":
		return StrategyAtomic, nil
	default:
		return 0, fmt.Errorf("unknown counter strategy %q", name)
	}
}

// New returns a counter using strategy s.
func New(s Strategy) (api.Counter, error) {
	switch s {
	case StrategyMutex:
		return NewMutex(), nil
	case StrategyAtomic:
		return NewAtomic(), nil
	default:
		return nil, fmt.Errorf("unknown counter strategy %v", s)
	}
}

// Mutex is a counter whose read-modify-write runs under an exclusive lock.
type Mutex struct {
	res *guard.Resource[int64]
}

func NewMutex() *Mutex {
	return &Mutex{res: guard.New[int64](0)}
}

func (m *Mutex) Increment() {
	m.Add(1)
}

// Add never fails: the background context cannot be cancelled and the
// resource is not poisonable.
func (m *Mutex) Add(delta int64) {
	_ = m.res.WithLock(context.Background(), func(v *int64) error {
		*v += delta
		return nil
	})
}

func (m *Mutex) Value() int64 {
	v, _ := m.res.Load(context.Background())
	return v
}

// Atomic is a lock-free counter using hardware fetch-and-add.
type Atomic struct {
	v atomic.Int64
}

func NewAtomic() *Atomic {
	return &Atomic{}
}

func (a *Atomic) Increment() {
	a.v.Add(1)
}

func (a *Atomic) Add(delta int64) {
	a.v.Add(delta)
}

func (a *Atomic) Value() int64 {
	return a.v.Load()
}

var (
	_ api.Counter = (*Mutex)(nil)
	_ api.Counter = (*Atomic)(nil)
)
