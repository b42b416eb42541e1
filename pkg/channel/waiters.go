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

package channel

// waitList is a FIFO of parked goroutines waiting for one condition. Unlike
// sync.Cond a waiter can leave the list when its context is done.
// All methods must be called with the owning channel's mutex held.
type waitList struct {
	waiters []chan struct{}
}

// enqueue parks a new waiter at the tail and returns its wake channel.
func (w *waitList) enqueue() chan struct{} {
	ch := make(chan struct{}, 1)
	w.waiters = append(w.waiters, ch)
	return ch
}

// signal wakes the oldest waiter, if any.
func (w *waitList) signal() {
	if len(w.waiters) == 0 {
		return
	}
	ch := w.waiters[0]
	w.waiters[0] = nil
	w.waiters = w.waiters[1:]
	ch <- struct{}{}
}

// broadcast wakes every waiter.
func (w *waitList) broadcast() {
	for _, ch := range w.waiters {
		ch <- struct{}{}
	}
	w.waiters = nil
}

// remove drops ch from the list. It returns false when ch was already woken.
func (w *waitList) remove(ch chan struct{}) bool {
	for i, c := range w.waiters {
		if c == ch {
			copy(w.waiters[i:], w.waiters[i+1:])
			w.waiters[len(w.waiters)-1] = nil
			w.waiters = w.waiters[:len(w.waiters)-1]
			return true
		}
	}
	return false
}

func (w *waitList) len() int {
	return len(w.waiters)
}
