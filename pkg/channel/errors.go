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

import (
	"errors"
	"fmt"

	"github.com/srediag/syncres/pkg/guard"
)

var (
	// ErrClosed is returned by Put after Close, and by a second Close.
	ErrClosed = errors.New("channel closed")
	// ErrClosedEmpty is returned by Get once a closed channel is drained.
	// errors.Is(ErrClosedEmpty, ErrClosed) holds.
	ErrClosedEmpty = fmt.Errorf("%w and empty", ErrClosed)
	// ErrCancelled is returned when ctx is done while Put or Get is blocked.
	ErrCancelled = guard.ErrCancelled
	// ErrFull is returned by TryPut when the channel is at capacity.
	ErrFull = errors.New("channel full")
	// ErrEmpty is returned by TryGet when no item is buffered.
	ErrEmpty = errors.New("channel empty")
	// ErrInvalidCapacity is returned for a capacity outside the supported range.
	ErrInvalidCapacity = errors.New("invalid channel capacity")
)
