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

package channel

import (
	"fmt"

	"go.opentelemetry.io/otel/metric"
)

const (
	defaultCapacity = 1024
	maxCapacity     = 1 << 24
)

// Config is used to tune a Bounded channel.
type Config struct {
	// Name identifies the channel in logs and metrics.
	Name string
	// Capacity is the maximum number of buffered items.
	Capacity int
	// Meter receives put/get/cancel counts and blocked wait times.
	// A no-op meter is used when nil.
	Meter metric.Meter
}

// DefaultConfig returns the default channel config.
func DefaultConfig() *Config {
	return &Config{
		Name:     "default",
		Capacity: defaultCapacity,
	}
}

// VerifyConfig is used to verify the sanity of configuration.
func VerifyConfig(config *Config) error {
	if config == nil {
		return fmt.Errorf("%w: nil config", ErrInvalidCapacity)
	}
	if config.Capacity < 1 || config.Capacity > maxCapacity {
		return fmt.Errorf("%w: %d not in [1, %d]", ErrInvalidCapacity, config.Capacity, maxCapacity)
	}
	return nil
}
