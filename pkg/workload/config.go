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

package workload

import (
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/srediag/syncres/api"
)

// PipelineConfig describes a producer/consumer run.
type PipelineConfig struct {
	Producers        int
	Consumers        int
	ItemsPerProducer int
	// PutTimeout bounds each Put attempt. A timed out attempt is retried with
	// exponential backoff up to MaxPutRetries times. Zero waits forever.
	PutTimeout    time.Duration
	MaxPutRetries uint64
	// PoolSize is the number of pooled goroutines. It must cover every
	// producer and consumer; zero sizes the pool exactly.
	PoolSize int
	// Tracer records one span per producer and consumer. Defaults to no-op.
	Tracer trace.Tracer
	// Sink, when set, receives one line per consumed message.
	Sink api.Sink
}

// DefaultPipelineConfig mirrors the classic demo: one producer, one consumer.
func DefaultPipelineConfig() *PipelineConfig {
	return &PipelineConfig{
		Producers:        1,
		Consumers:        1,
		ItemsPerProducer: 5,
		MaxPutRetries:    5,
	}
}

// VerifyPipelineConfig is used to verify the sanity of configuration.
func VerifyPipelineConfig(config *PipelineConfig) error {
	if config == nil {
		return errors.New("nil pipeline config")
	}
	if config.Producers < 1 || config.Consumers < 1 {
		return fmt.Errorf("need at least one producer and one consumer, got %d and %d",
			config.Producers, config.Consumers)
	}
	if config.ItemsPerProducer < 0 {
		return fmt.Errorf("negative items per producer: %d", config.ItemsPerProducer)
	}
	if config.PutTimeout < 0 {
		return fmt.Errorf("negative put timeout: %v", config.PutTimeout)
	}
	if config.PoolSize != 0 && config.PoolSize < config.Producers+config.Consumers {
		return fmt.Errorf("pool size %d cannot run %d producers and %d consumers at once",
			config.PoolSize, config.Producers, config.Consumers)
	}
	return nil
}

// CounterConfig describes a counter contention run.
type CounterConfig struct {
	Threads    int
	Increments int
	Tracer     trace.Tracer
}

// VerifyCounterConfig is used to verify the sanity of configuration.
func VerifyCounterConfig(config *CounterConfig) error {
	if config == nil {
		return errors.New("nil counter config")
	}
	if config.Threads < 1 {
		return fmt.Errorf("need at least one thread, got %d", config.Threads)
	}
	if config.Increments < 0 {
		return fmt.Errorf("negative increments: %d", config.Increments)
	}
	return nil
}
