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

// Package health provides liveness and readiness probes for processes built
// on syncres primitives.
package health

import (
	"fmt"

	"github.com/heptiolabs/healthcheck"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shirou/gopsutil/v3/disk"

	"github.com/srediag/syncres/pkg/metrics"
)

// Queue is the part of a channel the readiness probe looks at.
type Queue interface {
	Name() string
	Closed() bool
}

// Options configure NewHandler.
type Options struct {
	// MaxGoroutines fails liveness above this many goroutines. Zero disables it.
	MaxGoroutines int
	// DiskPath and MinFree fail readiness when DiskPath's filesystem has less
	// than MinFree bytes available. Empty DiskPath disables it.
	DiskPath string
	MinFree  uint64
	// Registry, when set, also exports every check result as a gauge.
	Registry prometheus.Registerer
}

// NewHandler returns an http.Handler serving /live and /ready. Every queue
// must be open for the process to be ready.
func NewHandler(opts Options, queues ...Queue) healthcheck.Handler {
	var h healthcheck.Handler
	if opts.Registry != nil {
		h = healthcheck.NewMetricsHandler(opts.Registry, metrics.Namespace)
	} else {
		h = healthcheck.NewHandler()
	}
	if opts.MaxGoroutines > 0 {
		h.AddLivenessCheck("goroutine-threshold", healthcheck.GoroutineCountCheck(opts.MaxGoroutines))
	}
	if opts.DiskPath != "" {
		h.AddReadinessCheck("disk-free", DiskFreeCheck(opts.DiskPath, opts.MinFree))
	}
	for _, q := range queues {
		h.AddReadinessCheck("channel-"+q.Name(), QueueOpenCheck(q))
	}
	return h
}

// QueueOpenCheck fails once q is closed.
func QueueOpenCheck(q Queue) healthcheck.Check {
	return func() error {
		if q.Closed() {
			return fmt.Errorf("channel %s is closed", q.Name())
		}
		return nil
	}
}

// DiskFreeCheck fails when path's filesystem has fewer than min free bytes.
func DiskFreeCheck(path string, min uint64) healthcheck.Check {
	return func() error {
		stat, err := disk.Usage(path)
		if err != nil {
			return err
		}
		if stat.Free < min {
			return fmt.Errorf("%s has %d bytes free, need %d", path, stat.Free, min)
		}
		return nil
	}
}
