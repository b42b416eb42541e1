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

// Package metrics exposes channels and counters as Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/srediag/syncres/api"
	"github.com/srediag/syncres/pkg/channel"
)

// Namespace prefixes every metric name.
const Namespace = "syncres"

// QueueSource is what a QueueCollector reads on every scrape.
type QueueSource interface {
	Name() string
	Stats() channel.Stats
}

// QueueCollector reports the state of one channel.
type QueueCollector struct {
	src       QueueSource
	length    *prometheus.Desc
	capacity  *prometheus.Desc
	puts      *prometheus.Desc
	gets      *prometheus.Desc
	cancelled *prometheus.Desc
	blocked   *prometheus.Desc
	closed    *prometheus.Desc
}

// NewQueueCollector returns a collector for src labelled with its name.
func NewQueueCollector(src QueueSource) *QueueCollector {
	labels := prometheus.Labels{"channel": src.Name()}
	desc := func(name, help string, variable ...string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(Namespace, "channel", name), help, variable, labels)
	}
	return &QueueCollector{
		src:       src,
		length:    desc("length", "Buffered items."),
		capacity:  desc("capacity", "Maximum buffered items."),
		puts:      desc("puts_total", "Items enqueued."),
		gets:      desc("gets_total", "Items dequeued."),
		cancelled: desc("cancelled_total", "Blocked operations abandoned through their context."),
		blocked:   desc("blocked", "Callers currently parked.", "op"),
		closed:    desc("closed", "1 once the channel is closed."),
	}
}

func (c *QueueCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.length
	ch <- c.capacity
	ch <- c.puts
	ch <- c.gets
	ch <- c.cancelled
	ch <- c.blocked
	ch <- c.closed
}

func (c *QueueCollector) Collect(ch chan<- prometheus.Metric) {
	st := c.src.Stats()
	closed := 0.0
	if st.Closed {
		closed = 1
	}
	ch <- prometheus.MustNewConstMetric(c.length, prometheus.GaugeValue, float64(st.Len))
	ch <- prometheus.MustNewConstMetric(c.capacity, prometheus.GaugeValue, float64(st.Cap))
	ch <- prometheus.MustNewConstMetric(c.puts, prometheus.CounterValue, float64(st.Puts))
	ch <- prometheus.MustNewConstMetric(c.gets, prometheus.CounterValue, float64(st.Gets))
	ch <- prometheus.MustNewConstMetric(c.cancelled, prometheus.CounterValue, float64(st.Cancelled))
	ch <- prometheus.MustNewConstMetric(c.blocked, prometheus.GaugeValue, float64(st.BlockedPuts), "put")
	ch <- prometheus.MustNewConstMetric(c.blocked, prometheus.GaugeValue, float64(st.BlockedGets), "get")
	ch <- prometheus.MustNewConstMetric(c.closed, prometheus.GaugeValue, closed)
}

// NewCounterCollector reports the value of c under the given name label.
func NewCounterCollector(name string, c api.Counter) prometheus.Collector {
	return prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace:   Namespace,
		Subsystem:   "counter",
		Name:        "value",
		Help:        "Current value of a synchronized counter.",
		ConstLabels: prometheus.Labels{"counter": name},
	}, func() float64 {
		return float64(c.Value())
	})
}
