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
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
)

const instrumentationName = "github.com/srediag/syncres/pkg/channel"

type instruments struct {
	attrs     metric.MeasurementOption
	puts      metric.Int64Counter
	gets      metric.Int64Counter
	cancelled metric.Int64Counter
	waitTime  metric.Float64Histogram
}

func newInstruments(meter metric.Meter, name string) (*instruments, error) {
	if meter == nil {
		meter = metricnoop.NewMeterProvider().Meter(instrumentationName)
	}
	in := &instruments{
		attrs: metric.WithAttributeSet(attribute.NewSet(attribute.String("channel", name))),
	}
	var err error
	if in.puts, err = meter.Int64Counter("syncres.channel.puts",
		metric.WithDescription("Items enqueued.")); err != nil {
		return nil, fmt.Errorf("channel instruments: %w", err)
	}
	if in.gets, err = meter.Int64Counter("syncres.channel.gets",
		metric.WithDescription("Items dequeued.")); err != nil {
		return nil, fmt.Errorf("channel instruments: %w", err)
	}
	if in.cancelled, err = meter.Int64Counter("syncres.channel.cancelled",
		metric.WithDescription("Blocked puts or gets abandoned through their context.")); err != nil {
		return nil, fmt.Errorf("channel instruments: %w", err)
	}
	if in.waitTime, err = meter.Float64Histogram("syncres.channel.wait",
		metric.WithUnit("s"),
		metric.WithDescription("Time a put or get spent blocked.")); err != nil {
		return nil, fmt.Errorf("channel instruments: %w", err)
	}
	return in, nil
}

func (in *instruments) put(ctx context.Context) {
	in.puts.Add(ctx, 1, in.attrs)
}

func (in *instruments) get(ctx context.Context) {
	in.gets.Add(ctx, 1, in.attrs)
}

func (in *instruments) cancel(ctx context.Context) {
	in.cancelled.Add(ctx, 1, in.attrs)
}

func (in *instruments) waited(ctx context.Context, d time.Duration) {
	in.waitTime.Record(ctx, d.Seconds(), in.attrs)
}
