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

// Package workload drives syncres primitives with pooled goroutines: a
// producer/consumer pipeline over an api.Queue and a contention run against
// an api.Counter. Runs report what they observed so callers can check the
// delivery and no-lost-update guarantees.
package workload

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	cmap "github.com/orcaman/concurrent-map/v2"
	"github.com/panjf2000/ants/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/srediag/syncres/api"
	"github.com/srediag/syncres/internal/logging"
	"github.com/srediag/syncres/pkg/channel"
)

const instrumentationName = "github.com/srediag/syncres/pkg/workload"

var logger = logging.New("workload", nil)

// Message is the item moved through a pipeline.
type Message struct {
	RunID    string
	Producer int
	Seq      int
}

// Report summarizes a pipeline run.
type Report struct {
	RunID    string
	Produced int
	Consumed int
	// Duplicates counts messages delivered more than once.
	Duplicates int
	// OrderViolations counts messages a consumer received after a later
	// message of the same producer.
	OrderViolations int
	// PutRetries counts Put attempts that timed out and were retried.
	PutRetries  int
	PerProducer map[int]int
	Duration    time.Duration
}

// CounterReport summarizes a counter run.
type CounterReport struct {
	Expected int64
	Got      int64
	Duration time.Duration
}

// LostUpdates is the number of increments missing from the final value.
func (r *CounterReport) LostUpdates() int64 {
	return r.Expected - r.Got
}

func tracerOf(t trace.Tracer) trace.Tracer {
	if t != nil {
		return t
	}
	return tracenoop.NewTracerProvider().Tracer(instrumentationName)
}

func newPool(size int) (*ants.Pool, error) {
	return ants.NewPool(size,
		ants.WithLogger(logger),
		ants.WithPanicHandler(func(p interface{}) {
			logger.Errorf("worker panicked: %v", p)
		}))
}

// errorList collects worker errors.
type errorList struct {
	mu   sync.Mutex
	errs []error
}

func (l *errorList) add(err error) {
	l.mu.Lock()
	l.errs = append(l.errs, err)
	l.mu.Unlock()
}

func (l *errorList) err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return errors.Join(l.errs...)
}

type pipeline struct {
	cfg    *PipelineConfig
	q      api.Queue[Message]
	runID  string
	tracer trace.Tracer
	errs   errorList

	produced    atomic.Int64
	consumed    atomic.Int64
	violations  atomic.Int64
	retries     atomic.Int64
	seen        cmap.ConcurrentMap[string, bool]
	perProducer cmap.ConcurrentMap[string, int]
	duplicates  atomic.Int64
}

// RunPipeline starts cfg.Producers producers and cfg.Consumers consumers on
// q, closes q once every producer is done and returns after the consumers
// drained it. The returned error joins every worker failure.
func RunPipeline(ctx context.Context, q api.Queue[Message], cfg *PipelineConfig) (*Report, error) {
	if err := VerifyPipelineConfig(cfg); err != nil {
		return nil, err
	}
	size := cfg.PoolSize
	if size == 0 {
		size = cfg.Producers + cfg.Consumers
	}
	pool, err := newPool(size)
	if err != nil {
		return nil, fmt.Errorf("create worker pool: %w", err)
	}
	defer pool.Release()

	p := &pipeline{
		cfg:         cfg,
		q:           q,
		runID:       uuid.NewString(),
		tracer:      tracerOf(cfg.Tracer),
		seen:        cmap.New[bool](),
		perProducer: cmap.New[int](),
	}
	logger.Infof("pipeline %s: %d producers x %d items, %d consumers, capacity %d",
		p.runID, cfg.Producers, cfg.ItemsPerProducer, cfg.Consumers, q.Cap())

	start := time.Now()
	var producers, consumers sync.WaitGroup
	for c := 0; c < cfg.Consumers; c++ {
		consumers.Add(1)
		id := c
		if err := pool.Submit(func() {
			defer consumers.Done()
			p.consume(ctx, id)
		}); err != nil {
			consumers.Done()
			p.errs.add(fmt.Errorf("submit consumer %d: %w", id, err))
		}
	}
	for i := 0; i < cfg.Producers; i++ {
		producers.Add(1)
		id := i
		if err := pool.Submit(func() {
			defer producers.Done()
			p.produce(ctx, id)
		}); err != nil {
			producers.Done()
			p.errs.add(fmt.Errorf("submit producer %d: %w", id, err))
		}
	}
	producers.Wait()
	if err := q.Close(); err != nil {
		p.errs.add(fmt.Errorf("close queue: %w", err))
	}
	consumers.Wait()

	report := &Report{
		RunID:           p.runID,
		Produced:        int(p.produced.Load()),
		Consumed:        int(p.consumed.Load()),
		Duplicates:      int(p.duplicates.Load()),
		OrderViolations: int(p.violations.Load()),
		PutRetries:      int(p.retries.Load()),
		PerProducer:     make(map[int]int, cfg.Producers),
		Duration:        time.Since(start),
	}
	for key, n := range p.perProducer.Items() {
		id, _ := strconv.Atoi(key)
		report.PerProducer[id] = n
	}
	logger.Infof("pipeline %s done in %v: produced %d consumed %d retries %d",
		p.runID, report.Duration, report.Produced, report.Consumed, report.PutRetries)
	return report, p.errs.err()
}

func (p *pipeline) produce(ctx context.Context, id int) {
	ctx, span := p.tracer.Start(ctx, "produce", trace.WithAttributes(attribute.Int("producer", id)))
	defer span.End()

	for seq := 0; seq < p.cfg.ItemsPerProducer; seq++ {
		msg := Message{RunID: p.runID, Producer: id, Seq: seq}
		if err := p.put(ctx, msg); err != nil {
			span.RecordError(err)
			p.errs.add(fmt.Errorf("producer %d seq %d: %w", id, seq, err))
			return
		}
		p.produced.Add(1)
		logger.Tracef("producer %d wrote message #%d", id, seq)
	}
}

// put retries attempts that hit PutTimeout. A closed queue or a done ctx
// ends the retries.
func (p *pipeline) put(ctx context.Context, msg Message) error {
	if p.cfg.PutTimeout == 0 {
		return p.q.Put(ctx, msg)
	}
	op := func() error {
		actx, cancel := context.WithTimeout(ctx, p.cfg.PutTimeout)
		defer cancel()
		err := p.q.Put(actx, msg)
		if err == nil {
			return nil
		}
		if errors.Is(err, channel.ErrCancelled) && ctx.Err() == nil {
			p.retries.Add(1)
			return err
		}
		return backoff.Permanent(err)
	}
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = p.cfg.PutTimeout
	eb.MaxElapsedTime = 0
	eb.Reset()
	return backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(eb, p.cfg.MaxPutRetries), ctx))
}

func (p *pipeline) consume(ctx context.Context, id int) {
	ctx, span := p.tracer.Start(ctx, "consume", trace.WithAttributes(attribute.Int("consumer", id)))
	defer span.End()

	last := make(map[int]int)
	for {
		msg, err := p.q.Get(ctx)
		if errors.Is(err, channel.ErrClosedEmpty) {
			return
		}
		if err != nil {
			span.RecordError(err)
			p.errs.add(fmt.Errorf("consumer %d: %w", id, err))
			return
		}
		p.consumed.Add(1)
		if prev, ok := last[msg.Producer]; ok && msg.Seq <= prev {
			p.violations.Add(1)
		}
		last[msg.Producer] = msg.Seq
		if !p.seen.SetIfAbsent(strconv.Itoa(msg.Producer)+":"+strconv.Itoa(msg.Seq), true) {
			p.duplicates.Add(1)
		}
		p.perProducer.Upsert(strconv.Itoa(msg.Producer), 1, func(exist bool, cur, add int) int {
			if exist {
				return cur + add
			}
			return add
		})
		if p.cfg.Sink != nil {
			line := fmt.Sprintf("producer %d message #%d", msg.Producer, msg.Seq)
			if err := p.cfg.Sink.Append(ctx, id, line); err != nil {
				span.RecordError(err)
				p.errs.add(fmt.Errorf("consumer %d sink: %w", id, err))
			}
		}
	}
}

// RunCounter increments c cfg.Increments times from cfg.Threads pooled
// goroutines and reports the final value against the expected one.
func RunCounter(ctx context.Context, c api.Counter, cfg *CounterConfig) (*CounterReport, error) {
	if err := VerifyCounterConfig(cfg); err != nil {
		return nil, err
	}
	pool, err := newPool(cfg.Threads)
	if err != nil {
		return nil, fmt.Errorf("create worker pool: %w", err)
	}
	defer pool.Release()

	_, span := tracerOf(cfg.Tracer).Start(ctx, "counter",
		trace.WithAttributes(attribute.Int("threads", cfg.Threads), attribute.Int("increments", cfg.Increments)))
	defer span.End()

	start := time.Now()
	before := c.Value()
	var wg sync.WaitGroup
	var errs errorList
	for t := 0; t < cfg.Threads; t++ {
		wg.Add(1)
		if err := pool.Submit(func() {
			defer wg.Done()
			for k := 0; k < cfg.Increments; k++ {
				c.Increment()
			}
		}); err != nil {
			wg.Done()
			errs.add(err)
		}
	}
	wg.Wait()

	report := &CounterReport{
		Expected: int64(cfg.Threads) * int64(cfg.Increments),
		Got:      c.Value() - before,
		Duration: time.Since(start),
	}
	if err := errs.err(); err != nil {
		span.RecordError(err)
		return report, err
	}
	return report, nil
}
