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

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/srediag/syncres/internal/logging"
	"github.com/srediag/syncres/pkg/channel"
	"github.com/srediag/syncres/pkg/fileres"
	"github.com/srediag/syncres/pkg/health"
	"github.com/srediag/syncres/pkg/metrics"
	"github.com/srediag/syncres/pkg/workload"
)

// pipelineCommand implements 'syncres pipeline'.
func pipelineCommand(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("pipeline", flag.ContinueOnError)
	fs.SetOutput(out)
	def := workload.DefaultPipelineConfig()
	producers := fs.Int("producers", def.Producers, "number of producers")
	consumers := fs.Int("consumers", def.Consumers, "number of consumers")
	items := fs.Int("items", def.ItemsPerProducer, "messages per producer")
	capacity := fs.Int("capacity", 4, "channel capacity")
	putTimeout := fs.Duration("put-timeout", 0, "bound on each put attempt, 0 waits forever")
	retries := fs.Uint64("retries", def.MaxPutRetries, "retries of a timed out put")
	logPath := fs.String("log", "", "append consumed messages to this file")
	listen := fs.String("listen", "", "serve /metrics, /live and /ready on this address")
	level := fs.Int("log-level", logging.Level(), "log level, 0 trace to 5 silent")
	if err := fs.Parse(args); err != nil {
		return err
	}
	logging.SetLevel(*level)

	ch, err := channel.NewWithConfig[workload.Message](&channel.Config{
		Name:     "pipeline",
		Capacity: *capacity,
	})
	if err != nil {
		return err
	}

	cfg := &workload.PipelineConfig{
		Producers:        *producers,
		Consumers:        *consumers,
		ItemsPerProducer: *items,
		PutTimeout:       *putTimeout,
		MaxPutRetries:    *retries,
	}
	if *logPath != "" {
		opts := fileres.DefaultOptions()
		opts.Truncate = true
		f, err := fileres.Open(*logPath, opts)
		if err != nil {
			return err
		}
		defer func() {
			if err := f.Close(context.Background()); err != nil {
				logger.Warnf("close %s: %v", *logPath, err)
			}
		}()
		cfg.Sink = f
	}

	if *listen != "" {
		stop, err := serve(*listen, ch, *logPath)
		if err != nil {
			return err
		}
		defer stop()
	}

	report, err := workload.RunPipeline(ctx, ch, cfg)
	if report != nil {
		fmt.Fprintf(out, "run=%s produced=%d consumed=%d duplicates=%d order_violations=%d put_retries=%d duration=%v\n",
			report.RunID, report.Produced, report.Consumed, report.Duplicates,
			report.OrderViolations, report.PutRetries, report.Duration)
	}
	return err
}

// serve exposes metrics and health probes for ch until the returned func is
// called.
func serve(addr string, ch *channel.Bounded[workload.Message], logPath string) (func(), error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		metrics.NewQueueCollector(ch),
	)

	opts := health.Options{MaxGoroutines: 10000, Registry: reg}
	if logPath != "" {
		opts.DiskPath = filepath.Dir(logPath)
		opts.MinFree = fileres.DefaultOptions().MinFree
	}
	probes := health.NewHandler(opts, ch)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	mux.Handle("/live", probes)
	mux.Handle("/ready", probes)

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("serve %s: %v", addr, err)
		}
	}()
	logger.Infof("serving metrics and probes on %s", ln.Addr())

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Warnf("shutdown %s: %v", addr, err)
		}
	}, nil
}
