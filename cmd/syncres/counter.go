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
	"flag"
	"fmt"
	"io"

	"github.com/srediag/syncres/internal/logging"
	"github.com/srediag/syncres/pkg/counter"
	"github.com/srediag/syncres/pkg/workload"
)

// counterCommand implements 'syncres counter'.
func counterCommand(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("counter", flag.ContinueOnError)
	fs.SetOutput(out)
	strategy := fs.String("strategy", "mutex", "counter strategy: mutex or atomic")
	threads := fs.Int("threads", 8, "number of incrementing goroutines")
	increments := fs.Int("increments", 10000, "increments per goroutine")
	level := fs.Int("log-level", logging.Level(), "log level, 0 trace to 5 silent")
	if err := fs.Parse(args); err != nil {
		return err
	}
	logging.SetLevel(*level)

	s, err := counter.ParseStrategy(*strategy)
	if err != nil {
		return err
	}
	c, err := counter.New(s)
	if err != nil {
		return err
	}
	report, err := workload.RunCounter(ctx, c, &workload.CounterConfig{
		Threads:    *threads,
		Increments: *increments,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "strategy=%s threads=%d expected=%d got=%d lost=%d duration=%v\n",
		s, *threads, report.Expected, report.Got, report.LostUpdates(), report.Duration)
	if report.LostUpdates() != 0 {
		return fmt.Errorf("%d updates lost", report.LostUpdates())
	}
	return nil
}
