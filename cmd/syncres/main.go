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

// Command syncres exercises the syncres primitives.
//
// Usage:
//
//	syncres counter -strategy atomic -threads 8 -increments 10000
//	syncres pipeline -producers 4 -items 1000 -capacity 4 -listen :9090
//	syncres version
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/srediag/syncres/internal/logging"
)

const version = "0.1.0"

var logger = logging.New("syncres", os.Stderr)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch command := os.Args[1]; command {
	case "counter":
		err = counterCommand(ctx, os.Args[2:], os.Stdout)
	case "pipeline":
		err = pipelineCommand(ctx, os.Args[2:], os.Stdout)
	case "version", "--version", "-v":
		fmt.Printf("syncres version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		stop()
		os.Exit(1)
	}
	if err != nil {
		logger.Errorf("%s: %v", os.Args[1], err)
		stop()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Print(`syncres - synchronized shared resources

USAGE:
    syncres <command> [arguments]

COMMANDS:
    counter    Increment a shared counter from many goroutines
    pipeline   Move messages from producers to consumers over a bounded channel
    version    Show version information
    help       Show this help message

EXAMPLES:
    # Lock-based counter, 8 goroutines
    syncres counter -strategy mutex -threads 8 -increments 10000

    # Four producers into a channel of capacity 4, appending to a log file
    syncres pipeline -producers 4 -items 1000 -capacity 4 -log producer_consumer.log

    # Same, with /metrics, /live and /ready served while it runs
    syncres pipeline -producers 4 -listen :9090

ENVIRONMENT:
    SYNCRES_LOG_LEVEL    0 trace, 1 debug, 2 info, 3 warn (default), 4 error, 5 silent

`)
}
