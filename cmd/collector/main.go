// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// The collector binary runs one collection pass: it selects concepts by
// rotation (or takes one explicitly), gathers candidates per region from
// the YouTube Data API, scores them, writes the CSV outputs, and advances
// the persisted run state. It is designed to be invoked from cron; the
// lock file makes overlapping invocations a no-op instead of a quota fight.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"

	"github.com/jaycherian/gcp-go-region-demand/internal/core/state"
	"github.com/jaycherian/gcp-go-region-demand/internal/core/workflow"
	"github.com/jaycherian/gcp-go-region-demand/internal/telemetry"
)

func main() {
	var opts workflow.Options
	flag.StringVar(&opts.Concept, "concept", "", "run exactly this concept, bypassing rotation")
	flag.StringVar(&opts.RegionsFile, "regions-file", "", "override the configured regions file")
	flag.IntVar(&opts.LimitRegions, "limit-regions", 0, "keep only the first N regions (0 = all)")
	flag.BoolVar(&opts.Force, "force", false, "ignore the per-concept cooldown window")
	flag.IntVar(&opts.Count, "count", 0, "number of concepts to rotate through (0 = configured default)")
	flag.Parse()

	telemetry.SetupLogging()
	slog.Info("Logging initialized")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	config := GetConfig()

	shutdown, err := telemetry.SetupOpenTelemetry(ctx, config)
	if err != nil {
		slog.Error("Failed to setup OpenTelemetry", "error", err)
		log.Fatal(err)
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			slog.Warn("telemetry shutdown failed", "error", err)
		}
	}()
	slog.Info("Tracing initialized")

	runState, err := state.Load(config.Application.StateDir)
	if err != nil {
		slog.Error("failed to load run state", "dir", config.Application.StateDir, "error", err)
		os.Exit(1)
	}

	release, err := runState.Store.AcquireLock()
	if err != nil {
		slog.Error("another collector appears to be running", "error", err)
		os.Exit(1)
	}
	defer release()

	clients := InitClients(ctx, config, runState)
	defer clients.Close()

	runner := workflow.NewRunner(config, clients, runState)
	if err := runner.Run(ctx, opts); err != nil {
		slog.Error("collection run failed", "error", err)
		os.Exit(1)
	}
	slog.Info("collection run complete")
}
