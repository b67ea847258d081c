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

package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/jaycherian/gcp-go-region-demand/internal/cloud"
	"github.com/jaycherian/gcp-go-region-demand/internal/core/cor"
	"github.com/jaycherian/gcp-go-region-demand/internal/core/model"
	"github.com/jaycherian/gcp-go-region-demand/internal/core/scheduler"
	"github.com/jaycherian/gcp-go-region-demand/internal/core/state"
)

// Options are the per-invocation overrides, typically sourced from command
// line flags.
type Options struct {
	Concept      string // Run exactly this concept, bypassing rotation.
	RegionsFile  string // Override the configured regions file.
	LimitRegions int    // Keep only the first N regions; 0 keeps all.
	Force        bool   // Disable the cooldown filter.
	Count        int    // Override the rotation size; 0 uses the config.
	Now          func() time.Time
}

// Runner drives a full collection run: input loading, concept selection,
// and one chain execution per selected concept.
type Runner struct {
	cfg      *cloud.Config
	clients  *cloud.ServiceClients
	runState *state.RunState
}

func NewRunner(cfg *cloud.Config, clients *cloud.ServiceClients, runState *state.RunState) *Runner {
	return &Runner{cfg: cfg, clients: clients, runState: runState}
}

// Run executes one collection run. It returns an error only for fatal
// conditions: missing required inputs, or quota exhaustion mid-run. A
// concept that fails for any other reason is logged and the run moves on to
// the next one.
func (r *Runner) Run(ctx context.Context, opts Options) error {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	notify := r.clients.Notifier
	notify.Notify(ctx, "[region-demand] collection run started")

	regions, err := r.loadRegions(opts)
	if err != nil {
		return err
	}

	concepts, queries, err := r.loadConcepts()
	if err != nil {
		return err
	}

	// Concept selection. An explicit request bypasses rotation and leaves
	// the cursor untouched; otherwise the cursor advances by the selection
	// size and is persisted immediately, before any collection work, so a
	// crashed run still rotates.
	var selected []string
	if opts.Concept != "" {
		selected = []string{opts.Concept}
	} else {
		target := r.cfg.Collection.ConceptsPerRun
		if opts.Count > 0 {
			target = opts.Count
		}
		sel := scheduler.RoundRobin(concepts, r.runState.Cursor, target)
		selected = sel.Concepts
		r.runState.Cursor = sel.NextCursor
		if err := r.runState.Store.SaveCursor(sel.NextCursor); err != nil {
			slog.Warn("failed to save rotation cursor", "error", err)
		}
	}

	toRun, skipped := scheduler.CooldownFilter(selected, r.runState.LastFetch, now().UTC(), r.cfg.Cooldown(), opts.Force)
	for _, concept := range skipped {
		msg := cloud.FormatRunMessage("skipped (cooldown)", concept,
			fmt.Sprintf("last fetched %s", r.runState.LastFetch[concept].Format(state.LastFetchTimeFormat)))
		slog.Info("skipping concept inside cooldown window", "concept", concept)
		notify.Notify(ctx, msg)
	}

	for _, name := range toRun {
		concept := model.NewConcept(name, queries[name])
		if err := r.runConcept(ctx, concept, regions, now); err != nil {
			if cloud.IsQuotaExhausted(err) {
				msg := cloud.FormatRunMessage("aborted (quota exhausted)", name, err.Error())
				slog.Error("aborting run: quota exhausted", "concept", name, "error", err)
				notify.Notify(ctx, msg)
				return err
			}
			slog.Error("concept failed; continuing with remaining concepts", "concept", name, "error", err)
			notify.Notify(ctx, cloud.FormatRunMessage("failed", name, err.Error()))
		}
	}

	notify.Notify(ctx, "[region-demand] collection run finished")
	return nil
}

// runConcept executes the chain for a single concept and reports its
// outcome. The search window lower bound is the concept's last successful
// fetch, or the configured default window when the concept has never been
// fetched.
func (r *Runner) runConcept(ctx context.Context, concept model.Concept, regions []string, now func() time.Time) error {
	nowUTC := now().UTC()
	publishedAfter, ok := r.runState.LastFetch[concept.Name]
	if !ok {
		publishedAfter = nowUTC.Add(-r.cfg.DefaultWindow())
	}

	run := model.NewConceptRun(concept, regions, publishedAfter, nowUTC)
	slog.Info("processing concept",
		"concept", concept.Name,
		"run_id", run.RunID,
		"queries", strings.Join(concept.Queries, ","),
		"regions", len(regions),
		"published_after", publishedAfter.Format(state.LastFetchTimeFormat))

	chain := NewConceptChain(r.cfg, r.clients, r.runState)
	chCtx := cor.NewBaseContext()
	chCtx.SetContext(ctx)
	chCtx.Add(cor.CtxIn, run)
	chain.Execute(chCtx)

	if chCtx.HasErrors() {
		for cmd, err := range chCtx.GetErrors() {
			if cloud.IsQuotaExhausted(err) {
				return err
			}
			slog.Error("chain command failed", "concept", concept.Name, "command", cmd, "error", err)
		}
		return fmt.Errorf("concept %s: chain failed", concept.Name)
	}

	for _, f := range run.Failures {
		slog.Warn("partial failure during concept run", "concept", concept.Name, "failure", f.String())
	}
	r.clients.Notifier.Notify(ctx, cloud.FormatRunMessage("completed", concept.Name,
		fmt.Sprintf("%d output files, %d partial failures", len(run.OutputFiles), len(run.Failures))))
	return nil
}

// loadRegions resolves the region list: the flag override, then the
// configured file, then the built-in default subset. A configured-but-
// missing file degrades to the default list with a warning, matching the
// behavior operators rely on for first runs on a fresh machine.
func (r *Runner) loadRegions(opts Options) ([]string, error) {
	path := opts.RegionsFile
	if path == "" {
		path = r.cfg.Collection.RegionsFile
	}

	regions := append([]string(nil), cloud.DefaultRegions...)
	if path != "" {
		loaded, err := cloud.ReadLines(path)
		switch {
		case err != nil && opts.RegionsFile != "":
			// An explicit flag pointing at a missing file is an input error.
			return nil, fmt.Errorf("failed to read regions file %s: %w", path, err)
		case err != nil:
			slog.Warn("regions file not found, using default subset", "file", path, "error", err)
		default:
			regions = loaded
		}
	}

	if opts.LimitRegions > 0 && opts.LimitRegions < len(regions) {
		regions = regions[:opts.LimitRegions]
	}
	if len(regions) == 0 {
		return nil, fmt.Errorf("region list is empty")
	}
	return regions, nil
}

// loadConcepts reads the required concept list and query-word map. Both are
// fatal when missing: without them there is nothing to collect, and failing
// before any remote call keeps the quota ledger untouched.
func (r *Runner) loadConcepts() ([]string, map[string][]string, error) {
	conceptsPath := r.cfg.Collection.ConceptsFile
	concepts, err := cloud.ReadLines(conceptsPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read concepts file %s: %w", conceptsPath, err)
	}
	if len(concepts) == 0 {
		return nil, nil, fmt.Errorf("concepts file %s is empty", conceptsPath)
	}

	queriesPath := r.cfg.Collection.QueryWordsFile
	queries, err := cloud.ReadQueryWords(queriesPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read query words file %s: %w", queriesPath, err)
	}
	return concepts, queries, nil
}

// OutputGlob returns the filesystem pattern covering every output file for a
// date stamp, used by the operations API to list a day's results.
func OutputGlob(outputDir string, stamp string) string {
	return filepath.Join(outputDir, fmt.Sprintf("*_%s.csv", stamp))
}
