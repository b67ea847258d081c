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

package commands

import (
	"log/slog"
	"time"

	"github.com/jaycherian/gcp-go-region-demand/internal/core/cor"
	"github.com/jaycherian/gcp-go-region-demand/internal/core/model"
	"github.com/jaycherian/gcp-go-region-demand/internal/core/state"
)

// Checkpoint is the final chain stage: it advances the concept's last-fetch
// timestamp and saves it. It runs only after scoring finished and the write
// stage has had its attempt, so an aborted run never advances the window and
// the missed interval is re-covered next time. A failed save is logged and
// the in-memory state stays ahead; the cost of losing it is bounded re-work,
// never missed data.
type Checkpoint struct {
	cor.BaseCommand
	runState *state.RunState
	now      func() time.Time
}

// NewCheckpoint creates the checkpoint command. now is injectable for tests.
func NewCheckpoint(name string, runState *state.RunState, now func() time.Time) *Checkpoint {
	if now == nil {
		now = time.Now
	}
	return &Checkpoint{
		BaseCommand: *cor.NewBaseCommand(name),
		runState:    runState,
		now:         now,
	}
}

func (c *Checkpoint) Execute(context cor.Context) {
	ctx := context.GetContext()
	run := context.Get(c.GetInputParam()).(*model.ConceptRun)

	c.runState.LastFetch[run.Concept.Name] = c.now().UTC()
	if err := c.runState.Store.SaveLastFetch(c.runState.LastFetch); err != nil {
		slog.Error("failed to save last-fetch state", "concept", run.Concept.Name, "error", err)
	} else {
		slog.Info("advanced last-fetch checkpoint", "concept", run.Concept.Name)
	}

	c.GetSuccessCounter().Add(ctx, 1)
	context.Add(c.GetOutputParam(), run)
}
