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

package commands_test

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/jaycherian/gcp-go-region-demand/internal/core/commands"
	"github.com/jaycherian/gcp-go-region-demand/internal/core/cor"
	"github.com/jaycherian/gcp-go-region-demand/internal/core/model"
	"github.com/jaycherian/gcp-go-region-demand/internal/core/state"
	test "github.com/jaycherian/gcp-go-region-demand/internal/testutil"
)

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("failed to open %s: %v", path, err)
	}
	defer func() { _ = f.Close() }()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("failed to parse %s: %v", path, err)
	}
	return rows
}

func TestWriteOutputsProducesThreeFiles(t *testing.T) {
	dir := t.TempDir()

	run := newRun("JP")
	rc := model.NewRegionCandidates("JP")
	rc.Append("v1", model.SourceSearch)
	rc.Append("v1", model.SourceTrending)
	rc.Append("v2", model.SourceSearch)
	run.Candidates["JP"] = rc
	run.Scored = []*model.ScoredVideo{{
		Concept: "retro gaming", VideoID: "v1", Region: "JP", Rank: 1,
		ViewCount: 1234, RankScore: 1.0, Popularity: 0.5, LocalHint: 0.855,
		LocalHintSource: "default_lang", OccurrenceCount: 1, Uniqueness: 1.0,
		InnerScore: 0.73875, TrendBoost: 1.1, FinalScore: 0.812625,
	}}
	run.RegionScores = []*model.RegionScore{
		{Concept: "retro gaming", Region: "JP", Score: 0.812625, RunDate: run.DateStamp()},
	}

	chCtx := newChainContext(run)
	commands.NewWriteOutputs("writer", dir).Execute(chCtx)

	assert.False(t, chCtx.HasErrors())
	assert.Empty(t, run.Failures)
	assert.Len(t, run.OutputFiles, 3)

	stamp := run.DateStamp()
	region := readCSV(t, filepath.Join(dir, "region_score_retro_gaming_"+stamp+".csv"))
	assert.Equal(t, []string{"concept", "region", "region_score"}, region[0])
	assert.Equal(t, []string{"retro gaming", "JP", "0.812625"}, region[1])

	video := readCSV(t, filepath.Join(dir, "video_score_retro_gaming_"+stamp+".csv"))
	assert.Equal(t, "videoId", video[0][0])
	assert.Equal(t, "final_score", video[0][11])
	assert.Equal(t, []string{
		"v1", "JP", "1", "1234", "1", "0.5", "0.855", "default_lang",
		"1", "1", "0.73875", "0.812625",
	}, video[1])

	debug := readCSV(t, filepath.Join(dir, "region_toplist_debug_retro_gaming_"+stamp+".csv"))
	assert.Equal(t, []string{"concept", "region", "videoId", "sources"}, debug[0])
	assert.Equal(t, []string{"retro gaming", "JP", "v1", "search;trending"}, debug[1])
	assert.Equal(t, []string{"retro gaming", "JP", "v2", "search"}, debug[2])
}

func TestWriteOutputsRecordsFailureOnBadDirectory(t *testing.T) {
	// A file where the output directory should be makes MkdirAll fail.
	base := t.TempDir()
	blocked := filepath.Join(base, "outputs")
	assert.NoError(t, os.WriteFile(blocked, []byte("x"), 0o644))

	run := newRun("JP")
	chCtx := newChainContext(run)
	commands.NewWriteOutputs("writer", blocked).Execute(chCtx)

	// Write problems degrade: recorded on the carrier, chain keeps going.
	assert.False(t, chCtx.HasErrors())
	assert.NotEmpty(t, run.Failures)
	assert.Equal(t, "write", run.Failures[0].Stage)
	assert.Empty(t, run.OutputFiles)
	assert.NotNil(t, chCtx.Get(cor.CtxOut))
}

func TestCheckpointAdvancesLastFetch(t *testing.T) {
	runState := test.NewRunState(t)
	now := time.Date(2026, 9, 1, 15, 0, 0, 0, time.UTC)

	run := newRun("JP")
	chCtx := newChainContext(run)
	commands.NewCheckpoint("checkpoint", runState, func() time.Time { return now }).Execute(chCtx)

	assert.False(t, chCtx.HasErrors())
	assert.Equal(t, now, runState.LastFetch["retro gaming"])

	// The advance is persisted, not just in memory.
	reloaded, err := state.Load(runState.Store.Dir())
	assert.NoError(t, err)
	assert.Equal(t, now, reloaded.LastFetch["retro gaming"])
}
