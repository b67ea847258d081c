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
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/jaycherian/gcp-go-region-demand/internal/core/cor"
	"github.com/jaycherian/gcp-go-region-demand/internal/core/model"
)

// WriteOutputs writes the three CSV files for a concept run: the per-region
// aggregate, the per-video detail, and the discovery-provenance debug file.
// File names are deterministic per concept and date, so re-running a concept
// the same day overwrites its previous outputs. Write failures are recorded
// as partial failures and do not stop the chain: a full disk should not
// prevent the checkpoint step from keeping the quota ledger consistent.
type WriteOutputs struct {
	cor.BaseCommand
	outputDir string
}

func NewWriteOutputs(name string, outputDir string) *WriteOutputs {
	return &WriteOutputs{
		BaseCommand: *cor.NewBaseCommand(name),
		outputDir:   outputDir,
	}
}

func (c *WriteOutputs) Execute(context cor.Context) {
	ctx := context.GetContext()
	run := context.Get(c.GetInputParam()).(*model.ConceptRun)

	if err := os.MkdirAll(c.outputDir, 0o755); err != nil {
		run.AddFailure("write", "", c.outputDir, err)
		slog.Warn("failed to create output directory", "dir", c.outputDir, "error", err)
		context.Add(c.GetOutputParam(), run)
		return
	}

	stamp := run.DateStamp()
	concept := sanitizeFileComponent(run.Concept.Name)

	c.writeFile(run, fmt.Sprintf("region_score_%s_%s.csv", concept, stamp), regionScoreRows(run))
	c.writeFile(run, fmt.Sprintf("video_score_%s_%s.csv", concept, stamp), videoScoreRows(run))
	c.writeFile(run, fmt.Sprintf("region_toplist_debug_%s_%s.csv", concept, stamp), debugRows(run))

	c.GetSuccessCounter().Add(ctx, 1)
	context.Add(c.GetOutputParam(), run)
}

// writeFile writes one CSV and records the path on the carrier on success.
func (c *WriteOutputs) writeFile(run *model.ConceptRun, name string, rows [][]string) {
	path := filepath.Join(c.outputDir, name)
	f, err := os.Create(path)
	if err != nil {
		run.AddFailure("write", "", name, err)
		slog.Warn("failed to create output file", "file", path, "error", err)
		return
	}
	w := csv.NewWriter(f)
	werr := w.WriteAll(rows)
	if cerr := f.Close(); werr == nil {
		werr = cerr
	}
	if werr != nil {
		run.AddFailure("write", "", name, werr)
		slog.Warn("failed to write output file", "file", path, "error", werr)
		return
	}
	run.OutputFiles = append(run.OutputFiles, path)
	slog.Info("wrote output file", "file", path, "rows", len(rows)-1)
}

func regionScoreRows(run *model.ConceptRun) [][]string {
	rows := [][]string{{"concept", "region", "region_score"}}
	for _, rs := range run.RegionScores {
		rows = append(rows, []string{rs.Concept, rs.Region, formatFloat(rs.Score)})
	}
	return rows
}

func videoScoreRows(run *model.ConceptRun) [][]string {
	rows := [][]string{{
		"videoId", "region", "rank", "viewCount",
		"rank_score", "popularity", "local_hint", "local_hint_source",
		"occurrence_count", "uniqueness", "inner_score", "final_score",
	}}
	for _, sv := range run.Scored {
		rows = append(rows, []string{
			sv.VideoID,
			sv.Region,
			strconv.Itoa(sv.Rank),
			strconv.FormatInt(sv.ViewCount, 10),
			formatFloat(sv.RankScore),
			formatFloat(sv.Popularity),
			formatFloat(sv.LocalHint),
			sv.LocalHintSource,
			strconv.Itoa(sv.OccurrenceCount),
			formatFloat(sv.Uniqueness),
			formatFloat(sv.InnerScore),
			formatFloat(sv.FinalScore),
		})
	}
	return rows
}

// debugRows emits every observed video per region with its sorted,
// semicolon-joined provenance tags, including videos truncated out of the
// top-K list.
func debugRows(run *model.ConceptRun) [][]string {
	rows := [][]string{{"concept", "region", "videoId", "sources"}}
	for _, region := range run.Regions {
		rc := run.Candidates[region]
		if rc == nil {
			continue
		}
		vids := make([]string, 0, len(rc.Sources))
		for vid := range rc.Sources {
			vids = append(vids, vid)
		}
		// Map iteration order is random; sort for reproducible files.
		sort.Strings(vids)
		for _, vid := range vids {
			rows = append(rows, []string{
				run.Concept.Name,
				region,
				vid,
				strings.Join(rc.Sources[vid], ";"),
			})
		}
	}
	return rows
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// sanitizeFileComponent makes a concept name safe for use in a file name.
func sanitizeFileComponent(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', ' ':
			return '_'
		}
		return r
	}, s)
}
