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

	"github.com/jaycherian/gcp-go-region-demand/internal/core/cor"
	"github.com/jaycherian/gcp-go-region-demand/internal/core/locality"
	"github.com/jaycherian/gcp-go-region-demand/internal/core/model"
	"github.com/jaycherian/gcp-go-region-demand/internal/core/scoring"
)

// ScoreVideos turns the collected and enriched candidate state into scored
// records. It is a pure in-memory stage: given the same carrier it always
// produces the same scores, so all the remote-failure handling lives in the
// stages before it.
type ScoreVideos struct {
	cor.BaseCommand
	policy    scoring.Policy
	languages map[string]string // region code -> expected ISO-639-1 language.
	detector  locality.Detector
}

// NewScoreVideos creates the scoring command.
func NewScoreVideos(name string, policy scoring.Policy, languages map[string]string, detector locality.Detector) *ScoreVideos {
	return &ScoreVideos{
		BaseCommand: *cor.NewBaseCommand(name),
		policy:      policy,
		languages:   languages,
		detector:    detector,
	}
}

func (c *ScoreVideos) Execute(context cor.Context) {
	ctx := context.GetContext()
	run := context.Get(c.GetInputParam()).(*model.ConceptRun)

	var rows []scoring.Row
	for _, region := range run.Regions {
		rc := run.Candidates[region]
		if rc == nil {
			continue
		}
		expectedLang := c.languages[region]
		for i, vid := range rc.Ordered {
			meta := run.Metadata(vid)
			hint := locality.Hint(region, expectedLang, meta, run.Channels[meta.ChannelID], c.detector)
			rows = append(rows, scoring.Row{
				VideoID:         vid,
				Region:          region,
				Rank:            i + 1,
				ViewCount:       meta.ViewCount,
				LocalHint:       hint.Hint,
				LocalHintSource: hint.Source,
				Trending:        rc.Trending[vid],
			})
		}
	}

	denoms := c.policy.Denominators(rows)
	run.Scored = c.policy.Score(run.Concept.Name, rows, run.Occurrences(), len(run.Regions), denoms)
	run.RegionScores = c.policy.Aggregate(run.Concept.Name, run.DateStamp(), run.Regions, run.Scored)

	slog.Info("scored candidates",
		"concept", run.Concept.Name,
		"policy", c.policy.Version,
		"rows", len(run.Scored),
		"regions", len(run.RegionScores))
	c.GetSuccessCounter().Add(ctx, 1)
	context.Add(c.GetOutputParam(), run)
}
