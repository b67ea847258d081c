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

// Package commands holds the atomic pipeline steps that a concept run is
// assembled from. Each command reads the shared run carrier from the chain
// context, performs one stage of work, and passes the carrier on.
//
// This file defines the CandidateCollector, the first stage: for every
// region it issues one search page per configured query, merges the results
// into one deduplicated first-seen-order list, appends the region's trending
// chart, and truncates to the top-K list that all later stages operate on.
//
// Failure handling is per sub-step: a failed query or trending fetch is
// recorded as a partial failure on the carrier and collection continues with
// whatever the other sub-steps produced. Quota exhaustion is the exception
// and aborts the chain immediately.
package commands

import (
	"log/slog"

	"github.com/jaycherian/gcp-go-region-demand/internal/cloud"
	"github.com/jaycherian/gcp-go-region-demand/internal/core/cor"
	"github.com/jaycherian/gcp-go-region-demand/internal/core/model"
)

// CandidateCollector discovers candidate videos per region via keyword
// search and the trending chart.
type CandidateCollector struct {
	cor.BaseCommand
	youtube cloud.DataAPI
	maxRank int
	pages   int
}

// NewCandidateCollector creates the collector command.
//
// Inputs:
//   - name: The command name for logging and telemetry.
//   - youtube: The quota-aware Data API client.
//   - maxRank: K, the per-region candidate list length.
//   - pages: Search pages fetched per query; values below 1 mean one page.
func NewCandidateCollector(name string, youtube cloud.DataAPI, maxRank int, pages int) *CandidateCollector {
	if pages < 1 {
		pages = 1
	}
	return &CandidateCollector{
		BaseCommand: *cor.NewBaseCommand(name),
		youtube:     youtube,
		maxRank:     maxRank,
		pages:       pages,
	}
}

// Execute walks the run's region list and fills in the per-region candidate
// state. Search results keep their relevance order; the trending chart is
// appended after all queries so chart-only videos sit below keyword matches.
func (c *CandidateCollector) Execute(context cor.Context) {
	ctx := context.GetContext()
	run := context.Get(c.GetInputParam()).(*model.ConceptRun)

	for _, region := range run.Regions {
		rc := model.NewRegionCandidates(region)
		run.Candidates[region] = rc

		for _, query := range run.Concept.Queries {
			token := ""
			for page := 0; page < c.pages; page++ {
				result, err := c.youtube.Search(ctx, query, region, run.PublishedAfter, token)
				if err != nil {
					if cloud.IsQuotaExhausted(err) {
						c.GetErrorCounter().Add(ctx, 1)
						context.AddError(c.GetName(), err)
						return
					}
					run.AddFailure("search", region, query, err)
					slog.Warn("search query failed",
						"concept", run.Concept.Name,
						"region", region,
						"query", query,
						"error", err)
					break
				}
				for _, vid := range result.VideoIDs {
					rc.Append(vid, model.SourceSearch)
				}
				token = result.NextPageToken
				if token == "" {
					break
				}
			}
		}

		trending, err := c.youtube.MostPopular(ctx, region)
		if err != nil {
			if cloud.IsQuotaExhausted(err) {
				c.GetErrorCounter().Add(ctx, 1)
				context.AddError(c.GetName(), err)
				return
			}
			run.AddFailure("trending", region, "mostPopular", err)
			slog.Warn("trending chart fetch failed",
				"concept", run.Concept.Name,
				"region", region,
				"error", err)
		} else {
			for _, vid := range trending {
				rc.Append(vid, model.SourceTrending)
				rc.MarkTrending(vid)
			}
		}

		rc.Truncate(c.maxRank)
		slog.Info("collected candidates",
			"concept", run.Concept.Name,
			"region", region,
			"candidates", len(rc.Ordered),
			"trending", len(rc.Trending))
	}

	c.GetSuccessCounter().Add(ctx, 1)
	context.Add(c.GetOutputParam(), run)
}
