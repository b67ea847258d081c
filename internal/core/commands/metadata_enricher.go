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
	"fmt"
	"log/slog"

	"github.com/jaycherian/gcp-go-region-demand/internal/cloud"
	"github.com/jaycherian/gcp-go-region-demand/internal/core/cor"
	"github.com/jaycherian/gcp-go-region-demand/internal/core/model"
)

// MetadataEnricher batch-fetches statistics, snippet fields, and channel
// countries for every unique candidate in the run. Each video is fetched at
// most once no matter how many regions surfaced it. A failed chunk is a
// partial failure: its videos keep zero-value metadata and the run degrades
// rather than aborts, except on quota exhaustion.
type MetadataEnricher struct {
	cor.BaseCommand
	youtube   cloud.DataAPI
	batchSize int
}

// NewMetadataEnricher creates the enricher command. batchSize is capped at
// 50, the Data API's per-call id limit.
func NewMetadataEnricher(name string, youtube cloud.DataAPI, batchSize int) *MetadataEnricher {
	if batchSize <= 0 || batchSize > 50 {
		batchSize = 50
	}
	return &MetadataEnricher{
		BaseCommand: *cor.NewBaseCommand(name),
		youtube:     youtube,
		batchSize:   batchSize,
	}
}

func (c *MetadataEnricher) Execute(context cor.Context) {
	ctx := context.GetContext()
	run := context.Get(c.GetInputParam()).(*model.ConceptRun)

	unique := run.UniqueVideos()
	for start := 0; start < len(unique); start += c.batchSize {
		end := start + c.batchSize
		if end > len(unique) {
			end = len(unique)
		}
		chunk := unique[start:end]

		metas, err := c.youtube.VideoDetails(ctx, chunk)
		if err != nil {
			if cloud.IsQuotaExhausted(err) {
				c.GetErrorCounter().Add(ctx, 1)
				context.AddError(c.GetName(), err)
				return
			}
			run.AddFailure("videos", "", fmt.Sprintf("chunk %d-%d", start, end), err)
			slog.Warn("video details chunk failed",
				"concept", run.Concept.Name,
				"chunk_start", start,
				"chunk_size", len(chunk),
				"error", err)
			continue
		}
		for _, m := range metas {
			run.Videos[m.VideoID] = m
		}
	}

	// Channel countries, again chunked and deduplicated.
	seen := make(map[string]bool)
	var channels []string
	for _, vid := range unique {
		meta, ok := run.Videos[vid]
		if !ok || meta.ChannelID == "" || seen[meta.ChannelID] {
			continue
		}
		seen[meta.ChannelID] = true
		channels = append(channels, meta.ChannelID)
	}
	for start := 0; start < len(channels); start += c.batchSize {
		end := start + c.batchSize
		if end > len(channels) {
			end = len(channels)
		}
		chunk := channels[start:end]

		countries, err := c.youtube.ChannelCountries(ctx, chunk)
		if err != nil {
			if cloud.IsQuotaExhausted(err) {
				c.GetErrorCounter().Add(ctx, 1)
				context.AddError(c.GetName(), err)
				return
			}
			run.AddFailure("channels", "", fmt.Sprintf("chunk %d-%d", start, end), err)
			slog.Warn("channel countries chunk failed",
				"concept", run.Concept.Name,
				"chunk_start", start,
				"chunk_size", len(chunk),
				"error", err)
			continue
		}
		for id, country := range countries {
			run.Channels[id] = country
		}
	}

	slog.Info("enriched candidates",
		"concept", run.Concept.Name,
		"videos", len(run.Videos),
		"channels", len(run.Channels))
	c.GetSuccessCounter().Add(ctx, 1)
	context.Add(c.GetOutputParam(), run)
}
