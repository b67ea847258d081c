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

// Package workflow assembles the pipeline commands into the per-concept
// chain and drives the overall collection run.
package workflow

import (
	"github.com/jaycherian/gcp-go-region-demand/internal/cloud"
	"github.com/jaycherian/gcp-go-region-demand/internal/core/commands"
	"github.com/jaycherian/gcp-go-region-demand/internal/core/cor"
	"github.com/jaycherian/gcp-go-region-demand/internal/core/state"
)

// NewConceptChain builds the chain one concept travels through: collect,
// enrich, score, write, then the optional sinks, and finally the last-fetch
// checkpoint. The chain stops at the first recorded error, which in practice
// means quota exhaustion: every lesser failure is recorded on the carrier as
// a partial failure and the chain keeps going. On a stop the checkpoint
// never runs, so an aborted concept is re-fetched with its original window.
func NewConceptChain(cfg *cloud.Config, clients *cloud.ServiceClients, runState *state.RunState) cor.Chain {
	languages := cloud.DefaultRegionLanguages
	if len(cfg.Collection.RegionLanguages) > 0 {
		languages = cfg.Collection.RegionLanguages
	}

	chain := cor.NewBaseChain("concept_collection").
		AddCommand(commands.NewCandidateCollector("candidate_collector", clients.YouTube, cfg.Collection.MaxRank, cfg.YouTube.PagesPerQuery)).
		AddCommand(commands.NewMetadataEnricher("metadata_enricher", clients.YouTube, cfg.Collection.BatchSize)).
		AddCommand(commands.NewScoreVideos("score_videos", cfg.ScoringPolicy(), languages, clients.Detector)).
		AddCommand(commands.NewWriteOutputs("write_outputs", cfg.Application.OutputDir))

	if clients.StorageClient != nil && cfg.Sinks.GCSBucket != "" {
		chain.AddCommand(commands.NewUploadOutputs("upload_outputs", clients.StorageClient, cfg.Sinks.GCSBucket))
	}
	if clients.BigQueryClient != nil && cfg.Sinks.BigQueryDataSource.DatasetName != "" {
		chain.AddCommand(commands.NewPersistScores("persist_scores", clients.BigQueryClient, cfg.Sinks.BigQueryDataSource))
	}

	chain.AddCommand(commands.NewCheckpoint("checkpoint", runState, nil))
	return chain
}
