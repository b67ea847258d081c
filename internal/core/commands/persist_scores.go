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

	"cloud.google.com/go/bigquery"

	"github.com/jaycherian/gcp-go-region-demand/internal/cloud"
	"github.com/jaycherian/gcp-go-region-demand/internal/core/cor"
	"github.com/jaycherian/gcp-go-region-demand/internal/core/model"
)

// PersistScores streams the run's scored records into BigQuery so regional
// demand can be queried across runs. The CSV files remain the canonical
// output; a failed insert is a partial failure, not a run failure.
type PersistScores struct {
	cor.BaseCommand
	client  *bigquery.Client
	dataset cloud.BigQueryDataSource
}

// NewPersistScores creates the BigQuery sink command.
func NewPersistScores(name string, client *bigquery.Client, dataset cloud.BigQueryDataSource) *PersistScores {
	return &PersistScores{
		BaseCommand: *cor.NewBaseCommand(name),
		client:      client,
		dataset:     dataset,
	}
}

func (c *PersistScores) Execute(context cor.Context) {
	ctx := context.GetContext()
	run := context.Get(c.GetInputParam()).(*model.ConceptRun)

	ds := c.client.Dataset(c.dataset.DatasetName)

	if len(run.RegionScores) > 0 {
		inserter := ds.Table(c.dataset.RegionScoreTable).Inserter()
		if err := inserter.Put(ctx, run.RegionScores); err != nil {
			run.AddFailure("persist", "", c.dataset.RegionScoreTable, err)
			slog.Warn("failed to persist region scores",
				"table", c.dataset.RegionScoreTable, "error", err)
		}
	}

	if len(run.Scored) > 0 {
		inserter := ds.Table(c.dataset.VideoScoreTable).Inserter()
		if err := inserter.Put(ctx, run.Scored); err != nil {
			run.AddFailure("persist", "", c.dataset.VideoScoreTable, err)
			slog.Warn("failed to persist video scores",
				"table", c.dataset.VideoScoreTable, "error", err)
		}
	}

	c.GetSuccessCounter().Add(ctx, 1)
	context.Add(c.GetOutputParam(), run)
}
