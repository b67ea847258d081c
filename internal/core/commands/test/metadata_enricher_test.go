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
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jaycherian/gcp-go-region-demand/internal/cloud"
	"github.com/jaycherian/gcp-go-region-demand/internal/core/commands"
	"github.com/jaycherian/gcp-go-region-demand/internal/core/model"
)

// seedCandidates populates the run with n candidates in one region.
func seedCandidates(run *model.ConceptRun, region string, n int) {
	rc := model.NewRegionCandidates(region)
	for i := 0; i < n; i++ {
		rc.Append(fmt.Sprintf("v%03d", i), model.SourceSearch)
	}
	run.Candidates[region] = rc
}

func TestEnricherChunksBatches(t *testing.T) {
	api := &fakeDataAPI{
		details: func(ids []string) ([]*model.VideoMetadata, error) {
			out := make([]*model.VideoMetadata, 0, len(ids))
			for _, id := range ids {
				out = append(out, &model.VideoMetadata{VideoID: id, ViewCount: 100})
			}
			return out, nil
		},
	}

	run := newRun("JP")
	seedCandidates(run, "JP", 120)
	chCtx := newChainContext(run)
	commands.NewMetadataEnricher("enricher", api, 50).Execute(chCtx)

	assert.False(t, chCtx.HasErrors())
	assert.Len(t, run.Videos, 120)
	// 120 unique ids at a batch limit of 50: chunks of 50, 50, 20.
	assert.Len(t, api.detailCalls, 3)
	assert.Len(t, api.detailCalls[0], 50)
	assert.Len(t, api.detailCalls[1], 50)
	assert.Len(t, api.detailCalls[2], 20)
}

func TestEnricherFetchesSharedVideosOnce(t *testing.T) {
	api := &fakeDataAPI{}

	run := newRun("JP", "US")
	for _, region := range run.Regions {
		rc := model.NewRegionCandidates(region)
		rc.Append("shared", model.SourceSearch)
		run.Candidates[region] = rc
	}
	commands.NewMetadataEnricher("enricher", api, 50).Execute(newChainContext(run))

	assert.Len(t, api.detailCalls, 1)
	assert.Equal(t, []string{"shared"}, api.detailCalls[0])
}

func TestEnricherDegradesOnChunkFailure(t *testing.T) {
	call := 0
	api := &fakeDataAPI{
		details: func(ids []string) ([]*model.VideoMetadata, error) {
			call++
			if call == 1 {
				return nil, errBoom
			}
			out := make([]*model.VideoMetadata, 0, len(ids))
			for _, id := range ids {
				out = append(out, &model.VideoMetadata{VideoID: id, ViewCount: 7})
			}
			return out, nil
		},
	}

	run := newRun("JP")
	seedCandidates(run, "JP", 60)
	chCtx := newChainContext(run)
	commands.NewMetadataEnricher("enricher", api, 50).Execute(chCtx)

	// First chunk lost, second survived; the run records one failure and
	// the chain continues.
	assert.False(t, chCtx.HasErrors())
	assert.Len(t, run.Videos, 10)
	assert.Len(t, run.Failures, 1)
	assert.Equal(t, "videos", run.Failures[0].Stage)

	// Videos from the failed chunk fall back to zero-value metadata.
	meta := run.Metadata("v000")
	assert.Equal(t, int64(0), meta.ViewCount)
}

func TestEnricherAbortsOnQuotaExhaustion(t *testing.T) {
	api := &fakeDataAPI{
		details: func(ids []string) ([]*model.VideoMetadata, error) {
			return nil, cloud.ErrBudgetExhausted
		},
	}

	run := newRun("JP")
	seedCandidates(run, "JP", 5)
	chCtx := newChainContext(run)
	commands.NewMetadataEnricher("enricher", api, 50).Execute(chCtx)

	assert.True(t, chCtx.HasErrors())
	assert.True(t, cloud.IsQuotaExhausted(chCtx.GetErrors()["enricher"]))
}

func TestEnricherCollectsChannelCountries(t *testing.T) {
	api := &fakeDataAPI{
		details: func(ids []string) ([]*model.VideoMetadata, error) {
			return []*model.VideoMetadata{
				{VideoID: "v1", ChannelID: "ch-1"},
				{VideoID: "v2", ChannelID: "ch-1"}, // same channel twice
				{VideoID: "v3", ChannelID: "ch-2"},
			}, nil
		},
		countries: func(ids []string) (map[string]string, error) {
			// ch-2 has no declared country and is absent from the result.
			assert.Equal(t, []string{"ch-1", "ch-2"}, ids)
			return map[string]string{"ch-1": "JP"}, nil
		},
	}

	run := newRun("JP")
	rc := model.NewRegionCandidates("JP")
	rc.Append("v1", model.SourceSearch)
	rc.Append("v2", model.SourceSearch)
	rc.Append("v3", model.SourceSearch)
	run.Candidates["JP"] = rc

	chCtx := newChainContext(run)
	commands.NewMetadataEnricher("enricher", api, 50).Execute(chCtx)

	assert.False(t, chCtx.HasErrors())
	assert.Equal(t, map[string]string{"ch-1": "JP"}, run.Channels)
}
