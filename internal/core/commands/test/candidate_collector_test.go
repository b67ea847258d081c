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
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jaycherian/gcp-go-region-demand/internal/cloud"
	"github.com/jaycherian/gcp-go-region-demand/internal/core/commands"
	"github.com/jaycherian/gcp-go-region-demand/internal/core/cor"
	"github.com/jaycherian/gcp-go-region-demand/internal/core/model"
)

func TestCollectorMergesDedupsAndTags(t *testing.T) {
	api := &fakeDataAPI{
		search: func(query, region string) (*cloud.SearchPage, error) {
			if query == "retro gaming" {
				return &cloud.SearchPage{VideoIDs: []string{"v1", "v2", "v3"}}, nil
			}
			// Second query overlaps the first; only first-seen order counts.
			return &cloud.SearchPage{VideoIDs: []string{"v2", "v4"}}, nil
		},
		mostPopular: func(region string) ([]string, error) {
			return []string{"v3", "v9"}, nil
		},
	}

	run := newRun("JP")
	chCtx := newChainContext(run)
	commands.NewCandidateCollector("collector", api, 10, 1).Execute(chCtx)

	assert.False(t, chCtx.HasErrors())
	rc := run.Candidates["JP"]
	assert.Equal(t, []string{"v1", "v2", "v3", "v4", "v9"}, rc.Ordered)

	// v3 was found by search and is also trending: both tags, sorted.
	assert.Equal(t, []string{"search", "trending"}, rc.Sources["v3"])
	assert.Equal(t, []string{"search"}, rc.Sources["v2"])
	assert.Equal(t, []string{"trending"}, rc.Sources["v9"])

	assert.True(t, rc.Trending["v3"])
	assert.True(t, rc.Trending["v9"])
	assert.False(t, rc.Trending["v1"])
}

func TestCollectorTruncatesToTopK(t *testing.T) {
	api := &fakeDataAPI{
		search: func(query, region string) (*cloud.SearchPage, error) {
			ids := make([]string, 12)
			for i := range ids {
				ids[i] = string(rune('a' + i))
			}
			return &cloud.SearchPage{VideoIDs: ids}, nil
		},
		mostPopular: func(region string) ([]string, error) {
			return []string{"zz"}, nil
		},
	}

	run := newRun("US")
	commands.NewCandidateCollector("collector", api, 10, 1).Execute(newChainContext(run))

	rc := run.Candidates["US"]
	assert.Len(t, rc.Ordered, 10)
	// The trending-only video fell below the cut but keeps its provenance
	// and trending-set membership for the debug output and trend boost.
	assert.NotContains(t, rc.Ordered, "zz")
	assert.Equal(t, []string{"trending"}, rc.Sources["zz"])
	assert.True(t, rc.Trending["zz"])
}

func TestCollectorDegradesOnQueryFailure(t *testing.T) {
	api := &fakeDataAPI{
		search: func(query, region string) (*cloud.SearchPage, error) {
			if query == "retro gaming" {
				return nil, errBoom
			}
			return &cloud.SearchPage{VideoIDs: []string{"v1"}}, nil
		},
	}

	run := newRun("JP")
	chCtx := newChainContext(run)
	commands.NewCandidateCollector("collector", api, 10, 1).Execute(chCtx)

	// The failed query degrades to a recorded partial failure; the other
	// query's results survive and the chain is clean.
	assert.False(t, chCtx.HasErrors())
	assert.Equal(t, []string{"v1"}, run.Candidates["JP"].Ordered)
	assert.Len(t, run.Failures, 1)
	assert.Equal(t, "search", run.Failures[0].Stage)
	assert.Equal(t, "JP", run.Failures[0].Region)
}

func TestCollectorDegradesOnTrendingFailure(t *testing.T) {
	api := &fakeDataAPI{
		search: func(query, region string) (*cloud.SearchPage, error) {
			return &cloud.SearchPage{VideoIDs: []string{"v1"}}, nil
		},
		mostPopular: func(region string) ([]string, error) {
			return nil, errBoom
		},
	}

	run := newRun("JP")
	chCtx := newChainContext(run)
	commands.NewCandidateCollector("collector", api, 10, 1).Execute(chCtx)

	assert.False(t, chCtx.HasErrors())
	assert.Equal(t, []string{"v1"}, run.Candidates["JP"].Ordered)
	assert.Empty(t, run.Candidates["JP"].Trending)
	assert.Len(t, run.Failures, 1)
	assert.Equal(t, "trending", run.Failures[0].Stage)
}

func TestCollectorAbortsOnQuotaExhaustion(t *testing.T) {
	calls := 0
	api := &fakeDataAPI{
		search: func(query, region string) (*cloud.SearchPage, error) {
			calls++
			if calls == 2 {
				return nil, cloud.ErrQuotaExhausted
			}
			return &cloud.SearchPage{VideoIDs: []string{"v1"}}, nil
		},
	}

	run := newRun("JP", "US")
	chCtx := newChainContext(run)
	commands.NewCandidateCollector("collector", api, 10, 1).Execute(chCtx)

	// Quota exhaustion is a chain error, not a partial failure, and stops
	// the region sweep immediately: US is never visited.
	assert.True(t, chCtx.HasErrors())
	assert.True(t, cloud.IsQuotaExhausted(chCtx.GetErrors()["collector"]))
	assert.Equal(t, 2, calls)
	assert.Nil(t, run.Candidates["US"])
	assert.Nil(t, chCtx.Get(cor.CtxOut))
}

func TestCollectorPerRegionTrendingIsIndependent(t *testing.T) {
	api := &fakeDataAPI{
		search: func(query, region string) (*cloud.SearchPage, error) {
			return &cloud.SearchPage{VideoIDs: []string{"shared"}}, nil
		},
		mostPopular: func(region string) ([]string, error) {
			if region == "JP" {
				return []string{"shared"}, nil
			}
			return nil, nil
		},
	}

	run := newRun("JP", "US")
	commands.NewCandidateCollector("collector", api, 10, 1).Execute(newChainContext(run))

	// "shared" trends in JP only; the boost must not leak into US.
	assert.True(t, run.Candidates["JP"].Trending["shared"])
	assert.False(t, run.Candidates["US"].Trending["shared"])

	occ := run.Occurrences()
	assert.Equal(t, 2, occ["shared"])
}

func TestCollectorFollowsContinuationTokens(t *testing.T) {
	var tokens []string
	api := &fakeDataAPI{
		searchPages: func(query, region, token string) (*cloud.SearchPage, error) {
			tokens = append(tokens, token)
			switch token {
			case "":
				return &cloud.SearchPage{VideoIDs: []string{"p1-a", "p1-b"}, NextPageToken: "page2"}, nil
			case "page2":
				return &cloud.SearchPage{VideoIDs: []string{"p2-a"}, NextPageToken: "page3"}, nil
			default:
				return &cloud.SearchPage{VideoIDs: []string{"p3-a"}}, nil
			}
		},
	}

	run := newRun("JP")
	run.Concept = model.NewConcept("retro gaming", []string{"retro gaming"})
	commands.NewCandidateCollector("collector", api, 10, 2).Execute(newChainContext(run))

	// Two pages per query: the initial request plus one continuation.
	assert.Equal(t, []string{"", "page2"}, tokens)
	assert.Equal(t, []string{"p1-a", "p1-b", "p2-a"}, run.Candidates["JP"].Ordered)
}

func TestCollectorStopsAtLastPage(t *testing.T) {
	var calls int
	api := &fakeDataAPI{
		searchPages: func(query, region, token string) (*cloud.SearchPage, error) {
			calls++
			return &cloud.SearchPage{VideoIDs: []string{"only"}}, nil
		},
	}

	run := newRun("JP")
	run.Concept = model.NewConcept("retro gaming", []string{"retro gaming"})
	commands.NewCandidateCollector("collector", api, 10, 5).Execute(newChainContext(run))

	// An empty continuation token ends the query early.
	assert.Equal(t, 1, calls)
	assert.Equal(t, []string{"only"}, run.Candidates["JP"].Ordered)
}
