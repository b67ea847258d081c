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

// Package commands_test exercises the pipeline commands against an in-memory
// fake of the Data API, covering the degrade-and-continue failure handling
// and the quota-abort short circuit without touching the network.
package commands_test

import (
	"context"
	"errors"
	"time"

	"github.com/jaycherian/gcp-go-region-demand/internal/cloud"
	"github.com/jaycherian/gcp-go-region-demand/internal/core/cor"
	"github.com/jaycherian/gcp-go-region-demand/internal/core/model"
)

// fakeDataAPI is a scriptable DataAPI. Each hook defaults to an empty
// successful response when nil.
type fakeDataAPI struct {
	search      func(query, region string) (*cloud.SearchPage, error)
	searchPages func(query, region, token string) (*cloud.SearchPage, error)
	mostPopular func(region string) ([]string, error)
	details     func(ids []string) ([]*model.VideoMetadata, error)
	countries   func(ids []string) (map[string]string, error)

	detailCalls [][]string
}

func (f *fakeDataAPI) Search(_ context.Context, query, region string, _ time.Time, token string) (*cloud.SearchPage, error) {
	if f.searchPages != nil {
		return f.searchPages(query, region, token)
	}
	if f.search == nil {
		return &cloud.SearchPage{}, nil
	}
	return f.search(query, region)
}

func (f *fakeDataAPI) MostPopular(_ context.Context, region string) ([]string, error) {
	if f.mostPopular == nil {
		return nil, nil
	}
	return f.mostPopular(region)
}

func (f *fakeDataAPI) VideoDetails(_ context.Context, ids []string) ([]*model.VideoMetadata, error) {
	f.detailCalls = append(f.detailCalls, append([]string(nil), ids...))
	if f.details == nil {
		return nil, nil
	}
	return f.details(ids)
}

func (f *fakeDataAPI) ChannelCountries(_ context.Context, ids []string) (map[string]string, error) {
	if f.countries == nil {
		return map[string]string{}, nil
	}
	return f.countries(ids)
}

// newChainContext wraps a fresh run carrier in a chain context ready for a
// single command's Execute.
func newChainContext(run *model.ConceptRun) cor.Context {
	chCtx := cor.NewBaseContext()
	chCtx.SetContext(context.Background())
	chCtx.Add(cor.CtxIn, run)
	return chCtx
}

func newRun(regions ...string) *model.ConceptRun {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	return model.NewConceptRun(
		model.NewConcept("retro gaming", []string{"retro gaming", "classic console"}),
		regions,
		now.Add(-30*24*time.Hour),
		now,
	)
}

var errBoom = errors.New("transient failure")
