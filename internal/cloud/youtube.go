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

// Package cloud provides configuration and remote-service plumbing. This file
// wraps the YouTube Data API v3 behind the DataAPI interface and implements
// the quota-aware production client. The wrapper uses the Decorator pattern
// the same way the rest of this codebase wraps remote services: around every
// raw call it layers, in order,
//
//  1. a budget admission check against the quota ledger (a call that would
//     cross the daily cap is never issued),
//  2. request pacing via a rate limiter, respecting the service's implicit
//     per-key rate limits,
//  3. the retrying Executor with quota-error classification, and
//  4. cost charging plus an immediate ledger save on success, so a crash
//     loses at most the in-flight call's accounting.
package cloud

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/time/rate"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/youtube/v3"

	"github.com/jaycherian/gcp-go-region-demand/internal/core/model"
	"github.com/jaycherian/gcp-go-region-demand/internal/core/state"
)

// Sentinel errors distinguishing the two fatal-for-the-run failure classes
// from ordinary transient failures.
var (
	// ErrQuotaExhausted marks a remote-reported quota exhaustion. It aborts
	// the whole run without retries.
	ErrQuotaExhausted = errors.New("remote quota exhausted")
	// ErrBudgetExhausted marks a call that was never issued because it would
	// cross the configured daily budget.
	ErrBudgetExhausted = errors.New("daily quota budget exhausted")
)

// IsQuotaExhausted reports whether err is either quota-class failure.
func IsQuotaExhausted(err error) bool {
	return errors.Is(err, ErrQuotaExhausted) || errors.Is(err, ErrBudgetExhausted)
}

// isRemoteQuotaError classifies a raw API error as remote quota exhaustion.
// The Data API signals it as HTTP 403 with a quotaExceeded or
// dailyLimitExceeded reason.
func isRemoteQuotaError(err error) bool {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) || apiErr.Code != 403 {
		return false
	}
	for _, e := range apiErr.Errors {
		switch e.Reason {
		case "quotaExceeded", "dailyLimitExceeded":
			return true
		}
	}
	return false
}

// SearchPage is one page of keyword search results: ordered video ids plus
// the opaque continuation token ("" when the listing is exhausted).
type SearchPage struct {
	VideoIDs      []string
	NextPageToken string
}

// DataAPI is the remote search/statistics collaborator. All methods return a
// possibly-empty item list; every call is quota-accounted and retried by the
// production implementation. Tests substitute fakes.
type DataAPI interface {
	// Search returns one page of video ids for a query in a region,
	// constrained to items published after the given time.
	Search(ctx context.Context, query string, region string, publishedAfter time.Time, pageToken string) (*SearchPage, error)

	// MostPopular returns the region's trending-chart video ids.
	MostPopular(ctx context.Context, region string) ([]string, error)

	// VideoDetails batch-fetches statistics and snippet fields for the ids.
	// Ids absent from the response are simply missing from the result.
	VideoDetails(ctx context.Context, ids []string) ([]*model.VideoMetadata, error)

	// ChannelCountries batch-fetches the declared country per channel id.
	// Channels without a declared country are omitted.
	ChannelCountries(ctx context.Context, ids []string) (map[string]string, error)
}

// youTubeDataAPI is the production DataAPI backed by youtube.Service.
type youTubeDataAPI struct {
	service  *youtube.Service
	cfg      YouTubeAPI
	executor *Executor
	limiter  *rate.Limiter
	runState *state.RunState
}

// NewYouTubeDataAPI wraps a youtube.Service with budget admission, pacing,
// retries, and ledger accounting.
func NewYouTubeDataAPI(service *youtube.Service, cfg YouTubeAPI, executor *Executor, runState *state.RunState) DataAPI {
	rpm := cfg.RequestsPerMinute
	if rpm <= 0 {
		rpm = 120
	}
	return &youTubeDataAPI{
		service:  service,
		cfg:      cfg,
		executor: executor,
		limiter:  rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), 1),
		runState: runState,
	}
}

// call runs one remote operation through the quota/pacing/retry stack.
// The admission check is conservative: once the cap is reached no new call is
// issued, only work already in flight finishes.
func (y *youTubeDataAPI) call(ctx context.Context, kind string, cost int64, op func() error) error {
	ledger := y.runState.Quota
	day := ledger.DayKey(time.Now())
	ledger.EnsureDay(day)
	if ledger.WouldExceed(day, cost, y.cfg.DailyQuotaCap) {
		return fmt.Errorf("%s call would cross the daily cap (%d used of %d): %w",
			kind, ledger.Used(day), y.cfg.DailyQuotaCap, ErrBudgetExhausted)
	}

	if err := y.limiter.Wait(ctx); err != nil {
		return err
	}

	err := y.executor.Do(func() error {
		if err := op(); err != nil {
			if isRemoteQuotaError(err) {
				return fmt.Errorf("%s: %w", kind, ErrQuotaExhausted)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return err
	}

	// Persist the ledger after every successful call, not batched: a crash
	// then loses at most this call's cost accounting.
	ledger.Charge(day, cost)
	if err := y.runState.Store.SaveQuotaLedger(ledger); err != nil {
		slog.Warn("failed to save quota ledger", "error", err)
	}
	return nil
}

func (y *youTubeDataAPI) Search(ctx context.Context, query string, region string, publishedAfter time.Time, pageToken string) (*SearchPage, error) {
	var res *youtube.SearchListResponse
	err := y.call(ctx, "search", y.cfg.SearchCost, func() error {
		call := y.service.Search.List([]string{"id"}).
			Q(query).
			Type("video").
			MaxResults(y.cfg.MaxResults).
			RegionCode(region).
			Order("relevance").
			PublishedAfter(publishedAfter.UTC().Format(time.RFC3339)).
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		var err error
		res, err = call.Do()
		return err
	})
	if err != nil {
		return nil, err
	}

	page := &SearchPage{NextPageToken: res.NextPageToken}
	for _, item := range res.Items {
		if item.Id != nil && item.Id.VideoId != "" {
			page.VideoIDs = append(page.VideoIDs, item.Id.VideoId)
		}
	}
	return page, nil
}

func (y *youTubeDataAPI) MostPopular(ctx context.Context, region string) ([]string, error) {
	var res *youtube.VideoListResponse
	err := y.call(ctx, "mostPopular", y.cfg.MostPopularCost, func() error {
		var err error
		res, err = y.service.Videos.List([]string{"id"}).
			Chart("mostPopular").
			RegionCode(region).
			MaxResults(y.cfg.MaxResults).
			Context(ctx).
			Do()
		return err
	})
	if err != nil {
		return nil, err
	}

	var ids []string
	for _, item := range res.Items {
		if item.Id != "" {
			ids = append(ids, item.Id)
		}
	}
	return ids, nil
}

func (y *youTubeDataAPI) VideoDetails(ctx context.Context, ids []string) ([]*model.VideoMetadata, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var res *youtube.VideoListResponse
	err := y.call(ctx, "videos", y.cfg.VideosCost, func() error {
		var err error
		res, err = y.service.Videos.List([]string{"statistics", "snippet"}).
			Id(ids...).
			Context(ctx).
			Do()
		return err
	})
	if err != nil {
		return nil, err
	}

	out := make([]*model.VideoMetadata, 0, len(res.Items))
	for _, item := range res.Items {
		meta := &model.VideoMetadata{VideoID: item.Id}
		if item.Statistics != nil {
			meta.ViewCount = int64(item.Statistics.ViewCount)
		}
		if item.Snippet != nil {
			meta.ChannelID = item.Snippet.ChannelId
			meta.Title = item.Snippet.Title
			meta.Description = item.Snippet.Description
			meta.DefaultLanguage = item.Snippet.DefaultLanguage
			if meta.DefaultLanguage == "" {
				meta.DefaultLanguage = item.Snippet.DefaultAudioLanguage
			}
		}
		out = append(out, meta)
	}
	return out, nil
}

func (y *youTubeDataAPI) ChannelCountries(ctx context.Context, ids []string) (map[string]string, error) {
	if len(ids) == 0 {
		return map[string]string{}, nil
	}
	var res *youtube.ChannelListResponse
	err := y.call(ctx, "channels", y.cfg.ChannelsCost, func() error {
		var err error
		res, err = y.service.Channels.List([]string{"snippet"}).
			Id(ids...).
			Context(ctx).
			Do()
		return err
	})
	if err != nil {
		return nil, err
	}

	out := make(map[string]string, len(res.Items))
	for _, ch := range res.Items {
		if ch.Snippet != nil && ch.Snippet.Country != "" {
			out[ch.Id] = strings.ToUpper(ch.Snippet.Country)
		}
	}
	return out, nil
}
