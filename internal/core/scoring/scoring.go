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

// Package scoring combines the per-video signals into one comparable score.
// All behavior is driven by a single versioned Policy so the exact weight and
// formula combination in effect is explicit and testable, rather than spread
// across constants. Given identical candidate lists, metadata, and occurrence
// counts, scoring is a pure function: repeated invocation yields identical
// output to the configured rounding precision.
package scoring

import (
	"math"
	"sort"

	"github.com/jaycherian/gcp-go-region-demand/internal/core/model"
)

// UniquenessVariant selects which cross-region uniqueness formula a Policy
// applies. The two variants reflect the metric's history; they are never
// mixed within a run.
type UniquenessVariant string

const (
	// UniquenessTFIDF is the region-count-aware logarithmic form:
	// ln((N+1)/(1+occ)) / ln(N+1), clamped to >= 0. It is 0 for a video
	// present in every region and approaches 1 for region-exclusive videos.
	UniquenessTFIDF UniquenessVariant = "tfidf"
	// UniquenessPowerLaw is the historical alternative 1/(1+occ^k). It
	// ignores the region count and never reaches zero.
	UniquenessPowerLaw UniquenessVariant = "powerlaw"
)

// Policy is the versioned scoring configuration. The weights sum to 1.
type Policy struct {
	Version            string            // Identifier recorded for auditing which combination produced an output.
	MaxRank            int               // K: the top-K candidate list length and the rank-score floor.
	WeightRank         float64           // W_RANK
	WeightPopularity   float64           // W_POP
	WeightLocality     float64           // W_LOCAL
	TrendBoost         float64           // Multiplier applied when the video is in the region's trending set.
	Percentile         float64           // Robust percentile for the regional popularity denominator.
	ComponentPrecision int               // Decimal places for intermediate signals.
	FinalPrecision     int               // Decimal places for final and aggregate scores.
	Uniqueness         UniquenessVariant // Which uniqueness formula to apply.
	PowerLawExponent   float64           // k for the power-law variant; unused by TF-IDF.
}

// DefaultPolicy returns the canonical policy: TF-IDF uniqueness with the
// reference 0.30/0.45/0.25 weights, a 10% trend boost, and p95 popularity
// normalization.
func DefaultPolicy() Policy {
	return Policy{
		Version:            "tfidf-v2",
		MaxRank:            10,
		WeightRank:         0.30,
		WeightPopularity:   0.45,
		WeightLocality:     0.25,
		TrendBoost:         1.10,
		Percentile:         0.95,
		ComponentPrecision: 6,
		FinalPrecision:     8,
		Uniqueness:         UniquenessTFIDF,
		PowerLawExponent:   1.0,
	}
}

// Round rounds half-away-from-zero to the given number of decimal places.
func Round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

// RankScore maps a 1-based rank to (K - clamp(r,1,K) + 1) / K: linear,
// highest at rank 1, floored at rank K.
func (p Policy) RankScore(rank int) float64 {
	k := p.MaxRank
	r := rank
	if r < 1 {
		r = 1
	}
	if r > k {
		r = k
	}
	return float64(k-r+1) / float64(k)
}

// Popularity is log10(viewCount+1) normalized by the region's denominator and
// clamped to [0, 1]. Non-positive view counts score zero.
func (p Policy) Popularity(viewCount int64, denom float64) float64 {
	if viewCount <= 0 {
		return 0
	}
	if denom <= 0 {
		denom = 1.0
	}
	pop := math.Log10(float64(viewCount)+1) / denom
	if pop < 0 {
		return 0
	}
	if pop > 1 {
		return 1
	}
	return pop
}

// UniquenessScore converts a cross-region occurrence count into [0, 1]
// according to the policy's variant. With one region or fewer there is no
// discrimination possible and the TF-IDF form returns 1.
func (p Policy) UniquenessScore(occurrence int, nRegions int) float64 {
	if p.Uniqueness == UniquenessPowerLaw {
		return 1.0 / (1.0 + math.Pow(float64(occurrence), p.PowerLawExponent))
	}
	if nRegions <= 1 {
		return 1.0
	}
	denom := math.Log(float64(nRegions + 1))
	if denom <= 0 {
		return 1.0
	}
	idf := math.Log(float64(nRegions+1) / float64(1+occurrence))
	u := idf / denom
	if u < 0 {
		return 0
	}
	return u
}

// RegionDenominator computes the popularity normalization for one region:
// log10(p95+1) over the region's positive view counts, or 1.0 when there are
// none. The percentile resists a single viral outlier skewing the scale. The
// quantile uses linear interpolation truncated to an integer, matching the
// behavior the historical outputs were produced with.
func (p Policy) RegionDenominator(viewCounts []int64) float64 {
	var positive []float64
	for _, v := range viewCounts {
		if v > 0 {
			positive = append(positive, float64(v))
		}
	}
	if len(positive) == 0 {
		return 1.0
	}
	sort.Float64s(positive)
	p95 := math.Trunc(quantile(positive, p.Percentile))
	if p95 <= 0 {
		return 1.0
	}
	return math.Log10(p95 + 1)
}

// quantile evaluates the q-quantile of sorted values by linear interpolation
// between the two nearest order statistics.
func quantile(sorted []float64, q float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n == 1 {
		return sorted[0]
	}
	pos := q * float64(n-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}

// Row is one (video, region) occurrence to be scored: the rank within the
// region's truncated list plus the enrichment-derived signals.
type Row struct {
	VideoID         string
	Region          string
	Rank            int // 1-based within the region's top-K list.
	ViewCount       int64
	LocalHint       float64
	LocalHintSource string
	Trending        bool // Membership in the region's trending set.
}

// Denominators computes the per-region popularity denominators from the rows.
func (p Policy) Denominators(rows []Row) map[string]float64 {
	byRegion := make(map[string][]int64)
	for _, r := range rows {
		byRegion[r.Region] = append(byRegion[r.Region], r.ViewCount)
	}
	out := make(map[string]float64, len(byRegion))
	for region, counts := range byRegion {
		out[region] = p.RegionDenominator(counts)
	}
	return out
}

// Score computes the full ScoredVideo record for every row. Intermediate
// values are rounded to ComponentPrecision and the final score to
// FinalPrecision before being exposed.
func (p Policy) Score(concept string, rows []Row, occurrence map[string]int, nRegions int, denoms map[string]float64) []*model.ScoredVideo {
	out := make([]*model.ScoredVideo, 0, len(rows))
	for _, r := range rows {
		rankScore := p.RankScore(r.Rank)
		popularity := p.Popularity(r.ViewCount, denoms[r.Region])
		occ := occurrence[r.VideoID]
		uniqueness := p.UniquenessScore(occ, nRegions)

		inner := p.WeightRank*rankScore + p.WeightPopularity*popularity + p.WeightLocality*r.LocalHint

		boost := 1.0
		if r.Trending {
			boost = p.TrendBoost
		}
		final := inner * uniqueness * boost

		out = append(out, &model.ScoredVideo{
			Concept:         concept,
			VideoID:         r.VideoID,
			Region:          r.Region,
			Rank:            r.Rank,
			ViewCount:       r.ViewCount,
			RankScore:       Round(rankScore, p.ComponentPrecision),
			Popularity:      Round(popularity, p.ComponentPrecision),
			LocalHint:       Round(r.LocalHint, p.ComponentPrecision),
			LocalHintSource: r.LocalHintSource,
			OccurrenceCount: occ,
			Uniqueness:      Round(uniqueness, p.ComponentPrecision),
			InnerScore:      Round(inner, p.ComponentPrecision),
			TrendBoost:      Round(boost, p.ComponentPrecision),
			FinalScore:      Round(final, p.FinalPrecision),
		})
	}
	return out
}

// Aggregate sums final scores per region for the externally consumed result.
// Regions are emitted in the order of the run's region list; regions that
// produced no scored rows are omitted, as in the historical outputs.
func (p Policy) Aggregate(concept string, dateStamp string, regions []string, scored []*model.ScoredVideo) []*model.RegionScore {
	sums := make(map[string]float64)
	for _, sv := range scored {
		sums[sv.Region] += sv.FinalScore
	}
	out := make([]*model.RegionScore, 0, len(sums))
	for _, region := range regions {
		total, ok := sums[region]
		if !ok {
			continue
		}
		out = append(out, &model.RegionScore{
			Concept: concept,
			Region:  region,
			Score:   Round(total, p.FinalPrecision),
			RunDate: dateStamp,
		})
	}
	return out
}
