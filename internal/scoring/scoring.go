// Package scoring combines cost, latency, reliability, and task-quality
// signals into a single score per provider. It is pure: no I/O, no clocks,
// no hidden randomness, so rankings are reproducible for fixed inputs.
package scoring

import (
	"fmt"
	"sort"
	"strings"

	"github.com/orcaai/relay/internal/registry"
	"github.com/orcaai/relay/pkg/types"
)

// Reference ceilings for normalization. These are deliberate heuristics
// carried over from the original scoring design, not computed constants.
const (
	// CostReference is the cost ceiling in dollars per 1k input tokens.
	// Providers at or above it get a zero cost score, never negative.
	CostReference = 0.10

	// LatencyReferenceMs is the latency ceiling in milliseconds.
	LatencyReferenceMs = 5000

	// DefaultQuality applies when a task type is unlisted for a provider.
	DefaultQuality = 0.8
)

// Default weights by component.
const (
	DefaultCostWeight        = 0.25
	DefaultLatencyWeight     = 0.25
	DefaultReliabilityWeight = 0.30
	DefaultQualityWeight     = 0.20
)

// ResolvedWeights are the effective weights after filling defaults. They
// are used as supplied, without renormalization: if they do not sum to 1
// the raw score may exceed 1, and the decision's confidence is clamped
// downstream instead.
type ResolvedWeights struct {
	Cost        float64
	Latency     float64
	Reliability float64
	Quality     float64
}

// Resolve fills absent preference fields with the defaults.
func Resolve(w types.Weights) ResolvedWeights {
	resolved := ResolvedWeights{
		Cost:        DefaultCostWeight,
		Latency:     DefaultLatencyWeight,
		Reliability: DefaultReliabilityWeight,
		Quality:     DefaultQualityWeight,
	}
	if w.Cost != nil {
		resolved.Cost = *w.Cost
	}
	if w.Latency != nil {
		resolved.Latency = *w.Latency
	}
	if w.Reliability != nil {
		resolved.Reliability = *w.Reliability
	}
	if w.Quality != nil {
		resolved.Quality = *w.Quality
	}
	return resolved
}

// Input is one provider's view for a single scoring pass: its static
// profile plus the normalized rolling metrics the tracker produced.
type Input struct {
	Profile      *registry.Profile
	Reliability  float64
	AvgLatencyMs float64
	RateLimited  bool
}

// Ranked pairs a provider with its score breakdown in ranking order.
type Ranked struct {
	Name      string
	Breakdown types.ScoreBreakdown
}

// Score computes the weighted composite score for one provider.
func Score(in Input, task string, w ResolvedWeights) types.ScoreBreakdown {
	costScore := 1 - in.Profile.CostPer1KInput/CostReference
	if costScore < 0 {
		costScore = 0
	}

	latencyScore := 1 - in.AvgLatencyMs/LatencyReferenceMs
	if latencyScore < 0 {
		latencyScore = 0
	}

	quality := DefaultQuality
	if q, ok := in.Profile.QualityByTask[task]; ok {
		quality = q
	}

	final := costScore*w.Cost +
		latencyScore*w.Latency +
		in.Reliability*w.Reliability +
		quality*w.Quality

	return types.ScoreBreakdown{
		Score:        final,
		CostScore:    costScore,
		LatencyScore: latencyScore,
		Reliability:  in.Reliability,
		Quality:      quality,
		AvgLatencyMs: in.AvgLatencyMs,
		CostPer1K:    in.Profile.CostPer1KInput,
		RateLimited:  in.RateLimited,
	}
}

// Rank scores every input and returns all providers in descending score
// order, rate-limited ones included so callers can expose their scores.
// Ties keep input order, which is registry registration order, making the
// ranking fully deterministic.
func Rank(inputs []Input, task string, w ResolvedWeights) []Ranked {
	ranked := make([]Ranked, 0, len(inputs))
	for _, in := range inputs {
		ranked = append(ranked, Ranked{
			Name:      in.Profile.Name,
			Breakdown: Score(in, task, w),
		})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Breakdown.Score > ranked[j].Breakdown.Score
	})
	return ranked
}

// Explain builds the advisory reasoning string for a winner from fixed
// threshold checks. It never influences ranking.
func Explain(provider, task string, b types.ScoreBreakdown) string {
	var reasons []string
	if b.Reliability > 0.95 {
		reasons = append(reasons, "high reliability")
	}
	if b.AvgLatencyMs < 1500 {
		reasons = append(reasons, "fast response")
	}
	if b.CostPer1K < 0.01 {
		reasons = append(reasons, "cost-effective")
	}
	if len(reasons) == 0 {
		reasons = append(reasons, "balanced performance")
	}
	return fmt.Sprintf("Selected %s for %s: %s", provider, task, strings.Join(reasons, ", "))
}
