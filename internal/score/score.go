// Package score turns a set of column quality profiles into the composite
// readiness score. It is a pure function of its input: identical profiles
// always yield identical scores, with no randomness and no external
// state. The score is recomputed on demand and never cached, so it can
// never go stale relative to the quality metrics.
package score

import (
	"fmt"
	"math"

	"github.com/vk/datareadygo/internal/config"
	"github.com/vk/datareadygo/internal/quality"
)

// Category is the readiness verdict derived from the total score.
type Category string

const (
	Ready         Category = "ready"
	ReadyMinorFix Category = "ready_with_minor_fixes"
	NeedsWork     Category = "needs_work"
	NotReady      Category = "not_ready"
)

// Component names used as keys in the score breakdown.
const (
	ComponentMissingness     = "missingness"
	ComponentDuplicates      = "duplicates"
	ComponentOutliers        = "outliers"
	ComponentCardinality     = "cardinality"
	ComponentTypeConsistency = "type_consistency"
)

// componentOrder fixes the accumulation order of the weighted total.
// Summing in map iteration order would make the float rounding depend on
// randomized iteration.
var componentOrder = []string{
	ComponentMissingness,
	ComponentDuplicates,
	ComponentOutliers,
	ComponentCardinality,
	ComponentTypeConsistency,
}

// Score is the composite readiness verdict with its component breakdown.
type Score struct {
	Total      int                `json:"total"`
	Category   Category           `json:"category"`
	Components map[string]float64 `json:"components"`
	Notes      []string           `json:"notes,omitempty"`
}

// Compute aggregates the quality result into a readiness score using the
// configured thresholds and component weights.
func Compute(res quality.Result, th config.Thresholds, w config.Weights) Score {
	if res.Rows <= 0 {
		return Score{
			Total:    0,
			Category: NotReady,
			Components: map[string]float64{
				ComponentMissingness:     0,
				ComponentDuplicates:      0,
				ComponentOutliers:        0,
				ComponentCardinality:     0,
				ComponentTypeConsistency: 0,
			},
			Notes: []string{"empty dataset"},
		}
	}

	totalCols := len(res.Profiles)
	if totalCols == 0 {
		totalCols = 1
	}

	var (
		missingSum   float64
		highMissing  int
		constants    int
		flaggedCard  int
		mixed        int
		numericCols  int
		outlierHeavy int
	)
	for _, p := range res.Profiles {
		missingSum += p.MissingFraction
		if p.MissingFraction > th.HighMissing {
			highMissing++
		}
		if p.Constant {
			constants++
		}
		if p.HighCardinality || p.LeakageSuspect {
			flaggedCard++
		}
		if p.MixedType {
			mixed++
		}
		if p.Outliers != nil {
			numericCols++
			if p.Outliers.Fraction > th.OutlierColumn {
				outlierHeavy++
			}
		}
	}

	avgMissing := missingSum / float64(totalCols)
	highMissingRatio := float64(highMissing) / float64(totalCols)
	constantRatio := float64(constants) / float64(totalCols)
	flaggedRatio := float64(flaggedCard) / float64(totalCols)
	outlierRatio := 0.0
	if numericCols > 0 {
		outlierRatio = float64(outlierHeavy) / float64(numericCols)
	}

	components := map[string]float64{
		ComponentMissingness:     clamp(100 - 120*avgMissing - 50*highMissingRatio),
		ComponentDuplicates:      clamp(100 - 150*res.DuplicateFraction),
		ComponentOutliers:        clamp(100 - 80*outlierRatio),
		ComponentCardinality:     clamp(100 - 200*constantRatio - 100*flaggedRatio),
		ComponentTypeConsistency: clamp(100 - 25*float64(mixed)),
	}
	for name, v := range components {
		components[name] = round2(v)
	}

	weightOf := map[string]float64{
		ComponentMissingness:     w.Missingness,
		ComponentDuplicates:      w.Duplicates,
		ComponentOutliers:        w.Outliers,
		ComponentCardinality:     w.Cardinality,
		ComponentTypeConsistency: w.TypeConsistency,
	}
	var weighted, weightSum float64
	for _, name := range componentOrder {
		weighted += components[name] * weightOf[name]
		weightSum += weightOf[name]
	}
	total := int(math.Round(clamp(weighted / weightSum)))

	return Score{
		Total:      total,
		Category:   categorize(total),
		Components: components,
		Notes:      notes(res, avgMissing, highMissingRatio, constantRatio, outlierRatio),
	}
}

// categorize maps the total onto the fixed, non-overlapping partition of
// the 0-100 range.
func categorize(total int) Category {
	switch {
	case total >= 90:
		return Ready
	case total >= 75:
		return ReadyMinorFix
	case total >= 50:
		return NeedsWork
	default:
		return NotReady
	}
}

// notes produces short advisory strings mirroring the component
// penalties. They are informational only and never feed back into the
// score.
func notes(res quality.Result, avgMissing, highMissingRatio, constantRatio, outlierRatio float64) []string {
	var out []string
	if avgMissing > 0.3 {
		out = append(out, "high average missingness; consider aggressive cleaning")
	}
	if res.DuplicateFraction > 0.05 {
		out = append(out, "notable duplicate rows present")
	}
	if constantRatio > 0.1 {
		out = append(out, "several constant columns provide no variance")
	}
	if highMissingRatio > 0.2 {
		out = append(out, fmt.Sprintf("%d columns exceed the high-missing threshold", int(highMissingRatio*float64(len(res.Profiles))+0.5)))
	}
	if outlierRatio > 0.15 {
		out = append(out, "high outlier density in numeric columns")
	}
	return out
}

func clamp(v float64) float64 {
	return math.Max(0, math.Min(100, v))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
