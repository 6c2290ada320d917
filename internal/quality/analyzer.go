// Package quality implements the data-quality analyzer: a pure function
// from a dataset to per-column quality profiles plus dataset-level
// aggregates. It owns no state and never touches the artifact store.
package quality

import (
	"context"
	"fmt"

	"github.com/vk/datareadygo/internal/config"
	"github.com/vk/datareadygo/internal/ctxlog"
	"github.com/vk/datareadygo/internal/dataset"
)

// OutlierCounts reports both outlier detection methods for a numeric
// column. Both are always computed and both are reported.
type OutlierCounts struct {
	IQR        int     `json:"iqr"`
	ZScore     int     `json:"zscore"`
	LowerBound float64 `json:"lower_bound"`
	UpperBound float64 `json:"upper_bound"`
	// Fraction is the share of non-missing values flagged by either
	// method, used by the score aggregator.
	Fraction float64 `json:"fraction"`
}

// ColumnProfile is the full quality profile of one column. Profiles are
// recomputed wholesale on each analysis, never patched.
type ColumnProfile struct {
	Name             string           `json:"name"`
	Kind             dataset.Kind     `json:"kind"`
	Semantic         dataset.Semantic `json:"semantic"`
	Missing          int              `json:"missing"`
	MissingFraction  float64          `json:"missing_fraction"`
	Distinct         int              `json:"distinct"`
	DistinctFraction float64          `json:"distinct_fraction"`
	Constant         bool             `json:"constant"`

	// Coercion success fractions, populated for free-text columns only.
	NumericCoercion float64 `json:"numeric_coercion"`
	DateCoercion    float64 `json:"date_coercion"`
	MixedType       bool    `json:"mixed_type"`

	Outliers *OutlierCounts `json:"outliers,omitempty"`

	HighCardinality bool `json:"high_cardinality"`
	LeakageSuspect  bool `json:"leakage_suspect"`

	Issues []string `json:"issues,omitempty"`

	// Unanalyzed marks a column whose analysis failed; the rest of the
	// profile is a minimal stub and Reason explains why.
	Unanalyzed bool   `json:"unanalyzed,omitempty"`
	Reason     string `json:"reason,omitempty"`
}

// Imbalance describes class balance of the chosen target column.
type Imbalance struct {
	Column            string             `json:"column"`
	Frequencies       map[string]float64 `json:"frequencies"`
	MajorityFraction  float64            `json:"majority_fraction"`
	NormalizedEntropy float64            `json:"normalized_entropy"`
	Imbalanced        bool               `json:"imbalanced"`
}

// Result is the full output of one analyzer run.
type Result struct {
	DatasetID         string          `json:"dataset_id"`
	Rows              int             `json:"rows"`
	Columns           int             `json:"columns"`
	DuplicateRows     int             `json:"duplicate_rows"`
	DuplicateFraction float64         `json:"duplicate_fraction"`
	Profiles          []ColumnProfile `json:"profiles"`
	Imbalance         *Imbalance      `json:"imbalance,omitempty"`
	Issues            []string        `json:"issues,omitempty"`
}

// Options tunes a single analyzer run.
type Options struct {
	// TargetColumn designates the column for class-imbalance analysis.
	// Empty means pick heuristically: the categorical column with the
	// fewest distinct classes (at least two, at most twenty).
	TargetColumn string
}

// Analyze computes the quality profile of every column plus dataset-level
// aggregates. A malformed column degrades to an unanalyzed stub; it never
// aborts the run.
func Analyze(ctx context.Context, ds *dataset.Dataset, th config.Thresholds, opts Options) Result {
	logger := ctxlog.FromContext(ctx)

	res := Result{
		DatasetID: string(ds.ID()),
		Rows:      ds.NumRows(),
		Columns:   ds.NumColumns(),
	}

	res.DuplicateRows, res.DuplicateFraction = countDuplicateRows(ds)
	if res.DuplicateRows > 0 {
		res.Issues = append(res.Issues, fmt.Sprintf(
			"dataset has %d duplicate rows (%.1f%% of all rows)",
			res.DuplicateRows, res.DuplicateFraction*100))
	}

	for _, col := range ds.Columns() {
		profile := analyzeColumnSafe(col, ds.NumRows(), th)
		if profile.Unanalyzed {
			logger.Warn("Column analysis degraded.", "column", col.Name, "reason", profile.Reason)
		}
		res.Profiles = append(res.Profiles, profile)
	}

	res.Imbalance = classImbalance(ds, res.Profiles, th, opts.TargetColumn)
	return res
}

// analyzeColumnSafe wraps analyzeColumn so a panic in one column turns
// into an unanalyzed stub instead of aborting the remaining columns.
func analyzeColumnSafe(col dataset.Column, rows int, th config.Thresholds) (profile ColumnProfile) {
	defer func() {
		if r := recover(); r != nil {
			profile = ColumnProfile{
				Name:       col.Name,
				Kind:       col.Kind,
				Semantic:   dataset.SemanticUnknown,
				Unanalyzed: true,
				Reason:     fmt.Sprintf("column analysis failed: %v", r),
			}
		}
	}()
	return analyzeColumn(col, rows, th)
}

func analyzeColumn(col dataset.Column, rows int, th config.Thresholds) ColumnProfile {
	p := ColumnProfile{Name: col.Name, Kind: col.Kind}

	// Missingness.
	nonMissing := make([]any, 0, rows)
	for _, cell := range col.Cells {
		if cell == nil {
			p.Missing++
		} else {
			nonMissing = append(nonMissing, cell)
		}
	}
	p.MissingFraction = fraction(p.Missing, rows)

	// Distinctness among non-missing values.
	distinct := make(map[string]struct{}, len(nonMissing))
	for _, cell := range nonMissing {
		distinct[cellKey(cell)] = struct{}{}
	}
	p.Distinct = len(distinct)
	p.DistinctFraction = fraction(p.Distinct, len(nonMissing))
	p.Constant = p.Distinct <= 1

	p.Semantic = dataset.InferSemantic(col.Kind, p.Distinct, rows)

	// Type consistency for free-text columns: coercion success fractions
	// strictly inside the configured band signal mixed content.
	if col.Kind == dataset.KindString {
		p.NumericCoercion, p.DateCoercion = coercionFractions(nonMissing)
		p.MixedType = inBand(p.NumericCoercion, th) || inBand(p.DateCoercion, th)
	}

	// Outliers, numeric columns only, both methods always.
	if col.Kind == dataset.KindNumber {
		p.Outliers = detectOutliers(numericValues(nonMissing), th)
	}

	// Cardinality and leakage heuristics.
	p.HighCardinality = p.Semantic.IsCategorical() && p.DistinctFraction > th.HighCardinality
	p.LeakageSuspect = p.DistinctFraction > th.LeakageDistinct ||
		isSequentialInts(col, nonMissing) ||
		isUUIDLike(col, nonMissing)

	p.Issues = columnIssues(p, th)
	return p
}

func columnIssues(p ColumnProfile, th config.Thresholds) []string {
	var issues []string
	switch {
	case p.MissingFraction > th.HighMissing:
		issues = append(issues, fmt.Sprintf("high missingness: %.1f%% of values are missing", p.MissingFraction*100))
	case p.MissingFraction > 0:
		issues = append(issues, fmt.Sprintf("some missing values: %.1f%% of values are missing", p.MissingFraction*100))
	}
	if p.Constant {
		issues = append(issues, "column is constant (at most one distinct non-missing value)")
	}
	if p.MixedType {
		issues = append(issues, "mixed content: values are neither clearly one type nor clearly another")
	}
	if p.LeakageSuspect {
		issues = append(issues, "ID-like column: near-unique values suggest an identifier, not a feature")
	}
	if p.HighCardinality && !p.LeakageSuspect {
		issues = append(issues, "high cardinality for a categorical column")
	}
	return issues
}

// countDuplicateRows treats two rows as duplicates when every cell is
// equal, with missing equal to missing.
func countDuplicateRows(ds *dataset.Dataset) (int, float64) {
	seen := make(map[string]struct{}, ds.NumRows())
	dupes := 0
	for i := 0; i < ds.NumRows(); i++ {
		key := ds.RowFingerprint(i)
		if _, ok := seen[key]; ok {
			dupes++
		} else {
			seen[key] = struct{}{}
		}
	}
	return dupes, fraction(dupes, ds.NumRows())
}

func fraction(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total)
}

func inBand(success float64, th config.Thresholds) bool {
	return success > th.TypeConsistencyLow && success < th.TypeConsistencyHigh
}

func numericValues(cells []any) []float64 {
	out := make([]float64, 0, len(cells))
	for _, cell := range cells {
		out = append(out, cell.(float64))
	}
	return out
}
