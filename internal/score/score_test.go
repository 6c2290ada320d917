package score

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/datareadygo/internal/config"
	"github.com/vk/datareadygo/internal/quality"
)

func cleanProfile(name string) quality.ColumnProfile {
	return quality.ColumnProfile{
		Name:     name,
		Distinct: 10,
		Outliers: &quality.OutlierCounts{},
	}
}

func cleanResult(cols int) quality.Result {
	res := quality.Result{Rows: 100, Columns: cols}
	for i := 0; i < cols; i++ {
		res.Profiles = append(res.Profiles, cleanProfile(string(rune('a'+i))))
	}
	return res
}

func TestCompute_PerfectDataset(t *testing.T) {
	t.Parallel()
	cfg := config.Default()

	got := Compute(cleanResult(4), cfg.Thresholds, cfg.Weights)

	assert.Equal(t, 100, got.Total)
	assert.Equal(t, Ready, got.Category)
	for name, v := range got.Components {
		assert.Equal(t, 100.0, v, "component %s", name)
	}
	assert.Empty(t, got.Notes)
}

func TestCompute_EmptyDataset(t *testing.T) {
	t.Parallel()
	cfg := config.Default()

	got := Compute(quality.Result{Rows: 0}, cfg.Thresholds, cfg.Weights)

	assert.Equal(t, 0, got.Total)
	assert.Equal(t, NotReady, got.Category)
	require.Len(t, got.Components, 5)
	for name, v := range got.Components {
		assert.Equal(t, 0.0, v, "component %s", name)
	}
	assert.Contains(t, got.Notes, "empty dataset")
}

func TestCompute_Deterministic(t *testing.T) {
	t.Parallel()
	cfg := config.Default()

	res := cleanResult(3)
	res.Profiles[0].MissingFraction = 0.4
	res.Profiles[1].Constant = true
	res.DuplicateFraction = 0.1

	// Unequal weights make the weighted sum sensitive to accumulation
	// order; repeated runs must not drift.
	w := cfg.Weights
	w.Missingness = 0.3
	w.Duplicates = 2.7
	w.Cardinality = 1.9

	first := Compute(res, cfg.Thresholds, w)
	for i := 0; i < 50; i++ {
		assert.Equal(t, first, Compute(res, cfg.Thresholds, w))
	}
}

func TestCompute_RowsWithoutProfiles(t *testing.T) {
	t.Parallel()
	cfg := config.Default()

	got := Compute(quality.Result{Rows: 10}, cfg.Thresholds, cfg.Weights)

	assert.Equal(t, 100, got.Total)
	assert.Equal(t, Ready, got.Category)
	for name, v := range got.Components {
		assert.False(t, math.IsNaN(v), "component %s", name)
		assert.Equal(t, 100.0, v, "component %s", name)
	}
}

func TestCompute_MissingnessPenalty(t *testing.T) {
	t.Parallel()
	cfg := config.Default()

	res := cleanResult(2)
	res.Profiles[0].MissingFraction = 1.0
	res.Profiles[1].MissingFraction = 1.0

	got := Compute(res, cfg.Thresholds, cfg.Weights)
	assert.Equal(t, 0.0, got.Components[ComponentMissingness],
		"fully missing columns drive the missingness component to zero")
	assert.Equal(t, 100.0, got.Components[ComponentDuplicates])
}

func TestCompute_DuplicatePenalty(t *testing.T) {
	t.Parallel()
	cfg := config.Default()

	res := cleanResult(2)
	res.DuplicateFraction = 0.2

	got := Compute(res, cfg.Thresholds, cfg.Weights)
	assert.InDelta(t, 70.0, got.Components[ComponentDuplicates], 1e-9)
}

func TestCompute_OutlierPenalty(t *testing.T) {
	t.Parallel()
	cfg := config.Default()

	res := cleanResult(2)
	res.Profiles[0].Outliers = &quality.OutlierCounts{IQR: 10, Fraction: 0.3}

	got := Compute(res, cfg.Thresholds, cfg.Weights)
	// One of two numeric columns is outlier-heavy.
	assert.InDelta(t, 60.0, got.Components[ComponentOutliers], 1e-9)
}

func TestCompute_CardinalityPenalty(t *testing.T) {
	t.Parallel()
	cfg := config.Default()

	res := cleanResult(4)
	res.Profiles[0].Constant = true
	res.Profiles[1].LeakageSuspect = true

	got := Compute(res, cfg.Thresholds, cfg.Weights)
	// One constant column (200 * 1/4) plus one flagged column (100 * 1/4).
	assert.InDelta(t, 25.0, got.Components[ComponentCardinality], 1e-9)
}

func TestCompute_TypeConsistencyPenalty(t *testing.T) {
	t.Parallel()
	cfg := config.Default()

	res := cleanResult(3)
	res.Profiles[0].MixedType = true
	res.Profiles[1].MixedType = true

	got := Compute(res, cfg.Thresholds, cfg.Weights)
	assert.InDelta(t, 50.0, got.Components[ComponentTypeConsistency], 1e-9)
}

func TestCompute_WeightsShiftTotal(t *testing.T) {
	t.Parallel()
	cfg := config.Default()

	res := cleanResult(2)
	res.DuplicateFraction = 0.5 // duplicates component drops to 25

	balanced := Compute(res, cfg.Thresholds, cfg.Weights)

	heavy := cfg.Weights
	heavy.Duplicates = 10
	skewed := Compute(res, cfg.Thresholds, heavy)

	assert.Less(t, skewed.Total, balanced.Total,
		"weighting the failing component harder must lower the total")
}

func TestCategorize_Boundaries(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		total    int
		expected Category
	}{
		{100, Ready},
		{90, Ready},
		{89, ReadyMinorFix},
		{75, ReadyMinorFix},
		{74, NeedsWork},
		{50, NeedsWork},
		{49, NotReady},
		{0, NotReady},
	}

	for _, tc := range testCases {
		assert.Equal(t, tc.expected, categorize(tc.total), "total %d", tc.total)
	}
}
