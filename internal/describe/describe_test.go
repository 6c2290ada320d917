package describe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/datareadygo/internal/dataset"
)

func mustDataset(t *testing.T, columns ...dataset.Column) *dataset.Dataset {
	t.Helper()
	ds, err := dataset.New(columns...)
	require.NoError(t, err)
	return ds
}

func summaryByName(t *testing.T, res Result, name string) ColumnSummary {
	t.Helper()
	for _, s := range res.Columns {
		if s.Name == name {
			return s
		}
	}
	t.Fatalf("no summary for column %q", name)
	return ColumnSummary{}
}

func TestBuild_NumericSummary(t *testing.T) {
	t.Parallel()

	ds := mustDataset(t,
		dataset.Column{Name: "v", Kind: dataset.KindNumber, Cells: []any{1.0, 2.0, 3.0, 4.0, 5.0, nil}},
	)
	res := Build(ds)

	assert.Equal(t, string(ds.ID()), res.DatasetID)

	s := summaryByName(t, res, "v")
	require.NotNil(t, s.Numeric)
	assert.Nil(t, s.Categorical)
	assert.Equal(t, 1, s.Missing)
	assert.InDelta(t, 3.0, s.Numeric.Mean, 1e-9)
	assert.InDelta(t, 1.0, s.Numeric.Min, 1e-9)
	assert.InDelta(t, 5.0, s.Numeric.Max, 1e-9)
	assert.InDelta(t, 3.0, s.Numeric.Median, 1e-9)
	assert.InDelta(t, 2.0, s.Numeric.Q1, 1e-9)
	assert.InDelta(t, 4.0, s.Numeric.Q3, 1e-9)
}

func TestBuild_CategoricalSummary(t *testing.T) {
	t.Parallel()

	ds := mustDataset(t,
		dataset.Column{Name: "color", Kind: dataset.KindString, Cells: []any{"red", "red", "blue", nil}},
	)
	res := Build(ds)

	s := summaryByName(t, res, "color")
	require.NotNil(t, s.Categorical)
	assert.Nil(t, s.Numeric)
	assert.Equal(t, map[string]int{"red": 2, "blue": 1}, s.Categorical.Counts)
	assert.InDelta(t, 0.5, s.Categorical.Proportions["red"], 1e-9)
	assert.InDelta(t, 0.25, s.MissingFraction, 1e-9)
}

func TestBuild_Correlations(t *testing.T) {
	t.Parallel()

	ds := mustDataset(t,
		dataset.Column{Name: "x", Kind: dataset.KindNumber, Cells: []any{1.0, 2.0, 3.0, 4.0}},
		dataset.Column{Name: "y", Kind: dataset.KindNumber, Cells: []any{2.0, 4.0, 6.0, 8.0}},
		dataset.Column{Name: "z", Kind: dataset.KindNumber, Cells: []any{4.0, 3.0, nil, 1.0}},
	)
	res := Build(ds)

	require.Len(t, res.Correlations, 3)

	xy := res.Correlations[0]
	assert.Equal(t, "x", xy.X)
	assert.Equal(t, "y", xy.Y)
	assert.InDelta(t, 1.0, xy.Pearson, 1e-9)

	// x/z correlates over the three rows where both are present.
	xz := res.Correlations[1]
	assert.Equal(t, "z", xz.Y)
	assert.InDelta(t, -1.0, xz.Pearson, 1e-9)
}

func TestBuild_CorrelationSkipsSparsePairs(t *testing.T) {
	t.Parallel()

	ds := mustDataset(t,
		dataset.Column{Name: "x", Kind: dataset.KindNumber, Cells: []any{1.0, nil, 3.0}},
		dataset.Column{Name: "y", Kind: dataset.KindNumber, Cells: []any{nil, 2.0, 4.0}},
	)
	res := Build(ds)

	// Only one row has both values; no coefficient is reported.
	assert.Empty(t, res.Correlations)
}

func TestBuild_AllMissingNumericColumn(t *testing.T) {
	t.Parallel()

	ds := mustDataset(t,
		dataset.Column{Name: "v", Kind: dataset.KindNumber, Cells: []any{nil, nil}},
	)
	res := Build(ds)

	s := summaryByName(t, res, "v")
	assert.Nil(t, s.Numeric, "no statistics over zero values")
	assert.Equal(t, 2, s.Missing)
	assert.InDelta(t, 1.0, s.MissingFraction, 1e-9)
}
