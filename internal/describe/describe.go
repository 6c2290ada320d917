// Package describe implements the descriptive statistics stage:
// univariate summaries per column and Pearson correlations between
// numeric column pairs. Like the quality analyzer it is a pure function
// over the dataset.
package describe

import (
	"fmt"

	"github.com/vk/datareadygo/internal/dataset"
	"github.com/vk/datareadygo/internal/stats"
)

// NumericSummary holds location and spread statistics for a numeric
// column, computed over non-missing values.
type NumericSummary struct {
	Mean   float64 `json:"mean"`
	Std    float64 `json:"std"`
	Min    float64 `json:"min"`
	Q1     float64 `json:"q1"`
	Median float64 `json:"median"`
	Q3     float64 `json:"q3"`
	Max    float64 `json:"max"`
}

// CategoricalSummary holds value frequencies for a non-numeric column.
type CategoricalSummary struct {
	Counts      map[string]int     `json:"counts"`
	Proportions map[string]float64 `json:"proportions"`
}

// ColumnSummary is the univariate summary of one column.
type ColumnSummary struct {
	Name            string              `json:"name"`
	Kind            dataset.Kind        `json:"kind"`
	N               int                 `json:"n"`
	Missing         int                 `json:"missing"`
	MissingFraction float64             `json:"missing_fraction"`
	Numeric         *NumericSummary     `json:"numeric,omitempty"`
	Categorical     *CategoricalSummary `json:"categorical,omitempty"`
}

// Correlation is the Pearson coefficient of one numeric column pair,
// computed over rows where both sides are present.
type Correlation struct {
	X       string  `json:"x"`
	Y       string  `json:"y"`
	Pearson float64 `json:"pearson"`
}

// Result is the describe stage payload.
type Result struct {
	DatasetID    string          `json:"dataset_id"`
	Columns      []ColumnSummary `json:"columns"`
	Correlations []Correlation   `json:"correlations,omitempty"`
}

// Build computes the describe stage output.
func Build(ds *dataset.Dataset) Result {
	res := Result{DatasetID: string(ds.ID())}

	var numericNames []string

	for _, col := range ds.Columns() {
		summary := ColumnSummary{Name: col.Name, Kind: col.Kind, N: ds.NumRows()}

		if col.Kind == dataset.KindNumber {
			values := make([]float64, 0, len(col.Cells))
			for _, cell := range col.Cells {
				if cell == nil {
					summary.Missing++
					continue
				}
				if v, ok := cell.(float64); ok {
					values = append(values, v)
				}
			}
			if len(values) > 0 {
				summary.Numeric = &NumericSummary{
					Mean:   stats.Mean(values),
					Std:    stats.StdDev(values),
					Min:    stats.Quantile(values, 0),
					Q1:     stats.Quantile(values, 0.25),
					Median: stats.Quantile(values, 0.5),
					Q3:     stats.Quantile(values, 0.75),
					Max:    stats.Quantile(values, 1),
				}
			}
			numericNames = append(numericNames, col.Name)
		} else {
			counts := make(map[string]int)
			for _, cell := range col.Cells {
				if cell == nil {
					summary.Missing++
					continue
				}
				counts[fmt.Sprintf("%v", cell)]++
			}
			if len(counts) > 0 {
				proportions := make(map[string]float64, len(counts))
				for k, n := range counts {
					proportions[k] = float64(n) / float64(ds.NumRows())
				}
				summary.Categorical = &CategoricalSummary{Counts: counts, Proportions: proportions}
			}
		}

		if ds.NumRows() > 0 {
			summary.MissingFraction = float64(summary.Missing) / float64(ds.NumRows())
		}
		res.Columns = append(res.Columns, summary)
	}

	res.Correlations = correlations(ds, numericNames)
	return res
}

// correlations computes Pearson coefficients for every numeric column
// pair over rows where both cells are present.
func correlations(ds *dataset.Dataset, names []string) []Correlation {
	var out []Correlation
	for i := 0; i < len(names); i++ {
		for j := i + 1; j < len(names); j++ {
			xCol, _ := ds.Column(names[i])
			yCol, _ := ds.Column(names[j])
			var xs, ys []float64
			for r := 0; r < ds.NumRows(); r++ {
				xv, xok := xCol.Cells[r].(float64)
				yv, yok := yCol.Cells[r].(float64)
				if xok && yok {
					xs = append(xs, xv)
					ys = append(ys, yv)
				}
			}
			if len(xs) < 2 {
				continue
			}
			out = append(out, Correlation{X: names[i], Y: names[j], Pearson: stats.Pearson(xs, ys)})
		}
	}
	return out
}
