// Package viz implements the visualization stage. It recommends chart
// specifications for a dataset; rendering belongs to an external
// collaborator, so the payload is specs only.
package viz

import (
	"github.com/vk/datareadygo/internal/dataset"
)

// ChartType is the kind of chart a spec asks for.
type ChartType string

const (
	Histogram ChartType = "histogram"
	Box       ChartType = "box"
	Bar       ChartType = "bar"
	Scatter   ChartType = "scatter"
)

// Spec describes one recommended chart.
type Spec struct {
	Chart  ChartType `json:"chart"`
	X      string    `json:"x"`
	Y      string    `json:"y,omitempty"`
	Bins   int       `json:"bins,omitempty"`
	Reason string    `json:"reason"`
}

// Result is the viz stage payload.
type Result struct {
	DatasetID string `json:"dataset_id"`
	Specs     []Spec `json:"specs"`
}

// Recommend produces chart specs from the dataset's shape: distribution
// charts for numeric columns, composition charts for low-cardinality
// categoricals, and a relationship chart for the first numeric pair.
func Recommend(ds *dataset.Dataset) Result {
	res := Result{DatasetID: string(ds.ID())}

	var numeric []string
	for _, col := range ds.Columns() {
		distinct := make(map[string]struct{})
		for _, cell := range col.Cells {
			if cell != nil {
				distinct[cellString(cell)] = struct{}{}
			}
		}

		switch col.Kind {
		case dataset.KindNumber:
			numeric = append(numeric, col.Name)
			res.Specs = append(res.Specs,
				Spec{Chart: Histogram, X: col.Name, Bins: 10, Reason: "distribution of a numeric column"},
				Spec{Chart: Box, X: col.Name, Reason: "spread and outliers of a numeric column"},
			)
		case dataset.KindString, dataset.KindBool:
			if len(distinct) >= 2 && len(distinct) <= 20 {
				res.Specs = append(res.Specs,
					Spec{Chart: Bar, X: col.Name, Reason: "composition of a low-cardinality categorical column"})
			}
		}
	}

	if len(numeric) >= 2 {
		res.Specs = append(res.Specs, Spec{
			Chart: Scatter, X: numeric[0], Y: numeric[1],
			Reason: "relationship between the first two numeric columns",
		})
	}
	return res
}

func cellString(cell any) string {
	if s, ok := cell.(string); ok {
		return s
	}
	if b, ok := cell.(bool); ok {
		if b {
			return "true"
		}
		return "false"
	}
	return ""
}
