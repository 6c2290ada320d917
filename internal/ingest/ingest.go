// Package ingest defines the ingestion collaborator contract and the
// ingestion stage computation. Raw file parsing (CSV, Excel, arbitrary
// JSON) lives outside the core: a Source delivers an already-normalized
// dataset value with typed columns and explicit missing markers.
package ingest

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/vk/datareadygo/internal/dataset"
)

// Source is the ingestion collaborator: it resolves to a normalized
// dataset, which carries its initial identity.
type Source interface {
	Resolve(ctx context.Context) (*dataset.Dataset, error)
}

// ColumnInfo is the schema-level view of one column produced by the
// ingestion stage.
type ColumnInfo struct {
	Name          string           `json:"name"`
	Kind          dataset.Kind     `json:"kind"`
	Semantic      dataset.Semantic `json:"semantic"`
	Missing       int              `json:"missing"`
	Distinct      int              `json:"distinct"`
	ExampleValues []string         `json:"example_values,omitempty"`
}

// Profile is the ingestion stage payload: the dataset's shape and schema
// with example values, the anchor every downstream stage fingerprints
// against.
type Profile struct {
	DatasetID string       `json:"dataset_id"`
	Rows      int          `json:"rows"`
	Columns   int          `json:"columns"`
	Schema    []ColumnInfo `json:"schema"`
}

// BuildProfile computes the ingestion stage output for a normalized
// dataset.
func BuildProfile(ds *dataset.Dataset) Profile {
	p := Profile{
		DatasetID: string(ds.ID()),
		Rows:      ds.NumRows(),
		Columns:   ds.NumColumns(),
	}
	for _, col := range ds.Columns() {
		distinct := make(map[string]struct{})
		missing := 0
		var examples []string
		for _, cell := range col.Cells {
			if cell == nil {
				missing++
				continue
			}
			key := cellString(cell)
			distinct[key] = struct{}{}
			if len(examples) < 5 {
				examples = append(examples, key)
			}
		}
		p.Schema = append(p.Schema, ColumnInfo{
			Name:          col.Name,
			Kind:          col.Kind,
			Semantic:      dataset.InferSemantic(col.Kind, len(distinct), ds.NumRows()),
			Missing:       missing,
			Distinct:      len(distinct),
			ExampleValues: examples,
		})
	}
	return p
}

// cellString renders a cell for example values and distinctness counting.
func cellString(cell any) string {
	switch v := cell.(type) {
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case time.Time:
		return v.UTC().Format(time.RFC3339)
	default:
		return fmt.Sprintf("%v", v)
	}
}
