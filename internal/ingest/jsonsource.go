package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/vk/datareadygo/internal/dataset"
)

// document is the wire form of a normalized dataset: the format the
// ingestion collaborator hands to the core. Cells are JSON scalars with
// null as the missing marker.
type document struct {
	Columns []struct {
		Name  string `json:"name"`
		Kind  string `json:"kind"`
		Cells []any  `json:"cells"`
	} `json:"columns"`
}

// JSONSource reads a normalized dataset document from a file. It is the
// bundled reference implementation of the Source contract, not a general
// JSON ingester.
type JSONSource struct {
	Path string
}

// Resolve implements Source.
func (s JSONSource) Resolve(ctx context.Context) (*dataset.Dataset, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("ingest: open %s: %w", s.Path, err)
	}
	defer f.Close()
	return DecodeJSON(f)
}

// DecodeJSON decodes a normalized dataset document.
func DecodeJSON(r io.Reader) (*dataset.Dataset, error) {
	var doc document
	dec := json.NewDecoder(r)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("ingest: decode dataset document: %w", err)
	}

	cols := make([]dataset.Column, 0, len(doc.Columns))
	for _, raw := range doc.Columns {
		kind := dataset.Kind(raw.Kind)
		cells := make([]any, len(raw.Cells))
		for i, cell := range raw.Cells {
			conv, err := normalizeCell(cell, kind)
			if err != nil {
				return nil, fmt.Errorf("ingest: column %q row %d: %w", raw.Name, i, err)
			}
			cells[i] = conv
		}
		cols = append(cols, dataset.Column{Name: raw.Name, Kind: kind, Cells: cells})
	}
	return dataset.New(cols...)
}

// normalizeCell converts a decoded JSON scalar into the canonical cell
// representation for the column kind.
func normalizeCell(cell any, kind dataset.Kind) (any, error) {
	if cell == nil {
		return nil, nil
	}
	switch kind {
	case dataset.KindNumber:
		v, ok := cell.(float64)
		if !ok {
			return nil, fmt.Errorf("expected number, got %T", cell)
		}
		return v, nil
	case dataset.KindString:
		v, ok := cell.(string)
		if !ok {
			return nil, fmt.Errorf("expected string, got %T", cell)
		}
		return v, nil
	case dataset.KindBool:
		v, ok := cell.(bool)
		if !ok {
			return nil, fmt.Errorf("expected bool, got %T", cell)
		}
		return v, nil
	case dataset.KindTime:
		s, ok := cell.(string)
		if !ok {
			return nil, fmt.Errorf("expected RFC 3339 string, got %T", cell)
		}
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return nil, fmt.Errorf("parse time: %w", err)
		}
		return t, nil
	default:
		return nil, fmt.Errorf("unknown column kind %q", kind)
	}
}
