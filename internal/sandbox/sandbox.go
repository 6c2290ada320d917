// Package sandbox evaluates restricted transformation expressions against
// a dataset, producing a new dataset value. Expressions are parsed into a
// syntax tree before any evaluation, and evaluation walks only
// whitelisted node kinds: column references, literals, comparison,
// boolean combinators, arithmetic and allow-listed function calls.
// Anything else fails with a DisallowedExpressionError before any data is
// touched.
//
// The sandbox is the only component that derives a new dataset identity
// from an existing one: ingestion produces the first identity,
// transformations produce all subsequent ones.
package sandbox

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"

	"github.com/vk/datareadygo/internal/ctxlog"
	"github.com/vk/datareadygo/internal/dataset"
)

// Op is the declared operation kind of a transformation request.
type Op string

const (
	OpFilter         Op = "filter"
	OpSelect         Op = "select"
	OpImpute         Op = "impute"
	OpCast           Op = "cast"
	OpDropDuplicates Op = "drop_duplicates"
)

// Request is a single transformation to apply. It is consumed once.
type Request struct {
	Source     *dataset.Dataset
	Op         Op
	Expression string
}

// Summary records what a transformation did.
type Summary struct {
	RunID           string `json:"run_id"`
	Op              Op     `json:"op"`
	Expression      string `json:"expression"`
	SourceID        string `json:"source_id"`
	ResultID        string `json:"result_id"`
	RowsBefore      int    `json:"rows_before"`
	RowsAfter       int    `json:"rows_after"`
	ColumnsBefore   int    `json:"columns_before"`
	ColumnsAfter    int    `json:"columns_after"`
	RowsAffected    int    `json:"rows_affected"`
	ColumnsAffected int    `json:"columns_affected"`
}

// DisallowedExpressionError names the specific construct that put an
// expression outside the whitelist. It is always surfaced verbatim,
// never coerced into a partial result.
type DisallowedExpressionError struct {
	Construct string
	Detail    string
}

func (e *DisallowedExpressionError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("sandbox: disallowed construct %s: %s", e.Construct, e.Detail)
	}
	return fmt.Sprintf("sandbox: disallowed construct %s", e.Construct)
}

// Apply parses, validates and evaluates the request, returning the new
// dataset and a transformation summary.
func Apply(ctx context.Context, req Request) (*dataset.Dataset, Summary, error) {
	logger := ctxlog.FromContext(ctx)

	summary := Summary{
		RunID:         uuid.NewString(),
		Op:            req.Op,
		Expression:    req.Expression,
		SourceID:      string(req.Source.ID()),
		RowsBefore:    req.Source.NumRows(),
		ColumnsBefore: req.Source.NumColumns(),
	}

	var (
		out *dataset.Dataset
		err error
	)
	switch req.Op {
	case OpFilter:
		out, err = applyFilter(req.Source, req.Expression, &summary)
	case OpSelect:
		out, err = applySelect(req.Source, req.Expression, &summary)
	case OpImpute, OpCast:
		out, err = applyMutation(req.Source, req.Expression, &summary)
	case OpDropDuplicates:
		out, err = applyDropDuplicates(req.Source, req.Expression, &summary)
	default:
		return nil, Summary{}, fmt.Errorf("sandbox: unknown operation %q", req.Op)
	}
	if err != nil {
		return nil, Summary{}, err
	}

	summary.ResultID = string(out.ID())
	summary.RowsAfter = out.NumRows()
	summary.ColumnsAfter = out.NumColumns()
	logger.Debug("Transformation applied.",
		"op", req.Op, "source", summary.SourceID, "result", summary.ResultID,
		"rows_affected", summary.RowsAffected)
	return out, summary, nil
}

// parse turns the expression text into a syntax tree. No evaluation
// happens here.
func parse(expr string) (hclsyntax.Expression, error) {
	parsed, diags := hclsyntax.ParseExpression([]byte(expr), "request", hcl.Pos{Line: 1, Column: 1})
	if diags.HasErrors() {
		return nil, fmt.Errorf("sandbox: parse expression: %s", diags.Error())
	}
	return parsed, nil
}

// applyFilter keeps the rows for which the boolean expression holds. A
// null result (a comparison against a missing cell) drops the row.
func applyFilter(src *dataset.Dataset, expr string, summary *Summary) (*dataset.Dataset, error) {
	parsed, err := parse(expr)
	if err != nil {
		return nil, err
	}
	if err := checkWhitelist(parsed); err != nil {
		return nil, err
	}

	ev := newEvaluator(src)
	keep := make([]bool, src.NumRows())
	kept := 0
	for i := 0; i < src.NumRows(); i++ {
		ok, err := ev.evalBool(parsed, i)
		if err != nil {
			return nil, err
		}
		keep[i] = ok
		if ok {
			kept++
		}
	}

	cols := make([]dataset.Column, 0, src.NumColumns())
	for _, col := range src.Columns() {
		cells := make([]any, 0, kept)
		for i, cell := range col.Cells {
			if keep[i] {
				cells = append(cells, cell)
			}
		}
		cols = append(cols, dataset.Column{Name: col.Name, Kind: col.Kind, Cells: cells})
	}
	summary.RowsAffected = src.NumRows() - kept
	return dataset.New(cols...)
}

// applyDropDuplicates removes rows whose full cell tuple already
// appeared, missing-equals-missing. It takes no expression and is
// idempotent: applying it to its own output removes nothing further.
func applyDropDuplicates(src *dataset.Dataset, expr string, summary *Summary) (*dataset.Dataset, error) {
	if expr != "" {
		return nil, fmt.Errorf("sandbox: drop_duplicates takes no expression, got %q", expr)
	}

	seen := make(map[string]struct{}, src.NumRows())
	keep := make([]bool, src.NumRows())
	kept := 0
	for i := 0; i < src.NumRows(); i++ {
		key := src.RowFingerprint(i)
		if _, dup := seen[key]; !dup {
			seen[key] = struct{}{}
			keep[i] = true
			kept++
		}
	}

	cols := make([]dataset.Column, 0, src.NumColumns())
	for _, col := range src.Columns() {
		cells := make([]any, 0, kept)
		for i, cell := range col.Cells {
			if keep[i] {
				cells = append(cells, cell)
			}
		}
		cols = append(cols, dataset.Column{Name: col.Name, Kind: col.Kind, Cells: cells})
	}
	summary.RowsAffected = src.NumRows() - kept
	return dataset.New(cols...)
}
