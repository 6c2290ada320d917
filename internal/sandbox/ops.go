package sandbox

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"

	"github.com/vk/datareadygo/internal/dataset"
)

// applySelect keeps only the named columns. The expression must be a
// tuple of bare column references, e.g. [age, income]. The tuple is the
// one place a tuple constructor is allowed, and only at top level.
func applySelect(src *dataset.Dataset, expr string, summary *Summary) (*dataset.Dataset, error) {
	parsed, err := parse(expr)
	if err != nil {
		return nil, err
	}
	tuple, ok := parsed.(*hclsyntax.TupleConsExpr)
	if !ok {
		return nil, &DisallowedExpressionError{
			Construct: "select expression",
			Detail:    "must be a tuple of column references, e.g. [a, b]",
		}
	}

	names := make([]string, 0, len(tuple.Exprs))
	for _, item := range tuple.Exprs {
		ref, ok := item.(*hclsyntax.ScopeTraversalExpr)
		if !ok || len(ref.Traversal) != 1 {
			return nil, &DisallowedExpressionError{
				Construct: "select expression",
				Detail:    "tuple items must be bare column references",
			}
		}
		names = append(names, ref.Traversal.RootName())
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("sandbox: select requires at least one column")
	}

	cols := make([]dataset.Column, 0, len(names))
	for _, name := range names {
		col, ok := src.Column(name)
		if !ok {
			return nil, fmt.Errorf("sandbox: column %q not found in dataset", name)
		}
		cols = append(cols, col)
	}
	summary.ColumnsAffected = src.NumColumns() - len(cols)
	return dataset.New(cols...)
}

// applyMutation creates or replaces columns from an object of
// per-column expressions, e.g. {age = coalesce(age, 0)}. Impute and cast
// share this machinery; the declared op only distinguishes intent in the
// summary. The object constructor is allowed only here, only at top
// level; every value expression goes through the whitelist.
func applyMutation(src *dataset.Dataset, expr string, summary *Summary) (*dataset.Dataset, error) {
	parsed, err := parse(expr)
	if err != nil {
		return nil, err
	}
	obj, ok := parsed.(*hclsyntax.ObjectConsExpr)
	if !ok {
		return nil, &DisallowedExpressionError{
			Construct: "mutation expression",
			Detail:    "must be an object of column assignments, e.g. {a = coalesce(a, 0)}",
		}
	}
	if len(obj.Items) == 0 {
		return nil, fmt.Errorf("sandbox: mutation requires at least one column assignment")
	}

	// Validate every value expression before touching any data.
	type assignment struct {
		name string
		expr hclsyntax.Expression
	}
	assignments := make([]assignment, 0, len(obj.Items))
	for _, item := range obj.Items {
		name := objectKeyName(item.KeyExpr)
		if name == "" {
			return nil, &DisallowedExpressionError{
				Construct: "mutation expression",
				Detail:    "object keys must be plain column names",
			}
		}
		if err := checkWhitelist(item.ValueExpr); err != nil {
			return nil, err
		}
		assignments = append(assignments, assignment{name: name, expr: item.ValueExpr})
	}

	ev := newEvaluator(src)
	rows := src.NumRows()
	newCells := make(map[string][]any, len(assignments))
	for _, a := range assignments {
		cells := make([]any, rows)
		for i := 0; i < rows; i++ {
			cell, err := ev.evalCell(a.expr, i)
			if err != nil {
				return nil, err
			}
			cells[i] = cell
		}
		newCells[a.name] = cells
	}

	// Assemble: replaced columns keep their position, new columns append
	// in assignment order.
	rowsChanged := make(map[int]struct{})
	cols := make([]dataset.Column, 0, src.NumColumns()+len(assignments))
	replaced := make(map[string]struct{})
	for _, col := range src.Columns() {
		cells, ok := newCells[col.Name]
		if !ok {
			cols = append(cols, col)
			continue
		}
		replaced[col.Name] = struct{}{}
		for i := range cells {
			if cells[i] != col.Cells[i] {
				rowsChanged[i] = struct{}{}
			}
		}
		cols = append(cols, dataset.Column{Name: col.Name, Kind: kindOf(cells, col.Kind), Cells: cells})
	}
	for _, a := range assignments {
		if _, ok := replaced[a.name]; ok {
			continue
		}
		cells := newCells[a.name]
		for i := range cells {
			rowsChanged[i] = struct{}{}
		}
		cols = append(cols, dataset.Column{Name: a.name, Kind: kindOf(cells, dataset.KindString), Cells: cells})
	}

	summary.ColumnsAffected = len(assignments)
	summary.RowsAffected = len(rowsChanged)
	return dataset.New(cols...)
}

// objectKeyName extracts a plain column name from an object key, which
// hclsyntax wraps in an ObjectConsKeyExpr.
func objectKeyName(keyExpr hclsyntax.Expression) string {
	key, ok := keyExpr.(*hclsyntax.ObjectConsKeyExpr)
	if !ok {
		return ""
	}
	if name := hcl.ExprAsKeyword(key.Wrapped); name != "" {
		return name
	}
	// Quoted keys arrive as string-literal templates.
	if tmpl, ok := key.Wrapped.(*hclsyntax.TemplateExpr); ok && tmpl.IsStringLiteral() {
		if val, diags := tmpl.Value(nil); !diags.HasErrors() {
			return val.AsString()
		}
	}
	return ""
}
