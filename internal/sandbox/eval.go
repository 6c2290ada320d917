package sandbox

import (
	"fmt"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/datareadygo/internal/dataset"
)

// evaluator evaluates a whitelisted expression row by row against a
// dataset, exposing each column as a variable holding that row's cell.
type evaluator struct {
	src  *dataset.Dataset
	cols []dataset.Column
}

func newEvaluator(src *dataset.Dataset) *evaluator {
	return &evaluator{src: src, cols: src.Columns()}
}

// evalContext builds the per-row evaluation scope. Missing cells become
// typed nulls.
func (ev *evaluator) evalContext(row int) *hcl.EvalContext {
	vars := make(map[string]cty.Value, len(ev.cols))
	for _, col := range ev.cols {
		vars[col.Name] = cellToCty(col.Cells[row], col.Kind)
	}
	return &hcl.EvalContext{Variables: vars, Functions: allowedFunctions}
}

// evalBool evaluates the expression as a row predicate. A null result, or
// an evaluation that failed because a referenced cell was missing, counts
// as false: comparisons against missing values never keep a row.
func (ev *evaluator) evalBool(expr hclsyntax.Expression, row int) (bool, error) {
	val, diags := expr.Value(ev.evalContext(row))
	if diags.HasErrors() {
		if ev.referencesMissing(expr, row) {
			return false, nil
		}
		return false, fmt.Errorf("sandbox: evaluate row %d: %s", row, diags.Error())
	}
	if val.IsNull() {
		return false, nil
	}
	if !val.Type().Equals(cty.Bool) {
		return false, fmt.Errorf("sandbox: filter expression produced %s, want bool", val.Type().FriendlyName())
	}
	return val.True(), nil
}

// evalCell evaluates the expression and converts the result to a dataset
// cell.
func (ev *evaluator) evalCell(expr hclsyntax.Expression, row int) (any, error) {
	val, diags := expr.Value(ev.evalContext(row))
	if diags.HasErrors() {
		return nil, fmt.Errorf("sandbox: evaluate row %d: %s", row, diags.Error())
	}
	return ctyToCell(val)
}

// referencesMissing reports whether any column referenced by the
// expression holds a missing cell in the given row.
func (ev *evaluator) referencesMissing(expr hclsyntax.Expression, row int) bool {
	for _, traversal := range expr.Variables() {
		col, ok := ev.src.Column(traversal.RootName())
		if ok && col.Cells[row] == nil {
			return true
		}
	}
	return false
}

func cellToCty(cell any, kind dataset.Kind) cty.Value {
	if cell == nil {
		switch kind {
		case dataset.KindNumber:
			return cty.NullVal(cty.Number)
		case dataset.KindBool:
			return cty.NullVal(cty.Bool)
		default:
			return cty.NullVal(cty.String)
		}
	}
	switch v := cell.(type) {
	case float64:
		return cty.NumberFloatVal(v)
	case string:
		return cty.StringVal(v)
	case bool:
		return cty.BoolVal(v)
	case time.Time:
		return cty.StringVal(v.UTC().Format(time.RFC3339))
	default:
		return cty.StringVal(fmt.Sprintf("%v", v))
	}
}

func ctyToCell(val cty.Value) (any, error) {
	if val.IsNull() {
		return nil, nil
	}
	ty := val.Type()
	switch {
	case ty.Equals(cty.Number):
		f, _ := val.AsBigFloat().Float64()
		return f, nil
	case ty.Equals(cty.String):
		return val.AsString(), nil
	case ty.Equals(cty.Bool):
		return val.True(), nil
	default:
		return nil, fmt.Errorf("sandbox: expression produced unsupported type %s", ty.FriendlyName())
	}
}

// kindOf maps a produced cell back to a column kind. all-null columns
// fall back to the provided default.
func kindOf(cells []any, fallback dataset.Kind) dataset.Kind {
	for _, cell := range cells {
		switch cell.(type) {
		case float64:
			return dataset.KindNumber
		case string:
			return dataset.KindString
		case bool:
			return dataset.KindBool
		case time.Time:
			return dataset.KindTime
		}
	}
	return fallback
}
