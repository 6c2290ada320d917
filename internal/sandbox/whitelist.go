package sandbox

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
)

// checkWhitelist walks the syntax tree and rejects any node kind outside
// the whitelist: bare column references, literals, unary and binary
// operators (comparison, boolean, arithmetic) and allow-listed function
// calls. It runs to completion before any evaluation starts.
func checkWhitelist(expr hclsyntax.Expression) error {
	switch e := expr.(type) {
	case *hclsyntax.LiteralValueExpr:
		return nil

	case *hclsyntax.ScopeTraversalExpr:
		// Only a bare column name. A longer traversal is member access.
		if len(e.Traversal) != 1 {
			return &DisallowedExpressionError{
				Construct: "member access",
				Detail:    fmt.Sprintf("%q traverses beyond a column reference", traversalString(e.Traversal)),
			}
		}
		return nil

	case *hclsyntax.TemplateExpr:
		// hclsyntax wraps every quoted string in a template. Plain
		// string literals are fine; interpolation is not.
		if e.IsStringLiteral() {
			return nil
		}
		return &DisallowedExpressionError{Construct: "string interpolation"}

	case *hclsyntax.ParenthesesExpr:
		return checkWhitelist(e.Expression)

	case *hclsyntax.UnaryOpExpr:
		return checkWhitelist(e.Val)

	case *hclsyntax.BinaryOpExpr:
		if err := checkWhitelist(e.LHS); err != nil {
			return err
		}
		return checkWhitelist(e.RHS)

	case *hclsyntax.FunctionCallExpr:
		if _, ok := allowedFunctions[e.Name]; !ok {
			return &DisallowedExpressionError{
				Construct: "function call",
				Detail:    fmt.Sprintf("%q is not in the allow list", e.Name),
			}
		}
		for _, arg := range e.Args {
			if err := checkWhitelist(arg); err != nil {
				return err
			}
		}
		return nil

	case *hclsyntax.RelativeTraversalExpr:
		return &DisallowedExpressionError{Construct: "member access"}
	case *hclsyntax.IndexExpr:
		return &DisallowedExpressionError{Construct: "index operation"}
	case *hclsyntax.ForExpr:
		return &DisallowedExpressionError{Construct: "for expression"}
	case *hclsyntax.SplatExpr:
		return &DisallowedExpressionError{Construct: "splat expression"}
	case *hclsyntax.ConditionalExpr:
		return &DisallowedExpressionError{Construct: "conditional expression"}
	case *hclsyntax.ObjectConsExpr:
		return &DisallowedExpressionError{Construct: "object constructor"}
	case *hclsyntax.TupleConsExpr:
		return &DisallowedExpressionError{Construct: "tuple constructor"}
	case *hclsyntax.AnonSymbolExpr:
		return &DisallowedExpressionError{Construct: "splat expression"}
	default:
		return &DisallowedExpressionError{
			Construct: "expression",
			Detail:    fmt.Sprintf("unsupported node %T", expr),
		}
	}
}

func traversalString(t hcl.Traversal) string {
	name := ""
	for _, step := range t {
		switch s := step.(type) {
		case hcl.TraverseRoot:
			name = s.Name
		case hcl.TraverseAttr:
			name += "." + s.Name
		default:
			name += "[...]"
		}
	}
	return name
}
