package sandbox

import (
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
)

// allowedFunctions is the fixed function library available inside
// expressions: casting and imputation helpers plus a few arithmetic and
// string primitives. Calls to anything else are rejected by the
// whitelist walk.
var allowedFunctions = map[string]function.Function{
	"abs":   stdlib.AbsoluteFunc,
	"min":   stdlib.MinFunc,
	"max":   stdlib.MaxFunc,
	"ceil":  stdlib.CeilFunc,
	"floor": stdlib.FloorFunc,
	"upper": stdlib.UpperFunc,
	"lower": stdlib.LowerFunc,

	"coalesce": coalesceFunc,
	"tonumber": castFunc("tonumber", cty.Number),
	"tostring": castFunc("tostring", cty.String),
	"tobool":   castFunc("tobool", cty.Bool),
}

// coalesceFunc returns its first argument unless it is null, in which
// case it returns the fallback. This is the imputation primitive.
var coalesceFunc = function.New(&function.Spec{
	Params: []function.Parameter{
		{Name: "value", Type: cty.DynamicPseudoType, AllowNull: true},
		{Name: "fallback", Type: cty.DynamicPseudoType},
	},
	Type: func(args []cty.Value) (cty.Type, error) {
		return args[1].Type(), nil
	},
	Impl: func(args []cty.Value, retType cty.Type) (cty.Value, error) {
		if args[0].IsNull() {
			return convert.Convert(args[1], retType)
		}
		return convert.Convert(args[0], retType)
	},
})

// castFunc builds a conversion function to the target type. Null stays
// null: casting never invents a value for a missing cell.
func castFunc(name string, target cty.Type) function.Function {
	return function.New(&function.Spec{
		Params: []function.Parameter{
			{Name: "value", Type: cty.DynamicPseudoType, AllowNull: true},
		},
		Type: function.StaticReturnType(target),
		Impl: func(args []cty.Value, retType cty.Type) (cty.Value, error) {
			if args[0].IsNull() {
				return cty.NullVal(retType), nil
			}
			return convert.Convert(args[0], retType)
		},
	})
}
