package cascade

import (
	"fmt"

	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
)

// builtins is the formula function table: a capability-keyed registry from
// function name to behavior, populated at startup. Formulas may call any
// registered function by name.
var builtins = map[string]function.Function{
	"abs":      stdlib.AbsoluteFunc,
	"ceil":     stdlib.CeilFunc,
	"floor":    stdlib.FloorFunc,
	"max":      stdlib.MaxFunc,
	"min":      stdlib.MinFunc,
	"upper":    stdlib.UpperFunc,
	"lower":    stdlib.LowerFunc,
	"strlen":   stdlib.StrlenFunc,
	"substr":   stdlib.SubstrFunc,
	"format":   stdlib.FormatFunc,
	"join":     stdlib.JoinFunc,
	"concat":   stdlib.ConcatFunc,
	"length":   stdlib.LengthFunc,
	"coalesce": stdlib.CoalesceFunc,
}

// RegisterFunction adds a formula function to the table. Registration
// happens at startup; a duplicate name is a programmer error.
func RegisterFunction(name string, fn function.Function) {
	if _, exists := builtins[name]; exists {
		panic(fmt.Sprintf("formula function %q already registered", name))
	}
	builtins[name] = fn
}

// Functions returns a copy of the formula function table.
func Functions() map[string]function.Function {
	out := make(map[string]function.Function, len(builtins))
	for name, fn := range builtins {
		out[name] = fn
	}
	return out
}
