// Package builtin implements the Builtin Function Registry (spec §4.6): a
// name-keyed dispatch table wired into internal/vm and internal/compiler at
// startup via init(), the same function-pointer-variable pattern
// internal/handler uses to avoid an import cycle (builtins need the VM to
// create/delete objects and invoke functions, so the dependency must run
// builtin -> vm, not vm -> builtin).
package builtin

import (
	"strings"

	"github.com/magoolation/intmud/internal/compiler"
	"github.com/magoolation/intmud/internal/value"
	"github.com/magoolation/intmud/internal/vm"
)

// fn is one builtin's implementation: the calling VM (for receiver/frame
// context, object creation, error recording) and its already-evaluated
// positional arguments.
type fn func(m *vm.VM, args []value.Value) value.Value

var table map[string]fn

func init() {
	table = make(map[string]fn)
	registerArgFuncs(table)
	registerConvertFuncs(table)
	registerObjectFuncs(table)
	registerVarTrocaFuncs(table)
	registerControlFuncs(table)
	registerTextFuncs(table)
	registerMathFuncs(table)

	vm.CallBuiltin = call
	compiler.IsBuiltinName = isBuiltinName
}

func call(m *vm.VM, name string, args []value.Value) value.Value {
	f, ok := table[strings.ToLower(name)]
	if !ok {
		m.RecordError(vm.ErrLookupMiss, "unknown builtin "+name)
		return value.Null()
	}
	return f(m, args)
}

func isBuiltinName(name string) bool {
	_, ok := table[strings.ToLower(name)]
	return ok
}

// arg returns args[i] or Null when the caller passed fewer arguments than
// the function expects — builtins never panic on arity mismatch (spec §4.8
// "Failure policy" applies to the whole runtime, not just handlers).
func arg(args []value.Value, i int) value.Value {
	if i < 0 || i >= len(args) {
		return value.Null()
	}
	return args[i]
}

// joinArgs concatenates every argument's string representation with no
// separator, the convention `escreva`/`escrevaln` use for their variadic
// argument list.
func joinArgs(args []value.Value) string {
	var b strings.Builder
	for _, a := range args {
		b.WriteString(a.ToString())
	}
	return b.String()
}
