package builtin

import (
	"github.com/magoolation/intmud/internal/value"
	"github.com/magoolation/intmud/internal/vm"
)

// registerArgFuncs wires arg0..arg9 and args (spec §4.6 "Argument access").
func registerArgFuncs(t map[string]fn) {
	for i := 0; i < 10; i++ {
		n := i
		t["arg"+digit(n)] = func(m *vm.VM, args []value.Value) value.Value {
			return m.CurrentArg(n)
		}
	}
	t["args"] = func(m *vm.VM, args []value.Value) value.Value {
		return value.Int(int64(len(m.CurrentArgs())))
	}
}

func digit(n int) string { return string(rune('0' + n)) }
