package builtin

import (
	"strconv"
	"strings"

	"github.com/magoolation/intmud/internal/value"
	"github.com/magoolation/intmud/internal/vm"
)

// registerConvertFuncs wires the type-conversion builtins (spec §4.6).
func registerConvertFuncs(t map[string]fn) {
	t["real"] = func(m *vm.VM, args []value.Value) value.Value {
		return value.Double(arg(args, 0).ToDouble())
	}
	t["hex"] = func(m *vm.VM, args []value.Value) value.Value {
		return value.Str(strings.ToUpper(strconv.FormatInt(arg(args, 0).ToInt(), 16)))
	}
	t["bin"] = func(m *vm.VM, args []value.Value) value.Value {
		return value.Str(strconv.FormatInt(arg(args, 0).ToInt(), 2))
	}
	t["chr"] = func(m *vm.VM, args []value.Value) value.Value {
		code := arg(args, 0).ToInt()
		if code < 0 || code > 0x10FFFF {
			return value.Str("")
		}
		return value.Str(string(rune(code)))
	}
	t["asc"] = func(m *vm.VM, args []value.Value) value.Value {
		s := arg(args, 0).ToString()
		runes := []rune(s)
		if len(runes) == 0 {
			return value.Int(0)
		}
		return value.Int(int64(runes[0]))
	}
	t["verdade"] = func(m *vm.VM, args []value.Value) value.Value { return value.Int(1) }
	t["falso"] = func(m *vm.VM, args []value.Value) value.Value { return value.Int(0) }
}
