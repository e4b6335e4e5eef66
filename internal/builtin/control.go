package builtin

import (
	"github.com/magoolation/intmud/internal/value"
	"github.com/magoolation/intmud/internal/vm"
)

// registerControlFuncs wires the control/meta builtins (spec §4.6).
func registerControlFuncs(t map[string]fn) {
	t["nulo"] = func(m *vm.VM, args []value.Value) value.Value { return value.Null() }

	t["classe"] = func(m *vm.VM, args []value.Value) value.Value {
		obj := refArgOrCurrent(m, args, 0)
		if obj == nil {
			return value.Str("")
		}
		return value.Str(obj.Class.Unit.ClassName)
	}
	t["nomeclasse"] = func(m *vm.VM, args []value.Value) value.Value {
		name := arg(args, 0).ToString()
		if cls, ok := m.Registry.Lookup(name); ok {
			return value.Str(cls.Unit.ClassName)
		}
		return value.Str("")
	}

	t["exec"] = func(m *vm.VM, args []value.Value) value.Value {
		if len(args) == 0 {
			return value.Null()
		}
		v, _ := m.InvokeNamed(m.CurrentReceiver(), args[0].ToString(), args[1:])
		return v
	}
	t["execobj"] = func(m *vm.VM, args []value.Value) value.Value {
		if len(args) < 2 {
			return value.Null()
		}
		obj := refArg(args, 0)
		if obj == nil {
			return value.Null()
		}
		v, _ := m.InvokeNamed(obj, args[1].ToString(), args[2:])
		return v
	}
	t["execclasse"] = func(m *vm.VM, args []value.Value) value.Value {
		if len(args) < 2 {
			return value.Null()
		}
		v, _ := m.InvokeStatic(args[0].ToString(), args[1].ToString(), m.CurrentReceiver(), args[2:])
		return v
	}

	t["escreva"] = func(m *vm.VM, args []value.Value) value.Value {
		m.Write(joinArgs(args))
		return value.Null()
	}
	t["escrevaln"] = func(m *vm.VM, args []value.Value) value.Value {
		m.Write(joinArgs(args) + "\n")
		return value.Null()
	}

	t["_progfim"] = func(m *vm.VM, args []value.Value) value.Value {
		return value.Bool(m.Terminated)
	}
	t["_progexec"] = func(m *vm.VM, args []value.Value) value.Value {
		return value.Int(m.InstrExecuted)
	}
	t["_progerro"] = func(m *vm.VM, args []value.Value) value.Value {
		return value.Int(int64(m.LastError.Kind))
	}
}
