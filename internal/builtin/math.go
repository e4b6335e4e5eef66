package builtin

import (
	"math"
	"math/rand"

	"github.com/magoolation/intmud/internal/value"
	"github.com/magoolation/intmud/internal/vm"
)

// registerMathFuncs wires the ~30 math builtins (spec §4.6): absolute,
// trig (radians), log/exp, square root, power, ceil, floor, degree/radian
// conversion, random integer in [0, n).
func registerMathFuncs(t map[string]fn) {
	unary := map[string]func(float64) float64{
		"absoluto":  math.Abs,
		"seno":      math.Sin,
		"coseno":    math.Cos,
		"tangente":  math.Tan,
		"arcoseno":  math.Asin,
		"arcocoseno": math.Acos,
		"arcotangente": math.Atan,
		"senoh":     math.Sinh,
		"cosenoh":   math.Cosh,
		"tangenteh": math.Tanh,
		"log":       math.Log10,
		"logn":      math.Log,
		"exp":       math.Exp,
		"raiz":      math.Sqrt,
		"raizcubica": math.Cbrt,
		"teto":      math.Ceil,
		"piso":      math.Floor,
		"arredonda": math.Round,
		"radianos":  func(deg float64) float64 { return deg * math.Pi / 180 },
		"graus":     func(rad float64) float64 { return rad * 180 / math.Pi },
	}
	for name, f := range unary {
		fn := f
		t[name] = func(m *vm.VM, args []value.Value) value.Value {
			return value.Double(fn(arg(args, 0).ToDouble()))
		}
	}

	t["potencia"] = func(m *vm.VM, args []value.Value) value.Value {
		return value.Double(math.Pow(arg(args, 0).ToDouble(), arg(args, 1).ToDouble()))
	}
	t["arcotangente2"] = func(m *vm.VM, args []value.Value) value.Value {
		return value.Double(math.Atan2(arg(args, 0).ToDouble(), arg(args, 1).ToDouble()))
	}
	t["min"] = func(m *vm.VM, args []value.Value) value.Value {
		if len(args) == 0 {
			return value.Int(0)
		}
		best := args[0]
		for _, a := range args[1:] {
			if value.Compare(a, best) < 0 {
				best = a
			}
		}
		return best
	}
	t["max"] = func(m *vm.VM, args []value.Value) value.Value {
		if len(args) == 0 {
			return value.Int(0)
		}
		best := args[0]
		for _, a := range args[1:] {
			if value.Compare(a, best) > 0 {
				best = a
			}
		}
		return best
	}
	t["pi"] = func(m *vm.VM, args []value.Value) value.Value { return value.Double(math.Pi) }
	t["sinal"] = func(m *vm.VM, args []value.Value) value.Value {
		v := arg(args, 0).ToDouble()
		switch {
		case v > 0:
			return value.Int(1)
		case v < 0:
			return value.Int(-1)
		default:
			return value.Int(0)
		}
	}
	t["aleatorio"] = func(m *vm.VM, args []value.Value) value.Value {
		n := arg(args, 0).ToInt()
		if n <= 0 {
			return value.Int(0)
		}
		return value.Int(rand.Int63n(n))
	}
}
