package vm

import (
	"github.com/magoolation/intmud/internal/object"
	"github.com/magoolation/intmud/internal/value"
)

// InvokeNamed looks up name along obj's linearised hierarchy and calls it
// as a fresh top-level invocation (spec §4.5 step 4 "looks up a
// convention-named handler function on the owning object; if present,
// invokes it... Missing handlers are silently ignored"). The bool result
// reports whether a function was found at all, not whether it returned
// non-null, so callers (internal/scheduler) can distinguish "nothing to do"
// from "ran and returned null".
func (m *VM) InvokeNamed(obj *object.Object, name string, args []value.Value) (value.Value, bool) {
	if obj == nil {
		return value.Null(), false
	}
	owner, ok := obj.Class.ResolveFunction(name)
	if !ok {
		return value.Null(), false
	}
	fn := owner.Unit.Functions[name]
	return m.call(fn, obj, owner, args), true
}

// InvokeStatic resolves name against className's own linearised hierarchy
// (spec §4.7 "class-name:member", §4.6 `execclasse`) and calls it with
// receiver as the bound `este`, regardless of receiver's own class.
func (m *VM) InvokeStatic(className, name string, receiver *object.Object, args []value.Value) (value.Value, bool) {
	cls, ok := m.Registry.Lookup(className)
	if !ok {
		return value.Null(), false
	}
	owner, ok := cls.ResolveFunction(name)
	if !ok {
		return value.Null(), false
	}
	fn := owner.Unit.Functions[name]
	return m.call(fn, receiver, owner, args), true
}

// SetGlobal designates obj as the main object `aotick`/`aocomando` target
// (spec §4.5 steps 5-6).
func (m *VM) SetGlobal(obj *object.Object) { m.Global = obj }

// CurrentReceiver returns the receiver of the innermost active frame, or
// nil for a call with no receiver (spec §4.7 `este`). internal/builtin
// reaches it through this accessor since frames is unexported.
func (m *VM) CurrentReceiver() *object.Object {
	if f := m.currentFrame(); f != nil {
		return f.Receiver
	}
	return nil
}

// CurrentClass returns the static class context (for `class-name:member`
// resolution and `classe`/`nomeclasse`) of the innermost active frame.
func (m *VM) CurrentClass() *object.Class {
	if f := m.currentFrame(); f != nil {
		return f.Class
	}
	return nil
}

// CurrentArgs returns the positional argument list the innermost active
// frame was invoked with (spec §4.6 "arg0..arg9 read positional args").
func (m *VM) CurrentArgs() []value.Value {
	if f := m.currentFrame(); f != nil {
		return f.Args
	}
	return nil
}

// CurrentArg returns the n'th positional argument of the innermost active
// frame, or Null if out of range.
func (m *VM) CurrentArg(n int) value.Value {
	args := m.CurrentArgs()
	if n < 0 || n >= len(args) {
		return value.Null()
	}
	return args[n]
}
