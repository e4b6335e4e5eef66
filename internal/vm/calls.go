package vm

import (
	"github.com/magoolation/intmud/internal/compiler"
	"github.com/magoolation/intmud/internal/object"
	"github.com/magoolation/intmud/internal/opcode"
	"github.com/magoolation/intmud/internal/value"
)

// call runs fn to completion (or force-terminates it on budget exhaustion)
// and returns its result. When the VM is already executing (m.frames
// non-empty — a call nested inside an expression, a constant thunk, or a
// builtin like `criar` invoking `inicializar`), it shares the existing
// frame stack instead of re-entering the top-level Resume loop, which would
// otherwise restart execution from the calling frame's current instruction
// and loop forever (spec §4.3: calls are opcodes, not separate
// invocations — a `ret` several calls deep must unwind through this same
// stack). When called with an empty frame stack (a fresh top-level
// invocation from the Event Loop), it delegates to Invoke/Resume directly.
func (m *VM) call(fn *compiler.Function, receiver *object.Object, class *object.Class, args []value.Value) value.Value {
	if fn == nil {
		m.RecordError(ErrLookupMiss, "call to undefined function")
		return value.Null()
	}
	if len(m.frames) == 0 {
		v, _ := m.Invoke(fn, receiver, class, args)
		return v
	}
	target := len(m.frames)
	top := m.frames[target-1]
	m.pushFrame(newFrame(fn, receiver, class, args))
	for len(m.frames) > target {
		cur := m.frames[len(m.frames)-1]
		if m.Budget <= 0 {
			m.RecordError(ErrBudgetExhausted, "nested call suspended mid-expression")
			for len(m.frames) > target {
				m.popFrame()
			}
			return value.Null()
		}
		if cur.IP < 0 || cur.IP >= len(cur.Fn.Code) {
			m.doReturn(cur, value.Null())
			continue
		}
		inst := cur.Fn.Code[cur.IP]
		m.Budget--
		m.InstrExecuted++
		advance, _, returned := m.step(cur, inst)
		if returned {
			continue
		}
		if advance {
			cur.IP++
		}
	}
	return top.pop()
}

// doCall executes OP_CALL: `ClassName:member(args)`, a static-by-name call
// resolved at runtime against the named class's own linearised hierarchy
// (spec §4.2 "sibling class by name", §4.7 "class-name:member").
func (m *VM) doCall(frame *Frame, inst opcode.Instruction) (bool, value.Value, bool) {
	args := frame.popN(inst.A)
	member := frame.pop().ToString()
	className := frame.pop().ToString()

	cls, ok := m.Registry.Lookup(className)
	if !ok {
		m.RecordError(ErrLookupMiss, "unknown class "+className)
		frame.push(value.Null())
		return true, value.Null(), false
	}
	owner, ok := cls.ResolveFunction(member)
	if !ok {
		m.RecordError(ErrLookupMiss, "unknown function "+className+":"+member)
		frame.push(value.Null())
		return true, value.Null(), false
	}
	fn := owner.Unit.Functions[member]
	frame.push(m.call(fn, frame.Receiver, owner, args))
	return true, value.Null(), false
}

// doCallVirtual executes OP_CALL_VIRTUAL: a bare `name(args)` call, resolved
// virtually against the current receiver's linearised hierarchy, falling
// back to the builtin registry when no script function matches (spec §4.3
// "Virtual call walks the receiver's linearised hierarchy").
func (m *VM) doCallVirtual(frame *Frame, inst opcode.Instruction) (bool, value.Value, bool) {
	args := frame.popN(inst.A)
	if frame.Receiver == nil {
		frame.push(CallBuiltin(m, inst.Str, args))
		return true, value.Null(), false
	}
	owner, ok := frame.Receiver.Class.ResolveFunction(inst.Str)
	if !ok {
		frame.push(CallBuiltin(m, inst.Str, args))
		return true, value.Null(), false
	}
	fn := owner.Unit.Functions[inst.Str]
	frame.push(m.call(fn, frame.Receiver, owner, args))
	return true, value.Null(), false
}

// doCallMember executes OP_CALL_MEMBER: `receiver.member(args)`, unifying
// property-style access (0 args), handler operations, and plain-object
// method/field access into one opcode (spec §4.3, §4.7). Zero args against
// a plain object reads a field; one arg against a plain object with no
// matching method is the "setter-as-call" field-assignment convention the
// compiler relies on (internal/compiler/expr.go compileStore).
func (m *VM) doCallMember(frame *Frame, inst opcode.Instruction) (bool, value.Value, bool) {
	args := frame.popN(inst.A)
	member := frame.pop().ToString()
	recv := frame.pop()

	h := recv.ObjHandle()
	if h == nil {
		m.RecordError(ErrLookupMiss, "member access on non-object: "+member)
		frame.push(value.Null())
		return true, value.Null(), false
	}

	if ref, ok := h.(object.Ref); ok {
		obj := ref.Object()
		if obj == nil {
			m.RecordError(ErrLookupMiss, "member access on deleted object: "+member)
			frame.push(value.Null())
			return true, value.Null(), false
		}
		if owner, ok := obj.Class.ResolveFunction(member); ok {
			fn := owner.Unit.Functions[member]
			frame.push(m.call(fn, obj, owner, args))
			return true, value.Null(), false
		}
		switch len(args) {
		case 0:
			v, _ := obj.FieldGet(member)
			frame.push(v)
		case 1:
			obj.FieldSet(member, args[0])
			frame.push(args[0])
		default:
			m.RecordError(ErrLookupMiss, "unknown member "+member)
			frame.push(value.Null())
		}
		return true, value.Null(), false
	}

	v, ok := CallHandlerMember(h, member, args, false)
	if !ok {
		m.RecordError(ErrHandlerFailure, "handler operation failed: "+member)
	}
	frame.push(v)
	return true, value.Null(), false
}
