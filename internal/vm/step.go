package vm

import (
	"strconv"

	"github.com/magoolation/intmud/internal/compiler"
	"github.com/magoolation/intmud/internal/object"
	"github.com/magoolation/intmud/internal/opcode"
	"github.com/magoolation/intmud/internal/value"
)

// IndexLookup resolves `$name` against the global indexed-object registry
// (spec §4.7, §4.8 IndiceObj). Wired at startup by internal/handler to avoid
// an import cycle (IndiceObj is itself a handler type).
var IndexLookup = func(name string) value.Value { return value.Null() }

// IndexStore registers/replaces the object bound to `$name` in the global
// indexed-object registry.
var IndexStore = func(name string, v value.Value) {}

// step executes one instruction against frame, reporting whether the frame's
// IP should auto-advance, and — when a call/return redirected control flow —
// the value produced and whether a frame boundary was crossed (returned).
func (m *VM) step(frame *Frame, inst opcode.Instruction) (advance bool, ret value.Value, returned bool) {
	switch inst.Op {

	// --- stack ---
	case opcode.OpPushConst, opcode.OpNop:
		return true, value.Null(), false
	case opcode.OpPushInt:
		frame.push(value.Int(int64(inst.A)))
	case opcode.OpPushDouble:
		f, _ := strconv.ParseFloat(frame.str(inst.A), 64)
		frame.push(value.Double(f))
	case opcode.OpPushString:
		frame.push(value.Str(frame.str(inst.A)))
	case opcode.OpPushNull:
		frame.push(value.Null())
	case opcode.OpPushThis:
		if frame.Receiver != nil {
			frame.push(value.Obj(frame.Receiver.Ref()))
		} else {
			frame.push(value.Null())
		}
	case opcode.OpPushArg:
		if inst.A >= 0 && inst.A < len(frame.Args) {
			frame.push(frame.Args[inst.A])
		} else {
			frame.push(value.Null())
		}
	case opcode.OpPushArgCount:
		frame.push(value.Int(int64(len(frame.Args))))
	case opcode.OpPop:
		frame.pop()
	case opcode.OpDup:
		frame.push(frame.peek())

	// --- arithmetic / logical / bitwise ---
	case opcode.OpAdd:
		b, a := frame.pop(), frame.pop()
		frame.push(value.Add(a, b))
	case opcode.OpSub:
		b, a := frame.pop(), frame.pop()
		frame.push(value.Sub(a, b))
	case opcode.OpMul:
		b, a := frame.pop(), frame.pop()
		frame.push(value.Mul(a, b))
	case opcode.OpDiv:
		b, a := frame.pop(), frame.pop()
		frame.push(value.Div(a, b))
	case opcode.OpMod:
		b, a := frame.pop(), frame.pop()
		frame.push(value.Mod(a, b))
	case opcode.OpNeg:
		frame.push(value.Neg(frame.pop()))
	case opcode.OpNot:
		frame.push(value.Not(frame.pop()))
	case opcode.OpBitNot:
		frame.push(value.BitNot(frame.pop()))
	case opcode.OpBitAnd:
		b, a := frame.pop(), frame.pop()
		frame.push(value.BitAnd(a, b))
	case opcode.OpBitOr:
		b, a := frame.pop(), frame.pop()
		frame.push(value.BitOr(a, b))
	case opcode.OpBitXor:
		b, a := frame.pop(), frame.pop()
		frame.push(value.BitXor(a, b))
	case opcode.OpShl:
		b, a := frame.pop(), frame.pop()
		frame.push(value.Shl(a, b))
	case opcode.OpShr:
		b, a := frame.pop(), frame.pop()
		frame.push(value.Shr(a, b))
	case opcode.OpConcat:
		b, a := frame.pop(), frame.pop()
		frame.push(value.Concat(a, b))

	// --- comparison ---
	case opcode.OpEqual:
		b, a := frame.pop(), frame.pop()
		frame.push(value.Bool(value.Equal(a, b)))
	case opcode.OpNotEqual:
		b, a := frame.pop(), frame.pop()
		frame.push(value.Bool(!value.Equal(a, b)))
	case opcode.OpStrictEqual:
		b, a := frame.pop(), frame.pop()
		frame.push(value.Bool(value.StrictEqual(a, b)))
	case opcode.OpStrictNotEqual:
		b, a := frame.pop(), frame.pop()
		frame.push(value.Bool(!value.StrictEqual(a, b)))
	case opcode.OpLess:
		b, a := frame.pop(), frame.pop()
		frame.push(value.Bool(value.Compare(a, b) < 0))
	case opcode.OpLessEqual:
		b, a := frame.pop(), frame.pop()
		frame.push(value.Bool(value.Compare(a, b) <= 0))
	case opcode.OpGreater:
		b, a := frame.pop(), frame.pop()
		frame.push(value.Bool(value.Compare(a, b) > 0))
	case opcode.OpGreaterEqual:
		b, a := frame.pop(), frame.pop()
		frame.push(value.Bool(value.Compare(a, b) >= 0))

	// --- locals / fields ---
	case opcode.OpLoadLocal:
		if inst.A >= 0 && inst.A < len(frame.Locals) {
			frame.push(frame.Locals[inst.A])
		} else {
			frame.push(value.Null())
		}
	case opcode.OpStoreLocal:
		v := frame.pop()
		if inst.A >= 0 {
			for inst.A >= len(frame.Locals) {
				frame.Locals = append(frame.Locals, value.Null())
			}
			frame.Locals[inst.A] = v
		}
	case opcode.OpLoadField:
		name := inst.Str
		if name == "" {
			name = frame.pop().ToString()
		}
		frame.push(m.resolveLoad(frame, name))
	case opcode.OpStoreField:
		name := inst.Str
		if name == "" {
			name = frame.pop().ToString()
		}
		v := frame.pop()
		if frame.Receiver != nil {
			if !m.storeHandlerField(frame.Receiver, name, v) {
				frame.Receiver.FieldSet(name, v)
			}
		} else {
			m.RecordError(ErrLookupMiss, "store-field without receiver: "+name)
		}
	case opcode.OpLoadClassMember:
		member := frame.pop().ToString()
		className := frame.pop().ToString()
		frame.push(m.loadClassMember(frame, className, member))
	case opcode.OpStoreClassMember:
		member := frame.pop().ToString()
		className := frame.pop().ToString()
		v := frame.pop()
		m.storeClassMember(className, member, v)
	case opcode.OpBuildDynamicIdent:
		suffix := frame.pop().ToString()
		middle := frame.pop().ToString()
		prefix := frame.pop().ToString()
		frame.push(value.Str(prefix + middle + suffix))
	case opcode.OpLoadIndexed:
		name := frame.pop().ToString()
		frame.push(IndexLookup(name))
	case opcode.OpStoreIndexed:
		v := frame.pop()
		name := frame.pop().ToString()
		IndexStore(name, v)
		frame.push(v)

	// --- arrays ---
	case opcode.OpNewArray:
		frame.push(value.NewArray())
	case opcode.OpIndexGet:
		idx := frame.pop()
		recv := frame.pop()
		frame.push(m.indexGet(recv, idx))
	case opcode.OpIndexSet:
		v := frame.pop()
		idx := frame.pop()
		recv := frame.pop()
		frame.push(m.indexSet(recv, idx, v))
	case opcode.OpAppendArray:
		el := frame.pop()
		arrVal := frame.peek()
		if a := arrVal.Array(); a != nil {
			a.Push(el)
		}

	// --- control flow ---
	case opcode.OpJump:
		frame.IP = inst.A
		return false, value.Null(), false
	case opcode.OpJumpIfFalse:
		cond := frame.pop()
		if !cond.ToBool() {
			frame.IP = inst.A
			return false, value.Null(), false
		}
	case opcode.OpJumpIfTrue:
		cond := frame.pop()
		if cond.ToBool() {
			frame.IP = inst.A
			return false, value.Null(), false
		}
	case opcode.OpBreak, opcode.OpContinue:
		frame.IP = inst.A
		return false, value.Null(), false
	case opcode.OpBreakCond, opcode.OpContinueCond:
		cond := frame.pop()
		if cond.ToBool() {
			frame.IP = inst.A
			return false, value.Null(), false
		}
	case opcode.OpCall:
		return m.doCall(frame, inst)
	case opcode.OpCallVirtual:
		return m.doCallVirtual(frame, inst)
	case opcode.OpCallMember:
		return m.doCallMember(frame, inst)
	case opcode.OpCallBuiltin:
		args := frame.popN(inst.A)
		frame.push(CallBuiltin(m, inst.Str, args))
	case opcode.OpReturn:
		v := frame.pop()
		result := m.doReturn(frame, v)
		return false, result, true
	case opcode.OpReturnCond:
		v := frame.pop()
		cond := frame.pop()
		if cond.ToBool() {
			result := m.doReturn(frame, v)
			return false, result, true
		}
	case opcode.OpTerminate:
		m.Terminated = true
		m.frames = nil
		return false, value.Null(), true

	// --- switch / misc: vestigial in this compiler generation (compileSwitch
	// lowers entirely to OP_EQUAL/OP_JUMP_IF_TRUE), kept as harmless no-ops
	// so a hand-assembled or future-compiler-emitted stream doesn't crash.
	case opcode.OpSwitchTest, opcode.OpSwitchDefault, opcode.OpIncDecLocal, opcode.OpTernary, opcode.OpCoalesce:
		return true, value.Null(), false

	default:
		m.RecordError(ErrLookupMiss, "unknown opcode")
	}
	return true, value.Null(), false
}

// str resolves a string-pool index against the current frame's function.
func (f *Frame) str(idx int) string {
	if idx < 0 || idx >= len(f.Fn.Strings) {
		return ""
	}
	return f.Fn.Strings[idx]
}

// popN pops n values off the frame stack in the order they were pushed.
func (f *Frame) popN(n int) []value.Value {
	if n <= 0 {
		return nil
	}
	if n > len(f.Stack) {
		n = len(f.Stack)
	}
	out := make([]value.Value, n)
	copy(out, f.Stack[len(f.Stack)-n:])
	f.Stack = f.Stack[:len(f.Stack)-n]
	return out
}

// resolveLoad implements the runtime half of spec §4.2 identifier
// resolution for names the compiler could not resolve at compile time:
// instance/common field, then constant along the hierarchy, else a
// lookup-miss sentinel (spec §7 kind 4).
func (m *VM) resolveLoad(frame *Frame, name string) value.Value {
	if frame.Receiver != nil {
		if v, ok := frame.Receiver.FieldGet(name); ok {
			return v
		}
		if ct, cls, ok := frame.Receiver.Class.ResolveConstant(name); ok {
			return m.evalConstant(frame, ct, cls, frame.Receiver, frame.Args)
		}
	} else if frame.Class != nil {
		if ct, cls, ok := frame.Class.ResolveConstant(name); ok {
			return m.evalConstant(frame, ct, cls, nil, frame.Args)
		}
	}
	m.RecordError(ErrLookupMiss, "unknown name "+name)
	return value.Null()
}

// evalConstant evaluates a CompiledConstant fresh (spec §9: expression
// constants are never cached) under the given `this`/args context. Thunks
// run via m.call so a sub-call mid-expression shares this invocation's
// frame stack correctly instead of re-entering the top-level Resume loop.
func (m *VM) evalConstant(frame *Frame, ct *compiler.Constant, cls *object.Class, receiver *object.Object, args []value.Value) value.Value {
	switch ct.Kind {
	case compiler.ConstInt:
		return value.Int(ct.I)
	case compiler.ConstDouble:
		return value.Double(ct.D)
	case compiler.ConstString:
		return value.Str(ct.S)
	case compiler.ConstExpr:
		return m.call(ct.Thunk, receiver, cls, args)
	default:
		return value.Null()
	}
}

func (m *VM) loadClassMember(frame *Frame, className, member string) value.Value {
	cls, ok := m.Registry.Lookup(className)
	if !ok {
		m.RecordError(ErrLookupMiss, "unknown class "+className)
		return value.Null()
	}
	if ct, owner, ok := cls.ResolveConstant(member); ok {
		return m.evalConstant(frame, ct, owner, frame.Receiver, frame.Args)
	}
	for _, anc := range cls.Linear {
		if v, ok := anc.Unit.CommonGet(member); ok {
			return v
		}
	}
	m.RecordError(ErrLookupMiss, "unknown class member "+className+":"+member)
	return value.Null()
}

func (m *VM) storeClassMember(className, member string, v value.Value) {
	cls, ok := m.Registry.Lookup(className)
	if !ok {
		m.RecordError(ErrLookupMiss, "unknown class "+className)
		return
	}
	for _, anc := range cls.Linear {
		if vr := anc.Unit.VariableByName(member); vr != nil && vr.Common {
			anc.Unit.CommonSet(member, v)
			return
		}
	}
	m.RecordError(ErrLookupMiss, "unknown class member "+className+":"+member)
}

// storeHandlerField routes a plain `name = value` store into a handler-
// typed field through the handler's own "valor" member instead of
// overwriting the field's value.Obj(handle) with a raw scalar (spec §4.8:
// handler members are reached through dispatch, not direct field
// replacement — `t = 30` on an `inttempo t` field must land in the same
// IntTempo.Call("valor", ...) path as `t.valor = 30` would, or the field
// stops being the live *IntTempo/*IntExec/etc. instance altogether).
// Reports whether it handled the store; false means the field doesn't
// currently hold a handler, the new value is itself a handler reference
// (a deliberate handle replacement, left to FieldSet), or the handler
// kind has no "valor" setter (e.g. ListaObj) — the caller falls back to
// a plain field overwrite in all of those cases.
func (m *VM) storeHandlerField(receiver *object.Object, name string, v value.Value) bool {
	cur, ok := receiver.FieldGet(name)
	if !ok || !cur.IsObject() || v.IsObject() {
		return false
	}
	_, handled := CallHandlerMember(cur.ObjHandle(), "valor", []value.Value{v}, false)
	return handled
}

// indexGet implements array/string element access (spec §4.1); non-array,
// non-string receivers yield Null rather than faulting (spec §7).
func (m *VM) indexGet(recv, idx value.Value) value.Value {
	switch {
	case recv.IsArray():
		return recv.Array().Get(int(idx.ToInt()))
	case recv.IsString():
		s := recv.ToString()
		i := int(idx.ToInt())
		if i < 0 || i >= len(s) {
			return value.Null()
		}
		return value.Str(string(s[i]))
	default:
		return value.Null()
	}
}

// indexSet mutates an array in place via its shared pointer (spec §9: Value
// carries Array by pointer so aliased locals/fields observe the mutation).
// A non-array receiver (e.g. a still-Null array-typed variable) is promoted
// to a fresh array holding only the written slot — the caller cannot
// re-store the promoted array into its original lvalue from this opcode
// alone, a limitation of the stack-only IndexSet encoding.
func (m *VM) indexSet(recv, idx, v value.Value) value.Value {
	a := recv.Array()
	if a == nil {
		a = value.NewArray().Array()
	}
	a.Set(int(idx.ToInt()), v)
	return v
}
