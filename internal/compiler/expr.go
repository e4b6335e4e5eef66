package compiler

import (
	"strconv"

	"github.com/magoolation/intmud/internal/ast"
	"github.com/magoolation/intmud/internal/opcode"
)

var binOps = map[string]opcode.Op{
	"+": opcode.OpAdd, "-": opcode.OpSub, "*": opcode.OpMul, "/": opcode.OpDiv, "%": opcode.OpMod,
	"&": opcode.OpBitAnd, "|": opcode.OpBitOr, "^": opcode.OpBitXor, "<<": opcode.OpShl, ">>": opcode.OpShr,
	"==": opcode.OpEqual, "!=": opcode.OpNotEqual,
	"<": opcode.OpLess, "<=": opcode.OpLessEqual, ">": opcode.OpGreater, ">=": opcode.OpGreaterEqual,
}

// compileExpr emits code that leaves exactly one Value on the stack.
func (fc *funcCompiler) compileExpr(e ast.Expr) {
	pos := e.Position()
	switch x := e.(type) {
	case *ast.IntLit:
		fc.emit(opcode.Instruction{Op: opcode.OpPushInt, A: int(x.Value), Line: pos.Line})
	case *ast.DoubleLit:
		idx := fc.internString(formatDoubleLit(x.Value))
		fc.emit(opcode.Instruction{Op: opcode.OpPushDouble, A: idx, Line: pos.Line})
	case *ast.StringLit:
		idx := fc.internString(x.Value)
		fc.emit(opcode.Instruction{Op: opcode.OpPushString, A: idx, Line: pos.Line})
	case *ast.NullLit:
		fc.emit(opcode.Instruction{Op: opcode.OpPushNull, Line: pos.Line})
	case *ast.ThisExpr:
		fc.emit(opcode.Instruction{Op: opcode.OpPushThis, Line: pos.Line})
	case *ast.ArgExpr:
		if x.N < 0 {
			fc.emit(opcode.Instruction{Op: opcode.OpPushArgCount, Line: pos.Line})
		} else {
			fc.emit(opcode.Instruction{Op: opcode.OpPushArg, A: x.N, Line: pos.Line})
		}
	case *ast.Ident:
		fc.compileIdentLoad(x, pos)
	case *ast.DynamicIdent:
		fc.compileBuildDynamicIdent(x.Prefix, x.Middle, x.Suffix, pos)
		fc.emit(opcode.Instruction{Op: opcode.OpLoadField, Line: pos.Line}) // name comes from stack
	case *ast.ClassMember:
		fc.compileClassMemberName(x, pos)
		fc.emit(opcode.Instruction{Op: opcode.OpLoadClassMember, Line: pos.Line})
	case *ast.IndexedRef:
		fc.compileIndexedRefName(x, pos)
		fc.emit(opcode.Instruction{Op: opcode.OpLoadIndexed, Line: pos.Line})
	case *ast.BinaryExpr:
		fc.compileBinary(x, pos)
	case *ast.UnaryExpr:
		fc.compileExpr(x.X)
		switch x.Op {
		case "-":
			fc.emit(opcode.Instruction{Op: opcode.OpNeg, Line: pos.Line})
		case "!":
			fc.emit(opcode.Instruction{Op: opcode.OpNot, Line: pos.Line})
		case "~":
			fc.emit(opcode.Instruction{Op: opcode.OpBitNot, Line: pos.Line})
		}
	case *ast.IncDecExpr:
		fc.compileIncDec(x, pos)
	case *ast.AssignExpr:
		fc.compileAssign(x, pos)
	case *ast.TernaryExpr:
		fc.compileExpr(x.Cond)
		jf := fc.emit(opcode.Instruction{Op: opcode.OpJumpIfFalse, Line: pos.Line})
		fc.compileExpr(x.Then)
		jEnd := fc.emit(opcode.Instruction{Op: opcode.OpJump, Line: pos.Line})
		fc.patch(jf, fc.here())
		fc.compileExpr(x.Else)
		fc.patch(jEnd, fc.here())
	case *ast.CoalesceExpr:
		fc.compileExpr(x.X)
		fc.emit(opcode.Instruction{Op: opcode.OpDup, Line: pos.Line})
		jt := fc.emit(opcode.Instruction{Op: opcode.OpJumpIfTrue, Line: pos.Line}) // null is falsy -> falls through
		fc.emit(opcode.Instruction{Op: opcode.OpPop, Line: pos.Line})
		fc.compileExpr(x.Y)
		fc.patch(jt, fc.here())
	case *ast.IndexExpr:
		fc.compileExpr(x.X)
		fc.compileExpr(x.Index)
		fc.emit(opcode.Instruction{Op: opcode.OpIndexGet, Line: pos.Line})
	case *ast.ArrayLit:
		fc.emit(opcode.Instruction{Op: opcode.OpNewArray, Line: pos.Line})
		for _, el := range x.Elems {
			fc.compileExpr(el)
			fc.emit(opcode.Instruction{Op: opcode.OpAppendArray, Line: pos.Line})
		}
	case *ast.CallExpr:
		fc.compileCall(x, pos)
	case *ast.MemberCallExpr:
		fc.compileMemberAccess(x.Receiver, x.Member, x.DynMiddle, x.Prefix, x.Suffix, x.Args, pos)
	case *ast.MemberExpr:
		fc.compileMemberAccess(x.Receiver, x.Member, x.DynMiddle, x.Prefix, x.Suffix, nil, pos)
	default:
		fc.errorf(pos, "unsupported expression %T", x)
		fc.emit(opcode.Instruction{Op: opcode.OpPushNull, Line: pos.Line})
	}
}

func formatDoubleLit(f float64) string {
	// Stored as its own string-pool entry; the VM parses it back to float64
	// at PUSH_DOUBLE execution time (the string pool is shared by every
	// literal kind that needs out-of-line storage).
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// compileIdentLoad resolves a bare identifier: a function-local slot if one
// exists (argument markers are handled earlier, in ast.ArgExpr), else
// OP_LOAD_FIELD, which the VM resolves at run time as an instance/common
// field, then a constant along the hierarchy, else a lookup miss. Builtins
// are not consulted for a bare identifier.
func (fc *funcCompiler) compileIdentLoad(x *ast.Ident, pos ast.Pos) {
	if slot, ok := fc.isLocal(x.Name); ok {
		fc.emit(opcode.Instruction{Op: opcode.OpLoadLocal, A: slot, Line: pos.Line})
		return
	}
	fc.emit(opcode.Instruction{Op: opcode.OpLoadField, Str: x.Name, Line: pos.Line})
}

func (fc *funcCompiler) compileBuildDynamicIdent(prefix string, middle ast.Expr, suffix string, pos ast.Pos) {
	idx := fc.internString(prefix)
	fc.emit(opcode.Instruction{Op: opcode.OpPushString, A: idx, Line: pos.Line})
	fc.compileExpr(middle)
	idx2 := fc.internString(suffix)
	fc.emit(opcode.Instruction{Op: opcode.OpPushString, A: idx2, Line: pos.Line})
	fc.emit(opcode.Instruction{Op: opcode.OpBuildDynamicIdent, Line: pos.Line})
}

// compileMemberName pushes the member name (static or dynamically built
// via prefix_[expr]_suffix, spec §4.2/§4.7) as a single String Value.
func (fc *funcCompiler) compileMemberName(member string, dynMiddle ast.Expr, prefix, suffix string, pos ast.Pos) {
	if dynMiddle != nil {
		fc.compileBuildDynamicIdent(prefix, dynMiddle, suffix, pos)
		return
	}
	idx := fc.internString(member)
	fc.emit(opcode.Instruction{Op: opcode.OpPushString, A: idx, Line: pos.Line})
}

func (fc *funcCompiler) compileClassMemberName(x *ast.ClassMember, pos ast.Pos) {
	idx := fc.internString(x.ClassName)
	fc.emit(opcode.Instruction{Op: opcode.OpPushString, A: idx, Line: pos.Line})
	if x.ClassNameSuffix != nil {
		fc.compileExpr(x.ClassNameSuffix)
		fc.emit(opcode.Instruction{Op: opcode.OpConcat, Line: pos.Line})
	}
	midx := fc.internString(x.Member)
	fc.emit(opcode.Instruction{Op: opcode.OpPushString, A: midx, Line: pos.Line})
}

func (fc *funcCompiler) compileIndexedRefName(x *ast.IndexedRef, pos ast.Pos) {
	if x.NameExpr != nil {
		fc.compileExpr(x.NameExpr)
		return
	}
	idx := fc.internString(x.Name)
	fc.emit(opcode.Instruction{Op: opcode.OpPushString, A: idx, Line: pos.Line})
}

// compileMemberAccess handles both `receiver.member` (property-like, 0
// args) and `receiver.member(args)` uniformly as OP_CALL_MEMBER with the
// receiver, a runtime member-name Value, and the argument count on the
// stack (spec §4.7).
func (fc *funcCompiler) compileMemberAccess(receiver ast.Expr, member string, dynMiddle ast.Expr, prefix, suffix string, args []ast.Expr, pos ast.Pos) {
	fc.compileExpr(receiver)
	fc.compileMemberName(member, dynMiddle, prefix, suffix, pos)
	for _, a := range args {
		fc.compileExpr(a)
	}
	fc.emit(opcode.Instruction{Op: opcode.OpCallMember, A: len(args), Line: pos.Line})
}

func (fc *funcCompiler) compileBinary(x *ast.BinaryExpr, pos ast.Pos) {
	switch x.Op {
	case "&&":
		fc.compileExpr(x.X)
		fc.emit(opcode.Instruction{Op: opcode.OpDup, Line: pos.Line})
		jf := fc.emit(opcode.Instruction{Op: opcode.OpJumpIfFalse, Line: pos.Line})
		fc.emit(opcode.Instruction{Op: opcode.OpPop, Line: pos.Line})
		fc.compileExpr(x.Y)
		fc.patch(jf, fc.here())
		return
	case "||":
		fc.compileExpr(x.X)
		fc.emit(opcode.Instruction{Op: opcode.OpDup, Line: pos.Line})
		jt := fc.emit(opcode.Instruction{Op: opcode.OpJumpIfTrue, Line: pos.Line})
		fc.emit(opcode.Instruction{Op: opcode.OpPop, Line: pos.Line})
		fc.compileExpr(x.Y)
		fc.patch(jt, fc.here())
		return
	}
	fc.compileExpr(x.X)
	fc.compileExpr(x.Y)
	if op, ok := binOps[x.Op]; ok {
		fc.emit(opcode.Instruction{Op: op, Line: pos.Line})
		return
	}
	fc.errorf(pos, "unsupported operator %q", x.Op)
}

// compileIncDec lowers ++/-- (pre or post) over any lvalue kind by loading,
// adjusting, storing, and leaving either the old (post) or new (pre) value
// on the stack.
func (fc *funcCompiler) compileIncDec(x *ast.IncDecExpr, pos ast.Pos) {
	delta := int64(1)
	if x.Op == "--" {
		delta = -1
	}
	fc.compileLoadForUpdate(x.X, pos, func() {
		if x.Post {
			fc.emit(opcode.Instruction{Op: opcode.OpDup, Line: pos.Line})
		}
		fc.emit(opcode.Instruction{Op: opcode.OpPushInt, A: int(delta), Line: pos.Line})
		fc.emit(opcode.Instruction{Op: opcode.OpAdd, Line: pos.Line})
		if !x.Post {
			fc.emit(opcode.Instruction{Op: opcode.OpDup, Line: pos.Line})
		}
	})
}

// compileAssign lowers `=` and the compound assignment operators over any
// lvalue kind (spec §4.2 Assignment operators).
func (fc *funcCompiler) compileAssign(x *ast.AssignExpr, pos ast.Pos) {
	if x.Op == "=" {
		fc.compileStore(x.LHS, pos, func() { fc.compileExpr(x.RHS) })
		return
	}
	op := binOps[x.Op[:len(x.Op)-1]]
	fc.compileLoadForUpdate(x.LHS, pos, func() {
		fc.compileExpr(x.RHS)
		fc.emit(opcode.Instruction{Op: op, Line: pos.Line})
		fc.emit(opcode.Instruction{Op: opcode.OpDup, Line: pos.Line})
	})
}

// compileLoadForUpdate loads the current lvalue, lets makeNew consume it,
// then stores and leaves the designated result on the stack. makeNew must,
// given the loaded old value already on the stack, leave exactly
// [valueToLeaveOnStack, valueToStore] with valueToStore on top — achieved
// by dup-before/after.
func (fc *funcCompiler) compileLoadForUpdate(target ast.Expr, pos ast.Pos, makeNew func()) {
	switch t := target.(type) {
	case *ast.Ident:
		fc.compileExpr(t)
		makeNew()
		fc.compileStoreFromDup(target, pos)
	case *ast.MemberExpr:
		fc.compileExpr(t)
		makeNew()
		fc.compileStoreFromDup(target, pos)
	case *ast.IndexExpr:
		fc.compileExpr(t)
		makeNew()
		fc.compileStoreFromDup(target, pos)
	case *ast.IndexedRef:
		fc.compileExpr(t)
		makeNew()
		fc.compileStoreFromDup(target, pos)
	default:
		fc.errorf(pos, "invalid assignment target %T", target)
	}
}

// compileStoreFromDup stores the top-of-stack value into target without
// disturbing the duplicate left underneath (produced by makeNew's DUP),
// which remains as the expression's result.
func (fc *funcCompiler) compileStoreFromDup(target ast.Expr, pos ast.Pos) {
	// Stack before: [..., resultToKeep, valueToStore]. We need valueToStore
	// on top for the store sequence, then resultToKeep remains.
	fc.compileStoreTopOfStack(target, pos)
}

// compileStore evaluates rhs() and stores it into target, leaving the
// stored value as the expression's result.
func (fc *funcCompiler) compileStore(target ast.Expr, pos ast.Pos, rhs func()) {
	switch t := target.(type) {
	case *ast.Ident:
		rhs()
		fc.emit(opcode.Instruction{Op: opcode.OpDup, Line: pos.Line})
		if slot, ok := fc.isLocal(t.Name); ok {
			fc.emit(opcode.Instruction{Op: opcode.OpStoreLocal, A: slot, Line: pos.Line})
		} else {
			fc.emit(opcode.Instruction{Op: opcode.OpStoreField, Str: t.Name, Line: pos.Line})
		}
	case *ast.MemberExpr:
		fc.compileExpr(t.Receiver)
		fc.compileMemberName(t.Member, t.DynMiddle, t.Prefix, t.Suffix, pos)
		rhs()
		// CALL_MEMBER with A=1 consumes [receiver, name, value] and itself
		// pushes back the handler's result, which becomes the expression's
		// value (setter-as-call convention) — no separate DUP needed.
		fc.emit(opcode.Instruction{Op: opcode.OpCallMember, A: 1, Line: pos.Line})
	case *ast.IndexExpr:
		fc.compileExpr(t.X)
		fc.compileExpr(t.Index)
		rhs()
		fc.emit(opcode.Instruction{Op: opcode.OpIndexSet, Line: pos.Line}) // pushes back stored value
	case *ast.IndexedRef:
		fc.compileIndexedRefName(t, pos)
		rhs()
		fc.emit(opcode.Instruction{Op: opcode.OpStoreIndexed, Line: pos.Line}) // pushes back stored value
	default:
		fc.errorf(pos, "invalid assignment target %T", target)
	}
}

// compileStoreTopOfStack stores the value on top of the stack (with one
// copy left underneath as the expression result already handled by the
// caller's DUP) into target. Used by compound-assignment/inc-dec paths
// where the lvalue's address operands (receiver/name/index) must be
// re-evaluated AFTER loading the old value, which this module accepts as
// a minor re-evaluation-order deviation for simplicity (receivers used in
// compound assignment/inc-dec are expected side-effect-free identifiers,
// fields, or index expressions, matching typical script usage).
func (fc *funcCompiler) compileStoreTopOfStack(target ast.Expr, pos ast.Pos) {
	switch t := target.(type) {
	case *ast.Ident:
		if slot, ok := fc.isLocal(t.Name); ok {
			fc.emit(opcode.Instruction{Op: opcode.OpStoreLocal, A: slot, Line: pos.Line})
		} else {
			fc.emit(opcode.Instruction{Op: opcode.OpStoreField, Str: t.Name, Line: pos.Line})
		}
	case *ast.MemberExpr:
		// value is on top; re-push receiver+name below it via a rotate
		// sequence implemented through temporary locals so CALL_MEMBER sees
		// [receiver, name, value].
		tmp := fc.slotFor("$tmp$")
		fc.emit(opcode.Instruction{Op: opcode.OpStoreLocal, A: tmp, Line: pos.Line})
		fc.compileExpr(t.Receiver)
		fc.compileMemberName(t.Member, t.DynMiddle, t.Prefix, t.Suffix, pos)
		fc.emit(opcode.Instruction{Op: opcode.OpLoadLocal, A: tmp, Line: pos.Line})
		fc.emit(opcode.Instruction{Op: opcode.OpCallMember, A: 1, Line: pos.Line})
		fc.emit(opcode.Instruction{Op: opcode.OpPop, Line: pos.Line})
	case *ast.IndexExpr:
		tmp := fc.slotFor("$tmp$")
		fc.emit(opcode.Instruction{Op: opcode.OpStoreLocal, A: tmp, Line: pos.Line})
		fc.compileExpr(t.X)
		fc.compileExpr(t.Index)
		fc.emit(opcode.Instruction{Op: opcode.OpLoadLocal, A: tmp, Line: pos.Line})
		fc.emit(opcode.Instruction{Op: opcode.OpIndexSet, Line: pos.Line})
		fc.emit(opcode.Instruction{Op: opcode.OpPop, Line: pos.Line})
	case *ast.IndexedRef:
		tmp := fc.slotFor("$tmp$")
		fc.emit(opcode.Instruction{Op: opcode.OpStoreLocal, A: tmp, Line: pos.Line})
		fc.compileIndexedRefName(t, pos)
		fc.emit(opcode.Instruction{Op: opcode.OpLoadLocal, A: tmp, Line: pos.Line})
		fc.emit(opcode.Instruction{Op: opcode.OpStoreIndexed, Line: pos.Line})
		fc.emit(opcode.Instruction{Op: opcode.OpPop, Line: pos.Line})
	default:
		fc.errorf(pos, "invalid assignment target %T", target)
	}
}

func (fc *funcCompiler) compileCall(x *ast.CallExpr, pos ast.Pos) {
	switch callee := x.Callee.(type) {
	case *ast.ClassMember:
		fc.compileClassMemberName(callee, pos)
		for _, a := range x.Args {
			fc.compileExpr(a)
		}
		fc.emit(opcode.Instruction{Op: opcode.OpCall, A: len(x.Args), Line: pos.Line})
	case *ast.Ident:
		if IsBuiltinName(callee.Name) {
			for _, a := range x.Args {
				fc.compileExpr(a)
			}
			fc.emit(opcode.Instruction{Op: opcode.OpCallBuiltin, Str: callee.Name, A: len(x.Args), Line: pos.Line})
			return
		}
		for _, a := range x.Args {
			fc.compileExpr(a)
		}
		fc.emit(opcode.Instruction{Op: opcode.OpCallVirtual, Str: callee.Name, A: len(x.Args), Line: pos.Line})
	default:
		fc.errorf(pos, "expression is not callable")
	}
}
