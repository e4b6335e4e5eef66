package compiler

import (
	"fmt"

	"github.com/magoolation/intmud/internal/ast"
	"github.com/magoolation/intmud/internal/opcode"
)

// CompileError is a non-fatal resolution/type-mismatch diagnostic
// (spec §7 kind 2). Compile errors accumulate into a list rather than
// aborting the whole load; the affected function is excluded.
type CompileError struct {
	File string
	Line int
	Col  int
	Msg  string
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("%s:%d:%d: %s", e.File, e.Line, e.Col, e.Msg)
}

// IsBuiltinName lets the compiler short-circuit bare calls known at compile
// time to be builtins straight to OP_CALL_BUILTIN (spec §4.2 identifier
// resolution, builtin last). internal/builtin's init() assigns the real
// table lookup to this variable, avoiding an import cycle.
var IsBuiltinName = func(name string) bool { return false }

// Compile lowers one parsed class into a CompiledUnit. Errors are
// accumulated, not fatal; a function whose body fails to compile is
// dropped from the resulting Unit's Functions map but does not stop the
// other functions or the class's fields/constants from compiling
// (spec §7 kind 2).
func Compile(cls *ast.Class) (*Unit, []*CompileError) {
	u := NewUnit(cls.Name, cls.Source)
	u.Bases = cls.Bases
	var errs []*CompileError

	for _, vd := range cls.Variables {
		v := &Variable{Name: vd.Name, Type: vd.Type, ArraySize: vd.ArraySize, Common: vd.Common, Saved: vd.Saved}
		if vd.Init != nil {
			fc := newFuncCompiler(u, cls.Name, cls.Source)
			fc.compileExpr(vd.Init)
			fc.emit(opcode.Instruction{Op: opcode.OpReturn, Line: vd.Init.Position().Line})
			v.Init = fc.finish("$init$" + vd.Name)
			errs = append(errs, fc.errs...)
		}
		u.Variables = append(u.Variables, v)
	}

	for _, cd := range cls.Constants {
		c := &Constant{Name: cd.Name}
		switch {
		case cd.IntVal != nil:
			c.Kind = ConstInt
			c.I = *cd.IntVal
		case cd.DoubleVal != nil:
			c.Kind = ConstDouble
			c.D = *cd.DoubleVal
		case cd.StringVal != nil:
			c.Kind = ConstString
			c.S = *cd.StringVal
		case cd.ExprVal != nil:
			c.Kind = ConstExpr
			fc := newFuncCompiler(u, cls.Name, cls.Source)
			fc.compileExpr(cd.ExprVal)
			fc.emit(opcode.Instruction{Op: opcode.OpReturn, Line: cd.ExprVal.Position().Line})
			c.Thunk = fc.finish("$const$" + cd.Name)
			errs = append(errs, fc.errs...)
		}
		u.AddConstant(c)
	}

	for _, fd := range cls.Functions {
		fc := newFuncCompiler(u, cls.Name, cls.Source)
		fc.compileBlock(fd.Body)
		fc.emit(opcode.Instruction{Op: opcode.OpPushNull, Line: fd.Position().Line})
		fc.emit(opcode.Instruction{Op: opcode.OpReturn, Line: fd.Position().Line})
		fn := fc.finish(fd.Name)
		if len(fc.errs) == 0 {
			u.AddFunction(fn)
		}
		errs = append(errs, fc.errs...)
	}

	return u, errs
}

// --- per-function compiler ---

type loopCtx struct {
	label         string
	breakTargets  []int // instruction indices of break jumps to patch
	continueTargets []int
}

type funcCompiler struct {
	unit      *Unit
	className string
	source    string
	code      []opcode.Instruction
	strings   []string
	strIndex  map[string]int
	locals    map[string]int
	nextSlot  int
	loops     []*loopCtx
	errs      []*CompileError
}

func newFuncCompiler(u *Unit, className, source string) *funcCompiler {
	return &funcCompiler{
		unit:      u,
		className: className,
		source:    source,
		strIndex:  make(map[string]int),
		locals:    make(map[string]int),
	}
}

func (fc *funcCompiler) finish(name string) *Function {
	return &Function{
		Name:      name,
		Code:      fc.code,
		Strings:   fc.strings,
		NumLocals: fc.nextSlot,
		Locals:    fc.locals,
	}
}

func (fc *funcCompiler) errorf(pos ast.Pos, format string, args ...any) {
	fc.errs = append(fc.errs, &CompileError{File: fc.source, Line: pos.Line, Col: pos.Col, Msg: fmt.Sprintf(format, args...)})
}

// emit appends an instruction and returns its index, for later backpatching
// of jump targets.
func (fc *funcCompiler) emit(i opcode.Instruction) int {
	fc.code = append(fc.code, i)
	return len(fc.code) - 1
}

func (fc *funcCompiler) here() int { return len(fc.code) }

func (fc *funcCompiler) patch(idx int, target int) {
	fc.code[idx].A = target
}

func (fc *funcCompiler) internString(s string) int {
	if i, ok := fc.strIndex[s]; ok {
		return i
	}
	i := len(fc.strings)
	fc.strings = append(fc.strings, s)
	fc.strIndex[s] = i
	return i
}

func (fc *funcCompiler) slotFor(name string) int {
	if s, ok := fc.locals[name]; ok {
		return s
	}
	s := fc.nextSlot
	fc.nextSlot++
	fc.locals[name] = s
	return s
}

func (fc *funcCompiler) isLocal(name string) (int, bool) {
	s, ok := fc.locals[name]
	return s, ok
}

// --- statements ---

func (fc *funcCompiler) compileBlock(stmts []ast.Stmt) {
	for _, s := range stmts {
		fc.compileStmt(s)
	}
}

func (fc *funcCompiler) compileStmt(s ast.Stmt) {
	pos := s.Position()
	switch st := s.(type) {
	case *ast.ExprStmt:
		fc.compileExpr(st.X)
		fc.emit(opcode.Instruction{Op: opcode.OpPop, Line: pos.Line})
	case *ast.VarStmt:
		slot := fc.slotFor(st.Name)
		if st.Init != nil {
			fc.compileExpr(st.Init)
		} else {
			fc.emit(opcode.Instruction{Op: opcode.OpPushNull, Line: pos.Line})
		}
		fc.emit(opcode.Instruction{Op: opcode.OpStoreLocal, A: slot, Line: pos.Line})
	case *ast.IfStmt:
		fc.compileIf(st)
	case *ast.WhileStmt:
		fc.compileWhile(st)
	case *ast.ForStmt:
		fc.compileFor(st)
	case *ast.ForeachStmt:
		fc.compileForeach(st)
	case *ast.SwitchStmt:
		fc.compileSwitch(st)
	case *ast.BreakStmt:
		fc.compileBreak(st)
	case *ast.ContinueStmt:
		fc.compileContinue(st)
	case *ast.ReturnStmt:
		fc.compileReturn(st)
	case *ast.TerminateStmt:
		fc.emit(opcode.Instruction{Op: opcode.OpTerminate, Line: pos.Line})
	default:
		fc.errorf(pos, "unsupported statement %T", st)
	}
}

func (fc *funcCompiler) compileIf(st *ast.IfStmt) {
	pos := st.Position()
	fc.compileExpr(st.Cond)
	jf := fc.emit(opcode.Instruction{Op: opcode.OpJumpIfFalse, Line: pos.Line})
	fc.compileBlock(st.Then)
	if len(st.Else) > 0 {
		jEnd := fc.emit(opcode.Instruction{Op: opcode.OpJump, Line: pos.Line})
		fc.patch(jf, fc.here())
		fc.compileBlock(st.Else)
		fc.patch(jEnd, fc.here())
	} else {
		fc.patch(jf, fc.here())
	}
}

func (fc *funcCompiler) pushLoop(label string) *loopCtx {
	lc := &loopCtx{label: label}
	fc.loops = append(fc.loops, lc)
	return lc
}

func (fc *funcCompiler) popLoop(lc *loopCtx, continuePoint, breakPoint int) {
	for _, idx := range lc.continueTargets {
		fc.patch(idx, continuePoint)
	}
	for _, idx := range lc.breakTargets {
		fc.patch(idx, breakPoint)
	}
	fc.loops = fc.loops[:len(fc.loops)-1]
}

// compileWhile lowers a pre-test loop (spec §4.2 Loops).
func (fc *funcCompiler) compileWhile(st *ast.WhileStmt) {
	pos := st.Position()
	lc := fc.pushLoop(st.Label)
	condStart := fc.here()
	fc.compileExpr(st.Cond)
	jf := fc.emit(opcode.Instruction{Op: opcode.OpJumpIfFalse, Line: pos.Line})
	fc.compileBlock(st.Body)
	fc.emit(opcode.Instruction{Op: opcode.OpJump, A: condStart, Line: pos.Line})
	end := fc.here()
	fc.patch(jf, end)
	fc.popLoop(lc, condStart, end)
}

func (fc *funcCompiler) compileFor(st *ast.ForStmt) {
	pos := st.Position()
	if st.Init != nil {
		fc.compileStmt(st.Init)
	}
	lc := fc.pushLoop(st.Label)
	condStart := fc.here()
	var jf int
	hasCond := st.Cond != nil
	if hasCond {
		fc.compileExpr(st.Cond)
		jf = fc.emit(opcode.Instruction{Op: opcode.OpJumpIfFalse, Line: pos.Line})
	}
	fc.compileBlock(st.Body)
	stepStart := fc.here()
	if st.Step != nil {
		fc.compileStmt(st.Step)
	}
	fc.emit(opcode.Instruction{Op: opcode.OpJump, A: condStart, Line: pos.Line})
	end := fc.here()
	if hasCond {
		fc.patch(jf, end)
	}
	fc.popLoop(lc, stepStart, end)
}

// compileForeach lowers an ordered-sequence binding loop over an array or
// handler-exposed sequence via the `Seq` expression's runtime iteration
// protocol (spec §4.2 Loops: "foreach (ordered sequence binds index
// variable)"). Indexing is delegated to OP_INDEX_GET / inttotal at runtime
// via a counting local plus bounds check against the sequence length,
// grounded on the teacher's FE_RESET/FE_FETCH opcode pair but expressed
// over this module's uniform INDEX_GET rather than a dedicated iterator
// cell, since the handler framework (§4.8) exposes length via `inttotal`
// uniformly for strings/arrays/objects.
func (fc *funcCompiler) compileForeach(st *ast.ForeachStmt) {
	pos := st.Position()
	idxSlot := fc.slotFor("$foreach_idx$" + st.ValueVar)
	seqSlot := fc.slotFor("$foreach_seq$" + st.ValueVar)
	fc.compileExpr(st.Seq)
	fc.emit(opcode.Instruction{Op: opcode.OpStoreLocal, A: seqSlot, Line: pos.Line})
	fc.emit(opcode.Instruction{Op: opcode.OpPushInt, A: 0, Line: pos.Line})
	fc.emit(opcode.Instruction{Op: opcode.OpStoreLocal, A: idxSlot, Line: pos.Line})

	lc := fc.pushLoop(st.Label)
	condStart := fc.here()
	fc.emit(opcode.Instruction{Op: opcode.OpLoadLocal, A: idxSlot, Line: pos.Line})
	fc.emit(opcode.Instruction{Op: opcode.OpLoadLocal, A: seqSlot, Line: pos.Line})
	fc.emit(opcode.Instruction{Op: opcode.OpCallBuiltin, Str: "inttotal", A: 1, Line: pos.Line})
	fc.emit(opcode.Instruction{Op: opcode.OpGreaterEqual, Line: pos.Line})
	exitJump := fc.emit(opcode.Instruction{Op: opcode.OpJumpIfTrue, Line: pos.Line})

	if st.IndexVar != "" {
		ivSlot := fc.slotFor(st.IndexVar)
		fc.emit(opcode.Instruction{Op: opcode.OpLoadLocal, A: idxSlot, Line: pos.Line})
		fc.emit(opcode.Instruction{Op: opcode.OpStoreLocal, A: ivSlot, Line: pos.Line})
	}
	if st.ValueVar != "" {
		vSlot := fc.slotFor(st.ValueVar)
		fc.emit(opcode.Instruction{Op: opcode.OpLoadLocal, A: seqSlot, Line: pos.Line})
		fc.emit(opcode.Instruction{Op: opcode.OpLoadLocal, A: idxSlot, Line: pos.Line})
		fc.emit(opcode.Instruction{Op: opcode.OpIndexGet, Line: pos.Line})
		fc.emit(opcode.Instruction{Op: opcode.OpStoreLocal, A: vSlot, Line: pos.Line})
	}

	fc.compileBlock(st.Body)

	stepStart := fc.here()
	fc.emit(opcode.Instruction{Op: opcode.OpLoadLocal, A: idxSlot, Line: pos.Line})
	fc.emit(opcode.Instruction{Op: opcode.OpPushInt, A: 1, Line: pos.Line})
	fc.emit(opcode.Instruction{Op: opcode.OpAdd, Line: pos.Line})
	fc.emit(opcode.Instruction{Op: opcode.OpStoreLocal, A: idxSlot, Line: pos.Line})
	fc.emit(opcode.Instruction{Op: opcode.OpJump, A: condStart, Line: pos.Line})
	end := fc.here()
	fc.patch(exitJump, end)
	fc.popLoop(lc, stepStart, end)
}

func (fc *funcCompiler) compileSwitch(st *ast.SwitchStmt) {
	pos := st.Position()
	valSlot := fc.slotFor(fmt.Sprintf("$switch$%d", pos.Line))
	fc.compileExpr(st.X)
	fc.emit(opcode.Instruction{Op: opcode.OpStoreLocal, A: valSlot, Line: pos.Line})

	var caseBodyJumps []int
	var endJumps []int
	var defaultIdx = -1
	for ci, c := range st.Cases {
		if c.Default {
			defaultIdx = ci
			continue
		}
		for _, v := range c.Values {
			fc.emit(opcode.Instruction{Op: opcode.OpLoadLocal, A: valSlot, Line: pos.Line})
			fc.compileExpr(v)
			fc.emit(opcode.Instruction{Op: opcode.OpEqual, Line: pos.Line})
			jt := fc.emit(opcode.Instruction{Op: opcode.OpJumpIfTrue, Line: pos.Line})
			caseBodyJumps = append(caseBodyJumps, jt)
		}
	}
	// No match: fall to default (if any) else skip straight to end.
	var toDefault, toEnd int
	if defaultIdx >= 0 {
		toDefault = fc.emit(opcode.Instruction{Op: opcode.OpJump, Line: pos.Line})
	} else {
		toEnd = fc.emit(opcode.Instruction{Op: opcode.OpJump, Line: pos.Line})
	}

	lc := fc.pushLoop("") // switch participates in unlabelled break target resolution
	jIdx := 0
	for _, c := range st.Cases {
		if c.Default {
			if defaultIdx >= 0 {
				fc.patch(toDefault, fc.here())
			}
		} else {
			for range c.Values {
				fc.patch(caseBodyJumps[jIdx], fc.here())
				jIdx++
			}
		}
		fc.compileBlock(c.Body)
		endJumps = append(endJumps, fc.emit(opcode.Instruction{Op: opcode.OpJump, Line: pos.Line}))
	}
	end := fc.here()
	if defaultIdx < 0 {
		fc.patch(toEnd, end)
	}
	for _, j := range endJumps {
		fc.patch(j, end)
	}
	fc.popLoop(lc, end, end)
}

func (fc *funcCompiler) findLoop(label string) *loopCtx {
	for i := len(fc.loops) - 1; i >= 0; i-- {
		if label == "" || fc.loops[i].label == label {
			return fc.loops[i]
		}
	}
	return nil
}

func (fc *funcCompiler) compileBreak(st *ast.BreakStmt) {
	pos := st.Position()
	lc := fc.findLoop(st.Label)
	if lc == nil {
		fc.errorf(pos, "break outside loop")
		return
	}
	if st.Cond != nil {
		fc.compileExpr(st.Cond)
		idx := fc.emit(opcode.Instruction{Op: opcode.OpBreakCond, Line: pos.Line})
		lc.breakTargets = append(lc.breakTargets, idx)
	} else {
		idx := fc.emit(opcode.Instruction{Op: opcode.OpBreak, Line: pos.Line})
		lc.breakTargets = append(lc.breakTargets, idx)
	}
}

func (fc *funcCompiler) compileContinue(st *ast.ContinueStmt) {
	pos := st.Position()
	lc := fc.findLoop(st.Label)
	if lc == nil {
		fc.errorf(pos, "continue outside loop")
		return
	}
	if st.Cond != nil {
		fc.compileExpr(st.Cond)
		idx := fc.emit(opcode.Instruction{Op: opcode.OpContinueCond, Line: pos.Line})
		lc.continueTargets = append(lc.continueTargets, idx)
	} else {
		idx := fc.emit(opcode.Instruction{Op: opcode.OpContinue, Line: pos.Line})
		lc.continueTargets = append(lc.continueTargets, idx)
	}
}

// compileReturn lowers `ret value` and conditional `ret cond, value`
// (spec §4.3 "Conditional return semantics").
func (fc *funcCompiler) compileReturn(st *ast.ReturnStmt) {
	pos := st.Position()
	if st.Cond != nil {
		fc.compileExpr(st.Cond)
		fc.compileExpr(st.Value)
		fc.emit(opcode.Instruction{Op: opcode.OpReturnCond, Line: pos.Line})
		return
	}
	if st.Value != nil {
		fc.compileExpr(st.Value)
	} else {
		fc.emit(opcode.Instruction{Op: opcode.OpPushNull, Line: pos.Line})
	}
	fc.emit(opcode.Instruction{Op: opcode.OpReturn, Line: pos.Line})
}
