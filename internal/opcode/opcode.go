// Package opcode defines the stack-machine instruction set emitted by the
// compiler and executed by the VM (spec §4.2, §4.3).
package opcode

// Op is a bytecode instruction opcode, grouped in iota ranges by concern
// (mirrors the teacher's opcode-table shape: arithmetic, comparison,
// control flow, variable/field access, calls, arrays, each its own range).
type Op byte

const (
	OpNop Op = iota

	// Stack (0-19)
	OpPushConst
	OpPushInt
	OpPushDouble
	OpPushString
	OpPushNull
	OpPushThis
	OpPushArg
	OpPushArgCount
	OpPop
	OpDup

	// Arithmetic / logical / bitwise (20-39)
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
	OpNeg
	OpNot
	OpBitNot
	OpBitAnd
	OpBitOr
	OpBitXor
	OpShl
	OpShr
	OpConcat

	// Comparison (40-49)
	OpEqual
	OpNotEqual
	OpStrictEqual
	OpStrictNotEqual
	OpLess
	OpLessEqual
	OpGreater
	OpGreaterEqual

	// Locals/Fields (50-69)
	OpLoadLocal
	OpStoreLocal
	OpLoadField
	OpStoreField
	OpLoadClassMember
	OpStoreClassMember
	OpBuildDynamicIdent
	OpLoadIndexed
	OpStoreIndexed

	// Arrays (70-79)
	OpNewArray
	OpIndexGet
	OpIndexSet
	OpAppendArray

	// Control flow (80-99)
	OpJump
	OpJumpIfFalse
	OpJumpIfTrue
	OpCall
	OpCallVirtual
	OpCallMember
	OpCallBuiltin
	OpReturn
	OpReturnCond
	OpBreak
	OpBreakCond
	OpContinue
	OpContinueCond
	OpTerminate

	// Switch (100-103)
	OpSwitchTest
	OpSwitchDefault

	// Misc (104+)
	OpIncDecLocal
	OpTernary
	OpCoalesce
)

// Instruction is one decoded bytecode unit. Operand meanings depend on Op;
// see the compiler for emission sites.
type Instruction struct {
	Op      Op
	A, B    int    // generic integer operands (jump targets, slot indices, string-pool indices)
	Str     string // member/identifier name operand, when applicable
	Line    int    // source line, for the line map (spec §4.2)
}

func (op Op) String() string {
	if s, ok := names[op]; ok {
		return s
	}
	return "OP_UNKNOWN"
}

var names = map[Op]string{
	OpNop: "NOP", OpPushConst: "PUSH_CONST", OpPushInt: "PUSH_INT", OpPushDouble: "PUSH_DOUBLE",
	OpPushString: "PUSH_STRING", OpPushNull: "PUSH_NULL", OpPushThis: "PUSH_THIS",
	OpPushArg: "PUSH_ARG", OpPushArgCount: "PUSH_ARGCOUNT", OpPop: "POP", OpDup: "DUP",
	OpAdd: "ADD", OpSub: "SUB", OpMul: "MUL", OpDiv: "DIV", OpMod: "MOD", OpNeg: "NEG",
	OpNot: "NOT", OpBitNot: "BW_NOT", OpBitAnd: "BW_AND", OpBitOr: "BW_OR", OpBitXor: "BW_XOR",
	OpShl: "SHL", OpShr: "SHR", OpConcat: "CONCAT",
	OpEqual: "IS_EQUAL", OpNotEqual: "IS_NOT_EQUAL", OpStrictEqual: "IS_IDENTICAL",
	OpStrictNotEqual: "IS_NOT_IDENTICAL", OpLess: "IS_SMALLER", OpLessEqual: "IS_SMALLER_OR_EQUAL",
	OpGreater: "IS_GREATER", OpGreaterEqual: "IS_GREATER_OR_EQUAL",
	OpLoadLocal: "LOAD_LOCAL", OpStoreLocal: "STORE_LOCAL", OpLoadField: "LOAD_FIELD",
	OpStoreField: "STORE_FIELD", OpLoadClassMember: "LOAD_CLASS_MEMBER",
	OpStoreClassMember: "STORE_CLASS_MEMBER", OpBuildDynamicIdent: "BUILD_DYN_IDENT",
	OpLoadIndexed: "LOAD_INDEXED", OpStoreIndexed: "STORE_INDEXED",
	OpNewArray: "NEW_ARRAY", OpIndexGet: "INDEX_GET", OpIndexSet: "INDEX_SET",
	OpAppendArray: "APPEND_ARRAY",
	OpJump: "JMP", OpJumpIfFalse: "JMPZ", OpJumpIfTrue: "JMPNZ", OpCall: "CALL",
	OpCallVirtual: "CALL_VIRTUAL", OpCallMember: "CALL_MEMBER", OpCallBuiltin: "CALL_BUILTIN",
	OpReturn: "RETURN", OpReturnCond: "RETURN_COND", OpBreak: "BREAK", OpBreakCond: "BREAK_COND",
	OpContinue: "CONTINUE", OpContinueCond: "CONTINUE_COND", OpTerminate: "TERMINATE",
	OpSwitchTest: "SWITCH_TEST", OpSwitchDefault: "SWITCH_DEFAULT",
	OpIncDecLocal: "INC_DEC_LOCAL", OpTernary: "TERNARY", OpCoalesce: "COALESCE",
}
