// Package compiler lowers AST into CompiledUnit bytecode (spec §4.2).
package compiler

import (
	"github.com/magoolation/intmud/internal/opcode"
	"github.com/magoolation/intmud/internal/value"
)

// Variable is a declared class variable (spec §3 CompiledVariable).
type Variable struct {
	Name      string
	Type      string
	ArraySize int
	Common    bool
	Saved     bool
	Init      *Function // zero-arg initializer thunk, nil if none
}

// ConstKind tags which payload a Constant carries.
type ConstKind byte

const (
	ConstInt ConstKind = iota
	ConstDouble
	ConstString
	ConstExpr
)

// Constant is a CompiledConstant (spec §3): literal or a re-evaluable
// expression thunk closing over the defining class (spec §9 "do not cache
// their results").
type Constant struct {
	Name   string
	Kind   ConstKind
	I      int64
	D      float64
	S      string
	Thunk  *Function // evaluated fresh at every access under the current `this`/args
}

// Function is a CompiledFunction: bytecode plus its embedded string pool and
// per-instruction line info (carried on each Instruction).
type Function struct {
	Name      string
	Code      []opcode.Instruction
	Strings   []string
	NumLocals int
	Locals    map[string]int // name -> slot, for introspection (Prog handler)
}

// Unit is a CompiledUnit: one class's immutable compiled program (spec §3).
type Unit struct {
	ClassName string
	Bases     []string
	Variables []*Variable // insertion order significant (introspection)

	constantOrder []string
	Constants     map[string]*Constant

	functionOrder []string
	Functions     map[string]*Function

	Source string

	// commonStorage holds per-class shared ("common") variable values,
	// keyed by variable name. Initialised once per class on first object
	// creation (spec §9 Open Questions: "once per class").
	commonStorage     map[string]value.Value
	commonInitialised bool
}

func NewUnit(className, source string) *Unit {
	return &Unit{
		ClassName: className,
		Constants: make(map[string]*Constant),
		Functions: make(map[string]*Function),
		Source:    source,
	}
}

func (u *Unit) AddConstant(c *Constant) {
	if _, exists := u.Constants[c.Name]; !exists {
		u.constantOrder = append(u.constantOrder, c.Name)
	}
	u.Constants[c.Name] = c
}

func (u *Unit) AddFunction(f *Function) {
	if _, exists := u.Functions[f.Name]; !exists {
		u.functionOrder = append(u.functionOrder, f.Name)
	}
	u.Functions[f.Name] = f
}

// ConstantOrder returns constant names in declaration order.
func (u *Unit) ConstantOrder() []string { return u.constantOrder }

// FunctionOrder returns function names in declaration order.
func (u *Unit) FunctionOrder() []string { return u.functionOrder }

func (u *Unit) VariableByName(name string) *Variable {
	for _, v := range u.Variables {
		if v.Name == name {
			return v
		}
	}
	return nil
}

// EnsureCommonStorage lazily allocates the per-class common-variable map and
// runs common-variable initializers exactly once (spec §9).
func (u *Unit) EnsureCommonStorage(eval func(*Function) value.Value) {
	if u.commonInitialised {
		return
	}
	u.commonInitialised = true
	u.commonStorage = make(map[string]value.Value)
	for _, v := range u.Variables {
		if !v.Common {
			continue
		}
		if v.Init != nil {
			u.commonStorage[v.Name] = eval(v.Init)
		} else {
			u.commonStorage[v.Name] = value.Null()
		}
	}
}

func (u *Unit) CommonGet(name string) (value.Value, bool) {
	if u.commonStorage == nil {
		return value.Null(), false
	}
	v, ok := u.commonStorage[name]
	return v, ok
}

func (u *Unit) CommonSet(name string, v value.Value) {
	if u.commonStorage == nil {
		u.commonStorage = make(map[string]value.Value)
	}
	u.commonStorage[name] = v
}
