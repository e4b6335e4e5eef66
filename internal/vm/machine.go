// Package vm implements the stack-based bytecode interpreter: frame
// stack, operand stack, instruction-budget throttling with cooperative
// yield/resume, and call resolution (static, virtual, member, builtin).
package vm

import (
	"fmt"

	"github.com/magoolation/intmud/internal/compiler"
	"github.com/magoolation/intmud/internal/object"
	"github.com/magoolation/intmud/internal/value"
)

// CallBuiltin dispatches a builtin-function call by name. Wired at
// startup by internal/builtin (via its init) to avoid an import cycle —
// builtins need the VM (to invoke `exec`, create objects, etc.) so the
// dependency must run builtin -> vm, not vm -> builtin.
var CallBuiltin = func(m *VM, name string, args []value.Value) value.Value {
	m.RecordError(ErrLookupMiss, fmt.Sprintf("unknown builtin %q", name))
	return value.Null()
}

// CallHandlerMember dispatches receiver.member(args) when receiver is a
// handler instance (spec §4.8). Wired by internal/handler at startup for
// the same reason as CallBuiltin.
var CallHandlerMember = func(h value.Handle, member string, args []value.Value, countdown bool) (value.Value, bool) {
	return value.Null(), false
}

// ErrorKind tags the taxonomy in spec §7.
type ErrorKind int

const (
	ErrParse ErrorKind = iota
	ErrCompile
	ErrBudgetExhausted
	ErrLookupMiss
	ErrArithmeticAnomaly
	ErrHandlerFailure
	ErrIOFailure
	ErrFatal
)

// ErrorEvent is one recorded non-fatal runtime error (spec §7): lookup
// misses, handler failures, etc. never abort execution, they are counted
// and surfaced via `_progerro`.
type ErrorEvent struct {
	Kind    ErrorKind
	Message string
}

// Frame is one function activation: its bytecode, instruction pointer,
// locals, positional arguments, receiver object (nil for the first/main
// frame), defining class context (for static/class-member resolution),
// and its own operand stack.
type Frame struct {
	Fn       *compiler.Function
	IP       int
	Locals   []value.Value
	Args     []value.Value
	Receiver *object.Object
	Class    *object.Class
	Stack    []value.Value
}

func newFrame(fn *compiler.Function, receiver *object.Object, class *object.Class, args []value.Value) *Frame {
	return &Frame{
		Fn:       fn,
		Locals:   make([]value.Value, fn.NumLocals),
		Args:     args,
		Receiver: receiver,
		Class:    class,
	}
}

func (f *Frame) push(v value.Value) { f.Stack = append(f.Stack, v) }

func (f *Frame) pop() value.Value {
	if len(f.Stack) == 0 {
		return value.Null()
	}
	v := f.Stack[len(f.Stack)-1]
	f.Stack = f.Stack[:len(f.Stack)-1]
	return v
}

func (f *Frame) peek() value.Value {
	if len(f.Stack) == 0 {
		return value.Null()
	}
	return f.Stack[len(f.Stack)-1]
}

// VM holds the call stack and the shared state a running script needs:
// the class registry, the instruction budget, and the error-taxonomy
// counters consulted by `_progexec`/`_progerro` and the Debug handler.
type VM struct {
	Registry *object.Registry

	Budget        int // instructions left before yielding to the Event Loop
	InstrExecuted int64
	LastError     ErrorEvent
	errorCounts   map[ErrorKind]int
	Terminated    bool // set by the `terminate` opcode (spec §7 kind 8)

	frames []*Frame
	Global *object.Object // the designated "main" object, for aotick/aocomando

	output []string // lines/fragments queued by `escreva`/`escrevaln` (spec §8 scenario 1)
}

// Write appends text to the process output buffer (spec §8 scenario 1: "one
// line is appended to the output buffer"). internal/builtin's `escreva`/
// `escrevaln` are the only callers. Nothing in this module forwards the
// buffer to a session (internal/session.Session.QueueOutput is separate);
// the buffer makes script output observable without a transport.
func (m *VM) Write(s string) { m.output = append(m.output, s) }

// DrainOutput removes and returns every fragment queued since the last
// drain, in write order.
func (m *VM) DrainOutput() []string {
	if len(m.output) == 0 {
		return nil
	}
	out := m.output
	m.output = nil
	return out
}

// Active holds the process's single running VM, set by New. The process
// model (spec §4.5, §9) runs exactly one VM driving one event loop per
// process, so handler kinds that need to create objects outside normal
// bytecode dispatch (ArqSav.load restoring a saved object graph) reach it
// through this var instead of threading a *VM through every handler.
var Active *VM

func New(reg *object.Registry) *VM {
	m := &VM{Registry: reg, errorCounts: make(map[ErrorKind]int)}
	Active = m
	return m
}

func (m *VM) RecordError(kind ErrorKind, msg string) {
	m.LastError = ErrorEvent{Kind: kind, Message: msg}
	m.errorCounts[kind]++
}

func (m *VM) ErrorCount(kind ErrorKind) int { return m.errorCounts[kind] }

func (m *VM) currentFrame() *Frame {
	if len(m.frames) == 0 {
		return nil
	}
	return m.frames[len(m.frames)-1]
}

func (m *VM) pushFrame(f *Frame) { m.frames = append(m.frames, f) }

func (m *VM) popFrame() *Frame {
	if len(m.frames) == 0 {
		return nil
	}
	f := m.frames[len(m.frames)-1]
	m.frames = m.frames[:len(m.frames)-1]
	return f
}

// Suspended reports whether Run stopped because the instruction budget
// was exhausted mid-function, rather than because the call finished.
type Suspended bool

// Invoke pushes a new frame for fn (receiver/class give it object/static
// context) with the given positional args and runs it to completion or
// until the budget runs out. The return value is Null if the call
// suspended; Resume continues the same frame stack afterward.
func (m *VM) Invoke(fn *compiler.Function, receiver *object.Object, class *object.Class, args []value.Value) (value.Value, Suspended) {
	m.pushFrame(newFrame(fn, receiver, class, args))
	return m.Resume()
}

// Resume drives the fetch-decode-execute loop over the current frame
// stack until it empties (returning the top-level return value) or the
// instruction budget reaches zero (returning Suspended(true) with the
// frame stack left intact for a later Resume call), mirroring the
// teacher's run loop shape (fetch frame -> fetch instruction -> dispatch
// -> advance IP unless the instruction redirected it).
func (m *VM) Resume() (value.Value, Suspended) {
	var result value.Value
	for {
		frame := m.currentFrame()
		if frame == nil {
			return result, false
		}
		if m.Budget <= 0 {
			return value.Null(), true
		}
		if frame.IP < 0 || frame.IP >= len(frame.Fn.Code) {
			result = m.doReturn(frame, value.Null())
			continue
		}

		inst := frame.Fn.Code[frame.IP]
		m.Budget--
		m.InstrExecuted++

		advance, ret, returned := m.step(frame, inst)
		if returned {
			result = ret
			continue
		}
		if advance {
			frame.IP++
		}
	}
}

// doReturn pops the current frame, pushing its return value onto the
// caller's operand stack (if any caller remains), and reports it.
func (m *VM) doReturn(frame *Frame, v value.Value) value.Value {
	m.popFrame()
	if caller := m.currentFrame(); caller != nil {
		caller.push(v)
	}
	return v
}
