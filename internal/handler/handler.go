// Package handler implements the handler-type framework (spec §4.8): a
// tagged family of non-primitive variable kinds (files, directories, memory
// buffers, timers, text documents, object lists, indexed references, the
// console, sockets, and program introspection) whose operations are reached
// through dotted member syntax rather than ordinary field/method access.
// Every kind shares the member-dispatch contract from internal/vm: no
// handler operation ever panics or returns an error across the VM boundary
// (spec §4.8 "Failure policy") — it returns a typed result or a 0/empty/-1
// sentinel.
package handler

import (
	"sync"

	"github.com/magoolation/intmud/internal/object"
	"github.com/magoolation/intmud/internal/value"
	"github.com/magoolation/intmud/internal/vm"
)

// Instance is implemented by every concrete handler kind. Call dispatches
// one `receiver.member(args)` access; countdown mirrors the leading `@`
// marker on member access (spec §4.7); no kind in this package reads it,
// so it is ignored everywhere.
type Instance interface {
	value.Handle
	Call(member string, args []value.Value, countdown bool) (value.Value, bool)
}

// Closer is implemented by handler kinds that hold an OS resource (file
// descriptor, socket, process) that must be released on `close` or object
// deletion (spec §5 "Scoped acquisition").
type Closer interface {
	Close()
}

func init() {
	vm.CallHandlerMember = dispatch
	vm.NewHandlerInstance = construct
	vm.DisposeHandlerInstance = dispose
	vm.IndexLookup = indexLookup
	vm.IndexStore = indexStore
	CreateNamedObject = func(className string) (*object.Object, bool) {
		if vm.Active == nil {
			return nil, false
		}
		return vm.Active.CreateObject(className)
	}
}

func dispatch(h value.Handle, member string, args []value.Value, countdown bool) (value.Value, bool) {
	inst, ok := h.(Instance)
	if !ok {
		return value.Null(), false
	}
	return inst.Call(member, args, countdown)
}

func dispose(h value.Handle) {
	if c, ok := h.(Closer); ok {
		c.Close()
	}
}

// construct builds the handler instance for a declared field of the named
// type (spec §4.4 "constructing handler instances and back-linking owner
// and variable-name"). typeName is already lower-cased by the caller.
func construct(owner *object.Object, field, typeName string) (value.Handle, bool) {
	switch typeName {
	case "arqtxt":
		return newArqTxt(owner, field), true
	case "arqmem":
		return newArqMem(owner, field), true
	case "arqdir":
		return newArqDir(owner, field), true
	case "arqlog":
		return newArqLog(owner, field), true
	case "arqsav":
		return newArqSav(owner, field), true
	case "arqprog":
		return newArqProg(owner, field), true
	case "arqexec":
		return newArqExec(owner, field), true
	case "textotxt":
		return newTextoTxt(owner, field), true
	case "textopos":
		return newTextoPos(owner, field), true
	case "textovar":
		return newTextoVar(owner, field), true
	case "textoobj":
		return newTextoObj(owner, field), true
	case "listaobj":
		return newListaObj(owner, field), true
	case "listaitem":
		return newListaItem(owner, field), true
	case "indiceobj":
		return newIndiceObj(owner, field), true
	case "indiceitem":
		return newIndiceItem(owner, field), true
	case "nomeobj":
		return newNomeObj(owner, field), true
	case "inttempo":
		return newIntTempo(owner, field), true
	case "intexec":
		return newIntExec(owner, field), true
	case "intinc":
		return newIntInc(owner, field), true
	case "datahora":
		return newDataHora(owner, field), true
	case "debug":
		return newDebug(owner, field), true
	case "telatxt":
		return newTelaTxt(owner, field), true
	case "socket":
		return newSocket(owner, field), true
	case "serv":
		return newServ(owner, field), true
	case "prog":
		return newProg(owner, field), true
	default:
		return nil, false
	}
}

// base is embedded by every handler kind: the owning object and the field
// name it was declared under, used to build convention-named event
// function names (`{field}_{event}`, spec §4.5).
type base struct {
	owner *object.Object
	field string
}

func (b *base) eventFn(event string) string { return b.field + "_" + event }

// identity is not embedded by any handler kind: each kind defines its own
// ValueDisplay/ValueEqual.
type identity struct{ self value.Handle }

// PendingEvent is one item in the Pending Event Queue (spec §4.5, §9):
// deposited by background I/O workers, drained and dispatched by the Event
// Loop on the single script thread.
type PendingEvent struct {
	Owner    object.Ref
	FuncName string
	Args     []value.Value
}

var (
	pendingMu    sync.Mutex
	pendingQueue []PendingEvent
)

// Enqueue is the single multi-producer entry point background workers use
// to deposit an event (spec §9 "the only concurrent boundary"). Safe to
// call from any goroutine.
func Enqueue(ev PendingEvent) {
	pendingMu.Lock()
	pendingQueue = append(pendingQueue, ev)
	pendingMu.Unlock()
}

// DrainPending removes and returns every event queued so far, in arrival
// order (spec §4.5 step 3). Called once per tick by the Event Loop, which
// is the queue's single consumer.
func DrainPending() []PendingEvent {
	pendingMu.Lock()
	defer pendingMu.Unlock()
	if len(pendingQueue) == 0 {
		return nil
	}
	out := pendingQueue
	pendingQueue = nil
	return out
}
