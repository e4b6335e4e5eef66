package vm

import (
	"strings"

	"github.com/magoolation/intmud/internal/compiler"
	"github.com/magoolation/intmud/internal/object"
	"github.com/magoolation/intmud/internal/value"
)

// NewHandlerInstance constructs a handler-typed field's backing instance
// (spec §4.4 "initialise declared fields (including handler-typed fields by
// constructing handler instances and back-linking owner and variable-name)").
// Wired at startup by internal/handler to avoid an import cycle (handlers
// need the VM for builtin-style callbacks).
var NewHandlerInstance = func(owner *object.Object, fieldName, typeName string) (value.Handle, bool) {
	return nil, false
}

// DisposeHandlerInstance releases any OS resource a handler holds (spec §5
// "Scoped acquisition... released when... the owning object is deleted").
var DisposeHandlerInstance = func(h value.Handle) {}

// CreateObject implements `criar(class-name)` (spec §4.4 object creation
// lifecycle): allocates the instance, ensures common-variable storage is
// initialised exactly once per class, fills every declared field with its
// default/initializer/handler value, and invokes `inicializar` if the class
// defines it.
func (m *VM) CreateObject(className string) (*object.Object, bool) {
	cls, ok := m.Registry.Lookup(className)
	if !ok {
		m.RecordError(ErrLookupMiss, "unknown class "+className)
		return nil, false
	}
	obj := cls.NewObject()
	m.initFields(obj)
	if owner, ok := cls.ResolveFunction("inicializar"); ok {
		fn := owner.Unit.Functions["inicializar"]
		m.call(fn, obj, owner, nil)
	}
	return obj, true
}

// initFields walks the linearised hierarchy most-derived-first so an
// override of a base's variable (by re-declaration) takes the derived
// class's initializer, and runs each ancestor's common-storage
// initialisation exactly once (spec §9 Open Questions).
func (m *VM) initFields(obj *object.Object) {
	for _, anc := range obj.Class.Linear {
		anc.Unit.EnsureCommonStorage(m.evalThunk)
	}
	for _, anc := range obj.Class.Linear {
		for _, v := range anc.Unit.Variables {
			if v.Common {
				continue
			}
			if _, exists := obj.Fields[v.Name]; exists {
				continue
			}
			obj.Fields[v.Name] = m.defaultFieldValue(obj, v)
		}
	}
}

// evalThunk runs a zero-arg initializer thunk (variable initializer or
// common-storage initializer) through m.call with no receiver or class; a
// thunk reached mid-execution shares the current frame stack.
func (m *VM) evalThunk(fn *compiler.Function) value.Value {
	return m.call(fn, nil, nil, nil)
}

// defaultFieldValue computes a declared variable's initial value: its
// initializer thunk if present, a fresh handler instance if its type names
// a handler kind, a fresh empty array if array-sized, else Null.
func (m *VM) defaultFieldValue(obj *object.Object, v *compiler.Variable) value.Value {
	if h, ok := NewHandlerInstance(obj, v.Name, strings.ToLower(v.Type)); ok {
		return value.Obj(h)
	}
	if v.Init != nil {
		return m.call(v.Init, obj, obj.Class, nil)
	}
	if v.ArraySize > 0 {
		return value.NewArray()
	}
	return value.Null()
}

// DeleteObject marks obj for deletion and releases any handler resources it
// owns (spec §4.4 deletion lifecycle, §5 scoped acquisition).
func (m *VM) DeleteObject(obj *object.Object) {
	if obj == nil {
		return
	}
	for _, v := range obj.Fields {
		if h := v.ObjHandle(); h != nil {
			if _, isObjectRef := h.(object.Ref); !isObjectRef {
				DisposeHandlerInstance(h)
			}
		}
	}
	obj.Class.Delete(obj)
}
