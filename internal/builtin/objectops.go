package builtin

import (
	"github.com/magoolation/intmud/internal/object"
	"github.com/magoolation/intmud/internal/value"
	"github.com/magoolation/intmud/internal/vm"
)

// registerObjectFuncs wires object creation/deletion/navigation and
// inttotal (spec §4.4, §4.6 "Object operations").
func registerObjectFuncs(t map[string]fn) {
	t["criar"] = func(m *vm.VM, args []value.Value) value.Value {
		obj, ok := m.CreateObject(arg(args, 0).ToString())
		if !ok {
			return value.Null()
		}
		return value.Obj(obj.Ref())
	}
	t["apagar"] = func(m *vm.VM, args []value.Value) value.Value {
		obj := refArgOrCurrent(m, args, 0)
		m.DeleteObject(obj)
		return value.Null()
	}
	t["este"] = func(m *vm.VM, args []value.Value) value.Value {
		obj := m.CurrentReceiver()
		if obj == nil {
			return value.Null()
		}
		return value.Obj(obj.Ref())
	}
	t["ref"] = func(m *vm.VM, args []value.Value) value.Value {
		for _, a := range args {
			if !a.IsNull() {
				return a
			}
		}
		return value.Null()
	}
	t["objantes"] = func(m *vm.VM, args []value.Value) value.Value {
		obj := refArg(args, 0)
		if obj == nil {
			return value.Null()
		}
		if p := obj.Previous(); p != nil {
			return value.Obj(p.Ref())
		}
		return value.Null()
	}
	t["objdepois"] = func(m *vm.VM, args []value.Value) value.Value {
		obj := refArg(args, 0)
		if obj == nil {
			return value.Null()
		}
		if n := obj.Next(); n != nil {
			return value.Obj(n.Ref())
		}
		return value.Null()
	}
	t["inttotal"] = func(m *vm.VM, args []value.Value) value.Value {
		v := arg(args, 0)
		switch {
		case v.IsArray():
			return value.Int(int64(v.Array().Len()))
		case v.IsObject():
			if obj := refArg(args, 0); obj != nil {
				return value.Int(int64(obj.Class.Count()))
			}
			return value.Int(0)
		default:
			return value.Int(int64(len([]rune(v.ToString()))))
		}
	}

	// Internal cursor helpers over a named class's live-object chain
	// (spec §4.4 "iteration cursor with reset"; spec §4.6 names these only
	// as "internal cursor helpers" without fixing exact identifiers, so the
	// names below follow the same Portuguese-verb convention as the rest of
	// the table).
	t["cursorinicio"] = func(m *vm.VM, args []value.Value) value.Value {
		cls, ok := m.Registry.Lookup(arg(args, 0).ToString())
		if !ok {
			return value.Null()
		}
		cur := classCursor(cls)
		cur.Reset()
		if o := cur.Step(); o != nil {
			return value.Obj(o.Ref())
		}
		return value.Null()
	}
	t["cursorproximo"] = func(m *vm.VM, args []value.Value) value.Value {
		cls, ok := m.Registry.Lookup(arg(args, 0).ToString())
		if !ok {
			return value.Null()
		}
		cur := classCursor(cls)
		if o := cur.Step(); o != nil {
			return value.Obj(o.Ref())
		}
		return value.Null()
	}
	t["cursoratual"] = func(m *vm.VM, args []value.Value) value.Value {
		cls, ok := m.Registry.Lookup(arg(args, 0).ToString())
		if !ok {
			return value.Null()
		}
		if o := classCursor(cls).Current(); o != nil {
			return value.Obj(o.Ref())
		}
		return value.Null()
	}
}

// refArg extracts a live *object.Object from a value holding an
// object.Ref, or nil.
func refArg(args []value.Value, i int) *object.Object {
	h := arg(args, i).ObjHandle()
	if h == nil {
		return nil
	}
	ref, ok := h.(object.Ref)
	if !ok {
		return nil
	}
	return ref.Object()
}

func refArgOrCurrent(m *vm.VM, args []value.Value, i int) *object.Object {
	if o := refArg(args, i); o != nil {
		return o
	}
	return m.CurrentReceiver()
}

// cursorRegistry keeps one cursor per class for the internal cursor
// helpers above, separate from any cursor a script creates itself via
// handler-kind iteration.
var cursorRegistry = struct {
	m map[*object.Class]*object.Cursor
}{m: make(map[*object.Class]*object.Cursor)}

func classCursor(c *object.Class) *object.Cursor {
	if cur, ok := cursorRegistry.m[c]; ok {
		return cur
	}
	cur := c.NewCursor()
	cursorRegistry.m[c] = cur
	return cur
}
