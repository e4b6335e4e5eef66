package handler

import (
	"strings"
	"sync"

	"github.com/magoolation/intmud/internal/object"
	"github.com/magoolation/intmud/internal/value"
)

// TextoTxt is an in-memory multi-line text document addressed by line
// number (spec §4.8 "multi-line text buffer"): the backing store for large
// bodies of prose (help text, room descriptions) that need line-granular
// editing without round-tripping through the filesystem.
type TextoTxt struct {
	base
	mu    sync.Mutex
	lines []string
}

func newTextoTxt(owner *object.Object, field string) *TextoTxt { return &TextoTxt{base: base{owner, field}} }

func (o *TextoTxt) ValueDisplay() string { return "#textotxt" }
func (o *TextoTxt) ValueEqual(other value.Handle) bool {
	p, ok := other.(*TextoTxt)
	return ok && p == o
}

func (o *TextoTxt) Call(member string, args []value.Value, countdown bool) (value.Value, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	switch strings.ToLower(member) {
	case "total", "totallinhas":
		return value.Int(int64(len(o.lines))), true
	case "linha", "line":
		if len(args) == 0 {
			return value.Null(), false
		}
		i := int(args[0].ToInt())
		if len(args) == 2 {
			for len(o.lines) <= i {
				o.lines = append(o.lines, "")
			}
			if i >= 0 {
				o.lines[i] = args[1].ToString()
			}
			return value.Str(o.lines[i]), true
		}
		if i < 0 || i >= len(o.lines) {
			return value.Str(""), true
		}
		return value.Str(o.lines[i]), true
	case "inserir", "insert":
		if len(args) != 2 {
			return value.Null(), false
		}
		i := int(args[0].ToInt())
		if i < 0 || i > len(o.lines) {
			i = len(o.lines)
		}
		o.lines = append(o.lines, "")
		copy(o.lines[i+1:], o.lines[i:])
		o.lines[i] = args[1].ToString()
		return value.Null(), true
	case "remover", "remove":
		if len(args) != 1 {
			return value.Null(), false
		}
		i := int(args[0].ToInt())
		if i < 0 || i >= len(o.lines) {
			return value.Null(), true
		}
		o.lines = append(o.lines[:i], o.lines[i+1:]...)
		return value.Null(), true
	case "limpar", "clear":
		o.lines = nil
		return value.Null(), true
	case "texto", "text":
		if len(args) == 1 {
			o.lines = strings.Split(args[0].ToString(), "\n")
			return value.Null(), true
		}
		return value.Str(strings.Join(o.lines, "\n")), true
	default:
		return value.Null(), false
	}
}

// snapshot returns a copy of the current line slice for TextoPos, taken
// under the lock; TextoPos only ever reads, never mutates, its target.
func (o *TextoTxt) snapshot() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]string, len(o.lines))
	copy(out, o.lines)
	return out
}

// TextoPos is a cursor over a TextoTxt's lines (spec §4.8 "cursor").
type TextoPos struct {
	base
	mu     sync.Mutex
	target *TextoTxt
	pos    int
}

func newTextoPos(owner *object.Object, field string) *TextoPos {
	return &TextoPos{base: base{owner, field}, pos: -1}
}

func (o *TextoPos) ValueDisplay() string { return "#textopos" }
func (o *TextoPos) ValueEqual(other value.Handle) bool {
	p, ok := other.(*TextoPos)
	return ok && p == o
}

func (o *TextoPos) Call(member string, args []value.Value, countdown bool) (value.Value, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	switch strings.ToLower(member) {
	case "alvo", "target":
		if len(args) == 1 {
			if h, ok := args[0].ObjHandle().(*TextoTxt); ok {
				o.target = h
				o.pos = -1
			}
			return value.Null(), true
		}
		return value.Null(), true
	case "primeiro", "first":
		o.pos = 0
		return o.current(), true
	case "proximo", "next":
		o.pos++
		return o.current(), true
	case "atual", "current":
		return o.current(), true
	default:
		return value.Null(), false
	}
}

func (o *TextoPos) current() value.Value {
	if o.target == nil {
		return value.Str("")
	}
	lines := o.target.snapshot()
	if o.pos < 0 || o.pos >= len(lines) {
		return value.Str("")
	}
	return value.Str(lines[o.pos])
}

// textoVarEntry pairs a stored value with the type-char spec §4.8 assigns
// it ({' '}=string, '@'=number, '_'=object/other) so `tipo`/`type` can report
// it back without re-deriving it from the value's dynamic kind.
type textoVarEntry struct {
	val  value.Value
	kind byte
}

// TextoVar is a named value map (spec §4.8 "variable map"): total, get/set
// by name, first/last/next/previous iteration order (insertion order), and
// a type-char tag per entry, the in-script analogue of the original's
// per-room/per-player variable bag.
type TextoVar struct {
	base
	mu      sync.Mutex
	order   []string
	entries map[string]textoVarEntry
	pos     int
}

func newTextoVar(owner *object.Object, field string) *TextoVar {
	return &TextoVar{base: base{owner, field}, entries: make(map[string]textoVarEntry), pos: -1}
}

func (o *TextoVar) ValueDisplay() string { return "#textovar" }
func (o *TextoVar) ValueEqual(other value.Handle) bool {
	p, ok := other.(*TextoVar)
	return ok && p == o
}

func typeChar(v value.Value) byte {
	switch {
	case v.IsString():
		return ' '
	case v.IsNumeric():
		return '@'
	default:
		return '_'
	}
}

func (o *TextoVar) Call(member string, args []value.Value, countdown bool) (value.Value, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	switch strings.ToLower(member) {
	case "total", "count":
		return value.Int(int64(len(o.order))), true
	case "obter", "get":
		if len(args) != 1 {
			return value.Null(), false
		}
		name := args[0].ToString()
		if e, ok := o.entries[name]; ok {
			return e.val, true
		}
		return value.Null(), true
	case "definir", "set":
		if len(args) != 2 {
			return value.Null(), false
		}
		name := args[0].ToString()
		if _, existed := o.entries[name]; !existed {
			o.order = append(o.order, name)
		}
		o.entries[name] = textoVarEntry{val: args[1], kind: typeChar(args[1])}
		return args[1], true
	case "tipo", "type":
		if len(args) != 1 {
			return value.Str(""), false
		}
		if e, ok := o.entries[args[0].ToString()]; ok {
			return value.Str(string(e.kind)), true
		}
		return value.Str(""), true
	case "remover", "remove":
		if len(args) != 1 {
			return value.Bool(false), false
		}
		name := args[0].ToString()
		if _, ok := o.entries[name]; !ok {
			return value.Bool(false), true
		}
		delete(o.entries, name)
		for i, n := range o.order {
			if n == name {
				o.order = append(o.order[:i], o.order[i+1:]...)
				break
			}
		}
		o.pos = -1
		return value.Bool(true), true
	case "primeiro", "first":
		o.pos = 0
		return o.currentName(), true
	case "ultimo", "last":
		o.pos = len(o.order) - 1
		return o.currentName(), true
	case "proximo", "next":
		o.pos++
		return o.currentName(), true
	case "anterior", "previous":
		o.pos--
		return o.currentName(), true
	case "atual", "current":
		return o.currentName(), true
	case "limpar", "clear":
		o.order = nil
		o.entries = make(map[string]textoVarEntry)
		o.pos = -1
		return value.Null(), true
	default:
		return value.Null(), false
	}
}

func (o *TextoVar) currentName() value.Value {
	if o.pos < 0 || o.pos >= len(o.order) {
		return value.Null()
	}
	return value.Str(o.order[o.pos])
}

// TextoObj is a named object-reference map (spec §4.8 "named object map"):
// total, get/set by name, first/last/next iteration in insertion order, and
// delete/clear — the slot table the original uses to bind well-known object
// references (e.g. a room's configured exits) under a short name.
type TextoObj struct {
	base
	mu    sync.Mutex
	order []string
	refs  map[string]object.Ref
	pos   int
}

func newTextoObj(owner *object.Object, field string) *TextoObj {
	return &TextoObj{base: base{owner, field}, refs: make(map[string]object.Ref), pos: -1}
}

func (o *TextoObj) ValueDisplay() string { return "#textoobj" }
func (o *TextoObj) ValueEqual(other value.Handle) bool {
	p, ok := other.(*TextoObj)
	return ok && p == o
}

func (o *TextoObj) Call(member string, args []value.Value, countdown bool) (value.Value, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	switch strings.ToLower(member) {
	case "total", "count":
		return value.Int(int64(len(o.order))), true
	case "obter", "get":
		if len(args) != 1 {
			return value.Null(), false
		}
		if ref, ok := o.refs[args[0].ToString()]; ok {
			return value.Obj(ref), true
		}
		return value.Null(), true
	case "definir", "set":
		if len(args) != 2 {
			return value.Null(), false
		}
		name := args[0].ToString()
		ref, ok := refOf(args[1])
		if !ok {
			return value.Null(), false
		}
		if _, existed := o.refs[name]; !existed {
			o.order = append(o.order, name)
		}
		o.refs[name] = ref
		return value.Obj(ref), true
	case "remover", "remove", "apagar", "delete":
		if len(args) != 1 {
			return value.Bool(false), false
		}
		name := args[0].ToString()
		if _, ok := o.refs[name]; !ok {
			return value.Bool(false), true
		}
		delete(o.refs, name)
		for i, n := range o.order {
			if n == name {
				o.order = append(o.order[:i], o.order[i+1:]...)
				break
			}
		}
		o.pos = -1
		return value.Bool(true), true
	case "primeiro", "first":
		o.pos = 0
		return o.currentName(), true
	case "ultimo", "last":
		o.pos = len(o.order) - 1
		return o.currentName(), true
	case "proximo", "next":
		o.pos++
		return o.currentName(), true
	case "atual", "current":
		return o.currentName(), true
	case "limpar", "clear":
		o.order = nil
		o.refs = make(map[string]object.Ref)
		o.pos = -1
		return value.Null(), true
	default:
		return value.Null(), false
	}
}

func (o *TextoObj) currentName() value.Value {
	if o.pos < 0 || o.pos >= len(o.order) {
		return value.Null()
	}
	return value.Str(o.order[o.pos])
}
