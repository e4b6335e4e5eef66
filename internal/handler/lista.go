package handler

import (
	"math/rand"
	"strings"
	"sync"

	"github.com/magoolation/intmud/internal/object"
	"github.com/magoolation/intmud/internal/value"
)

// ListaObj is an ordered, owner-managed list of object references (spec
// §4.8 "ordered object list") — distinct from the class registry's own
// creation-order chain in that membership and order are entirely up to the
// script (adding/removing/reordering are explicit calls).
type ListaObj struct {
	base
	mu    sync.Mutex
	items []object.Ref
}

func newListaObj(owner *object.Object, field string) *ListaObj { return &ListaObj{base: base{owner, field}} }

func (o *ListaObj) ValueDisplay() string { return "#listaobj" }
func (o *ListaObj) ValueEqual(other value.Handle) bool {
	p, ok := other.(*ListaObj)
	return ok && p == o
}

func refOf(v value.Value) (object.Ref, bool) {
	r, ok := v.ObjHandle().(object.Ref)
	return r, ok
}

func (o *ListaObj) Call(member string, args []value.Value, countdown bool) (value.Value, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	switch strings.ToLower(member) {
	case "add", "adicionar", "addultimo", "addlast":
		ref, ok := refOf(arg0(args))
		if !ok {
			return value.Null(), false
		}
		o.items = append(o.items, ref)
		return value.Int(int64(len(o.items) - 1)), true
	case "addprimeiro", "addfirst":
		ref, ok := refOf(arg0(args))
		if !ok {
			return value.Null(), false
		}
		o.items = append([]object.Ref{ref}, o.items...)
		return value.Int(0), true
	case "addultimoseausente", "addlastifabsent":
		ref, ok := refOf(arg0(args))
		if !ok {
			return value.Null(), false
		}
		if o.hasLocked(ref) {
			return value.Bool(false), true
		}
		o.items = append(o.items, ref)
		return value.Bool(true), true
	case "addprimeiroseausente", "addfirstifabsent":
		ref, ok := refOf(arg0(args))
		if !ok {
			return value.Null(), false
		}
		if o.hasLocked(ref) {
			return value.Bool(false), true
		}
		o.items = append([]object.Ref{ref}, o.items...)
		return value.Bool(true), true
	case "inserir", "insertat":
		if len(args) != 2 {
			return value.Null(), false
		}
		ref, ok := refOf(args[1])
		if !ok {
			return value.Null(), false
		}
		i := clampRange(int(args[0].ToInt()), 0, len(o.items))
		o.items = append(o.items, object.Ref{})
		copy(o.items[i+1:], o.items[i:])
		o.items[i] = ref
		return value.Int(int64(i)), true
	case "removerindice", "removeat":
		if len(args) != 1 {
			return value.Bool(false), false
		}
		i := int(args[0].ToInt())
		if i < 0 || i >= len(o.items) {
			return value.Bool(false), true
		}
		o.items = append(o.items[:i], o.items[i+1:]...)
		return value.Bool(true), true
	case "remover", "remove":
		ref, ok := refOf(arg0(args))
		if !ok {
			return value.Bool(false), false
		}
		for i, r := range o.items {
			if r == ref {
				o.items = append(o.items[:i], o.items[i+1:]...)
				return value.Bool(true), true
			}
		}
		return value.Bool(false), true
	case "removertodos", "removeall":
		ref, ok := refOf(arg0(args))
		if !ok {
			return value.Int(0), false
		}
		kept := o.items[:0]
		var removed int64
		for _, r := range o.items {
			if r == ref {
				removed++
				continue
			}
			kept = append(kept, r)
		}
		o.items = kept
		return value.Int(removed), true
	case "removerduplicados", "removeduplicates":
		seen := make(map[object.Ref]bool, len(o.items))
		kept := o.items[:0]
		for _, r := range o.items {
			if seen[r] {
				continue
			}
			seen[r] = true
			kept = append(kept, r)
		}
		o.items = kept
		return value.Int(int64(len(o.items))), true
	case "total", "count":
		o.compact()
		return value.Int(int64(len(o.items))), true
	case "item", "at":
		if len(args) != 1 {
			return value.Null(), false
		}
		i := int(args[0].ToInt())
		if i < 0 || i >= len(o.items) || !o.items[i].Valid() {
			return value.Null(), true
		}
		return value.Obj(o.items[i]), true
	case "limpar", "clear":
		o.items = nil
		return value.Null(), true
	case "contem", "contains", "has":
		ref, ok := refOf(arg0(args))
		if !ok {
			return value.Bool(false), true
		}
		return value.Bool(o.hasLocked(ref)), true
	case "embaralhar", "shuffle":
		rand.Shuffle(len(o.items), func(i, j int) { o.items[i], o.items[j] = o.items[j], o.items[i] })
		return value.Null(), true
	case "inverter", "reverse":
		for i, j := 0, len(o.items)-1; i < j; i, j = i+1, j-1 {
			o.items[i], o.items[j] = o.items[j], o.items[i]
		}
		return value.Null(), true
	default:
		return value.Null(), false
	}
}

func arg0(args []value.Value) value.Value {
	if len(args) == 0 {
		return value.Null()
	}
	return args[0]
}

func (o *ListaObj) hasLocked(ref object.Ref) bool {
	for _, r := range o.items {
		if r == ref {
			return true
		}
	}
	return false
}

// compact drops references to objects that have since been deleted, so
// `total`/iteration never surfaces stale handles (spec §4.4 deletion
// lifecycle: "every other reference to the object becomes invalid").
func (o *ListaObj) compact() {
	live := o.items[:0]
	for _, r := range o.items {
		if r.Valid() {
			live = append(live, r)
		}
	}
	o.items = live
}

func (o *ListaObj) snapshot() []object.Ref {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.compact()
	out := make([]object.Ref, len(o.items))
	copy(out, o.items)
	return out
}

func (o *ListaObj) insertAtLocked(i int, ref object.Ref) {
	i = clampRange(i, 0, len(o.items))
	o.items = append(o.items, object.Ref{})
	copy(o.items[i+1:], o.items[i:])
	o.items[i] = ref
}

func (o *ListaObj) removeAtLocked(i int) bool {
	if i < 0 || i >= len(o.items) {
		return false
	}
	o.items = append(o.items[:i], o.items[i+1:]...)
	return true
}

// ListaItem is a cursor over a ListaObj (spec §4.8 "cursor"). It holds a
// plain position index into the target's live slice rather than a copy, so
// every accessor re-reads the target under its own lock and naturally
// observes concurrent mutation — a list clear leaves the position out of
// range, which `current`/`valid`/the remove* operations treat as invalid.
// Deleting the element at the position (through this cursor or through
// the list) does not invalidate the cursor: it then refers to the element
// that followed the deleted one.
type ListaItem struct {
	base
	mu     sync.Mutex
	target *ListaObj
	pos    int
}

func newListaItem(owner *object.Object, field string) *ListaItem {
	return &ListaItem{base: base{owner, field}, pos: -1}
}

func (o *ListaItem) ValueDisplay() string { return "#listaitem" }
func (o *ListaItem) ValueEqual(other value.Handle) bool {
	p, ok := other.(*ListaItem)
	return ok && p == o
}

func (o *ListaItem) Call(member string, args []value.Value, countdown bool) (value.Value, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	switch strings.ToLower(member) {
	case "alvo", "target":
		if len(args) == 1 {
			if h, ok := args[0].ObjHandle().(*ListaObj); ok {
				o.target = h
				o.pos = -1
			}
		}
		return value.Null(), true
	case "primeiro", "first":
		o.pos = 0
		return o.current(), true
	case "ultimo", "last":
		if o.target == nil {
			return value.Null(), true
		}
		o.target.mu.Lock()
		o.pos = len(o.target.items) - 1
		o.target.mu.Unlock()
		return o.current(), true
	case "proximo", "next":
		o.pos++
		return o.current(), true
	case "anterior", "previous":
		o.pos--
		return o.current(), true
	case "atual", "current":
		return o.current(), true
	case "valido", "valid":
		return value.Bool(o.validLocked()), true
	case "inserirantes", "insertbefore", "inserirantesseausente", "insertbeforeifabsent":
		return o.insertRelative(args, 0, strings.HasSuffix(strings.ToLower(member), "ausente") || strings.HasSuffix(strings.ToLower(member), "ifabsent"))
	case "inserirdepois", "insertafter", "inserirdepoisseausente", "insertafterifabsent":
		return o.insertRelative(args, 1, strings.HasSuffix(strings.ToLower(member), "ausente") || strings.HasSuffix(strings.ToLower(member), "ifabsent"))
	case "removeratual", "removecurrent":
		if o.target == nil {
			return value.Bool(false), true
		}
		o.target.mu.Lock()
		ok := o.target.removeAtLocked(o.pos)
		o.target.mu.Unlock()
		return value.Bool(ok), true
	case "removeranterior", "removeprevious":
		if o.target == nil {
			return value.Bool(false), true
		}
		o.target.mu.Lock()
		ok := o.target.removeAtLocked(o.pos - 1)
		if ok {
			o.pos--
		}
		o.target.mu.Unlock()
		return value.Bool(ok), true
	case "removerproximo", "removenext":
		if o.target == nil {
			return value.Bool(false), true
		}
		o.target.mu.Lock()
		ok := o.target.removeAtLocked(o.pos + 1)
		o.target.mu.Unlock()
		return value.Bool(ok), true
	default:
		return value.Null(), false
	}
}

func (o *ListaItem) insertRelative(args []value.Value, offset int, ifAbsent bool) (value.Value, bool) {
	if o.target == nil {
		return value.Null(), false
	}
	ref, ok := refOf(arg0(args))
	if !ok {
		return value.Null(), false
	}
	o.target.mu.Lock()
	defer o.target.mu.Unlock()
	if ifAbsent && o.target.hasLocked(ref) {
		return value.Bool(false), true
	}
	at := o.pos + offset
	if o.pos < 0 {
		at = len(o.target.items)
	}
	o.target.insertAtLocked(at, ref)
	return value.Bool(true), true
}

func (o *ListaItem) validLocked() bool {
	if o.target == nil {
		return false
	}
	o.target.mu.Lock()
	defer o.target.mu.Unlock()
	return o.pos >= 0 && o.pos < len(o.target.items) && o.target.items[o.pos].Valid()
}

func (o *ListaItem) current() value.Value {
	if o.target == nil {
		return value.Null()
	}
	items := o.target.snapshot()
	if o.pos < 0 || o.pos >= len(items) {
		return value.Null()
	}
	return value.Obj(items[o.pos])
}
