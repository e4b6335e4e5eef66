package handler

import (
	"sort"
	"strings"
	"sync"

	"github.com/magoolation/intmud/internal/object"
	"github.com/magoolation/intmud/internal/value"
)

// globalIndex backs IndiceObj: a process-wide name -> object map (spec
// §4.8 "named singleton index", §9 "one IndiceObj map... cleared on
// reload"). Registration is case-insensitive, mirroring the class registry.
var (
	indexMu  sync.RWMutex
	indexMap = make(map[string]object.Ref)
)

func indexKey(s string) string { return strings.ToLower(s) }

func indexLookup(name string) value.Value {
	indexMu.RLock()
	defer indexMu.RUnlock()
	ref, ok := indexMap[indexKey(name)]
	if !ok || !ref.Valid() {
		return value.Null()
	}
	return value.Obj(ref)
}

func indexStore(name string, v value.Value) {
	indexMu.Lock()
	defer indexMu.Unlock()
	if ref, ok := v.ObjHandle().(object.Ref); ok {
		indexMap[indexKey(name)] = ref
	} else {
		delete(indexMap, indexKey(name))
	}
}

// ResetIndex clears the global index (spec §9 "a reload... clears the
// IndiceObj map").
func ResetIndex() {
	indexMu.Lock()
	defer indexMu.Unlock()
	indexMap = make(map[string]object.Ref)
}

func sortedIndexNames() []string {
	indexMu.RLock()
	defer indexMu.RUnlock()
	names := make([]string, 0, len(indexMap))
	for k := range indexMap {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// IndiceObj is the handler view onto the global index: writing the
// `name` property re-registers the owning object under the index, and
// `lookup`/`first`/`last` expose the table itself (spec §4.8).
type IndiceObj struct {
	base
	name string
}

func newIndiceObj(owner *object.Object, field string) *IndiceObj { return &IndiceObj{base: base{owner, field}} }

func (o *IndiceObj) ValueDisplay() string { return "#indiceobj:" + o.name }
func (o *IndiceObj) ValueEqual(other value.Handle) bool {
	p, ok := other.(*IndiceObj)
	return ok && p == o
}

func (o *IndiceObj) Call(member string, args []value.Value, countdown bool) (value.Value, bool) {
	switch strings.ToLower(member) {
	case "name":
		if len(args) == 1 {
			o.name = args[0].ToString()
			if o.owner != nil {
				indexStore(o.name, value.Obj(o.owner.Ref()))
			}
			return value.Str(o.name), true
		}
		return value.Str(o.name), true
	case "lookup", "buscar":
		if len(args) != 1 {
			return value.Null(), false
		}
		return indexLookup(args[0].ToString()), true
	case "first", "primeiro":
		names := sortedIndexNames()
		if len(names) == 0 {
			return value.Null(), true
		}
		return indexLookup(names[0]), true
	case "last", "ultimo":
		names := sortedIndexNames()
		if len(names) == 0 {
			return value.Null(), true
		}
		return indexLookup(names[len(names)-1]), true
	case "total":
		return value.Int(int64(len(sortedIndexNames()))), true
	default:
		return value.Null(), false
	}
}

// IndiceItem is a cursor over the alphabetical index table.
type IndiceItem struct {
	base
	pos int
}

func newIndiceItem(owner *object.Object, field string) *IndiceItem {
	return &IndiceItem{base: base{owner, field}, pos: -1}
}

func (o *IndiceItem) ValueDisplay() string { return "#indiceitem" }
func (o *IndiceItem) ValueEqual(other value.Handle) bool {
	p, ok := other.(*IndiceItem)
	return ok && p == o
}

func (o *IndiceItem) Call(member string, args []value.Value, countdown bool) (value.Value, bool) {
	names := sortedIndexNames()
	switch strings.ToLower(member) {
	case "lookup", "buscar":
		if len(args) != 1 {
			return value.Null(), false
		}
		name := args[0].ToString()
		for i, n := range names {
			if n == indexKey(name) {
				o.pos = i
				return indexLookup(name), true
			}
		}
		o.pos = -1
		return value.Null(), true
	case "first", "primeiro":
		if len(names) == 0 {
			o.pos = -1
			return value.Null(), true
		}
		o.pos = 0
		return indexLookup(names[0]), true
	case "last", "ultimo":
		if len(names) == 0 {
			o.pos = -1
			return value.Null(), true
		}
		o.pos = len(names) - 1
		return indexLookup(names[o.pos]), true
	case "current", "atual":
		if o.pos < 0 || o.pos >= len(names) {
			return value.Null(), true
		}
		return indexLookup(names[o.pos]), true
	default:
		return value.Null(), false
	}
}
