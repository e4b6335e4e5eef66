package handler

import (
	"strings"
	"sync"

	"github.com/magoolation/intmud/internal/object"
	"github.com/magoolation/intmud/internal/value"
)

// Prog is the program introspection handler (spec §4.8): a collection of
// `begin-*` iteration modes sharing one hasCurrent/currentText/advance
// cursor surface, plus stateless per-name classification queries. It
// reaches the live class registry through vm.Active, the same singleton
// ArqSav's load path uses.
type Prog struct {
	base
	mu    sync.Mutex
	items []string
	pos   int
}

func newProg(owner *object.Object, field string) *Prog { return &Prog{base: base{owner, field}, pos: -1} }

func (o *Prog) ValueDisplay() string { return "#prog" }
func (o *Prog) ValueEqual(other value.Handle) bool {
	p, ok := other.(*Prog)
	return ok && p == o
}

func (o *Prog) Call(member string, args []value.Value, countdown bool) (value.Value, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	switch strings.ToLower(member) {
	case "beginclasses":
		o.items, o.pos = registrySnapshot().classNames(), -1
		return value.Null(), true
	case "beginfiles":
		o.items, o.pos = registrySnapshot().sourceFiles(), -1
		return value.Null(), true
	case "beginfunctions":
		if len(args) != 1 {
			return value.Bool(false), false
		}
		o.items, o.pos = registrySnapshot().functionsOf(args[0].ToString()), -1
		return value.Bool(true), true
	case "beginfunctionssourceorder":
		if len(args) != 1 {
			return value.Bool(false), false
		}
		o.items, o.pos = registrySnapshot().functionsInSourceOrder(args[0].ToString()), -1
		return value.Bool(true), true
	case "beginallmembers":
		if len(args) != 1 {
			return value.Bool(false), false
		}
		o.items, o.pos = registrySnapshot().allMembers(args[0].ToString()), -1
		return value.Bool(true), true
	case "begindirectbases":
		if len(args) != 1 {
			return value.Bool(false), false
		}
		o.items, o.pos = registrySnapshot().directBases(args[0].ToString()), -1
		return value.Bool(true), true
	case "beginallancestors":
		if len(args) != 1 {
			return value.Bool(false), false
		}
		o.items, o.pos = registrySnapshot().allAncestors(args[0].ToString()), -1
		return value.Bool(true), true
	case "beginderivedclasses":
		if len(args) != 1 {
			return value.Bool(false), false
		}
		o.items, o.pos = registrySnapshot().derivedClasses(args[0].ToString()), -1
		return value.Bool(true), true
	case "hascurrent":
		return value.Bool(o.pos >= 0 && o.pos < len(o.items)), true
	case "currenttext":
		if o.pos < 0 || o.pos >= len(o.items) {
			return value.Str(""), true
		}
		return value.Str(o.items[o.pos]), true
	case "advance":
		n := 1
		if len(args) == 1 {
			n = int(args[0].ToInt())
		}
		if o.pos < 0 {
			o.pos = 0
		} else {
			o.pos += n
		}
		return value.Bool(o.pos < len(o.items)), true
	case "classify":
		if len(args) != 2 {
			return value.Int(0), false
		}
		return value.Int(int64(registrySnapshot().classify(args[0].ToString(), args[1].ToString()))), true
	case "isnumeric":
		if len(args) != 2 {
			return value.Bool(false), false
		}
		return value.Bool(registrySnapshot().varIsKind(args[0].ToString(), args[1].ToString(), isNumericType)), true
	case "istext":
		if len(args) != 2 {
			return value.Bool(false), false
		}
		return value.Bool(registrySnapshot().varIsKind(args[0].ToString(), args[1].ToString(), isTextType)), true
	case "iscommon":
		if len(args) != 2 {
			return value.Bool(false), false
		}
		return value.Bool(registrySnapshot().varFlag(args[0].ToString(), args[1].ToString(), func(v varInfo) bool { return v.Common })), true
	case "issaved":
		if len(args) != 2 {
			return value.Bool(false), false
		}
		return value.Bool(registrySnapshot().varFlag(args[0].ToString(), args[1].ToString(), func(v varInfo) bool { return v.Saved })), true
	case "typename":
		if len(args) != 2 {
			return value.Str(""), false
		}
		return value.Str(registrySnapshot().typeName(args[0].ToString(), args[1].ToString())), true
	case "definingclass":
		if len(args) != 2 {
			return value.Str(""), false
		}
		return value.Str(registrySnapshot().definingClass(args[0].ToString(), args[1].ToString())), true
	case "arraysize":
		if len(args) != 2 {
			return value.Int(0), false
		}
		return value.Int(int64(registrySnapshot().arraySize(args[0].ToString(), args[1].ToString()))), true
	case "constantvalue":
		if len(args) != 2 {
			return value.Str(""), false
		}
		return value.Str(registrySnapshot().constantValueText(args[0].ToString(), args[1].ToString())), true
	case "inheritancedepth":
		if len(args) != 1 {
			return value.Int(-1), false
		}
		return value.Int(int64(registrySnapshot().inheritanceDepth(args[0].ToString()))), true
	case "classlines", "functionlines":
		return value.Int(0), true // always 0: line counts are not computed here
	default:
		return value.Null(), false
	}
}

const (
	classifyNone = iota
	classifyFunction
	classifyVariable
	classifyConstant
)

func isNumericType(t string) bool {
	switch strings.ToLower(t) {
	case "int", "int8", "int16", "int32", "int64", "float", "double":
		return true
	default:
		return false
	}
}

func isTextType(t string) bool { return strings.ToLower(t) == "texto" || strings.ToLower(t) == "string" }
