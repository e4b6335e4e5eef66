package handler

import (
	"fmt"
	"runtime"
	"strconv"
	"strings"
	"sync"

	humanize "github.com/dustin/go-humanize"

	"github.com/magoolation/intmud/internal/object"
	"github.com/magoolation/intmud/internal/value"
)

// Debug collects diagnostic text a script deliberately emits, kept separate
// from ArqLog so a developer can inspect it in-process without touching
// disk (spec §4.8 "debug/diagnostics").
type Debug struct {
	base
	mu   sync.Mutex
	buf  []string
	on   bool
}

func newDebug(owner *object.Object, field string) *Debug { return &Debug{base: base{owner, field}, on: true} }

func (o *Debug) ValueDisplay() string { return "#debug" }
func (o *Debug) ValueEqual(other value.Handle) bool {
	p, ok := other.(*Debug)
	return ok && p == o
}

func (o *Debug) Call(member string, args []value.Value, countdown bool) (value.Value, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	switch strings.ToLower(member) {
	case "escrever", "write":
		if !o.on || len(args) == 0 {
			return value.Null(), true
		}
		parts := make([]string, len(args))
		for i, a := range args {
			parts[i] = a.ToString()
		}
		o.buf = append(o.buf, strings.Join(parts, " "))
		return value.Null(), true
	case "ativo", "enabled":
		if len(args) == 1 {
			o.on = args[0].ToBool()
		}
		return value.Bool(o.on), true
	case "total":
		return value.Int(int64(len(o.buf))), true
	case "linha", "line":
		if len(args) != 1 {
			return value.Str(""), false
		}
		i := int(args[0].ToInt())
		if i < 0 || i >= len(o.buf) {
			return value.Str(""), true
		}
		return value.Str(o.buf[i]), true
	case "limpar", "clear":
		o.buf = nil
		return value.Null(), true
	case "dump":
		return value.Str(strings.Join(o.buf, "\n")), true
	case "memoria", "memory":
		var ms runtime.MemStats
		runtime.ReadMemStats(&ms)
		return value.Str(humanize.Bytes(ms.Alloc)), true
	case "memoriabytes", "memorybytes":
		var ms runtime.MemStats
		runtime.ReadMemStats(&ms)
		return value.Int(int64(ms.Alloc)), true
	default:
		return value.Null(), false
	}
}

// NomeObj is the natural-language object matcher (spec §4.8): it parses a
// player-typed pattern of the form `[count[.start]] words`, tests candidate
// objects one at a time by ANDed lowercase word-inclusion on the candidate's
// display name (falling back to its class name when the object carries no
// `nome` field), and binds the current match once a count/start window of
// matching candidates has been seen — "2.3 espada longa" selects two
// matches starting at the 3rd, the window that the original's object-disambiguation
// parser implements for commands like `pegar 2.espada`.
type NomeObj struct {
	base
	mu         sync.Mutex
	pattern    string
	words      []string
	count      int
	start      int
	seen       int
	current    object.Ref
	hasCurrent bool
}

func newNomeObj(owner *object.Object, field string) *NomeObj {
	return &NomeObj{base: base{owner, field}, count: 1, start: 1}
}

func (o *NomeObj) ValueDisplay() string { return "#nomeobj:" + o.pattern }
func (o *NomeObj) ValueEqual(other value.Handle) bool {
	p, ok := other.(*NomeObj)
	return ok && p == o
}

// parseNomePattern splits "[count[.start]] words" into the count/start window
// (both default 1, i.e. "the first match") and the AND-matched word list.
func parseNomePattern(s string) (count, start int, words []string) {
	count, start = 1, 1
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return count, start, nil
	}
	head := fields[0]
	if n, rest, ok := splitCountStart(head); ok {
		count = n
		if rest >= 0 {
			start = rest
		}
		return count, start, fields[1:]
	}
	return count, start, fields
}

// splitCountStart recognises "N" or "N.M" as a leading count/start token.
func splitCountStart(tok string) (count, start int, ok bool) {
	dot := strings.IndexByte(tok, '.')
	numPart := tok
	start = -1
	if dot >= 0 {
		numPart = tok[:dot]
	}
	n, err := strconv.Atoi(numPart)
	if err != nil || n <= 0 {
		return 0, -1, false
	}
	if dot >= 0 {
		m, err := strconv.Atoi(tok[dot+1:])
		if err != nil || m <= 0 {
			return 0, -1, false
		}
		start = m
	}
	return n, start, true
}

func (o *NomeObj) displayName(ref object.Ref) string {
	if !ref.Valid() {
		return ""
	}
	obj := ref.Object()
	if v, ok := obj.FieldGet("nome"); ok {
		if s := v.ToString(); s != "" {
			return s
		}
	}
	return obj.Class.Unit.ClassName
}

// wordsMatch reports whether every pattern word is one of the candidate
// name's lowercase words.
func (o *NomeObj) wordsMatch(name string) bool {
	if len(o.words) == 0 {
		return false
	}
	candidateWords := strings.Fields(strings.ToLower(name))
	for _, w := range o.words {
		found := false
		for _, cw := range candidateWords {
			if cw == w {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func (o *NomeObj) Call(member string, args []value.Value, countdown bool) (value.Value, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	switch strings.ToLower(member) {
	case "padrao", "pattern":
		if len(args) == 1 {
			o.pattern = args[0].ToString()
			o.count, o.start, o.words = parseNomePattern(o.pattern)
			for i, w := range o.words {
				o.words[i] = strings.ToLower(w)
			}
			o.seen = 0
			o.hasCurrent = false
			o.current = object.Ref{}
		}
		return value.Str(o.pattern), true
	case "combina", "matches":
		if len(args) != 1 {
			return value.Bool(false), false
		}
		ref, ok := refOf(args[0])
		if !ok {
			return value.Bool(false), true
		}
		return value.Bool(o.wordsMatch(o.displayName(ref))), true
	case "testar", "test":
		if len(args) != 1 {
			return value.Bool(false), false
		}
		ref, ok := refOf(args[0])
		if !ok {
			return value.Bool(false), true
		}
		if !o.wordsMatch(o.displayName(ref)) {
			return value.Bool(false), true
		}
		o.seen++
		if o.seen >= o.start && o.seen < o.start+o.count {
			o.current = ref
			o.hasCurrent = true
			return value.Bool(true), true
		}
		return value.Bool(false), true
	case "contador", "count":
		return value.Int(int64(o.seen)), true
	case "atual", "current":
		if !o.hasCurrent {
			return value.Null(), true
		}
		return value.Obj(o.current), true
	case "reiniciar", "reset":
		o.seen = 0
		o.hasCurrent = false
		o.current = object.Ref{}
		return value.Null(), true
	case "formatado", "formatted":
		prefix := "um"
		if len(args) == 1 {
			prefix = args[0].ToString()
		}
		name := strings.Join(o.words, " ")
		if name == "" && o.owner != nil {
			name = o.owner.Class.Unit.ClassName
		}
		return value.Str(fmt.Sprintf("%s %s", prefix, name)), true
	default:
		return value.Null(), false
	}
}
