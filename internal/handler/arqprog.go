package handler

import (
	"bufio"
	"os"
	"strings"
	"sync"

	"github.com/magoolation/intmud/internal/object"
	"github.com/magoolation/intmud/internal/value"
)

// ArqProg is a streaming program-text reader: a cursor-style forward-only
// read over a source file, used by tooling that processes scripts line by
// line without loading the whole file like ArqTxt does (spec §4.8 "program
// text reader").
type ArqProg struct {
	base
	mu     sync.Mutex
	path   string
	f      *os.File
	sc     *bufio.Scanner
	cur    string
	hasCur bool
}

func newArqProg(owner *object.Object, field string) *ArqProg { return &ArqProg{base: base{owner, field}} }

func (o *ArqProg) ValueDisplay() string { return "#arqprog:" + o.path }
func (o *ArqProg) ValueEqual(other value.Handle) bool {
	p, ok := other.(*ArqProg)
	return ok && p == o
}

func (o *ArqProg) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.closeLocked()
}

func (o *ArqProg) closeLocked() {
	if o.f != nil {
		o.f.Close()
		o.f = nil
	}
	o.sc = nil
	o.hasCur = false
	o.cur = ""
}

func (o *ArqProg) Call(member string, args []value.Value, countdown bool) (value.Value, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	switch strings.ToLower(member) {
	case "open", "abrir":
		if len(args) != 1 {
			return value.Bool(false), false
		}
		o.closeLocked()
		o.path = args[0].ToString()
		f, err := os.Open(o.path)
		if err != nil {
			return value.Bool(false), true
		}
		o.f = f
		o.sc = bufio.NewScanner(f)
		o.sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		o.advance()
		return value.Bool(true), true
	case "close", "fechar":
		o.closeLocked()
		return value.Null(), true
	case "haslinha", "hasline":
		return value.Bool(o.hasCur), true
	case "textoatual", "currenttext":
		return value.Str(o.cur), true
	case "avancar", "advance":
		o.advance()
		return value.Bool(o.hasCur), true
	default:
		return value.Null(), false
	}
}

func (o *ArqProg) advance() {
	if o.sc == nil {
		o.hasCur = false
		return
	}
	if o.sc.Scan() {
		o.cur = o.sc.Text()
		o.hasCur = true
	} else {
		o.cur = ""
		o.hasCur = false
	}
}
