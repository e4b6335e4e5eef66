package handler

import (
	"strings"
	"sync"

	"github.com/magoolation/intmud/internal/object"
	"github.com/magoolation/intmud/internal/value"
)

// TelaTxt is a text console: an output buffer plus an input line editor
// fed one key at a time (spec §4.8 "text console"). ENTER makes `tecla`
// return the buffered line and clears the input buffer; BACKSPACE drops
// the last character; any other key that is not a single printable ASCII
// character is ignored. TelaTxt itself enqueues no event for any key.
type TelaTxt struct {
	base
	mu          sync.Mutex
	maxLineLen  int
	inputBuf    strings.Builder
	cursorX     int
	output      []string
}

const (
	keyEnter     = "\r"
	keyBackspace = "\b"
)

func newTelaTxt(owner *object.Object, field string) *TelaTxt {
	return &TelaTxt{base: base{owner, field}, maxLineLen: 4096}
}

func (o *TelaTxt) ValueDisplay() string { return "#telatxt" }
func (o *TelaTxt) ValueEqual(other value.Handle) bool {
	p, ok := other.(*TelaTxt)
	return ok && p == o
}

func (o *TelaTxt) Call(member string, args []value.Value, countdown bool) (value.Value, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	switch strings.ToLower(member) {
	case "maxlinelength", "tamanhomax":
		if len(args) == 1 {
			o.maxLineLen = int(args[0].ToInt())
		}
		return value.Int(int64(o.maxLineLen)), true
	case "cursorx":
		return value.Int(int64(o.cursorX)), true
	case "bufferentrada", "inputbuffer":
		return value.Str(o.inputBuf.String()), true
	case "write", "escrever":
		if len(args) != 1 {
			return value.Null(), false
		}
		o.writeLocked(args[0].ToString())
		return value.Null(), true
	case "beep", "bip":
		o.output = append(o.output, "\a")
		return value.Null(), true
	case "clear", "limpar":
		o.output = nil
		o.inputBuf.Reset()
		o.cursorX = 0
		return value.Null(), true
	case "tecla", "key":
		if len(args) != 1 {
			return value.Null(), false
		}
		return o.handleKeyLocked(args[0].ToString()), true
	case "lertela", "drain":
		out := strings.Join(o.output, "")
		o.output = nil
		return value.Str(out), true
	default:
		return value.Null(), false
	}
}

func (o *TelaTxt) writeLocked(s string) {
	o.output = append(o.output, s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		o.cursorX = len(s) - i - 1
	} else {
		o.cursorX += len(s)
	}
}

// handleKeyLocked processes one keystroke and returns the completed input
// line when the key was ENTER, else Null. This itself does not enqueue the
// `{field}_tecla` event — that convention-named dispatch belongs to the
// caller (the session layer forwarding raw input), since a handler never
// calls back into the VM directly (spec §4.8 "Call never panics... returns
// a typed result").
func (o *TelaTxt) handleKeyLocked(key string) value.Value {
	switch key {
	case keyEnter:
		line := o.inputBuf.String()
		o.inputBuf.Reset()
		o.cursorX = 0
		return value.Str(line)
	case keyBackspace:
		s := o.inputBuf.String()
		if len(s) > 0 {
			o.inputBuf.Reset()
			o.inputBuf.WriteString(s[:len(s)-1])
		}
		return value.Null()
	default:
		if len(key) == 1 && key[0] >= 0x20 && key[0] < 0x7f {
			if o.inputBuf.Len() < o.maxLineLen {
				o.inputBuf.WriteString(key)
			}
		}
		return value.Null()
	}
}
