package handler

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/magoolation/intmud/internal/object"
	"github.com/magoolation/intmud/internal/value"
)

// ArqTxt is a text file handle: short synchronous reads/writes only (spec
// §5 "brief synchronous file operations are allowed directly on the script
// thread"). Lines are read lazily and cached so repeated `linha` calls
// don't re-open the file.
type ArqTxt struct {
	base
	mu    sync.Mutex
	path  string
	lines []string
	loaded bool
}

func newArqTxt(owner *object.Object, field string) *ArqTxt { return &ArqTxt{base: base{owner, field}} }

func (o *ArqTxt) ValueDisplay() string { return "#arqtxt:" + o.path }
func (o *ArqTxt) ValueEqual(other value.Handle) bool {
	p, ok := other.(*ArqTxt)
	return ok && p == o
}

func (o *ArqTxt) load() {
	if o.loaded {
		return
	}
	o.loaded = true
	f, err := os.Open(o.path)
	if err != nil {
		return
	}
	defer f.Close()
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		o.lines = append(o.lines, sc.Text())
	}
}

func (o *ArqTxt) Call(member string, args []value.Value, countdown bool) (value.Value, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	switch strings.ToLower(member) {
	case "nome", "name":
		if len(args) == 1 {
			o.path = args[0].ToString()
			o.loaded = false
			o.lines = nil
			return value.Str(o.path), true
		}
		return value.Str(o.path), true
	case "total", "totallinhas":
		o.load()
		return value.Int(int64(len(o.lines))), true
	case "linha", "line":
		o.load()
		if len(args) != 1 {
			return value.Str(""), false
		}
		i := int(args[0].ToInt())
		if i < 0 || i >= len(o.lines) {
			return value.Str(""), true
		}
		return value.Str(o.lines[i]), true
	case "existe", "exists":
		_, err := os.Stat(o.path)
		return value.Bool(err == nil), true
	case "gravar", "write":
		if len(args) != 1 {
			return value.Bool(false), false
		}
		err := os.WriteFile(o.path, []byte(args[0].ToString()), 0o644)
		o.loaded = false
		o.lines = nil
		return value.Bool(err == nil), true
	case "acrescentar", "append":
		if len(args) != 1 {
			return value.Bool(false), false
		}
		f, err := os.OpenFile(o.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return value.Bool(false), true
		}
		defer f.Close()
		_, werr := f.WriteString(args[0].ToString() + "\n")
		o.loaded = false
		o.lines = nil
		return value.Bool(werr == nil), true
	case "apagar", "delete":
		err := os.Remove(o.path)
		o.loaded = false
		o.lines = nil
		return value.Bool(err == nil), true
	default:
		return value.Null(), false
	}
}

// ArqMem is an in-memory byte buffer (texto, acrescentar, tamanho,
// limpar), for scratch data that should never touch the filesystem (spec
// §4.8 "memory buffer").
type ArqMem struct {
	base
	mu   sync.Mutex
	data []byte
}

func newArqMem(owner *object.Object, field string) *ArqMem { return &ArqMem{base: base{owner, field}} }

func (o *ArqMem) ValueDisplay() string { return "#arqmem" }
func (o *ArqMem) ValueEqual(other value.Handle) bool {
	p, ok := other.(*ArqMem)
	return ok && p == o
}

func (o *ArqMem) Call(member string, args []value.Value, countdown bool) (value.Value, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	switch strings.ToLower(member) {
	case "texto", "text":
		if len(args) == 1 {
			o.data = []byte(args[0].ToString())
			return value.Null(), true
		}
		return value.Str(string(o.data)), true
	case "acrescentar", "append":
		if len(args) != 1 {
			return value.Null(), false
		}
		o.data = append(o.data, []byte(args[0].ToString())...)
		return value.Null(), true
	case "tamanho", "size":
		return value.Int(int64(len(o.data))), true
	case "limpar", "clear":
		o.data = nil
		return value.Null(), true
	default:
		return value.Null(), false
	}
}

// ArqDir lists filesystem directory entries (spec §4.8 "directory").
type ArqDir struct {
	base
	mu      sync.Mutex
	path    string
	entries []string
	loaded  bool
}

func newArqDir(owner *object.Object, field string) *ArqDir { return &ArqDir{base: base{owner, field}} }

func (o *ArqDir) ValueDisplay() string { return "#arqdir:" + o.path }
func (o *ArqDir) ValueEqual(other value.Handle) bool {
	p, ok := other.(*ArqDir)
	return ok && p == o
}

func (o *ArqDir) load() {
	if o.loaded {
		return
	}
	o.loaded = true
	entries, err := os.ReadDir(o.path)
	if err != nil {
		return
	}
	for _, e := range entries {
		o.entries = append(o.entries, e.Name())
	}
}

func (o *ArqDir) Call(member string, args []value.Value, countdown bool) (value.Value, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	switch strings.ToLower(member) {
	case "nome", "name":
		if len(args) == 1 {
			o.path = args[0].ToString()
			o.loaded = false
			o.entries = nil
			return value.Str(o.path), true
		}
		return value.Str(o.path), true
	case "total", "count":
		o.load()
		return value.Int(int64(len(o.entries))), true
	case "item", "at":
		o.load()
		if len(args) != 1 {
			return value.Str(""), false
		}
		i := int(args[0].ToInt())
		if i < 0 || i >= len(o.entries) {
			return value.Str(""), true
		}
		return value.Str(o.entries[i]), true
	case "ecriar", "mkdir":
		return value.Bool(os.MkdirAll(o.path, 0o755) == nil), true
	case "caminho", "join":
		if len(args) != 1 {
			return value.Str(o.path), false
		}
		return value.Str(filepath.Join(o.path, args[0].ToString())), true
	default:
		return value.Null(), false
	}
}

// ArqLog appends lines (no timestamp is added) to a log file, opened once and kept
// open for the life of the handler (spec §5 "a log handler may keep a file
// descriptor open across ticks as a scoped acquisition").
type ArqLog struct {
	base
	mu   sync.Mutex
	path string
	f    *os.File
}

func newArqLog(owner *object.Object, field string) *ArqLog { return &ArqLog{base: base{owner, field}} }

func (o *ArqLog) ValueDisplay() string { return "#arqlog:" + o.path }
func (o *ArqLog) ValueEqual(other value.Handle) bool {
	p, ok := other.(*ArqLog)
	return ok && p == o
}

func (o *ArqLog) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.f != nil {
		o.f.Close()
		o.f = nil
	}
}

func (o *ArqLog) ensureOpen() error {
	if o.f != nil {
		return nil
	}
	f, err := os.OpenFile(o.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	o.f = f
	return nil
}

func (o *ArqLog) Call(member string, args []value.Value, countdown bool) (value.Value, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	switch strings.ToLower(member) {
	case "nome", "name":
		if len(args) == 1 {
			if o.f != nil {
				o.f.Close()
				o.f = nil
			}
			o.path = args[0].ToString()
			return value.Str(o.path), true
		}
		return value.Str(o.path), true
	case "escrever", "write":
		if len(args) == 0 {
			return value.Bool(false), false
		}
		if err := o.ensureOpen(); err != nil {
			return value.Bool(false), true
		}
		parts := make([]string, len(args))
		for i, a := range args {
			parts[i] = a.ToString()
		}
		_, err := o.f.WriteString(strings.Join(parts, " ") + "\n")
		return value.Bool(err == nil), true
	default:
		return value.Null(), false
	}
}
