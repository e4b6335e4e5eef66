package handler

import (
	"bufio"
	"io"
	"os/exec"
	"strings"
	"sync"

	"github.com/magoolation/intmud/internal/object"
	"github.com/magoolation/intmud/internal/value"
)

// ArqExec spawns an external process and pumps its stdout on a background
// goroutine, depositing one `msg` event per line into the Pending Event
// Queue and one `fechou` event when the process exits (spec §4.8, §5
// "everything else [besides short file ops] runs on a background worker
// that only communicates back through the Pending Event Queue").
type ArqExec struct {
	base
	mu      sync.Mutex
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	buf     []string
	running bool
}

func newArqExec(owner *object.Object, field string) *ArqExec { return &ArqExec{base: base{owner, field}} }

func (o *ArqExec) ValueDisplay() string { return "#arqexec" }
func (o *ArqExec) ValueEqual(other value.Handle) bool {
	p, ok := other.(*ArqExec)
	return ok && p == o
}

func (o *ArqExec) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.closeLocked()
}

func (o *ArqExec) closeLocked() {
	if o.stdin != nil {
		o.stdin.Close()
		o.stdin = nil
	}
	if o.cmd != nil && o.cmd.Process != nil {
		o.cmd.Process.Kill()
	}
	o.running = false
}

func (o *ArqExec) Call(member string, args []value.Value, countdown bool) (value.Value, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	switch strings.ToLower(member) {
	case "open", "abrir":
		if len(args) < 1 {
			return value.Bool(false), false
		}
		o.closeLocked()
		name := args[0].ToString()
		argv := make([]string, 0, len(args)-1)
		for _, a := range args[1:] {
			argv = append(argv, a.ToString())
		}
		cmd := exec.Command(name, argv...)
		stdin, err := cmd.StdinPipe()
		if err != nil {
			return value.Bool(false), true
		}
		stdout, err := cmd.StdoutPipe()
		if err != nil {
			return value.Bool(false), true
		}
		if err := cmd.Start(); err != nil {
			return value.Bool(false), true
		}
		o.cmd = cmd
		o.stdin = stdin
		o.running = true
		owner := o.owner
		field := o.field
		go o.pump(stdout, owner, field)
		return value.Bool(true), true
	case "writeline", "escreverlinha":
		if len(args) != 1 || o.stdin == nil {
			return value.Bool(false), false
		}
		_, err := io.WriteString(o.stdin, args[0].ToString()+"\n")
		return value.Bool(err == nil), true
	case "linha", "readline":
		if len(o.buf) == 0 {
			return value.Str(""), true
		}
		line := o.buf[0]
		o.buf = o.buf[1:]
		return value.Str(line), true
	case "totallinhas":
		return value.Int(int64(len(o.buf))), true
	case "running", "ativo":
		return value.Bool(o.running), true
	case "close", "fechar":
		o.closeLocked()
		return value.Null(), true
	default:
		return value.Null(), false
	}
}

// pump reads the child's stdout line by line on its own goroutine,
// appending each line to o.buf under o.mu (Call reads the buffer under the
// same lock on the script thread) and depositing it as a Pending Event for
// the Event Loop to dispatch on the single script thread.
func (o *ArqExec) pump(stdout io.ReadCloser, owner *object.Object, field string) {
	sc := bufio.NewScanner(stdout)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := sc.Text()
		o.mu.Lock()
		o.buf = append(o.buf, line)
		o.mu.Unlock()
		if owner != nil {
			Enqueue(PendingEvent{Owner: owner.Ref(), FuncName: field + "_msg", Args: []value.Value{value.Str(line)}})
		}
	}
	o.mu.Lock()
	o.running = false
	o.mu.Unlock()
	if owner != nil {
		Enqueue(PendingEvent{Owner: owner.Ref(), FuncName: field + "_fechou"})
	}
}
