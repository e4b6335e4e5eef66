package handler

import (
	"bufio"
	"crypto/tls"
	"net"
	"strconv"
	"strings"
	"sync"

	"github.com/magoolation/intmud/internal/object"
	"github.com/magoolation/intmud/internal/value"
)

// protocol flags a Socket's line-framing/escape handling (spec §4.8
// "protocol flag (none, Telnet strip IAC, custom)").
const (
	protoNone = iota
	protoTelnet
)

const telnetIAC = 0xff

// Socket is a TCP or TLS client/accepted connection. Reads happen on a
// background goroutine which deposits one `msg` Pending Event per received
// line; writes, close, and metadata queries run synchronously on the
// script thread since they never block indefinitely (spec §5).
type Socket struct {
	base
	mu       sync.Mutex
	conn     net.Conn
	proto    int
	remote   string
	local    string
	lastErr  string
}

func newSocket(owner *object.Object, field string) *Socket { return &Socket{base: base{owner, field}} }

func (o *Socket) ValueDisplay() string { return "#socket:" + o.remote }
func (o *Socket) ValueEqual(other value.Handle) bool {
	p, ok := other.(*Socket)
	return ok && p == o
}

func (o *Socket) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.closeLocked()
}

func (o *Socket) closeLocked() {
	if o.conn != nil {
		o.conn.Close()
		o.conn = nil
	}
}

func (o *Socket) Call(member string, args []value.Value, countdown bool) (value.Value, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	switch strings.ToLower(member) {
	case "open", "abrir":
		if len(args) != 2 {
			return value.Bool(false), false
		}
		return value.Bool(o.dial(args[0].ToString(), int(args[1].ToInt()), false)), true
	case "opentls", "abrirtls":
		if len(args) != 2 {
			return value.Bool(false), false
		}
		return value.Bool(o.dial(args[0].ToString(), int(args[1].ToInt()), true)), true
	case "writeline", "escreverlinha":
		if len(args) != 1 {
			return value.Bool(false), false
		}
		return value.Bool(o.writeLocked(args[0].ToString() + "\n")), true
	case "writeraw", "escreverraw":
		if len(args) != 1 {
			return value.Bool(false), false
		}
		return value.Bool(o.writeLocked(args[0].ToString())), true
	case "close", "fechar":
		o.closeLocked()
		return value.Null(), true
	case "remoteaddr", "enderecoremoto":
		return value.Str(o.remote), true
	case "localaddr", "enderecolocal":
		return value.Str(o.local), true
	case "protocol", "protocolo":
		if len(args) == 1 {
			switch strings.ToLower(args[0].ToString()) {
			case "telnet":
				o.proto = protoTelnet
			default:
				o.proto = protoNone
			}
		}
		return value.Int(int64(o.proto)), true
	case "connected", "conectado":
		return value.Bool(o.conn != nil), true
	case "lasterror", "ultimoerro":
		return value.Str(o.lastErr), true
	default:
		return value.Null(), false
	}
}

func (o *Socket) dial(host string, port int, useTLS bool) bool {
	o.closeLocked()
	addr := net.JoinHostPort(host, strconv.Itoa(port))
	var conn net.Conn
	var err error
	if useTLS {
		conn, err = tls.Dial("tcp", addr, &tls.Config{ServerName: host})
	} else {
		conn, err = net.Dial("tcp", addr)
	}
	if err != nil {
		o.lastErr = err.Error()
		if o.owner != nil {
			Enqueue(PendingEvent{Owner: o.owner.Ref(), FuncName: o.field + "_err", Args: []value.Value{value.Str(err.Error())}})
		}
		return false
	}
	o.bindLocked(conn)
	if o.owner != nil {
		Enqueue(PendingEvent{Owner: o.owner.Ref(), FuncName: o.field + "_con"})
	}
	return true
}

// bindLocked installs an already-established connection (from dial, or
// from Serv's accept loop) and starts the background read pump.
func (o *Socket) bindLocked(conn net.Conn) {
	o.conn = conn
	o.remote = conn.RemoteAddr().String()
	o.local = conn.LocalAddr().String()
	owner := o.owner
	field := o.field
	proto := o.proto
	go pumpSocket(conn, owner, field, proto)
}

func (o *Socket) writeLocked(s string) bool {
	if o.conn == nil {
		return false
	}
	_, err := o.conn.Write([]byte(s))
	if err != nil {
		o.lastErr = err.Error()
		return false
	}
	return true
}

// pumpSocket reads lines from conn and deposits one `msg` Pending Event
// per line, then a `fechou` event on EOF/error (spec §4.8, §5).
func pumpSocket(conn net.Conn, owner *object.Object, field string, proto int) {
	r := bufio.NewReader(conn)
	for {
		line, err := r.ReadString('\n')
		if len(line) > 0 {
			line = strings.TrimRight(line, "\r\n")
			if proto == protoTelnet {
				line = stripTelnetIAC(line)
			}
			if owner != nil {
				Enqueue(PendingEvent{Owner: owner.Ref(), FuncName: field + "_msg", Args: []value.Value{value.Str(line)}})
			}
		}
		if err != nil {
			break
		}
	}
	if owner != nil {
		Enqueue(PendingEvent{Owner: owner.Ref(), FuncName: field + "_fechou"})
	}
}

// stripTelnetIAC removes raw Telnet IAC command sequences (IAC + 2 bytes,
// or IAC IAC as an escaped 0xff) from a received line (spec §4.8 "Telnet
// strip IAC").
func stripTelnetIAC(s string) string {
	var b strings.Builder
	bs := []byte(s)
	for i := 0; i < len(bs); i++ {
		if bs[i] == telnetIAC {
			if i+1 < len(bs) && bs[i+1] == telnetIAC {
				b.WriteByte(telnetIAC)
				i++
				continue
			}
			i += 2
			continue
		}
		b.WriteByte(bs[i])
	}
	return b.String()
}
