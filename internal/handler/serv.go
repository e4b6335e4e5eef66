package handler

import (
	"crypto/tls"
	"net"
	"strconv"
	"strings"
	"sync"

	"github.com/magoolation/intmud/internal/object"
	"github.com/magoolation/intmud/internal/value"
)

// Serv is a TCP/TLS acceptor (spec §4.8): on each accepted connection it
// constructs a fresh Socket (performing the TLS server handshake first
// when enabled), owned by the Serv's own owner object under the field
// name `{name}_accepted`, and fires `{name}_socket` with that Socket as
// the argument.
type Serv struct {
	base
	mu       sync.Mutex
	listener net.Listener
	newOwner func() *object.Object // not set by any member; acceptLoop does not read it
}

func newServ(owner *object.Object, field string) *Serv { return &Serv{base: base{owner, field}} }

func (o *Serv) ValueDisplay() string { return "#serv" }
func (o *Serv) ValueEqual(other value.Handle) bool {
	p, ok := other.(*Serv)
	return ok && p == o
}

func (o *Serv) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.closeLocked()
}

func (o *Serv) closeLocked() {
	if o.listener != nil {
		o.listener.Close()
		o.listener = nil
	}
}

func (o *Serv) Call(member string, args []value.Value, countdown bool) (value.Value, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	switch strings.ToLower(member) {
	case "open", "abrir":
		if len(args) != 2 {
			return value.Bool(false), false
		}
		return value.Bool(o.listen(args[0].ToString(), int(args[1].ToInt()), nil)), true
	case "opentls", "abrirtls":
		if len(args) != 4 {
			return value.Bool(false), false
		}
		cert, err := tls.X509KeyPair([]byte(args[2].ToString()), []byte(args[3].ToString()))
		if err != nil {
			return value.Bool(false), true
		}
		cfg := &tls.Config{Certificates: []tls.Certificate{cert}}
		return value.Bool(o.listen(args[0].ToString(), int(args[1].ToInt()), cfg)), true
	case "close", "fechar":
		o.closeLocked()
		return value.Null(), true
	case "listening", "escutando":
		return value.Bool(o.listener != nil), true
	default:
		return value.Null(), false
	}
}

func (o *Serv) listen(host string, port int, tlsCfg *tls.Config) bool {
	o.closeLocked()
	addr := net.JoinHostPort(host, strconv.Itoa(port))
	var ln net.Listener
	var err error
	if tlsCfg != nil {
		ln, err = tls.Listen("tcp", addr, tlsCfg)
	} else {
		ln, err = net.Listen("tcp", addr)
	}
	if err != nil {
		return false
	}
	o.listener = ln
	owner := o.owner
	field := o.field
	go acceptLoop(ln, owner, field)
	return true
}

// acceptLoop runs on its own goroutine for the life of the listener,
// wrapping each accepted connection in a fresh Socket and depositing a
// `socket` Pending Event carrying it (spec §4.8 "fires {name}_socket with
// the new Socket as argument").
func acceptLoop(ln net.Listener, owner *object.Object, field string) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		sock := &Socket{base: base{owner: owner, field: field + "_accepted"}}
		sock.bindLocked(conn)
		if owner != nil {
			Enqueue(PendingEvent{Owner: owner.Ref(), FuncName: field + "_socket", Args: []value.Value{value.Obj(sock)}})
		}
	}
}
