// Package session implements the external session protocol surface (spec
// §6): per-connection identity, state, and the input-submission/
// output-drain API the server layer uses to talk to the core without the
// core depending on a concrete transport.
package session

import (
	"strings"
	"sync"

	"github.com/google/uuid"
)

// State is one of the documented session lifecycle states (spec §6).
type State int

const (
	Connected State = iota
	Authenticating
	Playing
	Disconnecting
	Disconnected
)

func (s State) String() string {
	switch s {
	case Connected:
		return "connected"
	case Authenticating:
		return "authenticating"
	case Playing:
		return "playing"
	case Disconnecting:
		return "disconnecting"
	case Disconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// telnetIAC is the Telnet "interpret as command" escape byte (spec §6
// "Telnet IAC sequences are stripped before delivery").
const telnetIAC = 0xff

// Session is one connected client (spec §6 "a session has id, optional
// player name, connected-at timestamp, and state").
type Session struct {
	ID          string
	PlayerName  string
	ConnectedAt int64 // unix seconds, stamped by the caller (no wall-clock reads inside this package)
	State       State

	mu     sync.Mutex
	inbox  []string
	outbox []string
}

// New creates a session with a fresh random id (spec §6; SPEC_FULL §2
// "object/session identifiers" -> google/uuid).
func New(connectedAt int64) *Session {
	return &Session{ID: uuid.NewString(), ConnectedAt: connectedAt, State: Connected}
}

// SubmitInput is the input-submission API: the server layer calls this
// with one raw line per received Telnet/TCP frame, stripped of Telnet IAC
// sequences, queued for the scheduler to dispatch on the next tick.
func (s *Session) SubmitInput(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inbox = append(s.inbox, stripTelnetIAC(line))
}

// DrainInput removes and returns every queued input line in arrival
// order, for the scheduler to hand to the session's owning script object.
func (s *Session) DrainInput() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.inbox) == 0 {
		return nil
	}
	out := s.inbox
	s.inbox = nil
	return out
}

// QueueOutput is how script-side output reaches the session (called from
// the script thread only — the output drain API below is the only
// cross-thread read of it).
func (s *Session) QueueOutput(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outbox = append(s.outbox, text)
}

// DrainOutput is the output-drain API: the server layer calls this to
// collect everything queued for the client since the last drain.
func (s *Session) DrainOutput() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.outbox) == 0 {
		return ""
	}
	out := strings.Join(s.outbox, "")
	s.outbox = nil
	return out
}

func stripTelnetIAC(s string) string {
	if !strings.ContainsRune(s, telnetIAC) {
		return s
	}
	bs := []byte(s)
	var b strings.Builder
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
