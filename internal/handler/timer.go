package handler

import (
	"strings"
	"sync"

	"github.com/magoolation/intmud/internal/object"
	"github.com/magoolation/intmud/internal/value"
)

// tickRegistry tracks every live IntTempo and IntExec instance so the Event
// Loop can sweep the timers once per decisecond tick without the VM
// having to walk every object's fields (spec §4.8 "inttempo fires an event
// function every N deciseconds", §9 tick-phase ordering "timers first").
var (
	tickMu   sync.Mutex
	tickers  = make(map[*IntTempo]struct{})
	execs    = make(map[*IntExec]struct{})
)

func registerTicker(t *IntTempo) {
	tickMu.Lock()
	tickers[t] = struct{}{}
	tickMu.Unlock()
}

func unregisterTicker(t *IntTempo) {
	tickMu.Lock()
	delete(tickers, t)
	tickMu.Unlock()
}

func registerExec(e *IntExec) {
	tickMu.Lock()
	execs[e] = struct{}{}
	tickMu.Unlock()
}

func unregisterExec(e *IntExec) {
	tickMu.Lock()
	delete(execs, e)
	tickMu.Unlock()
}

// TickTimers advances every registered IntTempo by one decisecond,
// enqueuing the convention-named event function for each timer that just
// reached zero (spec §4.8, §9 "timers" tick phase). IntExec needs no tick
// work of its own: its zero -> non-zero edge is detected the instant a
// script assigns it (see IntExec.setLocked), so by the time this phase
// runs any exec-edge from this tick is already on the Pending Event Queue
// for the next phase to drain. The Event Loop calls this once per tick,
// before draining the Pending Event Queue.
func TickTimers() {
	tickMu.Lock()
	due := make([]*IntTempo, 0)
	for t := range tickers {
		if t.tick() {
			due = append(due, t)
		}
	}
	tickMu.Unlock()
	for _, t := range due {
		if t.owner == nil {
			continue
		}
		Enqueue(PendingEvent{Owner: t.owner.Ref(), FuncName: t.eventFn("exec")})
	}
}

// IntTempo is a countdown timer measured in deciseconds: counts down to
// zero then fires `{field}_exec` once, either one-shot or auto-reloading
// (spec §4.8, §8 "exactly one exec invocation occurs, and the value is
// zero afterwards").
type IntTempo struct {
	base
	mu       sync.Mutex
	value    int64
	reload   int64
	repeat   bool
	active   bool
}

func newIntTempo(owner *object.Object, field string) *IntTempo {
	t := &IntTempo{base: base{owner, field}}
	registerTicker(t)
	return t
}

func (o *IntTempo) ValueDisplay() string { return "#inttempo" }
func (o *IntTempo) ValueEqual(other value.Handle) bool {
	p, ok := other.(*IntTempo)
	return ok && p == o
}

func (o *IntTempo) Close() { unregisterTicker(o) }

// tick decrements the counter by one decisecond; returns true the instant it
// reaches zero (fires exactly once per expiry, then reloads if repeating).
func (o *IntTempo) tick() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.active || o.value <= 0 {
		return false
	}
	o.value--
	if o.value == 0 {
		if o.repeat && o.reload > 0 {
			o.value = o.reload
		} else {
			o.active = false
		}
		return true
	}
	return false
}

func (o *IntTempo) Call(member string, args []value.Value, countdown bool) (value.Value, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	switch strings.ToLower(member) {
	case "valor", "value":
		if len(args) == 1 {
			o.value = args[0].ToInt()
			o.active = o.value > 0
			return value.Int(o.value), true
		}
		return value.Int(o.value), true
	case "repetir", "repeat":
		if len(args) == 1 {
			o.reload = args[0].ToInt()
			o.repeat = o.reload > 0
			return value.Int(o.reload), true
		}
		return value.Int(o.reload), true
	case "parar", "stop":
		o.active = false
		return value.Null(), true
	case "ativo", "active":
		return value.Bool(o.active), true
	default:
		return value.Null(), false
	}
}

// IntExec holds an integer that fires `{field}_exec` exactly once the tick
// its value transitions from zero to non-zero, then resets itself to zero
// (spec §3 "Exec-trigger fires on an edge from zero to non-zero; firing
// resets value to zero", §4.8 "edge-trigger", §4.5 "detects exec-trigger
// edges (zero -> non-zero) since last scan", §8 "For every IntExec assigned
// non-zero from zero: exactly one exec invocation occurs; value reads zero
// after firing"). Unlike IntTempo it never counts down on its own — only an
// assignment changes the value.
type IntExec struct {
	base
	mu      sync.Mutex
	value   int64
	wasZero bool
}

func newIntExec(owner *object.Object, field string) *IntExec {
	e := &IntExec{base: base{owner, field}, wasZero: true}
	registerExec(e)
	return e
}

func (o *IntExec) ValueDisplay() string { return "#intexec" }
func (o *IntExec) ValueEqual(other value.Handle) bool {
	p, ok := other.(*IntExec)
	return ok && p == o
}

func (o *IntExec) Close() { unregisterExec(o) }

func (o *IntExec) Call(member string, args []value.Value, countdown bool) (value.Value, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	switch strings.ToLower(member) {
	case "valor", "value", "testar", "check":
		if len(args) == 1 {
			o.setLocked(args[0].ToInt())
		}
		return value.Int(o.value), true
	default:
		return value.Null(), false
	}
}

// setLocked records a new value, enqueues the `_exec` event on a
// zero -> non-zero transition, and immediately resets the stored value
// back to zero when it fires (spec §3 "firing resets value to zero").
// Caller holds o.mu.
func (o *IntExec) setLocked(v int64) {
	wasZero := o.wasZero
	if wasZero && v != 0 {
		if o.owner != nil {
			Enqueue(PendingEvent{Owner: o.owner.Ref(), FuncName: o.eventFn("exec"), Args: []value.Value{value.Int(v)}})
		}
		o.value = 0
		o.wasZero = true
		return
	}
	o.value = v
	o.wasZero = v == 0
}

// IntInc is a plain incrementing/decrementing counter with no event
// behaviour (spec §4.8 "counter").
type IntInc struct {
	base
	mu    sync.Mutex
	value int64
}

func newIntInc(owner *object.Object, field string) *IntInc { return &IntInc{base: base{owner, field}} }

func (o *IntInc) ValueDisplay() string { return "#intinc" }
func (o *IntInc) ValueEqual(other value.Handle) bool {
	p, ok := other.(*IntInc)
	return ok && p == o
}

func (o *IntInc) Call(member string, args []value.Value, countdown bool) (value.Value, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	switch strings.ToLower(member) {
	case "valor", "value":
		if len(args) == 1 {
			o.value = args[0].ToInt()
		}
		return value.Int(o.value), true
	case "inc", "incrementar":
		delta := int64(1)
		if len(args) == 1 {
			delta = args[0].ToInt()
		}
		o.value += delta
		return value.Int(o.value), true
	case "dec", "decrementar":
		delta := int64(1)
		if len(args) == 1 {
			delta = args[0].ToInt()
		}
		o.value -= delta
		return value.Int(o.value), true
	case "zerar", "reset":
		o.value = 0
		return value.Int(0), true
	default:
		return value.Null(), false
	}
}
