// Package scheduler implements the Event Loop (spec §4.5): a single
// fixed-cadence tick that decrements timers, detects exec-trigger edges,
// drains the cross-thread Pending Event Queue, dispatches convention-named
// handler functions under an instruction-budget throttle, invokes `aotick`
// on the main object, and finally processes externally submitted command
// lines via `aocomando` in server mode.
package scheduler

import (
	"sync"
	"time"

	"github.com/magoolation/intmud/internal/handler"
	"github.com/magoolation/intmud/internal/logging"
	"github.com/magoolation/intmud/internal/value"
	"github.com/magoolation/intmud/internal/vm"
)

// CommandInput is one externally submitted line (spec §4.5 step 6,
// §6 session protocol): a session id, the first whitespace-delimited
// word as the command, and the remainder as its argument tail.
type CommandInput struct {
	SessionID string
	Command   string
	ArgTail   string
}

// Scheduler drives one VM's Event Loop. It owns no transport: the TCP/CLI
// layers feed it through SubmitCommand, and its own handler kinds (Socket,
// Serv, ArqExec) feed the Pending Event Queue directly from their own
// background goroutines (spec §5 "the only concurrent boundary").
type Scheduler struct {
	VM       *vm.VM
	Interval time.Duration // nominal 100ms (spec §4.5 "fixed-cadence tick")
	Budget   int           // per-tick instruction-budget ceiling
	Log      logging.Sink

	mu      sync.Mutex
	cmdsIn  []CommandInput
	running bool
	stop    chan struct{}
	done    chan struct{}
}

// New builds a Scheduler over m, ticking every interval with the given
// per-tick instruction budget (spec §4.5, §5).
func New(m *vm.VM, interval time.Duration, budget int, log logging.Sink) *Scheduler {
	if log == nil {
		log = logging.New(logging.LevelSilent)
	}
	return &Scheduler{VM: m, Interval: interval, Budget: budget, Log: log}
}

// SubmitCommand queues one externally received input line for the next
// tick's aocomando phase (spec §4.5 step 6). Safe to call from any
// goroutine — the TCP accept/read pumps and the CLI's own stdin reader are
// both callers.
func (s *Scheduler) SubmitCommand(sessionID, line string) {
	cmd, tail := splitCommand(line)
	s.mu.Lock()
	s.cmdsIn = append(s.cmdsIn, CommandInput{SessionID: sessionID, Command: cmd, ArgTail: tail})
	s.mu.Unlock()
}

func (s *Scheduler) drainCommands() []CommandInput {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.cmdsIn) == 0 {
		return nil
	}
	out := s.cmdsIn
	s.cmdsIn = nil
	return out
}

func splitCommand(line string) (cmd, tail string) {
	i := 0
	for i < len(line) && line[i] != ' ' && line[i] != '\t' {
		i++
	}
	cmd = line[:i]
	for i < len(line) && (line[i] == ' ' || line[i] == '\t') {
		i++
	}
	tail = line[i:]
	return cmd, tail
}

// Run ticks at s.Interval until Stop is called or stopCh closes. It blocks
// the calling goroutine — callers that want a background loop should run
// it in its own goroutine (cmd/intmud does, for `run`/`serve`).
func (s *Scheduler) Run(stopCh <-chan struct{}) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	s.mu.Unlock()
	defer close(s.done)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.Tick()
		case <-s.stop:
			return
		case <-stopCh:
			return
		}
	}
}

// Stop ends a running Run loop and waits for it to return (spec §4.5
// "Cancellation is implicit via shutdown of the loop; pending events are
// discarded" — any event queued after Stop is called simply never drains).
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	stop, done := s.stop, s.done
	s.running = false
	s.mu.Unlock()
	close(stop)
	<-done
}

// Tick runs exactly one Event Loop iteration in the documented phase order
// (spec §4.5, §9 ordering guarantees). It is exported so tests and a
// single-step `intmud run -n 1` style invocation can drive the loop
// without a real-time ticker.
func (s *Scheduler) Tick() {
	s.VM.Budget = s.Budget

	// Phase 1+2: timers and exec-trigger edges. IntExec detects its own
	// edge at assignment time (see internal/handler/timer.go), so by the
	// time TickTimers runs, any edge from this tick is already enqueued;
	// phase 2 has no separate action here.
	handler.TickTimers()

	// Phase 3+4: drain the Pending Event Queue and dispatch each
	// convention-named handler function, silently ignoring missing ones.
	for _, ev := range handler.DrainPending() {
		obj := ev.Owner.Object()
		if obj == nil {
			continue
		}
		if _, ok := s.VM.InvokeNamed(obj, ev.FuncName, ev.Args); !ok {
			s.Log.Debugf("no handler function %q on %s", ev.FuncName, obj.Class.Unit.ClassName)
		}
	}

	// Phase 5: aotick on the main object.
	if s.VM.Global != nil {
		s.VM.InvokeNamed(s.VM.Global, "aotick", nil)
	}

	// Phase 6: externally submitted input lines (server mode only). Drain
	// regardless of whether a main object is configured so the queue never
	// grows unbounded in a misconfigured run.
	cmds := s.drainCommands()
	if s.VM.Global != nil {
		for _, c := range cmds {
			args := []value.Value{value.Str(c.SessionID), value.Str(c.Command), value.Str(c.ArgTail)}
			s.VM.InvokeNamed(s.VM.Global, "aocomando", args)
		}
	}
}
