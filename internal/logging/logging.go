// Package logging wraps the standard library `log` package behind a small
// interface (SPEC_FULL §1 ambient stack: "no third-party structured-logging
// library appears anywhere in the retrieved pack, so this is the one
// ambient concern kept on the standard library"), gated by the `.int`
// `log` level so the rest of the module depends on an interface instead of
// a concrete logger (testable by substituting a capturing Sink).
package logging

import (
	"log"
	"os"
)

// Level mirrors the `.int` `log` key's integer mode.
type Level int

const (
	LevelSilent Level = iota
	LevelError
	LevelInfo
	LevelDebug
)

// Sink is the logging interface the rest of the module depends on.
type Sink interface {
	Errorf(format string, args ...any)
	Infof(format string, args ...any)
	Debugf(format string, args ...any)
}

// stdSink wraps *log.Logger, filtering by Level.
type stdSink struct {
	level Level
	l     *log.Logger
}

// New returns a Sink writing to stderr at the given level.
func New(level Level) Sink {
	return &stdSink{level: level, l: log.New(os.Stderr, "", log.LstdFlags)}
}

func (s *stdSink) Errorf(format string, args ...any) {
	if s.level >= LevelError {
		s.l.Printf("ERROR "+format, args...)
	}
}

func (s *stdSink) Infof(format string, args ...any) {
	if s.level >= LevelInfo {
		s.l.Printf("INFO "+format, args...)
	}
}

func (s *stdSink) Debugf(format string, args ...any) {
	if s.level >= LevelDebug {
		s.l.Printf("DEBUG "+format, args...)
	}
}
