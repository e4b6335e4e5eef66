package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/magoolation/intmud/internal/compiler"
	"github.com/magoolation/intmud/internal/config"
	"github.com/magoolation/intmud/internal/object"
	"github.com/magoolation/intmud/internal/parser"

	_ "github.com/magoolation/intmud/internal/builtin" // wires vm.CallBuiltin via init
	_ "github.com/magoolation/intmud/internal/handler"  // wires vm.NewHandlerInstance via init
)

// loadErrors collects both parse and compile diagnostics across every
// source file, file:line:col formatted (spec §7 kind 1/2, grounded on the
// teacher's validateCommand reporting shape).
type loadErrors []error

func (e loadErrors) Error() string {
	s := ""
	for i, err := range e {
		if i > 0 {
			s += "\n"
		}
		s += err.Error()
	}
	return s
}

// sourceDirs returns every directory to compile: the configured
// SourceDir plus each repeatable `incluir` entry (spec §6).
func sourceDirs(cfg config.Config) []string {
	dirs := cfg.Incluir
	if cfg.SourceDir != "" {
		dirs = append([]string{cfg.SourceDir}, dirs...)
	}
	return dirs
}

// loadRegistry parses and compiles every file in the configured source
// directories into the class registry. Each file is exactly one `classe`
// unit running to end of file (spec §4.2); a file-extension convention is
// not specified, so every regular file in a configured directory is
// treated as one source unit.
func loadRegistry(cfg config.Config) (*object.Registry, loadErrors) {
	reg := object.NewRegistry()
	var errs loadErrors

	units := make([]*compiler.Unit, 0)
	for _, dir := range sourceDirs(cfg) {
		entries, err := os.ReadDir(dir)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", dir, err))
			continue
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			path := filepath.Join(dir, e.Name())
			src, err := os.ReadFile(path)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", path, err))
				continue
			}
			p := parser.New(path, string(src))
			cls := p.ParseClass()
			for _, perr := range p.Errors() {
				errs = append(errs, perr)
			}
			if len(p.Errors()) > 0 {
				continue
			}
			unit, cerrs := compiler.Compile(cls)
			for _, cerr := range cerrs {
				errs = append(errs, cerr)
			}
			units = append(units, unit)
		}
	}

	// Load bases before subclasses so linearisation resolves. A single
	// pass with a stable topological retry handles the common case
	// (bases appear earlier or are re-resolved once every unit is
	// registered) without requiring source files to be pre-sorted.
	for _, u := range units {
		reg.Load(u)
	}
	for _, u := range units {
		reg.Load(u) // re-linearise now that every class is present
	}
	return reg, errs
}
