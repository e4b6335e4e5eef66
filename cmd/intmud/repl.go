package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
	"github.com/mattn/go-isatty"
	"github.com/urfave/cli/v3"

	"github.com/magoolation/intmud/internal/compiler"
	"github.com/magoolation/intmud/internal/object"
	"github.com/magoolation/intmud/internal/parser"
	"github.com/magoolation/intmud/internal/value"
	"github.com/magoolation/intmud/internal/vm"
)

// replClass is the synthetic container every REPL submission compiles
// into: one throwaway function body per line, reloaded into the live
// registry and invoked against a single persistent instance so variables
// declared `comum`/`salvo` on it persist across submissions (grounded on
// the teacher's executeREPLCode keeping one persistent *vm.ExecutionContext
// across the whole interactive session).
const replClass = "_repl_"
const replFunc = "_linha_"

var replCommand = &cli.Command{
	Name:  "repl",
	Usage: "interactively compile and execute statements against a loaded source tree",
	Flags: []cli.Flag{loadFlag()},
	Action: func(ctx context.Context, cmd *cli.Command) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		reg, errs := loadRegistry(cfg)
		if len(errs) > 0 {
			for _, e := range errs {
				fmt.Println(e)
			}
		}
		return runRepl(vm.New(reg))
	},
}

func runRepl(m *vm.VM) error {
	inst, ok := declareReplClass(m)
	if !ok {
		return fmt.Errorf("repl: failed to initialise scratch instance")
	}

	prompt := "intmud > "
	var rl *readline.Instance
	if isatty.IsTerminal(0) {
		var err error
		rl, err = readline.New(prompt)
		if err != nil {
			return err
		}
		defer rl.Close()
	}

	var buf strings.Builder
	for {
		line, err := readLine(rl, buf.Len() > 0)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if buf.Len() > 0 {
			buf.WriteByte('\n')
		}
		buf.WriteString(line)

		if needsMoreInput(buf.String()) {
			continue
		}
		code := buf.String()
		buf.Reset()
		if strings.TrimSpace(code) == "" {
			continue
		}
		runReplLine(m, inst, code)
	}
}

func readLine(rl *readline.Instance, continuation bool) (string, error) {
	if rl != nil {
		if continuation {
			rl.SetPrompt("...       ")
		} else {
			rl.SetPrompt("intmud > ")
		}
		return rl.Readline()
	}
	return readStdinLine(continuation)
}

// declareReplClass registers the scratch class once so successive
// submissions reload only its body, keeping the same *object.Object alive
// (spec §4.2 "classes are loaded into a registry"; SUPPLEMENTED FEATURES
// `Registry.Reload`).
func declareReplClass(m *vm.VM) (*object.Object, bool) {
	p := parser.New("<repl>", "classe "+replClass+"\nfim\n")
	cls := p.ParseClass()
	if len(p.Errors()) > 0 {
		return nil, false
	}
	unit, cerrs := compiler.Compile(cls)
	if len(cerrs) > 0 {
		return nil, false
	}
	m.Registry.Reload(unit)
	return m.CreateObject(replClass)
}

// needsMoreInput reports whether the accumulated buffer still has an open
// block keyword (se/enquanto/para/percorrer/escolha/func/classe) without
// its matching `fim*`, or an unterminated string literal — the REPL
// equivalent of the teacher's brace/paren/quote balance heuristic, adapted
// to a keyword-delimited grammar instead of braces (spec §4.2 grammar has
// no braces; see internal/parser's `fim`/`fim_se`/... stop words).
func needsMoreInput(code string) bool {
	depth := 0
	inString := false
	escaped := false
	words := strings.FieldsFunc(code, func(r rune) bool {
		return !((r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || r == '_')
	})
	for _, r := range code {
		if escaped {
			escaped = false
			continue
		}
		switch {
		case r == '\\' && inString:
			escaped = true
		case r == '"':
			inString = !inString
		}
	}
	if inString {
		return true
	}
	opens := map[string]bool{"se": true, "enquanto": true, "para": true, "percorrer": true, "escolha": true, "func": true, "classe": true}
	closes := map[string]int{"fim": 1, "fim_se": 1, "fim_enquanto": 1, "fim_para": 1, "fim_percorrer": 1, "fim_escolha": 1}
	for _, w := range words {
		if opens[w] {
			depth++
		} else if _, ok := closes[w]; ok {
			if depth > 0 {
				depth--
			}
		}
	}
	return depth > 0
}

// runReplLine wraps code as a fresh function body on the scratch class,
// reloads it, invokes it, and prints any non-null return value (grounded
// on the teacher's executeREPLCode printing the top-of-stack result after
// each submission).
func runReplLine(m *vm.VM, inst *object.Object, code string) {
	src := "classe " + replClass + "\nfunc " + replFunc + "\n" + code + "\nfim\n"
	p := parser.New("<repl>", src)
	cls := p.ParseClass()
	if errs := p.Errors(); len(errs) > 0 {
		for _, e := range errs {
			fmt.Println(e)
		}
		return
	}
	unit, cerrs := compiler.Compile(cls)
	if len(cerrs) > 0 {
		for _, e := range cerrs {
			fmt.Println(e)
		}
		return
	}
	m.Registry.Reload(unit)

	result, ok := m.InvokeNamed(inst, replFunc, nil)
	if !ok {
		fmt.Println("no such function")
		return
	}
	if !result.IsNull() {
		fmt.Println(result.ToString())
	}
	if m.LastError.Kind != 0 {
		fmt.Println("error:", m.LastError.Message)
	}
}
