package vm_test

import (
	"strings"
	"testing"

	_ "github.com/magoolation/intmud/internal/builtin"
	"github.com/magoolation/intmud/internal/compiler"
	"github.com/magoolation/intmud/internal/handler"
	"github.com/magoolation/intmud/internal/object"
	"github.com/magoolation/intmud/internal/parser"
	"github.com/magoolation/intmud/internal/vm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// compileAndLoad parses and compiles src into a fresh class registry,
// failing the test on any parse/compile error.
func compileAndLoad(t *testing.T, reg *object.Registry, file, src string) *object.Class {
	t.Helper()
	p := parser.New(file, src)
	cls := p.ParseClass()
	require.Empty(t, p.Errors())
	u, errs := compiler.Compile(cls)
	require.Empty(t, errs)
	return reg.Load(u)
}

// TestHelloWorld exercises spec §8 scenario 1: a one-function class whose
// body writes one line and returns 1.
func TestHelloWorld(t *testing.T) {
	reg := object.NewRegistry()
	m := vm.New(reg)
	compileAndLoad(t, reg, "main.int", "classe main\nfunc inicializar\n  escrevaln(\"Ola, Mundo!\")\n  ret 1\n")

	obj, ok := m.CreateObject("main")
	require.True(t, ok)
	require.NotNil(t, obj)

	out := m.DrainOutput()
	require.Len(t, out, 1)
	assert.Equal(t, "Ola, Mundo!\n", out[0])
	assert.Equal(t, "Ola, Mundo!\n", strings.Join(out, ""))
}

// TestInheritanceOverride exercises spec §8 scenario 2 / the universal
// property "for every class C with base B where B defines m and C does
// not: an instance of C invoking m executes B.m", through a three-deep
// hierarchy so the linearisation walk is exercised, not just a direct base.
func TestInheritanceOverride(t *testing.T) {
	reg := object.NewRegistry()
	m := vm.New(reg)
	compileAndLoad(t, reg, "a.int", "classe a\nfunc f\n  ret 1\n")
	compileAndLoad(t, reg, "b.int", "classe b herda a\nfunc f\n  ret 2\n")
	compileAndLoad(t, reg, "c.int", "classe c herda b\n")

	obj, ok := m.CreateObject("c")
	require.True(t, ok)

	v, found := m.InvokeNamed(obj, "f", nil)
	require.True(t, found)
	assert.EqualValues(t, 2, v.ToInt())
}

// TestHandlerFieldScalarStoreRoutesThroughHandler exercises a compiled
// script's plain `t = 5` assignment to an `inttempo` field end-to-end:
// the store must reach IntTempo's "valor" setter (arming the timer) rather
// than overwriting the field with a raw scalar, or TickTimers would never
// see the timer as active and `t_exec` would never fire (spec §8 scenario
// 3, exercised here through the VM instead of by calling the handler
// directly as internal/handler/handler_test.go's TestIntTempoFiresExactlyOnce
// does).
func TestHandlerFieldScalarStoreRoutesThroughHandler(t *testing.T) {
	reg := object.NewRegistry()
	m := vm.New(reg)
	compileAndLoad(t, reg, "cron.int", "classe cron\nvar inttempo t\nfunc inicializar\n  t = 5\n  ret 1\n")

	obj, ok := m.CreateObject("cron")
	require.True(t, ok)

	for i := 0; i < 4; i++ {
		handler.TickTimers()
	}
	assert.Empty(t, handler.DrainPending())

	handler.TickTimers()
	events := handler.DrainPending()
	require.Len(t, events, 1)
	assert.Equal(t, obj.Ref(), events[0].Owner)
	assert.Equal(t, "t_exec", events[0].FuncName)
}
