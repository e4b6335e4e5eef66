package parser

import (
	"testing"

	"github.com/magoolation/intmud/internal/ast"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseHelloWorld(t *testing.T) {
	src := "classe main\nfunc inicializar\n  escrevaln(\"Ola, Mundo!\")\n  ret 1\n"
	p := New("main.int", src)
	cls := p.ParseClass()
	require.Empty(t, p.Errors())
	assert.Equal(t, "main", cls.Name)
	require.Len(t, cls.Functions, 1)
	fn := cls.Functions[0]
	assert.Equal(t, "inicializar", fn.Name)
	require.Len(t, fn.Body, 2)

	call, ok := fn.Body[0].(*ast.ExprStmt).X.(*ast.CallExpr)
	require.True(t, ok)
	ident, ok := call.Callee.(*ast.Ident)
	require.True(t, ok)
	assert.Equal(t, "escrevaln", ident.Name)

	ret, ok := fn.Body[1].(*ast.ReturnStmt)
	require.True(t, ok)
	lit, ok := ret.Value.(*ast.IntLit)
	require.True(t, ok)
	assert.EqualValues(t, 1, lit.Value)
}

func TestParseInheritance(t *testing.T) {
	p := New("c.int", "classe c herda b\n")
	cls := p.ParseClass()
	require.Empty(t, p.Errors())
	assert.Equal(t, []string{"b"}, cls.Bases)
}

func TestParseConditionalReturn(t *testing.T) {
	p := New("f.int", "classe x\nfunc f\n  ret arg0, 2\n")
	cls := p.ParseClass()
	require.Empty(t, p.Errors())
	ret := cls.Functions[0].Body[0].(*ast.ReturnStmt)
	require.NotNil(t, ret.Cond)
	require.NotNil(t, ret.Value)
}

func TestParseMemberCallAndIndex(t *testing.T) {
	p := New("m.int", "classe x\nfunc f\n  este.nome = arr[2]\n")
	cls := p.ParseClass()
	require.Empty(t, p.Errors())
	assign := cls.Functions[0].Body[0].(*ast.ExprStmt).X.(*ast.AssignExpr)
	_, ok := assign.LHS.(*ast.MemberExpr)
	require.True(t, ok)
	_, ok = assign.RHS.(*ast.IndexExpr)
	require.True(t, ok)
}

func TestParseSwitchWithDefault(t *testing.T) {
	src := "classe x\nfunc f\n  escolha arg0\n  caso 1\n    ret 1\n  outro\n    ret 0\n  fim_escolha\n"
	p := New("s.int", src)
	cls := p.ParseClass()
	require.Empty(t, p.Errors())
	sw := cls.Functions[0].Body[0].(*ast.SwitchStmt)
	require.Len(t, sw.Cases, 2)
	assert.True(t, sw.Cases[1].Default)
}
