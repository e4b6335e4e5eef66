// Package parser builds the AST consumed by the bytecode compiler
// (spec §4.2). The concrete grammar is not reproduced from any particular
// dialect (spec §1); this is a small recursive-descent parser over the
// constructs spec.md documents: classes, typed variables, constants,
// functions, control flow, handler member access, and the operator set.
package parser

import (
	"fmt"

	"github.com/magoolation/intmud/internal/ast"
	"github.com/magoolation/intmud/internal/lexer"
)

type Error struct {
	File string
	Line int
	Col  int
	Msg  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s:%d:%d: %s", e.File, e.Line, e.Col, e.Msg)
}

type Parser struct {
	file   string
	toks   []lexer.Token
	pos    int
	errors []*Error
}

func New(file, src string) *Parser {
	return &Parser{file: file, toks: lexer.New(file, src).Tokens()}
}

func (p *Parser) Errors() []*Error { return p.errors }

func (p *Parser) cur() lexer.Token  { return p.toks[p.pos] }
func (p *Parser) pk(n int) lexer.Token {
	if p.pos+n >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.pos+n]
}

func (p *Parser) at(kind lexer.TokenType, text string) bool {
	t := p.cur()
	return t.Type == kind && (text == "" || t.Text == text)
}

func (p *Parser) atOp(op string) bool    { return p.at(lexer.TokOp, op) }
func (p *Parser) atKw(kw string) bool    { return p.cur().Type == lexer.TokIdent && p.cur().Text == kw }

func (p *Parser) next() lexer.Token {
	t := p.cur()
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *Parser) expectOp(op string) lexer.Token {
	if !p.atOp(op) {
		p.errorf("expected %q, got %q", op, p.cur().Text)
		return p.cur()
	}
	return p.next()
}

func (p *Parser) errorf(format string, args ...any) {
	t := p.cur()
	p.errors = append(p.errors, &Error{File: p.file, Line: t.Line, Col: t.Col, Msg: fmt.Sprintf(format, args...)})
}

func (p *Parser) pos_() ast.Pos {
	t := p.cur()
	return ast.Pos{File: p.file, Line: t.Line, Col: t.Col}
}

// ParseClass parses a full `classe` source unit, which runs to EOF; there is
// no class-closing keyword (a `fim` inside a function body is a terminate
// statement).
func (p *Parser) ParseClass() *ast.Class {
	cls := &ast.Class{Source: p.file}
	cls.Pos = p.pos_()
	if !p.atKw("classe") {
		p.errorf("expected 'classe', got %q", p.cur().Text)
		return cls
	}
	p.next()
	cls.Name = p.next().Text
	if p.atKw("herda") {
		p.next()
		cls.Bases = append(cls.Bases, p.next().Text)
		for p.atOp(",") {
			p.next()
			cls.Bases = append(cls.Bases, p.next().Text)
		}
	}
	for p.cur().Type != lexer.TokEOF {
		switch {
		case p.atKw("var"):
			cls.Variables = append(cls.Variables, p.parseVarDecl())
		case p.atKw("comum"):
			p.next()
			vd := p.parseVarDecl()
			vd.Common = true
			cls.Variables = append(cls.Variables, vd)
		case p.atKw("salvo"):
			p.next()
			vd := p.parseVarDecl()
			vd.Saved = true
			cls.Variables = append(cls.Variables, vd)
		case p.atKw("const"):
			cls.Constants = append(cls.Constants, p.parseConstDecl())
		case p.atKw("func"):
			cls.Functions = append(cls.Functions, p.parseFuncDecl())
		default:
			p.errorf("unexpected token %q in class body", p.cur().Text)
			p.next()
		}
	}
	return cls
}

func (p *Parser) parseVarDecl() *ast.VarDecl {
	pos := p.pos_()
	p.next() // 'var'
	typ := p.next().Text
	name := p.next().Text
	vd := &ast.VarDecl{Type: typ, Name: name}
	vd.Pos = pos
	if p.atOp("[") {
		p.next()
		if p.cur().Type == lexer.TokInt {
			vd.ArraySize = int(p.next().IVal)
		}
		p.expectOp("]")
	}
	if p.atOp("=") {
		p.next()
		vd.Init = p.parseExpr()
	}
	return vd
}

func (p *Parser) parseConstDecl() *ast.ConstDecl {
	pos := p.pos_()
	p.next() // 'const'
	name := p.next().Text
	p.expectOp("=")
	cd := &ast.ConstDecl{Name: name}
	cd.Pos = pos
	if p.atOp("(") {
		p.next()
		e := p.parseExpr()
		p.expectOp(")")
		cd.ExprVal = e
		return cd
	}
	switch p.cur().Type {
	case lexer.TokInt:
		v := p.next().IVal
		cd.IntVal = &v
	case lexer.TokDouble:
		v := p.next().DVal
		cd.DoubleVal = &v
	case lexer.TokString:
		v := p.next().Text
		cd.StringVal = &v
	default:
		cd.ExprVal = p.parseExpr()
	}
	return cd
}

func (p *Parser) parseFuncDecl() *ast.FuncDecl {
	pos := p.pos_()
	p.next() // 'func'
	name := p.next().Text
	fd := &ast.FuncDecl{Name: name}
	fd.Pos = pos
	fd.Body = p.parseBlockUntil("func", "classe")
	return fd
}

// parseBlockUntil parses statements until a keyword in stopWords begins the
// current token, or EOF.
func (p *Parser) parseBlockUntil(stopWords ...string) []ast.Stmt {
	var stmts []ast.Stmt
	for p.cur().Type != lexer.TokEOF {
		if p.cur().Type == lexer.TokIdent {
			for _, w := range stopWords {
				if p.cur().Text == w {
					return stmts
				}
			}
		}
		stmts = append(stmts, p.parseStmt())
	}
	return stmts
}

func (p *Parser) parseStmt() ast.Stmt {
	pos := p.pos_()
	switch {
	case p.atKw("se"):
		return p.parseIf()
	case p.atKw("enquanto"):
		return p.parseWhile("")
	case p.atKw("para"):
		return p.parseFor("")
	case p.atKw("percorrer"):
		return p.parseForeach("")
	case p.atKw("escolha"):
		return p.parseSwitch()
	case p.atKw("sair"):
		p.next()
		return p.parseBreakContinue(true, pos)
	case p.atKw("continuar"):
		p.next()
		return p.parseBreakContinue(false, pos)
	case p.atKw("ret"):
		p.next()
		return p.parseReturn(pos)
	case p.atKw("fim"):
		p.next()
		s := &ast.TerminateStmt{}
		s.Pos = pos
		return s
	case p.atKw("var"):
		return p.parseVarStmt(pos)
	case p.cur().Type == lexer.TokIdent && p.pk(1).Type == lexer.TokOp && p.pk(1).Text == ":" && isLabelContext(p):
		label := p.next().Text
		p.next() // ':'
		return p.parseLabelled(label)
	default:
		e := p.parseExpr()
		s := &ast.ExprStmt{X: e}
		s.Pos = pos
		return s
	}
}

func isLabelContext(p *Parser) bool {
	switch p.pk(2).Text {
	case "enquanto", "para", "percorrer":
		return true
	}
	return false
}

func (p *Parser) parseLabelled(label string) ast.Stmt {
	switch {
	case p.atKw("enquanto"):
		return p.parseWhile(label)
	case p.atKw("para"):
		return p.parseFor(label)
	case p.atKw("percorrer"):
		return p.parseForeach(label)
	default:
		p.errorf("expected loop after label %q", label)
		return p.parseStmt()
	}
}

func (p *Parser) parseVarStmt(pos ast.Pos) ast.Stmt {
	p.next() // 'var'
	typ := p.next().Text
	name := p.next().Text
	vs := &ast.VarStmt{Type: typ, Name: name}
	vs.Pos = pos
	if p.atOp("[") {
		p.next()
		if p.cur().Type == lexer.TokInt {
			vs.ArraySize = int(p.next().IVal)
		}
		p.expectOp("]")
	}
	if p.atOp("=") {
		p.next()
		vs.Init = p.parseExpr()
	}
	return vs
}

func (p *Parser) parseIf() ast.Stmt {
	pos := p.pos_()
	p.next() // 'se'
	cond := p.parseExpr()
	then := p.parseBlockUntil("senao", "fim_se", "fim")
	st := &ast.IfStmt{Cond: cond, Then: then}
	st.Pos = pos
	if p.atKw("senao") {
		p.next()
		st.Else = p.parseBlockUntil("fim_se", "fim")
	}
	if p.atKw("fim_se") || p.atKw("fim") {
		p.next()
	}
	return st
}

func (p *Parser) parseWhile(label string) ast.Stmt {
	pos := p.pos_()
	p.next() // 'enquanto'
	cond := p.parseExpr()
	body := p.parseBlockUntil("fim_enquanto", "fim")
	if p.cur().Type == lexer.TokIdent {
		p.next()
	}
	st := &ast.WhileStmt{Label: label, Cond: cond, Body: body}
	st.Pos = pos
	return st
}

func (p *Parser) parseFor(label string) ast.Stmt {
	pos := p.pos_()
	p.next() // 'para'
	var init ast.Stmt
	if !p.atOp(";") {
		init = p.parseStmt()
	}
	p.expectOp(";")
	var cond ast.Expr
	if !p.atOp(";") {
		cond = p.parseExpr()
	}
	p.expectOp(";")
	var step ast.Stmt
	if !p.atKw("fazer") {
		e := p.parseExpr()
		s := &ast.ExprStmt{X: e}
		step = s
	}
	body := p.parseBlockUntil("fim_para", "fim")
	if p.cur().Type == lexer.TokIdent {
		p.next()
	}
	st := &ast.ForStmt{Label: label, Init: init, Cond: cond, Step: step, Body: body}
	st.Pos = pos
	return st
}

func (p *Parser) parseForeach(label string) ast.Stmt {
	pos := p.pos_()
	p.next() // 'percorrer'
	seq := p.parseExpr()
	valueVar := ""
	if p.atKw("como") {
		p.next()
		valueVar = p.next().Text
	}
	body := p.parseBlockUntil("fim_percorrer", "fim")
	if p.cur().Type == lexer.TokIdent {
		p.next()
	}
	st := &ast.ForeachStmt{Label: label, ValueVar: valueVar, Seq: seq, Body: body}
	st.Pos = pos
	return st
}

func (p *Parser) parseSwitch() ast.Stmt {
	pos := p.pos_()
	p.next() // 'escolha'
	x := p.parseExpr()
	st := &ast.SwitchStmt{X: x}
	st.Pos = pos
	for p.atKw("caso") || p.atKw("outro") {
		c := &ast.SwitchCase{}
		if p.atKw("outro") {
			p.next()
			c.Default = true
		} else {
			p.next()
			c.Values = append(c.Values, p.parseExpr())
			for p.atOp(",") {
				p.next()
				c.Values = append(c.Values, p.parseExpr())
			}
		}
		c.Body = p.parseBlockUntil("caso", "outro", "fim_escolha", "fim")
		st.Cases = append(st.Cases, c)
	}
	if p.atKw("fim_escolha") || p.atKw("fim") {
		p.next()
	}
	return st
}

func (p *Parser) parseBreakContinue(isBreak bool, pos ast.Pos) ast.Stmt {
	label := ""
	if p.cur().Type == lexer.TokIdent && p.cur().Text != "se" {
		label = p.next().Text
	}
	var cond ast.Expr
	if p.atKw("se") {
		p.next()
		cond = p.parseExpr()
	}
	if isBreak {
		s := &ast.BreakStmt{Label: label, Cond: cond}
		s.Pos = pos
		return s
	}
	s := &ast.ContinueStmt{Label: label, Cond: cond}
	s.Pos = pos
	return s
}

func (p *Parser) parseReturn(pos ast.Pos) ast.Stmt {
	st := &ast.ReturnStmt{}
	st.Pos = pos
	if p.atOp(";") || p.cur().Type == lexer.TokIdent {
		return st
	}
	first := p.parseExpr()
	if p.atOp(",") {
		p.next()
		second := p.parseExpr()
		st.Cond = first
		st.Value = second
	} else {
		st.Value = first
	}
	return st
}

// --- expressions: precedence climbing ---

func (p *Parser) parseExpr() ast.Expr { return p.parseAssign() }

var assignOps = map[string]bool{
	"=": true, "+=": true, "-=": true, "*=": true, "/=": true, "%=": true,
	"<<=": true, ">>=": true, "&=": true, "|=": true, "^=": true,
}

func (p *Parser) parseAssign() ast.Expr {
	lhs := p.parseTernary()
	if p.cur().Type == lexer.TokOp && assignOps[p.cur().Text] {
		op := p.next().Text
		rhs := p.parseAssign()
		e := &ast.AssignExpr{Op: op, LHS: lhs, RHS: rhs}
		e.Pos = lhs.Position()
		return e
	}
	return lhs
}

func (p *Parser) parseTernary() ast.Expr {
	cond := p.parseCoalesce()
	if p.atOp("?") {
		p.next()
		then := p.parseExpr()
		p.expectOp(":")
		els := p.parseExpr()
		e := &ast.TernaryExpr{Cond: cond, Then: then, Else: els}
		e.Pos = cond.Position()
		return e
	}
	return cond
}

func (p *Parser) parseCoalesce() ast.Expr {
	x := p.parseLogicalOr()
	for p.atOp("??") {
		p.next()
		y := p.parseLogicalOr()
		e := &ast.CoalesceExpr{X: x, Y: y}
		e.Pos = x.Position()
		x = e
	}
	return x
}

func (p *Parser) binLevel(next func() ast.Expr, ops ...string) ast.Expr {
	x := next()
	for {
		matched := ""
		for _, op := range ops {
			if p.atOp(op) {
				matched = op
				break
			}
		}
		if matched == "" {
			return x
		}
		p.next()
		y := next()
		e := &ast.BinaryExpr{Op: matched, X: x, Y: y}
		e.Pos = x.Position()
		x = e
	}
}

func (p *Parser) parseLogicalOr() ast.Expr  { return p.binLevel(p.parseLogicalAnd, "||") }
func (p *Parser) parseLogicalAnd() ast.Expr { return p.binLevel(p.parseBitOr, "&&") }
func (p *Parser) parseBitOr() ast.Expr      { return p.binLevel(p.parseBitXor, "|") }
func (p *Parser) parseBitXor() ast.Expr     { return p.binLevel(p.parseBitAnd, "^") }
func (p *Parser) parseBitAnd() ast.Expr     { return p.binLevel(p.parseEquality, "&") }
func (p *Parser) parseEquality() ast.Expr   { return p.binLevel(p.parseRelational, "==", "!=") }
func (p *Parser) parseRelational() ast.Expr {
	return p.binLevel(p.parseShift, "<=", ">=", "<", ">")
}
func (p *Parser) parseShift() ast.Expr      { return p.binLevel(p.parseAdditive, "<<", ">>") }
func (p *Parser) parseAdditive() ast.Expr   { return p.binLevel(p.parseMultiplicative, "+", "-") }
func (p *Parser) parseMultiplicative() ast.Expr {
	return p.binLevel(p.parseUnary, "*", "/", "%")
}

func (p *Parser) parseUnary() ast.Expr {
	pos := p.pos_()
	switch {
	case p.atOp("-"):
		p.next()
		x := p.parseUnary()
		e := &ast.UnaryExpr{Op: "-", X: x}
		e.Pos = pos
		return e
	case p.atOp("!"):
		p.next()
		x := p.parseUnary()
		e := &ast.UnaryExpr{Op: "!", X: x}
		e.Pos = pos
		return e
	case p.atOp("~"):
		p.next()
		x := p.parseUnary()
		e := &ast.UnaryExpr{Op: "~", X: x}
		e.Pos = pos
		return e
	case p.atOp("++") || p.atOp("--"):
		op := p.next().Text
		x := p.parseUnary()
		e := &ast.IncDecExpr{Op: op, Post: false, X: x}
		e.Pos = pos
		return e
	default:
		return p.parsePostfix()
	}
}

func (p *Parser) parsePostfix() ast.Expr {
	x := p.parsePrimary()
	for {
		switch {
		case p.atOp("."):
			p.next()
			countdown := false
			if p.atOp("@") {
				p.next()
				countdown = true
			}
			name, dynMid, prefix, suffix := p.parseMemberName()
			if p.atOp("(") {
				args := p.parseArgs()
				e := &ast.MemberCallExpr{Receiver: x, Member: name, Countdown: countdown,
					DynMiddle: dynMid, Prefix: prefix, Suffix: suffix, Args: args}
				e.Pos = x.Position()
				x = e
			} else {
				e := &ast.MemberExpr{Receiver: x, Member: name, Countdown: countdown,
					DynMiddle: dynMid, Prefix: prefix, Suffix: suffix}
				e.Pos = x.Position()
				x = e
			}
		case p.atOp("["):
			p.next()
			idx := p.parseExpr()
			p.expectOp("]")
			e := &ast.IndexExpr{X: x, Index: idx}
			e.Pos = x.Position()
			x = e
		case p.atOp("("):
			args := p.parseArgs()
			e := &ast.CallExpr{Callee: x, Args: args}
			e.Pos = x.Position()
			x = e
		case p.atOp("++") || p.atOp("--"):
			op := p.next().Text
			e := &ast.IncDecExpr{Op: op, Post: true, X: x}
			e.Pos = x.Position()
			x = e
		default:
			return x
		}
	}
}

// parseMemberName handles plain `name` and the dynamic `prefix_[expr]_suffix`
// form (spec §4.2, §4.7).
func (p *Parser) parseMemberName() (name string, dynMid ast.Expr, prefix, suffix string) {
	if p.atOp("[") {
		p.next()
		dynMid = p.parseExpr()
		p.expectOp("]")
		if p.cur().Type == lexer.TokIdent {
			suffix = p.next().Text
		}
		return "", dynMid, "", suffix
	}
	ident := p.next().Text
	if p.atOp("[") {
		p.next()
		dynMid = p.parseExpr()
		p.expectOp("]")
		if p.cur().Type == lexer.TokIdent {
			suffix = p.next().Text
		}
		return "", dynMid, ident, suffix
	}
	return ident, nil, "", ""
}

func (p *Parser) parseArgs() []ast.Expr {
	p.expectOp("(")
	var args []ast.Expr
	if !p.atOp(")") {
		args = append(args, p.parseExpr())
		for p.atOp(",") {
			p.next()
			args = append(args, p.parseExpr())
		}
	}
	p.expectOp(")")
	return args
}

func (p *Parser) parsePrimary() ast.Expr {
	pos := p.pos_()
	t := p.cur()
	switch t.Type {
	case lexer.TokInt:
		p.next()
		e := &ast.IntLit{Value: t.IVal}
		e.Pos = pos
		return e
	case lexer.TokDouble:
		p.next()
		e := &ast.DoubleLit{Value: t.DVal}
		e.Pos = pos
		return e
	case lexer.TokString:
		p.next()
		e := &ast.StringLit{Value: t.Text}
		e.Pos = pos
		return e
	case lexer.TokIdent:
		return p.parseIdentPrimary(pos)
	case lexer.TokOp:
		switch t.Text {
		case "(":
			p.next()
			e := p.parseExpr()
			p.expectOp(")")
			return e
		case "[":
			p.next()
			arr := &ast.ArrayLit{}
			arr.Pos = pos
			if !p.atOp("]") {
				arr.Elems = append(arr.Elems, p.parseExpr())
				for p.atOp(",") {
					p.next()
					arr.Elems = append(arr.Elems, p.parseExpr())
				}
			}
			p.expectOp("]")
			return arr
		case "$":
			p.next()
			if p.atOp("[") {
				p.next()
				e := p.parseExpr()
				p.expectOp("]")
				ie := &ast.IndexedRef{NameExpr: e}
				ie.Pos = pos
				return ie
			}
			name := p.next().Text
			ie := &ast.IndexedRef{Name: name}
			ie.Pos = pos
			return ie
		}
	}
	p.errorf("unexpected token %q", t.Text)
	p.next()
	n := &ast.NullLit{}
	n.Pos = pos
	return n
}

func (p *Parser) parseIdentPrimary(pos ast.Pos) ast.Expr {
	name := p.next().Text
	switch name {
	case "nulo":
		e := &ast.NullLit{}
		e.Pos = pos
		return e
	case "este":
		e := &ast.ThisExpr{}
		e.Pos = pos
		return e
	case "args":
		e := &ast.ArgExpr{N: -1}
		e.Pos = pos
		return e
	}
	if len(name) == 4 && name[:3] == "arg" && name[3] >= '0' && name[3] <= '9' {
		e := &ast.ArgExpr{N: int(name[3] - '0')}
		e.Pos = pos
		return e
	}
	if p.atOp(":") {
		p.next()
		var suffixExpr ast.Expr
		// ClassName[expr]:member already consumed '[' as part of name? Not
		// here: ClassName[expr] is only meaningful immediately before ':'.
		member := p.next().Text
		e := &ast.ClassMember{ClassName: name, ClassNameSuffix: suffixExpr, Member: member}
		e.Pos = pos
		return e
	}
	if p.atOp("[") {
		// ClassName[expr]:member dynamic class-name suffix form.
		save := p.pos
		p.next()
		idx := p.parseExpr()
		if p.atOp("]") {
			p.next()
			if p.atOp(":") {
				p.next()
				member := p.next().Text
				e := &ast.ClassMember{ClassName: name, ClassNameSuffix: idx, Member: member}
				e.Pos = pos
				return e
			}
		}
		p.pos = save
	}
	e := &ast.Ident{Name: name}
	e.Pos = pos
	return e
}
