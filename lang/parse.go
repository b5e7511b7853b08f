package lang

import (
	"context"
	"log/slog"
	"math"
	"slices"
	"strconv"
	"strings"
)

// ParseString tokenizes and parses src. Syntax errors carry src so they
// render with a source snippet.
func ParseString(ctx context.Context, src string, opts ...Option) (*Program, error) {
	toks, err := Tokenize(src)
	if err != nil {
		return nil, withSource(err, src)
	}

	prog, err := Parse(toks, opts...)
	if err != nil {
		return nil, withSource(err, src)
	}

	cfg := makeConfig(opts...)
	cfg.logger.TraceContext(ctx, "parse complete",
		slog.Int("tokens", len(toks)),
		slog.Int("statements", len(prog.Statements)),
		slog.Any("search", prog.Search))

	return prog, nil
}

// Parse builds a [Program] from tokens produced by [Tokenize].
//
// A program must begin with a search directive or a namespace block.
// Statements are let bindings, if/elif/else, loop, break, continue,
// return, render and chains of calls.
func Parse(tokens []Token, opts ...Option) (*Program, error) {
	if n := len(tokens); n == 0 || tokens[n-1].Kind != EOF {
		var at Pos
		if n > 0 {
			at = tokens[n-1].Pos
		}

		tokens = append(slices.Clip(tokens), Token{Kind: EOF, Pos: at})
	}

	p := &parser{
		toks: tokens,
		cfg:  makeConfig(opts...),
		prog: &Program{},
		vars: make(map[string]bool),
	}

	if err := p.parseProgram(); err != nil {
		return nil, err
	}

	return p.prog, nil
}

type parser struct {
	toks      []Token
	pos       int
	cfg       config
	prog      *Program
	vars      map[string]bool
	nsStack   []string
	loopDepth int
	nested    int
	depth     int
}

func (p *parser) peek() Token { return p.peekAt(0) }

func (p *parser) peekAt(n int) Token {
	if i := p.pos + n; i < len(p.toks) {
		return p.toks[i]
	}

	return p.toks[len(p.toks)-1]
}

func (p *parser) next() Token {
	t := p.peek()
	if p.pos < len(p.toks)-1 {
		p.pos++
	}

	return t
}

func (p *parser) is(kind Kind) bool { return p.peek().Kind == kind }

func (p *parser) isKeyword(word string) bool {
	t := p.peek()

	return t.Kind == Keyword && t.Lexeme == word
}

func (p *parser) expect(kind Kind) (Token, error) {
	t := p.peek()
	if t.Kind != kind {
		return t, p.unexpected(t, kind.String())
	}

	return p.next(), nil
}

func (p *parser) unexpected(t Token, want string) *SyntaxError {
	msg := "unexpected " + t.Kind.String()
	if t.Kind != EOF {
		msg += " " + strconv.Quote(t.String())
	}

	if want != "" {
		msg += ", expected " + want
	}

	return newSyntaxError(CodeUnexpectedToken, t.Pos, msg)
}

func (p *parser) enter(at Pos) error {
	p.depth++
	if p.depth > p.cfg.maxDepth {
		return newSyntaxError(CodeUnexpectedToken, at, "maximum nesting depth exceeded")
	}

	return nil
}

func (p *parser) leave() { p.depth-- }

func (p *parser) skipSemis() {
	for p.is(Semicolon) {
		p.next()
	}
}

func (p *parser) parseProgram() error {
	p.skipSemis()

	switch {
	case p.isKeyword("search"):
		if err := p.parseSearch(); err != nil {
			return err
		}

	case p.isKeyword("namespace") && p.peekAt(1).Kind == Identifier:
		p.prog.Search = []string{p.peekAt(1).Lexeme}

	default:
		return newSyntaxError(CodeMissingSearch, p.peek().Pos,
			"missing search directive: a program must begin with "+
				"\"search <namespace>\" or a namespace block")
	}

	for {
		p.skipSemis()

		if p.is(EOF) {
			return nil
		}

		stmts, err := p.parseStatement()
		if err != nil {
			return err
		}

		p.prog.Statements = append(p.prog.Statements, stmts...)
	}
}

func (p *parser) parseSearch() error {
	p.next()

	for {
		t, err := p.expect(Identifier)
		if err != nil {
			return err
		}

		if !slices.Contains(p.prog.Search, t.Lexeme) {
			p.prog.Search = append(p.prog.Search, t.Lexeme)
		}

		if !p.is(Comma) {
			return nil
		}

		p.next()
	}
}

// parseStatement returns the statements produced by one source statement.
// Namespace blocks flatten into their body; render directives produce
// nothing.
func (p *parser) parseStatement() ([]Stmt, error) {
	t := p.peek()

	if t.Kind == Keyword {
		switch t.Lexeme {
		case "let":
			s, err := p.parseLet()

			return one(s, err)

		case "if":
			s, err := p.parseIf()

			return one(s, err)

		case "loop":
			s, err := p.parseLoop()

			return one(s, err)

		case "break", "continue":
			p.next()

			if p.loopDepth == 0 {
				return nil, newSyntaxError(CodeFlowOutsideLoop, t.Pos,
					t.Lexeme+" outside loop")
			}

			if t.Lexeme == "break" {
				return []Stmt{&Break{Pos: t.Pos}}, nil
			}

			return []Stmt{&Continue{Pos: t.Pos}}, nil

		case "return":
			p.next()

			return []Stmt{&Return{Pos: t.Pos}}, nil

		case "render":
			return nil, p.parseRender()

		case "namespace":
			return p.parseNamespace()

		case "search":
			return nil, newSyntaxError(CodeUnexpectedToken, t.Pos,
				"search directive must be the first statement")
		}
	}

	e, err := p.parseExpr()
	if err != nil {
		return nil, err
	}

	switch x := e.(type) {
	case *Chain:
		return []Stmt{&ChainStmt{Chain: x, Pos: x.Pos}}, nil
	case *Call:
		return []Stmt{&ChainStmt{Chain: &Chain{Calls: []*Call{x}, Pos: x.Pos}, Pos: x.Pos}}, nil
	}

	return nil, newSyntaxError(CodeUnexpectedToken, t.Pos, "expected a chain statement")
}

func one(s Stmt, err error) ([]Stmt, error) {
	if err != nil {
		return nil, err
	}

	return []Stmt{s}, nil
}

func (p *parser) parseLet() (Stmt, error) {
	at := p.next().Pos

	name, err := p.expect(Identifier)
	if err != nil {
		return nil, err
	}

	if _, err := p.expect(Assign); err != nil {
		return nil, err
	}

	value, err := p.parseExpr()
	if err != nil {
		return nil, err
	}

	if !p.vars[name.Lexeme] {
		p.prog.Vars = append(p.prog.Vars, name.Lexeme)
	}

	p.vars[name.Lexeme] = true

	return &VarAssign{Name: name.Lexeme, Value: value, Pos: at}, nil
}

func (p *parser) parseIf() (Stmt, error) {
	stmt := &If{Pos: p.peek().Pos}

	for first := true; first || p.isKeyword("elif"); first = false {
		at := p.next().Pos

		cond, err := p.parseExpr()
		if err != nil {
			return nil, err
		}

		body, err := p.parseBlock()
		if err != nil {
			return nil, err
		}

		stmt.Branches = append(stmt.Branches, CondBranch{Cond: cond, Body: body, Pos: at})
	}

	if p.isKeyword("else") {
		p.next()

		body, err := p.parseBlock()
		if err != nil {
			return nil, err
		}

		stmt.Else, stmt.HasElse = body, true
	}

	return stmt, nil
}

func (p *parser) parseLoop() (Stmt, error) {
	stmt := &Loop{Pos: p.next().Pos}

	if !p.is(LBrace) {
		count, err := p.parseExpr()
		if err != nil {
			return nil, err
		}

		stmt.Count = count
	}

	p.loopDepth++
	defer func() { p.loopDepth-- }()

	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}

	stmt.Body = body

	return stmt, nil
}

func (p *parser) parseBlock() ([]Stmt, error) {
	open, err := p.expect(LBrace)
	if err != nil {
		return nil, err
	}

	if err := p.enter(open.Pos); err != nil {
		return nil, err
	}
	defer p.leave()

	p.nested++
	defer func() { p.nested-- }()

	return p.parseBody()
}

func (p *parser) parseBody() ([]Stmt, error) {
	var body []Stmt

	for {
		p.skipSemis()

		if p.is(RBrace) {
			p.next()

			return body, nil
		}

		if p.is(EOF) {
			return nil, p.unexpected(p.peek(), "}")
		}

		stmts, err := p.parseStatement()
		if err != nil {
			return nil, err
		}

		body = append(body, stmts...)
	}
}

func (p *parser) parseNamespace() ([]Stmt, error) {
	p.next()

	name, err := p.expect(Identifier)
	if err != nil {
		return nil, err
	}

	open, err := p.expect(LBrace)
	if err != nil {
		return nil, err
	}

	if err := p.enter(open.Pos); err != nil {
		return nil, err
	}
	defer p.leave()

	p.nsStack = append(p.nsStack, name.Lexeme)
	defer func() { p.nsStack = p.nsStack[:len(p.nsStack)-1] }()

	return p.parseBody()
}

func (p *parser) parseRender() error {
	t := p.next()

	if p.nested > 0 {
		return newSyntaxError(CodeUnexpectedToken, t.Pos,
			"render directive must be at top level")
	}

	if p.prog.Render != nil {
		return newSyntaxError(CodeDuplicateRender, t.Pos, "duplicate render directive")
	}

	if _, err := p.expect(LParen); err != nil {
		return err
	}

	st, err := p.expect(Surface)
	if err != nil {
		return err
	}

	ref, _ := ParseSurface(st.Lexeme)
	ref.Pos = st.Pos

	if _, err := p.expect(RParen); err != nil {
		return err
	}

	p.prog.Render = &ref

	return nil
}

func (p *parser) nsRef(qual []string) NamespaceRef {
	search := slices.Clone(p.prog.Search)

	switch {
	case len(qual) > 0:
		return NamespaceRef{
			Name:     strings.Join(qual, "."),
			Path:     slices.Clone(qual),
			Explicit: true,
			Source:   SourceQualified,
			Resolved: true,
			Search:   search,
		}

	case len(p.nsStack) > 0:
		top := p.nsStack[len(p.nsStack)-1]

		return NamespaceRef{
			Name:     top,
			Path:     []string{top},
			Source:   SourceBlock,
			Resolved: true,
			Search:   search,
		}
	}

	return NamespaceRef{Source: SourceDefault, Resolved: len(search) > 0, Search: search}
}

// Expressions

func (p *parser) parseExpr() (Expr, error) {
	if err := p.enter(p.peek().Pos); err != nil {
		return nil, err
	}
	defer p.leave()

	return p.parseAdditive()
}

func (p *parser) parseAdditive() (Expr, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}

	for p.is(Plus) || p.is(Minus) {
		op := p.next()

		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}

		if left, err = fold(op, left, right); err != nil {
			return nil, err
		}
	}

	return left, nil
}

func (p *parser) parseMultiplicative() (Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}

	for p.is(Star) || p.is(Slash) {
		op := p.next()

		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}

		if left, err = fold(op, left, right); err != nil {
			return nil, err
		}
	}

	return left, nil
}

func (p *parser) parseUnary() (Expr, error) {
	if !p.is(Minus) && !p.is(Plus) {
		return p.parsePrimary()
	}

	op := p.next()

	operand, err := p.parseUnary()
	if err != nil {
		return nil, err
	}

	n, ok := operand.(*NumberLit)
	if !ok {
		return nil, newSyntaxError(CodeInvalidArithmetic, op.Pos,
			"unary "+op.Lexeme+" requires a numeric literal")
	}

	if op.Kind == Plus {
		return n, nil
	}

	return &NumberLit{Value: -n.Value, Raw: "-" + n.Raw, Pos: op.Pos}, nil
}

func fold(op Token, left, right Expr) (Expr, error) {
	l, lok := left.(*NumberLit)
	r, rok := right.(*NumberLit)

	if !lok || !rok {
		return nil, newSyntaxError(CodeInvalidArithmetic, op.Pos,
			"operator "+op.Lexeme+" requires numeric literals")
	}

	var v float64

	switch op.Kind {
	case Plus:
		v = l.Value + r.Value
	case Minus:
		v = l.Value - r.Value
	case Star:
		v = l.Value * r.Value
	case Slash:
		if r.Value == 0 {
			return nil, newSyntaxError(CodeInvalidArithmetic, op.Pos, "division by zero")
		}

		v = l.Value / r.Value
	}

	return &NumberLit{Value: v, Raw: formatNumber(v), Pos: l.Pos}, nil
}

func (p *parser) parsePrimary() (Expr, error) {
	t := p.peek()

	switch t.Kind {
	case Number:
		p.next()

		v, err := strconv.ParseFloat(t.Lexeme, 64)
		if err != nil {
			return nil, newSyntaxError(CodeUnexpectedToken, t.Pos,
				"invalid number "+strconv.Quote(t.Lexeme))
		}

		return &NumberLit{Value: v, Raw: t.Lexeme, Pos: t.Pos}, nil

	case String:
		p.next()

		return &StringLit{Value: t.Lexeme, Pos: t.Pos}, nil

	case Color:
		p.next()

		return parseColor(t.Lexeme, t.Pos), nil

	case Surface:
		p.next()

		ref, _ := ParseSurface(t.Lexeme)
		ref.Pos = t.Pos

		return &ref, nil

	case Closure:
		p.next()

		return &Func{Source: t.Lexeme, Pos: t.Pos}, nil

	case LParen:
		p.next()

		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}

		if _, err := p.expect(RParen); err != nil {
			return nil, err
		}

		return e, nil

	case Keyword:
		switch t.Lexeme {
		case "true", "false":
			p.next()

			return &BoolLit{Value: t.Lexeme == "true", Pos: t.Pos}, nil

		case "from":
			return p.parseFrom()
		}

	case Identifier:
		return p.parseNamed()
	}

	return nil, p.unexpected(t, "expression")
}

// parseNamed parses an expression starting with an identifier: a variable,
// a call (optionally qualified), an enum member path or Math.PI.
func (p *parser) parseNamed() (Expr, error) {
	first := p.next()

	if first.Lexeme == "Math" && p.is(Dot) && p.peekAt(1).Lexeme == "PI" {
		p.next()
		p.next()

		return &NumberLit{Value: math.Pi, Raw: "Math.PI", Pos: first.Pos}, nil
	}

	if p.vars[first.Lexeme] {
		switch {
		case p.is(Dot):
			return p.parseChainTail(&Chain{Base: first.Lexeme, Pos: first.Pos})
		case !p.is(LParen):
			return &Ident{Name: first.Lexeme, Pos: first.Pos}, nil
		}
	}

	path := []string{first.Lexeme}
	for p.is(Dot) && p.peekAt(1).Kind == Identifier {
		p.next()
		path = append(path, p.next().Lexeme)
	}

	if !p.is(LParen) {
		if len(path) == 1 {
			return &Ident{Name: first.Lexeme, Pos: first.Pos}, nil
		}

		return &Member{Path: path, Pos: first.Pos}, nil
	}

	call, err := p.parseCall(path[len(path)-1], path[:len(path)-1], first.Pos)
	if err != nil {
		return nil, err
	}

	if !p.is(Dot) {
		return call, nil
	}

	return p.parseChainTail(&Chain{Calls: []*Call{call}, Pos: first.Pos})
}

func (p *parser) parseFrom() (Expr, error) {
	call, err := p.parseFromCall()
	if err != nil {
		return nil, err
	}

	if !p.is(Dot) {
		return call, nil
	}

	return p.parseChainTail(&Chain{Calls: []*Call{call}, Pos: call.Pos})
}

// parseFromCall parses from(ns, name(args)) into a call pinned to ns.
func (p *parser) parseFromCall() (*Call, error) {
	at := p.next().Pos

	if _, err := p.expect(LParen); err != nil {
		return nil, err
	}

	ns := p.next()
	if ns.Kind != Identifier && ns.Kind != String {
		return nil, p.unexpected(ns, "namespace")
	}

	if _, err := p.expect(Comma); err != nil {
		return nil, err
	}

	name, err := p.expect(Identifier)
	if err != nil {
		return nil, err
	}

	call, err := p.parseCall(name.Lexeme, nil, name.Pos)
	if err != nil {
		return nil, err
	}

	call.NS = NamespaceRef{
		Name:     ns.Lexeme,
		Path:     []string{ns.Lexeme},
		Explicit: true,
		Source:   SourceFrom,
		Resolved: true,
		Search:   slices.Clone(p.prog.Search),
	}
	call.Pos = at

	if _, err := p.expect(RParen); err != nil {
		return nil, err
	}

	return call, nil
}

func (p *parser) parseCall(name string, qual []string, at Pos) (*Call, error) {
	open, err := p.expect(LParen)
	if err != nil {
		return nil, err
	}

	if err := p.enter(open.Pos); err != nil {
		return nil, err
	}
	defer p.leave()

	call := &Call{Name: name, NS: p.nsRef(qual), Pos: at}

	for !p.is(RParen) {
		t := p.peek()
		keyword := t.Kind == Identifier && p.peekAt(1).Kind == Colon

		if (keyword && len(call.Args) > 0) || (!keyword && len(call.Kwargs) > 0) {
			return nil, newSyntaxError(CodeMixedArguments, t.Pos,
				"cannot mix positional and keyword arguments")
		}

		if keyword {
			p.next()
			p.next()

			if _, dup := call.Kwarg(t.Lexeme); dup {
				return nil, newSyntaxError(CodeUnexpectedToken, t.Pos,
					"duplicate argument "+strconv.Quote(t.Lexeme))
			}

			v, err := p.parseExpr()
			if err != nil {
				return nil, err
			}

			call.Kwargs = append(call.Kwargs, KeywordArg{Name: t.Lexeme, Value: v, Pos: t.Pos})
		} else {
			v, err := p.parseExpr()
			if err != nil {
				return nil, err
			}

			call.Args = append(call.Args, v)
		}

		if !p.is(Comma) {
			break
		}

		p.next()
	}

	if _, err := p.expect(RParen); err != nil {
		return nil, err
	}

	return call, nil
}

func (p *parser) parseChainTail(ch *Chain) (Expr, error) {
	for p.is(Dot) {
		p.next()

		t := p.peek()
		if t.Kind == Keyword && t.Lexeme == "from" {
			call, err := p.parseFromCall()
			if err != nil {
				return nil, err
			}

			ch.Calls = append(ch.Calls, call)

			continue
		}

		if t.Kind != Identifier {
			return nil, p.unexpected(t, "call")
		}

		if t.Lexeme == "out" && p.peekAt(1).Kind == LParen {
			if err := p.parseOut(ch); err != nil {
				return nil, err
			}

			if p.is(Dot) {
				return nil, newSyntaxError(CodeOutMidChain, p.peek().Pos,
					"out() must terminate the chain")
			}

			return ch, nil
		}

		path := []string{p.next().Lexeme}
		for p.is(Dot) && p.peekAt(1).Kind == Identifier {
			p.next()
			path = append(path, p.next().Lexeme)
		}

		call, err := p.parseCall(path[len(path)-1], path[:len(path)-1], t.Pos)
		if err != nil {
			return nil, err
		}

		ch.Calls = append(ch.Calls, call)
	}

	return ch, nil
}

func (p *parser) parseOut(ch *Chain) error {
	at := p.next().Pos
	p.next()

	ch.HasOut = true

	if p.is(RParen) {
		ch.Out = &SurfaceRef{Kind: SurfaceOutput, Index: 0, Pos: at}
	} else {
		target, err := p.parseExpr()
		if err != nil {
			return err
		}

		ch.Out = target
	}

	_, err := p.expect(RParen)

	return err
}

func parseColor(raw string, at Pos) *ColorLit {
	hex := raw[1:]
	c := &ColorLit{Raw: raw, RGBA: [4]float64{0, 0, 0, 1}, Pos: at}

	if len(hex) == 3 {
		for i := range 3 {
			v, _ := strconv.ParseUint(hex[i:i+1], 16, 8)
			c.RGBA[i] = float64(v*17) / 255
		}

		return c
	}

	for i := 0; i+2 <= len(hex) && i/2 < 4; i += 2 {
		v, _ := strconv.ParseUint(hex[i:i+2], 16, 8)
		c.RGBA[i/2] = float64(v) / 255
	}

	return c
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
