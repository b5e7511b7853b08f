package lang

import (
	"strconv"
	"strings"
)

// Node is any AST node.
type Node interface {
	Position() Pos
}

// Expr is an expression node.
type Expr interface {
	Node
	exprNode()
}

// Stmt is a statement node.
type Stmt interface {
	Node
	stmtNode()
}

// Program is the root of a parsed source file.
type Program struct {
	// Search is the default namespace search order.
	Search     []string
	Statements []Stmt
	// Vars lists bound variable names in declaration order.
	Vars []string
	// Render is the explicit render target, or nil.
	Render *SurfaceRef
}

// NamespaceSource records how a call's namespace was determined.
type NamespaceSource int

// Namespace sources, lowest precedence first.
const (
	SourceDefault NamespaceSource = iota
	SourceBlock
	SourceQualified
	SourceFrom
)

func (s NamespaceSource) String() string {
	switch s {
	case SourceDefault:
		return "default"
	case SourceBlock:
		return "block"
	case SourceQualified:
		return "qualified"
	case SourceFrom:
		return "from"
	}

	return "unknown"
}

// NamespaceRef is the namespace snapshot attached to a call. It is a copy
// taken at parse time, never a live reference to parser state.
type NamespaceRef struct {
	Name     string
	Path     []string
	Explicit bool
	Source   NamespaceSource
	Resolved bool
	Search   []string
}

// Preferred returns the namespaces a bare call name is tried against, in
// order.
func (n NamespaceRef) Preferred() []string {
	if n.Name == "" {
		return n.Search
	}

	out := make([]string, 0, len(n.Search)+1)
	out = append(out, n.Name)

	for _, s := range n.Search {
		if s != n.Name {
			out = append(out, s)
		}
	}

	return out
}

// SurfaceKind tags a [SurfaceRef].
type SurfaceKind int

// Surface kinds.
const (
	SurfaceOutput SurfaceKind = iota
	SurfaceFeedback
	SurfaceSource
	SurfaceTemp
)

var surfacePrefix = [...]string{
	SurfaceOutput:   "o",
	SurfaceFeedback: "f",
	SurfaceSource:   "s",
	SurfaceTemp:     "t",
}

func (k SurfaceKind) String() string {
	switch k {
	case SurfaceOutput:
		return "output"
	case SurfaceFeedback:
		return "feedback"
	case SurfaceSource:
		return "source"
	case SurfaceTemp:
		return "temp"
	}

	return "unknown"
}

// SurfaceRef names a surface: a persistent output, feedback or source slot,
// or the result of another step (temp).
type SurfaceRef struct {
	Kind  SurfaceKind
	Index int
	Pos
}

// Name returns the DSL spelling, e.g. "o0" or "f2". Temp references are
// spelled "t<index>".
func (s SurfaceRef) Name() string {
	return surfacePrefix[s.Kind] + strconv.Itoa(s.Index)
}

// ParseSurface parses a surface name such as "o1" or "f0".
func ParseSurface(name string) (SurfaceRef, bool) {
	if len(name) != 2 || !isDigit(name[1]) {
		return SurfaceRef{}, false
	}

	limit, ok := surfaceLimits[name[0]]
	idx := int(name[1] - '0')

	if !ok || idx >= limit {
		return SurfaceRef{}, false
	}

	kind := map[byte]SurfaceKind{'o': SurfaceOutput, 'f': SurfaceFeedback, 's': SurfaceSource}[name[0]]

	return SurfaceRef{Kind: kind, Index: idx}, true
}

func (SurfaceRef) exprNode() {}

// NumberLit is a numeric literal, possibly the result of constant folding.
type NumberLit struct {
	Value float64
	Raw   string
	Pos
}

// StringLit is a string literal.
type StringLit struct {
	Value string
	Pos
}

// BoolLit is true or false.
type BoolLit struct {
	Value bool
	Pos
}

// ColorLit is a hex color literal. RGBA components are in [0,1].
type ColorLit struct {
	Raw  string
	RGBA [4]float64
	Pos
}

// Ident is a bare identifier.
type Ident struct {
	Name string
	Pos
}

// Member is a dotted path such as blend.mode.add.
type Member struct {
	Path []string
	Pos
}

// Func is a zero-argument closure; Source is its body text.
type Func struct {
	Source string
	Pos
}

// KeywordArg is a name: value call argument.
type KeywordArg struct {
	Name  string
	Value Expr
	Pos
}

// Call is one operation invocation.
type Call struct {
	Name   string
	Args   []Expr
	Kwargs []KeywordArg
	NS     NamespaceRef
	Pos
}

// QualifiedName returns the call name with its explicit namespace, if any.
func (c *Call) QualifiedName() string {
	if c.NS.Explicit && c.NS.Name != "" {
		return c.NS.Name + "." + c.Name
	}

	return c.Name
}

// Kwarg returns the keyword argument named name.
func (c *Call) Kwarg(name string) (Expr, bool) {
	for _, kw := range c.Kwargs {
		if kw.Name == name {
			return kw.Value, true
		}
	}

	return nil, false
}

// Chain is a sequence of calls, optionally based on a variable and
// optionally terminated by out().
type Chain struct {
	// Base is a variable name the chain extends, or empty.
	Base  string
	Calls []*Call
	// Out is the out() target; nil when the chain has no out().
	Out    Expr
	HasOut bool
	Pos
}

func (*NumberLit) exprNode() {}
func (*StringLit) exprNode() {}
func (*BoolLit) exprNode() {}
func (*ColorLit) exprNode() {}
func (*Ident) exprNode() {}
func (*Member) exprNode() {}
func (*Func) exprNode() {}
func (*Call) exprNode() {}
func (*Chain) exprNode() {}

// Dotted returns the path joined with '.'.
func (m *Member) Dotted() string { return strings.Join(m.Path, ".") }

// VarAssign is a let binding.
type VarAssign struct {
	Name  string
	Value Expr
	Pos
}

// ChainStmt is a chain used as a statement.
type ChainStmt struct {
	Chain *Chain
	Pos
}

// CondBranch is one if/elif arm.
type CondBranch struct {
	Cond Expr
	Body []Stmt
	Pos
}

// If is an if/elif/else statement.
type If struct {
	Branches []CondBranch
	Else     []Stmt
	HasElse  bool
	Pos
}

// Loop repeats its body Count times; a nil Count means once.
type Loop struct {
	Count Expr
	Body  []Stmt
	Pos
}

// Break exits the innermost loop.
type Break struct{ Pos }

// Continue skips to the next iteration.
type Continue struct{ Pos }

// Return ends the program.
type Return struct{ Pos }

func (*VarAssign) stmtNode() {}
func (*ChainStmt) stmtNode() {}
func (*If) stmtNode() {}
func (*Loop) stmtNode() {}
func (*Break) stmtNode() {}
func (*Continue) stmtNode() {}
func (*Return) stmtNode() {}
