package lang

import (
	"maps"
	"slices"
	"strconv"
)

// Kind identifies the lexical class of a [Token].
type Kind int

// Token kinds.
const (
	EOF Kind = iota
	Identifier
	Keyword
	Number
	String
	Color
	Surface
	Closure
	LParen
	RParen
	LBrace
	RBrace
	Comma
	Colon
	Dot
	Assign
	Plus
	Minus
	Star
	Slash
	Semicolon
)

var kindNames = [...]string{
	EOF:        "end of input",
	Identifier: "identifier",
	Keyword:    "keyword",
	Number:     "number",
	String:     "string",
	Color:      "color",
	Surface:    "surface",
	Closure:    "closure",
	LParen:     "(",
	RParen:     ")",
	LBrace:     "{",
	RBrace:     "}",
	Comma:      ",",
	Colon:      ":",
	Dot:        ".",
	Assign:     "=",
	Plus:       "+",
	Minus:      "-",
	Star:       "*",
	Slash:      "/",
	Semicolon:  ";",
}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}

	return "Kind(" + strconv.Itoa(int(k)) + ")"
}

var keywords = map[string]bool{
	"search":    true,
	"namespace": true,
	"let":       true,
	"if":        true,
	"elif":      true,
	"else":      true,
	"loop":      true,
	"break":     true,
	"continue":  true,
	"return":    true,
	"render":    true,
	"from":      true,
	"true":      true,
	"false":     true,
}

// IsKeyword reports whether s is reserved.
func IsKeyword(s string) bool { return keywords[s] }

// Keywords returns the reserved words, sorted.
func Keywords() []string { return slices.Sorted(maps.Keys(keywords)) }

// Pos is a 1-based source position.
type Pos struct {
	Line int
	Col  int
}

// Position returns p; it lets embedding types satisfy [Node].
func (p Pos) Position() Pos { return p }

func (p Pos) String() string {
	return strconv.Itoa(p.Line) + ":" + strconv.Itoa(p.Col)
}

// IsValid reports whether p refers to a source location.
func (p Pos) IsValid() bool { return p.Line > 0 }

// Token is one lexeme. For [String] tokens Lexeme holds the unescaped
// contents; for [Closure] tokens it holds the trimmed body source.
type Token struct {
	Kind   Kind
	Lexeme string
	Pos
}

func (t Token) String() string {
	switch t.Kind {
	case EOF:
		return t.Kind.String()
	case String:
		return strconv.Quote(t.Lexeme)
	case Closure:
		return "() => " + t.Lexeme
	}

	return t.Lexeme
}
