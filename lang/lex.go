package lang

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

// surfaceLimits bounds the index of each surface prefix.
var surfaceLimits = map[byte]int{'o': 8, 'f': 4, 's': 8}

// Tokenize splits src into tokens, always ending with an [EOF] token.
// Lexical errors are returned as *[SyntaxError] carrying the position of
// the offending character.
func Tokenize(src string) ([]Token, error) {
	l := &lexer{src: src, line: 1, col: 1}

	return l.run()
}

type lexer struct {
	src  string
	pos  int
	line int
	col  int
	toks []Token
}

func (l *lexer) run() ([]Token, error) {
	for {
		if err := l.skipSpaceAndComments(); err != nil {
			return nil, err
		}

		if l.eof() {
			l.toks = append(l.toks, Token{Kind: EOF, Pos: l.here()})

			return l.toks, nil
		}

		if err := l.next(); err != nil {
			return nil, err
		}
	}
}

func (l *lexer) eof() bool { return l.pos >= len(l.src) }

func (l *lexer) here() Pos { return Pos{Line: l.line, Col: l.col} }

func (l *lexer) peek() byte { return l.peekAt(0) }

func (l *lexer) peekAt(n int) byte {
	if l.pos+n >= len(l.src) {
		return 0
	}

	return l.src[l.pos+n]
}

func (l *lexer) advance() {
	if l.eof() {
		return
	}

	r, size := utf8.DecodeRuneInString(l.src[l.pos:])
	l.pos += size

	if r == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
}

func (l *lexer) advanceN(n int) {
	for range n {
		l.advance()
	}
}

func (l *lexer) emit(kind Kind, lexeme string, at Pos) {
	l.toks = append(l.toks, Token{Kind: kind, Lexeme: lexeme, Pos: at})
}

func (l *lexer) skipSpaceAndComments() error {
	for !l.eof() {
		c := l.peek()

		switch {
		case c == ' ' || c == '\t' || c == '\r' || c == '\n':
			l.advance()

		case c == '#' && l.colorLength() == 0:
			l.skipLine()

		case c == '/' && l.peekAt(1) == '/':
			l.skipLine()

		case c == '/' && l.peekAt(1) == '*':
			at := l.here()
			l.advanceN(2)

			for !(l.peek() == '*' && l.peekAt(1) == '/') {
				if l.eof() {
					return newSyntaxError(CodeUnterminatedComment, at,
						"unterminated block comment")
				}

				l.advance()
			}

			l.advanceN(2)

		default:
			return nil
		}
	}

	return nil
}

func (l *lexer) skipLine() {
	for !l.eof() && l.peek() != '\n' {
		l.advance()
	}
}

// colorLength returns the number of hex digits of a color literal at the
// current '#', or 0 if the '#' starts a comment.
func (l *lexer) colorLength() int {
	n := 0
	for isHex(l.peekAt(1 + n)) {
		n++
	}

	if n != 3 && n != 6 && n != 8 {
		return 0
	}

	if isIdentPart(l.peekAt(1 + n)) {
		return 0
	}

	return n
}

func (l *lexer) next() error {
	at := l.here()
	c := l.peek()

	switch {
	case c == '#':
		n := l.colorLength()
		l.emit(Color, l.src[l.pos:l.pos+1+n], at)
		l.advanceN(1 + n)

	case isDigit(c) || (c == '.' && isDigit(l.peekAt(1))):
		l.number(at)

	case c == '"' || c == '\'':
		return l.str(at)

	case isIdentStart(c):
		return l.ident(at)

	case c == '(':
		if body, n, ok := l.closure(); ok {
			if strings.TrimSpace(body) == "" {
				return newSyntaxError(CodeUnexpectedChar, at, "empty closure body")
			}

			l.emit(Closure, strings.TrimSpace(body), at)
			l.advanceN(n)

			return nil
		}

		l.single(LParen, at)

	default:
		kind, ok := punct[c]
		if !ok {
			r, _ := utf8.DecodeRuneInString(l.src[l.pos:])

			return newSyntaxError(CodeUnexpectedChar, at,
				"unexpected character "+strconv.QuoteRune(r))
		}

		l.single(kind, at)
	}

	return nil
}

var punct = map[byte]Kind{
	')': RParen,
	'{': LBrace,
	'}': RBrace,
	',': Comma,
	':': Colon,
	'.': Dot,
	'=': Assign,
	'+': Plus,
	'-': Minus,
	'*': Star,
	'/': Slash,
	';': Semicolon,
}

func (l *lexer) single(kind Kind, at Pos) {
	l.emit(kind, l.src[l.pos:l.pos+1], at)
	l.advance()
}

func (l *lexer) number(at Pos) {
	start := l.pos

	for isDigit(l.peek()) {
		l.advance()
	}

	if l.peek() == '.' && isDigit(l.peekAt(1)) {
		l.advance()

		for isDigit(l.peek()) {
			l.advance()
		}
	}

	if e := l.peek(); e == 'e' || e == 'E' {
		n := 1
		if s := l.peekAt(1); s == '+' || s == '-' {
			n++
		}

		if isDigit(l.peekAt(n)) {
			l.advanceN(n)

			for isDigit(l.peek()) {
				l.advance()
			}
		}
	}

	l.emit(Number, l.src[start:l.pos], at)
}

func (l *lexer) str(at Pos) error {
	quote := l.peek()
	l.advance()

	var sb strings.Builder

	for {
		if l.eof() {
			return newSyntaxError(CodeUnterminatedString, at, "unterminated string")
		}

		c := l.peek()
		if c == quote {
			l.advance()

			break
		}

		if c == '\\' {
			l.advance()

			if l.eof() {
				return newSyntaxError(CodeUnterminatedString, at, "unterminated string")
			}

			switch e := l.peek(); e {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			default:
				sb.WriteByte(e)
			}

			l.advance()

			continue
		}

		_, size := utf8.DecodeRuneInString(l.src[l.pos:])
		sb.WriteString(l.src[l.pos : l.pos+size])
		l.advance()
	}

	l.emit(String, sb.String(), at)

	return nil
}

func (l *lexer) ident(at Pos) error {
	start := l.pos
	for isIdentPart(l.peek()) {
		l.advance()
	}

	word := l.src[start:l.pos]

	if len(word) == 2 && isDigit(word[1]) {
		if limit, ok := surfaceLimits[word[0]]; ok {
			if int(word[1]-'0') >= limit {
				return newSyntaxError(CodeInvalidSurface, at,
					"invalid surface index "+word)
			}

			l.emit(Surface, word, at)

			return nil
		}
	}

	if keywords[word] {
		l.emit(Keyword, word, at)
	} else {
		l.emit(Identifier, word, at)
	}

	return nil
}

// closure recognizes "( ) =>" at the current position and returns the raw
// body text and the number of bytes consumed. The body runs until a ',',
// ')', '{', '}' or newline at bracket depth zero.
func (l *lexer) closure() (string, int, bool) {
	i := l.pos + 1
	i = skipBlank(l.src, i)

	if i >= len(l.src) || l.src[i] != ')' {
		return "", 0, false
	}

	i = skipBlank(l.src, i+1)
	if !strings.HasPrefix(l.src[i:], "=>") {
		return "", 0, false
	}

	start := i + 2
	depth := 0
	j := start

scan:
	for ; j < len(l.src); j++ {
		switch c := l.src[j]; c {
		case '{':
			if depth == 0 {
				break scan
			}

			depth++
		case '(', '[':
			depth++
		case ')', ']', '}':
			if depth == 0 {
				break scan
			}

			depth--
		case ',', '\n':
			if depth == 0 {
				break scan
			}
		case '"', '\'':
			for j++; j < len(l.src) && l.src[j] != c; j++ {
				if l.src[j] == '\\' {
					j++
				}
			}
		}
	}

	if j > len(l.src) {
		j = len(l.src)
	}

	return l.src[start:j], utf8.RuneCountInString(l.src[l.pos:j]), true
}

func skipBlank(s string, i int) int {
	for i < len(s) && (s[i] == ' ' || s[i] == '\t') {
		i++
	}

	return i
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isHex(c byte) bool {
	return isDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool { return isIdentStart(c) || isDigit(c) }

