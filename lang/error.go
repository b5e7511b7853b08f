package lang

import (
	"log/slog"
	"strconv"
	"strings"

	"github.com/ardnew/fxc/pkg"
)

// Predefined errors (sentinel values).
var (
	ErrSyntax        = pkg.NewError("syntax error")
	ErrNoSearchOrder = pkg.NewError("missing search directive")
	ErrNilProgram    = pkg.NewError("nil program")
	ErrReadInput     = pkg.NewError("failed to read input")
	ErrUnknownStep   = pkg.NewError("override references unknown step")
	ErrUnknownParam  = pkg.NewError("override references unknown parameter")
)

// Lexer and parser error codes.
const (
	CodeUnexpectedChar      = "L001"
	CodeUnterminatedString  = "L002"
	CodeUnterminatedComment = "L003"
	CodeInvalidSurface      = "L004"

	CodeUnexpectedToken   = "P001"
	CodeMissingSearch     = "P002"
	CodeOutMidChain       = "P003"
	CodeDuplicateRender   = "P004"
	CodeFlowOutsideLoop   = "P005"
	CodeMixedArguments    = "P006"
	CodeInvalidArithmetic = "P007"
)

// SyntaxError is a fatal lexical or grammatical error. It matches
// [ErrSyntax] under errors.Is.
type SyntaxError struct {
	Code string
	Msg  string
	Pos
	// Source, when set, is rendered as a snippet with a caret marker.
	Source string
}

func newSyntaxError(code string, at Pos, msg string) *SyntaxError {
	return &SyntaxError{Code: code, Msg: msg, Pos: at}
}

// Error implements the error interface.
func (e *SyntaxError) Error() string {
	var buf strings.Builder

	buf.WriteString(e.Code)
	buf.WriteString(": ")
	buf.WriteString(e.Msg)

	if e.Line > 0 {
		buf.WriteString(" at line ")
		buf.WriteString(strconv.Itoa(e.Line))
		buf.WriteString(", column ")
		buf.WriteString(strconv.Itoa(e.Col))
	}

	if s := e.Snippet(); s != "" {
		buf.WriteString(":\n")
		buf.WriteString(s)
	}

	return buf.String()
}

// Unwrap returns [ErrSyntax].
func (e *SyntaxError) Unwrap() error { return ErrSyntax }

// Snippet renders the offending source line followed by a caret under the
// error column. It is empty when the source is unknown.
func (e *SyntaxError) Snippet() string {
	lines := strings.Split(e.Source, "\n")
	if e.Source == "" || e.Line < 1 || e.Line > len(lines) {
		return ""
	}

	var src strings.Builder

	num := strconv.Itoa(e.Line)

	src.WriteString("  ")
	src.WriteString(num)
	src.WriteString(" | ")
	src.WriteString(lines[e.Line-1])
	src.WriteRune('\n')

	// 2 leading spaces + " | "
	padding := strings.Repeat(" ", len(num)+5)
	if e.Col > 0 {
		padding += strings.Repeat(" ", e.Col-1)
	}

	src.WriteString(padding + "^\n")

	return src.String()
}

// LogValue implements slog.LogValuer.
func (e *SyntaxError) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("code", e.Code),
		slog.String("error", e.Msg),
		slog.Int("line", e.Line),
		slog.Int("column", e.Col),
	)
}

func withSource(err error, src string) error {
	if se, ok := err.(*SyntaxError); ok && se.Source == "" {
		se.Source = src
	}

	return err
}
