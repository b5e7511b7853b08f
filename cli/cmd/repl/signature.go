package repl

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"

	"github.com/ardnew/fxc/registry"
)

// signature is the display form of a callable.
type signature struct {
	name   string
	params []string
}

func (s signature) String() string {
	return s.name + "(" + strings.Join(s.params, ", ") + ")"
}

// signatures are the callables that are not registered operations:
// oscillators and vector constructors in argument position, and the
// functions closures may call.
var signatures = map[string]signature{
	"sine":   {"sine", []string{"min", "max", "speed", "offset"}},
	"tri":    {"tri", []string{"min", "max", "speed", "offset"}},
	"saw":    {"saw", []string{"min", "max", "speed", "offset"}},
	"square": {"square", []string{"min", "max", "speed", "offset"}},
	"vec3":   {"vec3", []string{"x", "y", "z"}},
	"vec4":   {"vec4", []string{"x", "y", "z", "w"}},
	"out":    {"out", []string{"surface"}},
	"render": {"render", []string{"surface"}},
	"sin":    {"sin", []string{"x"}},
	"cos":    {"cos", []string{"x"}},
	"tan":    {"tan", []string{"x"}},
	"sqrt":   {"sqrt", []string{"x"}},
	"pow":    {"pow", []string{"x", "y"}},
	"fract":  {"fract", []string{"x"}},
	"mix":    {"mix", []string{"a", "b", "t"}},
	"clamp":  {"clamp", []string{"x", "lo", "hi"}},
}

// signature hint styles.
var (
	signatureStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	signatureNameStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("6")).
				Bold(true)
	currentParamStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("11")).
				Bold(true)
)

// functionCall represents a detected call around the cursor.
type functionCall struct {
	name     string // callee as written, possibly qualified ("filter.blur")
	argIndex int    // current argument index (0-based)
	keyword  string // keyword of the current argument, if already typed
	inCall   bool   // true if cursor is inside parameter list
}

func isIdentRune(r rune) bool {
	return r == '_' || r == '.' ||
		(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}

// detectFunctionCall analyzes the input to determine if the cursor is
// inside a call's argument list, and which argument it is on.
func detectFunctionCall(input string, cursor int) functionCall {
	cursor = min(cursor, len(input))

	open := -1
	depth := 0

scan:
	for i := cursor; i > 0; {
		r, size := utf8.DecodeLastRuneInString(input[:i])
		i -= size

		switch r {
		case ')':
			depth++
		case '(':
			if depth == 0 {
				open = i

				break scan
			}

			depth--
		}
	}

	if open < 0 {
		return functionCall{}
	}

	start := open

	for start > 0 {
		r, size := utf8.DecodeLastRuneInString(input[:start])
		if !isIdentRune(r) {
			break
		}

		start -= size
	}

	// A chained call is written ".name(" after the previous call.
	name := strings.Trim(input[start:open], ".")
	if name == "" {
		return functionCall{}
	}

	call := functionCall{name: name, inCall: true}
	argStart := open + 1
	depth = 0

	for i, r := range input[open+1 : cursor] {
		switch r {
		case '(', '[':
			depth++
		case ')', ']':
			depth--
		case ',':
			if depth == 0 {
				call.argIndex++
				argStart = open + 1 + i + 1
			}
		}
	}

	if kw, _, ok := strings.Cut(input[argStart:cursor], ":"); ok {
		call.keyword = strings.TrimSpace(kw)
	}

	return call
}

// lookupSignature returns the signature of a callable, resolving
// operation names through the search order.
func lookupSignature(
	reg *registry.Registry,
	search []string,
	name string,
) (signature, bool) {
	if sig, ok := signatures[name]; ok {
		return sig, true
	}

	export, ok := reg.Namespaces.ResolveCallTarget(name, &registry.Context{Preferred: search})
	if !ok {
		return signature{}, false
	}

	spec, ok := reg.Ops.Lookup(export.Canonical())
	if !ok {
		return signature{}, false
	}

	sig := signature{name: name, params: make([]string, len(spec.Args))}
	for i, a := range spec.Args {
		sig.params[i] = argText(a)
	}

	return sig, true
}

func argText(a registry.ArgSpec) string {
	text := a.Name + ": " + a.Type.String()
	if a.Default != nil {
		text += " = " + fmt.Sprint(a.Default)
	}

	return text
}

// paramIndex picks the parameter to highlight: the keyword's parameter
// when one is typed, otherwise the positional index.
func paramIndex(sig signature, call functionCall) int {
	if call.keyword == "" {
		return call.argIndex
	}

	for i, p := range sig.params {
		if p == call.keyword || strings.HasPrefix(p, call.keyword+":") {
			return i
		}
	}

	return -1
}

// renderSignatureHint renders sig with parameter current highlighted.
func renderSignatureHint(sig signature, current int) string {
	var b strings.Builder

	b.WriteString(signatureNameStyle.Render(sig.name))
	b.WriteString(signatureStyle.Render("("))

	for i, p := range sig.params {
		if i > 0 {
			b.WriteString(signatureStyle.Render(", "))
		}

		if i == current {
			b.WriteString(currentParamStyle.Render(p))
		} else {
			b.WriteString(signatureStyle.Render(p))
		}
	}

	b.WriteString(signatureStyle.Render(")"))

	return b.String()
}
