package lang

import (
	"log/slog"
	"strings"
)

// Semantic diagnostic codes.
const (
	CodeUnknown           = "S001"
	CodeOutOfRange        = "S002"
	CodeUnresolved        = "S003"
	CodeTypeMismatch      = "S004"
	CodeChainPosition     = "S005"
	CodeStarterWithoutOut = "S006"
	CodeFlowOutside       = "S007"
	CodeUnreachable       = "S008"
)

// Severity ranks a [Diagnostic].
type Severity int

// Severities, most severe first.
const (
	SeverityError Severity = iota
	SeverityWarning
	SeverityInfo
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	case SeverityInfo:
		return "info"
	}

	return "unknown"
}

var codeSeverity = map[string]Severity{
	CodeOutOfRange:  SeverityWarning,
	CodeUnreachable: SeverityInfo,
}

// Diagnostic is a recoverable problem found while validating a program.
type Diagnostic struct {
	Code       string
	Severity   Severity
	Message    string
	Pos        Pos
	Identifier string
	// Suggestion is a close match for an unknown identifier, if any.
	Suggestion string
}

func (d Diagnostic) String() string {
	var sb strings.Builder

	sb.WriteString(d.Code)
	sb.WriteByte(' ')
	sb.WriteString(d.Severity.String())

	if d.Pos.IsValid() {
		sb.WriteByte(' ')
		sb.WriteString(d.Pos.String())
	}

	sb.WriteString(": ")
	sb.WriteString(d.Message)

	if d.Suggestion != "" {
		sb.WriteString(" (did you mean \"")
		sb.WriteString(d.Suggestion)
		sb.WriteString("\"?)")
	}

	return sb.String()
}

// LogValue implements slog.LogValuer.
func (d Diagnostic) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.String("code", d.Code),
		slog.String("severity", d.Severity.String()),
		slog.String("message", d.Message),
	}

	if d.Pos.IsValid() {
		attrs = append(attrs, slog.String("pos", d.Pos.String()))
	}

	if d.Identifier != "" {
		attrs = append(attrs, slog.String("identifier", d.Identifier))
	}

	return slog.GroupValue(attrs...)
}

// Diagnostics is an ordered diagnostic list.
type Diagnostics []Diagnostic

// HasErrors reports whether any diagnostic has error severity.
func (ds Diagnostics) HasErrors() bool {
	for _, d := range ds {
		if d.Severity == SeverityError {
			return true
		}
	}

	return false
}

// ByCode returns the diagnostics with the given code.
func (ds Diagnostics) ByCode(code string) Diagnostics {
	var out Diagnostics

	for _, d := range ds {
		if d.Code == code {
			out = append(out, d)
		}
	}

	return out
}
