package graph

import (
	"fmt"
	"log/slog"

	"github.com/ardnew/fxc/pkg"
)

// ErrNilProgram is returned when Expand is given no planned chain.
var ErrNilProgram = pkg.NewError("nil planned chain")

// Expansion error codes.
const (
	CodeEffectNotFound  = "E001"
	CodeTextureMissing  = "E002"
	CodeUnresolvedInput = "E003"
)

// Error is a non-fatal expansion problem attached to one step.
type Error struct {
	Code    string
	Step    int
	Op      string
	Message string
}

func (e Error) Error() string {
	return fmt.Sprintf("%s: step %d (%s): %s", e.Code, e.Step, e.Op, e.Message)
}

// LogValue implements slog.LogValuer.
func (e Error) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("code", e.Code),
		slog.Int("step", e.Step),
		slog.String("op", e.Op),
		slog.String("message", e.Message),
	)
}
