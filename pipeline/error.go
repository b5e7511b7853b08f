package pipeline

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/ardnew/fxc/pkg"
)

var (
	ErrNilGraph  = pkg.NewError("nil graph")
	ErrNotLoaded = pkg.NewError("no graph loaded")
	ErrCondition = pkg.NewError("invalid pass condition")
	ErrDisposed  = pkg.NewError("executor disposed")
	ErrInit      = pkg.NewError("backend initialization failed")
)

// Backend error codes.
const (
	CodeCompile        = "R001"
	CodeMissingProgram = "R002"
	CodeDispatch       = "R003"
	CodeTexture        = "R004"
)

// BackendError is a failure reported by, or detected before calling,
// the backend.
type BackendError struct {
	Code string
	// Op is the backend operation, e.g. "CompileProgram".
	Op string
	// ID names the program, texture or pass involved.
	ID  string
	Err error
}

func (e *BackendError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s %s", e.Code, e.Op, e.ID)
	}

	return fmt.Sprintf("%s: %s %s: %v", e.Code, e.Op, e.ID, e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }

// LogValue implements slog.LogValuer.
func (e *BackendError) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.String("code", e.Code),
		slog.String("op", e.Op),
		slog.String("id", e.ID),
	}

	if e.Err != nil {
		attrs = append(attrs, slog.String("error", e.Err.Error()))
	}

	return slog.GroupValue(attrs...)
}

func backendError(code, op, id string, err error) *BackendError {
	return &BackendError{Code: code, Op: op, ID: id, Err: err}
}

// asBackendError returns err unchanged when it already carries a code.
func asBackendError(err error, code, op, id string) error {
	var be *BackendError
	if errors.As(err, &be) {
		return err
	}

	return backendError(code, op, id, err)
}
