package repl

import (
	"context"
	"testing"

	"github.com/ardnew/fxc/backend"
	"github.com/ardnew/fxc/engine"
	"github.com/ardnew/fxc/log"
)

// newTestSession returns a session over the built-in effects drawing to a
// recording backend.
func newTestSession(t testing.TB, src string) *session {
	t.Helper()

	rec := backend.NewRecorder()

	eng, err := engine.New(context.Background(), rec, engine.WithSize(32, 32))
	if err != nil {
		t.Fatalf("engine.New() error = %v", err)
	}

	t.Cleanup(func() { _ = eng.Close() })

	return newSession(eng, rec, src)
}

// newTestModel returns a model over a fresh session with in-memory history.
func newTestModel(t testing.TB, src string) model {
	t.Helper()

	return newModel(context.Background(), newTestSession(t, src), NewHistory(""), log.Logger{})
}
