package log

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestMake_DefaultConfiguration(t *testing.T) {
	var buf bytes.Buffer

	logger := Make(&buf)

	if logger.Level() != LevelInfo {
		t.Errorf("expected default level info, got %v", logger.Level())
	}

	if logger.Format() != FormatJSON {
		t.Errorf("expected default format json, got %v", logger.Format())
	}
}

func TestMake_WithLevelFiltersMessages(t *testing.T) {
	var buf bytes.Buffer

	logger := Make(&buf, WithLevel(LevelError))
	logger.Info("info message")

	if buf.Len() > 0 {
		t.Error("info message logged when level is error")
	}

	logger.Error("error message")

	if !strings.Contains(buf.String(), "error message") {
		t.Error("error message not logged at error level")
	}
}

func TestTraceLevelName(t *testing.T) {
	var buf bytes.Buffer

	logger := Make(&buf, WithLevel(LevelTrace), WithTimeLayout("none"))
	logger.Trace("deep detail", slog.Int("pass", 3))

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("invalid json output %q: %v", buf.String(), err)
	}

	if record["level"] != "TRACE" {
		t.Errorf("expected level TRACE, got %v", record["level"])
	}

	if _, ok := record["time"]; ok {
		t.Error("expected time to be omitted with layout none")
	}

	if record["pass"] != float64(3) {
		t.Errorf("expected pass=3, got %v", record["pass"])
	}
}

func TestZeroLoggerDiscards(t *testing.T) {
	var logger Logger

	// Must not panic.
	logger.Info("nothing")
	logger.With(slog.String("k", "v")).Debug("still nothing")

	if logger.Enabled(context.Background(), LevelError) {
		t.Error("zero logger should report every level disabled")
	}
}

func TestWrapKeepsBaseConfiguration(t *testing.T) {
	var buf bytes.Buffer

	base := Make(&buf, WithFormat(FormatText))
	wrapped := base.Wrap(WithLevel(LevelDebug))

	if wrapped.Format() != FormatText {
		t.Errorf("expected wrapped format text, got %v", wrapped.Format())
	}

	if wrapped.Level() != LevelDebug {
		t.Errorf("expected wrapped level debug, got %v", wrapped.Level())
	}

	if base.Level() != LevelInfo {
		t.Errorf("expected base level unchanged, got %v", base.Level())
	}
}

func TestPrettyTextIncludesAttrs(t *testing.T) {
	var buf bytes.Buffer

	logger := Make(&buf,
		WithFormat(FormatText),
		WithPretty(true),
		WithTimeLayout(""),
	).With(slog.String("component", "graph"))

	logger.Info("expanded", slog.Int("passes", 7))

	out := buf.String()
	for _, want := range []string{"component", "graph", "passes", "7", "expanded"} {
		if !strings.Contains(out, want) {
			t.Errorf("pretty output %q missing %q", out, want)
		}
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
	}{
		{"trace", LevelTrace},
		{"TRACE", LevelTrace},
		{"debug", LevelDebug},
		{"warn", LevelWarn},
		{"error", LevelError},
		{"bogus", DefaultLevel},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParseLevel(tt.in); got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseFormat(t *testing.T) {
	if ParseFormat(" TEXT ") != FormatText {
		t.Error("expected text")
	}

	if ParseFormat("yaml") != DefaultFormat {
		t.Error("expected default for unknown format")
	}
}
