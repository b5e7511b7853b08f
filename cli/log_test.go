package cli

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ardnew/fxc/log"
)

func TestLogScan(t *testing.T) {
	tests := []struct {
		name   string
		args   []string
		want   logConfig
		pretty bool
	}{
		{
			name: "separate values",
			args: []string{"check", "--log-level", "debug", "--log-format", "text", "prog.fx"},
			want: logConfig{Level: "debug", Format: "text", Pretty: true},
		},
		{
			name: "assigned values",
			args: []string{"--log-level=warn", "--log-caller", "--log-pretty=false"},
			want: logConfig{Level: "warn", Caller: true},
		},
		{
			name: "negated",
			args: []string{"--no-log-pretty", "--no-log-caller=false"},
			want: logConfig{Caller: true},
		},
		{
			name: "missing value",
			args: []string{"--log-level", "--log-format"},
			want: logConfig{Pretty: true},
		},
		{
			name: "unrelated flags",
			args: []string{"--width=640", "--logx", "-p", "cpu"},
			want: logConfig{Pretty: true},
		},
		{
			name: "bad bool",
			args: []string{"--log-caller=maybe"},
			want: logConfig{Pretty: true},
		},
	}

	defer log.Config(log.WithDefaults(os.Stderr))

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := logConfig{Pretty: true}
			f.scan(tt.args)

			if f != tt.want {
				t.Errorf("scan(%q) = %+v, want %+v", tt.args, f, tt.want)
			}
		})
	}
}

func TestLogFile(t *testing.T) {
	defer log.Config(log.WithDefaults(os.Stderr))

	path := filepath.Join(t.TempDir(), "fxc.log")
	f := logConfig{Level: "info", Format: "text", File: path, Pretty: true}

	stop, err := f.start(context.Background())
	if err != nil {
		t.Fatalf("start() error = %v", err)
	}

	log.Info("frame done")
	stop()
	log.Info("after stop")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	got := string(data)
	if !strings.Contains(got, "frame done") || strings.Contains(got, "after stop") {
		t.Errorf("log file = %q", got)
	}

	if strings.Contains(got, "\x1b[") {
		t.Errorf("log file has color escapes: %q", got)
	}
}

func TestLogFileError(t *testing.T) {
	f := logConfig{File: filepath.Join(t.TempDir(), "missing", "fxc.log")}

	stop, err := f.start(context.Background())
	if !errors.Is(err, ErrLogFile) {
		t.Errorf("start() error = %v, want ErrLogFile", err)
	}

	stop()
}
