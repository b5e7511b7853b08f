package cmd

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ardnew/fxc/lang"
)

const (
	okProgram      = "search basics\nnoise(scale: 2).blur().out(o0)\n"
	unknownProgram = "search basics\nnope().out(o0)\n"
	syntaxProgram  = "search basics\nnoise(.out(o0)\n"
)

const extraCatalog = `namespace: extra

effects:
  - name: flat
    description: fill with gray
    starter: true
    globals:
      - {name: level, type: float, default: 0.5, min: 0, max: 1}
    programs:
      flat:
        entry: fs_main
        wgsl: |
          @fragment
          fn fs_main() -> @location(0) vec4<f32> {
              return vec4<f32>(0.5, 0.5, 0.5, 1.0);
          }
    passes:
      - program: flat
        outputs: {color: outputTex}
`

// testContext returns a context whose command output is captured in the
// returned buffer.
func testContext(t *testing.T, s Settings) (context.Context, *bytes.Buffer) {
	t.Helper()

	if s.Width == 0 {
		s.Width, s.Height = 64, 64
	}

	var buf bytes.Buffer

	ctx := WithSettings(context.Background(), s)
	ctx = WithOutput(ctx, &buf)

	return ctx, &buf
}

// writeTemp writes content to name in a fresh temp directory.
func writeTemp(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	return path
}

func TestReadSource(t *testing.T) {
	path := writeTemp(t, "prog.fx", okProgram)

	got, err := readSource(path)
	if err != nil {
		t.Fatalf("readSource() error = %v", err)
	}

	if got != okProgram {
		t.Errorf("readSource() = %q, want %q", got, okProgram)
	}

	_, err = readSource(filepath.Join(t.TempDir(), "missing.fx"))
	if !errors.Is(err, ErrReadSource) {
		t.Errorf("readSource(missing) error = %v, want ErrReadSource", err)
	}
}

func TestSettingsDefaults(t *testing.T) {
	s := settingsFrom(context.Background())
	if s.Width != 1280 || s.Height != 720 || s.Strict {
		t.Errorf("settingsFrom() = %+v", s)
	}

	if outputFrom(context.Background()) != os.Stdout {
		t.Error("outputFrom() should default to os.Stdout")
	}
}

func TestUniquePaths(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.yaml")
	b := filepath.Join(dir, "b.yaml")
	link := filepath.Join(dir, "link.yaml")
	missing := filepath.Join(dir, "missing.yaml")

	for _, p := range []string{a, b} {
		if err := os.WriteFile(p, nil, 0o600); err != nil {
			t.Fatal(err)
		}
	}

	if err := os.Symlink(a, link); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	rel, err := filepath.Rel(mustGetwd(t), a)
	if err != nil {
		rel = a
	}

	tests := []struct {
		name  string
		paths []string
		want  []string
	}{
		{"empty", nil, nil},
		{"distinct", []string{a, b}, []string{a, b}},
		{"duplicate", []string{a, a, b}, []string{a, b}},
		{"symlink", []string{a, link}, []string{a}},
		{"relative", []string{a, rel}, []string{a}},
		{"missing kept", []string{missing, a, missing}, []string{missing, a, missing}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := uniquePaths(tt.paths)
			if strings.Join(got, ",") != strings.Join(tt.want, ",") {
				t.Errorf("uniquePaths(%v) = %v, want %v", tt.paths, got, tt.want)
			}
		})
	}
}

func mustGetwd(t *testing.T) string {
	t.Helper()

	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}

	return wd
}

func TestCheck(t *testing.T) {
	tests := []struct {
		name     string
		src      string
		quiet    bool
		wantErr  error
		contains []string
		excludes []string
	}{
		{
			name:     "ok",
			src:      okProgram,
			contains: []string{"ok (2 steps, 3 passes"},
		},
		{
			name:     "quiet",
			src:      okProgram,
			quiet:    true,
			excludes: []string{"ok ("},
		},
		{
			name:     "unknown operation",
			src:      unknownProgram,
			wantErr:  ErrCheckFailed,
			contains: []string{lang.CodeUnknown},
		},
		{
			name:     "syntax error",
			src:      syntaxProgram,
			wantErr:  lang.ErrSyntax,
			contains: []string{"^"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, out := testContext(t, Settings{Strict: true})

			c := &Check{Quiet: tt.quiet, Source: writeTemp(t, "prog.fx", tt.src)}

			err := c.Run(ctx)
			if tt.wantErr == nil && err != nil {
				t.Fatalf("Check.Run() error = %v", err)
			}

			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("Check.Run() error = %v, want %v", err, tt.wantErr)
			}

			for _, s := range tt.contains {
				if !strings.Contains(out.String(), s) {
					t.Errorf("output missing %q:\n%s", s, out)
				}
			}

			for _, s := range tt.excludes {
				if strings.Contains(out.String(), s) {
					t.Errorf("output contains %q:\n%s", s, out)
				}
			}
		})
	}
}

func TestFmt(t *testing.T) {
	tests := []struct {
		name string
		src  string
		set  []string
		want string
	}{
		{
			name: "canonical",
			src:  "search basics\nnoise(3, 0.5).blur(radius: 2).out(o0)",
			want: "search basics\nnoise(scale: 3, speed: 0.5).blur(radius: 2).out(o0)\n",
		},
		{
			name: "override",
			src:  "search basics\nnoise(scale: 3).blur(radius: 2).out(o0)",
			set:  []string{"0.scale=10", "1.radius=4"},
			want: "search basics\nnoise(scale: 10).blur(radius: 4).out(o0)\n",
		},
		{
			name: "override enum",
			src:  "search basics\nnoise().blend(tex: o1).out(o0)",
			set:  []string{"1.mode=multiply"},
			want: "search basics\nnoise().blend(tex: o1, mode: multiply).out(o0)\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, out := testContext(t, Settings{})

			f := &Fmt{Set: tt.set, Source: writeTemp(t, "prog.fx", tt.src)}
			if err := f.Run(ctx); err != nil {
				t.Fatalf("Fmt.Run() error = %v", err)
			}

			if out.String() != tt.want {
				t.Errorf("Fmt.Run() output = %q, want %q", out.String(), tt.want)
			}
		})
	}
}

func TestFmtWrite(t *testing.T) {
	ctx, out := testContext(t, Settings{})
	path := writeTemp(t, "prog.fx", "search basics\nnoise(3).out(o0)")

	if err := (&Fmt{Write: true, Source: path}).Run(ctx); err != nil {
		t.Fatalf("Fmt.Run() error = %v", err)
	}

	if out.Len() != 0 {
		t.Errorf("Fmt.Run() with -w wrote output %q", out.String())
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	if want := "search basics\nnoise(scale: 3).out(o0)\n"; string(got) != want {
		t.Errorf("rewritten file = %q, want %q", got, want)
	}
}

func TestFmtBadOverride(t *testing.T) {
	ctx, _ := testContext(t, Settings{})

	err := (&Fmt{Set: []string{"scale=1"}, Source: writeTemp(t, "prog.fx", okProgram)}).Run(ctx)
	if err == nil || !strings.Contains(err.Error(), "override") {
		t.Errorf("Fmt.Run() error = %v, want override error", err)
	}
}

func TestGraph(t *testing.T) {
	for _, format := range []string{"yaml", "json"} {
		t.Run(format, func(t *testing.T) {
			ctx, out := testContext(t, Settings{})

			g := &Graph{Format: format, Indent: 2, Source: writeTemp(t, "prog.fx", okProgram)}
			if err := g.Run(ctx); err != nil {
				t.Fatalf("Graph.Run() error = %v", err)
			}

			if !strings.Contains(out.String(), "basics.noise") {
				t.Errorf("Graph.Run() output missing basics.noise:\n%s", out)
			}
		})
	}

	ctx, _ := testContext(t, Settings{})

	err := (&Graph{Format: "toml", Source: writeTemp(t, "prog.fx", okProgram)}).Run(ctx)
	if !errors.Is(err, ErrFormat) {
		t.Errorf("Graph.Run(toml) error = %v, want ErrFormat", err)
	}
}

func TestRun(t *testing.T) {
	ctx, out := testContext(t, Settings{})

	r := &Run{Frames: 3, Step: 16e6, Source: writeTemp(t, "prog.fx", okProgram)}
	if err := r.Run(ctx); err != nil {
		t.Fatalf("Run.Run() error = %v", err)
	}

	counts := map[string]string{}

	for line := range strings.SplitSeq(strings.TrimSpace(out.String()), "\n") {
		if f := strings.Fields(line); len(f) == 2 {
			counts[f[0]] = f[1]
		}
	}

	if counts["BeginFrame"] != "3" || counts["Present"] != "3" {
		t.Errorf("Run.Run() counts = %v", counts)
	}

	if counts["ExecutePass"] != "9" {
		t.Errorf("ExecutePass = %s, want 9", counts["ExecutePass"])
	}
}

func TestRunTrace(t *testing.T) {
	ctx, out := testContext(t, Settings{})

	r := &Run{Frames: 1, Trace: true, Source: writeTemp(t, "prog.fx", okProgram)}
	if err := r.Run(ctx); err != nil {
		t.Fatalf("Run.Run() error = %v", err)
	}

	if !strings.Contains(out.String(), "ExecutePass") {
		t.Errorf("trace output missing ExecutePass:\n%s", out)
	}
}

func TestRunInterrupted(t *testing.T) {
	ctx, out := testContext(t, Settings{})
	ctx, cancel := context.WithCancel(ctx)
	cancel()

	r := &Run{Frames: 100, Source: writeTemp(t, "prog.fx", okProgram)}
	if err := r.Run(ctx); err != nil {
		t.Fatalf("Run.Run() error = %v", err)
	}

	if strings.Contains(out.String(), "BeginFrame") {
		t.Errorf("interrupted run executed frames:\n%s", out)
	}

	if !strings.Contains(out.String(), "CompileProgram") {
		t.Errorf("interrupted run missing summary:\n%s", out)
	}
}

func TestRunStrict(t *testing.T) {
	ctx, _ := testContext(t, Settings{Strict: true})

	err := (&Run{Frames: 1, Source: writeTemp(t, "prog.fx", unknownProgram)}).Run(ctx)
	if !errors.Is(err, ErrCheckFailed) {
		t.Errorf("Run.Run() strict error = %v, want ErrCheckFailed", err)
	}
}

func TestCatalog(t *testing.T) {
	tests := []struct {
		name     string
		cmd      Catalog
		include  bool
		contains []string
		excludes []string
	}{
		{
			name:     "all",
			contains: []string{"basics.noise", "filter.blur", "volume."},
		},
		{
			name:     "filter",
			cmd:      Catalog{Filter: "filtblur"},
			contains: []string{"filter.blur"},
			excludes: []string{"basics.noise"},
		},
		{
			name:     "verbose",
			cmd:      Catalog{Verbose: true, Filter: "filter.blur"},
			contains: []string{"radius: float = 2 [0..32]"},
		},
		{
			name:     "include",
			cmd:      Catalog{Verbose: true, Filter: "extra"},
			include:  true,
			contains: []string{"extra.flat", "[starter]", "fill with gray", "level: float = 0.5 [0..1]"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var s Settings

			if tt.include {
				path := writeTemp(t, "extra.yaml", extraCatalog)
				// The same file twice is installed once.
				s.Include = []string{path, path}
			}

			ctx, out := testContext(t, s)

			if err := tt.cmd.Run(ctx); err != nil {
				t.Fatalf("Catalog.Run() error = %v", err)
			}

			for _, s := range tt.contains {
				if !strings.Contains(out.String(), s) {
					t.Errorf("output missing %q:\n%s", s, out)
				}
			}

			for _, s := range tt.excludes {
				if strings.Contains(out.String(), s) {
					t.Errorf("output contains %q:\n%s", s, out)
				}
			}
		})
	}
}

func TestCatalogBadInclude(t *testing.T) {
	ctx, _ := testContext(t, Settings{
		Include: []string{writeTemp(t, "bad.yaml", "effects: [")},
	})

	if err := (&Catalog{}).Run(ctx); !errors.Is(err, ErrCatalog) {
		t.Errorf("Catalog.Run() error = %v, want ErrCatalog", err)
	}
}

func TestCatalogEffectDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "extra.yaml"), []byte(extraCatalog), 0o600); err != nil {
		t.Fatal(err)
	}

	// Listing the same file again through Include installs it once.
	ctx, out := testContext(t, Settings{
		Effects: dir,
		Include: []string{filepath.Join(dir, "extra.yaml")},
	})

	if err := (&Catalog{Filter: "extra"}).Run(ctx); err != nil {
		t.Fatalf("Catalog.Run() error = %v", err)
	}

	if !strings.Contains(out.String(), "extra.flat") {
		t.Errorf("output missing extra.flat:\n%s", out)
	}

	ctx, _ = testContext(t, Settings{Effects: filepath.Join(dir, "missing")})
	if err := (&Catalog{}).Run(ctx); err != nil {
		t.Errorf("Catalog.Run() with missing effect dir error = %v", err)
	}
}

func TestFilterNames(t *testing.T) {
	names := []string{"basics.blur", "basics.noise", "filter.blur"}

	if got := filterNames("", names); len(got) != len(names) {
		t.Errorf("filterNames(\"\") = %v", got)
	}

	got := filterNames("noise", names)
	if len(got) != 1 || got[0] != "basics.noise" {
		t.Errorf("filterNames(noise) = %v", got)
	}
}
