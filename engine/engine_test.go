package engine

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ardnew/fxc/backend"
	"github.com/ardnew/fxc/effect"
	"github.com/ardnew/fxc/graph"
	"github.com/ardnew/fxc/lang"
	"github.com/ardnew/fxc/pipeline"
)

func newEngine(t testing.TB, opts ...Option) (*Engine, *backend.Recorder) {
	t.Helper()

	rec := backend.NewRecorder()

	e, err := New(context.Background(), rec, append([]Option{WithSize(32, 32)}, opts...)...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	t.Cleanup(func() { _ = e.Close() })

	return e, rec
}

func TestRecompileAndAdvance(t *testing.T) {
	ctx := context.Background()
	e, rec := newEngine(t)

	c, err := e.Recompile(ctx, "search basics\nnoise(scale: 2).blur().out(o0)\n")
	if err != nil {
		t.Fatalf("Recompile() error = %v", err)
	}

	if e.Current() != c || c.ID() == "" || len(c.Graph.Passes) != 3 {
		t.Fatalf("Current() = %+v", e.Current())
	}

	for range 2 {
		if err := e.Advance(ctx, time.Second/4); err != nil {
			t.Fatalf("Advance() error = %v", err)
		}
	}

	if got := len(rec.Find("Present")); got != 2 {
		t.Errorf("presented %d frames, want 2", got)
	}

	clock := e.Clock()
	if clock.Frame != 2 || clock.Time != 0.5 || clock.DeltaTime != 0.25 {
		t.Errorf("Clock() = %+v", clock)
	}

	begin := rec.Find("BeginFrame")
	if begin[1].Frame != 1 || begin[1].Width != 32 {
		t.Errorf("second frame = %+v", begin[1])
	}
}

func TestRecompileKeepsRunningProgram(t *testing.T) {
	ctx := context.Background()
	e, rec := newEngine(t)

	old, err := e.Recompile(ctx, "search basics\nnoise().out(o0)\n")
	if err != nil {
		t.Fatalf("Recompile() error = %v", err)
	}

	if _, err := e.Recompile(ctx, "search basics\nnoise(.out(o0)\n"); !errors.Is(err, lang.ErrSyntax) {
		t.Errorf("syntax error = %v", err)
	}

	rec.FailOn("CompileProgram", "basics.osc/osc", errors.New("bad shader"))

	_, err = e.Recompile(ctx, "search basics\nosc().out(o0)\n")

	var be *pipeline.BackendError
	if !errors.As(err, &be) || be.Code != pipeline.CodeCompile {
		t.Errorf("backend error = %v", err)
	}

	if e.Current() != old {
		t.Error("running program replaced after failure")
	}

	if err := e.Advance(ctx, time.Millisecond); err != nil {
		t.Errorf("Advance() error = %v", err)
	}
}

func TestStrict(t *testing.T) {
	ctx := context.Background()

	lenient, _ := newEngine(t)

	c, err := lenient.Recompile(ctx, "search basics\nnope().out(o0)\n")
	if err != nil {
		t.Fatalf("lenient Recompile() error = %v", err)
	}

	if len(c.Diagnostics().ByCode(lang.CodeUnknown)) != 1 {
		t.Errorf("Diagnostics() = %v", c.Diagnostics())
	}

	strict, _ := newEngine(t, WithStrict(true))

	if _, err := strict.Recompile(ctx, "search basics\nnope().out(o0)\n"); !errors.Is(err, ErrDiagnosed) {
		t.Errorf("strict Recompile() error = %v", err)
	}
}

func TestRecompileUnchanged(t *testing.T) {
	ctx := context.Background()
	e, rec := newEngine(t)

	first, err := e.Recompile(ctx, "search basics\nnoise().out(o0)\n")
	if err != nil {
		t.Fatalf("Recompile() error = %v", err)
	}

	created := len(rec.Find("CreateTexture"))

	second, err := e.Recompile(ctx, "search basics\n// same program\nnoise().out(o0)\n")
	if err != nil {
		t.Fatalf("Recompile() error = %v", err)
	}

	if second != first {
		t.Error("equivalent program was reloaded")
	}

	if !strings.Contains(second.Source, "same program") {
		t.Errorf("Source = %q", second.Source)
	}

	if got := len(rec.Find("CreateTexture")); got != created {
		t.Errorf("CreateTexture calls = %d, want %d", got, created)
	}
}

func TestUnparse(t *testing.T) {
	ctx := context.Background()
	e, _ := newEngine(t)

	if _, err := e.Unparse(nil); !errors.Is(err, ErrNoProgram) {
		t.Errorf("Unparse() without program error = %v", err)
	}

	if _, err := e.Recompile(ctx, "search basics\nnoise(scale: 3).out(o0)\n"); err != nil {
		t.Fatalf("Recompile() error = %v", err)
	}

	got, err := e.Unparse(lang.Overrides{0: {"scale": 10}})
	if err != nil {
		t.Fatalf("Unparse() error = %v", err)
	}

	if want := "search basics\nnoise(scale: 10).out(o0)\n"; got != want {
		t.Errorf("Unparse() = %q, want %q", got, want)
	}
}

func TestRecompileReader(t *testing.T) {
	e, _ := newEngine(t)

	c, err := e.RecompileReader(context.Background(), strings.NewReader("search basics\nosc().out(o1)\n"))
	if err != nil {
		t.Fatalf("RecompileReader() error = %v", err)
	}

	if c.Graph.RenderSurface != "global_o1" {
		t.Errorf("RenderSurface = %q", c.Graph.RenderSurface)
	}
}

func TestInstallFile(t *testing.T) {
	ctx := context.Background()
	e, rec := newEngine(t)

	path := filepath.Join(t.TempDir(), "glow.yaml")
	src := `namespace: fx
effects:
  - name: glow
    starter: true
    globals:
      - {name: amount, type: float, default: 0.5}
    programs:
      glow: {wgsl: "@fragment fn main() {}"}
    passes:
      - program: glow
        outputs: {color: outputTex}
`

	if err := os.WriteFile(path, []byte(src), 0o600); err != nil {
		t.Fatal(err)
	}

	f, err := e.InstallFile(ctx, path)
	if err != nil {
		t.Fatalf("InstallFile() error = %v", err)
	}

	if f.Namespace != "fx" {
		t.Errorf("Namespace = %q", f.Namespace)
	}

	if _, err := e.Recompile(ctx, "search fx\nglow(amount: 1).out(o0)\n"); err != nil {
		t.Fatalf("Recompile() error = %v", err)
	}

	if _, ok := rec.Program("fx.glow/glow"); !ok {
		t.Error("installed effect program not compiled")
	}
}

func TestRecompileAfterReinstall(t *testing.T) {
	ctx := context.Background()
	e, rec := newEngine(t)

	path := filepath.Join(t.TempDir(), "glow.yaml")
	effectFile := func(body string) string {
		return `namespace: fx
effects:
  - name: glow
    starter: true
    programs:
      glow: {wgsl: "` + body + `"}
    passes:
      - program: glow
        outputs: {color: outputTex}
`
	}

	install := func(body string) {
		t.Helper()

		if err := os.WriteFile(path, []byte(effectFile(body)), 0o600); err != nil {
			t.Fatal(err)
		}

		if _, err := e.InstallFile(ctx, path); err != nil {
			t.Fatalf("InstallFile() error = %v", err)
		}
	}

	src := "search fx\nglow().out(o0)\n"

	install("@fragment fn main() {}")

	first, err := e.Recompile(ctx, src)
	if err != nil {
		t.Fatalf("Recompile() error = %v", err)
	}

	install("@fragment fn main() { return; }")

	second, err := e.Recompile(ctx, src)
	if err != nil {
		t.Fatalf("Recompile() error = %v", err)
	}

	if second == first || e.Current() != second {
		t.Error("reinstalled effect did not reload the program")
	}

	if p, ok := rec.Program("fx.glow/glow"); !ok || p.WGSL != "@fragment fn main() { return; }" {
		t.Errorf("program = %+v, %v", p, ok)
	}

	if third, err := e.Recompile(ctx, src); err != nil || third != second {
		t.Errorf("unchanged recompile reloaded: %v", err)
	}
}

func TestShaderOverride(t *testing.T) {
	ctx := context.Background()
	e, rec := newEngine(t)
	src := "search basics\nnoise().out(o0)\n"

	if _, err := e.Recompile(ctx, src); err != nil {
		t.Fatalf("Recompile() error = %v", err)
	}

	custom := effect.Program{WGSL: "@fragment fn fs_main() {}", Entry: "fs_main"}

	c, err := e.Recompile(ctx, src, graph.WithShaderOverride(0, "noise", custom))
	if err != nil {
		t.Fatalf("Recompile() error = %v", err)
	}

	if c.Graph.Passes[0].Program != "basics.noise/noise@0" {
		t.Errorf("program = %q", c.Graph.Passes[0].Program)
	}

	if p, ok := rec.Program("basics.noise/noise@0"); !ok || p.WGSL != custom.WGSL {
		t.Errorf("override program = %+v, %v", p, ok)
	}
}
