package lang

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"
)

func TestCompileSingleStep(t *testing.T) {
	p := mustCompile(t, testRegistry(t), "search basics\nnoise(scale: 3).out(o0)")

	if len(p.Steps) != 1 {
		t.Fatalf("steps = %d, want 1", len(p.Steps))
	}

	s := p.Steps[0]
	if s.Op != "basics.noise" || s.From != NoInput || s.Temp != 0 {
		t.Errorf("step = %+v", s)
	}

	if s.Args["scale"] != Scalar(3) || !s.Explicit["scale"] || s.Explicit["speed"] {
		t.Errorf("args = %v explicit = %v", s.Args, s.Explicit)
	}

	if s.Args["speed"] != Scalar(0.1) {
		t.Errorf("default speed = %v", s.Args["speed"])
	}

	if p.Render != nil {
		t.Errorf("render = %v, want unset", p.Render)
	}

	if got := p.RenderSurface().Name(); got != "o0" {
		t.Errorf("RenderSurface() = %s, want o0", got)
	}

	if len(p.Diagnostics) != 0 {
		t.Errorf("diagnostics = %v", p.Diagnostics)
	}
}

func TestCompileUnknownOperation(t *testing.T) {
	p := mustCompile(t, testRegistry(t), "search basics\nunknown(1).out(o0)")

	got := p.Diagnostics.ByCode(CodeUnknown)
	if len(got) != 1 || got[0].Identifier != "unknown" {
		t.Fatalf("S001 diagnostics = %v", p.Diagnostics)
	}

	if len(p.Steps) != 0 {
		t.Errorf("steps = %d, want 0", len(p.Steps))
	}
}

func TestCompileSuggestion(t *testing.T) {
	p := mustCompile(t, testRegistry(t), "search basics\nnoize().out(o0)\nnoise().blend(tex: o1, mode: ad).out(o0)")

	d := p.Diagnostics.ByCode(CodeUnknown)
	if len(d) != 2 {
		t.Fatalf("S001 diagnostics = %v", p.Diagnostics)
	}

	if d[1].Suggestion != "add" {
		t.Errorf("enum suggestion = %q, want add", d[1].Suggestion)
	}

	if !strings.Contains(d[1].String(), "did you mean") {
		t.Errorf("String() = %q", d[1].String())
	}
}

func TestValidateMissingSearch(t *testing.T) {
	_, err := Validate(context.Background(), &Program{}, testRegistry(t))
	if !errors.Is(err, ErrNoSearchOrder) {
		t.Fatalf("Validate() error = %v, want ErrNoSearchOrder", err)
	}

	if !strings.Contains(err.Error(), "search directive") {
		t.Errorf("error = %q", err)
	}
}

func TestStarterRule(t *testing.T) {
	tests := []struct {
		name string
		src  string
		code string
		want int
	}{
		{"starter without out", "noise(scale: 2)", CodeStarterWithoutOut, 1},
		{"starter chain without out", "noise().blur()", CodeStarterWithoutOut, 1},
		{"starter with out", "noise().blur().out(o1)", CodeStarterWithoutOut, 0},
		{"non-starter head", "blur(radius: 1).out(o0)", CodeChainPosition, 1},
		{"starter mid chain", "noise().solid().out(o0)", CodeChainPosition, 1},
		{"passthrough head", "read(tex: o1).blur().out(o0)", CodeChainPosition, 0},
		{"nested starter chain", "noise().blend(tex: gradient()).out(o0)", CodeStarterWithoutOut, 0},
	}

	reg := testRegistry(t)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := mustCompile(t, reg, "search basics\n"+tt.src)

			if got := len(p.Diagnostics.ByCode(tt.code)); got != tt.want {
				t.Errorf("%s count = %d, want %d (%v)", tt.code, got, tt.want, p.Diagnostics)
			}
		})
	}
}

func TestArgumentClamping(t *testing.T) {
	reg := testRegistry(t)

	tests := []struct {
		src   string
		arg   string
		want  Value
		diags int
	}{
		{"noise(scale: 500).out(o0)", "scale", Scalar(100), 1},
		{"noise(scale: -1).out(o0)", "scale", Scalar(0), 1},
		{"noise(scale: 50).out(o0)", "scale", Scalar(50), 0},
		{"noise(octaves: 2.6).out(o0)", "octaves", Scalar(3), 0},
		{"noise(octaves: 12).out(o0)", "octaves", Scalar(8), 1},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			p := mustCompile(t, reg, "search basics\n"+tt.src)

			if got := p.Steps[0].Args[tt.arg]; got != tt.want {
				t.Errorf("%s = %v, want %v", tt.arg, got, tt.want)
			}

			if got := len(p.Diagnostics.ByCode(CodeOutOfRange)); got != tt.diags {
				t.Errorf("S002 count = %d, want %d", got, tt.diags)
			}

			for _, d := range p.Diagnostics.ByCode(CodeOutOfRange) {
				if d.Severity != SeverityWarning || d.Identifier != tt.arg {
					t.Errorf("diagnostic = %+v", d)
				}
			}
		})
	}
}

func TestNestedSurfaceChains(t *testing.T) {
	p := mustCompile(t, testRegistry(t),
		"search basics\nnoise().blend(tex: gradient().blur(radius: 2), mode: add).out(o1)")

	wantOps := []string{"basics.noise", "basics.gradient", "basics.blur", "basics.blend"}
	if len(p.Steps) != len(wantOps) {
		t.Fatalf("steps = %d, want %d", len(p.Steps), len(wantOps))
	}

	for i, s := range p.Steps {
		if s.Op != wantOps[i] || s.Temp != i {
			t.Errorf("step %d = %s/%d, want %s", i, s.Op, s.Temp, wantOps[i])
		}

		if s.From != NoInput && s.From >= s.Temp {
			t.Errorf("step %d reads from %d, not an earlier step", i, s.From)
		}
	}

	blend := p.Steps[3]
	if blend.From != 0 {
		t.Errorf("blend from = %d, want 0", blend.From)
	}

	if tex, ok := blend.Args["tex"].(Ref); !ok || tex.Kind != SurfaceTemp || tex.Index != 2 {
		t.Errorf("blend tex = %v", blend.Args["tex"])
	}

	if blend.Args["mode"] != Scalar(1) {
		t.Errorf("blend mode = %v, want 1", blend.Args["mode"])
	}

	if p.Steps[2].From != 1 || p.Steps[2].Out != nil {
		t.Errorf("nested blur = %+v", p.Steps[2])
	}

	if blend.Out == nil || blend.Out.Name() != "o1" {
		t.Errorf("blend out = %v", blend.Out)
	}

	if got := p.RenderSurface().Name(); got != "o1" {
		t.Errorf("RenderSurface() = %s, want o1", got)
	}
}

func TestVariables(t *testing.T) {
	reg := testRegistry(t)

	tests := []struct {
		name  string
		src   string
		ops   []string
		check func(*testing.T, *Planned)
	}{
		{
			name: "partial keyword overwrite",
			src:  "let n = noise(scale: 2, speed: 1)\nn(seed: 4, scale: 5).out(o0)",
			ops:  []string{"basics.noise"},
			check: func(t *testing.T, p *Planned) {
				a := p.Steps[0].Args
				if a["scale"] != Scalar(5) || a["speed"] != Scalar(1) || a["seed"] != Scalar(4) {
					t.Errorf("args = %v", a)
				}
			},
		},
		{
			name: "partial positional append",
			src:  "let n = noise(2)\nn(0.5).out(o0)",
			ops:  []string{"basics.noise"},
			check: func(t *testing.T, p *Planned) {
				a := p.Steps[0].Args
				if a["scale"] != Scalar(2) || a["speed"] != Scalar(0.5) {
					t.Errorf("args = %v", a)
				}
			},
		},
		{
			name: "chain prefix",
			src:  "let c = noise().blur(radius: 3)\nc.out(o2)",
			ops:  []string{"basics.noise", "basics.blur"},
			check: func(t *testing.T, p *Planned) {
				if out := p.Steps[1].Out; out == nil || out.Name() != "o2" {
					t.Errorf("out = %v", out)
				}
			},
		},
		{
			name: "qualified alias",
			src:  "let b = filter.blur\nnoise().b(radius: 9).out(o0)",
			ops:  []string{"basics.noise", "filter.blur"},
		},
		{
			name: "constant and surface",
			src:  "let s = 7\nlet t = o3\nnoise(scale: s).blend(tex: t).out(o0)",
			ops:  []string{"basics.noise", "basics.blend"},
			check: func(t *testing.T, p *Planned) {
				if p.Steps[0].Args["scale"] != Scalar(7) {
					t.Errorf("scale = %v", p.Steps[0].Args["scale"])
				}

				if r, ok := p.Steps[1].Args["tex"].(Ref); !ok || SurfaceRef(r).Name() != "o3" {
					t.Errorf("tex = %v", p.Steps[1].Args["tex"])
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := mustCompile(t, reg, "search basics\n"+tt.src)

			if len(p.Diagnostics) != 0 {
				t.Fatalf("diagnostics = %v", p.Diagnostics)
			}

			if len(p.Steps) != len(tt.ops) {
				t.Fatalf("steps = %d, want %d", len(p.Steps), len(tt.ops))
			}

			for i, op := range tt.ops {
				if p.Steps[i].Op != op {
					t.Errorf("step %d op = %s, want %s", i, p.Steps[i].Op, op)
				}
			}

			if tt.check != nil {
				tt.check(t, p)
			}
		})
	}
}

func TestNamespaceResolution(t *testing.T) {
	reg := testRegistry(t)

	tests := []struct {
		src  string
		want []string
	}{
		{"search basics, filter\nnoise().blur().out(o0)", []string{"basics.noise", "basics.blur"}},
		{"search filter, basics\nnoise().blur().out(o0)", []string{"basics.noise", "filter.blur"}},
		{"search basics\nnoise().filter.blur().out(o0)", []string{"basics.noise", "filter.blur"}},
		{"search filter\nfrom(basics, noise(scale: 2)).out(o0)", []string{"basics.noise"}},
		{"search basics, filter\nnoise().from(filter, blur(radius: 3)).out(o0)", []string{"basics.noise", "filter.blur"}},
		{"search filter, basics\nnoise().from(basics, blur()).out(o0)", []string{"basics.noise", "basics.blur"}},
		{"namespace filter {\n  noise().blur().out(o0)\n}", []string{"basics.noise", "filter.blur"}},
		{"search basics\nnamespace filter { noise().blur().out(o0) }", []string{"basics.noise", "filter.blur"}},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			p := mustCompile(t, reg, tt.src)

			if len(p.Steps) != len(tt.want) {
				t.Fatalf("steps = %d (%v), want %d", len(p.Steps), p.Diagnostics, len(tt.want))
			}

			for i, op := range tt.want {
				if p.Steps[i].Op != op {
					t.Errorf("step %d = %s, want %s", i, p.Steps[i].Op, op)
				}
			}
		})
	}
}

func TestDynamicValues(t *testing.T) {
	reg := testRegistry(t)
	env := FrameState{Time: 3, MouseX: 0.25, Width: 640}.Env()

	tests := []struct {
		name string
		arg  string
		want float64
	}{
		{"closure", "() => time * 2", 6},
		{"math prefix", "() => Math.floor(time) + Math.PI - PI", 3},
		{"env function", "() => mix(0.0, 10.0, mouseX)", 2.5},
		{"state field", "mouseX", 0.25},
		{"bounded closure", "() => time * 1000", 100},
		{"oscillator", "saw(min: 0, max: 10, speed: 0.5, offset: 0.25)", 7.5},
		{"positional oscillator", "square(2, 4)", 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := mustCompile(t, reg, "search basics\nnoise(scale: "+tt.arg+").out(o0)")

			if len(p.Diagnostics) != 0 {
				t.Fatalf("diagnostics = %v", p.Diagnostics)
			}

			d, ok := p.Steps[0].Args["scale"].(*Dynamic)
			if !ok {
				t.Fatalf("scale = %T, want *Dynamic", p.Steps[0].Args["scale"])
			}

			got, ok := Float(d.Eval(env))
			if !ok || math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Eval() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestInvalidClosure(t *testing.T) {
	p := mustCompile(t, testRegistry(t), "search basics\nnoise(scale: () => bogus + 1).out(o0)")

	if len(p.Diagnostics.ByCode(CodeUnresolved)) != 1 {
		t.Fatalf("diagnostics = %v", p.Diagnostics)
	}

	if p.Steps[0].Args["scale"] != Scalar(1) {
		t.Errorf("scale = %v, want default 1", p.Steps[0].Args["scale"])
	}
}

func TestTypedArguments(t *testing.T) {
	reg := testRegistry(t)

	p := mustCompile(t, reg, `search basics, filter
solid(color: #ff0000).out(o0)
noise().levels(invert: true, tint: vec3(1, 0.5, 0), wrap: repeat).out(o1)
noise().blend(tex: o2, mode: blend.mode.screen).out(o2)
`)

	if len(p.Diagnostics) != 0 {
		t.Fatalf("diagnostics = %v", p.Diagnostics)
	}

	color := p.Steps[0].Args["color"].(Vector)
	if color.Literal != "#ff0000" || color.Components[0] != 1 || color.Components[3] != 1 {
		t.Errorf("color = %+v", color)
	}

	levels := p.Steps[2].Args
	if levels["invert"] != Boolean(true) || levels["wrap"] != Scalar(1) {
		t.Errorf("levels args = %v", levels)
	}

	if tint := levels["tint"].(Vector); len(tint.Components) != 3 || tint.Components[1] != 0.5 {
		t.Errorf("tint = %+v", tint)
	}

	if p.Steps[4].Args["mode"] != Scalar(3) {
		t.Errorf("mode = %v, want 3", p.Steps[4].Args["mode"])
	}
}

func TestArgumentErrors(t *testing.T) {
	reg := testRegistry(t)

	tests := []struct {
		name string
		src  string
		code string
		arg  string
		want Value
	}{
		{"unknown keyword", "noise(bogus: 1).out(o0)", CodeUnknown, "", nil},
		{"too many positional", "gradient(1, 2).out(o0)", CodeUnknown, "angle", Scalar(1)},
		{"bool for float", "noise(scale: true).out(o0)", CodeTypeMismatch, "scale", Scalar(1)},
		{"unresolved identifier", "noise(scale: wobble).out(o0)", CodeUnresolved, "scale", Scalar(1)},
		{"unknown enum", "noise().blend(tex: o1, mode: bogus).out(o0)", CodeUnknown, "", nil},
		{"unresolved surface", "noise().blend(tex: nowhere).out(o0)", CodeUnresolved, "", nil},
		{"vec4 for vec3", "noise().filter.levels(tint: vec4(1, 1, 1, 1)).out(o0)", CodeTypeMismatch, "", nil},
		{"write to source", "noise().out(s0)", CodeTypeMismatch, "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := mustCompile(t, reg, "search basics\n"+tt.src)

			if len(p.Diagnostics.ByCode(tt.code)) == 0 {
				t.Fatalf("missing %s in %v", tt.code, p.Diagnostics)
			}

			if tt.arg != "" && p.Steps[0].Args[tt.arg] != tt.want {
				t.Errorf("%s = %v, want %v", tt.arg, p.Steps[0].Args[tt.arg], tt.want)
			}
		})
	}
}

func TestControlFlow(t *testing.T) {
	reg := testRegistry(t)

	t.Run("static if", func(t *testing.T) {
		p := mustCompile(t, reg, "search basics\nif false { noise().out(o0) } elif 1 { solid().out(o1) } else { gradient().out(o2) }")

		if len(p.Steps) != 1 || p.Steps[0].Op != "basics.solid" || len(p.Steps[0].Guards) != 0 {
			t.Fatalf("steps = %+v", p.Steps)
		}
	})

	t.Run("dynamic if", func(t *testing.T) {
		p := mustCompile(t, reg, "search basics\nif () => time > 1 { noise().out(o0) } else { solid().out(o1) }")

		if len(p.Steps) != 2 {
			t.Fatalf("steps = %d, want 2", len(p.Steps))
		}

		early, late := FrameState{Time: 0}.Env(), FrameState{Time: 2}.Env()

		g0, g1 := p.Steps[0].Guards, p.Steps[1].Guards
		if len(g0) != 1 || len(g1) != 1 {
			t.Fatalf("guards = %v / %v", g0, g1)
		}

		if Truthy(g0[0].Eval(early)) || !Truthy(g0[0].Eval(late)) {
			t.Error("if guard evaluated wrong")
		}

		if !Truthy(g1[0].Eval(early)) || Truthy(g1[0].Eval(late)) {
			t.Error("else guard evaluated wrong")
		}
	})

	t.Run("loop", func(t *testing.T) {
		p := mustCompile(t, reg, "search basics\nloop 2 { loop 3 { noise().blur().out(o0) } }")

		for _, s := range p.Steps {
			if s.Repeat.Count != 6 {
				t.Errorf("repeat = %d, want 6", s.Repeat.Count)
			}
		}
	})

	t.Run("dynamic loop", func(t *testing.T) {
		p := mustCompile(t, reg, "search basics\nloop () => frame + 1 { noise().out(o0) }")

		if got := p.Steps[0].Repeat.Times(FrameState{Frame: 4}.Env()); got != 5 {
			t.Errorf("Times() = %d, want 5", got)
		}
	})

	t.Run("break", func(t *testing.T) {
		p := mustCompile(t, reg, "search basics\nloop 3 { noise().out(o0); break; solid().out(o1) }")

		if len(p.Steps) != 1 || p.Steps[0].Repeat.Count != 1 {
			t.Fatalf("steps = %+v", p.Steps)
		}

		d := p.Diagnostics.ByCode(CodeUnreachable)
		if len(d) != 1 || d[0].Severity != SeverityInfo {
			t.Errorf("S008 = %v", p.Diagnostics)
		}
	})

	t.Run("continue", func(t *testing.T) {
		p := mustCompile(t, reg, "search basics\nloop 3 { noise().out(o0); continue; solid().out(o1) }")

		if len(p.Steps) != 1 || p.Steps[0].Repeat.Count != 3 {
			t.Fatalf("steps = %+v", p.Steps)
		}
	})

	t.Run("return", func(t *testing.T) {
		p := mustCompile(t, reg, "search basics\nnoise().out(o0)\nif true { return }\nsolid().out(o1)\ngradient().out(o2)")

		if len(p.Steps) != 1 {
			t.Fatalf("steps = %d, want 1", len(p.Steps))
		}

		if got := len(p.Diagnostics.ByCode(CodeUnreachable)); got != 2 {
			t.Errorf("S008 count = %d, want 2", got)
		}
	})

	t.Run("zero loop", func(t *testing.T) {
		p := mustCompile(t, reg, "search basics\nloop 0 { noise().out(o0) }")

		if len(p.Steps) != 0 || len(p.Diagnostics.ByCode(CodeUnreachable)) != 1 {
			t.Fatalf("steps = %d diagnostics = %v", len(p.Steps), p.Diagnostics)
		}
	})

	t.Run("huge loop", func(t *testing.T) {
		p := mustCompile(t, reg, "search basics\nloop 1e19 { noise().out(o0) }")

		if len(p.Steps) != 1 || p.Steps[0].Repeat.Count != MaxRepeat {
			t.Fatalf("steps = %+v", p.Steps)
		}

		if len(p.Diagnostics.ByCode(CodeOutOfRange)) != 1 || len(p.Diagnostics.ByCode(CodeUnreachable)) != 0 {
			t.Errorf("diagnostics = %v", p.Diagnostics)
		}
	})

	t.Run("nested loop overflow", func(t *testing.T) {
		p := mustCompile(t, reg,
			"search basics\nloop 4294967296 { loop 4294967296 { noise().out(o0) } }")

		if len(p.Steps) != 1 || p.Steps[0].Repeat.Count != MaxRepeat {
			t.Fatalf("steps = %+v", p.Steps)
		}

		if got := p.Steps[0].Repeat.Times(FrameState{}.Env()); got != MaxRepeat {
			t.Errorf("Times() = %d, want %d", got, MaxRepeat)
		}

		if len(p.Diagnostics.ByCode(CodeOutOfRange)) == 0 {
			t.Errorf("no S002 in %v", p.Diagnostics)
		}
	})

	t.Run("dynamic loop bounded", func(t *testing.T) {
		p := mustCompile(t, reg, "search basics\nloop 2 { loop () => frame * 1e12 { noise().out(o0) } }")

		if got := p.Steps[0].Repeat.Times(FrameState{Frame: 3}.Env()); got != MaxRepeat {
			t.Errorf("Times() = %d, want %d", got, MaxRepeat)
		}

		if got := p.Steps[0].Repeat.Times(FrameState{}.Env()); got != 0 {
			t.Errorf("Times() at frame 0 = %d, want 0", got)
		}
	})

	t.Run("break outside loop in built program", func(t *testing.T) {
		prog := &Program{Search: []string{"basics"}, Statements: []Stmt{&Break{}, &Continue{}}}

		p, err := Validate(context.Background(), prog, reg)
		if err != nil {
			t.Fatalf("Validate() error = %v", err)
		}

		if got := len(p.Diagnostics.ByCode(CodeFlowOutside)); got != 2 {
			t.Errorf("S007 count = %d, want 2", got)
		}
	})
}

func TestDeterminism(t *testing.T) {
	reg := testRegistry(t)
	src := "search basics, filter\nlet w = () => sin(time)\n" +
		"noise(scale: 3, speed: w).blend(tex: gradient(angle: 45), mode: add).out(o0)\n" +
		"if mouseX { solid(color: #123).out(f0) }\nrender(o0)"

	a, b := mustCompile(t, reg, src), mustCompile(t, reg, src)

	if a.ID == "" || a.ID != b.ID {
		t.Fatalf("IDs differ: %q vs %q", a.ID, b.ID)
	}

	if a.Canonical() != b.Canonical() {
		t.Errorf("canonical forms differ:\n%s\n%s", a.Canonical(), b.Canonical())
	}

	c := mustCompile(t, reg, strings.Replace(src, "scale: 3", "scale: 4", 1))
	if c.ID == a.ID {
		t.Error("different programs share an ID")
	}
}

func TestCompileReader(t *testing.T) {
	p, err := CompileReader(context.Background(),
		strings.NewReader("search basics\nnoise().out(o3)"), testRegistry(t))
	if err != nil {
		t.Fatalf("CompileReader() error = %v", err)
	}

	if p.RenderSurface().Name() != "o3" {
		t.Errorf("RenderSurface() = %s", p.RenderSurface().Name())
	}
}

func BenchmarkCompile(b *testing.B) {
	reg := testRegistry(b)
	src := "search basics, filter\n" +
		"noise(scale: 3, speed: () => sin(time)).blur(radius: 2)" +
		".blend(tex: gradient(angle: 45).levels(gamma: 2), mode: add).out(o0)\n"

	for b.Loop() {
		if _, err := Compile(context.Background(), src, reg); err != nil {
			b.Fatal(err)
		}
	}
}
