package graph

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/ardnew/fxc/effect"
	"github.com/ardnew/fxc/lang"
	"github.com/ardnew/fxc/registry"
)

func setup(t testing.TB) (*effect.Catalog, *registry.Registry) {
	t.Helper()

	reg := registry.New()

	c, err := effect.Builtin(context.Background(), reg)
	if err != nil {
		t.Fatalf("Builtin() error = %v", err)
	}

	return c, reg
}

func expand(t testing.TB, src string, opts ...Option) (*Graph, *lang.Planned) {
	t.Helper()

	c, reg := setup(t)

	p, err := lang.Compile(context.Background(), src, reg)
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}

	if len(p.Diagnostics) != 0 {
		t.Fatalf("diagnostics = %v", p.Diagnostics)
	}

	g, err := Expand(context.Background(), p, c, opts...)
	if err != nil {
		t.Fatalf("Expand() error = %v", err)
	}

	return g, p
}

func float(t testing.TB, v lang.Value) float64 {
	t.Helper()

	if v == nil {
		t.Fatal("nil value")
	}

	f, ok := lang.Float(v.Eval(nil))
	if !ok {
		t.Fatalf("%v is not numeric", v)
	}

	return f
}

type descriptors map[string]*effect.Descriptor

func (d descriptors) Lookup(name string) (*effect.Descriptor, bool) {
	v, ok := d[name]

	return v, ok
}

func TestExpandChain(t *testing.T) {
	g, _ := expand(t, "search basics\nnoise(scale: 3).blur(radius: 2).out(o0)\n")

	if err := g.Err(); err != nil {
		t.Fatalf("Err() = %v", err)
	}

	if len(g.Passes) != 3 {
		t.Fatalf("len(Passes) = %d, want 3", len(g.Passes))
	}

	noise, horiz, vert := g.Passes[0], g.Passes[1], g.Passes[2]

	if noise.Outputs["color"] != "node_0_out" || noise.Program != "basics.noise/noise" {
		t.Errorf("noise pass = %+v", noise)
	}

	if horiz.Inputs["src"] != "node_0_out" || horiz.Outputs["color"] != "node_1_horizontal" {
		t.Errorf("horizontal pass inputs = %v outputs = %v", horiz.Inputs, horiz.Outputs)
	}

	if vert.Inputs["src"] != "node_1_horizontal" || vert.Outputs["color"] != "global_o0" {
		t.Errorf("vertical pass inputs = %v outputs = %v", vert.Inputs, vert.Outputs)
	}

	if vert.SkipIf != "radius == 0" {
		t.Errorf("SkipIf = %q", vert.SkipIf)
	}

	if got := float(t, horiz.Uniforms["radius"]); got != 2 {
		t.Errorf("radius = %v, want 2", got)
	}

	if got := float(t, horiz.Uniforms["scale"]); got != 3 {
		t.Errorf("accumulated scale = %v, want 3", got)
	}

	if float(t, horiz.Uniforms["axis"]) != 0 || float(t, vert.Uniforms["axis"]) != 1 {
		t.Errorf("axis = %v, %v", horiz.Uniforms["axis"], vert.Uniforms["axis"])
	}

	if g.RenderSurface != "global_o0" {
		t.Errorf("RenderSurface = %q", g.RenderSurface)
	}

	for _, id := range []string{"basics.noise/noise", "basics.blur/blur"} {
		if _, ok := g.Programs[id]; !ok {
			t.Errorf("program %q missing", id)
		}
	}

	if _, ok := g.Programs[BlitProgram]; ok {
		t.Error("unexpected blit program")
	}
}

func TestExpandFeedback(t *testing.T) {
	tests := []struct {
		name string
		src  string
		prev string
	}{
		{"feedback target", "noise().trail(decay: 0.5).out(f0)", "feedback_f0"},
		{"output target", "noise().trail().out(o1)", "global_o1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, _ := expand(t, "search basics\n"+tt.src+"\n")

			trail := g.Passes[len(g.Passes)-1]
			if trail.Inputs["prev"] != tt.prev || trail.Inputs["src"] != "node_0_out" {
				t.Errorf("inputs = %v", trail.Inputs)
			}

			if trail.Outputs["color"] != tt.prev {
				t.Errorf("outputs = %v", trail.Outputs)
			}

			if _, ok := g.Textures[tt.prev]; !ok {
				t.Errorf("texture %q missing", tt.prev)
			}
		})
	}
}

func TestExpandSurfaceArgs(t *testing.T) {
	g, _ := expand(t, "search basics\nnoise().out(o0)\nosc().blend(tex: o0).out(o1)\n")

	blend := g.Passes[len(g.Passes)-1]
	if blend.Inputs["layer"] != "global_o0" || blend.Inputs["base"] != "node_1_out" {
		t.Errorf("blend inputs = %v", blend.Inputs)
	}

	g, p := expand(t, "search basics\nnoise().blend(tex: osc()).out(o0)\n")

	var ref lang.Ref

	for _, s := range p.Steps {
		if s.Op == "basics.blend" {
			ref = s.Args["tex"].(lang.Ref)
		}
	}

	blend = g.Passes[len(g.Passes)-1]
	if want := NodeID(ref.Index) + "_out"; blend.Inputs["layer"] != want {
		t.Errorf("nested layer = %q, want %q", blend.Inputs["layer"], want)
	}
}

func TestExpandGlobalTexture(t *testing.T) {
	g, _ := expand(t, "search filter, basics\nnoise().blur(passes: 3).out(o0)\n")

	if len(g.Passes) != 4 {
		t.Fatalf("len(Passes) = %d, want 4", len(g.Passes))
	}

	seed, iter, resolve := g.Passes[1], g.Passes[2], g.Passes[3]

	if seed.Outputs["color"] != "global_blur" {
		t.Errorf("seed outputs = %v", seed.Outputs)
	}

	if iter.Inputs["src"] != "global_blur" || iter.Outputs["color"] != "global_blur" {
		t.Errorf("iterate = %v -> %v", iter.Inputs, iter.Outputs)
	}

	if iter.PassRepeat != "passes - 1" || iter.RunIf != "passes > 1" {
		t.Errorf("iterate repeat = %q runIf = %q", iter.PassRepeat, iter.RunIf)
	}

	if resolve.Outputs["color"] != "global_o0" {
		t.Errorf("resolve outputs = %v", resolve.Outputs)
	}

	a := Allocate(g)
	if _, ok := a.Slots["global_blur"]; ok {
		t.Error("persistent texture was pooled")
	}
}

func TestExpandInherit(t *testing.T) {
	t.Run("upstream", func(t *testing.T) {
		g, _ := expand(t, "search volume\nsphere(volumeSize: 32).raymarch().out(o0)\n")

		march := g.Passes[len(g.Passes)-1]
		if got := float(t, march.Uniforms["volumeSize"]); got != 32 {
			t.Errorf("volumeSize = %v, want 32", got)
		}

		if march.Inputs["vol"] != "node_0_out3d" {
			t.Errorf("vol = %q", march.Inputs["vol"])
		}

		if sphere := g.Passes[0]; sphere.Kind != effect.PassCompute || sphere.Workgroup != [3]int{4, 4, 4} {
			t.Errorf("sphere pass = %+v", sphere)
		}
	})

	t.Run("explicit", func(t *testing.T) {
		g, _ := expand(t, "search volume\nsphere(volumeSize: 32).raymarch(volumeSize: 16).out(o0)\n")

		march := g.Passes[len(g.Passes)-1]
		if got := float(t, march.Uniforms["volumeSize"]); got != 16 {
			t.Errorf("volumeSize = %v, want 16", got)
		}
	})

	t.Run("required channel missing", func(t *testing.T) {
		c, _ := setup(t)
		march, _ := c.Lookup("volume.raymarch")

		size := &effect.Descriptor{
			Name:      "size",
			Namespace: "t",
			Globals:   []effect.Param{{Name: "volumeSize", Type: "int", Default: 8}},
			Programs:  map[string]effect.Program{"p": {WGSL: "fn f() {}"}},
			Passes: []effect.Pass{{
				Program: "p",
				Outputs: map[string]string{"color": effect.OutputTex},
			}},
		}

		o0 := lang.SurfaceRef{Kind: lang.SurfaceOutput}
		p := &lang.Planned{Steps: []lang.Step{
			{Op: "t.size", Temp: 0, From: lang.NoInput, Args: map[string]lang.Value{"volumeSize": lang.Scalar(8)}},
			{Op: "volume.raymarch", Temp: 1, From: 0, Out: &o0, Args: map[string]lang.Value{"volumeSize": lang.Scalar(64)}},
		}}

		g, err := Expand(context.Background(), p, descriptors{"t.size": size, "volume.raymarch": march})
		if err != nil {
			t.Fatalf("Expand() error = %v", err)
		}

		last := g.Passes[len(g.Passes)-1]
		if got := float(t, last.Uniforms["volumeSize"]); got != 64 {
			t.Errorf("volumeSize = %v, want 64", got)
		}

		if len(g.Errors) != 1 || g.Errors[0].Code != CodeUnresolvedInput {
			t.Errorf("Errors = %v", g.Errors)
		}
	})
}

func TestExpandErrors(t *testing.T) {
	o0 := lang.SurfaceRef{Kind: lang.SurfaceOutput}
	c, _ := setup(t)
	noise, _ := c.Lookup("basics.noise")

	bad := &effect.Descriptor{
		Name:      "bad",
		Namespace: "t",
		Programs:  map[string]effect.Program{"p": {WGSL: "fn f() {}"}},
		Passes: []effect.Pass{{
			Program: "p",
			Inputs:  map[string]string{"src": "nowhere"},
			Outputs: map[string]string{"color": "undeclared"},
		}},
	}

	lib := descriptors{"basics.noise": noise, "t.bad": bad}

	t.Run("effect not found", func(t *testing.T) {
		p := &lang.Planned{Steps: []lang.Step{
			{Op: "basics.noise", Temp: 0, From: lang.NoInput},
			{Op: "t.missing", Temp: 1, From: 0, Out: &o0},
		}}

		g, err := Expand(context.Background(), p, lib)
		if err != nil {
			t.Fatalf("Expand() error = %v", err)
		}

		if len(g.Errors) != 1 || g.Errors[0].Code != CodeEffectNotFound || g.Errors[0].Step != 1 {
			t.Fatalf("Errors = %v", g.Errors)
		}

		blit := g.Passes[len(g.Passes)-1]
		if !blit.Blit || blit.Inputs["src"] != "node_0_out" || blit.Outputs["color"] != "global_o0" {
			t.Errorf("blit pass = %+v", blit)
		}

		if _, ok := g.Programs[BlitProgram]; !ok {
			t.Error("blit program missing")
		}
	})

	t.Run("bad bindings", func(t *testing.T) {
		p := &lang.Planned{Steps: []lang.Step{
			{Op: "basics.noise", Temp: 0, From: lang.NoInput},
			{Op: "t.bad", Temp: 1, From: 0, Out: &o0},
		}}

		g, err := Expand(context.Background(), p, lib)
		if err != nil {
			t.Fatalf("Expand() error = %v", err)
		}

		codes := make(map[string]int)
		for _, e := range g.Errors {
			codes[e.Code]++
		}

		if codes[CodeUnresolvedInput] != 1 || codes[CodeTextureMissing] != 1 {
			t.Errorf("Errors = %v", g.Errors)
		}

		if g.Err() == nil {
			t.Error("Err() = nil")
		}

		if last := g.Passes[len(g.Passes)-1]; !last.Blit {
			t.Errorf("last pass = %+v, want blit", last)
		}
	})

	t.Run("nil", func(t *testing.T) {
		if _, err := Expand(context.Background(), nil, lib); !errors.Is(err, ErrNilProgram) {
			t.Errorf("Expand(nil) error = %v", err)
		}
	})
}

func TestExpandShaderOverride(t *testing.T) {
	custom := effect.Program{WGSL: "@fragment fn fs_main() {}", Entry: "fs_main"}

	g, _ := expand(t, "search basics\nnoise().blur().blur().out(o0)\n",
		WithShaderOverride(1, "blur", custom))

	if g.Passes[1].Program != "basics.blur/blur@1" {
		t.Errorf("step 1 program = %q", g.Passes[1].Program)
	}

	if g.Passes[3].Program != "basics.blur/blur" {
		t.Errorf("step 2 program = %q", g.Passes[3].Program)
	}

	if g.Programs["basics.blur/blur@1"].WGSL != custom.WGSL {
		t.Error("override source not registered")
	}
}

func TestExpandGuards(t *testing.T) {
	g, _ := expand(t, "search basics\nif () => time > 1 {\n  noise().out(o0)\n}\n")

	if len(g.Passes) != 1 || len(g.Passes[0].Guards) != 1 {
		t.Fatalf("passes = %+v", g.Passes)
	}

	if !lang.Truthy(g.Passes[0].Guards[0].Eval(lang.FrameState{Time: 2}.Env())) {
		t.Error("guard false at time 2")
	}
}

func TestAllocateReuse(t *testing.T) {
	g := &Graph{Passes: []Pass{
		{Outputs: map[string]string{"color": "A"}},
		{Inputs: map[string]string{"src": "A"}, Outputs: map[string]string{"color": "B"}},
		{Inputs: map[string]string{"src": "B"}, Outputs: map[string]string{"color": "C"}},
		{Inputs: map[string]string{"src": "C"}, Outputs: map[string]string{"color": "global_o0"}},
	}}

	a := Allocate(g)

	if a.Slots["A"] != a.Slots["C"] {
		t.Errorf("A and C in slots %d and %d, want shared", a.Slots["A"], a.Slots["C"])
	}

	if a.Slots["A"] == a.Slots["B"] {
		t.Errorf("A and B share slot %d", a.Slots["A"])
	}

	if _, ok := a.Slots["global_o0"]; ok {
		t.Error("persistent surface allocated")
	}

	if a.Len() != 2 {
		t.Errorf("Len() = %d, want 2", a.Len())
	}

	if got := a.Intervals["B"]; got != (Interval{First: 1, Last: 2}) {
		t.Errorf("Intervals[B] = %+v", got)
	}
}

func TestAllocatePools(t *testing.T) {
	vol := effect.Volume3D()

	g := &Graph{
		Passes: []Pass{
			{Outputs: map[string]string{"c": "A"}},
			{Inputs: map[string]string{"s": "A"}, Outputs: map[string]string{"c": "V"}},
			{Inputs: map[string]string{"s": "V"}, Outputs: map[string]string{"c": "B"}},
			{Inputs: map[string]string{"s": "B"}, Outputs: map[string]string{"c": "W"}},
		},
		Textures: map[string]effect.TextureSpec{"V": vol, "W": vol},
	}

	a := Allocate(g)

	if a.Slots["A"] != a.Slots["B"] || a.Slots["V"] != a.Slots["W"] {
		t.Errorf("Slots = %v", a.Slots)
	}

	if a.Slots["A"] == a.Slots["V"] {
		t.Error("2D and 3D textures share a slot")
	}

	if !a.Specs[a.Slots["V"]].Is3D() {
		t.Error("volume slot is not 3D")
	}
}

func TestAllocateNoOverlap(t *testing.T) {
	g, _ := expand(t, `search basics, filter
noise(scale: 4).blur(radius: 3).levels(invert: true).out(o0)
gradient().blend(tex: o0, mode: screen).trail(decay: 0.8).out(f0)
read(tex: f0).mask(tex: o0).blur().out(o1)
volume.sphere().raymarch().out(o2)
render(o1)
`)

	a := Allocate(g)

	for id, slot := range a.Slots {
		for other, s := range a.Slots {
			if id == other || slot != s {
				continue
			}

			x, y := a.Intervals[id], a.Intervals[other]
			if x.Last >= y.First && y.Last >= x.First {
				t.Errorf("%s %+v and %s %+v overlap in slot %d", id, x, other, y, slot)
			}
		}
	}

	if a.Len() >= len(a.Slots) {
		t.Errorf("no reuse: %d slots for %d textures", a.Len(), len(a.Slots))
	}
}

func TestFormat(t *testing.T) {
	g, _ := expand(t, "search basics\nnoise().blur().out(o0)\n")
	a := Allocate(g)

	var buf bytes.Buffer
	if err := g.FormatJSON(context.Background(), &buf, a, 2); err != nil {
		t.Fatalf("FormatJSON() error = %v", err)
	}

	var m map[string]any
	if err := json.Unmarshal(buf.Bytes(), &m); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	if m["render"] != "global_o0" {
		t.Errorf("render = %v", m["render"])
	}

	if slots, _ := m["slots"].([]any); len(slots) != a.Len() {
		t.Errorf("slots = %v", m["slots"])
	}

	buf.Reset()

	if err := g.FormatYAML(context.Background(), &buf, nil, 2); err != nil {
		t.Fatalf("FormatYAML() error = %v", err)
	}

	if !strings.Contains(buf.String(), "basics.blur/blur") {
		t.Errorf("YAML output missing program:\n%s", buf.String())
	}
}

func BenchmarkExpand(b *testing.B) {
	c, reg := setup(b)

	p, err := lang.Compile(context.Background(), `search basics, filter
noise(scale: 4).blur(radius: 3).levels(invert: true).out(o0)
gradient().blend(tex: o0, mode: screen).trail(decay: 0.8).out(f0)
`, reg)
	if err != nil {
		b.Fatal(err)
	}

	for b.Loop() {
		g, _ := Expand(context.Background(), p, c)
		Allocate(g)
	}
}
