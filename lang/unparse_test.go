package lang

import (
	"errors"
	"testing"
)

func TestUnparse(t *testing.T) {
	reg := testRegistry(t)

	tests := []struct {
		name      string
		src       string
		overrides Overrides
		want      string
	}{
		{
			name: "keyword arguments",
			src:  "search basics\nnoise(3, 0.5).blur(radius: 2).out(o0)",
			want: "search basics\nnoise(scale: 3, speed: 0.5).blur(radius: 2).out(o0)\n",
		},
		{
			name:      "override",
			src:       "search basics\nnoise(scale: 3, speed: 0.5).blur(radius: 2).out(o0)",
			overrides: Overrides{0: {"scale": 10}},
			want:      "search basics\nnoise(scale: 10, speed: 0.5).blur(radius: 2).out(o0)\n",
		},
		{
			name:      "override unwritten argument",
			src:       "search basics\nnoise().blend(tex: o1).out(o0)",
			overrides: Overrides{1: {"mode": "multiply", "tex": "o3"}},
			want:      "search basics\nnoise().blend(tex: o3, mode: multiply).out(o0)\n",
		},
		{
			name:      "color",
			src:       "search basics\nsolid(color: #ff0000).out(o0)\nrender(o0)",
			overrides: Overrides{0: {"color": "#00ff00"}},
			want:      "search basics\nsolid(color: #00ff00).out(o0)\nrender(o0)\n",
		},
		{
			name: "enum member",
			src:  "search basics\nnoise().blend(tex: o1, mode: blend.mode.screen).out(o0)",
			want: "search basics\nnoise().blend(tex: o1, mode: screen).out(o0)\n",
		},
		{
			name: "shadowed qualifier kept",
			src:  "search basics, filter\nnoise().filter.blur(radius: 3).out(o0)",
			want: "search basics, filter\nnoise().filter.blur(radius: 3).out(o0)\n",
		},
		{
			name: "redundant qualifier dropped",
			src:  "search filter, basics\nnoise().filter.blur(radius: 3).out(o0)",
			want: "search filter, basics\nnoise().blur(radius: 3).out(o0)\n",
		},
		{
			name: "nested chain",
			src:  "search basics\nnoise().blend(tex: gradient(angle: 45).blur(radius: 2), mode: add).out(o1)",
			want: "search basics\nnoise().blend(tex: gradient(angle: 45).blur(radius: 2), mode: add).out(o1)\n",
		},
		{
			name: "dynamics",
			src:  "search basics\nnoise(scale: () => time * 2, speed: mouseX, seed: sine(min: 1, max: 2)).out(o0)",
			want: "search basics\nnoise(scale: () => time * 2, speed: mouseX, " +
				"seed: sine(min: 1, max: 2, speed: 1, offset: 0)).out(o0)\n",
		},
		{
			name: "else branch",
			src:  "search basics\nif () => time > 1 { noise().out(o0) } else { solid().out(o1) }",
			want: "search basics\nif () => time > 1 {\n  noise().out(o0)\n}\n" +
				"if () => !truthy(time > 1) {\n  solid().out(o1)\n}\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Unparse(mustCompile(t, reg, tt.src), reg, tt.overrides)
			if err != nil {
				t.Fatalf("Unparse() error = %v", err)
			}

			if got != tt.want {
				t.Errorf("Unparse() =\n%s\nwant\n%s", got, tt.want)
			}
		})
	}
}

func TestUnparseRoundTrip(t *testing.T) {
	reg := testRegistry(t)
	src := `search basics, filter
let w = () => sin(time)
noise(scale: 3, speed: w).blend(tex: gradient(angle: 45).levels(gamma: 2), mode: add).out(o0)
loop 3 {
  noise(octaves: 4).blur(radius: 2).out(o1)
}
if () => mouseX > 0.5 {
  solid(color: #123).out(f0)
}
render(o0)
`
	want := `search basics, filter
noise(scale: 3, speed: () => sin(time)).blend(tex: gradient(angle: 45).levels(gamma: 2), mode: add).out(o0)
loop 3 {
  noise(octaves: 4).blur(radius: 2).out(o1)
}
if () => mouseX > 0.5 {
  solid(color: #123).out(f0)
}
render(o0)
`

	first := mustCompile(t, reg, src)

	text, err := Unparse(first, reg, nil)
	if err != nil {
		t.Fatalf("Unparse() error = %v", err)
	}

	if text != want {
		t.Fatalf("Unparse() =\n%s\nwant\n%s", text, want)
	}

	second := mustCompile(t, reg, text)
	if first.Canonical() != second.Canonical() {
		t.Errorf("round trip changed the program:\n%s\n%s", first.Canonical(), second.Canonical())
	}

	if first.ID != second.ID {
		t.Errorf("ID %s != %s", first.ID, second.ID)
	}
}

func TestUnparseNestedOut(t *testing.T) {
	reg := testRegistry(t)
	src := "search basics\nnoise().blend(tex: gradient().out(o1)).out(o0)\n"

	first := mustCompile(t, reg, src)

	text, err := Unparse(first, reg, nil)
	if err != nil {
		t.Fatalf("Unparse() error = %v", err)
	}

	if text != src {
		t.Errorf("Unparse() = %q, want %q", text, src)
	}

	second := mustCompile(t, reg, text)
	if first.Canonical() != second.Canonical() {
		t.Errorf("round trip changed the program:\n%s\n%s", first.Canonical(), second.Canonical())
	}
}

func TestUnparseNegatedGuardRecompiles(t *testing.T) {
	reg := testRegistry(t)

	text, err := Unparse(mustCompile(t, reg,
		"search basics\nif () => time > 1 { noise().out(o0) } else { solid().out(o1) }"), reg, nil)
	if err != nil {
		t.Fatalf("Unparse() error = %v", err)
	}

	p := mustCompile(t, reg, text)
	if len(p.Steps) != 2 || len(p.Steps[1].Guards) != 1 {
		t.Fatalf("steps = %+v", p.Steps)
	}

	g := p.Steps[1].Guards[0]
	if !Truthy(g.Eval(FrameState{Time: 0}.Env())) || Truthy(g.Eval(FrameState{Time: 2}.Env())) {
		t.Error("recompiled else guard evaluated wrong")
	}
}

func TestUnparseOverrideErrors(t *testing.T) {
	reg := testRegistry(t)
	p := mustCompile(t, reg, "search basics\nnoise().out(o0)")

	if _, err := Unparse(p, reg, Overrides{3: {"scale": 1}}); !errors.Is(err, ErrUnknownStep) {
		t.Errorf("unknown step error = %v", err)
	}

	if _, err := Unparse(p, reg, Overrides{0: {"bogus": 1}}); !errors.Is(err, ErrUnknownParam) {
		t.Errorf("unknown param error = %v", err)
	}

	if _, err := Unparse(nil, reg, nil); !errors.Is(err, ErrNilProgram) {
		t.Errorf("nil program error = %v", err)
	}
}
