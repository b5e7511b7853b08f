package repl

import (
	"strings"
	"testing"
)

func TestDetectFunctionCall(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  functionCall
	}{
		{"outside", "noise", functionCall{}},
		{"closed", "noise()", functionCall{}},
		{"first_arg", "noise(", functionCall{name: "noise", inCall: true}},
		{"second_arg", "noise(scale: 2, sp", functionCall{name: "noise", argIndex: 1, inCall: true}},
		{
			"keyword",
			"noise().blend(tex: o1, mode: scr",
			functionCall{name: "blend", argIndex: 1, keyword: "mode", inCall: true},
		},
		{
			"nested",
			"noise(scale: sine(min: 1, max",
			functionCall{name: "sine", argIndex: 1, inCall: true},
		},
		{
			"nested_closed",
			"noise(scale: sine(min: 1), sp",
			functionCall{name: "noise", argIndex: 1, inCall: true},
		},
		{
			"vector_commas",
			"levels(tint: vec3(1, 0, 0), gam",
			functionCall{name: "levels", argIndex: 1, inCall: true},
		},
		{"qualified", "noise().filter.blur(", functionCall{name: "filter.blur", inCall: true}},
		{"grouping", "(", functionCall{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := detectFunctionCall(tt.input, len(tt.input))
			if got != tt.want {
				t.Errorf("detectFunctionCall(%q) = %+v, want %+v", tt.input, got, tt.want)
			}
		})
	}
}

func TestLookupSignature(t *testing.T) {
	reg := newTestSession(t, "").eng.Registry()
	search := []string{"basics", "filter"}

	sig, ok := lookupSignature(reg, search, "noise")
	if !ok {
		t.Fatal("lookupSignature(noise) not found")
	}

	if len(sig.params) == 0 || sig.params[0] != "scale: float = 1" {
		t.Errorf("noise params = %v", sig.params)
	}

	if sig, ok := lookupSignature(reg, search, "sine"); !ok ||
		sig.String() != "sine(min, max, speed, offset)" {
		t.Errorf("lookupSignature(sine) = %v, %v", sig, ok)
	}

	if _, ok := lookupSignature(reg, search, "nothing"); ok {
		t.Error("lookupSignature(nothing) found")
	}
}

func TestParamIndex(t *testing.T) {
	sig := signature{name: "noise", params: []string{"scale: float = 1", "speed: float = 0.1", "seed: float = 0"}}

	tests := []struct {
		name string
		call functionCall
		want int
	}{
		{"positional", functionCall{argIndex: 2}, 2},
		{"keyword", functionCall{argIndex: 0, keyword: "speed"}, 1},
		{"unknown_keyword", functionCall{argIndex: 0, keyword: "sped"}, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := paramIndex(sig, tt.call); got != tt.want {
				t.Errorf("paramIndex() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestRenderSignatureHint(t *testing.T) {
	got := renderSignatureHint(signatures["mix"], 1)

	for _, s := range []string{"mix", "a", "b", "t", "(", ")"} {
		if !strings.Contains(got, s) {
			t.Errorf("renderSignatureHint() = %q, missing %q", got, s)
		}
	}
}

func BenchmarkDetectFunctionCall(b *testing.B) {
	input := "noise(scale: sine(min: 1, max: 4), speed: () => time * 0.5).blend(tex: o1, mode: scr"

	for b.Loop() {
		_ = detectFunctionCall(input, len(input))
	}
}

func BenchmarkLookupSignature(b *testing.B) {
	reg := newTestSession(b, "").eng.Registry()
	search := []string{"basics", "filter"}
	names := []string{"noise", "blend", "blur", "sine", "levels"}

	var i int

	for b.Loop() {
		_, _ = lookupSignature(reg, search, names[i%len(names)])
		i++
	}
}
