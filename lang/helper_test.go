package lang

import (
	"context"
	"testing"

	"github.com/ardnew/fxc/registry"
)

func ptr(v float64) *float64 { return &v }

// testRegistry returns a small catalog with two namespaces that both
// export "blur".
func testRegistry(t testing.TB) *registry.Registry {
	t.Helper()

	reg := registry.New()

	must := func(err error) {
		t.Helper()

		if err != nil {
			t.Fatalf("registry setup: %v", err)
		}
	}

	exports := func(ns string, names ...string) []registry.Export {
		out := make([]registry.Export, len(names))
		for i, n := range names {
			out[i] = registry.Export{Namespace: ns, Name: n}
		}

		return out
	}

	must(reg.Namespaces.Register("basics",
		exports("basics", "noise", "solid", "gradient", "read", "blend", "blur")...))
	must(reg.Namespaces.Register("filter",
		exports("filter", "blur", "levels")...))

	must(reg.Ops.Register("basics.noise", registry.OpSpec{Args: []registry.ArgSpec{
		{Name: "scale", Type: registry.ArgFloat, Default: 1.0, Min: ptr(0), Max: ptr(100)},
		{Name: "speed", Type: registry.ArgFloat, Default: 0.1},
		{Name: "seed", Type: registry.ArgInt, Default: 0},
		{Name: "octaves", Type: registry.ArgInt, Default: 1, Min: ptr(1), Max: ptr(8)},
	}}))
	must(reg.Ops.Register("basics.solid", registry.OpSpec{Args: []registry.ArgSpec{
		{Name: "color", Type: registry.ArgColor, Default: "#000000"},
	}}))
	must(reg.Ops.Register("basics.gradient", registry.OpSpec{Args: []registry.ArgSpec{
		{Name: "angle", Type: registry.ArgFloat, Default: 0.0},
	}}))
	must(reg.Ops.Register("basics.read", registry.OpSpec{Args: []registry.ArgSpec{
		{Name: "tex", Type: registry.ArgSurface, Default: "o0"},
	}}))
	must(reg.Ops.Register("basics.blend", registry.OpSpec{Args: []registry.ArgSpec{
		{Name: "tex", Type: registry.ArgSurface},
		{Name: "mode", Type: registry.ArgMember, Enum: "blend.mode", Default: "normal"},
		{Name: "amount", Type: registry.ArgFloat, Default: 0.5, Min: ptr(0), Max: ptr(1)},
	}}))
	must(reg.Ops.Register("basics.blur", registry.OpSpec{Args: []registry.ArgSpec{
		{Name: "radius", Type: registry.ArgFloat, Default: 1.0, Min: ptr(0), Max: ptr(64)},
	}}))
	must(reg.Ops.Register("filter.blur", registry.OpSpec{Args: []registry.ArgSpec{
		{Name: "radius", Type: registry.ArgFloat, Default: 2.0},
		{Name: "passes", Type: registry.ArgInt, Default: 1},
	}}))
	must(reg.Ops.Register("filter.levels", registry.OpSpec{Args: []registry.ArgSpec{
		{Name: "gamma", Type: registry.ArgFloat, Default: 1.0},
		{Name: "invert", Type: registry.ArgBoolean},
		{Name: "tint", Type: registry.ArgVec3},
		{Name: "wrap", Type: registry.ArgMember, Choices: map[string]float64{"clamp": 0, "repeat": 1}},
	}}))

	reg.Ops.RegisterStarters("basics.noise", "basics.solid", "basics.gradient")
	reg.Ops.RegisterPassthrough("basics.read")

	must(reg.Enums.Merge(map[string]any{
		"blend": map[string]any{
			"mode": map[string]any{"normal": 0, "add": 1, "multiply": 2, "screen": 3},
		},
	}))

	return reg
}

func mustCompile(t testing.TB, reg *registry.Registry, src string) *Planned {
	t.Helper()

	p, err := Compile(context.Background(), src, reg)
	if err != nil {
		t.Fatalf("Compile(%q) error = %v", src, err)
	}

	return p
}
