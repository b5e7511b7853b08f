package lang

import (
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/ardnew/fxc/pkg"
)

// ErrExprCompile is returned when a closure body does not compile.
var ErrExprCompile = pkg.NewError("expression compilation failed")

// Value is a resolved argument value. Literal values evaluate to
// themselves; [Dynamic] values are recomputed from frame state.
type Value interface {
	Eval(env Env) any
	String() string
}

// Scalar is a numeric literal.
type Scalar float64

// Boolean is a boolean literal.
type Boolean bool

// Text is a string literal.
type Text string

// Vector is a color or vec3/vec4 value. Literal keeps the source spelling
// of a hex color so it round-trips unchanged.
type Vector struct {
	Components []float64
	Literal    string
}

// Ref is a surface-valued argument.
type Ref SurfaceRef

func (v Scalar) Eval(Env) any { return float64(v) }
func (v Boolean) Eval(Env) any { return bool(v) }
func (v Text) Eval(Env) any { return string(v) }
func (v Vector) Eval(Env) any { return v.Components }
func (v Ref) Eval(Env) any { return SurfaceRef(v) }

func (v Scalar) String() string { return formatNumber(float64(v)) }
func (v Boolean) String() string { return strconv.FormatBool(bool(v)) }
func (v Text) String() string { return strconv.Quote(string(v)) }
func (v Ref) String() string { return SurfaceRef(v).Name() }

func (v Vector) String() string {
	if v.Literal != "" {
		return v.Literal
	}

	parts := make([]string, len(v.Components))
	for i, c := range v.Components {
		parts[i] = formatNumber(round6(c))
	}

	return "vec" + strconv.Itoa(len(parts)) + "(" + strings.Join(parts, ", ") + ")"
}

// ValueOf converts a plain Go value (as decoded from YAML or a command
// line) to a Value. Unsupported types yield nil.
func ValueOf(x any) Value {
	switch v := x.(type) {
	case Value:
		return v
	case bool:
		return Boolean(v)
	case string:
		return Text(v)
	case []float64:
		return Vector{Components: v}
	case []any:
		comps := make([]float64, 0, len(v))
		for _, e := range v {
			f, ok := toFloat(e)
			if !ok {
				return nil
			}

			comps = append(comps, f)
		}

		return Vector{Components: comps}
	}

	if f, ok := toFloat(x); ok {
		return Scalar(f)
	}

	return nil
}

// Env is the evaluation environment of dynamic values.
type Env map[string]any

// FrameState is the per-frame runtime state visible to dynamic values.
type FrameState struct {
	Time      float64
	DeltaTime float64
	Frame     int
	MouseX    float64
	MouseY    float64
	Seed      float64
	Width     int
	Height    int
}

// StateFields lists the identifiers that read [FrameState].
var StateFields = []string{
	"time", "deltaTime", "frame", "mouseX", "mouseY", "seed", "width", "height",
}

// IsStateField reports whether name reads frame state.
func IsStateField(name string) bool {
	for _, f := range StateFields {
		if f == name {
			return true
		}
	}

	return false
}

var envFuncs = map[string]any{
	"PI":     math.Pi,
	"sin":    math.Sin,
	"cos":    math.Cos,
	"tan":    math.Tan,
	"sqrt":   math.Sqrt,
	"pow":    math.Pow,
	"fract":  func(x float64) float64 { return x - math.Floor(x) },
	"mix":    func(a, b, t float64) float64 { return a + (b-a)*t },
	"clamp":  func(x, lo, hi float64) float64 { return math.Min(math.Max(x, lo), hi) },
	"truthy": func(x any) bool { return Truthy(x) },
}

// Env returns the evaluation environment for s. All numeric fields are
// float64 so closures can mix them freely.
func (s FrameState) Env() Env {
	env := make(Env, len(StateFields)+len(envFuncs))
	for k, v := range envFuncs {
		env[k] = v
	}

	env["time"] = s.Time
	env["deltaTime"] = s.DeltaTime
	env["frame"] = float64(s.Frame)
	env["mouseX"] = s.MouseX
	env["mouseY"] = s.MouseY
	env["seed"] = s.Seed
	env["width"] = float64(s.Width)
	env["height"] = float64(s.Height)

	return env
}

// DynamicKind tags a [Dynamic] value.
type DynamicKind int

// Dynamic kinds.
const (
	DynamicClosure DynamicKind = iota
	DynamicState
	DynamicOscillator
)

// Waves are the oscillator shapes.
var Waves = []string{"sine", "tri", "saw", "square"}

// IsWave reports whether name is an oscillator shape.
func IsWave(name string) bool {
	for _, w := range Waves {
		if w == name {
			return true
		}
	}

	return false
}

// Oscillator is a periodic value min + (max-min)*wave(time*speed+offset).
type Oscillator struct {
	Wave   string
	Min    float64
	Max    float64
	Speed  float64
	Offset float64
}

// At returns the oscillator value at time t.
func (o Oscillator) At(t float64) float64 {
	phase := t*o.Speed + o.Offset
	frac := phase - math.Floor(phase)

	var w float64

	switch o.Wave {
	case "sine":
		w = 0.5 + 0.5*math.Sin(2*math.Pi*phase)
	case "tri":
		w = 1 - math.Abs(2*frac-1)
	case "saw":
		w = frac
	case "square":
		if frac < 0.5 {
			w = 1
		}
	}

	return o.Min + (o.Max-o.Min)*w
}

// Dynamic is a value computed once per frame from frame state: a compiled
// closure body, a state field read, or an oscillator.
type Dynamic struct {
	Kind DynamicKind
	// Source is the closure body or the state field name.
	Source string
	Osc    Oscillator
	// Min and Max, when set, bound numeric results.
	Min    *float64
	Max    *float64
	Negate bool

	program *vm.Program
}

var compileEnv = map[string]any(FrameState{}.Env())

// CompileClosure compiles a closure body. A "Math." prefix on identifiers
// is accepted and ignored.
func CompileClosure(src string) (*Dynamic, error) {
	body := strings.ReplaceAll(src, "Math.", "")

	program, err := expr.Compile(body, expr.Env(compileEnv))
	if err != nil {
		return nil, ErrExprCompile.Wrap(err).With(slog.String("source", src))
	}

	return &Dynamic{Kind: DynamicClosure, Source: src, program: program}, nil
}

// StateRead returns a Dynamic reading one state field.
func StateRead(field string) *Dynamic {
	return &Dynamic{Kind: DynamicState, Source: field}
}

// Oscillate returns a Dynamic oscillator.
func Oscillate(o Oscillator) *Dynamic {
	return &Dynamic{Kind: DynamicOscillator, Source: o.Wave, Osc: o}
}

// Not returns a copy of d with its truth value inverted.
func (d *Dynamic) Not() *Dynamic {
	c := *d
	c.Negate = !c.Negate

	return &c
}

// Bounded returns a copy of d clamped to [lo, hi]; nil bounds are open.
func (d *Dynamic) Bounded(lo, hi *float64) *Dynamic {
	c := *d
	c.Min, c.Max = lo, hi

	return &c
}

// Run evaluates d against env.
func (d *Dynamic) Run(env Env) (any, error) {
	var (
		out any
		err error
	)

	switch d.Kind {
	case DynamicClosure:
		out, err = vm.Run(d.program, map[string]any(env))
		if err != nil {
			return nil, ErrExprCompile.Wrap(err).With(slog.String("source", d.Source))
		}

	case DynamicState:
		out = env[d.Source]

	case DynamicOscillator:
		t, _ := toFloat(env["time"])
		out = d.Osc.At(t)
	}

	if d.Negate {
		return !Truthy(out), nil
	}

	if _, isBool := out.(bool); isBool {
		return out, nil
	}

	f, ok := toFloat(out)
	if !ok {
		return out, nil
	}

	if d.Min != nil && f < *d.Min {
		f = *d.Min
	}

	if d.Max != nil && f > *d.Max {
		f = *d.Max
	}

	return f, nil
}

// Eval evaluates d, yielding nil on runtime error.
func (d *Dynamic) Eval(env Env) any {
	out, err := d.Run(env)
	if err != nil {
		return nil
	}

	return out
}

func (d *Dynamic) String() string {
	var s string

	switch d.Kind {
	case DynamicClosure:
		s = "() => " + d.Source
	case DynamicState:
		s = d.Source
	case DynamicOscillator:
		s = d.Osc.Wave + "(min: " + formatNumber(round6(d.Osc.Min)) +
			", max: " + formatNumber(round6(d.Osc.Max)) +
			", speed: " + formatNumber(round6(d.Osc.Speed)) +
			", offset: " + formatNumber(round6(d.Osc.Offset)) + ")"
	}

	if d.Negate {
		return "!(" + s + ")"
	}

	return s
}

// Expr returns expression source equivalent to d, suitable as a closure
// body.
func (d *Dynamic) Expr() string {
	var s string

	switch d.Kind {
	case DynamicClosure, DynamicState:
		s = d.Source
	case DynamicOscillator:
		s = d.Osc.Expr()
	}

	if d.Negate {
		return "!truthy(" + s + ")"
	}

	return s
}

// Expr returns expression source computing the oscillator.
func (o Oscillator) Expr() string {
	phase := "(time * " + formatNumber(o.Speed) + " + " + formatNumber(o.Offset) + ")"

	var w string

	switch o.Wave {
	case "sine":
		w = "(0.5 + 0.5 * sin(2 * PI * " + phase + "))"
	case "tri":
		w = "(1 - abs(2 * fract" + phase + " - 1))"
	case "saw":
		w = "fract" + phase
	case "square":
		w = "(fract" + phase + " < 0.5 ? 1 : 0)"
	}

	return formatNumber(o.Min) + " + " + formatNumber(o.Max-o.Min) + " * " + w
}

// Truthy reports the truth value of an evaluated value.
func Truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != ""
	}

	f, ok := toFloat(v)

	return ok && f != 0
}

// Float converts an evaluated value to float64.
func Float(v any) (float64, bool) { return toFloat(v) }

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case bool:
		if n {
			return 1, true
		}

		return 0, true
	}

	return 0, false
}

func round6(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}
