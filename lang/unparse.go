package lang

import (
	"log/slog"
	"maps"
	"slices"
	"strings"

	"github.com/ardnew/fxc/registry"
)

// Overrides replaces step arguments when unparsing, keyed by step temp
// and then by parameter name. Values are plain Go values (see [ValueOf])
// or Values.
type Overrides map[int]map[string]any

// Unparse regenerates DSL source from p. Each chain is written with
// keyword arguments; only arguments given in the source or overridden are
// emitted. Overrides win over the step's own arguments. A namespace
// qualifier is dropped when the bare name resolves to the same operation
// through the program's search order.
func Unparse(
	p *Planned,
	reg *registry.Registry,
	overrides Overrides,
	opts ...Option,
) (string, error) {
	if p == nil {
		return "", ErrNilProgram
	}

	if reg == nil {
		reg = registry.New()
	}

	for temp, params := range overrides {
		if temp < 0 || temp >= len(p.Steps) {
			return "", ErrUnknownStep.With(slog.Int("step", temp))
		}

		spec, ok := reg.Ops.Lookup(p.Steps[temp].Op)
		if !ok {
			continue
		}

		for name := range params {
			if _, _, ok := spec.Arg(name); !ok {
				return "", ErrUnknownParam.With(
					slog.Int("step", temp),
					slog.String("param", name),
				)
			}
		}
	}

	u := &unparser{p: p, reg: reg, overrides: overrides}

	return u.run(), nil
}

type unparser struct {
	p         *Planned
	reg       *registry.Registry
	overrides Overrides
	sb        strings.Builder
}

func (u *unparser) run() string {
	u.sb.WriteString("search ")
	u.sb.WriteString(strings.Join(u.p.Search, ", "))
	u.sb.WriteByte('\n')

	consumed := make(map[int]bool, len(u.p.Steps))

	for _, s := range u.p.Steps {
		if s.From != NoInput {
			consumed[s.From] = true
		}

		for _, v := range s.Args {
			if r, ok := v.(Ref); ok && r.Kind == SurfaceTemp {
				consumed[r.Index] = true
			}
		}
	}

	var (
		open []string
		prev = ""
	)

	for _, s := range u.p.Steps {
		if consumed[s.Temp] {
			continue
		}

		headers := u.headers(s)
		if sig := strings.Join(headers, "\n"); sig != prev || len(open) != len(headers) {
			u.close(len(open))
			open = headers

			for i, h := range headers {
				u.indent(i)
				u.sb.WriteString(h)
				u.sb.WriteString(" {\n")
			}

			prev = sig
		}

		u.indent(len(open))
		u.sb.WriteString(u.chain(s.Temp))
		u.sb.WriteByte('\n')
	}

	u.close(len(open))

	if u.p.Render != nil {
		u.sb.WriteString("render(")
		u.sb.WriteString(u.p.Render.Name())
		u.sb.WriteString(")\n")
	}

	return u.sb.String()
}

// headers returns the block openers wrapping s: one if per guard, then a
// loop for a non-default repeat.
func (u *unparser) headers(s Step) []string {
	var out []string

	for _, g := range s.Guards {
		out = append(out, "if "+dynamicText(g))
	}

	if !s.Repeat.IsOnce() {
		switch {
		case s.Repeat.Dynamic == nil:
			out = append(out, "loop "+formatNumber(float64(s.Repeat.Count)))
		case s.Repeat.Count > 1:
			out = append(out, "loop "+formatNumber(float64(s.Repeat.Count)))
			out = append(out, "loop "+dynamicText(s.Repeat.Dynamic))
		default:
			out = append(out, "loop "+dynamicText(s.Repeat.Dynamic))
		}
	}

	return out
}

func (u *unparser) close(n int) {
	for i := n - 1; i >= 0; i-- {
		u.indent(i)
		u.sb.WriteString("}\n")
	}
}

func (u *unparser) indent(n int) {
	u.sb.WriteString(strings.Repeat("  ", n))
}

// chain renders the calls ending at temp, following From links back to
// the chain head, and the terminal out of temp when it has one.
func (u *unparser) chain(temp int) string {
	var seq []int
	for cur := temp; cur != NoInput; cur = u.p.Steps[cur].From {
		seq = append(seq, cur)
	}

	slices.Reverse(seq)

	calls := make([]string, len(seq))
	for i, t := range seq {
		calls[i] = u.call(u.p.Steps[t])
	}

	text := strings.Join(calls, ".")

	if out := u.p.Steps[temp].Out; out != nil {
		text += ".out(" + out.Name() + ")"
	}

	return text
}

func (u *unparser) call(s Step) string {
	over := u.overrides[s.Temp]

	var (
		names []string
		specs = map[string]registry.ArgSpec{}
	)

	if spec, ok := u.reg.Ops.Lookup(s.Op); ok {
		for _, a := range spec.Args {
			specs[a.Name] = a
			names = append(names, a.Name)
		}
	} else {
		names = slices.Sorted(maps.Keys(s.Args))
	}

	var args []string

	for _, name := range names {
		a := specs[name]

		var text string

		if x, ok := over[name]; ok {
			text = u.overrideText(a, x)
		} else if s.Explicit[name] {
			v, ok := s.Args[name]
			if !ok {
				continue
			}

			text = u.value(a, v)
		} else {
			continue
		}

		args = append(args, name+": "+text)
	}

	return u.name(s.Op) + "(" + strings.Join(args, ", ") + ")"
}

func (u *unparser) name(op string) string {
	i := strings.LastIndexByte(op, '.')
	if i < 0 {
		return op
	}

	ns, bare := op[:i], op[i+1:]
	if !slices.Contains(u.p.Search, ns) {
		return op
	}

	exp, ok := u.reg.Namespaces.ResolveCallTarget(bare,
		&registry.Context{Preferred: u.p.Search})
	if ok && exp.Canonical() == op {
		return bare
	}

	return op
}

func (u *unparser) overrideText(a registry.ArgSpec, x any) string {
	if s, ok := x.(string); ok {
		switch a.Type {
		case registry.ArgMember:
			return s
		case registry.ArgSurface:
			if ref, ok := ParseSurface(s); ok {
				return ref.Name()
			}
		case registry.ArgColor, registry.ArgVec3, registry.ArgVec4:
			if strings.HasPrefix(s, "#") {
				return s
			}
		}
	}

	v := ValueOf(x)
	if v == nil {
		return "0"
	}

	return u.value(a, v)
}

func (u *unparser) value(a registry.ArgSpec, v Value) string {
	switch x := v.(type) {
	case Scalar:
		if a.Type == registry.ArgMember || a.Enum != "" || len(a.Choices) > 0 {
			if name, ok := u.memberName(a, float64(x)); ok {
				return name
			}
		}

		return formatNumber(round6(float64(x)))

	case Ref:
		if x.Kind == SurfaceTemp {
			return u.chain(x.Index)
		}

		return x.String()

	case *Dynamic:
		return dynamicText(x)
	}

	return v.String()
}

func (u *unparser) memberName(a registry.ArgSpec, f float64) (string, bool) {
	for _, k := range slices.Sorted(maps.Keys(a.Choices)) {
		if a.Choices[k] == f && !IsKeyword(k) {
			return k, true
		}
	}

	if a.Enum == "" {
		return "", false
	}

	name, ok := u.reg.Enums.Snapshot().Find(strings.Split(a.Enum, ".")).Reverse(f)
	if !ok || IsKeyword(name) || IsStateField(name) {
		return "", false
	}

	return name, true
}

// dynamicText renders d in argument or condition position.
func dynamicText(d *Dynamic) string {
	if !d.Negate {
		switch d.Kind {
		case DynamicState:
			return d.Source
		case DynamicOscillator:
			return d.String()
		}
	}

	return "() => " + d.Expr()
}
