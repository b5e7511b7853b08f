package lang

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"math"
	"slices"
	"strings"

	"github.com/sahilm/fuzzy"

	"github.com/ardnew/fxc/registry"
)

// maxAliasDepth bounds variable-to-variable indirection.
const maxAliasDepth = 32

// Validate lowers prog into a [Planned] chain, resolving every call
// against reg.
//
// A program without a search order is rejected with [ErrNoSearchOrder].
// Every other problem is reported as a [Diagnostic] and a safe default is
// substituted, so the returned chain is always usable.
func Validate(
	ctx context.Context,
	prog *Program,
	reg *registry.Registry,
	opts ...Option,
) (*Planned, error) {
	if prog == nil {
		return nil, ErrNilProgram
	}

	if len(prog.Search) == 0 {
		return nil, ErrNoSearchOrder.With(
			slog.String("hint", "begin the program with a search directive"))
	}

	if reg == nil {
		reg = registry.New()
	}

	v := &validator{
		cfg:  makeConfig(opts...),
		reg:  reg,
		vars: make(map[string]Expr),
	}

	v.block(prog.Statements)

	planned := &Planned{
		Steps:       v.steps,
		Diagnostics: v.diags,
		Search:      slices.Clone(prog.Search),
	}

	if prog.Render != nil {
		r := *prog.Render
		planned.Render = &r
	}

	planned.ID = planned.hash()

	v.cfg.logger.DebugContext(ctx, "validate complete",
		slog.Int("steps", len(planned.Steps)),
		slog.Int("diagnostics", len(planned.Diagnostics)),
		slog.String("id", planned.ID))

	return planned, nil
}

type flow int

const (
	flowNone flow = iota
	flowBreak
	flowContinue
	flowReturn
)

type validator struct {
	cfg    config
	reg    *registry.Registry
	steps  []Step
	diags  Diagnostics
	vars   map[string]Expr
	guards []*Dynamic
	loops  int
}

func (v *validator) report(code string, at Pos, ident, msg string, candidates []string) {
	d := Diagnostic{
		Code:       code,
		Severity:   codeSeverity[code],
		Message:    msg,
		Pos:        at,
		Identifier: ident,
	}

	if v.cfg.suggest && ident != "" && len(candidates) > 0 {
		if m := fuzzy.Find(ident, candidates); len(m) > 0 && m[0].Str != ident {
			d.Suggestion = m[0].Str
		}
	}

	v.diags = append(v.diags, d)
}

// Statements

func (v *validator) block(stmts []Stmt) flow {
	for i, s := range stmts {
		if f := v.stmt(s); f != flowNone {
			for _, rest := range stmts[i+1:] {
				v.report(CodeUnreachable, rest.Position(), "", "unreachable statement", nil)
			}

			return f
		}
	}

	return flowNone
}

func (v *validator) stmt(s Stmt) flow {
	switch x := s.(type) {
	case *VarAssign:
		v.bind(x)

	case *ChainStmt:
		v.chain(x.Chain, false)

	case *If:
		return v.ifStmt(x)

	case *Loop:
		return v.loop(x)

	case *Break:
		if v.loops == 0 {
			v.report(CodeFlowOutside, x.Pos, "break", "break outside loop", nil)

			return flowNone
		}

		return flowBreak

	case *Continue:
		if v.loops == 0 {
			v.report(CodeFlowOutside, x.Pos, "continue", "continue outside loop", nil)

			return flowNone
		}

		return flowContinue

	case *Return:
		return flowReturn
	}

	return flowNone
}

func (v *validator) guarded(extra []*Dynamic, body []Stmt) flow {
	saved := v.guards
	v.guards = append(slices.Clip(saved), extra...)
	f := v.block(body)
	v.guards = saved

	return f
}

func (v *validator) ifStmt(x *If) flow {
	var negs []*Dynamic

	for _, br := range x.Branches {
		val, ok := v.scalar(br.Cond, nil, nil, "condition")
		if !ok {
			continue
		}

		switch c := val.(type) {
		case *Dynamic:
			v.guarded(append(slices.Clip(negs), c), br.Body)
			negs = append(negs, c.Not())

		default:
			if !Truthy(c.Eval(nil)) {
				continue
			}

			f := v.guarded(negs, br.Body)
			if len(negs) > 0 {
				return flowNone
			}

			return f
		}
	}

	if x.HasElse {
		f := v.guarded(negs, x.Else)
		if len(negs) == 0 {
			return f
		}
	}

	return flowNone
}

func (v *validator) loop(x *Loop) flow {
	count := 1

	var dyn *Dynamic

	if x.Count != nil {
		val, ok := v.scalar(x.Count, nil, nil, "loop count")
		if !ok {
			return flowNone
		}

		switch c := val.(type) {
		case Scalar:
			switch n := math.Round(float64(c)); {
			case math.IsNaN(n) || n <= 0:
				count = 0
			case n > MaxRepeat:
				v.report(CodeOutOfRange, x.Pos, "",
					fmt.Sprintf("loop count %s exceeds %d; clamped", formatNumber(float64(c)), MaxRepeat), nil)

				count = MaxRepeat
			default:
				count = int(n)
			}
		case Boolean:
			v.report(CodeTypeMismatch, x.Pos, "", "loop count must be numeric", nil)

			return flowNone
		case *Dynamic:
			dyn = c
		}
	}

	if count == 0 {
		v.report(CodeUnreachable, x.Pos, "", "loop body never executes", nil)

		return flowNone
	}

	start := len(v.steps)

	v.loops++
	f := v.block(x.Body)
	v.loops--

	switch f {
	case flowBreak:
		return flowNone
	case flowReturn:
		return flowReturn
	}

	capped := false

	for i := start; i < len(v.steps); i++ {
		r := &v.steps[i].Repeat

		var over bool

		r.Count, over = mulRepeat(r.Count, count)
		capped = capped || over

		if dyn != nil {
			if r.Dynamic != nil {
				v.report(CodeTypeMismatch, x.Pos, "",
					"nested dynamic loop counts are not supported; using the inner count", nil)

				continue
			}

			r.Dynamic = dyn
		}
	}

	if capped {
		v.report(CodeOutOfRange, x.Pos, "",
			fmt.Sprintf("nested loop counts exceed %d; clamped", MaxRepeat), nil)
	}

	return flowNone
}

// Bindings

func (v *validator) bind(x *VarAssign) {
	switch e := x.Value.(type) {
	case *Ident:
		if b, ok := v.vars[e.Name]; ok {
			v.vars[x.Name] = b

			return
		}

	case *Call:
		calls := v.expandCall(e)
		if len(calls) == 1 {
			v.vars[x.Name] = calls[0]

			return
		}

		v.vars[x.Name] = &Chain{Calls: calls, Pos: e.Pos}

		return

	case *Chain:
		v.vars[x.Name] = &Chain{Calls: v.expandChain(e), Pos: e.Pos}

		return
	}

	v.vars[x.Name] = x.Value
}

// deref follows variable references.
func (v *validator) deref(e Expr) Expr {
	for range maxAliasDepth {
		id, ok := e.(*Ident)
		if !ok {
			return e
		}

		b, ok := v.vars[id.Name]
		if !ok {
			return e
		}

		e = b
	}

	return e
}

// expandCall substitutes variables used as call names: an alias renames
// the call, a partial call merges arguments (positional appended, keyword
// overwritten) and a chain variable splices its calls.
func (v *validator) expandCall(c *Call) []*Call {
	if c.NS.Explicit {
		return []*Call{c}
	}

	b, ok := v.vars[c.Name]
	if !ok {
		return []*Call{c}
	}

	switch x := b.(type) {
	case *Ident:
		nc := *c
		nc.Name = x.Name

		return []*Call{&nc}

	case *Member:
		nc := *c
		nc.Name = x.Path[len(x.Path)-1]
		nc.NS = NamespaceRef{
			Name:     strings.Join(x.Path[:len(x.Path)-1], "."),
			Path:     slices.Clone(x.Path[:len(x.Path)-1]),
			Explicit: true,
			Source:   SourceQualified,
			Resolved: true,
			Search:   c.NS.Search,
		}

		return []*Call{&nc}

	case *Call:
		return []*Call{mergeCall(x, c)}

	case *Chain:
		if len(c.Args) > 0 || len(c.Kwargs) > 0 {
			v.report(CodeTypeMismatch, c.Pos, c.Name,
				fmt.Sprintf("chain variable %q does not take arguments", c.Name), nil)
		}

		return slices.Clone(x.Calls)
	}

	v.report(CodeTypeMismatch, c.Pos, c.Name,
		fmt.Sprintf("variable %q is not callable", c.Name), nil)

	return nil
}

func mergeCall(base, use *Call) *Call {
	nc := *base
	nc.Pos = use.Pos
	nc.Args = append(slices.Clone(base.Args), use.Args...)
	nc.Kwargs = slices.Clone(base.Kwargs)

	for _, kw := range use.Kwargs {
		i := slices.IndexFunc(nc.Kwargs, func(k KeywordArg) bool { return k.Name == kw.Name })
		if i >= 0 {
			nc.Kwargs[i] = kw
		} else {
			nc.Kwargs = append(nc.Kwargs, kw)
		}
	}

	return &nc
}

func (v *validator) expandChain(ch *Chain) []*Call {
	var calls []*Call

	if ch.Base != "" {
		switch b := v.vars[ch.Base].(type) {
		case *Call:
			calls = append(calls, b)
		case *Chain:
			calls = append(calls, b.Calls...)
		case *Ident:
			calls = append(calls, &Call{Name: b.Name, Pos: ch.Pos})
		default:
			v.report(CodeTypeMismatch, ch.Pos, ch.Base,
				fmt.Sprintf("variable %q cannot start a chain", ch.Base), nil)
		}
	}

	for _, c := range ch.Calls {
		calls = append(calls, v.expandCall(c)...)
	}

	return calls
}

// Chains

// chain lowers ch and returns the temp index of its last step.
func (v *validator) chain(ch *Chain, sub bool) (int, bool) {
	cur := NoInput
	starter := ""
	first := true

	for _, c := range v.expandChain(ch) {
		canonical, spec, ok := v.resolve(c)
		if !ok {
			continue
		}

		isStarter := v.reg.Ops.IsStarter(canonical)

		if first {
			first = false

			if isStarter {
				starter = canonical
			}
		}

		switch {
		case cur == NoInput && !isStarter && !v.reg.Ops.IsPassthrough(canonical):
			v.report(CodeChainPosition, c.Pos, c.QualifiedName(),
				fmt.Sprintf("%s requires an input and cannot begin a chain", canonical), nil)

			continue

		case cur != NoInput && isStarter:
			v.report(CodeChainPosition, c.Pos, c.QualifiedName(),
				fmt.Sprintf("%s must begin a chain", canonical), nil)

			continue
		}

		cur = v.lower(c, canonical, spec, cur)
	}

	if cur == NoInput {
		return NoInput, false
	}

	switch {
	case ch.HasOut:
		if target, ok := v.outTarget(ch.Out); ok {
			v.steps[cur].Out = &target
		}

	case !sub && starter != "":
		v.report(CodeStarterWithoutOut, ch.Pos, starter,
			fmt.Sprintf("chain starting with %s has no out()", starter), nil)
	}

	return cur, true
}

func (v *validator) outTarget(e Expr) (SurfaceRef, bool) {
	switch x := v.deref(e).(type) {
	case *SurfaceRef:
		if x.Kind == SurfaceOutput || x.Kind == SurfaceFeedback {
			return SurfaceRef{Kind: x.Kind, Index: x.Index}, true
		}

		v.report(CodeTypeMismatch, x.Pos, x.Name(),
			"out() target must be an output or feedback surface", nil)

		return SurfaceRef{}, false

	case *Ident:
		v.report(CodeUnresolved, x.Pos, x.Name,
			fmt.Sprintf("unresolved surface %q", x.Name), nil)

		return SurfaceRef{}, false
	}

	v.report(CodeTypeMismatch, e.Position(), "", "out() target must be a surface", nil)

	return SurfaceRef{}, false
}

func (v *validator) resolve(c *Call) (string, *registry.OpSpec, bool) {
	var (
		exp registry.Export
		ok  bool
	)

	if c.NS.Explicit {
		exp, ok = v.reg.Namespaces.Lookup(c.NS.Name, c.Name)
	} else {
		exp, ok = v.reg.Namespaces.ResolveCallTarget(c.Name,
			&registry.Context{Preferred: c.NS.Preferred()})
	}

	name := c.QualifiedName()
	if ok {
		name = exp.Canonical()
	}

	if spec, found := v.reg.Ops.Lookup(name); found {
		return name, spec, true
	}

	v.report(CodeUnknown, c.Pos, c.QualifiedName(),
		fmt.Sprintf("unknown operation %q", c.QualifiedName()), v.callNames())

	return "", nil, false
}

func (v *validator) callNames() []string {
	seen := make(map[string]bool)

	var out []string

	for _, n := range append(v.reg.Namespaces.Names(), v.reg.Ops.Names()...) {
		if i := strings.LastIndexByte(n, '.'); i >= 0 {
			n = n[i+1:]
		}

		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}

	return out
}

// lower resolves c's arguments against spec and appends a step. Nested
// surface sub-chains are lowered first, so they receive smaller temps.
func (v *validator) lower(c *Call, canonical string, spec *registry.OpSpec, from int) int {
	actual := make(map[string]Expr, len(c.Args)+len(c.Kwargs))

	for i, a := range c.Args {
		if i >= len(spec.Args) {
			v.report(CodeUnknown, a.Position(), canonical,
				fmt.Sprintf("too many arguments to %s", canonical), nil)

			break
		}

		actual[spec.Args[i].Name] = a
	}

	for _, kw := range c.Kwargs {
		if _, _, ok := spec.Arg(kw.Name); !ok {
			v.report(CodeUnknown, kw.Pos, kw.Name,
				fmt.Sprintf("unknown argument %q to %s", kw.Name, canonical), spec.ArgNames())

			continue
		}

		actual[kw.Name] = kw.Value
	}

	args := make(map[string]Value, len(spec.Args))
	explicit := make(map[string]bool, len(actual))

	for _, a := range spec.Args {
		if e, given := actual[a.Name]; given {
			if val, ok := v.arg(a, e); ok {
				args[a.Name] = val
				explicit[a.Name] = true

				continue
			}
		}

		if d := v.defaultValue(a); d != nil {
			args[a.Name] = d
		}
	}

	temp := len(v.steps)
	v.steps = append(v.steps, Step{
		Op:       canonical,
		Args:     args,
		Explicit: explicit,
		From:     from,
		Temp:     temp,
		NS:       c.NS,
		Guards:   slices.Clone(v.guards),
		Repeat:   Repeat{Count: 1},
		Pos:      c.Pos,
	})

	return temp
}

// Arguments

func (v *validator) arg(a registry.ArgSpec, e Expr) (Value, bool) {
	e = v.deref(e)

	switch a.Type {
	case registry.ArgSurface:
		return v.surfaceArg(a, e)

	case registry.ArgFloat, registry.ArgInt:
		return v.numberArg(a, e)

	case registry.ArgBoolean:
		return v.boolArg(a, e)

	case registry.ArgString:
		if s, ok := e.(*StringLit); ok {
			return Text(s.Value), true
		}

	case registry.ArgColor, registry.ArgVec3, registry.ArgVec4:
		return v.vectorArg(a, e)

	case registry.ArgMember:
		return v.memberArg(a, e)
	}

	v.mismatch(a, e)

	return nil, false
}

func (v *validator) mismatch(a registry.ArgSpec, e Expr) {
	v.report(CodeTypeMismatch, e.Position(), a.Name,
		fmt.Sprintf("argument %q expects %s", a.Name, a.Type), nil)
}

// scalar resolves a numeric or boolean expression: a literal, a closure, a
// state field or an oscillator.
func (v *validator) scalar(e Expr, lo, hi *float64, what string) (Value, bool) {
	switch x := v.deref(e).(type) {
	case *NumberLit:
		return Scalar(x.Value), true

	case *BoolLit:
		return Boolean(x.Value), true

	case *Func:
		d, err := CompileClosure(x.Source)
		if err != nil {
			v.report(CodeUnresolved, x.Pos, x.Source,
				fmt.Sprintf("invalid %s expression: %v", what, err), nil)

			return nil, false
		}

		return d.Bounded(lo, hi), true

	case *Ident:
		if IsStateField(x.Name) {
			return StateRead(x.Name).Bounded(lo, hi), true
		}

		v.report(CodeUnresolved, x.Pos, x.Name,
			fmt.Sprintf("unresolved identifier %q", x.Name), StateFields)

		return nil, false

	case *Call:
		if IsWave(x.Name) && !x.NS.Explicit {
			o, ok := v.oscillator(x)
			if !ok {
				return nil, false
			}

			return Oscillate(o).Bounded(lo, hi), true
		}
	}

	v.report(CodeTypeMismatch, e.Position(), "",
		fmt.Sprintf("%s must be a number, boolean, closure or state field", what), nil)

	return nil, false
}

func (v *validator) numberArg(a registry.ArgSpec, e Expr) (Value, bool) {
	switch x := e.(type) {
	case *NumberLit:
		f := x.Value
		if a.Type == registry.ArgInt {
			f = math.Round(f)
		}

		c, clamped := a.Clamp(f)
		if clamped {
			v.report(CodeOutOfRange, x.Pos, a.Name,
				fmt.Sprintf("argument %q value %s out of range, clamped to %s",
					a.Name, formatNumber(f), formatNumber(c)), nil)
		}

		return Scalar(c), true

	case *BoolLit, *StringLit, *ColorLit, *SurfaceRef, *Chain:
		v.mismatch(a, e)

		return nil, false

	case *Ident:
		if !IsStateField(x.Name) && (a.Enum != "" || len(a.Choices) > 0) {
			return v.memberArg(a, e)
		}

	case *Member:
		if a.Enum != "" || len(a.Choices) > 0 {
			return v.memberArg(a, e)
		}

		if f, ok := v.reg.Enums.Resolve(x.Path); ok {
			c, _ := a.Clamp(f)

			return Scalar(c), true
		}

		v.report(CodeUnresolved, x.Pos, x.Dotted(),
			fmt.Sprintf("unresolved identifier %q", x.Dotted()), nil)

		return nil, false

	case *Call:
		if !IsWave(x.Name) || x.NS.Explicit {
			v.mismatch(a, e)

			return nil, false
		}
	}

	return v.scalar(e, a.Min, a.Max, "argument "+a.Name)
}

func (v *validator) boolArg(a registry.ArgSpec, e Expr) (Value, bool) {
	switch x := e.(type) {
	case *BoolLit:
		return Boolean(x.Value), true

	case *NumberLit:
		return Boolean(x.Value != 0), true

	case *Func, *Ident:
		return v.scalar(e, nil, nil, "argument "+a.Name)
	}

	v.mismatch(a, e)

	return nil, false
}

func (v *validator) oscillator(c *Call) (Oscillator, bool) {
	o := Oscillator{Wave: c.Name, Min: 0, Max: 1, Speed: 1}
	fields := []*float64{&o.Min, &o.Max, &o.Speed, &o.Offset}
	names := []string{"min", "max", "speed", "offset"}

	set := func(i int, e Expr) bool {
		n, ok := e.(*NumberLit)
		if !ok {
			v.report(CodeTypeMismatch, e.Position(), names[i],
				fmt.Sprintf("%s argument %q must be a number", c.Name, names[i]), nil)

			return false
		}

		*fields[i] = n.Value

		return true
	}

	for i, a := range c.Args {
		if i >= len(fields) {
			v.report(CodeUnknown, a.Position(), c.Name,
				fmt.Sprintf("too many arguments to %s", c.Name), nil)

			return o, false
		}

		if !set(i, a) {
			return o, false
		}
	}

	for _, kw := range c.Kwargs {
		i := slices.Index(names, kw.Name)
		if i < 0 {
			v.report(CodeUnknown, kw.Pos, kw.Name,
				fmt.Sprintf("unknown argument %q to %s", kw.Name, c.Name), names)

			return o, false
		}

		if !set(i, kw.Value) {
			return o, false
		}
	}

	return o, true
}

func vectorSize(t registry.ArgType) int {
	if t == registry.ArgVec3 {
		return 3
	}

	return 4
}

func (v *validator) vectorArg(a registry.ArgSpec, e Expr) (Value, bool) {
	want := vectorSize(a.Type)

	switch x := e.(type) {
	case *ColorLit:
		vec := Vector{Components: slices.Clone(x.RGBA[:want])}
		if a.Type == registry.ArgColor || len(x.Raw) != 9 {
			vec.Literal = x.Raw
		}

		return vec, true

	case *Call:
		if x.NS.Explicit || (x.Name != "vec3" && x.Name != "vec4") || len(x.Kwargs) > 0 {
			break
		}

		have := 3
		if x.Name == "vec4" {
			have = 4
		}

		if len(x.Args) != have || have > want {
			v.report(CodeTypeMismatch, x.Pos, a.Name,
				fmt.Sprintf("argument %q expects %s, got %s", a.Name, a.Type, x.Name), nil)

			return nil, false
		}

		comps := make([]float64, 0, want)

		for _, arg := range x.Args {
			n, ok := arg.(*NumberLit)
			if !ok {
				v.report(CodeTypeMismatch, arg.Position(), a.Name,
					x.Name+" components must be numeric literals", nil)

				return nil, false
			}

			comps = append(comps, n.Value)
		}

		if len(comps) < want {
			comps = append(comps, 1)
		}

		return Vector{Components: comps}, true
	}

	v.mismatch(a, e)

	return nil, false
}

func (v *validator) memberArg(a registry.ArgSpec, e Expr) (Value, bool) {
	var path []string

	switch x := e.(type) {
	case *NumberLit:
		return Scalar(x.Value), true
	case *Ident:
		path = []string{x.Name}
	case *Member:
		path = x.Path
	case *StringLit:
		path = strings.Split(x.Value, ".")
	default:
		v.mismatch(a, e)

		return nil, false
	}

	if f, ok := v.member(a, path); ok {
		return Scalar(f), true
	}

	dotted := strings.Join(path, ".")
	v.report(CodeUnknown, e.Position(), dotted,
		fmt.Sprintf("unknown value %q for argument %q", dotted, a.Name), v.memberNames(a))

	return nil, false
}

func (v *validator) member(a registry.ArgSpec, path []string) (float64, bool) {
	if len(path) == 1 {
		if f, ok := a.Choices[path[0]]; ok {
			return f, true
		}
	}

	var prefix []string
	if a.Enum != "" {
		prefix = strings.Split(a.Enum, ".")
	}

	f, _, ok := v.reg.Enums.ResolvePrefixed(path, prefix)

	return f, ok
}

func (v *validator) memberNames(a registry.ArgSpec) []string {
	names := slices.Sorted(maps.Keys(a.Choices))

	if a.Enum != "" {
		node := v.reg.Enums.Snapshot().Find(strings.Split(a.Enum, "."))
		names = append(names, node.Names()...)
	}

	return names
}

func (v *validator) surfaceArg(a registry.ArgSpec, e Expr) (Value, bool) {
	switch x := e.(type) {
	case *SurfaceRef:
		return Ref{Kind: x.Kind, Index: x.Index}, true

	case *StringLit:
		if ref, ok := ParseSurface(x.Value); ok {
			return Ref(ref), true
		}

	case *Call:
		return v.subchain(&Chain{Calls: []*Call{x}, Pos: x.Pos})

	case *Chain:
		return v.subchain(x)

	case *Ident:
		v.report(CodeUnresolved, x.Pos, x.Name,
			fmt.Sprintf("unresolved surface %q", x.Name), nil)

		return nil, false
	}

	v.mismatch(a, e)

	return nil, false
}

func (v *validator) subchain(ch *Chain) (Value, bool) {
	idx, ok := v.chain(ch, true)
	if !ok {
		return nil, false
	}

	return Ref{Kind: SurfaceTemp, Index: idx}, true
}

// defaultValue converts a declared default to a Value. Arguments without
// a default get the zero value of their type; surface arguments without
// a default are omitted.
func (v *validator) defaultValue(a registry.ArgSpec) Value {
	switch a.Type {
	case registry.ArgSurface:
		s, _ := a.Default.(string)
		if ref, ok := ParseSurface(s); ok {
			return Ref(ref)
		}

		return nil

	case registry.ArgMember:
		if s, ok := a.Default.(string); ok {
			f, _ := v.member(a, strings.Split(s, "."))

			return Scalar(f)
		}

	case registry.ArgColor, registry.ArgVec3, registry.ArgVec4:
		want := vectorSize(a.Type)

		if s, ok := a.Default.(string); ok && strings.HasPrefix(s, "#") {
			c := parseColor(s, Pos{})
			vec := Vector{Components: slices.Clone(c.RGBA[:want])}

			if a.Type == registry.ArgColor {
				vec.Literal = s
			}

			return vec
		}

		if vec, ok := ValueOf(a.Default).(Vector); ok {
			return vec
		}

		comps := make([]float64, want)
		if want == 4 {
			comps[3] = 1
		}

		return Vector{Components: comps}
	}

	if a.Default == nil {
		switch a.Type {
		case registry.ArgBoolean:
			return Boolean(false)
		case registry.ArgString:
			return Text("")
		}

		return Scalar(0)
	}

	val := ValueOf(a.Default)
	if s, ok := val.(Scalar); ok {
		c, _ := a.Clamp(float64(s))

		return Scalar(c)
	}

	return val
}
