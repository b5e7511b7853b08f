package lang

import (
	"maps"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/zeebo/xxh3"
)

// NoInput is the From value of a step that starts a chain.
const NoInput = -1

// MaxRepeat bounds how many times a step executes per frame.
const MaxRepeat = 1024

// Repeat is how many times a step executes per frame.
type Repeat struct {
	Count   int
	Dynamic *Dynamic
}

// Times evaluates the repeat count against env. The result is in
// [0, MaxRepeat].
func (r Repeat) Times(env Env) int {
	n := r.Count
	if n == 0 {
		n = 1
	}

	if r.Dynamic != nil {
		f, _ := toFloat(r.Dynamic.Eval(env))

		switch {
		case math.IsNaN(f) || f < 0:
			f = 0
		case f > MaxRepeat:
			f = MaxRepeat
		}

		n, _ = mulRepeat(n, int(f))
	}

	return min(n, MaxRepeat)
}

// mulRepeat returns a*b capped at MaxRepeat and whether it was capped.
func mulRepeat(a, b int) (int, bool) {
	if a <= 0 || b <= 0 {
		return 0, false
	}

	if a > MaxRepeat/b {
		return MaxRepeat, true
	}

	return a * b, false
}

// IsOnce reports whether r is the default single execution.
func (r Repeat) IsOnce() bool {
	return (r.Count == 0 || r.Count == 1) && r.Dynamic == nil
}

// Step is one fully resolved operation call.
type Step struct {
	// Op is the canonical operation name.
	Op   string
	Args map[string]Value
	// Explicit marks arguments written in the source.
	Explicit map[string]bool
	// From is the temp index of the step's input, or NoInput.
	From int
	// Temp is the step's unique index; it equals its position in the
	// planned chain.
	Temp int
	NS   NamespaceRef
	// Out is the surface the step writes when it terminates a chain.
	Out *SurfaceRef
	// Guards must all be truthy for the step to run.
	Guards []*Dynamic
	Repeat Repeat
	Pos    Pos
}

// Planned is the validated, dependency-ordered program.
type Planned struct {
	Steps       []Step
	Diagnostics Diagnostics
	Render      *SurfaceRef
	Search      []string
	// ID is a content hash of the steps and render target.
	ID string
}

// LastWritten returns the surface written by the last chain terminal.
func (p *Planned) LastWritten() (SurfaceRef, bool) {
	for i := len(p.Steps) - 1; i >= 0; i-- {
		if out := p.Steps[i].Out; out != nil {
			return *out, true
		}
	}

	return SurfaceRef{}, false
}

// RenderSurface is the explicit render target, else the last surface
// written, else o0.
func (p *Planned) RenderSurface() SurfaceRef {
	if p.Render != nil {
		return SurfaceRef{Kind: p.Render.Kind, Index: p.Render.Index}
	}

	if s, ok := p.LastWritten(); ok {
		return SurfaceRef{Kind: s.Kind, Index: s.Index}
	}

	return SurfaceRef{Kind: SurfaceOutput}
}

// Canonical renders the planned chain in a stable textual form. Two
// programs with equal canonical text execute identically.
func (p *Planned) Canonical() string {
	var sb strings.Builder

	sb.WriteString("search ")
	sb.WriteString(strings.Join(p.Search, ","))
	sb.WriteByte('\n')

	for _, s := range p.Steps {
		sb.WriteString(strconv.Itoa(s.Temp))
		sb.WriteByte(' ')
		sb.WriteString(s.Op)
		sb.WriteString(" from=")
		sb.WriteString(strconv.Itoa(s.From))

		for _, k := range slices.Sorted(maps.Keys(s.Args)) {
			sb.WriteByte(' ')
			sb.WriteString(k)
			sb.WriteByte('=')
			sb.WriteString(s.Args[k].String())
		}

		if s.Out != nil {
			sb.WriteString(" out=")
			sb.WriteString(s.Out.Name())
		}

		if !s.Repeat.IsOnce() {
			sb.WriteString(" repeat=")
			sb.WriteString(strconv.Itoa(s.Repeat.Count))

			if s.Repeat.Dynamic != nil {
				sb.WriteString("*" + s.Repeat.Dynamic.String())
			}
		}

		for _, g := range s.Guards {
			sb.WriteString(" if=")
			sb.WriteString(g.String())
		}

		sb.WriteByte('\n')
	}

	if p.Render != nil {
		sb.WriteString("render ")
		sb.WriteString(p.Render.Name())
		sb.WriteByte('\n')
	}

	return sb.String()
}

func (p *Planned) hash() string {
	return strconv.FormatUint(xxh3.HashString(p.Canonical()), 16)
}
