package graph

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"

	"github.com/gogpu/gputypes"

	"github.com/ardnew/fxc/effect"
	"github.com/ardnew/fxc/lang"
)

// Descriptors looks up effect descriptors by canonical name.
type Descriptors interface {
	Lookup(canonical string) (*effect.Descriptor, bool)
}

// Pass is one executable render or compute pass over virtual textures.
type Pass struct {
	ID      string
	Program string
	Kind    effect.PassKind
	// Inputs maps a shader binding to the virtual texture it samples.
	Inputs map[string]string
	// Outputs maps a shader attachment to the virtual texture it writes.
	Outputs  map[string]string
	Uniforms map[string]lang.Value

	EffectKey string
	NodeID    string
	Step      int

	// Guards and Repeat are inherited from the step.
	Guards []*lang.Dynamic
	Repeat lang.Repeat

	// PassRepeat, SkipIf and RunIf are expressions over the uniforms.
	PassRepeat string
	SkipIf     string
	RunIf      string

	Workgroup [3]int
	Blit      bool
}

// Textures returns the sorted set of virtual textures p touches.
func (p Pass) Textures() []string {
	set := make(map[string]struct{}, len(p.Inputs)+len(p.Outputs))
	for _, id := range p.Inputs {
		set[id] = struct{}{}
	}

	for _, id := range p.Outputs {
		set[id] = struct{}{}
	}

	return slices.Sorted(maps.Keys(set))
}

// Graph is the expanded form of a planned chain.
type Graph struct {
	ID       string
	Passes   []Pass
	Errors   []Error
	Programs map[string]effect.Program
	Textures map[string]effect.TextureSpec
	// RenderSurface is the virtual id presented each frame.
	RenderSurface string
}

// Surfaces returns the sorted persistent textures of g.
func (g *Graph) Surfaces() []string {
	var ids []string

	for id := range g.Textures {
		if IsPersistent(id) {
			ids = append(ids, id)
		}
	}

	slices.Sort(ids)

	return ids
}

// Err joins the expansion errors, or returns nil.
func (g *Graph) Err() error {
	if len(g.Errors) == 0 {
		return nil
	}

	errs := make([]error, len(g.Errors))
	for i, e := range g.Errors {
		errs[i] = e
	}

	return errors.Join(errs...)
}

// geometrySpec is the point buffer written by geometry producers: one
// RGBA32F texel per point.
func geometrySpec() effect.TextureSpec {
	s := effect.Surface2D()
	s.Format = gputypes.TextureFormatRGBA32Float

	return s
}

const blitWGSL = `@group(0) @binding(0) var src: texture_2d<f32>;
@group(0) @binding(1) var smp: sampler;

@fragment
fn fs_main(@builtin(position) pos: vec4<f32>) -> @location(0) vec4<f32> {
    let size = vec2<f32>(textureDimensions(src));
    return textureSample(src, smp, pos.xy / size);
}
`

type expander struct {
	cfg      config
	catalog  Descriptors
	planned  *lang.Planned
	graph    *Graph
	contexts map[int]PipelineContext
	terminal map[int]*lang.SurfaceRef
}

// Expand produces the pass list of a planned chain. Problems with
// individual steps are collected in Graph.Errors; the affected step
// passes its input through and expansion continues.
func Expand(
	ctx context.Context,
	planned *lang.Planned,
	catalog Descriptors,
	opts ...Option,
) (*Graph, error) {
	if planned == nil {
		return nil, ErrNilProgram
	}

	x := &expander{
		cfg:     makeConfig(opts...),
		catalog: catalog,
		planned: planned,
		graph: &Graph{
			ID:            planned.ID,
			Programs:      make(map[string]effect.Program),
			Textures:      make(map[string]effect.TextureSpec),
			RenderSurface: SurfaceID(planned.RenderSurface()),
		},
		contexts: make(map[int]PipelineContext, len(planned.Steps)),
	}

	x.terminal = terminals(planned.Steps)
	x.graph.Textures[x.graph.RenderSurface] = effect.Surface2D()

	for _, step := range planned.Steps {
		x.expand(ctx, step)
	}

	x.cfg.logger.DebugContext(ctx, "graph expanded",
		slog.String("id", x.graph.ID),
		slog.Int("passes", len(x.graph.Passes)),
		slog.Int("textures", len(x.graph.Textures)),
		slog.Int("errors", len(x.graph.Errors)),
	)

	return x.graph, nil
}

// terminals maps each step to the surface written by the end of its
// chain.
func terminals(steps []lang.Step) map[int]*lang.SurfaceRef {
	next := make(map[int]int, len(steps))
	for _, s := range steps {
		if s.From != lang.NoInput {
			next[s.From] = s.Temp
		}
	}

	out := make(map[int]*lang.SurfaceRef, len(steps))
	byTemp := make(map[int]lang.Step, len(steps))

	for _, s := range steps {
		byTemp[s.Temp] = s
	}

	for _, s := range steps {
		cur := s.Temp
		for {
			n, ok := next[cur]
			if !ok {
				break
			}

			cur = n
		}

		out[s.Temp] = byTemp[cur].Out
	}

	return out
}

func (x *expander) fail(step lang.Step, code, format string, args ...any) {
	e := Error{
		Code:    code,
		Step:    step.Temp,
		Op:      step.Op,
		Message: fmt.Sprintf(format, args...),
	}

	x.graph.Errors = append(x.graph.Errors, e)
	x.cfg.logger.Debug("expansion error", slog.Any("error", e))
}

func (x *expander) input(step lang.Step) PipelineContext {
	if step.From == lang.NoInput {
		return NewPipelineContext()
	}

	return x.contexts[step.From]
}

func (x *expander) expand(ctx context.Context, step lang.Step) {
	in := x.input(step)
	node := NodeID(step.Temp)

	var d *effect.Descriptor
	if x.catalog != nil {
		d, _ = x.catalog.Lookup(step.Op)
	}

	if d == nil {
		x.fail(step, CodeEffectNotFound, "effect %q not found", step.Op)
		x.contexts[step.Temp] = in
		x.finish(step, node, in, in.Tex, false)

		return
	}

	out := in.Clone()
	out.Apply(d, step)

	programs := x.programs(step, d)

	for name, spec := range d.Textures {
		x.graph.Textures[textureID(node, name)] = spec
	}

	for name, spec := range d.Textures3D {
		x.graph.Textures[textureID(node, name)] = spec
	}

	wroteSurface := false
	tex := in.Tex

	for i, dp := range d.Passes {
		pass := Pass{
			ID:         fmt.Sprintf("%s_pass_%d", node, i),
			Program:    programs[dp.Program],
			Kind:       dp.ExecKind(),
			Inputs:     make(map[string]string, len(dp.Inputs)),
			Outputs:    make(map[string]string, len(dp.Outputs)),
			Uniforms:   maps.Clone(out.Uniforms),
			EffectKey:  step.Op,
			NodeID:     node,
			Step:       step.Temp,
			Guards:     step.Guards,
			Repeat:     step.Repeat,
			PassRepeat: dp.RepeatExpr(),
			SkipIf:     dp.SkipIf,
			RunIf:      dp.RunIf,
			Workgroup:  dp.WorkgroupSize(),
		}

		for k, v := range dp.Uniforms {
			if _, ok := pass.Uniforms[k]; ok {
				continue
			}

			if val := lang.ValueOf(v); val != nil {
				pass.Uniforms[k] = val
			}
		}

		for _, binding := range slices.Sorted(maps.Keys(dp.Inputs)) {
			src := dp.Inputs[binding]
			if id, ok := x.resolve(step, d, node, in, src); ok {
				pass.Inputs[binding] = id
			} else {
				x.fail(step, CodeUnresolvedInput, "pass %d: cannot resolve input %q", i, src)
			}
		}

		last := i == len(d.Passes)-1

		for _, attachment := range slices.Sorted(maps.Keys(dp.Outputs)) {
			dst := dp.Outputs[attachment]

			var id string

			switch dst {
			case effect.OutputTex:
				id = node + "_out"
				if last && step.Out != nil {
					id = SurfaceID(*step.Out)
					wroteSurface = true
				}

				x.graph.Textures[id] = effect.Surface2D()
				tex = id

			case effect.OutputTex3D:
				id = node + "_out3d"
				x.graph.Textures[id] = effect.Volume3D()
				out.Tex3D = id

			case effect.OutputGeo:
				id = node + "_geo"
				x.graph.Textures[id] = geometrySpec()
				out.Geo = id

			default:
				if _, ok := d.Texture(dst); !ok {
					x.fail(step, CodeTextureMissing, "pass %d: texture %q is not declared", i, dst)

					continue
				}

				id = textureID(node, dst)

				switch dst {
				case d.OutputTex3D:
					out.Tex3D = id
				case d.OutputGeo:
					out.Geo = id
				}
			}

			pass.Outputs[attachment] = id
		}

		x.graph.Passes = append(x.graph.Passes, pass)
		x.cfg.logger.TraceContext(ctx, "pass expanded",
			slog.String("pass", pass.ID),
			slog.String("program", pass.Program),
		)
	}

	out.Tex = tex
	x.contexts[step.Temp] = out
	x.finish(step, node, out, tex, wroteSurface)
}

// finish routes a terminal step's result to its surface when no pass
// wrote it directly.
func (x *expander) finish(step lang.Step, node string, out PipelineContext, tex string, wrote bool) {
	if step.Out == nil || wrote {
		return
	}

	target := SurfaceID(*step.Out)
	x.graph.Textures[target] = effect.Surface2D()

	if tex == "" {
		x.fail(step, CodeUnresolvedInput, "no 2D result to write to %s", step.Out.Name())

		return
	}

	if tex == target {
		return
	}

	x.graph.Programs[BlitProgram] = effect.Program{WGSL: blitWGSL, Entry: "fs_main"}
	x.graph.Passes = append(x.graph.Passes, Pass{
		ID:        node + "_blit",
		Program:   BlitProgram,
		Kind:      effect.PassRender,
		Inputs:    map[string]string{"src": tex},
		Outputs:   map[string]string{"color": target},
		Uniforms:  maps.Clone(out.Uniforms),
		EffectKey: step.Op,
		NodeID:    node,
		Step:      step.Temp,
		Guards:    step.Guards,
		Workgroup: [3]int{1, 1, 1},
		Blit:      true,
	})

	out.Tex = target
	x.contexts[step.Temp] = out
}

func (x *expander) programs(step lang.Step, d *effect.Descriptor) map[string]string {
	ids := make(map[string]string, len(d.Programs))

	for name, prog := range d.Programs {
		id := step.Op + "/" + name
		if p, ok := x.cfg.overrides[shaderKey{step.Temp, name}]; ok {
			id = fmt.Sprintf("%s@%d", id, step.Temp)
			prog = p
		}

		ids[name] = id
		x.graph.Programs[id] = prog
	}

	return ids
}

// resolve maps a pass input name to a virtual texture.
func (x *expander) resolve(
	step lang.Step,
	d *effect.Descriptor,
	node string,
	in PipelineContext,
	src string,
) (string, bool) {
	switch src {
	case effect.InputTex, effect.InputTex3D, effect.InputGeo:
		id := in.Channel(src)

		return id, id != ""

	case effect.Feedback:
		target := x.terminal[step.Temp]
		if target == nil {
			return "", false
		}

		id := SurfaceID(*target)
		x.graph.Textures[id] = effect.Surface2D()

		return id, true
	}

	if p, ok := d.Param(src); ok && p.IsSurface() {
		ref, ok := step.Args[src].(lang.Ref)
		if !ok {
			return "", false
		}

		if ref.Kind == lang.SurfaceTemp {
			upstream, ok := x.contexts[ref.Index]
			if !ok || upstream.Tex == "" {
				return "", false
			}

			return upstream.Tex, true
		}

		id := SurfaceID(lang.SurfaceRef(ref))
		x.graph.Textures[id] = effect.Surface2D()

		return id, true
	}

	if _, ok := d.Texture(src); ok {
		return textureID(node, src), true
	}

	return "", false
}
