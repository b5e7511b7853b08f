package graph

import (
	"maps"
	"strconv"
	"strings"

	"github.com/ardnew/fxc/effect"
	"github.com/ardnew/fxc/lang"
)

// Virtual texture id prefixes. Textures with a persistent prefix live
// across frames and are never pooled.
const (
	PrefixNode     = "node_"
	PrefixGlobal   = "global_"
	PrefixFeedback = "feedback_"
	PrefixSource   = "source_"
)

// BlitProgram is the id of the copy program used to move a chain's
// result onto its target surface.
const BlitProgram = "blit"

// SurfaceID returns the virtual id of a persistent surface.
func SurfaceID(ref lang.SurfaceRef) string {
	switch ref.Kind {
	case lang.SurfaceFeedback:
		return PrefixFeedback + ref.Name()
	case lang.SurfaceSource:
		return PrefixSource + ref.Name()
	case lang.SurfaceTemp:
		return NodeID(ref.Index) + "_out"
	}

	return PrefixGlobal + ref.Name()
}

// NodeID returns the id prefix of the step with the given temp index.
func NodeID(temp int) string { return PrefixNode + strconv.Itoa(temp) }

// IsPersistent reports whether id survives across frames.
func IsPersistent(id string) bool {
	return strings.HasPrefix(id, PrefixGlobal) ||
		strings.HasPrefix(id, PrefixFeedback) ||
		strings.HasPrefix(id, PrefixSource)
}

// IsFeedback reports whether id names a feedback surface.
func IsFeedback(id string) bool { return strings.HasPrefix(id, PrefixFeedback) }

// IsSource reports whether id names an external source surface.
func IsSource(id string) bool { return strings.HasPrefix(id, PrefixSource) }

// textureID names a texture declared by an effect. Names beginning with
// "global" are shared by every instance of every effect that declares
// them.
func textureID(node, name string) string {
	if rest, ok := strings.CutPrefix(name, effect.GlobalPrefix); ok && rest != "" {
		return PrefixGlobal + strings.ToLower(rest[:1]) + rest[1:]
	}

	return node + "_" + name
}

// PipelineContext is the state threaded from one step to the next along
// a chain: the accumulated uniforms and the current texture of each
// channel.
type PipelineContext struct {
	Uniforms map[string]lang.Value
	Tex      string
	Tex3D    string
	Geo      string
}

// NewPipelineContext returns an empty context.
func NewPipelineContext() PipelineContext {
	return PipelineContext{Uniforms: make(map[string]lang.Value)}
}

// Clone returns a copy of c whose uniforms may be modified independently.
func (c PipelineContext) Clone() PipelineContext {
	c.Uniforms = maps.Clone(c.Uniforms)
	if c.Uniforms == nil {
		c.Uniforms = make(map[string]lang.Value)
	}

	return c
}

// Channel returns the texture bound to a conventional input name.
func (c PipelineContext) Channel(name string) string {
	switch name {
	case effect.InputTex:
		return c.Tex
	case effect.InputTex3D:
		return c.Tex3D
	case effect.InputGeo:
		return c.Geo
	}

	return ""
}

// Apply merges the parameters of one step into the accumulated uniforms.
// An explicit argument always overwrites. Otherwise an inheriting
// parameter keeps an upstream value when one exists and its required
// channel is present; every other parameter takes the step's value.
func (c PipelineContext) Apply(d *effect.Descriptor, step lang.Step) {
	for _, p := range d.Globals {
		if p.IsSurface() {
			continue
		}

		name := p.UniformName()
		v := step.Args[p.Name]

		if !step.Explicit[p.Name] && p.Inherit {
			_, upstream := c.Uniforms[name]
			if upstream && (p.Requires == "" || c.Channel(p.Requires) != "") {
				continue
			}
		}

		if v != nil {
			c.Uniforms[name] = v
		}
	}
}
