package effect

import (
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"

	"github.com/ardnew/fxc/registry"
)

// Pipeline-convention input and output names.
const (
	InputTex    = "inputTex"
	InputTex3D  = "inputTex3d"
	InputGeo    = "inputGeo"
	Feedback    = "feedback"
	OutputTex   = "outputTex"
	OutputTex3D = "outputTex3d"
	OutputGeo   = "outputGeo"
)

// GlobalPrefix marks texture names that persist across frames.
const GlobalPrefix = "global"

// IsInput reports whether name is a pipeline-convention input.
func IsInput(name string) bool {
	switch name {
	case InputTex, InputTex3D, InputGeo, Feedback:
		return true
	}

	return false
}

// IsOutput reports whether name is a pipeline-convention output.
func IsOutput(name string) bool {
	switch name {
	case OutputTex, OutputTex3D, OutputGeo:
		return true
	}

	return false
}

// PassKind selects how a pass executes.
type PassKind string

// Pass kinds.
const (
	PassRender  PassKind = "render"
	PassCompute PassKind = "compute"
)

// Param declares one effect parameter. Non-surface parameters become
// pipeline uniforms named Uniform (or Name when empty).
//
// Inherit lets an upstream value of the same uniform win over this
// parameter's default when the parameter is not given explicitly. When
// Requires names a convention input, inheritance also requires that
// channel to be present upstream.
type Param struct {
	Name        string             `yaml:"name"`
	Type        string             `yaml:"type,omitempty"`
	Default     any                `yaml:"default,omitempty"`
	Min         *float64           `yaml:"min,omitempty"`
	Max         *float64           `yaml:"max,omitempty"`
	Enum        string             `yaml:"enum,omitempty"`
	Choices     map[string]float64 `yaml:"choices,omitempty"`
	Uniform     string             `yaml:"uniform,omitempty"`
	Inherit     bool               `yaml:"inherit,omitempty"`
	Requires    string             `yaml:"requires,omitempty"`
	Description string             `yaml:"description,omitempty"`
}

// UniformName is the uniform the parameter feeds.
func (p Param) UniformName() string {
	if p.Uniform != "" {
		return p.Uniform
	}

	return p.Name
}

// ArgType parses the declared type.
func (p Param) ArgType() (registry.ArgType, bool) {
	return registry.ParseArgType(p.Type)
}

// IsSurface reports whether the parameter binds a texture rather than a
// uniform.
func (p Param) IsSurface() bool {
	t, _ := p.ArgType()

	return t == registry.ArgSurface
}

// ArgSpec converts p to the argument spec the compiler checks calls
// against.
func (p Param) ArgSpec() (registry.ArgSpec, bool) {
	t, ok := p.ArgType()
	if !ok {
		return registry.ArgSpec{}, false
	}

	return registry.ArgSpec{
		Name:    p.Name,
		Type:    t,
		Default: p.Default,
		Min:     p.Min,
		Max:     p.Max,
		Enum:    p.Enum,
		Choices: p.Choices,
	}, true
}

// Program is an opaque shader payload.
type Program struct {
	WGSL  string `yaml:"wgsl,omitempty"`
	GLSL  string `yaml:"glsl,omitempty"`
	Entry string `yaml:"entry,omitempty"`
}

// Source returns the first non-empty shader text.
func (p Program) Source() string {
	if p.WGSL != "" {
		return p.WGSL
	}

	return p.GLSL
}

// Pass declares one execution of a program. Inputs map a shader binding
// to a source name; Outputs map an attachment to a target name.
//
// SkipIf and RunIf are expressions over the frame and pass uniforms.
// Repeat is an integer or an expression yielding one.
type Pass struct {
	Name      string            `yaml:"name,omitempty"`
	Program   string            `yaml:"program"`
	Kind      PassKind          `yaml:"type,omitempty"`
	Inputs    map[string]string `yaml:"inputs,omitempty"`
	Outputs   map[string]string `yaml:"outputs,omitempty"`
	Uniforms  map[string]any    `yaml:"uniforms,omitempty"`
	Workgroup []int             `yaml:"workgroupSize,omitempty"`
	SkipIf    string            `yaml:"skipIf,omitempty"`
	RunIf     string            `yaml:"runIf,omitempty"`
	Repeat    any               `yaml:"repeat,omitempty"`
}

// ExecKind returns the pass kind, defaulting to render.
func (p Pass) ExecKind() PassKind {
	if p.Kind == "" {
		return PassRender
	}

	return p.Kind
}

// WorkgroupSize returns the compute workgroup size with missing
// dimensions set to 1.
func (p Pass) WorkgroupSize() [3]int {
	size := [3]int{1, 1, 1}
	for i := 0; i < len(p.Workgroup) && i < 3; i++ {
		size[i] = p.Workgroup[i]
	}

	return size
}

// RepeatExpr returns the repeat count as expression source, or "" when
// the pass runs once.
func (p Pass) RepeatExpr() string {
	switch r := p.Repeat.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(r)
	case float64:
		return strconv.FormatFloat(r, 'f', -1, 64)
	}

	return fmt.Sprint(p.Repeat)
}

// Descriptor is the declarative definition of one effect.
type Descriptor struct {
	Name          string             `yaml:"name"`
	Namespace     string             `yaml:"-"`
	Description   string             `yaml:"description,omitempty"`
	Flag          string             `yaml:"flag,omitempty"`
	Starter       bool               `yaml:"starter,omitempty"`
	Passthrough   bool               `yaml:"passthrough,omitempty"`
	Globals       []Param            `yaml:"globals,omitempty"`
	Programs      map[string]Program `yaml:"programs,omitempty"`
	Passes        []Pass             `yaml:"passes"`
	Textures      Textures           `yaml:"textures,omitempty"`
	Textures3D    Volumes            `yaml:"textures3d,omitempty"`
	OutputTex3D   string             `yaml:"outputTex3d,omitempty"`
	OutputGeo     string             `yaml:"outputGeo,omitempty"`
	UniformLayout map[string]any     `yaml:"uniformLayout,omitempty"`
}

// Canonical returns "namespace.name".
func (d *Descriptor) Canonical() string {
	if d.Namespace == "" {
		return d.Name
	}

	return d.Namespace + "." + d.Name
}

// Param returns the named parameter.
func (d *Descriptor) Param(name string) (Param, bool) {
	i := slices.IndexFunc(d.Globals, func(p Param) bool { return p.Name == name })
	if i < 0 {
		return Param{}, false
	}

	return d.Globals[i], true
}

// Texture returns a declared 2D or 3D texture.
func (d *Descriptor) Texture(name string) (TextureSpec, bool) {
	if s, ok := d.Textures[name]; ok {
		return s, true
	}

	s, ok := d.Textures3D[name]

	return s, ok
}

// OpSpec derives the operation signature from the parameters, in
// declaration order.
func (d *Descriptor) OpSpec() (registry.OpSpec, error) {
	spec := registry.OpSpec{Name: d.Canonical()}

	for _, p := range d.Globals {
		a, ok := p.ArgSpec()
		if !ok {
			return spec, ErrInvalidDescriptor.With(
				slog.String("effect", d.Canonical()),
				slog.String("param", p.Name),
				slog.String("type", p.Type),
			)
		}

		spec.Args = append(spec.Args, a)
	}

	return spec, nil
}

// Validate checks the descriptor's internal references.
func (d *Descriptor) Validate() error {
	fail := func(reason string, attrs ...slog.Attr) error {
		return ErrInvalidDescriptor.With(append([]slog.Attr{
			slog.String("effect", d.Canonical()),
			slog.String("reason", reason),
		}, attrs...)...)
	}

	if d.Name == "" || strings.Contains(d.Name, ".") {
		return fail("invalid name")
	}

	if len(d.Passes) == 0 {
		return fail("no passes")
	}

	if _, err := d.OpSpec(); err != nil {
		return err
	}

	for _, p := range d.Globals {
		if p.Requires != "" && !IsInput(p.Requires) {
			return fail("unknown required channel", slog.String("requires", p.Requires))
		}
	}

	for i, p := range d.Passes {
		if _, ok := d.Programs[p.Program]; !ok {
			return fail("undeclared program",
				slog.Int("pass", i), slog.String("program", p.Program))
		}

		switch p.ExecKind() {
		case PassRender, PassCompute:
		default:
			return fail("unknown pass type", slog.Int("pass", i), slog.String("type", string(p.Kind)))
		}

		if len(p.Outputs) == 0 {
			return fail("pass has no outputs", slog.Int("pass", i))
		}

		for _, w := range p.Workgroup {
			if w < 1 {
				return fail("invalid workgroup size", slog.Int("pass", i))
			}
		}
	}

	return nil
}
