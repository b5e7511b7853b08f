package registry

import (
	"log/slog"
	"slices"
	"strings"
	"sync"
)

// ArgType classifies an operation argument.
type ArgType int

// Argument types.
const (
	ArgFloat ArgType = iota
	ArgInt
	ArgBoolean
	ArgString
	ArgColor
	ArgVec3
	ArgVec4
	ArgMember
	ArgSurface
)

var argTypeNames = [...]string{
	ArgFloat:   "float",
	ArgInt:     "int",
	ArgBoolean: "boolean",
	ArgString:  "string",
	ArgColor:   "color",
	ArgVec3:    "vec3",
	ArgVec4:    "vec4",
	ArgMember:  "member",
	ArgSurface: "surface",
}

func (t ArgType) String() string {
	if int(t) < len(argTypeNames) {
		return argTypeNames[t]
	}

	return "unknown"
}

// ParseArgType parses a type name. "bool" and "enum" are accepted aliases.
func ParseArgType(s string) (ArgType, bool) {
	switch s = strings.ToLower(strings.TrimSpace(s)); s {
	case "", "number":
		return ArgFloat, true
	case "bool":
		return ArgBoolean, true
	case "enum":
		return ArgMember, true
	case "texture":
		return ArgSurface, true
	}

	i := slices.Index(argTypeNames[:], s)
	if i < 0 {
		return ArgFloat, false
	}

	return ArgType(i), true
}

// Numeric reports whether values of t are plain numbers.
func (t ArgType) Numeric() bool {
	return t == ArgFloat || t == ArgInt || t == ArgMember
}

// ArgSpec describes one argument of an operation.
type ArgSpec struct {
	Name    string
	Type    ArgType
	Default any
	Min     *float64
	Max     *float64
	// Enum is a dotted path into the enum tree whose children are the
	// valid member names.
	Enum string
	// Choices maps member names to values, taking precedence over Enum.
	Choices map[string]float64
}

// Clamp bounds v to the spec's range and reports whether it changed.
func (a ArgSpec) Clamp(v float64) (float64, bool) {
	if a.Min != nil && v < *a.Min {
		return *a.Min, true
	}

	if a.Max != nil && v > *a.Max {
		return *a.Max, true
	}

	return v, false
}

// OpSpec is the argument signature of a callable operation.
type OpSpec struct {
	Name string
	Args []ArgSpec
}

// Arg returns the named argument and its position.
func (o *OpSpec) Arg(name string) (ArgSpec, int, bool) {
	for i, a := range o.Args {
		if a.Name == name {
			return a, i, true
		}
	}

	return ArgSpec{}, -1, false
}

// ArgNames returns argument names in declaration order.
func (o *OpSpec) ArgNames() []string {
	out := make([]string, len(o.Args))
	for i, a := range o.Args {
		out[i] = a.Name
	}

	return out
}

// Ops is the operation spec catalog keyed by canonical name.
type Ops struct {
	mu          sync.RWMutex
	specs       map[string]*OpSpec
	starters    map[string]bool
	passthrough map[string]bool
}

// NewOps returns an empty catalog.
func NewOps() *Ops {
	return &Ops{
		specs:       make(map[string]*OpSpec),
		starters:    make(map[string]bool),
		passthrough: make(map[string]bool),
	}
}

// Register adds or replaces the spec for canonical.
func (o *Ops) Register(canonical string, spec OpSpec) error {
	if canonical == "" {
		return ErrInvalidOp.With(slog.String("reason", "empty name"))
	}

	seen := make(map[string]bool, len(spec.Args))
	for _, a := range spec.Args {
		if a.Name == "" || seen[a.Name] {
			return ErrInvalidOp.With(
				slog.String("op", canonical),
				slog.String("arg", a.Name),
			)
		}

		seen[a.Name] = true
	}

	spec.Name = canonical

	o.mu.Lock()
	defer o.mu.Unlock()

	o.specs[canonical] = &spec

	return nil
}

// Unregister removes canonical and its flags.
func (o *Ops) Unregister(canonical string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	delete(o.specs, canonical)
	delete(o.starters, canonical)
	delete(o.passthrough, canonical)
}

// RegisterStarters marks canonical names as starter operations, which
// must begin a chain.
func (o *Ops) RegisterStarters(names ...string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	for _, n := range names {
		o.starters[n] = true
	}
}

// RegisterPassthrough marks canonical names whose lowering copies their
// input unchanged.
func (o *Ops) RegisterPassthrough(names ...string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	for _, n := range names {
		o.passthrough[n] = true
	}
}

// Lookup returns the spec for canonical.
func (o *Ops) Lookup(canonical string) (*OpSpec, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	s, ok := o.specs[canonical]

	return s, ok
}

// IsStarter reports whether canonical is a starter.
func (o *Ops) IsStarter(canonical string) bool {
	o.mu.RLock()
	defer o.mu.RUnlock()

	return o.starters[canonical]
}

// IsPassthrough reports whether canonical is a passthrough.
func (o *Ops) IsPassthrough(canonical string) bool {
	o.mu.RLock()
	defer o.mu.RUnlock()

	return o.passthrough[canonical]
}

// Names returns all registered canonical names, sorted.
func (o *Ops) Names() []string {
	o.mu.RLock()
	defer o.mu.RUnlock()

	out := make([]string, 0, len(o.specs))
	for n := range o.specs {
		out = append(out, n)
	}

	slices.Sort(out)

	return out
}
