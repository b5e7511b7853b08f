// Package registry holds the process-wide lookup tables consulted by the
// compiler: namespace export records, the named-constant (enum) tree and
// the operation spec catalog.
//
// Registries are mutated while effects are registered and read while
// programs compile. [Namespaces] and [Ops] guard their maps with a
// read-write lock. [Enums] keeps a writer-owned builder tree and publishes
// an immutable snapshot through an atomic pointer, so readers never block.
package registry

// Registry bundles the three tables a compile needs.
type Registry struct {
	Namespaces *Namespaces
	Enums      *Enums
	Ops        *Ops
}

// New returns an empty Registry with flagged exports enabled.
func New() *Registry {
	return &Registry{
		Namespaces: NewNamespaces(),
		Enums:      NewEnums(),
		Ops:        NewOps(),
	}
}
