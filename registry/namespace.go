package registry

import (
	"log/slog"
	"slices"
	"strings"
	"sync"
)

// Export is a canonical (namespace, name) record contributed by an owning
// module. Flag optionally gates the record behind a feature flag.
type Export struct {
	Namespace string
	Name      string
	Flag      string
	Owner     string
}

// Canonical returns the qualified "namespace.name" form, or the bare name
// when the export has no namespace.
func (e Export) Canonical() string {
	if e.Namespace == "" {
		return e.Name
	}

	return e.Namespace + "." + e.Name
}

type exportKey struct{ ns, name string }

// Namespaces indexes export records by canonical key, by bare name and by
// owner. The owner index makes [Namespaces.Unregister] proportional to the
// number of records an owner contributed.
type Namespaces struct {
	mu       sync.RWMutex
	byKey    map[exportKey]Export
	byName   map[string][]exportKey
	byOwner  map[string][]exportKey
	flagsOn  bool
	override map[string]bool
}

// NewNamespaces returns an empty registry with feature flags enabled.
func NewNamespaces() *Namespaces {
	return &Namespaces{
		byKey:    make(map[exportKey]Export),
		byName:   make(map[string][]exportKey),
		byOwner:  make(map[string][]exportKey),
		flagsOn:  true,
		override: make(map[string]bool),
	}
}

// Register adds exports on behalf of owner. Re-registering a key already
// held by the same owner replaces it; a key held by another owner is an
// error and nothing from the batch is registered.
func (n *Namespaces) Register(owner string, exports ...Export) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	for _, e := range exports {
		if e.Namespace == "" || e.Name == "" || strings.Contains(e.Name, ".") {
			return ErrInvalidExport.With(
				slog.String("namespace", e.Namespace),
				slog.String("name", e.Name),
			)
		}

		if prev, ok := n.byKey[exportKey{e.Namespace, e.Name}]; ok && prev.Owner != owner {
			return ErrDuplicateExport.With(
				slog.String("export", e.Canonical()),
				slog.String("owner", prev.Owner),
			)
		}
	}

	for _, e := range exports {
		e.Owner = owner
		k := exportKey{e.Namespace, e.Name}

		if _, ok := n.byKey[k]; !ok {
			n.byName[e.Name] = append(n.byName[e.Name], k)
			n.byOwner[owner] = append(n.byOwner[owner], k)
		}

		n.byKey[k] = e
	}

	return nil
}

// Unregister removes every record contributed by owner and reports how
// many were removed.
func (n *Namespaces) Unregister(owner string) int {
	n.mu.Lock()
	defer n.mu.Unlock()

	keys := n.byOwner[owner]
	for _, k := range keys {
		delete(n.byKey, k)

		n.byName[k.name] = slices.DeleteFunc(n.byName[k.name], func(o exportKey) bool {
			return o == k
		})
		if len(n.byName[k.name]) == 0 {
			delete(n.byName, k.name)
		}
	}

	delete(n.byOwner, owner)

	return len(keys)
}

// SetFlagsEnabled sets the default state of every feature flag that has no
// explicit override. Unflagged records are always active.
func (n *Namespaces) SetFlagsEnabled(on bool) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.flagsOn = on
}

// SetFlag overrides the state of one feature flag.
func (n *Namespaces) SetFlag(flag string, on bool) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.override[flag] = on
}

// ClearFlag removes the override for flag.
func (n *Namespaces) ClearFlag(flag string) {
	n.mu.Lock()
	defer n.mu.Unlock()

	delete(n.override, flag)
}

// active must be called with n.mu held.
func (n *Namespaces) active(e Export) bool {
	if e.Flag == "" {
		return true
	}

	if on, ok := n.override[e.Flag]; ok {
		return on
	}

	return n.flagsOn
}

// Active reports whether e is currently enabled.
func (n *Namespaces) Active(e Export) bool {
	n.mu.RLock()
	defer n.mu.RUnlock()

	return n.active(e)
}

// Lookup returns the active record for (namespace, name).
func (n *Namespaces) Lookup(namespace, name string) (Export, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	return n.lookup(namespace, name)
}

func (n *Namespaces) lookup(namespace, name string) (Export, bool) {
	e, ok := n.byKey[exportKey{namespace, name}]
	if !ok || !n.active(e) {
		return Export{}, false
	}

	return e, true
}

// Has reports whether any record (active or not) is registered under
// namespace.
func (n *Namespaces) Has(namespace string) bool {
	n.mu.RLock()
	defer n.mu.RUnlock()

	for k := range n.byKey {
		if k.ns == namespace {
			return true
		}
	}

	return false
}

// List returns the sorted namespace identifiers with at least one record.
func (n *Namespaces) List() []string {
	n.mu.RLock()
	defer n.mu.RUnlock()

	seen := make(map[string]struct{})
	for k := range n.byKey {
		seen[k.ns] = struct{}{}
	}

	out := make([]string, 0, len(seen))
	for ns := range seen {
		out = append(out, ns)
	}

	slices.Sort(out)

	return out
}

// Context is the namespace preference a call is resolved against.
type Context struct {
	// Preferred lists namespaces in resolution order.
	Preferred []string
}

// ResolveCallTarget selects the export a call named name refers to.
//
// A qualified name ("ns.call") is looked up directly. Otherwise the
// context's preferred namespaces are tried in order, then every
// registration of the bare name in registration order; the first active
// record wins. Without a context the bare name is returned as already
// canonical.
func (n *Namespaces) ResolveCallTarget(name string, ctx *Context) (Export, bool) {
	if i := strings.LastIndexByte(name, '.'); i > 0 {
		return n.Lookup(name[:i], name[i+1:])
	}

	if ctx == nil {
		return Export{Name: name}, true
	}

	n.mu.RLock()
	defer n.mu.RUnlock()

	for _, ns := range ctx.Preferred {
		if e, ok := n.lookup(ns, name); ok {
			return e, true
		}
	}

	for _, k := range n.byName[name] {
		if e, ok := n.lookup(k.ns, k.name); ok {
			return e, true
		}
	}

	return Export{}, false
}

// Names returns the canonical names of all active records, sorted.
func (n *Namespaces) Names() []string {
	n.mu.RLock()
	defer n.mu.RUnlock()

	out := make([]string, 0, len(n.byKey))
	for _, e := range n.byKey {
		if n.active(e) {
			out = append(out, e.Canonical())
		}
	}

	slices.Sort(out)

	return out
}
