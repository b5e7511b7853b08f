package registry

import (
	"log/slog"
	"maps"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
)

// EnumNode is one node of the named-constant tree. A node may carry a
// numeric value, children, or both. Nodes reachable from a published
// snapshot are frozen and never mutated.
type EnumNode struct {
	value    float64
	hasValue bool
	children map[string]*EnumNode
	frozen   bool
}

// Value returns the node's numeric value.
func (n *EnumNode) Value() (float64, bool) {
	if n == nil {
		return 0, false
	}

	return n.value, n.hasValue
}

// Child returns the named child, or nil.
func (n *EnumNode) Child(name string) *EnumNode {
	if n == nil {
		return nil
	}

	return n.children[name]
}

// Names returns the sorted child names.
func (n *EnumNode) Names() []string {
	if n == nil {
		return nil
	}

	return slices.Sorted(maps.Keys(n.children))
}

// Find walks path from n.
func (n *EnumNode) Find(path []string) *EnumNode {
	for _, p := range path {
		if n = n.Child(p); n == nil {
			return nil
		}
	}

	return n
}

// Lookup resolves path to a value.
func (n *EnumNode) Lookup(path []string) (float64, bool) {
	return n.Find(path).Value()
}

// Reverse returns the first child name, in sorted order, whose value
// equals v.
func (n *EnumNode) Reverse(v float64) (string, bool) {
	for _, name := range n.Names() {
		if cv, ok := n.children[name].Value(); ok && cv == v {
			return name, true
		}
	}

	return "", false
}

func (n *EnumNode) clone() *EnumNode {
	c := &EnumNode{value: n.value, hasValue: n.hasValue}
	if n.children != nil {
		c.children = maps.Clone(n.children)
	}

	return c
}

func (n *EnumNode) freeze() {
	if n.frozen {
		return
	}

	n.frozen = true
	for _, c := range n.children {
		c.freeze()
	}
}

// Enums is the named-constant registry. Writers are serialized and build
// on a private tree; nodes shared with the last published snapshot are
// cloned before mutation. Readers load the snapshot without locking.
type Enums struct {
	mu   sync.Mutex
	root *EnumNode
	snap atomic.Pointer[EnumNode]
}

// NewEnums returns an empty registry.
func NewEnums() *Enums {
	e := &Enums{root: &EnumNode{}}
	e.root.freeze()
	e.snap.Store(e.root)

	return e
}

// Merge deep-merges tree into the registry and publishes a new snapshot.
// Leaves must be numeric; interior values must be maps.
func (e *Enums) Merge(tree map[string]any) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	root, err := mergeEnum(e.root, tree, nil)
	if err != nil {
		return err
	}

	root.freeze()
	e.root = root
	e.snap.Store(root)

	return nil
}

// Set assigns a single dotted path and publishes a new snapshot.
func (e *Enums) Set(path string, v float64) error {
	parts := strings.Split(path, ".")

	var tree any = v
	for i := len(parts) - 1; i >= 0; i-- {
		tree = map[string]any{parts[i]: tree}
	}

	return e.Merge(tree.(map[string]any))
}

func mergeEnum(n *EnumNode, src map[string]any, path []string) (*EnumNode, error) {
	if n == nil {
		n = &EnumNode{}
	} else if n.frozen {
		n = n.clone()
	}

	if n.children == nil {
		n.children = make(map[string]*EnumNode, len(src))
	}

	for _, k := range slices.Sorted(maps.Keys(src)) {
		sub := append(slices.Clip(path), k)

		switch v := src[k].(type) {
		case map[string]any:
			c, err := mergeEnum(n.children[k], v, sub)
			if err != nil {
				return nil, err
			}

			n.children[k] = c

		default:
			f, ok := number(v)
			if !ok {
				return nil, ErrInvalidEnum.With(
					slog.String("path", strings.Join(sub, ".")),
					slog.Any("value", v),
				)
			}

			c := n.children[k]
			if c == nil {
				c = &EnumNode{}
			} else if c.frozen {
				c = c.clone()
			}

			c.value, c.hasValue = f, true
			n.children[k] = c
		}
	}

	return n, nil
}

func number(v any) (float64, bool) {
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
	}

	return 0, false
}

// Snapshot returns the current immutable tree.
func (e *Enums) Snapshot() *EnumNode { return e.snap.Load() }

// Resolve looks up path in the current snapshot.
func (e *Enums) Resolve(path []string) (float64, bool) {
	return e.Snapshot().Lookup(path)
}

// ResolvePrefixed resolves path, backfilling missing leading segments from
// prefix: prefix[:k]+path is tried for k from len(prefix) down to 0. It
// returns the full path that matched.
func (e *Enums) ResolvePrefixed(path, prefix []string) (float64, []string, bool) {
	snap := e.Snapshot()

	for k := len(prefix); k >= 0; k-- {
		full := append(slices.Clone(prefix[:k]), path...)
		if v, ok := snap.Lookup(full); ok {
			return v, full, true
		}
	}

	return 0, nil, false
}
