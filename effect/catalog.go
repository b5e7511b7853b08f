package effect

import (
	"context"
	"embed"
	"io"
	"io/fs"
	"log/slog"
	"maps"
	"os"
	"path"
	"slices"
	"sync"

	"github.com/goccy/go-yaml"
	"github.com/klauspost/readahead"

	"github.com/ardnew/fxc/registry"
)

//go:embed builtin/*.yaml
var builtinFS embed.FS

// File is one decoded catalog file.
type File struct {
	Namespace string         `yaml:"namespace"`
	Flag      string         `yaml:"flag,omitempty"`
	Enums     map[string]any `yaml:"enums,omitempty"`
	Effects   []*Descriptor  `yaml:"effects"`

	// Origin identifies the file and owns everything it installs.
	Origin string `yaml:"-"`
}

// Decode parses and validates a catalog file.
func Decode(ctx context.Context, data []byte, origin string) (*File, error) {
	var f File

	if err := yaml.UnmarshalContext(ctx, data, &f, yaml.DisallowUnknownField()); err != nil {
		return nil, ErrDecode.Wrap(err).With(slog.String("origin", origin))
	}

	if f.Namespace == "" {
		return nil, ErrDecode.With(
			slog.String("origin", origin),
			slog.String("reason", "missing namespace"),
		)
	}

	f.Origin = origin

	for _, d := range f.Effects {
		if d == nil {
			return nil, ErrDecode.With(
				slog.String("origin", origin),
				slog.String("reason", "empty effect entry"),
			)
		}

		d.Namespace = f.Namespace
		if d.Flag == "" {
			d.Flag = f.Flag
		}

		if err := d.Validate(); err != nil {
			return nil, err
		}
	}

	return &f, nil
}

// Load reads a catalog file from r.
func Load(ctx context.Context, r io.Reader, origin string) (*File, error) {
	ra := readahead.NewReader(r)
	defer ra.Close()

	data, err := io.ReadAll(ra)
	if err != nil {
		return nil, ErrDecode.Wrap(err).With(slog.String("origin", origin))
	}

	return Decode(ctx, data, origin)
}

// Catalog holds installed effect descriptors by canonical name.
type Catalog struct {
	mu      sync.RWMutex
	effects map[string]*Descriptor
	owners  map[string][]string
	gen     uint64
}

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{
		effects: make(map[string]*Descriptor),
		owners:  make(map[string][]string),
	}
}

// Builtin returns a catalog with the embedded effect files installed
// into reg.
func Builtin(ctx context.Context, reg *registry.Registry) (*Catalog, error) {
	c := NewCatalog()

	if err := c.InstallFS(ctx, reg, builtinFS, "builtin"); err != nil {
		return nil, err
	}

	return c, nil
}

// InstallFS installs every *.yaml file in dir of fsys, in name order.
func (c *Catalog) InstallFS(ctx context.Context, reg *registry.Registry, fsys fs.FS, dir string) error {
	names, err := fs.Glob(fsys, path.Join(dir, "*.yaml"))
	if err != nil {
		return ErrDecode.Wrap(err)
	}

	slices.Sort(names)

	for _, name := range names {
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return ErrDecode.Wrap(err).With(slog.String("origin", name))
		}

		f, err := Decode(ctx, data, name)
		if err != nil {
			return err
		}

		if err := c.Install(reg, f); err != nil {
			return err
		}
	}

	return nil
}

// InstallFile loads and installs the catalog file at name.
func (c *Catalog) InstallFile(ctx context.Context, reg *registry.Registry, name string) (*File, error) {
	fd, err := os.Open(name)
	if err != nil {
		return nil, ErrDecode.Wrap(err).With(slog.String("origin", name))
	}
	defer fd.Close()

	f, err := Load(ctx, fd, name)
	if err != nil {
		return nil, err
	}

	return f, c.Install(reg, f)
}

// Install registers f's exports, operation specs and enums in reg and
// records its descriptors. Installing a file with the same origin again
// replaces what it installed before. A canonical name owned by another
// origin is rejected and nothing is installed.
func (c *Catalog) Install(reg *registry.Registry, f *File) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	owner := f.Origin
	if owner == "" {
		owner = f.Namespace
	}

	for _, d := range f.Effects {
		if prev, ok := c.ownerOf(d.Canonical()); ok && prev != owner {
			return ErrDuplicateEffect.With(
				slog.String("effect", d.Canonical()),
				slog.String("owner", prev),
			)
		}
	}

	c.uninstall(reg, owner)

	exports := make([]registry.Export, 0, len(f.Effects))
	for _, d := range f.Effects {
		exports = append(exports, registry.Export{
			Namespace: d.Namespace,
			Name:      d.Name,
			Flag:      d.Flag,
			Owner:     owner,
		})
	}

	if err := reg.Namespaces.Register(owner, exports...); err != nil {
		return err
	}

	names := make([]string, 0, len(f.Effects))

	for _, d := range f.Effects {
		spec, err := d.OpSpec()
		if err == nil {
			err = reg.Ops.Register(d.Canonical(), spec)
		}

		if err != nil {
			reg.Namespaces.Unregister(owner)

			for _, n := range names {
				reg.Ops.Unregister(n)
			}

			return err
		}

		names = append(names, d.Canonical())

		if d.Starter {
			reg.Ops.RegisterStarters(d.Canonical())
		}

		if d.Passthrough {
			reg.Ops.RegisterPassthrough(d.Canonical())
		}
	}

	if len(f.Enums) > 0 {
		if err := reg.Enums.Merge(f.Enums); err != nil {
			reg.Namespaces.Unregister(owner)

			for _, n := range names {
				reg.Ops.Unregister(n)
			}

			return err
		}
	}

	for _, d := range f.Effects {
		c.effects[d.Canonical()] = d
	}

	c.owners[owner] = names
	c.gen++

	return nil
}

// Uninstall removes everything owner installed and returns the number of
// effects removed. Merged enums are kept.
func (c *Catalog) Uninstall(reg *registry.Registry, owner string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.uninstall(reg, owner)
}

func (c *Catalog) uninstall(reg *registry.Registry, owner string) int {
	names, ok := c.owners[owner]
	if !ok {
		return 0
	}

	reg.Namespaces.Unregister(owner)

	for _, n := range names {
		reg.Ops.Unregister(n)
		delete(c.effects, n)
	}

	delete(c.owners, owner)
	c.gen++

	return len(names)
}

// Generation counts the installs and uninstalls applied to c.
func (c *Catalog) Generation() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.gen
}

func (c *Catalog) ownerOf(canonical string) (string, bool) {
	for owner, names := range c.owners {
		if slices.Contains(names, canonical) {
			return owner, true
		}
	}

	return "", false
}

// Lookup returns the descriptor installed under canonical.
func (c *Catalog) Lookup(canonical string) (*Descriptor, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	d, ok := c.effects[canonical]

	return d, ok
}

// Names returns the canonical names of all installed effects, sorted.
func (c *Catalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return slices.Sorted(maps.Keys(c.effects))
}

// Owners returns the installed origins, sorted.
func (c *Catalog) Owners() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return slices.Sorted(maps.Keys(c.owners))
}
