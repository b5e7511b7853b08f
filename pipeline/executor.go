package pipeline

import (
	"context"
	"log/slog"
	"maps"
	"slices"
	"sync"

	"github.com/zeebo/xxh3"

	"github.com/ardnew/fxc/effect"
	"github.com/ardnew/fxc/graph"
	"github.com/ardnew/fxc/lang"
	"github.com/ardnew/fxc/profile"
)

type loaded struct {
	graph *graph.Graph
	alloc *graph.Allocation
	steps []step
	// slots holds the backend texture id of each allocation slot.
	slots []string
}

// Executor runs a loaded graph against a backend.
type Executor struct {
	mu      sync.Mutex
	backend Backend
	cfg     config

	width  int
	height int

	current  *loaded
	surfaces map[string]*Surface
	// textures maps every backend texture id to its unsized spec.
	textures map[string]effect.TextureSpec
	// programs maps a compiled program id to a hash of its source.
	programs map[string]uint64

	frames   int
	disposed bool
}

// New initializes backend and returns an executor with nothing loaded.
func New(ctx context.Context, backend Backend, opts ...Option) (*Executor, error) {
	cfg := makeConfig(opts...)

	if err := backend.Init(ctx); err != nil {
		return nil, ErrInit.Wrap(err)
	}

	if err := backend.Resize(cfg.width, cfg.height); err != nil {
		return nil, ErrInit.Wrap(err)
	}

	return &Executor{
		backend:  backend,
		cfg:      cfg,
		width:    cfg.width,
		height:   cfg.height,
		surfaces: make(map[string]*Surface),
		textures: make(map[string]effect.TextureSpec),
		programs: make(map[string]uint64),
	}, nil
}

func slotID(i int, spec effect.TextureSpec) string {
	return graph.SlotName(i) + "@" + spec.Key()
}

func programHash(p effect.Program) uint64 {
	return xxh3.HashString(p.Entry + "\x00" + p.Source())
}

// Load compiles the programs of g, creates its textures and makes it the
// running graph. On error the previous graph is left untouched. A nil
// alloc is computed from g.
func (e *Executor) Load(ctx context.Context, g *graph.Graph, alloc *graph.Allocation) error {
	if g == nil {
		return ErrNilGraph
	}

	if alloc == nil {
		alloc = graph.Allocate(g)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.disposed {
		return ErrDisposed
	}

	compiled := make(map[string]uint64, len(g.Programs))

	for _, id := range slices.Sorted(maps.Keys(g.Programs)) {
		prog := g.Programs[id]

		h := programHash(prog)
		if old, ok := e.programs[id]; ok && old == h {
			continue
		}

		if err := e.backend.CompileProgram(ctx, id, prog); err != nil {
			return asBackendError(err, CodeCompile, "CompileProgram", id)
		}

		compiled[id] = h
	}

	maps.Copy(e.programs, compiled)

	steps := make([]step, len(g.Passes))
	for i, p := range g.Passes {
		s, err := compileStep(p)
		if err != nil {
			return err
		}

		steps[i] = s
	}

	var created []string

	create := func(id string, spec effect.TextureSpec) error {
		if err := e.backend.CreateTexture(id, spec.Sized(e.width, e.height)); err != nil {
			for _, c := range created {
				_ = e.backend.DestroyTexture(c)
				delete(e.textures, c)
			}

			return asBackendError(err, CodeTexture, "CreateTexture", id)
		}

		created = append(created, id)
		e.textures[id] = spec

		return nil
	}

	slots := make([]string, alloc.Len())

	for i, spec := range alloc.Specs {
		slots[i] = slotID(i, spec)
		if _, ok := e.textures[slots[i]]; ok {
			continue
		}

		if err := create(slots[i], spec); err != nil {
			return err
		}
	}

	added := make(map[string]*Surface)

	for _, id := range g.Surfaces() {
		if _, ok := e.surfaces[id]; ok {
			continue
		}

		s := newSurface(id, g.Textures[id])
		for _, buf := range s.buffers() {
			if err := create(buf, s.Spec); err != nil {
				return err
			}
		}

		added[id] = s
	}

	maps.Copy(e.surfaces, added)
	e.current = &loaded{graph: g, alloc: alloc, steps: steps, slots: slots}
	e.releaseSlots(slots)

	e.cfg.logger.DebugContext(ctx, "graph loaded",
		slog.String("id", g.ID),
		slog.Int("passes", len(steps)),
		slog.Int("slots", len(slots)),
		slog.Int("surfaces", len(e.surfaces)),
		slog.Int("compiled", len(compiled)),
	)

	return nil
}

// releaseSlots destroys slot textures not in keep.
func (e *Executor) releaseSlots(keep []string) {
	live := make(map[string]bool, len(keep))
	for _, id := range keep {
		live[id] = true
	}

	for _, s := range e.surfaces {
		for _, buf := range s.buffers() {
			live[buf] = true
		}
	}

	for _, id := range slices.Sorted(maps.Keys(e.textures)) {
		if live[id] {
			continue
		}

		if err := e.backend.DestroyTexture(id); err != nil {
			e.cfg.logger.Warn("destroy texture", slog.String("id", id), slog.Any("error", err))
		}

		delete(e.textures, id)
	}
}

// Frame executes one frame of the running graph.
func (e *Executor) Frame(ctx context.Context, state lang.FrameState) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.disposed {
		return ErrDisposed
	}

	if e.current == nil {
		return ErrNotLoaded
	}

	if state.Width == 0 || state.Height == 0 {
		state.Width, state.Height = e.width, e.height
	}

	f := &frame{
		exec:    e,
		cur:     e.current,
		state:   state,
		env:     state.Env(),
		read:    make(map[string]string, len(e.surfaces)),
		written: make(map[string]bool),
	}

	for id, s := range e.surfaces {
		f.read[id] = s.Read
	}

	if err := e.backend.BeginFrame(ctx, state); err != nil {
		return err
	}

	if err := profile.Frame(ctx, f.cur.graph.ID, f.run); err != nil {
		return f.abort(ctx, err)
	}

	return f.finish(ctx)
}

// Resize recreates every viewport-sized texture at the new size.
func (e *Executor) Resize(width, height int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.disposed {
		return ErrDisposed
	}

	if err := e.backend.Resize(width, height); err != nil {
		return err
	}

	e.width, e.height = width, height

	for _, id := range slices.Sorted(maps.Keys(e.textures)) {
		spec := e.textures[id]
		if !spec.Follows() {
			continue
		}

		if err := e.backend.DestroyTexture(id); err != nil {
			return asBackendError(err, CodeTexture, "DestroyTexture", id)
		}

		if err := e.backend.CreateTexture(id, spec.Sized(width, height)); err != nil {
			return asBackendError(err, CodeTexture, "CreateTexture", id)
		}
	}

	e.cfg.logger.Debug("resized", slog.Int("width", width), slog.Int("height", height))

	return nil
}

// Dispose destroys every texture and closes the backend.
func (e *Executor) Dispose() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.disposed {
		return nil
	}

	e.disposed = true

	for _, id := range slices.Sorted(maps.Keys(e.textures)) {
		_ = e.backend.DestroyTexture(id)
	}

	clear(e.textures)
	clear(e.surfaces)
	e.current = nil

	return e.backend.Close()
}

// Graph returns the running graph, or nil.
func (e *Executor) Graph() *graph.Graph {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.current == nil {
		return nil
	}

	return e.current.graph
}

// Surface returns a copy of the state of a persistent surface.
func (e *Executor) Surface(id string) (Surface, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	s, ok := e.surfaces[id]
	if !ok {
		return Surface{}, false
	}

	return *s, true
}

// Textures returns the sorted ids of every backend texture.
func (e *Executor) Textures() []string {
	e.mu.Lock()
	defer e.mu.Unlock()

	return slices.Sorted(maps.Keys(e.textures))
}

// Frames returns the number of frames completed.
func (e *Executor) Frames() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.frames
}

// Size returns the viewport size.
func (e *Executor) Size() (width, height int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.width, e.height
}
