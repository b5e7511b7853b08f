package engine

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/klauspost/readahead"

	"github.com/ardnew/fxc/effect"
	"github.com/ardnew/fxc/graph"
	"github.com/ardnew/fxc/lang"
	"github.com/ardnew/fxc/pipeline"
	"github.com/ardnew/fxc/registry"
)

// Compiled is a program carried through every compilation stage.
type Compiled struct {
	Source  string
	Planned *lang.Planned
	Graph   *graph.Graph
	Alloc   *graph.Allocation

	// catalog is the catalog generation the graph was expanded against.
	catalog uint64
}

// ID returns the content hash of the planned program.
func (c *Compiled) ID() string { return c.Planned.ID }

// Diagnostics returns the compiler's recoverable diagnostics.
func (c *Compiled) Diagnostics() lang.Diagnostics { return c.Planned.Diagnostics }

// Errors returns the expansion errors.
func (c *Compiled) Errors() []graph.Error { return c.Graph.Errors }

// Engine compiles and runs one program at a time.
type Engine struct {
	mu   sync.Mutex
	cfg  config
	reg  *registry.Registry
	cat  *effect.Catalog
	exec *pipeline.Executor

	current *Compiled
	clock   lang.FrameState
	mouse   [2]float64
}

// New returns an engine drawing through backend. Without WithCatalog the
// built-in effects are installed into the registry.
func New(ctx context.Context, backend pipeline.Backend, opts ...Option) (*Engine, error) {
	cfg := makeConfig(opts...)

	reg := cfg.registry
	if reg == nil {
		reg = registry.New()
	}

	cat := cfg.catalog
	if cat == nil {
		var err error
		if cat, err = effect.Builtin(ctx, reg); err != nil {
			return nil, err
		}
	}

	exec, err := pipeline.New(ctx, backend,
		pipeline.WithLogger(cfg.logger),
		pipeline.WithSize(cfg.width, cfg.height),
	)
	if err != nil {
		return nil, err
	}

	cfg.lang = append([]lang.Option{lang.WithLogger(cfg.logger)}, cfg.lang...)

	return &Engine{cfg: cfg, reg: reg, cat: cat, exec: exec}, nil
}

// Registry returns the name registry.
func (e *Engine) Registry() *registry.Registry { return e.reg }

// Catalog returns the effect catalog.
func (e *Engine) Catalog() *effect.Catalog { return e.cat }

// InstallFile loads an effect file into the catalog and registry. Later
// compilations can use its effects.
func (e *Engine) InstallFile(ctx context.Context, name string) (*effect.File, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.cat.InstallFile(ctx, e.reg, name)
}

// Compile runs src through the compiler, expander and allocator without
// touching the running program.
func (e *Engine) Compile(ctx context.Context, src string, opts ...graph.Option) (*Compiled, error) {
	planned, err := lang.Compile(ctx, src, e.reg, e.cfg.lang...)
	if err != nil {
		return nil, err
	}

	if e.cfg.strict && planned.Diagnostics.HasErrors() {
		return nil, ErrDiagnosed.With(slog.Int("diagnostics", len(planned.Diagnostics)))
	}

	opts = append([]graph.Option{graph.WithLogger(e.cfg.logger)}, opts...)
	gen := e.cat.Generation()

	g, err := graph.Expand(ctx, planned, e.cat, opts...)
	if err != nil {
		return nil, err
	}

	if e.cfg.strict {
		if err := g.Err(); err != nil {
			return nil, ErrExpansion.Wrap(err)
		}
	}

	return &Compiled{
		Source:  src,
		Planned: planned,
		Graph:   g,
		Alloc:   graph.Allocate(g),
		catalog: gen,
	}, nil
}

// Recompile compiles src and makes it the running program. On any error
// the previous program keeps running. Recompiling source that plans to
// the running program is a no-op unless graph options are given or the
// catalog changed since it was loaded.
func (e *Engine) Recompile(ctx context.Context, src string, opts ...graph.Option) (*Compiled, error) {
	c, err := e.Compile(ctx, src, opts...)
	if err != nil {
		e.cfg.logger.DebugContext(ctx, "compile rejected", slog.Any("error", err))

		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.current != nil && e.current.ID() == c.ID() &&
		e.current.catalog == c.catalog && len(opts) == 0 {
		e.current.Source = src

		return e.current, nil
	}

	if err := e.exec.Load(ctx, c.Graph, c.Alloc); err != nil {
		e.cfg.logger.WarnContext(ctx, "load rejected", slog.Any("error", err))

		return nil, err
	}

	e.current = c

	e.cfg.logger.InfoContext(ctx, "program loaded",
		slog.String("id", c.ID()),
		slog.Int("steps", len(c.Planned.Steps)),
		slog.Int("passes", len(c.Graph.Passes)),
		slog.Int("slots", c.Alloc.Len()),
		slog.Int("diagnostics", len(c.Diagnostics())),
		slog.Int("errors", len(c.Errors())),
	)

	return c, nil
}

// RecompileReader reads source from r and recompiles it.
func (e *Engine) RecompileReader(ctx context.Context, r io.Reader, opts ...graph.Option) (*Compiled, error) {
	ra := readahead.NewReader(r)
	defer ra.Close()

	data, err := io.ReadAll(ra)
	if err != nil {
		return nil, lang.ErrReadInput.Wrap(err)
	}

	return e.Recompile(ctx, string(data), opts...)
}

// Current returns the running program, or nil.
func (e *Engine) Current() *Compiled {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.current
}

// Unparse regenerates the source of the running program with the given
// argument overrides applied.
func (e *Engine) Unparse(overrides lang.Overrides) (string, error) {
	c := e.Current()
	if c == nil {
		return "", ErrNoProgram
	}

	return lang.Unparse(c.Planned, e.reg, overrides, e.cfg.lang...)
}

// Frame executes one frame with explicit state.
func (e *Engine) Frame(ctx context.Context, state lang.FrameState) error {
	return e.exec.Frame(ctx, state)
}

// SetMouse records the pointer position, normalized to [0, 1], for
// subsequent calls to Advance.
func (e *Engine) SetMouse(x, y float64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.mouse = [2]float64{x, y}
}

// Advance moves the engine clock forward by dt and executes a frame.
func (e *Engine) Advance(ctx context.Context, dt time.Duration) error {
	e.mu.Lock()
	state := e.clock
	state.DeltaTime = dt.Seconds()
	state.Time += state.DeltaTime
	state.MouseX, state.MouseY = e.mouse[0], e.mouse[1]
	state.Width, state.Height = e.exec.Size()
	e.mu.Unlock()

	if err := e.exec.Frame(ctx, state); err != nil {
		return err
	}

	e.mu.Lock()
	state.Frame++
	e.clock = state
	e.mu.Unlock()

	return nil
}

// Clock returns the frame state of the next Advance.
func (e *Engine) Clock() lang.FrameState {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.clock
}

// Resize changes the viewport size.
func (e *Engine) Resize(width, height int) error { return e.exec.Resize(width, height) }

// Executor returns the pipeline executor.
func (e *Engine) Executor() *pipeline.Executor { return e.exec }

// Close releases every backend resource.
func (e *Engine) Close() error { return e.exec.Dispose() }
