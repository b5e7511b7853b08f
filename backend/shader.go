package backend

import (
	"context"
	"log/slog"
	"maps"
	"slices"
	"sync"

	"github.com/gogpu/naga"

	"github.com/ardnew/fxc/effect"
	"github.com/ardnew/fxc/log"
	"github.com/ardnew/fxc/pipeline"
)

// ShaderOption configures a [Shader].
type ShaderOption func(*Shader)

// WithValidation enables naga's IR validation.
func WithValidation(on bool) ShaderOption {
	return func(s *Shader) { s.opts.Validate = on }
}

// WithDebugInfo emits debug names and line info into the SPIR-V.
func WithDebugInfo(on bool) ShaderOption {
	return func(s *Shader) { s.opts.Debug = on }
}

// WithShaderLogger sets the logger for compilation results.
func WithShaderLogger(logger log.Logger) ShaderOption {
	return func(s *Shader) { s.logger = logger }
}

// Shader compiles WGSL programs to SPIR-V before handing them to the
// wrapped backend. Programs without WGSL source pass through unchanged.
type Shader struct {
	pipeline.Backend

	opts   naga.CompileOptions
	logger log.Logger

	mu    sync.Mutex
	spirv map[string][]byte
}

// NewShader wraps inner.
func NewShader(inner pipeline.Backend, opts ...ShaderOption) *Shader {
	s := &Shader{
		Backend: inner,
		opts:    naga.DefaultOptions(),
		spirv:   make(map[string][]byte),
	}

	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	return s
}

// CompileProgram compiles the WGSL source of p and forwards p to the
// wrapped backend. A compilation failure is reported as an R001
// [pipeline.BackendError].
func (s *Shader) CompileProgram(ctx context.Context, id string, p effect.Program) error {
	if p.WGSL == "" {
		return s.Backend.CompileProgram(ctx, id, p)
	}

	code, err := naga.CompileWithOptions(p.WGSL, s.opts)
	if err != nil {
		s.logger.DebugContext(ctx, "shader rejected", slog.String("program", id), slog.Any("error", err))

		return &pipeline.BackendError{
			Code: pipeline.CodeCompile,
			Op:   "CompileProgram",
			ID:   id,
			Err:  err,
		}
	}

	s.mu.Lock()
	s.spirv[id] = code
	s.mu.Unlock()

	s.logger.TraceContext(ctx, "shader compiled", slog.String("program", id), slog.Int("bytes", len(code)))

	return s.Backend.CompileProgram(ctx, id, p)
}

// SPIRV returns the compiled module of a program.
func (s *Shader) SPIRV(id string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	code, ok := s.spirv[id]

	return code, ok
}

// Programs returns the sorted ids of compiled programs.
func (s *Shader) Programs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return slices.Sorted(maps.Keys(s.spirv))
}
