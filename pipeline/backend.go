package pipeline

import (
	"context"

	"github.com/ardnew/fxc/effect"
	"github.com/ardnew/fxc/lang"
)

// Dispatch is one execution of a pass with every binding resolved to a
// backend texture id.
type Dispatch struct {
	Pass     string
	Program  string
	Kind     effect.PassKind
	Inputs   map[string]string
	Outputs  map[string]string
	Uniforms map[string]any
	// Groups is the compute workgroup count. It is zero for render passes.
	Groups [3]int
	// Iteration counts repeats of the pass within its step.
	Iteration int
}

// Backend performs the drawing operations requested by an [Executor].
// Implementations need not be safe for concurrent use; the executor
// serializes every call.
type Backend interface {
	Init(ctx context.Context) error
	CreateTexture(id string, spec effect.TextureSpec) error
	DestroyTexture(id string) error
	CompileProgram(ctx context.Context, id string, p effect.Program) error
	ExecutePass(ctx context.Context, d Dispatch, frame lang.FrameState) error
	BeginFrame(ctx context.Context, frame lang.FrameState) error
	EndFrame(ctx context.Context) error
	Resize(width, height int) error
	CopyTexture(src, dst string) error
	Present(id string) error
	Close() error
}
