package backend

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"

	"github.com/ardnew/fxc/effect"
	"github.com/ardnew/fxc/lang"
	"github.com/ardnew/fxc/pipeline"
	"github.com/ardnew/fxc/pkg"
)

var (
	ErrClosed   = pkg.NewError("backend closed")
	ErrInjected = pkg.NewError("injected failure")
	ErrTexture  = pkg.NewError("unknown texture")
	ErrProgram  = pkg.NewError("unknown program")
	ErrExists   = pkg.NewError("texture exists")
)

// Call is one recorded backend operation.
type Call struct {
	Method string
	// ID is the texture, program or pass the call concerns.
	ID       string
	Src      string
	Spec     effect.TextureSpec
	Dispatch *pipeline.Dispatch
	Frame    int
	Width    int
	Height   int
}

func (c Call) String() string {
	switch c.Method {
	case "CopyTexture":
		return fmt.Sprintf("%s %s -> %s", c.Method, c.Src, c.ID)
	case "ExecutePass":
		return fmt.Sprintf("%s %s %v -> %v", c.Method, c.ID, c.Dispatch.Inputs, c.Dispatch.Outputs)
	case "Resize":
		return fmt.Sprintf("%s %dx%d", c.Method, c.Width, c.Height)
	case "BeginFrame":
		return fmt.Sprintf("%s %d", c.Method, c.Frame)
	}

	if c.ID == "" {
		return c.Method
	}

	return c.Method + " " + c.ID
}

// Recorder is an in-memory backend that records its calls. It checks
// that every referenced texture and program exists.
type Recorder struct {
	mu       sync.Mutex
	calls    []Call
	textures map[string]effect.TextureSpec
	programs map[string]effect.Program
	failures map[string]error
	closed   bool
	width    int
	height   int
}

// NewRecorder returns an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{
		textures: make(map[string]effect.TextureSpec),
		programs: make(map[string]effect.Program),
		failures: make(map[string]error),
	}
}

// FailOn makes calls to method fail with err. An empty id matches every
// call to method; otherwise only calls concerning id fail. A nil err
// removes the failure.
func (r *Recorder) FailOn(method, id string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := method + ":" + id
	if err == nil {
		delete(r.failures, key)

		return
	}

	r.failures[key] = err
}

// record appends c and returns the injected failure for it, if any.
func (r *Recorder) record(c Call) error {
	if r.closed && c.Method != "Close" {
		return ErrClosed.With(slog.String("method", c.Method))
	}

	r.calls = append(r.calls, c)

	for _, key := range []string{c.Method + ":" + c.ID, c.Method + ":"} {
		if err, ok := r.failures[key]; ok {
			return ErrInjected.Wrap(err).With(slog.String("method", c.Method), slog.String("id", c.ID))
		}
	}

	return nil
}

func (r *Recorder) Init(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.record(Call{Method: "Init"})
}

func (r *Recorder) CreateTexture(id string, spec effect.TextureSpec) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.record(Call{Method: "CreateTexture", ID: id, Spec: spec}); err != nil {
		return err
	}

	if _, ok := r.textures[id]; ok {
		return ErrExists.With(slog.String("id", id))
	}

	r.textures[id] = spec

	return nil
}

func (r *Recorder) DestroyTexture(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.record(Call{Method: "DestroyTexture", ID: id}); err != nil {
		return err
	}

	if _, ok := r.textures[id]; !ok {
		return ErrTexture.With(slog.String("id", id))
	}

	delete(r.textures, id)

	return nil
}

func (r *Recorder) CompileProgram(_ context.Context, id string, p effect.Program) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.record(Call{Method: "CompileProgram", ID: id}); err != nil {
		return err
	}

	r.programs[id] = p

	return nil
}

func (r *Recorder) ExecutePass(_ context.Context, d pipeline.Dispatch, frame lang.FrameState) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.record(Call{Method: "ExecutePass", ID: d.Pass, Dispatch: &d, Frame: frame.Frame}); err != nil {
		return err
	}

	if _, ok := r.programs[d.Program]; !ok {
		return ErrProgram.With(slog.String("program", d.Program))
	}

	for _, id := range slices.Concat(slices.Collect(maps.Values(d.Inputs)), slices.Collect(maps.Values(d.Outputs))) {
		if _, ok := r.textures[id]; !ok {
			return ErrTexture.With(slog.String("pass", d.Pass), slog.String("id", id))
		}
	}

	return nil
}

func (r *Recorder) BeginFrame(_ context.Context, frame lang.FrameState) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.record(Call{Method: "BeginFrame", Frame: frame.Frame, Width: frame.Width, Height: frame.Height})
}

func (r *Recorder) EndFrame(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.record(Call{Method: "EndFrame"})
}

func (r *Recorder) Resize(width, height int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.record(Call{Method: "Resize", Width: width, Height: height}); err != nil {
		return err
	}

	r.width, r.height = width, height

	return nil
}

func (r *Recorder) CopyTexture(src, dst string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.record(Call{Method: "CopyTexture", ID: dst, Src: src}); err != nil {
		return err
	}

	for _, id := range []string{src, dst} {
		if _, ok := r.textures[id]; !ok {
			return ErrTexture.With(slog.String("id", id))
		}
	}

	return nil
}

func (r *Recorder) Present(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.record(Call{Method: "Present", ID: id}); err != nil {
		return err
	}

	if _, ok := r.textures[id]; !ok {
		return ErrTexture.With(slog.String("id", id))
	}

	return nil
}

func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	err := r.record(Call{Method: "Close"})
	r.closed = true

	return err
}

// Calls returns a copy of the recorded calls.
func (r *Recorder) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()

	return slices.Clone(r.calls)
}

// Find returns the recorded calls to method.
func (r *Recorder) Find(method string) []Call {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []Call

	for _, c := range r.calls {
		if c.Method == method {
			out = append(out, c)
		}
	}

	return out
}

// Count returns the number of calls per method.
func (r *Recorder) Count() map[string]int {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[string]int)
	for _, c := range r.calls {
		out[c.Method]++
	}

	return out
}

// Reset forgets the recorded calls but keeps textures and programs.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.calls = nil
}

// Texture returns the spec a texture was created with.
func (r *Recorder) Texture(id string) (effect.TextureSpec, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.textures[id]

	return s, ok
}

// Textures returns the sorted ids of live textures.
func (r *Recorder) Textures() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return slices.Sorted(maps.Keys(r.textures))
}

// Program returns a compiled program.
func (r *Recorder) Program(id string) (effect.Program, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.programs[id]

	return p, ok
}

// Size returns the last viewport size passed to Resize.
func (r *Recorder) Size() (width, height int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.width, r.height
}
