package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"

	"github.com/ardnew/fxc/effect"
	"github.com/ardnew/fxc/lang"
	"github.com/ardnew/fxc/profile"
)

// frame is the state of one Executor.Frame call.
type frame struct {
	exec  *Executor
	cur   *loaded
	state lang.FrameState
	env   lang.Env
	// read is the buffer each surface is sampled from this frame.
	read    map[string]string
	written map[string]bool
	passes  int
}

func guarded(guards []*lang.Dynamic, env lang.Env) bool {
	for _, g := range guards {
		if !lang.Truthy(g.Eval(env)) {
			return false
		}
	}

	return true
}

// run executes the passes of each step, in order, as many times as the
// step repeats.
func (f *frame) run(ctx context.Context) error {
	steps := f.cur.steps

	for i := 0; i < len(steps); {
		j := i + 1
		for j < len(steps) && steps[j].Step == steps[i].Step {
			j++
		}

		group := steps[i:j]
		i = j

		if !guarded(group[0].Guards, f.env) {
			continue
		}

		n := group[0].Repeat.Times(f.env)

		for k := range n {
			for _, s := range group {
				err := profile.Pass(ctx, s.ID, string(s.Kind), func(ctx context.Context) error {
					return f.pass(ctx, s, k)
				})
				if err != nil {
					return err
				}
			}
		}
	}

	return nil
}

func (f *frame) pass(ctx context.Context, s step, iteration int) error {
	uniforms := make(map[string]any, len(s.Uniforms))
	for k, v := range s.Uniforms {
		uniforms[k] = v.Eval(f.env)
	}

	env := maps.Clone(map[string]any(f.env))
	maps.Copy(env, uniforms)

	n, err := s.times(env)
	if err != nil {
		return err
	}

	if _, ok := f.exec.programs[s.Program]; !ok {
		return backendError(CodeMissingProgram, "ExecutePass", s.ID,
			fmt.Errorf("program %q not compiled", s.Program))
	}

	for r := range n {
		d := Dispatch{
			Pass:      s.ID,
			Program:   s.Program,
			Kind:      s.Kind,
			Inputs:    make(map[string]string, len(s.Inputs)),
			Outputs:   make(map[string]string, len(s.Outputs)),
			Uniforms:  uniforms,
			Iteration: iteration*n + r,
		}

		for _, b := range slices.Sorted(maps.Keys(s.Inputs)) {
			id, err := f.bindRead(s.ID, s.Inputs[b])
			if err != nil {
				return err
			}

			d.Inputs[b] = id
		}

		for _, b := range slices.Sorted(maps.Keys(s.Outputs)) {
			id, err := f.bindWrite(s.ID, s.Outputs[b])
			if err != nil {
				return err
			}

			d.Outputs[b] = id
		}

		if s.Kind == effect.PassCompute {
			if d.Groups, err = f.groups(s); err != nil {
				return err
			}
		}

		if err := f.exec.backend.ExecutePass(ctx, d, f.state); err != nil {
			return asBackendError(err, CodeDispatch, "ExecutePass", s.ID)
		}

		f.commit(s.Outputs)
		f.passes++

		f.exec.cfg.logger.TraceContext(ctx, "pass executed",
			slog.String("pass", s.ID),
			slog.Int("iteration", d.Iteration),
		)
	}

	return nil
}

func (f *frame) texture(pass, id string) (string, error) {
	i, ok := f.cur.alloc.Slots[id]
	if !ok || i >= len(f.cur.slots) {
		return "", backendError(CodeTexture, "ExecutePass", pass,
			fmt.Errorf("texture %q has no storage", id))
	}

	return f.cur.slots[i], nil
}

// bindRead returns the buffer a pass samples for id. Feedback surfaces
// always yield the previous frame.
func (f *frame) bindRead(pass, id string) (string, error) {
	if s, ok := f.exec.surfaces[id]; ok {
		if s.Feedback() {
			return s.Read, nil
		}

		return f.read[id], nil
	}

	return f.texture(pass, id)
}

// bindWrite returns the buffer a pass renders id into. A surface written
// earlier in the frame is swapped first, so the pass never writes the
// buffer it may be sampling.
func (f *frame) bindWrite(pass, id string) (string, error) {
	if s, ok := f.exec.surfaces[id]; ok {
		if !s.Feedback() && f.written[id] {
			s.Swap()
		}

		return s.Write, nil
	}

	return f.texture(pass, id)
}

func (f *frame) commit(outputs map[string]string) {
	for _, id := range outputs {
		s, ok := f.exec.surfaces[id]
		if !ok {
			continue
		}

		if s.Feedback() {
			s.Dirty = true

			continue
		}

		f.read[id] = s.Write
		f.written[id] = true
	}
}

// groups computes the workgroup count covering the pass's first output.
func (f *frame) groups(s step) ([3]int, error) {
	var groups [3]int

	fail := func(reason string) ([3]int, error) {
		return groups, backendError(CodeDispatch, "ExecutePass", s.ID, errors.New(reason))
	}

	outs := slices.Sorted(maps.Values(s.Outputs))
	if len(outs) == 0 {
		return fail("compute pass has no output")
	}

	spec, ok := f.cur.graph.Textures[outs[0]]
	if !ok {
		spec = effect.Surface2D()
	}

	spec = spec.Sized(f.state.Width, f.state.Height)
	size := [3]int{spec.Width, spec.Height, 1}

	if spec.Is3D() {
		size[2] = spec.Depth
	}

	for i := range groups {
		wg := s.Workgroup[i]
		if wg < 1 || size[i] < 1 {
			return fail(fmt.Sprintf("cannot dispatch %v over %v", s.Workgroup, size))
		}

		groups[i] = (size[i] + wg - 1) / wg
	}

	return groups, nil
}

// finish ends the frame: dirty feedback surfaces are copied forward, the
// render surface is presented and written surfaces are swapped.
// abort ends a frame whose passes failed. Feedback written before the
// failure is discarded and no surface swaps.
func (f *frame) abort(ctx context.Context, err error) error {
	for _, s := range f.exec.surfaces {
		s.Dirty = false
	}

	if endErr := f.exec.backend.EndFrame(ctx); endErr != nil {
		err = errors.Join(err, endErr)
	}

	f.exec.cfg.logger.DebugContext(ctx, "frame aborted",
		slog.Int("frame", f.state.Frame),
		slog.Int("passes", f.passes),
		slog.Any("error", err),
	)

	return err
}

func (f *frame) finish(ctx context.Context) error {
	e := f.exec

	if err := e.backend.EndFrame(ctx); err != nil {
		return err
	}

	for _, id := range slices.Sorted(maps.Keys(e.surfaces)) {
		s := e.surfaces[id]
		if !s.Dirty {
			continue
		}

		if err := e.backend.CopyTexture(s.Write, s.Read); err != nil {
			return asBackendError(err, CodeTexture, "CopyTexture", id)
		}

		s.Dirty = false
	}

	render := f.cur.graph.RenderSurface
	if s, ok := e.surfaces[render]; ok {
		present := f.read[render]
		if s.Feedback() {
			present = s.Read
		}

		if err := e.backend.Present(present); err != nil {
			return err
		}
	}

	for _, id := range slices.Sorted(maps.Keys(f.written)) {
		e.surfaces[id].Swap()
	}

	e.frames++

	e.cfg.logger.TraceContext(ctx, "frame complete",
		slog.Int("frame", f.state.Frame),
		slog.Int("passes", f.passes),
	)

	return nil
}
