package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"time"

	"github.com/ardnew/fxc/backend"
	"github.com/ardnew/fxc/log"
)

// Run executes a program for a number of frames against the recording
// backend and summarizes the backend calls it made.
type Run struct {
	Frames   int           `default:"1"    help:"Number of frames to execute"      short:"n"`
	Step     time.Duration `default:"16ms" help:"Simulated time between frames"`
	Validate bool          `               help:"Compile WGSL programs with naga"  short:"V"`
	Trace    bool          `               help:"Print every backend call"         short:"t"`

	Source string `arg:"" default:"-" help:"Program file or '-' for stdin." name:"source"`
}

// Run executes the run command.
func (r *Run) Run(ctx context.Context) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	src, err := readSource(r.Source)
	if err != nil {
		return err
	}

	be, rec := newRecorder(r.Validate)

	eng, err := newEngine(ctx, be)
	if err != nil {
		return err
	}
	defer eng.Close()

	out := outputFrom(ctx)

	comp, err := eng.Recompile(ctx, src)
	if err != nil {
		reportError(out, r.Source, err)

		return ErrCheckFailed.With(slog.String("file", r.Source)).Wrap(err)
	}

	report(out, r.Source, comp, true)

	start := time.Now()

	for i := range max(r.Frames, 0) {
		if ctx.Err() != nil {
			log.WarnContext(ctx, "run interrupted", slog.Int("frame", i))

			break
		}

		if err := eng.Advance(ctx, r.Step); err != nil {
			return ErrFrameFailed.With(slog.Int("frame", i)).Wrap(err)
		}
	}

	log.DebugContext(ctx, "run complete",
		slog.String("file", r.Source),
		slog.Int("frames", eng.Executor().Frames()),
		slog.Duration("elapsed", time.Since(start)),
	)

	if r.Trace {
		for _, c := range rec.Calls() {
			fmt.Fprintln(out, c.String())
		}
	}

	counts := rec.Count()
	for _, method := range slices.Sorted(maps.Keys(counts)) {
		fmt.Fprintln(out, nameStyle.Render(fmt.Sprintf("%-16s", method)), counts[method])
	}

	if sh, ok := be.(*backend.Shader); ok {
		fmt.Fprintln(out, nameStyle.Render(fmt.Sprintf("%-16s", "spirv")), len(sh.Programs()))
	}

	return nil
}
