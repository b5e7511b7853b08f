package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/ardnew/fxc/backend"
	"github.com/ardnew/fxc/engine"
	"github.com/ardnew/fxc/lang"
	"github.com/ardnew/fxc/log"
)

// Check compiles a program and reports its diagnostics without running it.
type Check struct {
	Quiet bool `help:"Report errors only" short:"q"`

	Source string `arg:"" default:"-" help:"Program file or '-' for stdin." name:"source"`
}

// Run executes the check command.
func (c *Check) Run(ctx context.Context) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	src, err := readSource(c.Source)
	if err != nil {
		return err
	}

	// Diagnostics are the output here, so strict mode never hides them.
	eng, err := newEngine(ctx, backend.NewRecorder(), engine.WithStrict(false))
	if err != nil {
		return err
	}
	defer eng.Close()

	out := outputFrom(ctx)

	comp, err := eng.Compile(ctx, src)
	if err != nil {
		reportError(out, c.Source, err)

		return ErrCheckFailed.With(slog.String("file", c.Source)).Wrap(err)
	}

	errs := report(out, c.Source, comp, c.Quiet)

	log.DebugContext(ctx, "check complete",
		slog.String("file", c.Source),
		slog.String("id", comp.ID()),
		slog.Int("diagnostics", len(comp.Diagnostics())),
		slog.Int("errors", errs),
	)

	if errs > 0 {
		return ErrCheckFailed.With(
			slog.String("file", c.Source),
			slog.Int("errors", errs),
		)
	}

	if !c.Quiet {
		fmt.Fprintln(out, okStyle.Render(fmt.Sprintf(
			"%s: ok (%d steps, %d passes, %d slots)",
			c.Source,
			len(comp.Planned.Steps),
			len(comp.Graph.Passes),
			comp.Alloc.Len(),
		)))
	}

	return nil
}

// report prints the diagnostics and expansion errors of comp and returns
// how many of them are errors.
func report(w io.Writer, name string, comp *engine.Compiled, quiet bool) int {
	errs := 0

	for _, d := range comp.Diagnostics() {
		if d.Severity == lang.SeverityError {
			errs++
		} else if quiet {
			continue
		}

		fmt.Fprintln(w, severityStyle(d.Severity).Render(name+": "+d.String()))
	}

	for _, e := range comp.Errors() {
		errs++

		fmt.Fprintln(w, errorStyle.Render(name+": "+e.Error()))
	}

	return errs
}

// reportError prints a fatal compile error, keeping a syntax error's
// source snippet unstyled so the caret stays aligned.
func reportError(w io.Writer, name string, err error) {
	var se *lang.SyntaxError
	if !errors.As(err, &se) {
		fmt.Fprintln(w, errorStyle.Render(name+": "+err.Error()))

		return
	}

	msg, snippet, _ := strings.Cut(se.Error(), ":\n")

	fmt.Fprintln(w, errorStyle.Render(name+": "+msg))

	if snippet != "" {
		fmt.Fprint(w, snippet)
	}
}
