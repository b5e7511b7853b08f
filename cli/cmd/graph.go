package cmd

import (
	"context"
	"log/slog"

	"github.com/ardnew/fxc/backend"
	"github.com/ardnew/fxc/engine"
)

// Graph prints the expanded render graph of a program together with its
// texture allocation.
type Graph struct {
	Format string `default:"yaml" enum:"yaml,json" help:"Output format" short:"o"`
	Indent int    `default:"2"                     help:"Indent width"  short:"i"`

	Source string `arg:"" default:"-" help:"Program file or '-' for stdin." name:"source"`
}

// Run executes the graph command.
func (g *Graph) Run(ctx context.Context) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	src, err := readSource(g.Source)
	if err != nil {
		return err
	}

	eng, err := newEngine(ctx, backend.NewRecorder(), engine.WithStrict(false))
	if err != nil {
		return err
	}
	defer eng.Close()

	out := outputFrom(ctx)

	comp, err := eng.Compile(ctx, src)
	if err != nil {
		reportError(out, g.Source, err)

		return ErrCheckFailed.With(slog.String("file", g.Source)).Wrap(err)
	}

	switch g.Format {
	case "json":
		return comp.Graph.FormatJSON(ctx, out, comp.Alloc, g.Indent)
	case "yaml":
		return comp.Graph.FormatYAML(ctx, out, comp.Alloc, g.Indent)
	}

	return ErrFormat.With(slog.String("format", g.Format))
}
