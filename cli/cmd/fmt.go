package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/ardnew/fxc/backend"
	"github.com/ardnew/fxc/engine"
	"github.com/ardnew/fxc/lang"
	"github.com/ardnew/fxc/log"
)

// Fmt rewrites a program in canonical form, optionally overriding step
// arguments.
type Fmt struct {
	Set   []string `help:"Override an argument of step TEMP" placeholder:"TEMP.PARAM=VALUE" short:"s"`
	Write bool     `help:"Write the result to the source file instead of stdout" short:"w"`

	Source string `arg:"" default:"-" help:"Program file or '-' for stdin." name:"source"`
}

// Run executes the fmt command.
func (f *Fmt) Run(ctx context.Context) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	overrides, err := engine.ParseOverrides(f.Set)
	if err != nil {
		return err
	}

	src, err := readSource(f.Source)
	if err != nil {
		return err
	}

	eng, err := newEngine(ctx, backend.NewRecorder(), engine.WithStrict(false))
	if err != nil {
		return err
	}
	defer eng.Close()

	comp, err := eng.Compile(ctx, src)
	if err != nil {
		reportError(outputFrom(ctx), f.Source, err)

		return ErrCheckFailed.With(slog.String("file", f.Source)).Wrap(err)
	}

	text, err := lang.Unparse(comp.Planned, eng.Registry(), overrides)
	if err != nil {
		return err
	}

	log.DebugContext(ctx, "formatted program",
		slog.String("file", f.Source),
		slog.Int("overrides", len(f.Set)),
		slog.Int("bytes", len(text)),
	)

	if !f.Write || f.Source == stdinSource {
		_, err = fmt.Fprint(outputFrom(ctx), text)

		return err
	}

	info, err := os.Stat(f.Source)
	if err != nil {
		return err
	}

	return os.WriteFile(f.Source, []byte(text), info.Mode().Perm())
}
