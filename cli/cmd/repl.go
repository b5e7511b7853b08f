package cmd

import (
	"context"
	"log/slog"

	"github.com/ardnew/fxc/cli/cmd/repl"
	"github.com/ardnew/fxc/log"
)

// Repl live-codes a program one statement at a time.
type Repl struct {
	Validate bool `help:"Compile WGSL programs with naga" short:"V"`

	Source string `arg:"" help:"Program file to start from." name:"source" optional:"" type:"existingfile"`
}

// Run executes the repl command.
func (r *Repl) Run(ctx context.Context) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	var src string

	if r.Source != "" {
		if src, err = readSource(r.Source); err != nil {
			return err
		}
	}

	be, rec := newRecorder(r.Validate)

	// The REPL reports errors itself and keeps running the last good program.
	eng, err := newEngine(ctx, be)
	if err != nil {
		return err
	}
	defer eng.Close()

	var cacheDir string
	if ktx := kongContextFrom(ctx); ktx != nil {
		cacheDir = ktx.Model.Vars()[CacheIdentifier]
	}

	log.TraceContext(ctx, "repl",
		slog.String("source", r.Source),
		slog.String("cache_dir", cacheDir),
	)

	return repl.Run(ctx, eng, rec, src, cacheDir, log.Default())
}
