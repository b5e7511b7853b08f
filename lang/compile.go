package lang

import (
	"context"
	"io"
	"log/slog"

	"github.com/klauspost/readahead"

	"github.com/ardnew/fxc/registry"
)

// Compile tokenizes, parses and validates src against reg. Syntax errors
// and a missing search order are returned as errors; everything else is
// reported through the result's diagnostics.
func Compile(
	ctx context.Context,
	src string,
	reg *registry.Registry,
	opts ...Option,
) (*Planned, error) {
	prog, err := ParseString(ctx, src, opts...)
	if err != nil {
		return nil, err
	}

	planned, err := Validate(ctx, prog, reg, opts...)
	if err != nil {
		return nil, err
	}

	cfg := makeConfig(opts...)
	cfg.logger.TraceContext(ctx, "compile complete",
		slog.String("id", planned.ID),
		slog.Int("steps", len(planned.Steps)))

	return planned, nil
}

// CompileReader reads source from r and compiles it.
func CompileReader(
	ctx context.Context,
	r io.Reader,
	reg *registry.Registry,
	opts ...Option,
) (*Planned, error) {
	ra := readahead.NewReader(r)
	defer ra.Close()

	data, err := io.ReadAll(ra)
	if err != nil {
		return nil, ErrReadInput.Wrap(err)
	}

	return Compile(ctx, string(data), reg, opts...)
}
