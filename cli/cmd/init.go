package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/alecthomas/kong"
	"github.com/goccy/go-yaml"

	"github.com/ardnew/fxc/log"
	"github.com/ardnew/fxc/profile"
)

// defaultConfigIndent is the number of spaces to use for indentation
// when generating the default configuration file.
const defaultConfigIndent = 2

// starterProgram is written by init --program.
const starterProgram = `search basics, filter

noise(scale: 8, speed: 0.2)
  .blend(tex: o1, mode: screen, amount: 0.4)
  .out(o0)

osc(frequency: 20).out(o1)
`

// Init writes a configuration file holding the current flag values and,
// optionally, a starter program.
type Init struct {
	Force   bool   `help:"Overwrite existing files"             short:"f"`
	Program string `help:"Also write a starter program to FILE"            placeholder:"FILE" type:"path"`
}

// Run executes the init command.
func (i *Init) Run(ctx context.Context) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	ktx := kongContextFrom(ctx)
	if ktx == nil {
		return ErrNoConfigPath
	}

	confPath, ok := ktx.Model.Vars()[ConfigIdentifier]
	if !ok || confPath == "" {
		return ErrNoConfigPath
	}

	data, err := yaml.MarshalWithOptions(
		i.buildConfig(ktx),
		yaml.Indent(defaultConfigIndent),
	)
	if err != nil {
		return ErrYAMLMarshal.Wrap(err)
	}

	if err := i.write(confPath, data); err != nil {
		return err
	}

	log.DebugContext(ctx, "initialized configuration file",
		slog.String("path", confPath),
	)

	if i.Program == "" {
		return nil
	}

	if err := i.write(i.Program, []byte(starterProgram)); err != nil {
		return err
	}

	log.DebugContext(ctx, "initialized starter program",
		slog.String("path", i.Program),
	)

	return nil
}

// write creates path with data unless it exists and --force is unset.
func (i *Init) write(path string, data []byte) error {
	_, err := os.Stat(path)
	if err == nil && !i.Force {
		return ErrWriteConfig.
			With(slog.String("file", path)).
			With(slog.Bool("exists", true)).
			Wrap(ErrFileExists)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return ErrWriteConfig.
			With(slog.String("file", path)).
			Wrap(err)
	}

	return nil
}

// buildConfig collects the set flag values in declaration order.
func (i *Init) buildConfig(ktx *kong.Context) yaml.MapSlice {
	var cfg yaml.MapSlice

	prefixIgnore := []string{"help", "version", profile.Tag}

	for _, flag := range ktx.Model.Flags {
		if flag.Hidden || slices.ContainsFunc(prefixIgnore, func(s string) bool {
			return strings.HasPrefix(flag.Name, s)
		}) {
			continue
		}

		if val := flagValue(ktx, flag); val != nil {
			cfg = append(cfg, yaml.MapItem{Key: flag.Name, Value: val})
		}
	}

	return cfg
}

// flagValue returns the YAML value for a CLI flag, or nil if unset.
func flagValue(ktx *kong.Context, flag *kong.Flag) any {
	switch v := ktx.FlagValue(flag).(type) {
	case nil:
		return nil

	case string:
		if v == "" {
			return nil
		}

		return v

	case time.Duration:
		return v.String()

	case []string:
		if len(v) == 0 {
			return nil
		}

		return v

	case bool, int, int64, uint, uint64, float32, float64:
		return v

	default:
		return fmt.Sprint(v)
	}
}
