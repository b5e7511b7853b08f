package cli

import (
	"context"
	"strings"

	"github.com/alecthomas/kong"

	"github.com/ardnew/fxc/cli/cmd"
	"github.com/ardnew/fxc/pkg"
)

// CLI is the top-level command-line interface for fxc.
type CLI struct {
	Log      logConfig    `embed:"" group:"log"    prefix:"log-"`
	Pprof    pprofConfig  `embed:"" group:"pprof"  prefix:"pprof-"`
	Settings cmd.Settings `embed:"" group:"engine"`

	Version kong.VersionFlag `help:"Print version and exit"`

	Check   cmd.Check   `cmd:"" help:"Report diagnostics of a program"`
	Fmt     cmd.Fmt     `cmd:"" help:"Format a program"`
	Graph   cmd.Graph   `cmd:"" help:"Print the render graph of a program"`
	Run     cmd.Run     `cmd:"" help:"Run a program against the recording backend"`
	Catalog cmd.Catalog `cmd:"" help:"List effects"`
	Init    cmd.Init    `cmd:"" help:"Initialize configuration file"`

	Repl cmd.Repl `cmd:"" default:"withargs" help:"Live-code a program"`
}

// Run executes the fxc CLI with the given context and arguments.
// The exit function is called with the appropriate exit code upon completion.
func Run(
	ctx context.Context,
	exit func(code int),
	args ...string,
) error {
	var cli CLI

	err := mkdirAllRequired()
	if err != nil {
		return err
	}

	configFilePath := configPath(baseConfig)

	vars := kong.Vars{
		"version":            pkg.Version(),
		cmd.ConfigIdentifier: configFilePath,
		cmd.CacheIdentifier:  pkg.CacheDir(),
		"effectDir":          pkg.EffectDir(),
	}.
		CloneWith(cli.Log.vars()).
		CloneWith(cli.Pprof.vars())

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Pre-scan for logger flags to ensure early configuration regardless of
	// flag position. TextUnmarshaler on logFormat/logLevel handles those flags
	// during normal parsing, but this early scan also catches boolean flags
	// like --log-pretty.
	cli.Log.scan(args)

	parser, err := kong.New(&cli,
		kong.Name(pkg.Name),
		kong.Description(pkg.Description),
		kong.UsageOnError(),
		kong.Exit(exit),
		kong.ExplicitGroups(
			[]kong.Group{cli.Log.group(), cli.Pprof.group(), engineGroup()},
		),
		kong.DefaultEnvars(strings.ToUpper(pkg.Prefix())),
		kong.BindSingletonProvider(func() context.Context {
			return ctx
		}),
		kong.ConfigureHelp(
			kong.HelpOptions{
				Compact:             true,
				Summary:             true,
				Tree:                true,
				FlagsLast:           false,
				NoAppSummary:        false,
				NoExpandSubcommands: true,
			}),
		kong.Configuration(resolve, configFilePath),
		vars,
	)
	if err != nil {
		return err
	}

	ktx, err := parser.Parse(args)
	if err != nil {
		return err
	}

	// Stuff additional context values for use by commands
	ctx = cmd.WithContext(ctx, ktx)
	ctx = cmd.WithSettings(ctx, cli.Settings)

	// Finalize logger configuration with all parsed values including
	// TimeLayout and Caller which don't use TextUnmarshaler.
	stopLog, err := cli.Log.start(ctx)
	if err != nil {
		return err
	}
	defer stopLog()

	// [pprofConfig.start] is no-op unless built with tag pprof and enabled.
	defer cli.Pprof.start(ctx)()

	return ktx.Run(ctx, &cli)
}

func engineGroup() kong.Group {
	var group kong.Group

	group.Key = "engine"
	group.Title = "Engine options"

	return group
}
