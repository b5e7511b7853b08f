package cli

import (
	"context"
	"log/slog"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/alecthomas/kong"

	"github.com/ardnew/fxc/log"
)

// logFormat is a custom type that configures the logger format as a side
// effect of parsing via encoding.TextUnmarshaler.
type logFormat string

// UnmarshalText implements encoding.TextUnmarshaler.
// As Kong parses the --log-format flag, this method is called, allowing us
// to configure the logger early enough to affect error messages during parsing.
func (f *logFormat) UnmarshalText(text []byte) error {
	*f = logFormat(text)
	log.Config(log.WithFormat(log.ParseFormat(string(*f))))

	return nil
}

// logLevel is a custom type that configures the logger level as a side
// effect of parsing via encoding.TextUnmarshaler.
type logLevel string

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *logLevel) UnmarshalText(text []byte) error {
	*l = logLevel(text)
	log.Config(log.WithLevel(log.ParseLevel(string(*l))))

	return nil
}

type logConfig struct {
	Level      logLevel  `default:"info"    enum:"${logLevelEnum}"       help:"Set log level."`
	Format     logFormat `default:"json"    enum:"json,text"             help:"Set log format."`
	File       string    `                                               help:"Append log records to file instead of stderr." placeholder:"FILE" type:"path"`
	TimeLayout string    `default:"RFC3339"                              help:"Set timestamp format."`
	Caller     bool      `default:"false"                                help:"Include caller information."       negatable:""`
	Pretty     bool      `default:"true"                                 help:"Enable colorized pretty printing." negatable:""`
}

func (*logConfig) vars() kong.Vars {
	return kong.Vars{
		"logLevelEnum": strings.Join(slices.Collect(log.Levels()), ","),
	}
}

func (*logConfig) group() kong.Group {
	var group kong.Group

	group.Key = "log"
	group.Title = "Logging options"

	return group
}

// start applies every parsed logger setting. With a log file, records are
// appended to it without color so that they stay out of the REPL screen;
// stop restores stderr and closes the file.
func (f *logConfig) start(ctx context.Context) (stop func(), err error) {
	stop = func() {}
	pretty := f.Pretty

	opts := []log.Option{
		log.WithLevel(log.ParseLevel(string(f.Level))),
		log.WithFormat(log.ParseFormat(string(f.Format))),
		log.WithTimeLayout(f.TimeLayout),
		log.WithCaller(f.Caller),
	}

	if f.File != "" {
		file, err := os.OpenFile(f.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
		if err != nil {
			return stop, ErrLogFile.With(slog.String("file", f.File)).Wrap(err)
		}

		pretty = false
		opts = append(opts, log.WithOutput(file))
		stop = func() {
			log.Config(log.WithOutput(os.Stderr))
			_ = file.Close()
		}
	}

	log.Config(append(opts, log.WithPretty(pretty))...)

	log.DebugContext(ctx, "logger initialized",
		slog.String("level", string(f.Level)),
		slog.String("format", string(f.Format)),
		slog.String("file", f.File),
		slog.String("time", f.TimeLayout),
		slog.Bool("caller", f.Caller),
		slog.Bool("pretty", pretty),
	)

	return stop, nil
}

// scan performs an early pass over command-line arguments to extract and
// apply logger configuration before Kong begins parsing, so the logger is
// configured regardless of flag position on the command line.
//
// The level and format flags also configure the logger through
// encoding.TextUnmarshaler during parsing; the boolean flags do not.
func (f *logConfig) scan(args []string) {
	for i := 0; i < len(args); i++ {
		flag, value, assigned := strings.Cut(args[i], "=")

		name, negate := "", false

		switch {
		case strings.HasPrefix(flag, "--log-"):
			name = strings.TrimPrefix(flag, "--log-")
		case strings.HasPrefix(flag, "--no-log-"):
			name, negate = strings.TrimPrefix(flag, "--no-log-"), true
		default:
			continue
		}

		switch name {
		case "level", "format":
			if negate {
				continue
			}

			// Consume the next argument as value unless assigned with =.
			if !assigned {
				if i+1 >= len(args) || args[i+1] == "" || args[i+1][0] == '-' {
					continue
				}

				i++
				value = args[i]
			}

			if name == "level" {
				_ = f.Level.UnmarshalText([]byte(value))
			} else {
				_ = f.Format.UnmarshalText([]byte(value))
			}

		case "pretty", "caller":
			v := true

			if assigned {
				b, err := strconv.ParseBool(value)
				if err != nil {
					continue
				}

				v = b
			}

			v = v != negate

			if name == "pretty" {
				f.Pretty = v
				log.Config(log.WithPretty(v))
			} else {
				f.Caller = v
				log.Config(log.WithCaller(v))
			}
		}
	}
}
