// Package cli contains the command line interface for fxc.
//
// # Usage
//
//	fxc [flags] <command> [args]
//
// Commands:
//   - check:   report diagnostics of a program
//   - fmt:     reformat a program, optionally overriding arguments
//   - graph:   print the render graph as YAML or JSON
//   - run:     execute frames against the recording backend
//   - catalog: list effects
//   - init:    write the configuration file
//   - repl:    live-code a program (the default command)
//
// # Configuration
//
// Flags may be set in a YAML file at config.yaml under the user config
// directory (e.g. $XDG_CONFIG_HOME/fxc/config.yaml) or through environment
// variables prefixed FXC_ (e.g. FXC_LOG_LEVEL). Command-line flags take
// precedence. Keys in the file are flag names with hyphens or underscores:
//
//	log-level: debug
//	width: 1920
//	include:
//	  - ~/effects/extra.yaml
//
// Catalogs in the effects directory under the configuration directory
// (--effects) are installed before any --include file.
//
// # Logging Options
//
//   - --log-level: Set minimum log level (trace, debug, info, warn, error)
//   - --log-format: Set log output format (json, text)
//   - --log-file: Append log records to a file, keeping them out of the REPL
//   - --log-time-layout: Set timestamp format (RFC3339, RFC3339Nano, etc.)
//   - --log-caller: Include caller information in log output
//   - --log-pretty: Colorize log output
//
// # Profiling Options
//
// Profiling is only available when built with the pprof build tag:
//
//	go build -tags pprof -o fxc .
//
//   - --pprof-mode: Enable profiling (allocs, block, clock, cpu, goroutine,
//     heap, mem, mutex, thread, trace)
//   - --pprof-dir: Set profile output directory
//
// While profiling, frames and passes carry pprof labels (see package
// profile).
//
// # Examples
//
//	# Check a program with debug logging
//	fxc --log-level=debug check plasma.fx
//
//	# Set an argument of the second step and rewrite the file
//	fxc fmt -w --set 1.scale=4 plasma.fx
//
//	# CPU profile of a hundred frames
//	fxc --pprof-mode=cpu run -n 100 plasma.fx
package cli
