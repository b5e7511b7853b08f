// Package log provides a concurrency-safe simplified logging interface
// based on [log/slog].
//
// Loggers are values configured at creation time with functional options:
//
//	logger := log.Make(os.Stderr,
//		log.WithLevel(log.LevelDebug),
//		log.WithFormat(log.FormatText))
//	logger.Info("compile complete", slog.Int("steps", 4))
//
// The zero [Logger] discards every record, so library packages can hold a
// Logger field without any setup and callers opt in with a WithLogger
// option.
//
// A process-wide default logger is reachable through the package-level
// functions ([Info], [DebugContext], ...) and reconfigured with [Config].
//
// # Levels
//
// [LevelTrace] sits below [LevelDebug] and is used for per-pass and
// per-token detail. Messages below the configured level are discarded.
package log
