package cmd

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/klauspost/readahead"

	"github.com/ardnew/fxc/backend"
	"github.com/ardnew/fxc/engine"
	"github.com/ardnew/fxc/log"
	"github.com/ardnew/fxc/pipeline"
	"github.com/ardnew/fxc/pkg"
)

// ContextKey is used to store a [kong.Context] value in [context.Context].
type contextKey struct{}

// WithContext returns a new context.Context containing the given kong.Context.
func WithContext(ctx context.Context, ktx *kong.Context) context.Context {
	return context.WithValue(ctx, contextKey{}, ktx)
}

func kongContextFrom(ctx context.Context) *kong.Context {
	ktx, ok := ctx.Value(contextKey{}).(*kong.Context)
	if !ok || ktx == nil {
		return nil
	}

	return ktx
}

// Settings are the engine flags shared by every command.
type Settings struct {
	Include []string `help:"Additional effect catalog file(s)"       placeholder:"FILE" short:"I" type:"existingfile"`
	Effects string   `help:"Directory of catalogs installed first"   placeholder:"DIR"  default:"${effectDir=}" type:"path"`
	Width   int      `help:"Surface width in pixels"                 default:"1280"`
	Height  int      `help:"Surface height in pixels"                default:"720"`
	Strict  bool     `help:"Reject programs that have errors"        negatable:""`
}

type (
	settingsKey struct{}
	outputKey   struct{}
)

// WithSettings returns a new context.Context carrying the engine settings.
func WithSettings(ctx context.Context, s Settings) context.Context {
	return context.WithValue(ctx, settingsKey{}, s)
}

func settingsFrom(ctx context.Context) Settings {
	s, ok := ctx.Value(settingsKey{}).(Settings)
	if !ok {
		return Settings{Width: pipeline.DefaultWidth, Height: pipeline.DefaultHeight}
	}

	return s
}

// WithOutput returns a new context.Context directing command output to w.
// Commands write to os.Stdout otherwise.
func WithOutput(ctx context.Context, w io.Writer) context.Context {
	return context.WithValue(ctx, outputKey{}, w)
}

func outputFrom(ctx context.Context) io.Writer {
	if w, ok := ctx.Value(outputKey{}).(io.Writer); ok && w != nil {
		return w
	}

	return os.Stdout
}

// stdinSource is the special source indicator for reading from stdin.
const stdinSource = "-"

// readSource returns the program text at path, or stdin for "-".
func readSource(path string) (string, error) {
	var r io.Reader = os.Stdin

	if path != stdinSource {
		file, err := os.Open(path)
		if err != nil {
			return "", ErrReadSource.With(slog.String("file", path)).Wrap(err)
		}
		defer file.Close()

		r = file
	}

	ra := readahead.NewReader(r)
	defer ra.Close()

	data, err := io.ReadAll(ra)
	if err != nil {
		return "", ErrReadSource.With(slog.String("file", path)).Wrap(err)
	}

	return string(data), nil
}

// catalogs returns the catalog files of the effect directory followed by
// the included files, without duplicates.
func (s Settings) catalogs() ([]string, error) {
	dir, err := pkg.Catalogs(s.Effects)
	if err != nil {
		return nil, ErrCatalog.With(slog.String("dir", s.Effects)).Wrap(err)
	}

	return uniquePaths(append(dir, s.Include...)), nil
}

// newEngine builds an engine over b using the settings stored in ctx and
// installs the catalogs of the effect directory and every included
// catalog. Later options win.
func newEngine(
	ctx context.Context,
	b pipeline.Backend,
	opts ...engine.Option,
) (*engine.Engine, error) {
	s := settingsFrom(ctx)

	opts = append([]engine.Option{
		engine.WithLogger(log.Default()),
		engine.WithSize(s.Width, s.Height),
		engine.WithStrict(s.Strict),
	}, opts...)

	names, err := s.catalogs()
	if err != nil {
		return nil, err
	}

	eng, err := engine.New(ctx, b, opts...)
	if err != nil {
		return nil, err
	}

	for _, name := range names {
		if _, err := eng.InstallFile(ctx, name); err != nil {
			_ = eng.Close()

			return nil, ErrCatalog.With(slog.String("file", name)).Wrap(err)
		}
	}

	return eng, nil
}

// newRecorder returns a recording backend, wrapped with naga validation of
// WGSL programs when validate is set.
func newRecorder(validate bool) (pipeline.Backend, *backend.Recorder) {
	rec := backend.NewRecorder()
	if !validate {
		return rec, rec
	}

	return backend.NewShader(rec,
		backend.WithValidation(true),
		backend.WithShaderLogger(log.Default()),
	), rec
}

// fileKey uniquely identifies a file by its device and inode numbers.
// This handles deduplication across symlinks, absolute/relative paths, and
// special device files.
type fileKey struct {
	dev uint64
	ino uint64
}

// uniquePaths drops paths that name a file already listed, comparing
// device/inode pairs after resolving symlinks. Paths that cannot be
// resolved are kept so that loading them reports the error.
func uniquePaths(paths []string) []string {
	if len(paths) == 0 {
		return nil
	}

	out := make([]string, 0, len(paths))
	seen := make(map[fileKey]struct{})

	for _, path := range paths {
		key, ok := resolveFileKey(path)
		if !ok {
			out = append(out, path)

			continue
		}

		if _, exists := seen[key]; exists {
			continue
		}

		seen[key] = struct{}{}
		out = append(out, path)
	}

	return out
}

func resolveFileKey(path string) (fileKey, bool) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fileKey{}, false
	}

	resolved, err := filepath.EvalSymlinks(absPath)
	if err != nil {
		return fileKey{}, false
	}

	info, err := os.Stat(resolved)
	if err != nil {
		return fileKey{}, false
	}

	return makeFileKey(info)
}

// makeFileKey creates a fileKey from os.FileInfo.
// Returns false if the underlying Sys() data is not of type *syscall.Stat_t.
func makeFileKey(info os.FileInfo) (key fileKey, ok bool) {
	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return key, false
	}

	return fileKey{dev: stat.Dev, ino: stat.Ino}, true
}
