package engine

import (
	"github.com/ardnew/fxc/effect"
	"github.com/ardnew/fxc/lang"
	"github.com/ardnew/fxc/log"
	"github.com/ardnew/fxc/registry"
)

// Option configures an [Engine].
type Option func(*config)

type config struct {
	logger   log.Logger
	registry *registry.Registry
	catalog  *effect.Catalog
	width    int
	height   int
	// strict rejects programs with expansion errors or error diagnostics.
	strict bool
	lang   []lang.Option
}

func makeConfig(opts ...Option) config {
	var cfg config
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	return cfg
}

// WithLogger sets the logger passed to every stage.
func WithLogger(logger log.Logger) Option {
	return func(c *config) { c.logger = logger }
}

// WithRegistry uses reg for name resolution. It should be the registry
// the catalog was installed into.
func WithRegistry(reg *registry.Registry) Option {
	return func(c *config) { c.registry = reg }
}

// WithCatalog uses catalog for effect descriptors instead of the
// built-in effects.
func WithCatalog(catalog *effect.Catalog) Option {
	return func(c *config) { c.catalog = catalog }
}

// WithSize sets the initial viewport size.
func WithSize(width, height int) Option {
	return func(c *config) { c.width, c.height = width, height }
}

// WithStrict makes Recompile reject programs with error diagnostics or
// expansion errors instead of running the best-effort result.
func WithStrict(strict bool) Option {
	return func(c *config) { c.strict = strict }
}

// WithLangOptions passes options to the compiler.
func WithLangOptions(opts ...lang.Option) Option {
	return func(c *config) { c.lang = append(c.lang, opts...) }
}
