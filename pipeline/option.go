package pipeline

import "github.com/ardnew/fxc/log"

// Option configures an [Executor].
type Option func(*config)

type config struct {
	logger log.Logger
	width  int
	height int
}

// Default viewport size.
const (
	DefaultWidth  = 1280
	DefaultHeight = 720
)

func makeConfig(opts ...Option) config {
	cfg := config{width: DefaultWidth, height: DefaultHeight}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	return cfg
}

// WithLogger sets the executor's logger.
func WithLogger(logger log.Logger) Option {
	return func(c *config) { c.logger = logger }
}

// WithSize sets the initial viewport size.
func WithSize(width, height int) Option {
	return func(c *config) {
		if width > 0 && height > 0 {
			c.width, c.height = width, height
		}
	}
}
