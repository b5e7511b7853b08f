package lang

import "github.com/ardnew/fxc/log"

// DefaultMaxDepth bounds expression and block nesting.
const DefaultMaxDepth = 64

// Option configures parsing, validation and unparsing.
type Option func(*config)

type config struct {
	logger   log.Logger
	maxDepth int
	suggest  bool
}

func makeConfig(opts ...Option) config {
	cfg := config{maxDepth: DefaultMaxDepth, suggest: true}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	return cfg
}

// WithLogger sets the logger for trace and debug output.
func WithLogger(logger log.Logger) Option {
	return func(c *config) { c.logger = logger }
}

// WithMaxDepth sets the maximum nesting depth. Values below 1 are ignored.
func WithMaxDepth(depth int) Option {
	return func(c *config) {
		if depth > 0 {
			c.maxDepth = depth
		}
	}
}

// WithSuggestions enables or disables "did you mean" suggestions on
// unknown-name diagnostics.
func WithSuggestions(on bool) Option {
	return func(c *config) { c.suggest = on }
}
