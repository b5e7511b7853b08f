package graph

import (
	"github.com/ardnew/fxc/effect"
	"github.com/ardnew/fxc/log"
)

// Option configures expansion.
type Option func(*config)

type shaderKey struct {
	temp    int
	program string
}

type config struct {
	logger    log.Logger
	overrides map[shaderKey]effect.Program
}

func makeConfig(opts ...Option) config {
	cfg := config{overrides: make(map[shaderKey]effect.Program)}
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

// WithShaderOverride replaces the named program of the step with the
// given temp index. The replacement is registered under an id unique to
// that step, so other instances of the same effect keep the catalog
// shader.
func WithShaderOverride(temp int, program string, p effect.Program) Option {
	return func(c *config) { c.overrides[shaderKey{temp, program}] = p }
}
