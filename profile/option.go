//go:build pprof

package profile

import (
	"github.com/pkg/profile"

	"github.com/ardnew/fxc/pkg"
)

// Option applies a configuration option to control.
type Option func(control) control

// apply applies multiple options to a control.
func apply(c control, opts ...Option) control {
	for _, opt := range opts {
		c = opt(c)
	}

	return c
}

// newControl creates a new control with the provided options.
func newControl(opts ...Option) control {
	return apply(control{}, opts...)
}

func withMode(m string) Option {
	return func(c control) control {
		if fn, ok := mode[m]; ok {
			c.mode = append(c.mode, fn)
		}

		return c
	}
}

// withPath writes profiles to p, or to the user profile directory when p
// is empty.
func withPath(p string) Option {
	if p == "" {
		p = pkg.ProfileDir()
	}

	return func(c control) control {
		c.mode = append(c.mode, profile.ProfilePath(p))

		return c
	}
}

func withQuiet(v bool) Option {
	return func(c control) control {
		if v {
			c.mode = append(c.mode, profile.Quiet)
		}

		return c
	}
}
