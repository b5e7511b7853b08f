package profile

// Config functions return all supported pprof configuration parameters.
type Config func() (mode, path string, quiet bool)

// New returns a Config with every option applied in order, starting from
// a disabled profiler.
func New(opts ...func(Config) Config) Config {
	c := Config(func() (string, string, bool) { return "", "", false })

	for _, opt := range opts {
		c = opt(c)
	}

	return c
}

// Start initializes the profiler and returns an interface for stopping it.
// While the profiler runs, frames and passes carry pprof labels (see
// [EnableLabels]).
//
// Mode specifies the profiler mode to use, and path specifies the output
// directory where profiling data will be written. An empty path writes to
// [pkg.ProfileDir].
//
// If build tag pprof or the mode are unset, then Start returns a no-op
// implementation.
// Both Start and Stop are always safely callable.
func (c Config) Start() interface{ Stop() } {
	mode, path, quiet := c()

	if mode == "" {
		return ignore{}
	}

	p := start(mode, path, quiet)
	if _, ok := p.(ignore); ok {
		return p
	}

	return &running{profiler: p, disable: EnableLabels()}
}

// WithMode returns a functional option for setting a profiler's mode.
func WithMode(mode string) func(Config) Config {
	return func(c Config) Config {
		_, path, quiet := c()

		return func() (string, string, bool) {
			return mode, path, quiet
		}
	}
}

// WithPath returns a functional option for setting a profiler's output path.
func WithPath(path string) func(Config) Config {
	return func(c Config) Config {
		mode, _, quiet := c()

		return func() (string, string, bool) {
			return mode, path, quiet
		}
	}
}

// WithQuiet returns a functional option for setting a profiler's quiet flag.
func WithQuiet(quiet bool) func(Config) Config {
	return func(c Config) Config {
		mode, path, _ := c()

		return func() (string, string, bool) {
			return mode, path, quiet
		}
	}
}

type running struct {
	profiler interface{ Stop() }
	disable  func()
}

func (r *running) Stop() {
	r.disable()
	r.profiler.Stop()
}

type ignore struct{}

func (ignore) Stop() {}
