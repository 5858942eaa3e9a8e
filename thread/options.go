package thread

// Option configures a Thread at construction time.
type Option func(*config)

type config struct {
	callStackSize    int
	registrySize     int
	registryMaxSize  int
	registryGrowStep int
	minimizeStack    bool
	goStackTrace     bool
	libraries        []Library
}

func defaultConfig() config {
	// Zero sizes mean the engine's defaults; no libraries means zero
	// capabilities.
	return config{}
}

// WithCallStackSize fixes the VM call-stack depth. This bounds recursion
// and the host memory the call stack pins.
func WithCallStackSize(n int) Option {
	return func(c *config) { c.callStackSize = n }
}

// WithRegistrySize sets the initial size of the VM value registry, the
// stack all values live on.
func WithRegistrySize(n int) Option {
	return func(c *config) { c.registrySize = n }
}

// WithRegistryMaxSize caps registry growth. Scripts that need more fail
// with a runtime error instead of growing host memory without bound.
func WithRegistryMaxSize(n int) Option {
	return func(c *config) { c.registryMaxSize = n }
}

// WithRegistryGrowStep sets how many slots the registry grows by when it
// fills.
func WithRegistryGrowStep(n int) Option {
	return func(c *config) { c.registryGrowStep = n }
}

// WithMinimalStackMemory trades call speed for releasing call-stack
// frames eagerly. Useful for hosts running many idle Threads.
func WithMinimalStackMemory() Option {
	return func(c *config) { c.minimizeStack = true }
}

// WithGoStackTrace includes the Go stack in messages for errors that
// originate in host functions.
func WithGoStackTrace() Option {
	return func(c *config) { c.goStackTrace = true }
}

// WithLibraries opens the given standard libraries at construction, in
// order. Construction fails if a library loader fails.
func WithLibraries(libs ...Library) Option {
	return func(c *config) { c.libraries = append(c.libraries, libs...) }
}

// WithAllLibraries opens every standard library.
func WithAllLibraries() Option {
	return WithLibraries(AllLibraries()...)
}
