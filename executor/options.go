package executor

import (
	"time"

	"github.com/caffeineduck/luaru/hostfunc"
	"github.com/caffeineduck/luaru/thread"
)

// Option configures a single run.
type Option func(*runConfig)

type runConfig struct {
	timeout    time.Duration
	libraries  []thread.Library
	kvStore    *hostfunc.KVStore
	httpConfig hostfunc.HTTPConfig
	mounts     []hostfunc.Mount
	fsOptions  []hostfunc.FSOption
}

func defaultRunConfig() runConfig {
	return runConfig{
		timeout: 30 * time.Second,
	}
}

// WithTimeout sets the maximum execution time. Zero disables the limit.
func WithTimeout(d time.Duration) Option {
	return func(c *runConfig) {
		c.timeout = d
	}
}

// WithRunLibraries overrides the standard libraries opened for this run.
func WithRunLibraries(libs ...thread.Library) Option {
	return func(c *runConfig) {
		c.libraries = libs
	}
}

// WithAllowedHosts enables http_request and http_get, restricted to the
// given hosts.
func WithAllowedHosts(hosts []string) Option {
	return func(c *runConfig) {
		c.httpConfig.AllowedHosts = hosts
	}
}

// WithHTTPConfig enables HTTP access with full control over limits.
func WithHTTPConfig(cfg hostfunc.HTTPConfig) Option {
	return func(c *runConfig) {
		c.httpConfig = cfg
	}
}

// WithKV enables the kv_* functions backed by a fresh bounded store.
func WithKV(cfg hostfunc.KVConfig) Option {
	return func(c *runConfig) {
		c.kvStore = hostfunc.NewKVStore(cfg)
	}
}

// WithKVStore enables the kv_* functions backed by an existing store,
// for persistence across runs.
func WithKVStore(kv *hostfunc.KVStore) Option {
	return func(c *runConfig) {
		c.kvStore = kv
	}
}

// Mount permission modes (re-exported from hostfunc for convenience).
const (
	MountReadOnly        = hostfunc.MountReadOnly
	MountReadWrite       = hostfunc.MountReadWrite
	MountReadWriteCreate = hostfunc.MountReadWriteCreate
)

// WithMount adds a filesystem mount point with the given permissions
// and enables the fs_* functions. The virtual path is what scripts see.
//
// Examples:
//
//	executor.WithMount("/data", "./input", executor.MountReadOnly)
//	executor.WithMount("/output", "./results", executor.MountReadWrite)
//	executor.WithMount("/workspace", "./work", executor.MountReadWriteCreate)
func WithMount(virtualPath, hostPath string, mode hostfunc.MountMode) Option {
	return func(c *runConfig) {
		c.mounts = append(c.mounts, hostfunc.Mount{
			VirtualPath: virtualPath,
			HostPath:    hostPath,
			Mode:        mode,
		})
	}
}

// WithFSMaxFileSize caps file sizes for fs_read and fs_write.
func WithFSMaxFileSize(size int64) Option {
	return func(c *runConfig) {
		c.fsOptions = append(c.fsOptions, hostfunc.WithMaxFileSize(size))
	}
}

// WithFSMaxListEntries caps directory listing size for fs_list.
func WithFSMaxListEntries(n int) Option {
	return func(c *runConfig) {
		c.fsOptions = append(c.fsOptions, hostfunc.WithMaxListEntries(n))
	}
}

// ExecutorOption configures the Executor at creation time.
type ExecutorOption func(*executorConfig)

type executorConfig struct {
	threadOpts []thread.Option
	libraries  []thread.Library
	precompile map[string]string
}

func defaultExecutorConfig() executorConfig {
	return executorConfig{}
}

// WithThreadOptions applies VM construction options to every run, for
// tuning registry and call stack sizing.
//
// Examples:
//
//	executor.New(registry, executor.WithThreadOptions(
//	    thread.WithRegistryMaxSize(1 << 16),
//	    thread.WithCallStackSize(120),
//	))
func WithThreadOptions(opts ...thread.Option) ExecutorOption {
	return func(c *executorConfig) {
		c.threadOpts = append(c.threadOpts, opts...)
	}
}

// WithLibraries sets the default standard libraries opened for every
// run. Unset, runs open the safe subset.
func WithLibraries(libs ...thread.Library) ExecutorOption {
	return func(c *executorConfig) {
		c.libraries = libs
	}
}

// WithPrecompiled compiles chunks at Executor creation time, moving the
// parse cost to startup. The chunks are available to RunChunk via
// Compile with the same name.
func WithPrecompiled(chunks map[string]string) ExecutorOption {
	return func(c *executorConfig) {
		if c.precompile == nil {
			c.precompile = make(map[string]string, len(chunks))
		}
		for name, code := range chunks {
			c.precompile[name] = code
		}
	}
}
