package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/caffeineduck/luaru/hostfunc"
	"github.com/caffeineduck/luaru/thread"
)

var (
	ErrSessionClosed = errors.New("session closed")
	ErrSessionBusy   = errors.New("session busy")
)

type sessionConfig struct {
	timeout    time.Duration
	libraries  []thread.Library
	kvStore    *hostfunc.KVStore
	httpConfig hostfunc.HTTPConfig
	mounts     []hostfunc.Mount
	fsOptions  []hostfunc.FSOption
}

func defaultSessionConfig() sessionConfig {
	return sessionConfig{
		timeout: 30 * time.Second,
	}
}

// SessionOption configures a Session at creation time. Capabilities
// are fixed for the session's lifetime.
type SessionOption func(*sessionConfig)

// WithSessionTimeout sets the per-Run execution limit.
func WithSessionTimeout(d time.Duration) SessionOption {
	return func(c *sessionConfig) {
		c.timeout = d
	}
}

// WithSessionLibraries overrides the standard libraries opened in the
// session's VM.
func WithSessionLibraries(libs ...thread.Library) SessionOption {
	return func(c *sessionConfig) {
		c.libraries = libs
	}
}

// WithSessionAllowedHosts enables HTTP access restricted to the given hosts.
func WithSessionAllowedHosts(hosts []string) SessionOption {
	return func(c *sessionConfig) {
		c.httpConfig.AllowedHosts = hosts
	}
}

// WithSessionHTTPConfig enables HTTP access with full control over limits.
func WithSessionHTTPConfig(cfg hostfunc.HTTPConfig) SessionOption {
	return func(c *sessionConfig) {
		c.httpConfig = cfg
	}
}

// WithSessionKV enables the kv_* functions backed by a fresh bounded store.
func WithSessionKV(cfg hostfunc.KVConfig) SessionOption {
	return func(c *sessionConfig) {
		c.kvStore = hostfunc.NewKVStore(cfg)
	}
}

// WithSessionKVStore enables the kv_* functions backed by an existing
// store, shared with other sessions or runs.
func WithSessionKVStore(kv *hostfunc.KVStore) SessionOption {
	return func(c *sessionConfig) {
		c.kvStore = kv
	}
}

// WithSessionMount adds a filesystem mount point and enables the fs_*
// functions.
func WithSessionMount(virtualPath, hostPath string, mode hostfunc.MountMode) SessionOption {
	return func(c *sessionConfig) {
		c.mounts = append(c.mounts, hostfunc.Mount{
			VirtualPath: virtualPath,
			HostPath:    hostPath,
			Mode:        mode,
		})
	}
}

// WithSessionFSMaxFileSize caps file sizes for fs_read and fs_write.
func WithSessionFSMaxFileSize(size int64) SessionOption {
	return func(c *sessionConfig) {
		c.fsOptions = append(c.fsOptions, hostfunc.WithMaxFileSize(size))
	}
}

// Session runs scripts against one persistent VM, so globals carry
// over between Run calls. A Session is not safe for concurrent Run;
// an overlapping call fails fast with ErrSessionBusy instead of
// queueing.
type Session struct {
	exec *Executor
	t    *thread.Thread
	cfg  sessionConfig
	out  capturedOutput

	mu     sync.Mutex
	execMu sync.Mutex
	closed bool
}

// NewSession creates a Session with its own VM. The Executor's base
// registry and the session's capabilities are bound once, at creation.
func (e *Executor) NewSession(opts ...SessionOption) (*Session, error) {
	cfg := defaultSessionConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	e.mu.RLock()
	closed := e.closed
	e.mu.RUnlock()
	if closed {
		return nil, ErrExecutorClosed
	}

	t, err := thread.New(e.threadOptions(runConfig{libraries: cfg.libraries})...)
	if err != nil {
		return nil, err
	}

	s := &Session{exec: e, t: t, cfg: cfg}
	bindPrint(t, &s.out)
	bindRegistry(t, e.buildRegistry(runConfig{
		kvStore:    cfg.kvStore,
		httpConfig: cfg.httpConfig,
		mounts:     cfg.mounts,
		fsOptions:  cfg.fsOptions,
	}))

	return s, nil
}

// Run executes code in the session's VM. Output is the print output of
// this call only; state changes persist into the next call.
func (s *Session) Run(ctx context.Context, code string) Result {
	start := time.Now()

	if !s.execMu.TryLock() {
		return Result{Error: ErrSessionBusy, Duration: time.Since(start)}
	}
	defer s.execMu.Unlock()

	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return Result{Error: ErrSessionClosed, Duration: time.Since(start)}
	}

	if s.cfg.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.timeout)
		defer cancel()
	}

	s.out.Reset()
	s.t.SetContext(ctx)
	defer s.t.ClearContext()

	caller, err := s.t.CallerLoad([]byte(code), "session", thread.ModeText)
	if err != nil {
		return Result{Error: err, Duration: time.Since(start)}
	}

	results, err := caller.Call(thread.MultRet)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			err = fmt.Errorf("timeout after %v", s.cfg.timeout)
		}
		return Result{Output: s.out.String(), Error: err, Duration: time.Since(start)}
	}
	results.Pop()

	return Result{Output: s.out.String(), Duration: time.Since(start)}
}

// Close tears down the session's VM. It waits for an in-flight Run to
// finish. Idempotent.
func (s *Session) Close() error {
	s.execMu.Lock()
	defer s.execMu.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.t.Close()
	return nil
}

// capturedOutput collects print output. Host functions may print from
// goroutines of their own, so writes are locked.
type capturedOutput struct {
	buf bytes.Buffer
	mu  sync.Mutex
}

func (o *capturedOutput) WriteLine(line string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.buf.WriteString(line)
	o.buf.WriteByte('\n')
}

func (o *capturedOutput) String() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.buf.String()
}

func (o *capturedOutput) Reset() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.buf.Reset()
}
