package executor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/caffeineduck/luaru/hostfunc"
	"github.com/caffeineduck/luaru/thread"
)

// ErrExecutorClosed is returned by Run after Close.
var ErrExecutorClosed = errors.New("executor closed")

// Result holds the output and metadata from a script run.
type Result struct {
	Output   string
	Duration time.Duration
	Error    error
}

// Executor runs scripts in throwaway VM instances and caches compiled
// chunks. A single Executor is safe for concurrent use; each run gets
// its own VM.
type Executor struct {
	registry *hostfunc.Registry
	cfg      executorConfig
	compiled map[string]*thread.Chunk
	mu       sync.RWMutex
	closed   bool
}

// New creates an Executor with the given host function registry. The
// registry's functions are bound into every run; nil means no host
// functions beyond the built-ins.
func New(registry *hostfunc.Registry, opts ...ExecutorOption) (*Executor, error) {
	cfg := defaultExecutorConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	e := &Executor{
		registry: registry,
		cfg:      cfg,
		compiled: make(map[string]*thread.Chunk),
	}

	for name, code := range cfg.precompile {
		if _, err := e.Compile(name, code); err != nil {
			return nil, fmt.Errorf("precompile %s: %w", name, err)
		}
	}

	return e, nil
}

// Compile compiles code once under name and caches the result. Later
// calls with the same name return the cached chunk without recompiling.
func (e *Executor) Compile(name, code string) (*thread.Chunk, error) {
	e.mu.RLock()
	if c, ok := e.compiled[name]; ok {
		e.mu.RUnlock()
		return c, nil
	}
	e.mu.RUnlock()

	e.mu.Lock()
	defer e.mu.Unlock()

	if c, ok := e.compiled[name]; ok {
		return c, nil
	}

	c, err := thread.CompileChunk([]byte(code), name)
	if err != nil {
		return nil, err
	}
	e.compiled[name] = c
	return c, nil
}

// Run compiles and executes code in a fresh VM.
func (e *Executor) Run(ctx context.Context, code string, opts ...Option) Result {
	start := time.Now()

	chunk, err := thread.CompileChunk([]byte(code), "main")
	if err != nil {
		return Result{Error: err, Duration: time.Since(start)}
	}
	return e.run(ctx, chunk, start, opts)
}

// RunChunk executes a precompiled chunk in a fresh VM.
func (e *Executor) RunChunk(ctx context.Context, chunk *thread.Chunk, opts ...Option) Result {
	return e.run(ctx, chunk, time.Now(), opts)
}

func (e *Executor) run(ctx context.Context, chunk *thread.Chunk, start time.Time, opts []Option) Result {
	cfg := defaultRunConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	e.mu.RLock()
	closed := e.closed
	e.mu.RUnlock()
	if closed {
		return Result{Error: ErrExecutorClosed, Duration: time.Since(start)}
	}

	t, err := thread.New(e.threadOptions(cfg)...)
	if err != nil {
		return Result{Error: err, Duration: time.Since(start)}
	}
	defer t.Close()

	if cfg.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.timeout)
		defer cancel()
	}
	t.SetContext(ctx)

	var out capturedOutput
	bindPrint(t, &out)
	bindRegistry(t, e.buildRegistry(cfg))

	results, err := t.CallerChunk(chunk).Call(thread.MultRet)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			err = fmt.Errorf("timeout after %v", cfg.timeout)
		}
		return Result{Output: out.String(), Error: err, Duration: time.Since(start)}
	}
	results.Pop()

	return Result{Output: out.String(), Duration: time.Since(start)}
}

func (e *Executor) threadOptions(cfg runConfig) []thread.Option {
	opts := append([]thread.Option{}, e.cfg.threadOpts...)
	if len(cfg.libraries) > 0 {
		opts = append(opts, thread.WithLibraries(cfg.libraries...))
	} else if len(e.cfg.libraries) > 0 {
		opts = append(opts, thread.WithLibraries(e.cfg.libraries...))
	} else {
		opts = append(opts, thread.WithLibraries(thread.SafeLibraries()...))
	}
	return opts
}

// buildRegistry assembles the host functions for one run: the base
// registry, the built-in time_now, and whichever capabilities the run
// options enable.
func (e *Executor) buildRegistry(cfg runConfig) *hostfunc.Registry {
	registry := hostfunc.NewRegistry()
	if e.registry != nil {
		for name, fn := range e.registry.All() {
			registry.Register(name, fn)
		}
	}

	registry.Register("time_now", func(ctx context.Context, args map[string]any) (any, error) {
		return float64(time.Now().UnixNano()) / 1e9, nil
	})

	if kv := cfg.kvStore; kv != nil {
		registry.Register("kv_get", kv.Get)
		registry.Register("kv_set", kv.Set)
		registry.Register("kv_delete", kv.Delete)
		registry.Register("kv_keys", kv.Keys)
	}

	if len(cfg.httpConfig.AllowedHosts) > 0 {
		httpHandler := hostfunc.NewHTTP(cfg.httpConfig)
		registry.Register("http_request", httpHandler.Request)
		registry.Register("http_get", hostfunc.NewHTTPGet(cfg.httpConfig))
	}

	if len(cfg.mounts) > 0 {
		fs := hostfunc.NewFS(cfg.mounts, cfg.fsOptions...)
		registry.Register("fs_read", fs.Read)
		registry.Register("fs_write", fs.Write)
		registry.Register("fs_list", fs.List)
		registry.Register("fs_exists", fs.Exists)
		registry.Register("fs_mkdir", fs.Mkdir)
		registry.Register("fs_remove", fs.Remove)
		registry.Register("fs_stat", fs.Stat)
	}

	return registry
}

// bindPrint replaces the print global with one that writes to out, so
// script output is captured instead of going to the process stdout.
func bindPrint(t *thread.Thread, out *capturedOutput) {
	t.BindFunc("print", func(b *thread.Borrow) int {
		top := b.Depth()
		parts := make([]string, 0, top)
		for i := 1; i <= top; i++ {
			parts = append(parts, b.Arg(i).String())
		}
		out.WriteLine(strings.Join(parts, "\t"))
		return 0
	})
}

// bindRegistry exposes every registered host function as a global.
// Scripts call a host function with a single table argument; the host
// result comes back as a single value. A host error becomes a script
// error catchable with pcall.
func bindRegistry(t *thread.Thread, registry *hostfunc.Registry) {
	for name, fn := range registry.All() {
		name, fn := name, fn
		t.BindFunc(name, func(b *thread.Borrow) int {
			args := map[string]any{}
			if tbl, ok := b.Arg(1).(*lua.LTable); ok {
				args = tableToMap(tbl)
			}
			ctx := b.Raw().Context()
			if ctx == nil {
				ctx = context.Background()
			}
			result, err := fn(ctx, args)
			if err != nil {
				b.RaiseError("%s: %v", name, err)
			}
			b.Push(toLua(b.Raw(), result))
			return 1
		})
	}
}

// Close marks the Executor closed. Runs in flight finish; new runs
// fail with ErrExecutorClosed. Sessions created from this Executor are
// closed separately.
func (e *Executor) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	return nil
}
