package thread

import (
	"context"

	lua "github.com/yuin/gopher-lua"
)

// luaProtocolVersion is the protocol this wrapper is built against. The
// engine's constants (type tags, pseudo-indices, statuses) are consumed
// from its package and must match this version's published values.
const luaProtocolVersion = "Lua 5.1"

// Thread owns one VM state end-to-end. It is not safe for concurrent
// use: the wrapped VM is single-threaded and non-reentrant, so callers
// must serialize access to a Thread and everything derived from it.
type Thread struct {
	state
	version string
	closed  bool
	inFatal bool
}

// New creates a Thread. The fatal-error hook is installed before any
// script can run, then the engine's version is verified through a
// protected self-call; on any failure the state is torn down and no
// Thread is produced, so a partially-constructed owner never exists.
func New(opts ...Option) (*Thread, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	l := lua.NewState(lua.Options{
		CallStackSize:       cfg.callStackSize,
		RegistrySize:        cfg.registrySize,
		RegistryMaxSize:     cfg.registryMaxSize,
		RegistryGrowStep:    cfg.registryGrowStep,
		SkipOpenLibs:        true,
		IncludeGoStackTrace: cfg.goStackTrace,
		MinimizeStackMemory: cfg.minimizeStack,
	})

	t := &Thread{state: state{l: l}}
	l.Panic = t.fatal

	if err := t.openLibraries(cfg.libraries); err != nil {
		l.Close()
		return nil, err
	}
	if err := t.checkVersion(); err != nil {
		l.Close()
		return nil, err
	}
	t.version = lua.LuaVersion
	return t, nil
}

// Spawn creates a Thread, runs f with it, and closes the Thread when f
// returns. The Thread must not escape f.
func Spawn(f func(*Thread) error, opts ...Option) error {
	t, err := New(opts...)
	if err != nil {
		return err
	}
	defer t.Close()
	return f(t)
}

// checkVersion proves, through the protected-call machinery itself, that
// the engine speaks the protocol version this wrapper targets.
func (t *Thread) checkVersion() error {
	check := t.l.NewFunction(func(l *lua.LState) int {
		if lua.LuaVersion != luaProtocolVersion {
			l.RaiseError("engine speaks %s, bindings target %s", lua.LuaVersion, luaProtocolVersion)
		}
		return 0
	})
	t.l.Push(check)
	return t.classify(t.l.PCall(0, 0, nil))
}

// Version reports the engine version. Constant for the Thread's
// lifetime.
func (t *Thread) Version() string { return t.version }

// SetContext attaches ctx to the VM. Calls in flight abort with a
// runtime error once ctx is done; this is the engine's native
// cancellation mechanism, exposed rather than reimplemented.
func (t *Thread) SetContext(ctx context.Context) { t.l.SetContext(ctx) }

// ClearContext detaches any context previously attached.
func (t *Thread) ClearContext() { t.l.RemoveContext() }

// Close tears the VM down. Exactly one teardown happens over the
// Thread's lifetime; further calls are no-ops. Must not be called while
// a Caller, Results, Borrow, or Coroutine derived from this Thread is
// still in use (caller-enforced, unchecked).
func (t *Thread) Close() {
	if t.closed {
		return
	}
	t.closed = true
	t.l.Close()
}

// Closed reports whether Close has run.
func (t *Thread) Closed() bool { return t.closed }

// fatal is the hook the engine invokes when an error would otherwise
// propagate past every protected boundary. It classifies the in-flight
// error value and unwinds the host execution context with the
// structured error; it never returns into the VM. The guard keeps a
// failure during classification from recursing through the hook.
func (t *Thread) fatal(l *lua.LState) {
	if t.inFatal {
		panic(&Error{Kind: KindRuntime, Msg: "fatal handler re-entered"})
	}
	t.inFatal = true
	defer func() { t.inFatal = false }()

	s := state{l: l}
	panic(&Error{Kind: KindRuntime, Msg: s.message(l.Get(-1))})
}
