package thread

import (
	"context"

	lua "github.com/yuin/gopher-lua"
)

// ResumeState reports what a coroutine did when resumed.
type ResumeState int

const (
	// ResumeYield: the coroutine suspended cooperatively; resume again
	// to continue it.
	ResumeYield ResumeState = iota
	// ResumeDone: the coroutine returned.
	ResumeDone
	// ResumeError: the coroutine raised; the classified error
	// accompanies this state.
	ResumeError
)

// Coroutine is a VM-native cooperative thread sharing the owner's
// globals. Suspension is the engine's own yield/resume primitive; this
// wrapper exposes it without introducing any scheduling of its own.
type Coroutine struct {
	co     *lua.LState
	cancel context.CancelFunc
}

// NewCoroutine creates a coroutine state derived from t. Close it when
// done; it must not outlive its Thread.
func (t *Thread) NewCoroutine() *Coroutine {
	co, cancel := t.l.NewThread()
	return &Coroutine{co: co, cancel: cancel}
}

// Close releases the coroutine's context. Safe to call more than once.
func (c *Coroutine) Close() {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

// Resume drives co until it yields, returns, or raises. The values are
// the yielded or returned results; on ResumeError they are nil and err
// carries the classified error.
func (t *Thread) Resume(co *Coroutine, fn *lua.LFunction, args ...lua.LValue) (ResumeState, []lua.LValue, error) {
	st, err, values := t.l.Resume(co.co, fn, args...)
	switch st {
	case lua.ResumeYield:
		return ResumeYield, values, nil
	case lua.ResumeOK:
		return ResumeDone, values, nil
	default:
		return ResumeError, nil, t.classify(err)
	}
}
