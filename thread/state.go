package thread

import (
	lua "github.com/yuin/gopher-lua"
)

// state is the operation surface shared by Thread (owning) and Borrow
// (non-owning). All access to the underlying VM handle goes through it;
// the handle is address-stable and never copied or relocated.
type state struct {
	l *lua.LState
}

// Raw returns the wrapped VM handle. The caller must not close it and
// must not use it after the owning Thread is closed.
func (s *state) Raw() *lua.LState { return s.l }

// Depth returns the current value-stack depth.
func (s *state) Depth() int { return s.l.GetTop() }

// Global fetches the value bound under name in the global table using a
// raw (non-meta) lookup, so resolution can never re-enter script code.
// Unbound names yield LNil.
func (s *state) Global(name string) lua.LValue {
	g, ok := s.l.Get(lua.GlobalsIndex).(*lua.LTable)
	if !ok {
		return lua.LNil
	}
	return g.RawGetString(name)
}

// SetGlobal binds value under name in the global table with a raw
// (non-meta) store.
func (s *state) SetGlobal(name string, value lua.LValue) {
	if g, ok := s.l.Get(lua.GlobalsIndex).(*lua.LTable); ok {
		g.RawSetString(name, value)
	}
}

// Arg returns the i-th value on the stack (1-based), LNil when absent.
// Inside a host function the arguments occupy positions 1..Depth.
func (s *state) Arg(i int) lua.LValue { return s.l.Get(i) }

// Push places v on top of the stack.
func (s *state) Push(v lua.LValue) { s.l.Push(v) }

// RaiseError raises a Lua error on this state. It unwinds into the
// nearest protected call and does not return.
func (s *state) RaiseError(format string, args ...interface{}) {
	s.l.RaiseError(format, args...)
}

// Func is a host function callable from Lua. It receives a Borrow scoped
// to the invocation; arguments are on the Borrow's stack, and the return
// value is the number of results pushed. The Borrow must not be retained
// past the call.
type Func func(b *Borrow) int

// NewFunc wraps fn as a VM function value. The wrapper is a boundary
// guard: a panic inside fn never unwinds into the VM's call machinery
// uncontained. The VM's own error signal passes through untouched; any
// other panic is converted so the surrounding protected call reports a
// *PanicError.
func (s *state) NewFunc(fn Func) *lua.LFunction {
	return s.l.NewFunction(guard(fn))
}

// BindFunc registers fn under name in the global table.
func (s *state) BindFunc(name string, fn Func) {
	s.SetGlobal(name, s.NewFunc(fn))
}

func guard(fn Func) lua.LGFunction {
	return func(l *lua.LState) (n int) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			if _, ok := r.(*lua.ApiError); ok {
				// A deliberate VM-level error raise; not a host failure.
				panic(r)
			}
			panic(&PanicError{Value: r})
		}()
		b := &Borrow{state{l: l}}
		return fn(b)
	}
}
