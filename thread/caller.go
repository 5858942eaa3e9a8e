package thread

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	lua "github.com/yuin/gopher-lua"
)

// MultRet requests all results from a protected call.
const MultRet = lua.MultRet

// Caller represents one logical invocation: a callable on top of the
// stack with zero or more arguments pending. It moves through three
// states: building (Push* accepted), invoked (Call executed, Results
// readable), consumed. A Caller is only constructed once the stack-top
// value is confirmed, or structurally guaranteed, callable.
type Caller struct {
	st      *state
	fnIndex int // stack index of the callable
	nargs   int
	invoked bool
}

// CallerLoad compiles src under chunkName and mode and prepares one
// invocation of the resulting chunk. On failure the error is classified
// and no Caller is produced.
func (s *state) CallerLoad(src []byte, chunkName string, mode LoadingMode) (*Caller, error) {
	fn, err := s.loadChunk(src, chunkName, mode)
	if err != nil {
		return nil, err
	}
	s.l.Push(fn)
	return s.callerStack(), nil
}

// CallerChunk prepares one invocation of a precompiled Chunk.
func (s *state) CallerChunk(c *Chunk) *Caller {
	s.l.Push(s.l.NewFunctionFromProto(c.proto))
	return s.callerStack()
}

// CallerGlobal prepares an invocation of the function bound under name
// in the global table. The lookup is raw (non-meta), so resolution never
// re-enters script code. Returns nil, with no error, when the name is
// unbound or bound to a non-function: both are expected, non-exceptional
// outcomes.
func (s *state) CallerGlobal(name string) *Caller {
	fn, ok := s.Global(name).(*lua.LFunction)
	if !ok {
		return nil
	}
	s.l.Push(fn)
	return s.callerStack()
}

// callerStack builds a Caller for the value currently on top of the
// stack. The caller must have established callability by its own means.
func (s *state) callerStack() *Caller {
	return &Caller{st: s, fnIndex: s.l.GetTop()}
}

// PushValue appends v to the pending arguments. Arguments are pushed
// strictly in order and never displace the callable.
func (c *Caller) PushValue(v lua.LValue) *Caller {
	c.st.l.Push(v)
	c.nargs++
	return c
}

// PushNil appends a nil argument.
func (c *Caller) PushNil() *Caller { return c.PushValue(lua.LNil) }

// PushBool appends a boolean argument.
func (c *Caller) PushBool(b bool) *Caller { return c.PushValue(lua.LBool(b)) }

// PushInt appends an integer argument.
func (c *Caller) PushInt(n int64) *Caller { return c.PushValue(lua.LNumber(n)) }

// PushNumber appends a float argument.
func (c *Caller) PushNumber(f float64) *Caller { return c.PushValue(lua.LNumber(f)) }

// PushString appends a string argument.
func (c *Caller) PushString(s string) *Caller { return c.PushValue(lua.LString(s)) }

// Call issues the protected call with the arguments pushed so far,
// requesting nresults results (MultRet for all). Control always returns
// to the host: on failure the error is classified, the stack is restored
// to the pre-call depth, and the Caller yields no results. On success
// the results are exposed as a positional view starting at the pre-call
// depth.
func (c *Caller) Call(nresults int) (*Results, error) {
	if c.invoked {
		return nil, errors.New("thread: caller already invoked")
	}
	c.invoked = true
	base := c.fnIndex - 1 // depth before the callable was pushed
	if err := c.st.l.PCall(c.nargs, nresults, nil); err != nil {
		return nil, c.st.classify(err)
	}
	return &Results{st: c.st, base: base, n: c.st.l.GetTop() - base}, nil
}

// Drop abandons a building Caller, restoring the stack to its pre-call
// depth. A no-op after Call.
func (c *Caller) Drop() {
	if c.invoked {
		return
	}
	c.invoked = true
	c.st.l.SetTop(c.fnIndex - 1)
}

// Results is a positional view of a protected call's results. Index 0 is
// the first result; indexing past the returned arity is an error, not
// undefined behavior. Conversions follow the VM's coercion rules.
type Results struct {
	st   *state
	base int
	n    int
}

// Len returns the number of results.
func (r *Results) Len() int { return r.n }

// Value returns the i-th result unconverted.
func (r *Results) Value(i int) (lua.LValue, error) {
	if i < 0 || i >= r.n {
		return nil, fmt.Errorf("thread: result index %d out of range (%d results)", i, r.n)
	}
	return r.st.l.Get(r.base + 1 + i), nil
}

// Bool converts the i-th result using the VM's truthiness rule: only
// nil and false are false.
func (r *Results) Bool(i int) (bool, error) {
	v, err := r.Value(i)
	if err != nil {
		return false, err
	}
	return lua.LVAsBool(v), nil
}

// Int converts the i-th result to an integer, truncating toward zero.
func (r *Results) Int(i int) (int64, error) {
	f, err := r.Float(i)
	if err != nil {
		return 0, err
	}
	return int64(f), nil
}

// Float converts the i-th result to a float. Numbers convert directly;
// strings convert when they parse as numbers, per the VM's coercion.
func (r *Results) Float(i int) (float64, error) {
	v, err := r.Value(i)
	if err != nil {
		return 0, err
	}
	switch val := v.(type) {
	case lua.LNumber:
		return float64(val), nil
	case lua.LString:
		f, perr := strconv.ParseFloat(strings.TrimSpace(string(val)), 64)
		if perr != nil {
			return 0, fmt.Errorf("thread: result %d (%q) is not a number", i, string(val))
		}
		return f, nil
	default:
		return 0, fmt.Errorf("thread: result %d (%s) is not a number", i, v.Type())
	}
}

// String converts the i-th result to text. Strings convert directly and
// numbers format, per the VM's coercion; other types are an error.
func (r *Results) String(i int) (string, error) {
	v, err := r.Value(i)
	if err != nil {
		return "", err
	}
	if !lua.LVCanConvToString(v) {
		return "", fmt.Errorf("thread: result %d (%s) is not a string", i, v.Type())
	}
	return lua.LVAsString(v), nil
}

// Pop discards the results, restoring the stack to the pre-call depth.
// The view is empty afterwards.
func (r *Results) Pop() {
	r.st.l.SetTop(r.base)
	r.n = 0
}
