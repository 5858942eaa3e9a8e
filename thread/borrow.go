package thread

import (
	lua "github.com/yuin/gopher-lua"
)

// Borrow is a non-owning view of a VM state, handed to host functions
// when the VM calls back into Go. The underlying state may be the
// owner's main state or a coroutine state.
//
// A Borrow is scoped to one callback invocation. It has no Close and
// must not outlive the callback or the Thread it derives from; retaining
// one past the callback's return is undefined behavior by contract, not
// a runtime-checked error.
type Borrow struct {
	state
}

// BorrowRaw wraps an existing VM handle as a Borrow without taking
// ownership. The handle must stay alive for the Borrow's entire use.
// Intended for integrating with code that registers functions on the
// raw state directly.
func BorrowRaw(l *lua.LState) *Borrow {
	return &Borrow{state{l: l}}
}
