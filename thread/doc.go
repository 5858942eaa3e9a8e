// Package thread wraps one Lua VM instance in a safe lifecycle and
// calling-convention layer.
//
// # Overview
//
// A Thread owns exactly one VM state: construction installs the fatal
// hook and verifies the engine's protocol version before the Thread is
// handed out, and Close tears the state down exactly once. The VM's
// interpreter, compiler, and garbage collector belong to the engine
// (gopher-lua) and are consumed only through its documented entry
// points.
//
// # Calling convention
//
// Arguments and results cross the boundary through the VM's shared value
// stack. A Caller stages one invocation: a confirmed callable plus
// pushed arguments, executed with a protected call that always returns
// control to the host.
//
//	t, err := thread.New(thread.WithLibraries(thread.LibBase))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer t.Close()
//
//	caller, err := t.CallerLoad([]byte(`return 6 * 7`), "answer", thread.ModeText)
//	if err != nil {
//	    log.Fatal(err) // *thread.Error, Kind Syntax
//	}
//	results, err := caller.Call(1)
//	if err != nil {
//	    log.Fatal(err) // *thread.Error, Kind Runtime
//	}
//	n, _ := results.Int(0) // 42
//
// # Errors
//
// Every engine status converts to a *Error at the call site that
// produced it; host panics inside bound functions surface as *PanicError
// and are never conflated with scripted errors.
//
// # Concurrency
//
// The wrapped VM is single-threaded and non-reentrant. One caller at a
// time per Thread; Borrows are scoped to the callback that received
// them. None of this is runtime-checked.
package thread
