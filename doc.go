// Package luaru embeds a Lua virtual machine behind a safe lifecycle and
// calling-convention wrapper.
//
// # Overview
//
// luaru owns exactly one VM instance per Thread, marshals arguments and
// results across the VM's stack-based calling convention, and contains
// both VM-reported errors and host-side panics into typed outcomes.
// States start with zero capabilities: standard libraries, filesystem,
// network and other host access must be explicitly enabled.
//
// # Basic Usage
//
//	t, _ := thread.New(thread.WithLibraries(thread.SafeLibraries()...))
//	defer t.Close()
//
//	caller, _ := t.CallerLoad([]byte(`return 1 + 2`), "sum", thread.ModeText)
//	results, _ := caller.Call(1)
//	n, _ := results.Int(0) // 3
//
// # Running Untrusted Code
//
//	exec, _ := executor.New(hostfunc.NewRegistry())
//	defer exec.Close()
//
//	// Stateless execution
//	result := exec.Run(ctx, `print("hello")`)
//	fmt.Println(result.Output)
//
//	// Session with persistent state
//	session, _ := exec.NewSession()
//	session.Run(ctx, `x = 42`)
//	session.Run(ctx, `print(x)`)  // 42
//
// # Enabling Capabilities
//
//	// HTTP access
//	result := exec.Run(ctx, code,
//	    executor.WithAllowedHosts([]string{"api.example.com"}))
//
//	// Filesystem access
//	result := exec.Run(ctx, code,
//	    executor.WithMount("/data", "./input", hostfunc.MountReadOnly))
//
//	// Key-value store
//	result := exec.Run(ctx, code,
//	    executor.WithKV(hostfunc.DefaultKVConfig()))
//
// See the [thread], [executor], and [hostfunc] packages for detailed API
// documentation.
package luaru
