// Package executor provides a high-level engine for running untrusted
// Lua code with captured output and explicit capabilities.
//
// # Overview
//
// The executor compiles and caches chunks and runs each script in a
// throwaway VM, so runs cannot observe each other. It supports both
// stateless execution (single Run call) and stateful sessions
// (multiple Run calls against one persistent VM).
//
// # Basic Usage
//
//	exec, err := executor.New(hostfunc.NewRegistry())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer exec.Close()
//
//	result := exec.Run(ctx, `print("hello")`)
//	fmt.Println(result.Output)
//
// # Sessions
//
// Sessions maintain state across multiple executions:
//
//	session, err := exec.NewSession()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer session.Close()
//
//	session.Run(ctx, `x = 42`)
//	session.Run(ctx, `print(x)`) // Output: 42
//
// # Capabilities
//
// By default, scripts get the safe standard libraries and no access to
// the filesystem, network, or other system resources. Enable
// capabilities explicitly:
//
//	session, _ := exec.NewSession(
//	    executor.WithSessionAllowedHosts([]string{"api.example.com"}),
//	    executor.WithSessionMount("/data", "./input", hostfunc.MountReadOnly),
//	    executor.WithSessionKV(hostfunc.DefaultKVConfig()),
//	)
//
// Host functions appear to scripts as globals taking one table
// argument:
//
//	local body = http_get{url = "https://api.example.com/items"}.body
//	kv_set{key = "items", value = body}
package executor
