// Package hostfunc provides host function implementations for embedded
// Lua scripts.
//
// Host functions are Go functions callable from script code, giving
// controlled access to external resources like HTTP, the filesystem,
// and key-value storage. Scripts have no implicit access to system
// resources; each capability must be explicitly enabled through a
// [Registry] and its configuration.
//
// # Registry
//
// The [Registry] manages available host functions. Scripts call a host
// function with one table argument; it arrives in Go as a map:
//
//	registry := hostfunc.NewRegistry()
//	registry.Register("greet", func(ctx context.Context, args map[string]any) (any, error) {
//	    name, _ := args["name"].(string)
//	    return "hello " + name, nil
//	})
//
// # Built-in Capabilities
//
// HTTP: allowlist-restricted network access via [HTTP] and [HTTPConfig].
//
//	http := hostfunc.NewHTTP(hostfunc.HTTPConfig{
//	    AllowedHosts: []string{"api.example.com"},
//	})
//	registry.Register("http_request", http.Request)
//
// Filesystem: mount-based access via [FS], [Mount], and [MountMode].
//
//	fs := hostfunc.NewFS([]hostfunc.Mount{
//	    {VirtualPath: "/data", HostPath: "./input", Mode: hostfunc.MountReadOnly},
//	})
//	registry.Register("fs_read", fs.Read)
//
// Key-value store: bounded in-memory storage via [KVStore] and [KVConfig].
//
//	kv := hostfunc.NewKVStore(hostfunc.DefaultKVConfig())
//	registry.Register("kv_get", kv.Get)
//	registry.Register("kv_set", kv.Set)
//
// # Security Model
//
// All host functions follow the principle of least privilege. HTTP
// requests are limited to explicitly allowed hosts, filesystem access
// is restricted to mounted paths with per-mount permissions, and every
// capability carries size limits.
//
// See the executor package for higher-level APIs that wire these
// capabilities into script runs.
package hostfunc
