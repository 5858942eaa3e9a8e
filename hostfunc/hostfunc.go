package hostfunc

import (
	"context"
	"sort"
	"sync"
)

// Func is the shape of every host function exposed to scripts. Scripts
// call a host function with a single table argument, which arrives here
// as a map; the returned value is converted back into a script value.
type Func func(ctx context.Context, args map[string]any) (any, error)

// Registry holds the host functions available to a script run.
type Registry struct {
	mu    sync.RWMutex
	funcs map[string]Func
}

func NewRegistry() *Registry {
	return &Registry{funcs: make(map[string]Func)}
}

func (r *Registry) Register(name string, fn Func) {
	r.mu.Lock()
	r.funcs[name] = fn
	r.mu.Unlock()
}

func (r *Registry) Get(name string) (Func, bool) {
	r.mu.RLock()
	fn, ok := r.funcs[name]
	r.mu.RUnlock()
	return fn, ok
}

// List returns the registered names in sorted order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.funcs))
	for name := range r.funcs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// All returns a snapshot of the registered functions.
func (r *Registry) All() map[string]Func {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]Func, len(r.funcs))
	for name, fn := range r.funcs {
		out[name] = fn
	}
	return out
}
