package hostfunc

import (
	"context"
	"testing"
)

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	r.Register("beta", func(ctx context.Context, args map[string]any) (any, error) {
		return "b", nil
	})
	r.Register("alpha", func(ctx context.Context, args map[string]any) (any, error) {
		return "a", nil
	})

	if _, ok := r.Get("alpha"); !ok {
		t.Error("alpha should be registered")
	}
	if _, ok := r.Get("gamma"); ok {
		t.Error("gamma should not be registered")
	}

	names := r.List()
	if len(names) != 2 || names[0] != "alpha" || names[1] != "beta" {
		t.Errorf("List = %v, want [alpha beta]", names)
	}

	all := r.All()
	if len(all) != 2 {
		t.Errorf("All returned %d entries, want 2", len(all))
	}
	// The snapshot is detached from later registrations.
	r.Register("gamma", nil)
	if len(all) != 2 {
		t.Error("snapshot should not grow")
	}
}
