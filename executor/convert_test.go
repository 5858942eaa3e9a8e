package executor

import (
	"context"
	"testing"

	"github.com/caffeineduck/luaru/hostfunc"
)

func TestConvertArgsFromScript(t *testing.T) {
	var got map[string]any
	registry := hostfunc.NewRegistry()
	registry.Register("capture", func(ctx context.Context, args map[string]any) (any, error) {
		got = args
		return nil, nil
	})
	exec, err := New(registry)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer exec.Close()

	res := exec.Run(context.Background(), `
		capture{
			name = "cfg",
			count = 3,
			enabled = true,
			tags = {"a", "b"},
			nested = {inner = "deep"},
		}
	`)
	if res.Error != nil {
		t.Fatalf("Run: %v", res.Error)
	}

	if got["name"] != "cfg" {
		t.Errorf("name = %v", got["name"])
	}
	if got["count"] != float64(3) {
		t.Errorf("count = %v (%T)", got["count"], got["count"])
	}
	if got["enabled"] != true {
		t.Errorf("enabled = %v", got["enabled"])
	}
	tags, ok := got["tags"].([]any)
	if !ok || len(tags) != 2 || tags[0] != "a" || tags[1] != "b" {
		t.Errorf("tags = %v", got["tags"])
	}
	nested, ok := got["nested"].(map[string]any)
	if !ok || nested["inner"] != "deep" {
		t.Errorf("nested = %v", got["nested"])
	}
}

func TestConvertResultToScript(t *testing.T) {
	registry := hostfunc.NewRegistry()
	registry.Register("payload", func(ctx context.Context, args map[string]any) (any, error) {
		return map[string]any{
			"status": 200,
			"items":  []any{"x", "y", "z"},
			"meta":   map[string]any{"ok": true},
		}, nil
	})
	exec, err := New(registry)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer exec.Close()

	res := exec.Run(context.Background(), `
		local p = payload{}
		print(p.status, #p.items, p.items[3], p.meta.ok)
	`)
	if res.Error != nil {
		t.Fatalf("Run: %v", res.Error)
	}
	if res.Output != "200\t3\tz\ttrue\n" {
		t.Errorf("Output = %q", res.Output)
	}
}

func TestConvertNilResult(t *testing.T) {
	registry := hostfunc.NewRegistry()
	registry.Register("nothing", func(ctx context.Context, args map[string]any) (any, error) {
		return nil, nil
	})
	exec, err := New(registry)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer exec.Close()

	res := exec.Run(context.Background(), `print(nothing{} == nil)`)
	if res.Error != nil {
		t.Fatalf("Run: %v", res.Error)
	}
	if res.Output != "true\n" {
		t.Errorf("Output = %q", res.Output)
	}
}
