package hostfunc

import (
	"context"
	"sync"
	"testing"
)

func TestKVSetGet(t *testing.T) {
	kv := NewKVStore(DefaultKVConfig())
	ctx := context.Background()

	_, err := kv.Set(ctx, map[string]any{"key": "foo", "value": "bar"})
	if err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	val, err := kv.Get(ctx, map[string]any{"key": "foo"})
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if val != "bar" {
		t.Errorf("expected bar, got %v", val)
	}
}

func TestKVGetMissing(t *testing.T) {
	kv := NewKVStore(DefaultKVConfig())
	ctx := context.Background()

	val, err := kv.Get(ctx, map[string]any{"key": "missing"})
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if val != nil {
		t.Errorf("expected nil, got %v", val)
	}
}

func TestKVMissingKeyArg(t *testing.T) {
	kv := NewKVStore(DefaultKVConfig())
	ctx := context.Background()

	if _, err := kv.Get(ctx, map[string]any{}); err == nil {
		t.Error("Get without key should fail")
	}
	if _, err := kv.Set(ctx, map[string]any{"value": "x"}); err == nil {
		t.Error("Set without key should fail")
	}
	if _, err := kv.Set(ctx, map[string]any{"key": "k"}); err == nil {
		t.Error("Set without value should fail")
	}
}

func TestKVDelete(t *testing.T) {
	kv := NewKVStore(DefaultKVConfig())
	ctx := context.Background()

	kv.Set(ctx, map[string]any{"key": "foo", "value": "bar"})
	kv.Delete(ctx, map[string]any{"key": "foo"})

	val, _ := kv.Get(ctx, map[string]any{"key": "foo"})
	if val != nil {
		t.Errorf("expected nil after delete, got %v", val)
	}
}

func TestKVKeys(t *testing.T) {
	kv := NewKVStore(DefaultKVConfig())
	ctx := context.Background()

	kv.Set(ctx, map[string]any{"key": "c", "value": "3"})
	kv.Set(ctx, map[string]any{"key": "a", "value": "1"})
	kv.Set(ctx, map[string]any{"key": "b", "value": "2"})

	result, err := kv.Keys(ctx, map[string]any{})
	if err != nil {
		t.Fatalf("Keys failed: %v", err)
	}

	keys := result.([]any)
	if len(keys) != 3 {
		t.Fatalf("expected 3 keys, got %d", len(keys))
	}
	for i, want := range []string{"a", "b", "c"} {
		if keys[i] != want {
			t.Errorf("keys[%d] = %v, want %s", i, keys[i], want)
		}
	}
}

func TestKVOverwrite(t *testing.T) {
	kv := NewKVStore(DefaultKVConfig())
	ctx := context.Background()

	kv.Set(ctx, map[string]any{"key": "foo", "value": "original"})
	kv.Set(ctx, map[string]any{"key": "foo", "value": "updated"})

	val, _ := kv.Get(ctx, map[string]any{"key": "foo"})
	if val != "updated" {
		t.Errorf("expected updated, got %v", val)
	}
}

func TestKVKeyTooLarge(t *testing.T) {
	kv := NewKVStore(KVConfig{MaxKeySize: 10})
	ctx := context.Background()

	_, err := kv.Set(ctx, map[string]any{"key": "this-key-is-too-long", "value": "x"})
	if err == nil {
		t.Error("expected error for key too large")
	}
}

func TestKVValueTooLarge(t *testing.T) {
	kv := NewKVStore(KVConfig{MaxValueSize: 10})
	ctx := context.Background()

	_, err := kv.Set(ctx, map[string]any{"key": "k", "value": "this-value-is-way-too-large"})
	if err == nil {
		t.Error("expected error for value too large")
	}
}

func TestKVTooManyEntries(t *testing.T) {
	kv := NewKVStore(KVConfig{MaxEntries: 2})
	ctx := context.Background()

	kv.Set(ctx, map[string]any{"key": "a", "value": "1"})
	kv.Set(ctx, map[string]any{"key": "b", "value": "2"})

	if _, err := kv.Set(ctx, map[string]any{"key": "c", "value": "3"}); err == nil {
		t.Error("expected error for too many entries")
	}
	// Overwriting an existing key is still allowed at capacity.
	if _, err := kv.Set(ctx, map[string]any{"key": "a", "value": "9"}); err != nil {
		t.Errorf("overwrite at capacity failed: %v", err)
	}
}

func TestKVConcurrent(t *testing.T) {
	kv := NewKVStore(DefaultKVConfig())
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			key := string(rune('a' + (n % 26)))
			kv.Set(ctx, map[string]any{"key": key, "value": "v"})
			kv.Get(ctx, map[string]any{"key": key})
		}(i)
	}
	wg.Wait()
}
