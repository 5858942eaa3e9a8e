package executor

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/caffeineduck/luaru/hostfunc"
	"github.com/caffeineduck/luaru/thread"
)

func newTestExecutor(t *testing.T, opts ...ExecutorOption) *Executor {
	t.Helper()
	exec, err := New(hostfunc.NewRegistry(), opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { exec.Close() })
	return exec
}

func TestRunCapturesOutput(t *testing.T) {
	exec := newTestExecutor(t)

	result := exec.Run(context.Background(), `print("hello", 42, true)`)
	if result.Error != nil {
		t.Fatalf("Run: %v", result.Error)
	}
	if result.Output != "hello\t42\ttrue\n" {
		t.Errorf("Output = %q", result.Output)
	}
	if result.Duration <= 0 {
		t.Error("Duration should be positive")
	}
}

func TestRunSyntaxError(t *testing.T) {
	exec := newTestExecutor(t)

	result := exec.Run(context.Background(), `print(`)
	var lerr *thread.Error
	if !errors.As(result.Error, &lerr) || lerr.Kind != thread.KindSyntax {
		t.Errorf("Error = %v, want syntax error", result.Error)
	}
}

func TestRunRuntimeError(t *testing.T) {
	exec := newTestExecutor(t)

	result := exec.Run(context.Background(), `error("exploded")`)
	var lerr *thread.Error
	if !errors.As(result.Error, &lerr) || lerr.Kind != thread.KindRuntime {
		t.Fatalf("Error = %v, want runtime error", result.Error)
	}
	if !strings.Contains(lerr.Msg, "exploded") {
		t.Errorf("Msg = %q, want message to survive", lerr.Msg)
	}
}

func TestRunPartialOutputOnError(t *testing.T) {
	exec := newTestExecutor(t)

	result := exec.Run(context.Background(), `print("before") error("after")`)
	if result.Error == nil {
		t.Fatal("expected error")
	}
	if result.Output != "before\n" {
		t.Errorf("Output = %q, want output before the failure", result.Output)
	}
}

func TestRunTimeout(t *testing.T) {
	exec := newTestExecutor(t)

	result := exec.Run(context.Background(), `while true do end`,
		WithTimeout(50*time.Millisecond))
	if result.Error == nil {
		t.Fatal("expected timeout error")
	}
	if !strings.Contains(result.Error.Error(), "timeout after") {
		t.Errorf("Error = %v, want timeout", result.Error)
	}
}

func TestRunsAreIsolated(t *testing.T) {
	exec := newTestExecutor(t)
	ctx := context.Background()

	if res := exec.Run(ctx, `leak = "secret"`); res.Error != nil {
		t.Fatalf("first run: %v", res.Error)
	}
	res := exec.Run(ctx, `print(leak)`)
	if res.Error != nil {
		t.Fatalf("second run: %v", res.Error)
	}
	if res.Output != "nil\n" {
		t.Errorf("Output = %q, globals must not leak between runs", res.Output)
	}
}

func TestRunAfterClose(t *testing.T) {
	exec := newTestExecutor(t)
	exec.Close()

	result := exec.Run(context.Background(), `print(1)`)
	if !errors.Is(result.Error, ErrExecutorClosed) {
		t.Errorf("Error = %v, want ErrExecutorClosed", result.Error)
	}
}

func TestHostFunctionRoundTrip(t *testing.T) {
	registry := hostfunc.NewRegistry()
	registry.Register("double", func(ctx context.Context, args map[string]any) (any, error) {
		n, _ := args["n"].(float64)
		return n * 2, nil
	})
	exec, err := New(registry)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer exec.Close()

	result := exec.Run(context.Background(), `print(double{n = 21})`)
	if result.Error != nil {
		t.Fatalf("Run: %v", result.Error)
	}
	if result.Output != "42\n" {
		t.Errorf("Output = %q", result.Output)
	}
}

func TestHostFunctionErrorIsCatchable(t *testing.T) {
	registry := hostfunc.NewRegistry()
	registry.Register("fail", func(ctx context.Context, args map[string]any) (any, error) {
		return nil, errors.New("host said no")
	})
	exec, err := New(registry)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer exec.Close()

	result := exec.Run(context.Background(), `
		local ok, err = pcall(function() return fail{} end)
		print(ok, err)
	`)
	if result.Error != nil {
		t.Fatalf("Run: %v", result.Error)
	}
	if !strings.HasPrefix(result.Output, "false\t") ||
		!strings.Contains(result.Output, "host said no") {
		t.Errorf("Output = %q", result.Output)
	}
}

func TestTimeNowBuiltin(t *testing.T) {
	exec := newTestExecutor(t)

	result := exec.Run(context.Background(), `print(time_now{} > 0)`)
	if result.Error != nil {
		t.Fatalf("Run: %v", result.Error)
	}
	if result.Output != "true\n" {
		t.Errorf("Output = %q", result.Output)
	}
}

func TestKVSharedAcrossRuns(t *testing.T) {
	exec := newTestExecutor(t)
	ctx := context.Background()
	kv := hostfunc.NewKVStore(hostfunc.DefaultKVConfig())

	res := exec.Run(ctx, `kv_set{key = "color", value = "teal"}`, WithKVStore(kv))
	if res.Error != nil {
		t.Fatalf("set run: %v", res.Error)
	}
	res = exec.Run(ctx, `print(kv_get{key = "color"})`, WithKVStore(kv))
	if res.Error != nil {
		t.Fatalf("get run: %v", res.Error)
	}
	if res.Output != "teal\n" {
		t.Errorf("Output = %q", res.Output)
	}
}

func TestKVDisabledByDefault(t *testing.T) {
	exec := newTestExecutor(t)

	result := exec.Run(context.Background(), `kv_get{key = "x"}`)
	var lerr *thread.Error
	if !errors.As(result.Error, &lerr) || lerr.Kind != thread.KindRuntime {
		t.Errorf("calling kv_get without WithKV should be a runtime error, got %v", result.Error)
	}
}

func TestCompileCaches(t *testing.T) {
	exec := newTestExecutor(t)

	first, err := exec.Compile("job", `return 1`)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	second, err := exec.Compile("job", `return 2`)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if first != second {
		t.Error("expected the cached chunk on the second Compile")
	}
}

func TestRunChunk(t *testing.T) {
	exec := newTestExecutor(t, WithPrecompiled(map[string]string{
		"greet": `print("hi from chunk")`,
	}))

	chunk, err := exec.Compile("greet", "")
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	result := exec.RunChunk(context.Background(), chunk)
	if result.Error != nil {
		t.Fatalf("RunChunk: %v", result.Error)
	}
	if result.Output != "hi from chunk\n" {
		t.Errorf("Output = %q", result.Output)
	}
}

func TestRunLibrarySelection(t *testing.T) {
	exec := newTestExecutor(t)
	ctx := context.Background()

	// The safe default includes the string library.
	res := exec.Run(ctx, `print(string.upper("ok"))`)
	if res.Error != nil || res.Output != "OK\n" {
		t.Fatalf("default run = %q, %v", res.Output, res.Error)
	}

	// A restricted run sees only what it asked for.
	res = exec.Run(ctx, `print(string)`, WithRunLibraries(thread.LibBase))
	if res.Error != nil {
		t.Fatalf("restricted run: %v", res.Error)
	}
	if res.Output != "nil\n" {
		t.Errorf("Output = %q, string library should be absent", res.Output)
	}
}
