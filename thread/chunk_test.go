package thread

import (
	"errors"
	"testing"
)

func TestCompileChunk(t *testing.T) {
	chunk, err := CompileChunk([]byte(`return 1 + 2`), "sum")
	if err != nil {
		t.Fatalf("CompileChunk: %v", err)
	}
	if chunk.Name() != "sum" {
		t.Errorf("Name = %q, want %q", chunk.Name(), "sum")
	}
	if chunk.Proto() == nil {
		t.Error("Proto should not be nil")
	}
}

func TestCompileChunkSyntaxError(t *testing.T) {
	_, err := CompileChunk([]byte(`return ((`), "bad")
	if err == nil {
		t.Fatal("expected syntax error")
	}
	var lerr *Error
	if !errors.As(err, &lerr) || lerr.Kind != KindSyntax {
		t.Errorf("error = %v, want KindSyntax", err)
	}
}

func TestChunkRunsOnAnyThread(t *testing.T) {
	chunk, err := CompileChunk([]byte(`local a, b = ...; return a * b`), "mul")
	if err != nil {
		t.Fatalf("CompileChunk: %v", err)
	}

	// Same compiled chunk on two independent threads.
	for i := 0; i < 2; i++ {
		th := newTestThread(t)
		results, err := th.CallerChunk(chunk).PushInt(6).PushInt(7).Call(1)
		if err != nil {
			t.Fatalf("Call: %v", err)
		}
		if n, _ := results.Int(0); n != 42 {
			t.Errorf("thread %d: result = %d, want 42", i, n)
		}
	}
}

func TestChunkMatchesSourceLoad(t *testing.T) {
	src := []byte(`local n = ...; return n + 1, n + 2`)
	th := newTestThread(t)

	fromSrc, err := th.CallerLoad(src, "pair", ModeText)
	if err != nil {
		t.Fatalf("CallerLoad: %v", err)
	}
	srcResults, err := fromSrc.PushInt(10).Call(MultRet)
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	a1, _ := srcResults.Int(0)
	a2, _ := srcResults.Int(1)
	srcResults.Pop()

	chunk, err := CompileChunk(src, "pair")
	if err != nil {
		t.Fatalf("CompileChunk: %v", err)
	}
	chunkResults, err := th.CallerChunk(chunk).PushInt(10).Call(MultRet)
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	b1, _ := chunkResults.Int(0)
	b2, _ := chunkResults.Int(1)

	if a1 != b1 || a2 != b2 {
		t.Errorf("compiled chunk returned (%d, %d), source returned (%d, %d)",
			b1, b2, a1, a2)
	}
}

func TestLoadingModeGates(t *testing.T) {
	binaryish := []byte{0x1b, 'L', 'u', 'a'}

	th := newTestThread(t)
	tests := []struct {
		name string
		src  []byte
		mode LoadingMode
	}{
		{"binary rejected in text mode", binaryish, ModeText},
		{"binary rejected in auto mode", binaryish, ModeAuto},
		{"binary mode not loadable from source", []byte(`return 1`), ModeBinary},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := th.CallerLoad(tt.src, tt.name, tt.mode)
			if err == nil {
				t.Fatal("expected load to fail")
			}
			var lerr *Error
			if !errors.As(err, &lerr) || lerr.Kind != KindSyntax {
				t.Errorf("error = %v, want KindSyntax", err)
			}
		})
	}
}

func TestLoadSyntaxErrorNamesChunk(t *testing.T) {
	th := newTestThread(t)
	_, err := th.CallerLoad([]byte(`if then end`), "broken.lua", ModeText)
	if err == nil {
		t.Fatal("expected syntax error")
	}
	var lerr *Error
	if !errors.As(err, &lerr) || lerr.Kind != KindSyntax {
		t.Errorf("error = %v, want KindSyntax", err)
	}
}
