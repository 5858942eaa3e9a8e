package executor

import (
	"context"
	"testing"

	"github.com/caffeineduck/luaru/hostfunc"
)

const benchScript = `
	local sum = 0
	for i = 1, 1000 do
		sum = sum + i
	end
	print(sum)
`

func BenchmarkRun(b *testing.B) {
	exec, err := New(hostfunc.NewRegistry())
	if err != nil {
		b.Fatal(err)
	}
	defer exec.Close()
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if res := exec.Run(ctx, benchScript); res.Error != nil {
			b.Fatal(res.Error)
		}
	}
}

func BenchmarkRunChunk(b *testing.B) {
	exec, err := New(hostfunc.NewRegistry())
	if err != nil {
		b.Fatal(err)
	}
	defer exec.Close()
	ctx := context.Background()

	chunk, err := exec.Compile("bench", benchScript)
	if err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if res := exec.RunChunk(ctx, chunk); res.Error != nil {
			b.Fatal(res.Error)
		}
	}
}

func BenchmarkSessionRun(b *testing.B) {
	exec, err := New(hostfunc.NewRegistry())
	if err != nil {
		b.Fatal(err)
	}
	defer exec.Close()

	s, err := exec.NewSession()
	if err != nil {
		b.Fatal(err)
	}
	defer s.Close()
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if res := s.Run(ctx, benchScript); res.Error != nil {
			b.Fatal(res.Error)
		}
	}
}
