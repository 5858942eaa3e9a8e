package thread

import (
	"bytes"

	lua "github.com/yuin/gopher-lua"
	"github.com/yuin/gopher-lua/parse"
)

// LoadingMode restricts which chunk encodings a load accepts.
type LoadingMode int

const (
	// ModeAuto accepts source text; precompiled chunks go through
	// CallerChunk.
	ModeAuto LoadingMode = iota
	// ModeText accepts only source text.
	ModeText
	// ModeBinary accepts only precompiled chunks. The wrapped engine has
	// no portable dumped-chunk encoding, so its binary form is the
	// in-memory Chunk; loads under this mode direct callers there.
	ModeBinary
)

// binarySignature is the first byte of a dumped Lua chunk ("\x1bLua").
const binarySignature = 0x1b

// Chunk is a compiled, not-yet-executed unit of code: the engine's
// binary form. A Chunk is immutable and may be instantiated on any
// number of Threads.
type Chunk struct {
	name  string
	proto *lua.FunctionProto
}

// Name returns the chunk name used in diagnostics.
func (c *Chunk) Name() string { return c.name }

// Proto returns the compiled function prototype.
func (c *Chunk) Proto() *lua.FunctionProto { return c.proto }

// CompileChunk parses and compiles src without executing it. Failures
// are Syntax errors.
func CompileChunk(src []byte, name string) (*Chunk, error) {
	if name == "" {
		name = "chunk"
	}
	stmts, err := parse.Parse(bytes.NewReader(src), name)
	if err != nil {
		return nil, &Error{Kind: KindSyntax, Msg: err.Error()}
	}
	proto, err := lua.Compile(stmts, name)
	if err != nil {
		return nil, &Error{Kind: KindSyntax, Msg: err.Error()}
	}
	return &Chunk{name: name, proto: proto}, nil
}

// loadChunk compiles src under the mode gate and returns the resulting
// function without pushing it.
func (s *state) loadChunk(src []byte, name string, mode LoadingMode) (*lua.LFunction, error) {
	if name == "" {
		name = "chunk"
	}
	switch mode {
	case ModeBinary:
		return nil, &Error{
			Kind: KindSyntax,
			Msg:  "binary chunks are precompiled on this engine; load them with CallerChunk",
		}
	case ModeText:
		if len(src) > 0 && src[0] == binarySignature {
			return nil, &Error{Kind: KindSyntax, Msg: "attempt to load a binary chunk in text mode"}
		}
	case ModeAuto:
		if len(src) > 0 && src[0] == binarySignature {
			return nil, &Error{
				Kind: KindSyntax,
				Msg:  "dumped chunks are not loadable; precompile with CompileChunk and use CallerChunk",
			}
		}
	}
	fn, err := s.l.Load(bytes.NewReader(src), name)
	if err != nil {
		return nil, s.classify(err)
	}
	return fn, nil
}
