package thread

import (
	"fmt"

	lua "github.com/yuin/gopher-lua"
)

// Kind classifies a VM-reported error. The set is closed; statuses this
// wrapper does not model fold into KindIo so that an engine upgrade can
// never produce an unclassifiable error.
type Kind int

const (
	// KindRuntime is a scripted error raised during execution.
	KindRuntime Kind = iota
	// KindSyntax is a compile or load failure.
	KindSyntax
	// KindOutOfMemory means the engine could not allocate. The wrapped
	// engine's heap is Go-managed, so it never reports this today; the
	// kind stays in the enum for protocol completeness.
	KindOutOfMemory
	// KindMessageHandler means the protected-call error handler itself
	// failed.
	KindMessageHandler
	// KindGarbageCollection means a finalizer raised during collection.
	// Like KindOutOfMemory, retained for protocol completeness.
	KindGarbageCollection
	// KindIo is a load failure or any status this wrapper does not model.
	KindIo
)

func (k Kind) String() string {
	switch k {
	case KindRuntime:
		return "runtime"
	case KindSyntax:
		return "syntax"
	case KindOutOfMemory:
		return "out of memory"
	case KindMessageHandler:
		return "message handler"
	case KindGarbageCollection:
		return "garbage collection"
	case KindIo:
		return "io"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Error is a classified VM error. Msg is the error object converted to
// text exactly once at classification; it is empty when no error object
// was available.
type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return fmt.Sprintf("lua: %s error", e.Kind)
	}
	return fmt.Sprintf("lua: %s error: %s", e.Kind, e.Msg)
}

// PanicError reports that host code panicked while the VM was running,
// for example inside a bound host function. It is deliberately distinct
// from a scripted runtime Error: its payload is an arbitrary host value,
// not necessarily text.
type PanicError struct {
	Value interface{}
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("lua: host panic: %v", e.Value)
}

// classify is the single error-translation point. Every native status
// produced by the engine is converted here; no raw status crosses a
// component boundary. A nil input stays nil.
func (s *state) classify(err error) error {
	if err == nil {
		return nil
	}
	apiErr, ok := err.(*lua.ApiError)
	if !ok {
		return err
	}
	if apiErr.Type == lua.ApiErrorPanic {
		return &PanicError{Value: s.message(apiErr.Object)}
	}
	var kind Kind
	switch apiErr.Type {
	case lua.ApiErrorRun:
		kind = KindRuntime
	case lua.ApiErrorSyntax:
		kind = KindSyntax
	case lua.ApiErrorError:
		kind = KindMessageHandler
	default:
		// ApiErrorFile and any status a future engine adds.
		kind = KindIo
	}
	return &Error{Kind: kind, Msg: s.message(apiErr.Object)}
}

// message converts an error object to text via the engine's own
// stringify operation, which may itself run a __tostring metamethod.
// The stack is restored to its prior depth afterwards, so the
// conversion is stack-neutral overall.
func (s *state) message(obj lua.LValue) string {
	if obj == nil || obj == lua.LNil {
		return ""
	}
	top := s.l.GetTop()
	v := s.l.ToStringMeta(obj)
	s.l.SetTop(top)
	if str, ok := v.(lua.LString); ok {
		return string(str)
	}
	return v.String()
}
