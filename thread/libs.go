package thread

import (
	lua "github.com/yuin/gopher-lua"
)

// Library identifies one of the engine's standard libraries. A fresh
// Thread opens none of them: every capability the script gets, including
// the base library, is an explicit opt-in.
type Library struct {
	name string
	open lua.LGFunction
}

// Name returns the library's load name ("" for the base library).
func (l Library) Name() string { return l.name }

var (
	LibBase      = Library{lua.BaseLibName, lua.OpenBase}
	LibPackage   = Library{lua.LoadLibName, lua.OpenPackage}
	LibTable     = Library{lua.TabLibName, lua.OpenTable}
	LibString    = Library{lua.StringLibName, lua.OpenString}
	LibMath      = Library{lua.MathLibName, lua.OpenMath}
	LibIo        = Library{lua.IoLibName, lua.OpenIo}
	LibOs        = Library{lua.OsLibName, lua.OpenOs}
	LibDebug     = Library{lua.DebugLibName, lua.OpenDebug}
	LibCoroutine = Library{lua.CoroutineLibName, lua.OpenCoroutine}
	LibChannel   = Library{lua.ChannelLibName, lua.OpenChannel}
)

// AllLibraries returns every standard library in the engine's canonical
// open order (package first, so the base library can see the loaders).
func AllLibraries() []Library {
	return []Library{
		LibPackage, LibBase, LibCoroutine, LibChannel, LibTable,
		LibIo, LibOs, LibString, LibMath, LibDebug,
	}
}

// SafeLibraries returns the libraries that grant no host access: no io,
// no os, no debug introspection, no cross-state channels.
func SafeLibraries() []Library {
	return []Library{LibPackage, LibBase, LibCoroutine, LibTable, LibString, LibMath}
}

// LibraryByName resolves a load name ("table", "string", ...; "base" or
// "" for the base library). The second result reports whether the name
// is known.
func LibraryByName(name string) (Library, bool) {
	switch name {
	case "base", lua.BaseLibName:
		return LibBase, true
	case lua.LoadLibName:
		return LibPackage, true
	case lua.TabLibName:
		return LibTable, true
	case lua.StringLibName:
		return LibString, true
	case lua.MathLibName:
		return LibMath, true
	case lua.IoLibName:
		return LibIo, true
	case lua.OsLibName:
		return LibOs, true
	case lua.DebugLibName:
		return LibDebug, true
	case lua.CoroutineLibName:
		return LibCoroutine, true
	case lua.ChannelLibName:
		return LibChannel, true
	}
	return Library{}, false
}

// openLibraries opens each library through a protected call so a loader
// failure surfaces as a classified error instead of unwinding.
func (t *Thread) openLibraries(libs []Library) error {
	for _, lib := range libs {
		err := t.l.CallByParam(lua.P{
			Fn:      t.l.NewFunction(lib.open),
			NRet:    0,
			Protect: true,
		}, lua.LString(lib.name))
		if err != nil {
			return t.classify(err)
		}
	}
	return nil
}
