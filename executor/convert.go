package executor

import (
	"fmt"

	lua "github.com/yuin/gopher-lua"
)

// toLua converts a host value into a VM value. Slices become sequence
// tables and maps become string-keyed tables; unknown types are
// stringified rather than rejected, so a host function can return
// whatever it likes.
func toLua(l *lua.LState, v any) lua.LValue {
	switch val := v.(type) {
	case nil:
		return lua.LNil
	case bool:
		return lua.LBool(val)
	case int:
		return lua.LNumber(val)
	case int64:
		return lua.LNumber(val)
	case float64:
		return lua.LNumber(val)
	case string:
		return lua.LString(val)
	case []any:
		tbl := l.NewTable()
		for i, item := range val {
			tbl.RawSetInt(i+1, toLua(l, item))
		}
		return tbl
	case map[string]any:
		tbl := l.NewTable()
		for k, item := range val {
			tbl.RawSetString(k, toLua(l, item))
		}
		return tbl
	case lua.LValue:
		return val
	default:
		return lua.LString(fmt.Sprint(val))
	}
}

// fromLua converts a VM value into a host value. A table with a
// non-empty sequence part converts to a slice, anything else to a
// string-keyed map. Functions and other uncallable-from-Go values
// convert to their display string.
func fromLua(v lua.LValue) any {
	switch val := v.(type) {
	case *lua.LNilType:
		return nil
	case lua.LBool:
		return bool(val)
	case lua.LNumber:
		return float64(val)
	case lua.LString:
		return string(val)
	case *lua.LTable:
		if n := val.Len(); n > 0 {
			out := make([]any, 0, n)
			for i := 1; i <= n; i++ {
				out = append(out, fromLua(val.RawGetInt(i)))
			}
			return out
		}
		return tableToMap(val)
	default:
		return val.String()
	}
}

// tableToMap flattens a table into string-keyed host values. Non-string
// keys are stringified.
func tableToMap(tbl *lua.LTable) map[string]any {
	out := make(map[string]any)
	tbl.ForEach(func(k, v lua.LValue) {
		out[k.String()] = fromLua(v)
	})
	return out
}
