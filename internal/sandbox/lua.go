package sandbox

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"detective_lab/internal/domain/model"

	"github.com/Shopify/go-lua"
)

const (
	// luaHookInterval is how many VM instructions run between budget checks. It is
	// small so a run that doubles a string each instruction stops within a few
	// doublings of the memory budget.
	luaHookInterval = 2
	// maxRepBytes caps the result of string.rep.
	maxRepBytes = 1 << 24
)

// Base library entries that reach outside the state or load more code.
var luaBlockedGlobals = []string{
	"dofile",
	"loadfile",
	"load",
	"loadstring",
	"require",
	"module",
	"collectgarbage",
}

// LuaRuntime runs submissions on Shopify/go-lua. Only the base, string, table and
// math libraries are opened; io, os, package and debug never are.
type LuaRuntime struct {
	maxSteps  int
	maxMemory uint64
}

// NewLuaRuntime returns a runtime that stops a submission after maxSteps VM
// instructions. maxSteps <= 0 leaves only the context deadline.
func NewLuaRuntime(maxSteps int) *LuaRuntime {
	return &LuaRuntime{maxSteps: maxSteps}
}

// WithMemoryLimit stops a submission once the heap grows by more than limit bytes
// while it runs. Zero disables the check.
func (r *LuaRuntime) WithMemoryLimit(limit uint64) *LuaRuntime {
	r.maxMemory = limit
	return r
}

func (r *LuaRuntime) Describe() model.Runtime {
	return model.Runtime{
		Slug:     model.RuntimeLua,
		Name:     "Lua 5.2",
		Hint:     "Assign results to globals, e.g. evidence = {table.unpack(log, #log - 4)}",
		IsActive: true,
	}
}

func (r *LuaRuntime) Run(ctx context.Context, code string, seed map[string]any) (exec *Execution, err error) {
	if ctx.Err() != nil {
		return nil, fmt.Errorf("%w: %v", ErrTimeout, ctx.Err())
	}

	ctx, guard := guardMemory(ctx, r.maxMemory)
	defer guard.Release()

	var budgetErr error
	budgetSpent := func() error { return budgetErr }

	state := lua.NewState()
	out := &limitedBuffer{}
	openSafeLibraries(state, out, budgetSpent)
	baseline := globalNames(state)

	for _, name := range sortedKeys(seed) {
		if err := pushValue(state, reflect.ValueOf(seed[name]), 0); err != nil {
			return nil, fmt.Errorf("seed %q: %w", name, err)
		}
		state.SetGlobal(name)
	}

	steps := 0
	lua.SetDebugHook(state, func(l *lua.State, _ lua.Debug) {
		steps += luaHookInterval
		switch {
		case budgetErr != nil:
		case guard.Exceeded():
			budgetErr = guard.err()
		case ctx.Err() != nil:
			budgetErr = fmt.Errorf("%w: %v", ErrTimeout, ctx.Err())
		case r.maxSteps > 0 && steps > r.maxSteps:
			budgetErr = fmt.Errorf("%w: more than %d instructions", ErrTimeout, r.maxSteps)
		default:
			return
		}
		lua.Errorf(l, "execution budget exceeded")
	}, lua.MaskCount, luaHookInterval)

	defer func() {
		if rec := recover(); rec != nil {
			exec, err = nil, executionError("interpreter fault: %v", rec)
		}
	}()

	if loadErr := lua.LoadBuffer(state, code, "submission", "t"); loadErr != nil {
		return nil, executionError("%s", loadErr.Error())
	}
	if callErr := state.ProtectedCall(0, 0, 0); callErr != nil {
		if budgetErr != nil {
			return nil, budgetErr
		}
		return nil, executionError("%s", callErr.Error())
	}
	if guard.Check() {
		return nil, guard.err()
	}

	return &Execution{Bindings: collectGlobals(state, baseline), Output: out.String()}, nil
}

func openSafeLibraries(state *lua.State, out *limitedBuffer, budgetSpent func() error) {
	libs := []lua.RegistryFunction{
		{Name: "_G", Function: lua.BaseOpen},
		{Name: "string", Function: lua.StringOpen},
		{Name: "table", Function: lua.TableOpen},
		{Name: "math", Function: lua.MathOpen},
	}
	for _, lib := range libs {
		lua.Require(state, lib.Name, lib.Function, true)
		state.Pop(1)
	}
	for _, name := range luaBlockedGlobals {
		state.PushNil()
		state.SetGlobal(name)
	}

	state.PushGoFunction(func(l *lua.State) int {
		n := l.Top()
		parts := make([]string, 0, n)
		l.Global("tostring")
		for i := 1; i <= n; i++ {
			l.PushValue(-1)
			l.PushValue(i)
			l.Call(1, 1)
			s, _ := l.ToString(-1)
			parts = append(parts, s)
			l.Pop(1)
		}
		l.Pop(1)
		fmt.Fprintln(out, strings.Join(parts, "\t"))
		return 0
	})
	state.SetGlobal("print")

	state.PushGoFunction(guardedPCall(budgetSpent))
	state.SetGlobal("pcall")
	state.PushGoFunction(guardedXPCall(budgetSpent))
	state.SetGlobal("xpcall")

	state.Global("string")
	state.PushGoFunction(cappedRep)
	state.SetField(-2, "rep")
	state.Pop(1)
}

// guardedPCall is pcall that lets budget errors through.
func guardedPCall(budgetSpent func() error) lua.Function {
	return func(l *lua.State) int {
		lua.CheckAny(l, 1)
		if err := l.ProtectedCall(l.Top()-1, lua.MultipleReturns, 0); err != nil {
			if budgetSpent() != nil {
				l.Error()
			}
			l.PushBoolean(false)
			l.Insert(-2)
			return 2
		}
		l.PushBoolean(true)
		l.Insert(1)
		return l.Top()
	}
}

// guardedXPCall is xpcall that lets budget errors through. The handler receives
// the error value and its first result becomes the message.
func guardedXPCall(budgetSpent func() error) lua.Function {
	return func(l *lua.State) int {
		lua.CheckType(l, 2, lua.TypeFunction)
		l.PushValue(2)
		l.Insert(1)
		l.Remove(3)
		if err := l.ProtectedCall(l.Top()-2, lua.MultipleReturns, 0); err != nil {
			if budgetSpent() != nil {
				l.Error()
			}
			l.Call(1, 1)
			l.PushBoolean(false)
			l.Insert(-2)
			return 2
		}
		l.PushBoolean(true)
		l.Replace(1)
		return l.Top()
	}
}

func cappedRep(l *lua.State) int {
	s := lua.CheckString(l, 1)
	n := lua.CheckInteger(l, 2)
	sep := lua.OptString(l, 3, "")
	if n <= 0 {
		l.PushString("")
		return 1
	}
	if size := int64(len(s)+len(sep)) * int64(n); size > maxRepBytes {
		lua.Errorf(l, "resulting string too large")
	}
	var b strings.Builder
	for i := 0; i < n; i++ {
		if i > 0 {
			b.WriteString(sep)
		}
		b.WriteString(s)
	}
	l.PushString(b.String())
	return 1
}

func globalNames(state *lua.State) map[string]bool {
	names := map[string]bool{}
	state.PushGlobalTable()
	table := state.AbsIndex(-1)
	state.PushNil()
	for state.Next(table) {
		if state.TypeOf(-2) == lua.TypeString {
			key, _ := state.ToString(-2)
			names[key] = true
		}
		state.Pop(1)
	}
	state.Pop(1)
	return names
}

// collectGlobals returns the globals that were not present before the seed and the
// submission ran. Functions and other values with no plain shape are skipped.
func collectGlobals(state *lua.State, baseline map[string]bool) map[string]any {
	bindings := map[string]any{}
	state.PushGlobalTable()
	table := state.AbsIndex(-1)
	state.PushNil()
	for state.Next(table) {
		if state.TypeOf(-2) == lua.TypeString {
			key, _ := state.ToString(-2)
			if !baseline[key] && VisibleName(key) {
				if value, ok := luaToGo(state, -1, 0); ok {
					bindings[key] = value
				}
			}
		}
		state.Pop(1)
	}
	state.Pop(1)
	return bindings
}

func luaToGo(state *lua.State, index, depth int) (any, bool) {
	if depth > maxValueDepth {
		return nil, false
	}
	switch state.TypeOf(index) {
	case lua.TypeNil:
		return nil, true
	case lua.TypeString:
		value, _ := state.ToString(index)
		return value, true
	case lua.TypeNumber:
		value, _ := state.ToNumber(index)
		return normalizeNumber(value), true
	case lua.TypeBoolean:
		return state.ToBoolean(index), true
	case lua.TypeTable:
		return tableToGo(state, index, depth)
	default:
		return nil, false
	}
}

// tableToGo turns a table with keys 1..n into []any and any other table into
// map[string]any, keeping only string keys.
func tableToGo(state *lua.State, index, depth int) (any, bool) {
	index = state.AbsIndex(index)
	isArray := true
	maxIndex := 0
	count := 0
	state.PushNil()
	for state.Next(index) {
		count++
		if isArray {
			if state.TypeOf(-2) != lua.TypeNumber {
				isArray = false
			} else if idx, ok := state.ToInteger(-2); ok && idx > 0 {
				if idx > maxIndex {
					maxIndex = idx
				}
			} else {
				isArray = false
			}
		}
		state.Pop(1)
	}

	if count == 0 {
		return []any{}, true
	}
	if isArray && maxIndex == count {
		result := make([]any, 0, maxIndex)
		for i := 1; i <= maxIndex; i++ {
			state.RawGetInt(index, i)
			value, ok := luaToGo(state, -1, depth+1)
			state.Pop(1)
			if !ok {
				return nil, false
			}
			result = append(result, value)
		}
		return result, true
	}

	result := map[string]any{}
	state.PushNil()
	for state.Next(index) {
		if state.TypeOf(-2) == lua.TypeString {
			key, _ := state.ToString(-2)
			value, ok := luaToGo(state, -1, depth+1)
			if !ok {
				state.Pop(2)
				return nil, false
			}
			result[key] = value
		}
		state.Pop(1)
	}
	return result, true
}

// pushValue pushes a Go value as its Lua equivalent: slices become sequences,
// string-keyed maps become tables.
func pushValue(state *lua.State, v reflect.Value, depth int) error {
	if depth > maxValueDepth {
		return fmt.Errorf("value nested deeper than %d levels", maxValueDepth)
	}
	switch v.Kind() {
	case reflect.Invalid:
		state.PushNil()
	case reflect.Interface, reflect.Pointer:
		if v.IsNil() {
			state.PushNil()
			return nil
		}
		return pushValue(state, v.Elem(), depth+1)
	case reflect.String:
		state.PushString(v.String())
	case reflect.Bool:
		state.PushBoolean(v.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		state.PushInteger(int(v.Int()))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		state.PushInteger(int(v.Uint()))
	case reflect.Float32, reflect.Float64:
		state.PushNumber(v.Float())
	case reflect.Slice, reflect.Array:
		state.CreateTable(v.Len(), 0)
		for i := 0; i < v.Len(); i++ {
			if err := pushValue(state, v.Index(i), depth+1); err != nil {
				state.Pop(1)
				return err
			}
			state.RawSetInt(-2, i+1)
		}
	case reflect.Map:
		if v.Type().Key().Kind() != reflect.String {
			return fmt.Errorf("unsupported map key type %s", v.Type().Key())
		}
		state.CreateTable(0, v.Len())
		iter := v.MapRange()
		for iter.Next() {
			if err := pushValue(state, iter.Value(), depth+1); err != nil {
				state.Pop(1)
				return err
			}
			state.SetField(-2, iter.Key().String())
		}
	default:
		return fmt.Errorf("unsupported value type %s", v.Type())
	}
	return nil
}
