package script

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/Shopify/go-lua"

	"github.com/bilalinamdar/cloud-slang/internal/util"
	"github.com/bilalinamdar/cloud-slang/pkg/api"
	pkgutil "github.com/bilalinamdar/cloud-slang/pkg/util"
)

type (
	// LuaEnv evaluates Lua expressions and action scripts with state pooling
	LuaEnv struct {
		exprs     *util.CompileCache[*CompiledLua]
		scripts   *util.CompileCache[*CompiledLua]
		statePool chan *lua.State
	}

	// CompiledLua represents a compiled Lua chunk
	CompiledLua struct {
		bytecode []byte
		argNames []string
	}
)

const (
	luaStatePoolSize    = 10
	luaGlobalTableIndex = -2
	luaArrayTableIndex  = -3
	luaMapTableIndex    = -3
	luaEnvTableIndex    = -2
	luaArgLocalTemplate = "local %s = select(%d, ...)"
	luaArgOffset        = 2
	luaGlobalTableName  = "_G"
	luaIndexField       = "__index"
	luaSeparator        = "\n"

	luaExprHeader      = "local _ENV = ..."
	luaExprHeaderSysSP = "local _ENV, sys_prop, __record = ..."
	luaExprTemplate    = "return %s"
	luaExprArgs        = 3
	luaScriptHeader    = "local _ENV = ..."
	luaNotDefined      = "'%s' is not defined"
)

var (
	ErrLuaLoad      = errors.New("lua load error")
	ErrLuaExecution = errors.New("lua execution error")
)

var luaExclude = [...]string{
	"io", "os", "debug", "package", "require", "dofile", "loadfile", "load",
}

// luaLibrary names the globals a chunk may reach through its environment.
// Everything else, _G included, is invisible
var luaLibrary = pkgutil.SetOf(
	"assert", "error", "getmetatable", "ipairs", "next", "pairs", "pcall",
	"rawequal", "rawlen", "select", "tonumber", "tostring", "type",
	"xpcall", "bit32", "math", "string", "table",
)

// luaHelpers holds the source of each helper function. Helpers are compiled
// into a chunk as locals only when the expression declares them
var luaHelpers = map[api.ScriptFunction]string{
	api.FunctionGetSystemProperty: `local function get_sp(key, default_value)
  __record(key)
  local value = sys_prop[key]
  if value == nil then
    return default_value
  end
  return value
end`,
	api.FunctionCheckEmpty: `local function check_empty(value, default_value)
  if value == nil or value == "" then
    return default_value
  end
  return value
end`,
}

// NewLuaEnv creates a Lua environment caching up to cacheSize compiled
// expressions and as many compiled action scripts
func NewLuaEnv(cacheSize int) *LuaEnv {
	return &LuaEnv{
		exprs:     util.NewCompileCache[*CompiledLua](cacheSize),
		scripts:   util.NewCompileCache[*CompiledLua](cacheSize),
		statePool: make(chan *lua.State, luaStatePoolSize),
	}
}

// Evaluate runs an expression with free names resolved from ctx. Names are
// recorded as accessed only when the running expression actually reads them
func (e *LuaEnv) Evaluate(
	expr string, ctx api.Context, props api.SystemProperties,
	fns pkgutil.Set[api.ScriptFunction],
) (any, *Accessed, error) {
	fnNames := sortedFunctions(fns)
	proc, err := e.exprs.Get(hashScript(expr, fnNames...),
		func() (*CompiledLua, error) {
			return e.compile(e.wrapExpression(expr, fns), nil)
		},
	)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrLuaLoad, err)
	}

	acc := newAccessed()
	var result any
	err = e.withState(func(L *lua.State) error {
		if err := e.load(L, proc); err != nil {
			return err
		}
		e.pushEnv(L, ctx, acc)
		if fns.Contains(api.FunctionGetSystemProperty) {
			pushLuaMap(L, props.Raw())
			L.PushGoFunction(func(L *lua.State) int {
				if name, ok := L.ToString(1); ok {
					acc.Props.Add(name)
				}
				return 0
			})
		} else {
			L.PushNil()
			L.PushNil()
		}
		if err := L.ProtectedCall(luaExprArgs, 1, 0); err != nil {
			return fmt.Errorf("%w: %w", ErrLuaExecution, err)
		}
		result = luaToGo(L, -1)
		L.Pop(1)
		return nil
	})
	if err != nil {
		return nil, acc, err
	}
	return result, acc, nil
}

// Execute runs an action script with each input bound to a local of the
// same name. A returned table becomes the outputs; any other value is
// returned under "result"
func (e *LuaEnv) Execute(script string, inputs api.Args) (api.Args, error) {
	argNames := make([]string, 0, len(inputs))
	for _, n := range inputs.SortedNames() {
		argNames = append(argNames, string(n))
	}

	proc, err := e.scripts.Get(hashScript(script, argNames...),
		func() (*CompiledLua, error) {
			return e.compile(e.wrapSource(script, argNames), argNames)
		},
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLuaLoad, err)
	}

	var result api.Args
	err = e.withState(func(L *lua.State) error {
		if err := e.load(L, proc); err != nil {
			return err
		}
		e.pushEnv(L, nil, newAccessed())
		for _, name := range proc.argNames {
			goToLua(L, inputs[api.Name(name)])
		}
		nargs := len(proc.argNames) + 1
		if err := L.ProtectedCall(nargs, 1, 0); err != nil {
			return fmt.Errorf("%w: %w", ErrLuaExecution, err)
		}
		if L.IsTable(-1) {
			result = luaTableToMap(L, -1)
		} else {
			result = api.Args{"result": luaToGo(L, -1)}
		}
		L.Pop(1)
		return nil
	})
	return result, err
}

func (e *LuaEnv) wrapExpression(
	expr string, fns pkgutil.Set[api.ScriptFunction],
) string {
	header := luaExprHeader
	if fns.Contains(api.FunctionGetSystemProperty) {
		header = luaExprHeaderSysSP
	}
	parts := []string{header}
	for _, fn := range sortedFunctions(fns) {
		parts = append(parts, luaHelpers[api.ScriptFunction(fn)])
	}
	parts = append(parts, fmt.Sprintf(luaExprTemplate, expr))
	return strings.Join(parts, luaSeparator)
}

func (e *LuaEnv) wrapSource(script string, argNames []string) string {
	parts := make([]string, 0, len(argNames)+2)
	parts = append(parts, luaScriptHeader)
	for i, name := range argNames {
		parts = append(parts,
			fmt.Sprintf(luaArgLocalTemplate, name, i+luaArgOffset),
		)
	}
	parts = append(parts, script)
	return strings.Join(parts, luaSeparator)
}

func (e *LuaEnv) compile(src string, argNames []string) (*CompiledLua, error) {
	L := lua.NewState()

	e.setupSandbox(L)

	if err := lua.LoadString(L, src); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := L.Dump(&buf); err != nil {
		return nil, err
	}

	return &CompiledLua{
		bytecode: buf.Bytes(),
		argNames: argNames,
	}, nil
}

func (e *LuaEnv) load(L *lua.State, proc *CompiledLua) error {
	err := L.Load(bytes.NewReader(proc.bytecode), "expression", "b")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrLuaLoad, err)
	}
	return nil
}

// pushEnv pushes a fresh environment table whose missing keys resolve
// first against ctx, then against the library globals. Any other name
// raises an error. Assignments land in the fresh table, so nothing a chunk
// writes outlives the call
func (e *LuaEnv) pushEnv(L *lua.State, ctx api.Context, acc *Accessed) {
	L.CreateTable(0, 0)
	L.CreateTable(0, 1)
	L.PushGoFunction(func(L *lua.State) int {
		name, ok := luaStringKey(L, 2)
		if !ok {
			L.PushNil()
			return 1
		}
		if v, ok := ctx[api.Name(name)]; ok {
			acc.Names.Add(api.Name(name))
			goToLua(L, v.Raw())
			return 1
		}
		if luaLibrary.Contains(name) {
			L.Global(name)
			return 1
		}
		lua.Errorf(L, luaNotDefined, name)
		panic("unreachable")
	})
	L.SetField(luaEnvTableIndex, luaIndexField)
	L.SetMetaTable(luaEnvTableIndex)
}

func (e *LuaEnv) setupSandbox(L *lua.State) {
	lua.OpenLibraries(L)
	L.Global(luaGlobalTableName)
	for _, name := range luaExclude {
		L.PushNil()
		L.SetField(luaGlobalTableIndex, name)
	}
	L.Pop(1)
}

func (e *LuaEnv) withState(fn func(*lua.State) error) error {
	L := e.getState()
	defer e.returnState(L)

	e.setupSandbox(L)
	_, err := catchPanic(ErrScriptPanicked, func() (struct{}, error) {
		return struct{}{}, fn(L)
	})
	return err
}

func (e *LuaEnv) getState() *lua.State {
	select {
	case L := <-e.statePool:
		return L
	default:
		return lua.NewState()
	}
}

func (e *LuaEnv) returnState(L *lua.State) {
	L.SetTop(0)

	select {
	case e.statePool <- L:
	default:
	}
}

func luaStringKey(L *lua.State, index int) (string, bool) {
	if L.TypeOf(index) != lua.TypeString {
		return "", false
	}
	return L.ToString(index)
}

func goToLua(L *lua.State, value any) {
	switch v := value.(type) {
	case string:
		L.PushString(v)
	case bool:
		L.PushBoolean(v)
	case int:
		L.PushInteger(v)
	case int64:
		L.PushInteger(int(v))
	case float64:
		L.PushNumber(v)
	case []any:
		pushLuaArray(L, v)
	case map[string]any:
		pushLuaMap(L, v)
	case api.Args:
		m := make(map[string]any, len(v))
		for k, val := range v {
			m[string(k)] = val
		}
		pushLuaMap(L, m)
	case nil:
		L.PushNil()
	default:
		L.PushString(fmt.Sprintf("%v", v))
	}
}

func pushLuaArray(L *lua.State, arr []any) {
	L.CreateTable(len(arr), 0)
	for i, item := range arr {
		L.PushInteger(i + 1)
		goToLua(L, item)
		L.SetTable(luaArrayTableIndex)
	}
}

func pushLuaMap(L *lua.State, m map[string]any) {
	L.CreateTable(0, len(m))
	for k, val := range m {
		L.PushString(k)
		goToLua(L, val)
		L.SetTable(luaMapTableIndex)
	}
}

func luaNumberToGo(L *lua.State, index int) any {
	num, _ := L.ToNumber(index)
	if num == float64(int(num)) {
		return int(num)
	}
	return num
}

func luaToGo(L *lua.State, index int) any {
	switch L.TypeOf(index) {
	case lua.TypeNil:
		return nil
	case lua.TypeBoolean:
		return L.ToBoolean(index)
	case lua.TypeNumber:
		return luaNumberToGo(L, index)
	case lua.TypeString:
		s, _ := L.ToString(index)
		return s
	case lua.TypeTable:
		return luaTableToAny(L, absIndex(L, index))
	default:
		return nil
	}
}

func absIndex(L *lua.State, index int) int {
	if index < 0 {
		return L.Top() + index + 1
	}
	return index
}

func luaTableToMap(L *lua.State, index int) api.Args {
	index = absIndex(L, index)
	result := api.Args{}

	L.PushNil()
	for L.Next(index) {
		if key, ok := luaStringKey(L, -2); ok {
			result[api.Name(key)] = luaToGo(L, -1)
		}
		L.Pop(1)
	}

	return result
}

// luaTableToAny converts a table at an absolute index. Tables whose keys are
// exactly 1..n become slices; anything else becomes a string-keyed map
func luaTableToAny(L *lua.State, index int) any {
	length := 0
	isArray := true

	L.PushNil()
	for L.Next(index) {
		if L.TypeOf(-2) != lua.TypeNumber {
			isArray = false
		}
		length++
		L.Pop(1)
	}

	if isArray && length > 0 && luaSequenceLen(L, index) == length {
		arr := make([]any, length)
		for i := 1; i <= length; i++ {
			L.RawGetInt(index, i)
			arr[i-1] = luaToGo(L, -1)
			L.Pop(1)
		}
		return arr
	}

	result := map[string]any{}
	L.PushNil()
	for L.Next(index) {
		var key string
		if k, ok := luaStringKey(L, -2); ok {
			key = k
		} else {
			key = fmt.Sprintf("%v", luaToGo(L, -2))
		}
		result[key] = luaToGo(L, -1)
		L.Pop(1)
	}
	return result
}

func luaSequenceLen(L *lua.State, index int) int {
	n := 0
	for {
		L.RawGetInt(index, n+1)
		isNil := L.IsNil(-1)
		L.Pop(1)
		if isNil {
			return n
		}
		n++
	}
}
