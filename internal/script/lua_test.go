package script_test

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bilalinamdar/cloud-slang/internal/config"
	"github.com/bilalinamdar/cloud-slang/internal/script"
	"github.com/bilalinamdar/cloud-slang/pkg/api"
)

func newLuaService(t *testing.T) *script.Service {
	t.Helper()
	svc, err := script.NewService(config.NewDefaultConfig())
	require.NoError(t, err)
	return svc
}

func TestLuaArithmetic(t *testing.T) {
	svc := newLuaService(t)

	v, err := svc.Evaluate(&script.Request{Expression: "2+2"})
	require.NoError(t, err)
	assert.Equal(t, 4, v.Raw())
	assert.False(t, v.IsSensitive())

	v, err = svc.Evaluate(&script.Request{Expression: "7 / 2"})
	require.NoError(t, err)
	assert.Equal(t, 3.5, v.Raw())
}

func TestLuaReadsContext(t *testing.T) {
	svc := newLuaService(t)

	v, err := svc.Evaluate(&script.Request{
		Expression: "x",
		Context:    api.Context{"x": api.NewValue("-2")},
	})
	require.NoError(t, err)
	assert.Equal(t, "-2", v.Raw())

	v, err = svc.Evaluate(&script.Request{
		Expression: "string.upper(name) .. '!'",
		Context:    api.Context{"name": api.NewValue("bob")},
	})
	require.NoError(t, err)
	assert.Equal(t, "BOB!", v.Raw())
}

func TestLuaContextShadowsGlobals(t *testing.T) {
	svc := newLuaService(t)

	v, err := svc.Evaluate(&script.Request{
		Expression: "type",
		Context:    api.Context{"type": api.NewValue("custom")},
	})
	require.NoError(t, err)
	assert.Equal(t, "custom", v.Raw())
}

func TestLuaSensitivityFollowsReads(t *testing.T) {
	svc := newLuaService(t)
	ctx := api.Context{
		"user":     api.NewValue("bob"),
		"password": api.NewSensitiveValue("pw"),
		"flag":     api.NewValue(false),
	}

	tests := []struct {
		name      string
		expr      string
		expected  any
		sensitive bool
	}{
		{"plain", "user .. '@host'", "bob@host", false},
		{"secret", "user .. ':' .. password", "bob:pw", true},
		{"untaken branch", "flag and password or user", "bob", false},
		{"taken branch", "(not flag) and password or user", "pw", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := svc.Evaluate(&script.Request{
				Expression: tt.expr,
				Context:    ctx,
			})
			require.NoError(t, err)
			assert.Equal(t, tt.expected, v.Raw())
			assert.Equal(t, tt.sensitive, v.IsSensitive())
		})
	}
}

func TestLuaUnknownName(t *testing.T) {
	svc := newLuaService(t)

	for _, expr := range []string{"missing == nil", "_G", "usr .. 'x'"} {
		_, err := svc.Evaluate(&script.Request{
			Expression: expr,
			Context:    api.Context{"user": api.NewValue("bob")},
		})
		require.Error(t, err, expr)
		assert.ErrorIs(t, err, script.ErrLuaExecution, expr)
		assert.Contains(t, err.Error(), "is not defined", expr)
	}
}

func TestLuaTables(t *testing.T) {
	svc := newLuaService(t)

	v, err := svc.Evaluate(&script.Request{Expression: "{1, 2, 3}"})
	require.NoError(t, err)
	assert.Equal(t, []any{1, 2, 3}, v.Raw())

	v, err = svc.Evaluate(&script.Request{Expression: "{a = 1, b = 'x'}"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": 1, "b": "x"}, v.Raw())

	v, err = svc.Evaluate(&script.Request{
		Expression: "#items",
		Context: api.Context{
			"items": api.NewValue([]any{"a", "b"}),
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, v.Raw())
}

func TestLuaGetSystemProperty(t *testing.T) {
	svc := newLuaService(t)
	props := api.SystemProperties{
		"io.slang.host":     api.NewValue("example.com"),
		"io.slang.password": api.NewSensitiveValue("pw"),
	}
	fns := []api.ScriptFunction{api.FunctionGetSystemProperty}

	v, err := svc.Evaluate(&script.Request{
		Expression: "get_sp('io.slang.host')",
		Props:      props,
		Functions:  fns,
	})
	require.NoError(t, err)
	assert.Equal(t, "example.com", v.Raw())
	assert.False(t, v.IsSensitive())

	v, err = svc.Evaluate(&script.Request{
		Expression: "get_sp('io.slang.missing', 'fallback')",
		Props:      props,
		Functions:  fns,
	})
	require.NoError(t, err)
	assert.Equal(t, "fallback", v.Raw())

	v, err = svc.Evaluate(&script.Request{
		Expression: "get_sp('io.slang.password')",
		Props:      props,
		Functions:  fns,
	})
	require.NoError(t, err)
	assert.Equal(t, "pw", v.Raw())
	assert.True(t, v.IsSensitive())

	v, err = svc.Evaluate(&script.Request{
		Expression: "sys_prop['io.slang.host']",
		Props:      props,
		Functions:  fns,
	})
	require.NoError(t, err)
	assert.Equal(t, "example.com", v.Raw())
}

func TestLuaGetSystemPropertyUndeclared(t *testing.T) {
	svc := newLuaService(t)

	_, err := svc.Evaluate(&script.Request{
		Expression: "get_sp('io.slang.host')",
		Props: api.SystemProperties{
			"io.slang.host": api.NewValue("example.com"),
		},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, script.ErrEvaluation))
	assert.Contains(t, err.Error(),
		"Error in evaluating expression: 'get_sp('io.slang.host')'")
	assert.Contains(t, err.Error(),
		"get_sp('fully.qualified.name', optional_default_value)")
}

func TestLuaCheckEmpty(t *testing.T) {
	svc := newLuaService(t)
	fns := []api.ScriptFunction{api.FunctionCheckEmpty}

	v, err := svc.Evaluate(&script.Request{
		Expression: "check_empty(x, 'dflt')",
		Context:    api.Context{"x": api.NewValue("")},
		Functions:  fns,
	})
	require.NoError(t, err)
	assert.Equal(t, "dflt", v.Raw())

	v, err = svc.Evaluate(&script.Request{
		Expression: "check_empty(x, 'dflt')",
		Context:    api.Context{"x": api.NewValue("set")},
		Functions:  fns,
	})
	require.NoError(t, err)
	assert.Equal(t, "set", v.Raw())
}

func TestLuaUnknownFunction(t *testing.T) {
	svc := newLuaService(t)

	_, err := svc.Evaluate(&script.Request{
		Expression: "1",
		Functions:  []api.ScriptFunction{"bogus"},
	})
	assert.ErrorIs(t, err, script.ErrUnknownFunction)
}

func TestLuaErrorTruncation(t *testing.T) {
	cfg := config.NewDefaultConfig()
	cfg.MaxExpressionLength = 10
	svc, err := script.NewService(cfg)
	require.NoError(t, err)

	expr := strings.Repeat("x", 50) + " +"
	_, err = svc.Evaluate(&script.Request{Expression: expr})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "'xxxxxxxxxx...'")

	var ee *script.EvaluationError
	require.True(t, errors.As(err, &ee))
	assert.Equal(t, "xxxxxxxxxx...", ee.Expression)
}

func TestLuaRuntimeError(t *testing.T) {
	svc := newLuaService(t)

	_, err := svc.Evaluate(&script.Request{
		Expression: "x.y.z",
		Context:    api.Context{"x": api.NewValue(1)},
	})
	assert.ErrorIs(t, err, script.ErrLuaExecution)
}

func TestLuaSandbox(t *testing.T) {
	svc := newLuaService(t)

	for _, expr := range []string{"os.exit(1)", "io.write('x')"} {
		_, err := svc.Evaluate(&script.Request{Expression: expr})
		assert.Error(t, err, expr)
	}
}

func TestLuaExecute(t *testing.T) {
	svc := newLuaService(t)

	out, err := svc.Execute("return { sum = a + b, label = name }",
		api.Context{
			"a":    api.NewValue(1),
			"b":    api.NewValue(2),
			"name": api.NewValue("total"),
		},
	)
	require.NoError(t, err)
	assert.Equal(t, api.Args{"sum": 3, "label": "total"}, out)

	out, err = svc.Execute("return a * 2", api.Context{
		"a": api.NewValue(21),
	})
	require.NoError(t, err)
	assert.Equal(t, api.Args{"result": 42}, out)

	_, err = svc.Execute("return {", nil)
	assert.ErrorIs(t, err, script.ErrLuaLoad)
}

func TestLuaScriptGlobalsStayLocal(t *testing.T) {
	svc := newLuaService(t)

	out, err := svc.Execute("total = a * 2\nreturn { total = total }",
		api.Context{"a": api.NewValue(4)},
	)
	require.NoError(t, err)
	assert.Equal(t, api.Args{"total": 8}, out)

	_, err = svc.Execute("leaked = password\nreturn {}", api.Context{
		"password": api.NewSensitiveValue("hunter2"),
	})
	require.NoError(t, err)

	_, err = svc.Evaluate(&script.Request{Expression: "leaked"})
	assert.ErrorIs(t, err, script.ErrLuaExecution)

	_, err = svc.Execute("return { seen = leaked }", nil)
	assert.ErrorIs(t, err, script.ErrLuaExecution)

	_, err = svc.Execute("_G.leaked = password\nreturn {}", api.Context{
		"password": api.NewSensitiveValue("hunter2"),
	})
	assert.ErrorIs(t, err, script.ErrLuaExecution)

	_, err = svc.Execute("string.leaked = password\nreturn {}", api.Context{
		"password": api.NewSensitiveValue("hunter2"),
	})
	require.NoError(t, err)

	v, err := svc.Evaluate(&script.Request{Expression: "string.leaked"})
	require.NoError(t, err)
	assert.Nil(t, v.Raw())
}

func TestLuaConcurrentEvaluation(t *testing.T) {
	svc := newLuaService(t)

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Go(func() {
			v, err := svc.Evaluate(&script.Request{
				Expression: "n * 2",
				Context:    api.Context{"n": api.NewValue(i)},
			})
			if assert.NoError(t, err) {
				assert.Equal(t, i*2, v.Raw(), fmt.Sprint(i))
			}
		})
	}
	wg.Wait()
}
