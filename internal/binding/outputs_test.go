package binding_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bilalinamdar/cloud-slang/internal/binding"
	"github.com/bilalinamdar/cloud-slang/pkg/api"
)

func TestBindOutputs(t *testing.T) {
	b := newBinder(t)
	src := api.Context{
		"a":      api.NewValue(2),
		"secret": api.NewSensitiveValue("s"),
	}

	out, err := b.BindOutputs([]*api.Output{
		{Name: "doubled", Value: "${a * 2}"},
		{Name: "a"},
		{Name: "fixed", Value: "constant"},
		{Name: "leak", Value: "${secret}"},
		{Name: "masked", Value: "${a}", Sensitive: true},
	}, src, nil)
	require.NoError(t, err)

	assert.Equal(t, 4, out["doubled"].Raw())
	assert.Equal(t, 2, out["a"].Raw())
	assert.Equal(t, "constant", out["fixed"].Raw())
	assert.True(t, out["leak"].IsSensitive())
	assert.True(t, out["masked"].IsSensitive())
	assert.False(t, out["doubled"].IsSensitive())
}

func TestBindOutputsError(t *testing.T) {
	b := newBinder(t)

	_, err := b.BindOutputs([]*api.Output{
		{Name: "broken", Value: "${)}"},
	}, api.Context{}, nil)
	assert.ErrorIs(t, err, api.ErrBinding)
	assert.Contains(t, err.Error(), "'broken'")
}

func TestBindResult(t *testing.T) {
	b := newBinder(t)
	results := []*api.Result{
		{Name: "CUSTOM", Value: "${code == 3}"},
		{Name: api.ResultFailure, Value: "${code ~= 0}"},
		{Name: api.ResultSuccess},
	}

	tests := []struct {
		code     int
		expected api.Name
	}{
		{3, "CUSTOM"},
		{1, api.ResultFailure},
		{0, api.ResultSuccess},
	}

	for _, tt := range tests {
		res, err := b.BindResult(results, api.Context{
			"code": api.NewValue(tt.code),
		}, nil)
		require.NoError(t, err)
		assert.Equal(t, tt.expected, res)
	}
}

func TestBindResultLiterals(t *testing.T) {
	b := newBinder(t)

	res, err := b.BindResult([]*api.Result{
		{Name: "NEVER", Value: false},
		{Name: "NO", Value: "false"},
		{Name: "YES", Value: true},
	}, api.Context{}, nil)
	require.NoError(t, err)
	assert.Equal(t, api.Name("YES"), res)

	_, err = b.BindResult([]*api.Result{
		{Name: "NEVER", Value: false},
	}, api.Context{}, nil)
	assert.ErrorIs(t, err, binding.ErrNoMatchingResult)
}
