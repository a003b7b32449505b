package api_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bilalinamdar/cloud-slang/pkg/api"
)

func TestContextWithDoesNotMutate(t *testing.T) {
	base := api.Context{"a": api.NewValue(1)}
	next := base.With("b", api.NewValue(2))

	assert.Len(t, base, 1)
	assert.Len(t, next, 2)
	assert.Equal(t, 2, next["b"].Raw())
}

func TestContextMerge(t *testing.T) {
	base := api.Context{
		"a": api.NewValue(1),
		"b": api.NewValue(2),
	}
	delta := api.Context{"b": api.NewSensitiveValue(3)}

	merged := base.Merge(delta)
	assert.Equal(t, 1, merged["a"].Raw())
	assert.Equal(t, 3, merged["b"].Raw())
	assert.True(t, merged.AnySensitive("a", "b"))
	assert.False(t, merged.AnySensitive("a"))
	assert.Equal(t, 2, base["b"].Raw())
}

func TestContextRendering(t *testing.T) {
	ctx := api.ContextFromArgs(api.Args{"user": "bob"}).
		With("password", api.NewSensitiveValue("pw"))

	assert.Equal(t, api.Args{"user": "bob", "password": "pw"}, ctx.Raw())
	assert.Equal(t,
		api.Args{"user": "bob", "password": api.SensitiveMask},
		ctx.Masked(),
	)
}

func TestArgs(t *testing.T) {
	var args api.Args
	args = args.Set("port", float64(22)).Set("host", "localhost")

	assert.Equal(t, 22, args.GetInt("port", 0))
	assert.Equal(t, 7, args.GetInt("missing", 7))
	assert.Equal(t, "localhost", args.GetString("host", ""))
	assert.Equal(t, "x", args.GetString("port", "x"))
	assert.Equal(t, []api.Name{"host", "port"}, args.SortedNames())
}
