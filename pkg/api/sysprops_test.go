package api_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bilalinamdar/cloud-slang/pkg/api"
)

func TestParseSystemProperties(t *testing.T) {
	props, err := api.ParseSystemProperties([]byte(`{
		"io": {"slang": {"host": "example.com", "port": 22}},
		"ratio": 0.5,
		"tags": ["a", "b"],
		"secret": {"password": "pw"}
	}`), "secret.password")
	require.NoError(t, err)

	host, ok := props.Get("io.slang.host")
	require.True(t, ok)
	assert.Equal(t, "example.com", host.Raw())

	port, _ := props.Get("io.slang.port")
	assert.Equal(t, int64(22), port.Raw())

	ratio, _ := props.Get("ratio")
	assert.Equal(t, 0.5, ratio.Raw())

	tags, _ := props.Get("tags")
	assert.Equal(t, []any{"a", "b"}, tags.Raw())

	assert.True(t, props.AnySensitive("secret.password"))
	assert.False(t, props.AnySensitive("io.slang.host"))
	assert.Equal(t, []string{
		"io.slang.host", "io.slang.port", "ratio", "secret.password", "tags",
	}, props.Names())
}

func TestParseSystemPropertiesErrors(t *testing.T) {
	_, err := api.ParseSystemProperties([]byte(`{nope`))
	assert.True(t, errors.Is(err, api.ErrInvalidSystemProperties))

	_, err = api.ParseSystemProperties([]byte(`[1, 2]`))
	assert.True(t, errors.Is(err, api.ErrInvalidSystemProperties))
}

func TestNilSystemProperties(t *testing.T) {
	var props api.SystemProperties
	_, ok := props.Get("anything")
	assert.False(t, ok)
	assert.Empty(t, props.Raw())
}
