package api_test

import (
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bilalinamdar/cloud-slang/pkg/api"
)

func TestValueSensitivity(t *testing.T) {
	plain := api.NewValue("visible")
	assert.False(t, plain.IsSensitive())
	assert.Equal(t, "visible", plain.String())
	assert.Equal(t, "visible", plain.Masked())

	secret := api.NewSensitiveValue("hunter2")
	assert.True(t, secret.IsSensitive())
	assert.Equal(t, "hunter2", secret.Raw())
	assert.Equal(t, api.SensitiveMask, secret.String())
	assert.Equal(t, api.SensitiveMask, secret.Masked())
}

func TestWithSensitivityNeverClears(t *testing.T) {
	secret := api.NewSensitiveValue(1)
	assert.True(t, secret.WithSensitivity(false).IsSensitive())

	plain := api.NewValue(1)
	assert.False(t, plain.WithSensitivity(false).IsSensitive())

	marked := plain.WithSensitivity(true)
	assert.True(t, marked.IsSensitive())
	assert.False(t, plain.IsSensitive())
	assert.Equal(t, 1, marked.Raw())
}

func TestNilValue(t *testing.T) {
	var v *api.Value
	assert.Nil(t, v.Raw())
	assert.True(t, v.IsNil())
	assert.False(t, v.IsSensitive())
	assert.Equal(t, "", v.String())
	assert.True(t, v.WithSensitivity(true).IsSensitive())
}

func TestValueRendering(t *testing.T) {
	data, err := json.Marshal(map[string]*api.Value{
		"a": api.NewValue(4),
		"b": api.NewSensitiveValue("pw"),
	})
	assert.NoError(t, err)
	assert.JSONEq(t, `{"a":4,"b":"********"}`, string(data))

	lv := api.NewSensitiveValue("pw").LogValue()
	assert.Equal(t, slog.KindString, lv.Kind())
	assert.Equal(t, api.SensitiveMask, lv.String())

	assert.Equal(t, "42", api.NewValue(42).String())
}
