package api_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bilalinamdar/cloud-slang/pkg/api"
)

func TestBindingErrorPrefix(t *testing.T) {
	cause := errors.New("boom")
	err := &api.BindingError{Argument: "host", Err: cause}

	assert.Equal(t,
		"Error binding step input: 'host', \n\tError is: boom", err.Error(),
	)
	assert.ErrorIs(t, err, api.ErrBinding)
	assert.ErrorIs(t, err, cause)
}

func TestValidationError(t *testing.T) {
	err := &api.ValidationError{Input: "input1"}
	assert.Contains(t, err.Error(), "input1")
	assert.Contains(t, err.Error(), "Required")
	assert.ErrorIs(t, err, api.ErrValidation)
}

func TestNavigationError(t *testing.T) {
	err := &api.NavigationError{Task: "Task1", Result: "CUSTOM"}
	assert.Contains(t, err.Error(), "Task1")
	assert.Contains(t, err.Error(), "CUSTOM")
	assert.Contains(t, err.Error(), "navigation")
	assert.ErrorIs(t, err, api.ErrNavigation)
}

func TestCompilationError(t *testing.T) {
	err := api.NewCompilationError("flow", "task '%s' is broken", "Task1")
	assert.ErrorIs(t, err, api.ErrCompilation)
	assert.Contains(t, err.Error(), "flow")
	assert.Contains(t, err.Error(), "Task1")

	var ce *api.CompilationError
	assert.True(t, errors.As(err, &ce))
	assert.Equal(t, api.Name("flow"), ce.Executable)
}
