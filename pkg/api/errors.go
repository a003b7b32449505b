package api

import (
	"errors"
	"fmt"
)

type (
	// CompilationError aborts compilation. No partial artifact accompanies
	// it
	CompilationError struct {
		Err        error
		Executable Name
		Message    string
	}

	// BindingError reports a failure to bind a named input, output or
	// result. Input holds a bounded rendering of the offending expression or
	// value
	BindingError struct {
		Err      error
		Argument Name
		Input    string
	}

	// ValidationError reports a required input that is absent or empty
	ValidationError struct {
		Input Name
	}

	// NavigationError reports a task result with no navigation entry
	NavigationError struct {
		Task   Name
		Result Name
	}
)

var (
	ErrCompilation = errors.New("compilation error")
	ErrBinding     = errors.New("binding error")
	ErrValidation  = errors.New("validation error")
	ErrNavigation  = errors.New("navigation error")
)

// NewCompilationError creates a compilation error for an executable
func NewCompilationError(exe Name, format string, args ...any) error {
	return &CompilationError{
		Executable: exe,
		Message:    fmt.Sprintf(format, args...),
	}
}

func (e *CompilationError) Error() string {
	msg := fmt.Sprintf("%s: compiling '%s': %s",
		ErrCompilation, e.Executable, e.Message)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *CompilationError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrCompilation}
	}
	return []error{ErrCompilation, e.Err}
}

func (e *BindingError) Error() string {
	return fmt.Sprintf("Error binding step input: '%s', \n\tError is: %s",
		e.Argument, e.Err)
}

func (e *BindingError) Unwrap() []error {
	return []error{ErrBinding, e.Err}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("Input with name: '%s' is Required, but value is empty",
		e.Input)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

func (e *NavigationError) Error() string {
	return fmt.Sprintf(
		"Task '%s' finished with result '%s' which has no navigation entry",
		e.Task, e.Result,
	)
}

func (e *NavigationError) Unwrap() error {
	return ErrNavigation
}
