package binding

import (
	"errors"
	"fmt"

	"github.com/bilalinamdar/cloud-slang/internal/config"
	"github.com/bilalinamdar/cloud-slang/internal/script"
	"github.com/bilalinamdar/cloud-slang/pkg/api"
)

// Binder resolves named values through an expression evaluator
type Binder struct {
	eval        script.Evaluator
	maxValueLen int
	maxExprLen  int
}

var (
	ErrValueTooLong     = errors.New("value exceeds maximum length")
	ErrNoMatchingResult = errors.New("no result matched")
	ErrNotIterable      = errors.New("loop collection is not iterable")
)

// New creates a Binder using the limits configured in cfg
func New(eval script.Evaluator, cfg *config.Config) *Binder {
	return &Binder{
		eval:        eval,
		maxValueLen: cfg.MaxValueLength,
		maxExprLen:  cfg.MaxExpressionLength,
	}
}

func (b *Binder) evaluate(
	expr string, ctx api.Context, props api.SystemProperties,
	fns []api.ScriptFunction,
) (*api.Value, error) {
	return b.eval.Evaluate(&script.Request{
		Expression: expr,
		Context:    ctx,
		Props:      props,
		Functions:  fns,
	})
}

// validate rejects string values longer than the configured maximum
func (b *Binder) validate(name api.Name, v *api.Value) error {
	s, ok := v.Raw().(string)
	if !ok || len(s) <= b.maxValueLen {
		return nil
	}
	input := s
	if v.IsSensitive() {
		input = api.SensitiveMask
	}
	return b.bindingError(name, input,
		fmt.Errorf("%w of %d characters: '%s'", ErrValueTooLong,
			b.maxValueLen, script.Truncate(input, b.maxExprLen)),
	)
}

func (b *Binder) bindingError(name api.Name, input any, err error) error {
	var s string
	if input != nil {
		s = script.Truncate(fmt.Sprint(input), b.maxExprLen)
	}
	return &api.BindingError{
		Argument: name,
		Input:    s,
		Err:      err,
	}
}
