package binding

import (
	"fmt"
	"strings"

	"github.com/bilalinamdar/cloud-slang/pkg/api"
)

// BindResult picks the first result whose condition holds. A result with no
// value or a true value always matches
func (b *Binder) BindResult(
	results []*api.Result, src api.Context, props api.SystemProperties,
) (api.Name, error) {
	for _, r := range results {
		ok, err := b.resultMatches(r, src, props)
		if err != nil {
			return "", err
		}
		if ok {
			return r.Name, nil
		}
	}
	return "", fmt.Errorf("%w among %d declared results",
		ErrNoMatchingResult, len(results))
}

func (b *Binder) resultMatches(
	r *api.Result, src api.Context, props api.SystemProperties,
) (bool, error) {
	if expr, ok := api.ExtractExpression(r.Value); ok {
		v, err := b.evaluate(expr, src, props, r.Functions)
		if err != nil {
			return false, b.bindingError(r.Name, expr, err)
		}
		return truthy(v.Raw()), nil
	}
	return truthy(r.Value) || r.Value == nil, nil
}

func truthy(raw any) bool {
	switch v := raw.(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		return !strings.EqualFold(v, "false") && v != ""
	default:
		return true
	}
}
