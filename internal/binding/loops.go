package binding

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/bilalinamdar/cloud-slang/pkg/api"
)

const listSeparator = ","

// EvaluateCollection evaluates a loop's collection once and returns its
// elements. Lists iterate in order, maps iterate their keys in lexical
// order, and strings iterate their comma-separated parts. Each element
// carries the sensitivity of the collection
func (b *Binder) EvaluateCollection(
	loop *api.ForLoopStatement, src api.Context, props api.SystemProperties,
) ([]*api.Value, error) {
	expr, ok := api.ExtractExpression(loop.CollectionExpression)
	if !ok {
		expr = strings.TrimSpace(loop.CollectionExpression)
	}

	v, err := b.evaluate(expr, src, props, nil)
	if err != nil {
		return nil, b.bindingError(loop.VarName, expr, err)
	}

	raw, err := collectionItems(v.Raw())
	if err != nil {
		return nil, b.bindingError(loop.VarName, expr, err)
	}

	res := make([]*api.Value, len(raw))
	for i, item := range raw {
		res[i] = api.MakeValue(item, v.IsSensitive())
	}
	return res, nil
}

func collectionItems(raw any) ([]any, error) {
	switch c := raw.(type) {
	case []any:
		return c, nil
	case map[string]any:
		res := make([]any, 0, len(c))
		for _, k := range slices.Sorted(maps.Keys(c)) {
			res = append(res, k)
		}
		return res, nil
	case string:
		if strings.TrimSpace(c) == "" {
			return nil, nil
		}
		parts := strings.Split(c, listSeparator)
		res := make([]any, len(parts))
		for i, p := range parts {
			res[i] = strings.TrimSpace(p)
		}
		return res, nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrNotIterable, raw)
	}
}
