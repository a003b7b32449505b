package binding

import (
	"github.com/bilalinamdar/cloud-slang/pkg/api"
)

// BindOutputs computes declared outputs against a source context. An output
// without a value copies the same-named entry of the source context
func (b *Binder) BindOutputs(
	outputs []*api.Output, src api.Context, props api.SystemProperties,
) (api.Context, error) {
	res := make(api.Context, len(outputs))
	for _, out := range outputs {
		var value *api.Value
		switch expr, ok := api.ExtractExpression(out.Value); {
		case ok:
			v, err := b.evaluate(expr, src, props, out.Functions)
			if err != nil {
				return nil, b.bindingError(out.Name, expr, err)
			}
			value = v
		case out.Value == nil:
			value = src[out.Name]
		default:
			value = api.NewValue(out.Value)
		}

		value = value.WithSensitivity(out.Sensitive)
		if err := b.validate(out.Name, value); err != nil {
			return nil, err
		}
		res[out.Name] = value
	}
	return res, nil
}
