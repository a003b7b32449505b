package binding

import (
	"github.com/bilalinamdar/cloud-slang/pkg/api"
)

// BindInputs binds an executable's declared inputs from the values its
// caller supplied. A non-private input whose caller supplied nothing falls
// back to its declared value, evaluated like a private one. Required inputs
// that end up absent or empty fail with a ValidationError
func (b *Binder) BindInputs(
	inputs []*api.Argument, supplied api.Context, props api.SystemProperties,
) (api.Context, error) {
	args := make([]*api.Argument, len(inputs))
	for i, in := range inputs {
		args[i] = in
		if in.Private || in.Value == nil || !supplied[in.Name].IsNil() {
			continue
		}
		def := *in
		def.Private = true
		args[i] = &def
	}

	delta, err := b.BindArguments(args, supplied, props)
	if err != nil {
		return nil, err
	}

	for _, in := range inputs {
		if in.Required && isEmpty(delta[in.Name]) {
			return nil, &api.ValidationError{Input: in.Name}
		}
	}
	return delta, nil
}

func isEmpty(v *api.Value) bool {
	if v.IsNil() {
		return true
	}
	s, ok := v.Raw().(string)
	return ok && s == ""
}
