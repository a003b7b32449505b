package binding

import (
	"maps"

	"github.com/bilalinamdar/cloud-slang/pkg/api"
)

// Bindings is the outcome of binding an argument list: the context delta
// and the prompt message resolved for each argument that declares one
type Bindings struct {
	Delta   api.Context
	Prompts map[api.Name]string
}

// BindArguments resolves arguments in declared order into a context delta.
// Each argument sees the values bound before it in the same call
func (b *Binder) BindArguments(
	args []*api.Argument, src api.Context, props api.SystemProperties,
) (api.Context, error) {
	res, err := b.Bind(args, src, props)
	if err != nil {
		return nil, err
	}
	return res.Delta, nil
}

// Bind is BindArguments that also reports resolved prompt messages. Prompt
// messages are resolved into the result; the declared Prompt is never
// modified
func (b *Binder) Bind(
	args []*api.Argument, src api.Context, props api.SystemProperties,
) (*Bindings, error) {
	res := &Bindings{
		Delta:   api.Context{},
		Prompts: map[api.Name]string{},
	}
	for _, arg := range args {
		v, err := b.bindArgument(arg, src, props, res)
		if err != nil {
			return nil, err
		}
		res.Delta[arg.Name] = v
	}
	return res, nil
}

func (b *Binder) bindArgument(
	arg *api.Argument, src api.Context, props api.SystemProperties,
	res *Bindings,
) (*api.Value, error) {
	candidate := src[arg.Name]
	value := candidate

	if arg.Private {
		if expr, ok := api.ExtractExpression(arg.Value); ok {
			ctx := b.argumentContext(arg.Name, candidate, src, res.Delta)
			v, err := b.evaluate(expr, ctx, props, arg.Functions)
			if err != nil {
				return nil, b.bindingError(arg.Name, expr, err)
			}
			value = v
		} else {
			value = api.NewValue(arg.Value)
		}
	}

	if arg.Prompt != nil {
		msg := arg.Prompt.Message
		if expr, ok := api.ExtractExpression(msg); ok {
			ctx := b.argumentContext(arg.Name, candidate, src, res.Delta)
			v, err := b.evaluate(expr, ctx, props, arg.Functions)
			if err == nil && !v.IsNil() {
				msg = v.String()
			}
		}
		res.Prompts[arg.Name] = msg
	}

	value = value.WithSensitivity(arg.Sensitive)

	if err := b.validate(arg.Name, value); err != nil {
		return nil, err
	}
	return value, nil
}

// argumentContext builds the evaluation context for one argument: the source
// context, the argument's own candidate value, then everything bound so far
func (b *Binder) argumentContext(
	name api.Name, candidate *api.Value, src, bound api.Context,
) api.Context {
	ctx := make(api.Context, len(src)+len(bound)+1)
	maps.Copy(ctx, src)
	ctx[name] = candidate
	maps.Copy(ctx, bound)
	return ctx
}
