package engine

import (
	"context"
	"fmt"

	"github.com/bilalinamdar/cloud-slang/pkg/api"
)

// Handler implements the action of an operation in Go. It receives the
// operation's bound inputs with sensitivity stripped and returns the values
// its outputs and results are computed from
type Handler func(ctx context.Context, inputs api.Args) (api.Args, error)

// runAction performs an operation's primitive action. Its outputs are
// sensitive when any of the operation's inputs were
func (x *execution) runAction(f *frame, act *api.Action) (api.Context, error) {
	if act == nil {
		return nil, fmt.Errorf("%w: '%s' has no action",
			ErrInvalidStep, f.plan.Executable)
	}

	var res api.Args
	var err error
	if act.Handler != "" {
		res, err = x.callHandler(act.Handler, f.vars)
	} else {
		res, err = x.engine.eval.Execute(act.Script, f.vars)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: '%s': %w",
			ErrActionFailed, f.plan.Executable, err)
	}

	sensitive := f.vars.AnySensitive(f.vars.Names()...)
	out := make(api.Context, len(res))
	for k, v := range res {
		out[k] = api.MakeValue(v, sensitive)
	}
	return out, nil
}

func (x *execution) callHandler(
	name api.Name, inputs api.Context,
) (res api.Args, err error) {
	x.engine.mu.RLock()
	h, ok := x.engine.handlers[name]
	x.engine.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownHandler, name)
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: handler '%s' panicked: %v",
				ErrActionFailed, name, r)
		}
	}()
	return h(x.run.ctx, inputs.Raw())
}

// RegisterHandler makes a Go action available to operations that name it
func (e *Engine) RegisterHandler(name api.Name, h Handler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handlers[name] = h
}
