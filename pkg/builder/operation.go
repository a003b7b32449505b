package builder

import (
	"slices"

	"github.com/bilalinamdar/cloud-slang/pkg/api"
)

// Operation builds an api.Operation
type Operation struct {
	action  api.Action
	name    api.Name
	inputs  []*Argument
	outputs []*api.Output
	results []*api.Result
}

// NewOperation creates an operation builder with the specified name
func NewOperation(name api.Name) *Operation {
	return &Operation{name: name}
}

func (o *Operation) Input(name api.Name, def any) *Operation {
	return o.WithInput(NewArgument(name).WithValue(def))
}

func (o *Operation) RequiredInput(name api.Name) *Operation {
	return o.WithInput(NewArgument(name).Required())
}

func (o *Operation) WithInput(arg *Argument) *Operation {
	res := *o
	res.inputs = append(slices.Clone(o.inputs), arg)
	return &res
}

// WithScript sets a script action. A script returning a table produces one
// output per key; any other value is returned as "result"
func (o *Operation) WithScript(script string) *Operation {
	res := *o
	res.action = api.Action{Script: script}
	return &res
}

// WithHandler sets an action implemented by a Go handler registered with
// the engine under name
func (o *Operation) WithHandler(name api.Name) *Operation {
	res := *o
	res.action = api.Action{Handler: name}
	return &res
}

func (o *Operation) Output(name api.Name, value any) *Operation {
	return o.withOutput(&api.Output{Name: name, Value: value})
}

func (o *Operation) SensitiveOutput(name api.Name, value any) *Operation {
	return o.withOutput(&api.Output{
		Name: name, Value: value, Sensitive: true,
	})
}

func (o *Operation) withOutput(out *api.Output) *Operation {
	res := *o
	res.outputs = append(slices.Clone(o.outputs), out)
	return &res
}

// Result declares an outcome. Results are tried in declaration order; a
// nil or true value always matches
func (o *Operation) Result(name api.Name, value any) *Operation {
	res := *o
	res.results = append(slices.Clone(o.results),
		&api.Result{Name: name, Value: value},
	)
	return &res
}

func (o *Operation) Build() *api.Operation {
	action := o.action
	results := make([]*api.Result, len(o.results))
	for i, r := range o.results {
		cp := *r
		results[i] = &cp
	}
	return &api.Operation{
		Name:    o.name,
		Action:  &action,
		Inputs:  buildArguments(o.inputs),
		Outputs: cloneOutputs(o.outputs),
		Results: results,
	}
}
