package builder

import (
	"slices"

	"github.com/bilalinamdar/cloud-slang/pkg/api"
)

// Flow builds an api.Flow
type Flow struct {
	name    api.Name
	inputs  []*Argument
	tasks   []*Task
	outputs []*api.Output
	results []api.Name
}

// NewFlow creates a flow builder with the specified name
func NewFlow(name api.Name) *Flow {
	return &Flow{name: name}
}

// Input declares a flow input with an optional default value
func (f *Flow) Input(name api.Name, def any) *Flow {
	return f.WithInput(NewArgument(name).WithValue(def))
}

// RequiredInput declares an input the caller must supply
func (f *Flow) RequiredInput(name api.Name) *Flow {
	return f.WithInput(NewArgument(name).Required())
}

func (f *Flow) WithInput(arg *Argument) *Flow {
	res := *f
	res.inputs = append(slices.Clone(f.inputs), arg)
	return &res
}

// WithTask appends a task. The first task added is the flow's entry point
func (f *Flow) WithTask(task *Task) *Flow {
	res := *f
	res.tasks = append(slices.Clone(f.tasks), task)
	return &res
}

// Output declares a flow output. A nil value copies the same-named context
// entry when the flow finishes
func (f *Flow) Output(name api.Name, value any) *Flow {
	return f.withOutput(&api.Output{Name: name, Value: value})
}

func (f *Flow) SensitiveOutput(name api.Name, value any) *Flow {
	return f.withOutput(&api.Output{
		Name: name, Value: value, Sensitive: true,
	})
}

func (f *Flow) withOutput(out *api.Output) *Flow {
	res := *f
	res.outputs = append(slices.Clone(f.outputs), out)
	return &res
}

// WithResults replaces the flow's declared results
func (f *Flow) WithResults(results ...api.Name) *Flow {
	res := *f
	res.results = slices.Clone(results)
	return &res
}

func (f *Flow) Build() *api.Flow {
	tasks := make([]*api.Task, len(f.tasks))
	for i, t := range f.tasks {
		tasks[i] = t.Build()
	}
	return &api.Flow{
		Name:    f.name,
		Inputs:  buildArguments(f.inputs),
		Tasks:   tasks,
		Outputs: cloneOutputs(f.outputs),
		Results: slices.Clone(f.results),
	}
}

func cloneOutputs(outs []*api.Output) []*api.Output {
	res := make([]*api.Output, len(outs))
	for i, o := range outs {
		out := *o
		out.Functions = slices.Clone(o.Functions)
		res[i] = &out
	}
	return res
}
