package builder

import (
	"maps"
	"slices"

	"github.com/bilalinamdar/cloud-slang/pkg/api"
)

// Task builds an api.Task
type Task struct {
	loop       *api.ForLoopStatement
	name       api.Name
	ref        api.Name
	args       []*Argument
	navigation map[api.Name]api.Name
	publish    []*api.Output
	breakOn    []api.Name
}

// NewTask creates a task builder invoking the executable named ref
func NewTask(name, ref api.Name) *Task {
	return &Task{
		name:       name,
		ref:        ref,
		navigation: map[api.Name]api.Name{},
	}
}

// Arg binds a task argument from a literal or ${...} expression value
func (t *Task) Arg(name api.Name, value any) *Task {
	return t.WithArg(NewArgument(name).WithValue(value).Private())
}

// PassArg passes the same-named value of the flow's context through to the
// invoked executable
func (t *Task) PassArg(name api.Name) *Task {
	return t.WithArg(NewArgument(name))
}

func (t *Task) WithArg(arg *Argument) *Task {
	res := *t
	res.args = append(slices.Clone(t.args), arg)
	return &res
}

// Loop makes the task iterate, binding varName to each element of the
// collection
func (t *Task) Loop(varName api.Name, collection string) *Task {
	res := *t
	res.loop = &api.ForLoopStatement{
		VarName:              varName,
		CollectionExpression: collection,
	}
	return &res
}

// Publish copies a value into the flow's context once the task finishes.
// A nil value publishes the invoked executable's same-named output
func (t *Task) Publish(name api.Name, value any) *Task {
	res := *t
	res.publish = append(slices.Clone(t.publish),
		&api.Output{Name: name, Value: value},
	)
	return &res
}

// Navigate routes a result of the invoked executable to a task or flow
// result
func (t *Task) Navigate(result, target api.Name) *Task {
	res := *t
	res.navigation = maps.Clone(t.navigation)
	res.navigation[result] = target
	return &res
}

// BreakOn sets the results that end a loop early
func (t *Task) BreakOn(results ...api.Name) *Task {
	res := *t
	res.breakOn = append([]api.Name{}, results...)
	return &res
}

func (t *Task) Build() *api.Task {
	var loop *api.ForLoopStatement
	if t.loop != nil {
		l := *t.loop
		loop = &l
	}
	return &api.Task{
		Name: t.name,
		Ref:  t.ref,
		Pre: api.PreTask{
			Loop:      loop,
			Arguments: buildArguments(t.args),
		},
		Post: api.PostTask{
			Navigation: maps.Clone(t.navigation),
			Publish:    cloneOutputs(t.publish),
			BreakOn:    slices.Clone(t.breakOn),
		},
	}
}
