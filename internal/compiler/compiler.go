package compiler

import (
	"errors"
	"fmt"

	"github.com/bilalinamdar/cloud-slang/pkg/api"
	"github.com/bilalinamdar/cloud-slang/pkg/util"
)

type builder struct {
	library  map[api.Name]api.Executable
	plans    map[api.Name]*api.ExecutionPlan
	sysProps util.Set[string]
}

var (
	ErrNoExecutable        = errors.New("an executable is required")
	ErrDuplicateExecutable = errors.New("duplicate executable name")
	ErrMissingDependency   = errors.New("missing dependency")
	ErrEmptyFlow           = errors.New("flow has no tasks")
	ErrDuplicateTask       = errors.New("duplicate task name")
	ErrDuplicateArgument   = errors.New("duplicate argument name")
	ErrDuplicateResult     = errors.New("duplicate result name")
	ErrMissingNavigation   = errors.New("missing navigation")
	ErrUnknownResult       = errors.New("result not declared by executable")
	ErrUnknownTarget       = errors.New("unknown navigation target")
	ErrInvalidLoop         = errors.New("invalid loop statement")
	ErrInvalidAction       = errors.New("invalid operation action")
	ErrNoResults           = errors.New("operation declares no results")
)

// Compile builds the execution plan of exe and of every executable it
// transitively references. Dependencies are looked up by name in deps; the
// entry executable need not be listed there
func Compile(
	exe api.Executable, deps []api.Executable,
) (*api.CompilationArtifact, error) {
	if exe == nil {
		return nil, ErrNoExecutable
	}

	b := &builder{
		library:  map[api.Name]api.Executable{},
		plans:    map[api.Name]*api.ExecutionPlan{},
		sysProps: util.Set[string]{},
	}
	if err := b.register(exe); err != nil {
		return nil, err
	}
	for _, dep := range deps {
		if err := b.register(dep); err != nil {
			return nil, err
		}
	}

	if err := b.compileAll(exe.ExecutableName()); err != nil {
		return nil, err
	}

	entry := b.plans[exe.ExecutableName()]
	delete(b.plans, exe.ExecutableName())
	return api.NewCompilationArtifact(
		entry, b.plans, util.Sorted(b.sysProps),
	), nil
}

func (b *builder) register(exe api.Executable) error {
	if exe == nil {
		return nil
	}
	name := exe.ExecutableName()
	if prev, ok := b.library[name]; ok && prev != exe {
		return compileError(name, ErrDuplicateExecutable,
			"executable '%s' is defined more than once", name)
	}
	b.library[name] = exe
	return nil
}

// compileAll compiles the named executable and everything reachable from
// it, breadth first
func (b *builder) compileAll(entry api.Name) error {
	queue := []api.Name{entry}
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		if _, ok := b.plans[name]; ok {
			continue
		}

		exe := b.library[name]
		var plan *api.ExecutionPlan
		var err error
		switch e := exe.(type) {
		case *api.Flow:
			plan, err = b.compileFlow(e)
			if err == nil {
				for _, t := range e.Tasks {
					queue = append(queue, t.Ref)
				}
			}
		case *api.Operation:
			plan, err = b.compileOperation(e)
		default:
			err = fmt.Errorf("%w: %T", ErrNoExecutable, exe)
		}
		if err != nil {
			return err
		}
		b.plans[name] = plan
	}
	return nil
}

func (b *builder) compileOperation(op *api.Operation) (*api.ExecutionPlan, error) {
	if err := checkArguments(op.Name, op.Inputs); err != nil {
		return nil, err
	}
	if err := checkOutputs(op.Name, op.Outputs); err != nil {
		return nil, err
	}
	if err := checkAction(op); err != nil {
		return nil, err
	}
	if err := checkResults(op); err != nil {
		return nil, err
	}

	b.collectArguments(op.Inputs)
	b.collectOutputs(op.Outputs)
	for _, r := range op.Results {
		b.collectValue(r.Value)
	}

	steps := make([]*api.Step, 3)
	steps[api.EndStepID] = &api.Step{
		ID:   api.EndStepID,
		Kind: api.StepEnd,
		Name: op.Name,
		ActionData: map[string]any{
			api.KeyOutputs: op.Outputs,
			api.KeyResults: op.Results,
		},
	}
	steps[api.StartStepID] = &api.Step{
		ID:   api.StartStepID,
		Kind: api.StepStart,
		Name: op.Name,
		ActionData: map[string]any{
			api.KeyInputs: op.Inputs,
			api.KeyNext:   operationActionStepID,
		},
	}
	steps[operationActionStepID] = &api.Step{
		ID:   operationActionStepID,
		Kind: api.StepAction,
		Name: op.Name,
		ActionData: map[string]any{
			api.KeyAction: op.Action,
			api.KeyNext:   api.EndStepID,
		},
	}

	return &api.ExecutionPlan{
		Executable:  op.Name,
		Kind:        api.ExecutableOperation,
		Steps:       steps,
		EntryStepID: api.StartStepID,
	}, nil
}

// operationActionStepID is the step that runs an operation's action
const operationActionStepID api.StepID = 2

func checkAction(op *api.Operation) error {
	a := op.Action
	switch {
	case a == nil, a.Script == "" && a.Handler == "":
		return compileError(op.Name, ErrInvalidAction,
			"operation has no script or handler")
	case a.Script != "" && a.Handler != "":
		return compileError(op.Name, ErrInvalidAction,
			"operation declares both a script and handler '%s'", a.Handler)
	}
	return nil
}

func checkResults(op *api.Operation) error {
	if len(op.Results) == 0 {
		return compileError(op.Name, ErrNoResults, "no results declared")
	}
	seen := util.Set[api.Name]{}
	for _, r := range op.Results {
		if seen.Contains(r.Name) {
			return compileError(op.Name, ErrDuplicateResult,
				"result '%s' is declared more than once", r.Name)
		}
		seen.Add(r.Name)
	}
	return nil
}

func checkArguments(exe api.Name, args []*api.Argument) error {
	seen := util.Set[api.Name]{}
	for _, a := range args {
		if seen.Contains(a.Name) {
			return compileError(exe, ErrDuplicateArgument,
				"argument '%s' is declared more than once", a.Name)
		}
		seen.Add(a.Name)
	}
	return nil
}

func checkOutputs(exe api.Name, outs []*api.Output) error {
	seen := util.Set[api.Name]{}
	for _, o := range outs {
		if seen.Contains(o.Name) {
			return compileError(exe, ErrDuplicateArgument,
				"output '%s' is declared more than once", o.Name)
		}
		seen.Add(o.Name)
	}
	return nil
}

func compileError(
	exe api.Name, err error, format string, args ...any,
) error {
	return &api.CompilationError{
		Executable: exe,
		Message:    fmt.Sprintf(format, args...),
		Err:        err,
	}
}
