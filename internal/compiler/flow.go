package compiler

import (
	"maps"
	"slices"

	"github.com/bilalinamdar/cloud-slang/pkg/api"
	"github.com/bilalinamdar/cloud-slang/pkg/util"
)

// flowLayout assigns step IDs within one flow plan
type flowLayout struct {
	flow    *api.Flow
	tasks   map[api.Name]int
	results map[api.Name]api.StepID
}

const firstTaskStepID api.StepID = 2

func (b *builder) compileFlow(f *api.Flow) (*api.ExecutionPlan, error) {
	if len(f.Tasks) == 0 {
		return nil, compileError(f.Name, ErrEmptyFlow, "no tasks declared")
	}
	if err := checkArguments(f.Name, f.Inputs); err != nil {
		return nil, err
	}
	if err := checkOutputs(f.Name, f.Outputs); err != nil {
		return nil, err
	}

	l, err := newFlowLayout(f)
	if err != nil {
		return nil, err
	}

	b.collectArguments(f.Inputs)
	b.collectOutputs(f.Outputs)

	results := f.DeclaredResults()
	steps := make([]*api.Step, int(firstTaskStepID)+2*len(f.Tasks)+len(results))
	steps[api.EndStepID] = &api.Step{
		ID:   api.EndStepID,
		Kind: api.StepEnd,
		Name: f.Name,
		ActionData: map[string]any{
			api.KeyOutputs: f.Outputs,
		},
	}
	steps[api.StartStepID] = &api.Step{
		ID:   api.StartStepID,
		Kind: api.StepStart,
		Name: f.Name,
		ActionData: map[string]any{
			api.KeyInputs: f.Inputs,
			api.KeyNext:   firstTaskStepID,
		},
	}

	for _, t := range f.Tasks {
		begin, end, err := b.compileTask(l, t)
		if err != nil {
			return nil, err
		}
		steps[begin.ID] = begin
		steps[end.ID] = end
	}

	for _, r := range results {
		id := l.results[r]
		steps[id] = &api.Step{
			ID:   id,
			Kind: api.StepResult,
			Name: r,
			ActionData: map[string]any{
				api.KeyResult: r,
				api.KeyNext:   api.EndStepID,
			},
		}
	}

	return &api.ExecutionPlan{
		Executable:  f.Name,
		Kind:        api.ExecutableFlow,
		Steps:       steps,
		EntryStepID: api.StartStepID,
	}, nil
}

func newFlowLayout(f *api.Flow) (*flowLayout, error) {
	l := &flowLayout{
		flow:    f,
		tasks:   make(map[api.Name]int, len(f.Tasks)),
		results: map[api.Name]api.StepID{},
	}
	for i, t := range f.Tasks {
		if _, ok := l.tasks[t.Name]; ok {
			return nil, compileError(f.Name, ErrDuplicateTask,
				"task '%s' is declared more than once", t.Name)
		}
		l.tasks[t.Name] = i
	}

	next := firstTaskStepID + api.StepID(2*len(f.Tasks))
	for _, r := range f.DeclaredResults() {
		if _, ok := l.results[r]; ok {
			return nil, compileError(f.Name, ErrDuplicateResult,
				"result '%s' is declared more than once", r)
		}
		if _, ok := l.tasks[r]; ok {
			return nil, compileError(f.Name, ErrDuplicateTask,
				"task '%s' has the same name as a flow result", r)
		}
		l.results[r] = next
		next++
	}
	return l, nil
}

func (l *flowLayout) beginStep(idx int) api.StepID {
	return firstTaskStepID + api.StepID(2*idx)
}

// target resolves a navigation target to the step it names: the begin step
// of a task or the step of a flow result
func (l *flowLayout) target(name api.Name) (api.StepID, bool) {
	if idx, ok := l.tasks[name]; ok {
		return l.beginStep(idx), true
	}
	id, ok := l.results[name]
	return id, ok
}

func (b *builder) compileTask(
	l *flowLayout, t *api.Task,
) (*api.Step, *api.Step, error) {
	flow := l.flow.Name
	child, ok := b.library[t.Ref]
	if !ok {
		return nil, nil, compileError(flow, ErrMissingDependency,
			"task '%s' references '%s', which was not provided", t.Name, t.Ref)
	}
	if err := checkArguments(flow, t.Pre.Arguments); err != nil {
		return nil, nil, err
	}
	if err := checkOutputs(flow, t.Post.Publish); err != nil {
		return nil, nil, err
	}
	if err := checkLoop(flow, t); err != nil {
		return nil, nil, err
	}

	declared := util.SetOf(child.DeclaredResults()...)
	nav, err := l.navigation(t, child.DeclaredResults(), declared)
	if err != nil {
		return nil, nil, err
	}
	for _, r := range t.Post.BreakOn {
		if !declared.Contains(r) {
			return nil, nil, compileError(flow, ErrUnknownResult,
				"task '%s' breaks on '%s', which '%s' does not declare",
				t.Name, r, t.Ref)
		}
	}

	b.collectArguments(t.Pre.Arguments)
	b.collectOutputs(t.Post.Publish)

	beginID := l.beginStep(l.tasks[t.Name])
	endID := beginID + 1
	begin := &api.Step{
		ID:   beginID,
		Kind: api.StepTaskBegin,
		Name: t.Name,
		ActionData: map[string]any{
			api.KeyTaskArguments: t.Pre.Arguments,
			api.KeyRef:           t.Ref,
			api.KeyNext:          endID,
		},
	}
	end := &api.Step{
		ID:   endID,
		Kind: api.StepTaskEnd,
		Name: t.Name,
		ActionData: map[string]any{
			api.KeyPublish:    t.Post.Publish,
			api.KeyNavigation: nav,
			api.KeyRef:        t.Ref,
			api.KeyBeginStep:  beginID,
		},
	}
	if t.IsLoop() {
		loop := *t.Pre.Loop
		begin.ActionData[api.KeyLoop] = &loop
		b.collectValue(loop.CollectionExpression)
		end.ActionData[api.KeyBreakLoop] = slices.Clone(t.BreakOn())
	}
	return begin, end, nil
}

func (l *flowLayout) navigation(
	t *api.Task, results []api.Name, declared util.Set[api.Name],
) (map[api.Name]api.StepID, error) {
	flow := l.flow.Name
	for _, r := range results {
		if _, ok := t.Post.Navigation[r]; !ok {
			return nil, compileError(flow, ErrMissingNavigation,
				"task '%s' has no navigation for result '%s' of '%s'",
				t.Name, r, t.Ref)
		}
	}

	nav := make(map[api.Name]api.StepID, len(t.Post.Navigation))
	for _, r := range slices.Sorted(maps.Keys(t.Post.Navigation)) {
		if !declared.Contains(r) {
			return nil, compileError(flow, ErrUnknownResult,
				"task '%s' navigates on '%s', which '%s' does not declare",
				t.Name, r, t.Ref)
		}
		dest := t.Post.Navigation[r]
		id, ok := l.target(dest)
		if !ok {
			return nil, compileError(flow, ErrUnknownTarget,
				"task '%s' navigates '%s' to '%s', which is neither a task "+
					"nor a flow result", t.Name, r, dest)
		}
		nav[r] = id
	}
	return nav, nil
}

func checkLoop(flow api.Name, t *api.Task) error {
	loop := t.Pre.Loop
	if loop == nil {
		if len(t.Post.BreakOn) > 0 {
			return compileError(flow, ErrInvalidLoop,
				"task '%s' declares a break set but does not loop", t.Name)
		}
		return nil
	}
	if loop.VarName == "" || loop.CollectionExpression == "" {
		return compileError(flow, ErrInvalidLoop,
			"task '%s' needs a loop variable and a collection", t.Name)
	}
	// an empty collection finishes the task with SUCCESS
	if _, ok := t.Post.Navigation[api.ResultSuccess]; !ok {
		return compileError(flow, ErrMissingNavigation,
			"looping task '%s' has no navigation for result '%s'",
			t.Name, api.ResultSuccess)
	}
	return nil
}
