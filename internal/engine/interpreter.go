package engine

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/bilalinamdar/cloud-slang/pkg/api"
	"github.com/bilalinamdar/cloud-slang/pkg/log"
)

type (
	// execution interprets the plans of one run. It is owned by a single
	// goroutine
	execution struct {
		engine *Engine
		run    *run
		frames []*frame
		steps  int
	}

	// frame is one executable invocation. Its context layer is private
	// to the frame; a child frame reports back through childResult
	frame struct {
		plan    *api.ExecutionPlan
		vars    api.Context
		action  api.Context
		task    *taskState
		child   *childResult
		result  api.Name
		step    api.StepID
	}

	// taskState tracks the task a frame is currently running, including
	// the progress of a loop
	taskState struct {
		scope     api.Context
		items     []*api.Value
		published []api.Name
		collected map[api.Name][]*api.Value
		begin     api.StepID
		index     int
		loop      bool
	}

	childResult struct {
		outputs api.Context
		result  api.Name
	}
)

func newExecution(e *Engine, r *run) *execution {
	plan := r.artifact.ExecutionPlan()
	return &execution{
		engine: e,
		run:    r,
		frames: []*frame{{
			plan: plan,
			vars: api.ContextFromArgs(r.inputs),
			step: plan.EntryStepID,
		}},
	}
}

// exec steps through the plans until the outermost frame ends, returning
// the result and outputs of the entry executable
func (x *execution) exec() (api.Name, api.Context, error) {
	limit := x.engine.config.MaxSteps
	for {
		if x.run.ctx.Err() != nil {
			return "", nil, ErrRunCancelled
		}
		if x.steps >= limit {
			return "", nil, fmt.Errorf("%w: %d", ErrMaxSteps, limit)
		}

		f := x.top()
		step, ok := f.plan.Step(f.step)
		if !ok || step == nil {
			return "", nil, fmt.Errorf("%w: %d in '%s'",
				ErrInvalidStep, f.step, f.plan.Executable)
		}
		x.steps++
		x.stepStarted(f, step)

		if step.Kind == api.StepEnd {
			result, outputs, err := x.endStep(f, step)
			if err != nil {
				return "", nil, err
			}
			x.frames = x.frames[:len(x.frames)-1]
			if len(x.frames) == 0 {
				return result, outputs, nil
			}
			x.top().child = &childResult{
				result:  result,
				outputs: outputs,
			}
			continue
		}

		if err := x.advance(f, step); err != nil {
			if x.run.ctx.Err() != nil {
				return "", nil, ErrRunCancelled
			}
			return "", nil, err
		}
	}
}

func (x *execution) advance(f *frame, step *api.Step) error {
	switch step.Kind {
	case api.StepStart:
		return x.startStep(f, step)
	case api.StepTaskBegin:
		return x.taskBegin(f, step)
	case api.StepTaskEnd:
		return x.taskEnd(f, step)
	case api.StepAction:
		return x.actionStep(f, step)
	case api.StepResult:
		f.result = step.Result()
		f.step = step.Next()
		return nil
	default:
		return fmt.Errorf("%w: unknown kind '%s'", ErrInvalidStep, step.Kind)
	}
}

func (x *execution) startStep(f *frame, step *api.Step) error {
	vars, err := x.engine.binder.BindInputs(
		step.Inputs(), f.vars, x.run.props,
	)
	if err != nil {
		return err
	}
	f.vars = vars
	f.step = step.Next()
	return nil
}

func (x *execution) taskBegin(f *frame, step *api.Step) error {
	ref := step.Ref()
	child, ok := x.run.artifact.Dependency(ref)
	if !ok {
		return fmt.Errorf("%w: '%s'", ErrMissingPlan, ref)
	}

	if f.task == nil || f.task.begin != step.ID {
		t, err := x.enterTask(f, step)
		if err != nil {
			return err
		}
		f.task = t
	}

	t := f.task
	if t.loop {
		if len(t.items) == 0 {
			return x.finishTask(f, step.Next(), api.ResultSuccess)
		}
		t.scope = f.vars.Merge(t.lists()).With(
			step.Loop().VarName, t.items[t.index],
		)
		x.engine.publish(x.run.id, api.EventLoopIteration,
			api.LoopIterationEvent{
				Task:      step.Name,
				Item:      t.items[t.index].Masked(),
				Iteration: t.index,
				Count:     len(t.items),
			})
	}

	args, err := x.engine.binder.BindArguments(
		step.TaskArguments(), t.scope, x.run.props,
	)
	if err != nil {
		return err
	}

	x.engine.publish(x.run.id, api.EventTaskStarted, api.TaskStartedEvent{
		Executable: f.plan.Executable,
		Task:       step.Name,
		Ref:        ref,
		Iteration:  t.index,
	})

	f.step = step.Next()
	x.frames = append(x.frames, &frame{
		plan: child,
		vars: args,
		step: child.EntryStepID,
	})
	return nil
}

// enterTask prepares a task on arrival from navigation. A loop's
// collection is evaluated here, once
func (x *execution) enterTask(f *frame, step *api.Step) (*taskState, error) {
	t := &taskState{
		begin: step.ID,
		scope: f.vars,
	}
	loop := step.Loop()
	if loop == nil {
		return t, nil
	}

	items, err := x.engine.binder.EvaluateCollection(loop, f.vars, x.run.props)
	if err != nil {
		return nil, err
	}
	t.loop = true
	t.items = items
	t.collected = map[api.Name][]*api.Value{}
	return t, nil
}

func (x *execution) taskEnd(f *frame, step *api.Step) error {
	cr := f.child
	t := f.task
	if cr == nil || t == nil {
		return fmt.Errorf("%w: task '%s' ended without running",
			ErrInvalidStep, step.Name)
	}
	f.child = nil

	src := t.scope.Merge(cr.outputs)
	published, err := x.engine.binder.BindOutputs(
		step.Publish(), src, x.run.props,
	)
	if err != nil {
		return err
	}

	x.engine.metrics.TaskFinished(cr.result)
	x.engine.publish(x.run.id, api.EventTaskFinished, api.TaskFinishedEvent{
		Executable: f.plan.Executable,
		Task:       step.Name,
		Result:     cr.result,
		Outputs:    cr.outputs.Masked(),
		Iteration:  t.index,
	})
	slog.Debug("Task finished",
		log.RunID(x.run.id),
		log.Task(step.Name),
		log.Result(cr.result))

	if !t.loop {
		f.vars = f.vars.Merge(published)
		return x.finishTask(f, step.ID, cr.result)
	}

	t.collect(step.Publish(), published)
	if slices.Contains(step.BreakOn(), cr.result) ||
		t.index+1 >= len(t.items) {
		return x.finishTask(f, step.ID, cr.result)
	}
	t.index++
	f.step = step.BeginStep()
	return nil
}

// finishTask leaves the current task through the navigation entry of its
// end step for result
func (x *execution) finishTask(
	f *frame, endID api.StepID, result api.Name,
) error {
	if t := f.task; t.loop {
		f.vars = f.vars.Merge(t.lists())
	}
	f.task = nil

	end, ok := f.plan.Step(endID)
	if !ok || end == nil {
		return fmt.Errorf("%w: %d in '%s'",
			ErrInvalidStep, endID, f.plan.Executable)
	}
	next, ok := end.Navigation()[result]
	if !ok {
		return &api.NavigationError{Task: end.Name, Result: result}
	}
	f.step = next
	return nil
}

func (x *execution) actionStep(f *frame, step *api.Step) error {
	out, err := x.runAction(f, step.Action())
	if err != nil {
		return err
	}
	f.action = out
	f.step = step.Next()
	return nil
}

func (x *execution) endStep(
	f *frame, step *api.Step,
) (api.Name, api.Context, error) {
	src := f.vars.Merge(f.action)
	outputs, err := x.engine.binder.BindOutputs(
		step.Outputs(), src, x.run.props,
	)
	if err != nil {
		return "", nil, err
	}

	if f.plan.Kind == api.ExecutableFlow {
		return f.result, outputs, nil
	}
	result, err := x.engine.binder.BindResult(step.Results(), src, x.run.props)
	if err != nil {
		return "", nil, fmt.Errorf("'%s': %w", f.plan.Executable, err)
	}
	return result, outputs, nil
}

func (x *execution) top() *frame {
	return x.frames[len(x.frames)-1]
}

func (x *execution) stepStarted(f *frame, step *api.Step) {
	depth := len(x.frames) - 1
	x.run.stepped(api.StepRef{
		Executable: f.plan.Executable,
		StepID:     step.ID,
		Depth:      depth,
	}, x.steps)
	x.engine.metrics.StepExecuted(step.Kind)
	x.engine.publish(x.run.id, api.EventStepStarted, api.StepStartedEvent{
		Executable: f.plan.Executable,
		Name:       step.Name,
		Kind:       step.Kind,
		StepID:     step.ID,
		Depth:      depth,
	})
}

// collect appends one iteration's published values to the loop's lists
func (t *taskState) collect(publish []*api.Output, values api.Context) {
	for _, out := range publish {
		if _, ok := t.collected[out.Name]; !ok {
			t.published = append(t.published, out.Name)
		}
		t.collected[out.Name] = append(t.collected[out.Name], values[out.Name])
	}
}

// lists renders the collected values as one list per published name. A
// list is sensitive if any of its elements is
func (t *taskState) lists() api.Context {
	res := make(api.Context, len(t.published))
	for _, name := range t.published {
		vals := t.collected[name]
		raw := make([]any, len(vals))
		sensitive := false
		for i, v := range vals {
			raw[i] = v.Raw()
			sensitive = sensitive || v.IsSensitive()
		}
		res[name] = api.MakeValue(raw, sensitive)
	}
	return res
}
