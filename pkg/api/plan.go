package api

import (
	"maps"
	"slices"
)

type (
	// StepID addresses a step within one execution plan. IDs are dense,
	// starting at EndStepID, and stable for the life of the plan
	StepID int64

	// StepKind identifies what the engine does when it reaches a step
	StepKind string

	// Step is one node of a compiled execution plan
	Step struct {
		ActionData map[string]any `json:"action_data"`
		Kind       StepKind       `json:"kind"`
		Name       Name           `json:"name,omitempty"`
		ID         StepID         `json:"id"`
	}

	// ExecutionPlan is the flattened control-flow graph of one executable.
	// Steps are indexed by their ID
	ExecutionPlan struct {
		Executable  Name           `json:"executable"`
		Kind        ExecutableKind `json:"kind"`
		Steps       []*Step        `json:"steps"`
		EntryStepID StepID         `json:"entry_step_id"`
	}

	// CompilationArtifact bundles the plan of an entry executable with the
	// independently compiled plans of everything it references. It is not
	// modified once produced
	CompilationArtifact struct {
		plan         *ExecutionPlan
		dependencies map[Name]*ExecutionPlan
		sysProps     []string
	}
)

const (
	// EndStepID is the terminal step of every plan
	EndStepID StepID = 0

	// StartStepID is the entry step of every plan; it binds the
	// executable's own inputs
	StartStepID StepID = 1
)

const (
	StepStart     StepKind = "start"
	StepTaskBegin StepKind = "task_begin"
	StepTaskEnd   StepKind = "task_end"
	StepAction    StepKind = "action"
	StepResult    StepKind = "result"
	StepEnd       StepKind = "end"
)

// Keys of a step's action data
const (
	KeyInputs        = "inputs"
	KeyTaskArguments = "taskArguments"
	KeyLoop          = "loop"
	KeyNavigation    = "navigation"
	KeyBreakLoop     = "breakOn"
	KeyPublish       = "publish"
	KeyRef           = "ref"
	KeyNext          = "next"
	KeyBeginStep     = "beginStep"
	KeyResult        = "result"
	KeyOutputs       = "outputs"
	KeyResults       = "results"
	KeyAction        = "action"
)

// NewCompilationArtifact bundles a compiled plan with its dependency plans
// and the system property names referenced across all of them
func NewCompilationArtifact(
	plan *ExecutionPlan, deps map[Name]*ExecutionPlan, sysProps []string,
) *CompilationArtifact {
	props := slices.Clone(sysProps)
	slices.Sort(props)
	return &CompilationArtifact{
		plan:         plan,
		dependencies: maps.Clone(deps),
		sysProps:     slices.Compact(props),
	}
}

// ExecutionPlan returns the plan of the entry executable
func (a *CompilationArtifact) ExecutionPlan() *ExecutionPlan {
	return a.plan
}

// Dependency returns the plan of a referenced executable by name. The entry
// executable resolves to its own plan
func (a *CompilationArtifact) Dependency(name Name) (*ExecutionPlan, bool) {
	if name == a.plan.Executable {
		return a.plan, true
	}
	p, ok := a.dependencies[name]
	return p, ok
}

// DependencyNames returns the names of all referenced executables in order
func (a *CompilationArtifact) DependencyNames() []Name {
	return slices.Sorted(maps.Keys(a.dependencies))
}

// SystemPropertyNames returns the fully-qualified system property names
// referenced by any expression in the artifact
func (a *CompilationArtifact) SystemPropertyNames() []string {
	return slices.Clone(a.sysProps)
}

// Step returns the step with the given ID
func (p *ExecutionPlan) Step(id StepID) (*Step, bool) {
	if id < 0 || int(id) >= len(p.Steps) {
		return nil, false
	}
	return p.Steps[id], true
}

// Inputs returns the declared inputs bound by a start step
func (s *Step) Inputs() []*Argument {
	return actionValue[[]*Argument](s, KeyInputs)
}

// TaskArguments returns the bound-input list of a task begin step
func (s *Step) TaskArguments() []*Argument {
	return actionValue[[]*Argument](s, KeyTaskArguments)
}

// Loop returns the loop statement of a task step, or nil
func (s *Step) Loop() *ForLoopStatement {
	return actionValue[*ForLoopStatement](s, KeyLoop)
}

// Navigation returns the result-to-step table of a task end step
func (s *Step) Navigation() map[Name]StepID {
	return actionValue[map[Name]StepID](s, KeyNavigation)
}

// BreakOn returns the break-result set of a looping task end step
func (s *Step) BreakOn() []Name {
	return actionValue[[]Name](s, KeyBreakLoop)
}

// Publish returns the outputs a task end step publishes
func (s *Step) Publish() []*Output {
	return actionValue[[]*Output](s, KeyPublish)
}

// Ref returns the executable a task step invokes
func (s *Step) Ref() Name {
	return actionValue[Name](s, KeyRef)
}

// Next returns the unconditional successor of a step
func (s *Step) Next() StepID {
	return actionValue[StepID](s, KeyNext)
}

// BeginStep returns the task begin step paired with a task end step
func (s *Step) BeginStep() StepID {
	return actionValue[StepID](s, KeyBeginStep)
}

// Result returns the flow result a result step sets
func (s *Step) Result() Name {
	return actionValue[Name](s, KeyResult)
}

// Outputs returns the declared outputs bound by an end step
func (s *Step) Outputs() []*Output {
	return actionValue[[]*Output](s, KeyOutputs)
}

// Results returns the operation results evaluated by an end step
func (s *Step) Results() []*Result {
	return actionValue[[]*Result](s, KeyResults)
}

// Action returns the primitive action of an operation action step
func (s *Step) Action() *Action {
	return actionValue[*Action](s, KeyAction)
}

func actionValue[T any](s *Step, key string) T {
	if v, ok := s.ActionData[key].(T); ok {
		return v
	}
	var zero T
	return zero
}
