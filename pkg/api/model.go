package api

type (
	// Executable is a named unit of work: either a Flow or an Operation
	Executable interface {
		ExecutableName() Name
		Kind() ExecutableKind
		DeclaredInputs() []*Argument
		DeclaredOutputs() []*Output
		DeclaredResults() []Name
		executable()
	}

	// ExecutableKind distinguishes the Executable variants
	ExecutableKind string

	// Argument is a declared input of a flow, operation or task
	Argument struct {
		Prompt    *Prompt          `json:"prompt,omitempty"`
		Value     any              `json:"value,omitempty"`
		Name      Name             `json:"name"`
		Functions []ScriptFunction `json:"functions,omitempty"`
		Sensitive bool             `json:"sensitive,omitempty"`
		Private   bool             `json:"private,omitempty"`
		Required  bool             `json:"required,omitempty"`
	}

	// Prompt is an interactive default-value prompt attached to an argument.
	// Its message may itself be expression-shaped
	Prompt struct {
		Message string `json:"message"`
	}

	// ForLoopStatement iterates a task over the elements produced by its
	// collection expression, binding each to VarName
	ForLoopStatement struct {
		VarName              Name   `json:"var_name"`
		CollectionExpression string `json:"collection_expression"`
	}

	// Output is a named value computed when an executable finishes, or a
	// value published by a task into its flow's context
	Output struct {
		Value     any              `json:"value,omitempty"`
		Name      Name             `json:"name"`
		Functions []ScriptFunction `json:"functions,omitempty"`
		Sensitive bool             `json:"sensitive,omitempty"`
	}

	// Result is an operation outcome. A nil or true Value always matches;
	// otherwise Value is an expression evaluated for truthiness
	Result struct {
		Value     any              `json:"value,omitempty"`
		Name      Name             `json:"name"`
		Functions []ScriptFunction `json:"functions,omitempty"`
	}

	// Task is one node in a flow's workflow, invoking the executable named by
	// Ref
	Task struct {
		Name Name     `json:"name"`
		Ref  Name     `json:"ref"`
		Pre  PreTask  `json:"pre"`
		Post PostTask `json:"post"`
	}

	// PreTask holds the data a task needs before its executable runs
	PreTask struct {
		Loop      *ForLoopStatement `json:"loop,omitempty"`
		Arguments []*Argument       `json:"arguments,omitempty"`
	}

	// PostTask holds the data a task needs after its executable returns.
	// Navigation maps each child result to a task name or a flow result
	PostTask struct {
		Navigation map[Name]Name `json:"navigation"`
		Publish    []*Output     `json:"publish,omitempty"`
		BreakOn    []Name        `json:"break,omitempty"`
	}

	// Flow is an executable composed of an ordered list of tasks. The first
	// task is the entry point
	Flow struct {
		Name    Name        `json:"name"`
		Inputs  []*Argument `json:"inputs,omitempty"`
		Tasks   []*Task     `json:"tasks"`
		Outputs []*Output   `json:"outputs,omitempty"`
		Results []Name      `json:"results"`
	}

	// Operation is an executable wrapping a primitive action
	Operation struct {
		Action  *Action     `json:"action"`
		Name    Name        `json:"name"`
		Inputs  []*Argument `json:"inputs,omitempty"`
		Outputs []*Output   `json:"outputs,omitempty"`
		Results []*Result   `json:"results"`
	}

	// Action is an operation's primitive behavior: either a script run
	// against the operation's inputs, or the name of a Go handler registered
	// with the engine
	Action struct {
		Script  string `json:"script,omitempty"`
		Handler Name   `json:"handler,omitempty"`
	}
)

const (
	ExecutableFlow      ExecutableKind = "flow"
	ExecutableOperation ExecutableKind = "operation"
)

const (
	ResultSuccess Name = "SUCCESS"
	ResultFailure Name = "FAILURE"
)

// DefaultResults are the results a flow declares when it names none
var DefaultResults = []Name{ResultSuccess, ResultFailure}

// DefaultBreakOn is the break set of a looping task that declares none
var DefaultBreakOn = []Name{ResultFailure}

var (
	_ Executable = (*Flow)(nil)
	_ Executable = (*Operation)(nil)
)

func (f *Flow) ExecutableName() Name        { return f.Name }
func (f *Flow) Kind() ExecutableKind        { return ExecutableFlow }
func (f *Flow) DeclaredInputs() []*Argument { return f.Inputs }
func (f *Flow) DeclaredOutputs() []*Output  { return f.Outputs }
func (f *Flow) executable()                 {}

// DeclaredResults returns the flow results, defaulting to SUCCESS and
// FAILURE
func (f *Flow) DeclaredResults() []Name {
	if len(f.Results) == 0 {
		return DefaultResults
	}
	return f.Results
}

func (o *Operation) ExecutableName() Name        { return o.Name }
func (o *Operation) Kind() ExecutableKind        { return ExecutableOperation }
func (o *Operation) DeclaredInputs() []*Argument { return o.Inputs }
func (o *Operation) DeclaredOutputs() []*Output  { return o.Outputs }
func (o *Operation) executable()                 {}

// DeclaredResults returns the names of the operation's results in order
func (o *Operation) DeclaredResults() []Name {
	res := make([]Name, len(o.Results))
	for i, r := range o.Results {
		res[i] = r.Name
	}
	return res
}

// TaskByName finds a task of the flow
func (f *Flow) TaskByName(name Name) (*Task, bool) {
	for _, t := range f.Tasks {
		if t.Name == name {
			return t, true
		}
	}
	return nil, false
}

// IsLoop reports whether the task iterates
func (t *Task) IsLoop() bool {
	return t.Pre.Loop != nil
}

// BreakOn returns the task's effective break set. Looping tasks that declare
// none break on FAILURE; non-looping tasks have no break set
func (t *Task) BreakOn() []Name {
	if !t.IsLoop() {
		return nil
	}
	if t.Post.BreakOn == nil {
		return DefaultBreakOn
	}
	return t.Post.BreakOn
}
