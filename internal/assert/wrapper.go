package assert

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bilalinamdar/cloud-slang/internal/config"
	"github.com/bilalinamdar/cloud-slang/pkg/api"
)

// Wrapper wraps testify assertions with CloudSlang-specific helpers
type Wrapper struct {
	*testing.T
	*assert.Assertions
	Require *assert.Assertions
}

// New creates a new test assertion wrapper with both assert and require from
// testify plus CloudSlang-specific helpers
func New(t *testing.T) *Wrapper {
	return &Wrapper{
		T:          t,
		Assertions: assert.New(t),
		Require:    assert.New(t),
	}
}

// ConfigValid asserts that a configuration is valid
func (w *Wrapper) ConfigValid(cfg *config.Config) {
	w.Helper()
	w.NoError(cfg.Validate())
	w.True(cfg.APIPort > 0 && cfg.APIPort <= config.MaxTCPPort)
	w.True(cfg.MaxSteps > 0)
}

// ConfigInvalid asserts that a configuration is invalid
func (w *Wrapper) ConfigInvalid(cfg *config.Config, contains string) {
	w.Helper()
	err := cfg.Validate()
	w.Error(err)
	if err != nil && contains != "" {
		w.Contains(err.Error(), contains)
	}
}

// BoundValue asserts that a context binds name to the expected raw value
func (w *Wrapper) BoundValue(ctx api.Context, name api.Name, expected any) {
	w.Helper()
	v, ok := ctx[name]
	if !w.True(ok, "context should bind: %s", name) {
		return
	}
	w.Equal(expected, v.Raw())
}

// Sensitive asserts that the named values of a context are sensitive
func (w *Wrapper) Sensitive(ctx api.Context, names ...api.Name) {
	w.Helper()
	for _, name := range names {
		w.True(ctx[name].IsSensitive(), "value should be sensitive: %s", name)
	}
}

// NotSensitive asserts that the named values of a context are not sensitive
func (w *Wrapper) NotSensitive(ctx api.Context, names ...api.Name) {
	w.Helper()
	for _, name := range names {
		w.False(ctx[name].IsSensitive(),
			"value should not be sensitive: %s", name)
	}
}

// StepKind asserts the kind of a plan's step
func (w *Wrapper) StepKind(
	plan *api.ExecutionPlan, id api.StepID, expected api.StepKind,
) {
	w.Helper()
	step, ok := plan.Step(id)
	if !w.True(ok, "plan should have step: %d", id) {
		return
	}
	w.Equal(expected, step.Kind)
}

// EventType asserts the type of an event
func (w *Wrapper) EventType(ev *api.Event, expected api.EventType) {
	w.Helper()
	if !w.NotNil(ev) {
		return
	}
	w.Equal(expected, ev.Type)
}

// RunStatus asserts the status of a run
func (w *Wrapper) RunStatus(run *api.RunState, expected api.RunStatus) {
	w.Helper()
	if !w.NotNil(run) {
		return
	}
	w.Equal(expected, run.Status)
}

// Finished asserts that an event is an execution finished event carrying
// the expected result, and returns its payload
func (w *Wrapper) Finished(
	ev *api.Event, result api.Name,
) api.ExecutionFinishedEvent {
	w.Helper()
	w.EventType(ev, api.EventExecutionFinished)
	if ev == nil {
		return api.ExecutionFinishedEvent{}
	}
	data, ok := ev.Data.(api.ExecutionFinishedEvent)
	w.True(ok, "event should carry an ExecutionFinishedEvent")
	w.Equal(result, data.Result)
	return data
}
