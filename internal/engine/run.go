package engine

import (
	"context"
	"errors"
	"log/slog"
	"maps"
	"sync"
	"time"

	"github.com/bilalinamdar/cloud-slang/pkg/api"
	"github.com/bilalinamdar/cloud-slang/pkg/log"
)

type run struct {
	ctx      context.Context
	artifact *api.CompilationArtifact
	props    api.SystemProperties
	cancel   context.CancelFunc
	done     chan struct{}
	inputs   api.Args
	state    api.RunState
	id       api.RunID
	mu       sync.Mutex
}

// Trigger runs an artifact to completion on the calling goroutine. It
// returns the execution finished event, or the error that stopped the run.
// Cancelling ctx stops the run after its current step. The run is only
// visible to GetRun and Cancel while it executes
func (e *Engine) Trigger(
	ctx context.Context, art *api.CompilationArtifact, inputs api.Args,
	props api.SystemProperties,
) (*api.Event, error) {
	r, err := e.newRun(ctx, art, inputs, props)
	if err != nil {
		return nil, err
	}
	defer e.runs.Delete(r.id)
	defer r.cancel()
	return e.execute(r)
}

// Start runs an artifact in the background and returns its ID at once. The
// run is stopped by Cancel or by stopping the engine
func (e *Engine) Start(
	art *api.CompilationArtifact, inputs api.Args, props api.SystemProperties,
) (api.RunID, error) {
	r, err := e.newRun(e.ctx, art, inputs, props)
	if err != nil {
		return "", err
	}
	e.wg.Go(func() {
		defer r.cancel()
		_, _ = e.execute(r)
	})
	return r.id, nil
}

// Cancel asks a run to stop after its current step
func (e *Engine) Cancel(id api.RunID) error {
	r, err := e.getRun(id)
	if err != nil {
		return err
	}
	r.cancel()
	return nil
}

// GetRun returns a snapshot of a run's state
func (e *Engine) GetRun(id api.RunID) (*api.RunState, error) {
	r, err := e.getRun(id)
	if err != nil {
		return nil, err
	}
	return r.snapshot(), nil
}

// Wait blocks until a run stops, returning its final state
func (e *Engine) Wait(ctx context.Context, id api.RunID) (*api.RunState, error) {
	r, err := e.getRun(id)
	if err != nil {
		return nil, err
	}
	select {
	case <-r.done:
		return r.snapshot(), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (e *Engine) getRun(id api.RunID) (*run, error) {
	r, ok := e.runs.Load(id)
	if !ok {
		return nil, ErrRunNotFound
	}
	return r.(*run), nil
}

func (e *Engine) newRun(
	parent context.Context, art *api.CompilationArtifact, inputs api.Args,
	props api.SystemProperties,
) (*run, error) {
	if art == nil {
		return nil, ErrNoArtifact
	}
	if e.ctx.Err() != nil {
		return nil, ErrEngineStopped
	}

	ctx, cancel := context.WithCancel(parent)
	stop := context.AfterFunc(e.ctx, cancel)
	plan := art.ExecutionPlan()
	id := api.NewRunID()
	r := &run{
		ctx:      ctx,
		cancel:   func() { stop(); cancel() },
		artifact: art,
		props:    props,
		inputs:   maps.Clone(inputs),
		done:     make(chan struct{}),
		id:       id,
		state: api.RunState{
			ID:         id,
			Executable: plan.Executable,
			Status:     api.RunRunning,
			StartedAt:  e.clock(),
			Inputs:     maskInputs(plan, inputs),
		},
	}
	e.runs.Store(id, r)
	return r, nil
}

func (e *Engine) execute(r *run) (*api.Event, error) {
	exe := r.state.Executable
	e.metrics.RunStarted()
	e.publish(r.id, api.EventExecutionStarted, api.ExecutionStartedEvent{
		Executable: exe,
		Inputs:     r.state.Inputs,
	})
	slog.Info("Run started",
		log.RunID(r.id),
		log.Executable(exe))

	x := newExecution(e, r)
	result, outputs, err := x.exec()

	now := e.clock()
	var ev *api.Event
	status := api.RunFinished
	switch {
	case err == nil:
		ev = &api.Event{
			Type:      api.EventExecutionFinished,
			RunID:     r.id,
			Timestamp: now,
			Data: api.ExecutionFinishedEvent{
				Executable: exe,
				Result:     result,
				Outputs:    outputs.Masked(),
			},
		}
		slog.Info("Run finished",
			log.RunID(r.id),
			log.Executable(exe),
			log.Result(result))
	case errors.Is(err, ErrRunCancelled):
		status = api.RunCancelled
		ev = e.failureEvent(r, api.EventExecutionCancelled, now, err)
		slog.Info("Run cancelled",
			log.RunID(r.id),
			log.Executable(exe))
	default:
		status = api.RunFailed
		ev = e.failureEvent(r, api.EventExecutionFailed, now, err)
		slog.Error("Run failed",
			log.RunID(r.id),
			log.Executable(exe),
			log.Error(err))
	}

	r.finish(status, result, outputs, err, now)
	e.hub.Publish(ev)
	e.metrics.RunFinished(status, now.Sub(r.state.StartedAt))
	if err != nil {
		return nil, err
	}
	return ev, nil
}

func (e *Engine) failureEvent(
	r *run, typ api.EventType, now time.Time, err error,
) *api.Event {
	return &api.Event{
		Type:      typ,
		RunID:     r.id,
		Timestamp: now,
		Data: api.ExecutionFailedEvent{
			Executable: r.state.Executable,
			Error:      err.Error(),
		},
	}
}

func (r *run) stepped(ref api.StepRef, steps int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state.CurrentStep = &ref
	r.state.Steps = steps
}

func (r *run) finish(
	status api.RunStatus, result api.Name, outputs api.Context, err error,
	now time.Time,
) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state.Status = status
	r.state.Result = result
	r.state.FinishedAt = &now
	if outputs != nil {
		r.state.Outputs = outputs.Masked()
	}
	if err != nil {
		r.state.Error = err.Error()
	}
	close(r.done)
}

func (r *run) snapshot() *api.RunState {
	r.mu.Lock()
	defer r.mu.Unlock()
	res := r.state
	res.Inputs = maps.Clone(r.state.Inputs)
	res.Outputs = maps.Clone(r.state.Outputs)
	if r.state.CurrentStep != nil {
		ref := *r.state.CurrentStep
		res.CurrentStep = &ref
	}
	return &res
}

// maskInputs hides the supplied values of inputs the plan declares
// sensitive
func maskInputs(plan *api.ExecutionPlan, inputs api.Args) api.Args {
	res := maps.Clone(inputs)
	start, ok := plan.Step(api.StartStepID)
	if !ok {
		return res
	}
	for _, in := range start.Inputs() {
		if _, ok := res[in.Name]; ok && in.Sensitive {
			res[in.Name] = api.SensitiveMask
		}
	}
	return res
}
