package api

import "time"

type (
	// EventType tags a run event for consumers on the event bus
	EventType string

	// Event is a run notification published by the engine
	Event struct {
		Timestamp time.Time `json:"timestamp"`
		Data      any       `json:"data,omitempty"`
		Type      EventType `json:"type"`
		RunID     RunID     `json:"run_id"`
	}

	// ExecutionStartedEvent is published when a run begins
	ExecutionStartedEvent struct {
		Inputs     Args `json:"inputs,omitempty"`
		Executable Name `json:"executable"`
	}

	// StepStartedEvent is published each time the engine enters a step
	StepStartedEvent struct {
		Executable Name     `json:"executable"`
		Name       Name     `json:"name,omitempty"`
		Kind       StepKind `json:"kind"`
		StepID     StepID   `json:"step_id"`
		Depth      int      `json:"depth"`
	}

	// TaskStartedEvent is published when a task invokes its executable.
	// Iteration is zero-based and only meaningful for looping tasks
	TaskStartedEvent struct {
		Executable Name `json:"executable"`
		Task       Name `json:"task"`
		Ref        Name `json:"ref"`
		Iteration  int  `json:"iteration"`
	}

	// TaskFinishedEvent is published when a task's executable returns
	TaskFinishedEvent struct {
		Outputs    Args `json:"outputs,omitempty"`
		Executable Name `json:"executable"`
		Task       Name `json:"task"`
		Result     Name `json:"result"`
		Iteration  int  `json:"iteration"`
	}

	// LoopIterationEvent is published before each iteration of a loop
	LoopIterationEvent struct {
		Item      any  `json:"item"`
		Task      Name `json:"task"`
		Iteration int  `json:"iteration"`
		Count     int  `json:"count"`
	}

	// ExecutionFinishedEvent is published when a run reaches its terminal
	// step
	ExecutionFinishedEvent struct {
		Outputs    Args `json:"outputs,omitempty"`
		Executable Name `json:"executable"`
		Result     Name `json:"result"`
	}

	// ExecutionFailedEvent is published when a run stops on an error or is
	// cancelled
	ExecutionFailedEvent struct {
		Executable Name   `json:"executable"`
		Error      string `json:"error"`
	}
)

const (
	EventExecutionStarted   EventType = "execution_started"
	EventStepStarted        EventType = "step_started"
	EventTaskStarted        EventType = "task_started"
	EventTaskFinished       EventType = "task_finished"
	EventLoopIteration      EventType = "loop_iteration"
	EventExecutionFinished  EventType = "execution_finished"
	EventExecutionFailed    EventType = "execution_failed"
	EventExecutionCancelled EventType = "execution_cancelled"
)

// IsTerminal reports whether the event ends its run
func (e *Event) IsTerminal() bool {
	switch e.Type {
	case EventExecutionFinished, EventExecutionFailed,
		EventExecutionCancelled:
		return true
	default:
		return false
	}
}
