package api

import "time"

type (
	// RunStatus is the lifecycle state of a run
	RunStatus string

	// RunState is a point-in-time snapshot of a run. Outputs are masked
	RunState struct {
		StartedAt   time.Time  `json:"started_at"`
		FinishedAt  *time.Time `json:"finished_at,omitempty"`
		Inputs      Args       `json:"inputs,omitempty"`
		Outputs     Args       `json:"outputs,omitempty"`
		ID          RunID      `json:"id"`
		Executable  Name       `json:"executable"`
		Status      RunStatus  `json:"status"`
		Result      Name       `json:"result,omitempty"`
		Error       string     `json:"error,omitempty"`
		CurrentStep *StepRef   `json:"current_step,omitempty"`
		Steps       int        `json:"steps"`
	}

	// StepRef locates a step within the plan of a named executable
	StepRef struct {
		Executable Name   `json:"executable"`
		StepID     StepID `json:"step_id"`
		Depth      int    `json:"depth"`
	}
)

const (
	RunRunning   RunStatus = "running"
	RunFinished  RunStatus = "finished"
	RunFailed    RunStatus = "failed"
	RunCancelled RunStatus = "cancelled"
)

// IsTerminal reports whether the run has stopped
func (s RunStatus) IsTerminal() bool {
	return s != RunRunning
}
