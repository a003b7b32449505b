package api

import "github.com/google/uuid"

// RunID identifies one execution of a compiled artifact
type RunID string

// NewRunID generates a random run identifier
func NewRunID() RunID {
	return RunID(uuid.NewString())
}
