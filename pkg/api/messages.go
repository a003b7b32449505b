package api

import "encoding/json"

type (
	// CompileRequest submits executables for compilation. Entry names the
	// executable to compile; every other executable is offered as a
	// dependency
	CompileRequest struct {
		Entry      Name         `json:"entry"`
		Flows      []*Flow      `json:"flows,omitempty"`
		Operations []*Operation `json:"operations,omitempty"`
	}

	// ArtifactInfo describes a registered compilation artifact
	ArtifactInfo struct {
		Name             Name           `json:"name"`
		Kind             ExecutableKind `json:"kind"`
		Dependencies     []Name         `json:"dependencies,omitempty"`
		SystemProperties []string       `json:"system_properties,omitempty"`
		Steps            int            `json:"steps"`
	}

	// ArtifactsListResponse lists the registered artifacts
	ArtifactsListResponse struct {
		Artifacts []*ArtifactInfo `json:"artifacts"`
		Count     int             `json:"count"`
	}

	// RunRequest starts a run of a registered artifact. SystemProperties is
	// a JSON object flattened into dotted names; Sensitive lists the names
	// whose values must be masked
	RunRequest struct {
		Artifact         Name            `json:"artifact"`
		Inputs           Args            `json:"inputs,omitempty"`
		SystemProperties json.RawMessage `json:"system_properties,omitempty"`
		Sensitive        []string        `json:"sensitive_properties,omitempty"`
	}

	// RunStartedResponse is returned when a run is accepted
	RunStartedResponse struct {
		RunID RunID `json:"run_id"`
	}

	// HealthResponse provides service health information
	HealthResponse struct {
		Service   string `json:"service"`
		Status    string `json:"status"`
		Artifacts int    `json:"artifacts"`
	}

	// ErrorResponse contains error details for failed requests
	ErrorResponse struct {
		Error  string `json:"error"`
		Status int    `json:"status,omitempty"`
	}

	// SubscribeRequest is sent by clients to subscribe to events
	SubscribeRequest struct {
		Type string             `json:"type"`
		Data ClientSubscription `json:"data"`
	}

	// ClientSubscription configures which events a WebSocket client
	// receives. An empty RunID matches every run
	ClientSubscription struct {
		RunID      RunID       `json:"run_id,omitempty"`
		EventTypes []EventType `json:"event_types,omitempty"`
	}

	// SubscribedResult acknowledges a subscription. State carries the
	// subscribed run's current state when one was named and exists
	SubscribedResult struct {
		State *RunState `json:"state,omitempty"`
		Type  string    `json:"type"`
		RunID RunID     `json:"run_id,omitempty"`
	}
)

// NewArtifactInfo summarizes an artifact
func NewArtifactInfo(art *CompilationArtifact) *ArtifactInfo {
	plan := art.ExecutionPlan()
	return &ArtifactInfo{
		Name:             plan.Executable,
		Kind:             plan.Kind,
		Dependencies:     art.DependencyNames(),
		SystemProperties: art.SystemPropertyNames(),
		Steps:            len(plan.Steps),
	}
}

// Executables returns the request's flows and operations as executables
func (r *CompileRequest) Executables() []Executable {
	res := make([]Executable, 0, len(r.Flows)+len(r.Operations))
	for _, f := range r.Flows {
		if f != nil {
			res = append(res, f)
		}
	}
	for _, o := range r.Operations {
		if o != nil {
			res = append(res, o)
		}
	}
	return res
}
