package models

import "time"

// BranchOutcomeKind classifies how a branch of a run ended.
type BranchOutcomeKind string

const (
	BranchOutcomeOK            BranchOutcomeKind = "ok"
	BranchOutcomeRetryable     BranchOutcomeKind = "retryable"
	BranchOutcomeFatal         BranchOutcomeKind = "fatal"
	BranchOutcomeDepthExceeded BranchOutcomeKind = "depth_exceeded"
)

// ModelStatus is the aggregated status of one model run.
type ModelStatus string

const (
	ModelStatusSuccess ModelStatus = "success"
	ModelStatusFailed  ModelStatus = "failed"
)

// BranchFailure records one aborted branch.
type BranchFailure struct {
	ModelID string            `json:"model_id"`
	NodeID  string            `json:"node_id"`
	Outcome BranchOutcomeKind `json:"outcome"`
	Message string            `json:"message"`
	Hint    string            `json:"hint,omitempty"`
}

// ModelReport describes the run of one matching model for a dispatched event.
type ModelReport struct {
	ModelID     string          `json:"model_id"`
	EventNodeID string          `json:"event_node_id"`
	Status      ModelStatus     `json:"status"`
	Executed    []string        `json:"executed"`
	Failures    []BranchFailure `json:"failures,omitempty"`
}

// ExecutionReport aggregates the outcome of a dispatch. It is informational only.
type ExecutionReport struct {
	ID        string             `json:"id"`
	EventName string             `json:"event_name"`
	StartedAt time.Time          `json:"started_at"`
	Duration  time.Duration      `json:"duration"`
	Models    []*ModelReport     `json:"models"`
	Tasks     []Task             `json:"tasks,omitempty"`
	Nested    []*ExecutionReport `json:"nested,omitempty"`
}

// Failed reports whether any model run recorded a failure.
func (r *ExecutionReport) Failed() bool {
	for _, m := range r.Models {
		if m.Status == ModelStatusFailed {
			return true
		}
	}

	return false
}

// Failures returns every branch failure of the report, in model order.
func (r *ExecutionReport) Failures() []BranchFailure {
	var failures []BranchFailure
	for _, m := range r.Models {
		failures = append(failures, m.Failures...)
	}

	return failures
}

// Executed returns the executed action node ids across all models, prefixed by model id.
func (r *ExecutionReport) Executed() []string {
	var executed []string
	for _, m := range r.Models {
		for _, id := range m.Executed {
			executed = append(executed, m.ModelID+"/"+id)
		}
	}

	return executed
}
