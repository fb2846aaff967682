package model

import "time"

// Stage identifies a step of a sync run.
type Stage string

const (
	StageFetching   Stage = "fetching"
	StagePricing    Stage = "pricing"
	StageStaging    Stage = "staging"
	StageHandingOff Stage = "handing_off"
	StageDone       Stage = "done"
)

// RunStatus summarizes how a run ended.
type RunStatus string

const (
	RunSuccess  RunStatus = "success"
	RunDegraded RunStatus = "degraded"
	RunFailed   RunStatus = "failed"
)

// StageFailure records a non-fatal or fatal failure of one stage.
type StageFailure struct {
	Stage   Stage  `json:"stage"`
	Message string `json:"message"`
}

// RunResult is the summary of one orchestrated run. Location is nil unless
// staging produced a URL.
type RunResult struct {
	RunID      string         `json:"run_id"`
	Count      int            `json:"count"`
	Location   *string        `json:"location"`
	StorageKey *string        `json:"storage_key"`
	Timestamp  time.Time      `json:"timestamp"`
	Stage      Stage          `json:"stage"`
	Status     RunStatus      `json:"status"`
	Failures   []StageFailure `json:"failures,omitempty"`
}

// Fail appends a stage failure.
func (r *RunResult) Fail(stage Stage, err error) {
	r.Failures = append(r.Failures, StageFailure{Stage: stage, Message: err.Error()})
}
