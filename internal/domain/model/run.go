package model

import "time"

type RunState string

const (
	RunStateIdle       RunState = "idle"
	RunStateGenerating RunState = "generating"
	RunStateGenerated  RunState = "generated"
	RunStatePublishing RunState = "publishing"
	RunStateDone       RunState = "done"
	RunStateFailed     RunState = "failed"
)

type RunStatus string

const (
	RunStatusDone   RunStatus = "done"
	RunStatusFailed RunStatus = "failed"
)

// RunResult is reported to the trigger caller. Only the latest one is kept, in memory.
type RunResult struct {
	RunID              string        `json:"run_id"`
	Status             RunStatus     `json:"status"`
	FailedStage        RunState      `json:"failed_stage,omitempty"`
	Reason             string        `json:"reason,omitempty"`
	Error              string        `json:"error,omitempty"`
	GenerationAttempts int           `json:"generation_attempts"`
	PublishAttempts    int           `json:"publish_attempts"`
	ProblemID          string        `json:"problem_id,omitempty"`
	StartedAt          time.Time     `json:"started_at"`
	Latency            time.Duration `json:"latency_ns"`
}

func (r *RunResult) Succeeded() bool { return r != nil && r.Status == RunStatusDone }
