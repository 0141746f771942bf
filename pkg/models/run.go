package models

import (
	"time"

	"github.com/google/uuid"
)

// RunState is the orchestrator's position in the pipeline state machine.
type RunState string

const (
	StateIdle             RunState = "idle"
	StateAnalyzing        RunState = "analyzing"
	StateAnalysisFailed   RunState = "analysis_failed"
	StateGenerating       RunState = "generating"
	StateGenerationFailed RunState = "generation_failed"
	StateExecuting        RunState = "executing"
	StateExecutionFailed  RunState = "execution_failed"
	StateSucceeded        RunState = "succeeded"
	StateFailed           RunState = "failed"
)

// Terminal reports whether the state ends a cleaning request.
func (s RunState) Terminal() bool {
	switch s {
	case StateAnalysisFailed, StateGenerationFailed, StateSucceeded, StateFailed:
		return true
	}
	return false
}

// ExecutionErrorKind classifies a working-store execution failure. It drives
// the bounded correction loop.
type ExecutionErrorKind string

const (
	ExecErrSyntax          ExecutionErrorKind = "syntax"
	ExecErrMissingRelation ExecutionErrorKind = "missing_relation"
	ExecErrTypeMismatch    ExecutionErrorKind = "type_mismatch"
	ExecErrOther           ExecutionErrorKind = "other"
)

// CleaningScript is one generated SQL script plus the free-text reasoning
// that preceded it. The reasoning is kept for display only, never executed.
// Each regeneration produces a new, independent script.
type CleaningScript struct {
	SQL       string        `json:"sql"`
	Reasoning string        `json:"reasoning,omitempty"`
	Endpoint  ModelEndpoint `json:"endpoint"`
}

// AttemptRecord is one generation+execution attempt. The sequence is
// append-only and owned by the orchestrator for the duration of a run.
type AttemptRecord struct {
	Number       int                `json:"number"` // 1-based
	Script       CleaningScript     `json:"script"`
	Success      bool               `json:"success"`
	ErrorKind    ExecutionErrorKind `json:"error_kind,omitempty"`
	ErrorMessage string             `json:"error_message,omitempty"`
	Timestamp    time.Time          `json:"timestamp"`
}

// PipelineRun is the ephemeral aggregate for one user-triggered operation.
// It is created on diagnose/clean, reset on plan switch or explicit reset,
// and never persisted across runs.
type PipelineRun struct {
	ID         uuid.UUID       `json:"id"`
	Plan       ModelPlan       `json:"plan"`
	MaxRetries int             `json:"max_retries"`
	State      RunState        `json:"state"`
	Diagnosis  SchemaDiagnosis `json:"diagnosis,omitempty"`
	Attempts   []AttemptRecord `json:"attempts"`
	Failure    string          `json:"failure,omitempty"` // plain-language, user-visible
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt *time.Time      `json:"finished_at,omitempty"`
}

// NewPipelineRun creates a fresh run in the idle state with the given
// configuration snapshot.
func NewPipelineRun(plan ModelPlan, maxRetries int) *PipelineRun {
	return &PipelineRun{
		ID:         uuid.New(),
		Plan:       plan,
		MaxRetries: maxRetries,
		State:      StateIdle,
		StartedAt:  time.Now(),
	}
}

// Finish moves the run into a terminal state and stamps the finish time.
func (r *PipelineRun) Finish(state RunState, failure string) {
	now := time.Now()
	r.State = state
	r.Failure = failure
	r.FinishedAt = &now
}
