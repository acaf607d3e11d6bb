package domain

import (
	"context"
	"time"
)

// RunStatus enumerates terminal states of one pipeline run.
type RunStatus string

const (
	RunSucceeded RunStatus = "SUCCEEDED"
	RunDegraded  RunStatus = "DEGRADED"
	RunFailed    RunStatus = "FAILED"
)

// Run records the outcome of one end-to-end texture generation request.
// Runs are audit records only; the pipeline never reads them back.
type Run struct {
	ID        string
	Prompt    string
	Strategy  string
	Status    RunStatus
	Width     int
	Height    int
	Country   string
	Duration  time.Duration
	CreatedAt time.Time
}

// RunRepository persists pipeline run records.
type RunRepository interface {
	Record(ctx context.Context, run *Run) error
	Recent(ctx context.Context, limit int) ([]Run, error)
}
