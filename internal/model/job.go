// Package model defines the persisted data shapes shared across the
// store, pipeline, and discovery subsystems.
package model

import "time"

// Status is a closed sum of the states a Job can occupy. Prefer this
// tagged-string approach and an exhaustive switch over it rather than
// modeling job state as a class hierarchy.
type Status string

const (
	StatusPending     Status = "pending"
	StatusProcessing  Status = "processing"
	StatusCompleted   Status = "completed"
	StatusFailed      Status = "failed"
	StatusSuperseded  Status = "superseded"
	StatusIgnored     Status = "ignored"
)

// Valid reports whether s is one of the declared Status values.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed, StatusSuperseded, StatusIgnored:
		return true
	default:
		return false
	}
}

// Job is the unit of work threaded through discovery, the worker
// pool, and the pipeline. Only the Pipeline and administrative
// operations (Rerun, Ignore) mutate a Job after Discovery creates it.
type Job struct {
	ID               string
	OriginalFilename string
	CurrentPath      string
	ArchivePath      *string
	OutputPath       *string
	Category         string
	Source           *string
	Status           Status
	Error            *string
	CreatedAt        time.Time
	UpdatedAt        time.Time
	CompletedAt      *time.Time
	Symlinks         []string
	Phase            *string
	Message          *string
	MIMEType         *string
	ExtractedText    *string
}

// NewJob builds a pending Job with its identity and timestamps set.
// The category defaults to "unsorted" per the default-bucket
// contract used by the categorizer when no rule matches.
func NewJob(id, originalFilename, currentPath string, now time.Time) *Job {
	return &Job{
		ID:               id,
		OriginalFilename: originalFilename,
		CurrentPath:      currentPath,
		Category:         "unsorted",
		Status:           StatusPending,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// JobFilter narrows a paginated job listing. Nil/zero fields are
// unconstrained.
type JobFilter struct {
	Status   *Status
	Category *string
	Source   *string
	FromDate *time.Time
	ToDate   *time.Time
	Limit    int
	Offset   int
}
