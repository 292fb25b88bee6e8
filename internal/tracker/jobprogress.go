// Package tracker wraps broadcast.Broadcaster instances with
// domain-specific event construction for job progress and log lines,
// mirroring the teacher's repository-per-entity broadcaster style.
package tracker

import (
	"time"

	"github.com/iperka/paporg-sub001/internal/broadcast"
)

// Phase names a pipeline stage boundary, reported as the job moves
// through the pipeline.
type Phase string

const (
	PhaseQueued             Phase = "queued"
	PhaseProcessingDocument Phase = "processing_document"
	PhasePreparingText      Phase = "preparing_text"
	PhaseExtractingVars     Phase = "extracting_variables"
	PhaseCategorizing       Phase = "categorizing"
	PhaseResolvingOutput    Phase = "resolving_output"
	PhaseStoring            Phase = "storing"
	PhaseArchiving          Phase = "archiving"
)

// JobProgressEvent is pushed to every subscriber of a JobProgressBroadcaster.
// OCR text is deliberately never included here — it is held on the
// reporter and only persisted to the store, per spec.md §4.6.
type JobProgressEvent struct {
	JobID       string
	Filename    string
	SourcePath  string
	SourceName  *string
	MIMEType    *string
	Phase       Phase
	Message     string
	Completed   bool
	Failed      bool
	OutputPath  string
	ArchivePath string
	Symlinks    []string
	Category    string
	Error       string
	Timestamp   time.Time
}

// JobProgressBroadcaster is a thin name for broadcast.Broadcaster[JobProgressEvent],
// kept as its own type so callers don't need to spell out the generic
// instantiation at every call site.
type JobProgressBroadcaster = broadcast.Broadcaster[JobProgressEvent]

// NewJobProgressBroadcaster constructs the shared job-progress channel.
func NewJobProgressBroadcaster() *JobProgressBroadcaster {
	return broadcast.New[JobProgressEvent]()
}

// JobProgressTracker builds JobProgressEvent values for one job and
// pushes them onto a shared broadcaster.
type JobProgressTracker struct {
	jobID      string
	filename   string
	sourcePath string
	sourceName *string
	mimeType   *string
	bc         *JobProgressBroadcaster
	now        func() time.Time
}

// NewJobProgressTracker builds a tracker for a job with no known
// discovery source.
func NewJobProgressTracker(jobID, filename, sourcePath string, bc *JobProgressBroadcaster, now func() time.Time) *JobProgressTracker {
	return &JobProgressTracker{jobID: jobID, filename: filename, sourcePath: sourcePath, bc: bc, now: now}
}

// WithSource attaches the discovery source name and MIME type to
// every event this tracker emits from here on.
func (t *JobProgressTracker) WithSource(sourceName, mimeType *string) *JobProgressTracker {
	t.sourceName = sourceName
	t.mimeType = mimeType
	return t
}

func (t *JobProgressTracker) base() JobProgressEvent {
	return JobProgressEvent{
		JobID:      t.jobID,
		Filename:   t.filename,
		SourcePath: t.sourcePath,
		SourceName: t.sourceName,
		MIMEType:   t.mimeType,
		Timestamp:  t.now(),
	}
}

// UpdatePhase emits a Phase event with a free-form status message.
func (t *JobProgressTracker) UpdatePhase(phase Phase, message string) {
	if t.bc == nil {
		return
	}
	ev := t.base()
	ev.Phase = phase
	ev.Message = message
	t.bc.Publish(ev)
}

// Completed emits the terminal success event exactly once.
func (t *JobProgressTracker) Completed(outputPath, archivePath string, symlinks []string, category string) {
	if t.bc == nil {
		return
	}
	ev := t.base()
	ev.Completed = true
	ev.OutputPath = outputPath
	ev.ArchivePath = archivePath
	ev.Symlinks = symlinks
	ev.Category = category
	t.bc.Publish(ev)
}

// Failed emits the terminal failure event exactly once.
func (t *JobProgressTracker) Failed(errMsg string) {
	if t.bc == nil {
		return
	}
	ev := t.base()
	ev.Failed = true
	ev.Error = errMsg
	t.bc.Publish(ev)
}
