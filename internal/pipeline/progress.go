package pipeline

import (
	"sync"

	"github.com/iperka/paporg-sub001/internal/tracker"
)

// Reporter receives pipeline stage-boundary and terminal events.
// OCR text is deliberately excluded from every event here — it can be
// large, so it is held separately (see BroadcastReporter.SetOCRText/TakeOCRText) and
// only ever persisted to the store, never broadcast.
type Reporter interface {
	Phase(phase tracker.Phase, message string)
	Completed(outputPath, archivePath string, symlinks []string, category string)
	Failed(err string)
}

// NoopReporter discards every event; used by tests and any caller
// that doesn't need live progress.
type NoopReporter struct{}

func (NoopReporter) Phase(tracker.Phase, string)                  {}
func (NoopReporter) Completed(string, string, []string, string) {}
func (NoopReporter) Failed(string)                               {}

// BroadcastReporter bridges pipeline events to a JobProgressTracker,
// and separately retains any OCR text the process stage extracted so
// the caller can persist it to the store after a successful run.
type BroadcastReporter struct {
	tr      *tracker.JobProgressTracker
	mu      sync.Mutex
	ocrText string
}

// NewBroadcastReporter wraps tr.
func NewBroadcastReporter(tr *tracker.JobProgressTracker) *BroadcastReporter {
	return &BroadcastReporter{tr: tr}
}

func (r *BroadcastReporter) Phase(phase tracker.Phase, message string) {
	r.tr.UpdatePhase(phase, message)
}

func (r *BroadcastReporter) Completed(outputPath, archivePath string, symlinks []string, category string) {
	r.tr.Completed(outputPath, archivePath, symlinks, category)
}

func (r *BroadcastReporter) Failed(err string) {
	r.tr.Failed(err)
}

// SetOCRText stashes extracted text for later retrieval; called once
// by the process-document stage.
func (r *BroadcastReporter) SetOCRText(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ocrText = text
}

// TakeOCRText returns and clears the stashed text.
func (r *BroadcastReporter) TakeOCRText() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	text := r.ocrText
	r.ocrText = ""
	return text
}
