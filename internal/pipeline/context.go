package pipeline

import (
	"github.com/iperka/paporg-sub001/internal/categorize"
	"github.com/iperka/paporg-sub001/internal/model"
	"github.com/iperka/paporg-sub001/internal/processor"
)

// Warning is a non-fatal problem recorded during a pipeline run —
// currently only symlink creation failures.
type Warning struct {
	Target string
	Error  string
}

// Context is the mutable state threaded through the seven pipeline
// stages. Each stage reads fields earlier stages populated and writes
// its own; later stages assume the invariants of earlier ones.
type Context struct {
	Job model.Job

	Processed     *processor.Content
	MatchingText  string
	ExtractedVars map[string]string
	Categorized   *categorize.Categorization
	OutputPath    string
	SymlinkPaths  []string
	ArchivePath   string
	Warnings      []Warning

	// resolvedSubDir and resolvedStem hold the Resolve Output Path
	// stage's output, consumed by the following Store + Symlink stage.
	resolvedSubDir string
	resolvedStem   string
}

// NewContext starts a fresh run for j.
func NewContext(j model.Job) *Context {
	return &Context{Job: j, ExtractedVars: make(map[string]string)}
}
