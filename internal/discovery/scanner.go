// Package discovery finds candidate documents for the pipeline: a
// depth-1 directory scanner/watcher for local import sources, plus an
// imap subpackage for mailbox-based sources.
package discovery

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/iperka/paporg-sub001/internal/model"
	"github.com/iperka/paporg-sub001/internal/processor"
)

// archiveDirName is excluded from every scan and watch so a job's own
// archived original is never re-discovered as a new job.
const archiveDirName = "archive"

// DirectoryScanner lists importable documents directly under one
// local source directory, ignoring subdirectories entirely (including
// its own archive/ subdirectory).
type DirectoryScanner struct {
	sourceName string
	directory  string
}

// NewDirectoryScanner builds a scanner over directory, tagging every
// Job it produces with sourceName.
func NewDirectoryScanner(sourceName, directory string) *DirectoryScanner {
	return &DirectoryScanner{sourceName: sourceName, directory: directory}
}

// Directory returns the root this scanner watches.
func (s *DirectoryScanner) Directory() string {
	return s.directory
}

// Scan lists every supported-format file directly under the source
// directory (depth 1, no recursion, archive/ excluded) and returns a
// freshly minted pending Job for each.
func (s *DirectoryScanner) Scan() ([]model.Job, error) {
	entries, err := os.ReadDir(s.directory)
	if err != nil {
		return nil, fmt.Errorf("reading source directory %s: %w", s.directory, err)
	}

	var jobs []model.Job
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if job, ok := s.jobForFilename(entry.Name()); ok {
			jobs = append(jobs, job)
		}
	}
	return jobs, nil
}

// jobForFilename builds a pending Job for filename if its extension
// maps to a supported processor.Format.
func (s *DirectoryScanner) jobForFilename(filename string) (model.Job, bool) {
	ext := filepath.Ext(filename)
	if _, ok := processor.FormatFromExtension(ext); !ok {
		return model.Job{}, false
	}
	path := filepath.Join(s.directory, filename)
	name := s.sourceName
	job := model.NewJob(uuid.NewString(), filename, path, time.Now())
	job.Source = &name
	return *job, true
}
