package pipeline

import "errors"

// Stage errors are wrapped with the failing stage's name so logs and
// ProgressEvent.Failed messages identify where a job died.
var (
	ErrProcessing        = errors.New("document processing failed")
	ErrStorage           = errors.New("storage failed")
	ErrArchive           = errors.New("archival failed")
	ErrInvalidOutputPath = errors.New("invalid output path")
)
