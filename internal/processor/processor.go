// Package processor turns a document file on disk into Content:
// extracted text plus a generated (or passed-through) PDF, ready for
// the pipeline's categorization and storage stages.
package processor

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Format identifies which processor handles a document, keyed by file
// extension at the registry.
type Format int

const (
	FormatText Format = iota
	FormatRichText
	FormatImage
	FormatPDF
)

func (f Format) String() string {
	switch f {
	case FormatText:
		return "text"
	case FormatRichText:
		return "richtext"
	case FormatImage:
		return "image"
	case FormatPDF:
		return "pdf"
	default:
		return "unknown"
	}
}

// FormatFromExtension maps a file extension (with or without a
// leading dot, case-insensitive) to a Format, or false if unsupported.
func FormatFromExtension(ext string) (Format, bool) {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	switch ext {
	case "txt", "md", "csv", "log":
		return FormatText, true
	case "docx":
		return FormatRichText, true
	case "jpg", "jpeg", "png", "gif", "bmp", "tiff", "webp":
		return FormatImage, true
	case "pdf":
		return FormatPDF, true
	default:
		return 0, false
	}
}

// ErrUnsupportedFormat is wrapped with the offending extension.
var ErrUnsupportedFormat = errors.New("unsupported document format")

// Metadata describes the document a Content was derived from.
type Metadata struct {
	OriginalFilename string
	Format           Format
}

// Content is the pipeline's intermediate processing result: extracted
// text, a valid PDF byte buffer, and metadata about the source
// document.
type Content struct {
	ExtractedText string
	PDFBytes      []byte
	Metadata      Metadata
}

// Processor produces Content from a file on disk.
type Processor interface {
	Process(path string) (Content, error)
	Supports(format Format) bool
}

// Registry selects a Processor by file extension.
type Registry struct {
	processors []Processor
}

// NewRegistry builds the standard processor set. When ocrEnabled is
// false, the image and PDF processors are built without an OCR
// handle, so OCR is simply skipped rather than attempted and failing.
func NewRegistry(ocrEnabled bool, ocrLanguages []string, ocrDPI int) *Registry {
	var ocr *OCREngine
	if ocrEnabled {
		ocr = NewOCREngine(ocrLanguages, ocrDPI)
	}

	return &Registry{processors: []Processor{
		NewTextProcessor(),
		NewImageProcessor(ocr),
		NewPDFProcessor(ocr),
		NewRichTextProcessor(),
	}}
}

// Process routes path to the first registered Processor whose
// Supports reports true for the file's extension.
func (r *Registry) Process(path string) (Content, error) {
	ext := filepath.Ext(path)
	trimmed := strings.TrimPrefix(ext, ".")
	format, ok := FormatFromExtension(ext)
	if !ok {
		return Content{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, trimmed)
	}
	for _, p := range r.processors {
		if p.Supports(format) {
			return p.Process(path)
		}
	}
	return Content{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, trimmed)
}
