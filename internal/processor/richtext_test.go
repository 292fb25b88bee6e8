package processor

import (
	"archive/zip"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// writeMinimalDocx builds a tiny OOXML container with just enough
// structure (word/document.xml with paragraph/run/text elements) for
// extractDocumentText to exercise its paragraph-newline behavior.
func writeMinimalDocx(t *testing.T, path string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("creating fixture: %v", err)
	}
	defer f.Close()

	w := zip.NewWriter(f)
	entry, err := w.Create("word/document.xml")
	if err != nil {
		t.Fatalf("creating zip entry: %v", err)
	}
	xml := `<?xml version="1.0"?>
<w:document xmlns:w="http://example.com/w">
  <w:body>
    <w:p><w:r><w:t>First paragraph</w:t></w:r></w:p>
    <w:p><w:r><w:t>Second paragraph</w:t></w:r></w:p>
  </w:body>
</w:document>`
	if _, err := entry.Write([]byte(xml)); err != nil {
		t.Fatalf("writing zip entry: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("closing zip writer: %v", err)
	}
}

func TestRichTextProcessorExtractsParagraphs(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.docx")
	writeMinimalDocx(t, path)

	p := NewRichTextProcessor()
	content, err := p.Process(path)
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if !strings.Contains(content.ExtractedText, "First paragraph") {
		t.Errorf("missing first paragraph: %q", content.ExtractedText)
	}
	if !strings.Contains(content.ExtractedText, "Second paragraph") {
		t.Errorf("missing second paragraph: %q", content.ExtractedText)
	}
	if len(content.PDFBytes) == 0 {
		t.Error("expected non-empty PDF bytes")
	}
}

func TestRichTextProcessorRejectsNonZip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.docx")
	if err := os.WriteFile(path, []byte("not a zip file"), 0640); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	p := NewRichTextProcessor()
	if _, err := p.Process(path); err == nil {
		t.Error("expected an error for a non-zip .docx file")
	}
}

func TestRichTextProcessorSupports(t *testing.T) {
	p := NewRichTextProcessor()
	if !p.Supports(FormatRichText) {
		t.Error("expected RichTextProcessor to support FormatRichText")
	}
	if p.Supports(FormatText) {
		t.Error("expected RichTextProcessor not to support FormatText")
	}
}
