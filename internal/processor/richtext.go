package processor

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

const richTextLinesPerPage = 50

// RichTextProcessor handles OOXML rich-text containers (.docx): unzip
// in memory, stream-parse word/document.xml for paragraph and
// text-run elements, and render the concatenated body text to a
// multi-page PDF.
//
// No OOXML/docx library appears anywhere in the retrieval pack (see
// DESIGN.md), so this uses archive/zip and encoding/xml directly —
// the same approach the original implementation takes with its own
// streaming XML reader.
type RichTextProcessor struct{}

func NewRichTextProcessor() *RichTextProcessor {
	return &RichTextProcessor{}
}

func (p *RichTextProcessor) Supports(format Format) bool {
	return format == FormatRichText
}

func (p *RichTextProcessor) Process(path string) (Content, error) {
	archive, err := zip.OpenReader(path)
	if err != nil {
		return Content{}, fmt.Errorf("opening %s as a zip container: %w", path, err)
	}
	defer archive.Close()

	text, err := extractDocumentText(&archive.Reader)
	if err != nil {
		return Content{}, fmt.Errorf("extracting text from %s: %w", path, err)
	}

	pdfBytes, err := renderTextPDF(text, richTextLinesPerPage)
	if err != nil {
		return Content{}, fmt.Errorf("rendering rich-text PDF for %s: %w", path, err)
	}

	return Content{
		ExtractedText: text,
		PDFBytes:      pdfBytes,
		Metadata: Metadata{
			OriginalFilename: filepath.Base(path),
			Format:           FormatRichText,
		},
	}, nil
}

// extractDocumentText finds word/document.xml inside the container
// and parses its paragraph/text-run structure.
func extractDocumentText(archive *zip.Reader) (string, error) {
	var target *zip.File
	for _, f := range archive.File {
		if f.Name == "word/document.xml" {
			target = f
			break
		}
	}
	if target == nil {
		return "", fmt.Errorf("word/document.xml not found in container")
	}

	rc, err := target.Open()
	if err != nil {
		return "", fmt.Errorf("opening word/document.xml: %w", err)
	}
	defer rc.Close()

	raw, err := io.ReadAll(rc)
	if err != nil {
		return "", fmt.Errorf("reading word/document.xml: %w", err)
	}

	return parseDocumentXML(raw)
}

// parseDocumentXML walks the XML token stream keying on local element
// names "t" (text run) and "p" (paragraph), concatenating run text
// and inserting a newline at the close of every paragraph.
func parseDocumentXML(raw []byte) (string, error) {
	decoder := xml.NewDecoder(strings.NewReader(string(raw)))

	var b strings.Builder
	inText := false
	inParagraph := false

	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("parsing XML: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "p":
				inParagraph = true
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				if inParagraph {
					b.WriteByte('\n')
					inParagraph = false
				}
			}
		case xml.CharData:
			if inText {
				b.Write(t)
			}
		}
	}

	return b.String(), nil
}
