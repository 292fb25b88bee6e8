package processor

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-pdf/fpdf"
)

const textLinesPerPage = 60

// TextProcessor handles plain text formats (.txt, .md, .csv, .log):
// read the bytes as UTF-8 (lossily, tolerating invalid sequences),
// render up to 60 lines per page of monospace text into a PDF.
type TextProcessor struct{}

func NewTextProcessor() *TextProcessor {
	return &TextProcessor{}
}

func (p *TextProcessor) Supports(format Format) bool {
	return format == FormatText
}

func (p *TextProcessor) Process(path string) (Content, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Content{}, fmt.Errorf("reading %s: %w", path, err)
	}
	text := strings.ToValidUTF8(string(raw), " ")

	pdfBytes, err := renderTextPDF(text, textLinesPerPage)
	if err != nil {
		return Content{}, fmt.Errorf("rendering text PDF for %s: %w", path, err)
	}

	return Content{
		ExtractedText: text,
		PDFBytes:      pdfBytes,
		Metadata: Metadata{
			OriginalFilename: filepath.Base(path),
			Format:           FormatText,
		},
	}, nil
}

// renderTextPDF lays out lines of text, linesPerPage at a time, one
// monospace PDF page per batch of lines.
func renderTextPDF(text string, linesPerPage int) ([]byte, error) {
	pdf := fpdf.New("P", "pt", "Letter", "")
	pdf.SetMargins(36, 36, 36)
	pdf.SetFont("Courier", "", 10)

	lines := strings.Split(text, "\n")
	if len(lines) == 0 {
		lines = []string{""}
	}

	for i := 0; i < len(lines); i += linesPerPage {
		pdf.AddPage()
		end := i + linesPerPage
		if end > len(lines) {
			end = len(lines)
		}
		for _, line := range lines[i:end] {
			pdf.CellFormat(0, 12, line, "", 2, "L", false, 0, "")
		}
	}

	var buf strings.Builder
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return []byte(buf.String()), nil
}
