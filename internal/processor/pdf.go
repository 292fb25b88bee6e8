package processor

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// PDFProcessor handles documents that are already PDFs: extract
// embedded text where present; if the document as a whole yields no
// extractable text and OCR is enabled, fall back to OCR over every
// raster image the document embeds. The fallback is not decided page
// by page, and pages are never rasterized, so text drawn as vector
// graphics is not recovered. The output PDF is always the original
// input bytes — this processor never regenerates the document.
type PDFProcessor struct {
	ocr *OCREngine
}

func NewPDFProcessor(ocr *OCREngine) *PDFProcessor {
	return &PDFProcessor{ocr: ocr}
}

func (p *PDFProcessor) Supports(format Format) bool {
	return format == FormatPDF
}

func (p *PDFProcessor) Process(path string) (Content, error) {
	pdfBytes, err := os.ReadFile(path)
	if err != nil {
		return Content{}, fmt.Errorf("reading %s: %w", path, err)
	}

	text, err := p.extractText(path)
	if err != nil {
		return Content{}, fmt.Errorf("extracting text from %s: %w", path, err)
	}

	return Content{
		ExtractedText: text,
		PDFBytes:      pdfBytes,
		Metadata: Metadata{
			OriginalFilename: filepath.Base(path),
			Format:           FormatPDF,
		},
	}, nil
}

// extractText tries pdfcpu's raw content-stream extraction first; if
// that yields nothing usable and OCR is configured, it falls back to
// OCR over the embedded raster images instead. pdfcpu has no
// page-to-raster renderer, so no page is rendered at the OCR DPI;
// only the images the document itself embeds are OCRed (see
// DESIGN.md).
func (p *PDFProcessor) extractText(path string) (string, error) {
	conf := model.NewDefaultConfiguration()

	text, err := extractContentText(path, conf)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) != "" || p.ocr == nil {
		return text, nil
	}

	return p.ocrEmbeddedImages(path, conf)
}

// extractContentText dumps each page's raw content stream and scrapes
// the literal strings out of Tj/TJ text-showing operators. This is a
// best-effort extraction, not a full PDF content-stream interpreter:
// it recovers the text most simply-generated PDFs show directly.
func extractContentText(path string, conf *model.Configuration) (string, error) {
	outDir, err := os.MkdirTemp("", "paporg-pdf-content-*")
	if err != nil {
		return "", fmt.Errorf("creating scratch directory: %w", err)
	}
	defer os.RemoveAll(outDir)

	if err := api.ExtractContentFile(path, outDir, nil, conf); err != nil {
		return "", fmt.Errorf("extracting PDF content streams: %w", err)
	}

	entries, err := os.ReadDir(outDir)
	if err != nil {
		return "", fmt.Errorf("reading scratch directory: %w", err)
	}

	var b strings.Builder
	for _, e := range entries {
		raw, err := os.ReadFile(filepath.Join(outDir, e.Name()))
		if err != nil {
			continue
		}
		b.WriteString(scrapeShowTextOperators(raw))
		b.WriteByte('\n')
	}
	return b.String(), nil
}

// showTextPattern matches literal-string operands of the Tj and TJ
// text-showing operators: "(escaped pdf string) Tj" or an array of
// them before "TJ".
var showTextPattern = regexp.MustCompile(`\(((?:[^()\\]|\\.)*)\)\s*(?:Tj|TJ)?`)

func scrapeShowTextOperators(content []byte) string {
	matches := showTextPattern.FindAllSubmatch(content, -1)
	var b strings.Builder
	for _, m := range matches {
		b.WriteString(unescapePDFString(string(m[1])))
		b.WriteByte(' ')
	}
	return b.String()
}

func unescapePDFString(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			switch s[i+1] {
			case 'n':
				b.WriteByte('\n')
			case 'r':
				b.WriteByte('\r')
			case 't':
				b.WriteByte('\t')
			case '(', ')', '\\':
				b.WriteByte(s[i+1])
			default:
				b.WriteByte(s[i+1])
			}
			i++
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

// ocrEmbeddedImages extracts every raster image embedded anywhere in
// the document and OCRs each one, concatenating the results.
func (p *PDFProcessor) ocrEmbeddedImages(path string, conf *model.Configuration) (string, error) {
	outDir, err := os.MkdirTemp("", "paporg-pdf-images-*")
	if err != nil {
		return "", fmt.Errorf("creating scratch directory: %w", err)
	}
	defer os.RemoveAll(outDir)

	if err := api.ExtractImagesFile(path, outDir, nil, conf); err != nil {
		return "", fmt.Errorf("extracting embedded images: %w", err)
	}

	entries, err := os.ReadDir(outDir)
	if err != nil {
		return "", fmt.Errorf("reading scratch directory: %w", err)
	}

	var b strings.Builder
	for _, e := range entries {
		raw, err := os.ReadFile(filepath.Join(outDir, e.Name()))
		if err != nil {
			continue
		}
		text, err := p.ocr.ProcessImageBytes(raw)
		if err != nil {
			continue
		}
		b.WriteString(text)
		b.WriteByte('\n')
	}
	return b.String(), nil
}
