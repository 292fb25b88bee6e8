package processor

import (
	"bytes"
	"fmt"
	goimage "image"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-pdf/fpdf"
)

const (
	pageWidthPt  = 612.0
	pageHeightPt = 792.0
	marginPt     = 36.0
)

// ImageProcessor handles raster image formats: OCR the pixels with
// the shared engine when enabled, and embed the image (JPEG bytes
// passed through untouched, everything else re-encoded as PNG) as a
// single page scaled to a letter-size canvas with a half-inch margin.
type ImageProcessor struct {
	ocr *OCREngine
}

func NewImageProcessor(ocr *OCREngine) *ImageProcessor {
	return &ImageProcessor{ocr: ocr}
}

func (p *ImageProcessor) Supports(format Format) bool {
	return format == FormatImage
}

func (p *ImageProcessor) Process(path string) (Content, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Content{}, fmt.Errorf("reading %s: %w", path, err)
	}

	var text string
	if p.ocr != nil {
		text, err = p.ocr.ProcessImageBytes(raw)
		if err != nil {
			return Content{}, fmt.Errorf("OCR on %s: %w", path, err)
		}
	}

	pdfBytes, err := renderImagePDF(raw, path)
	if err != nil {
		return Content{}, fmt.Errorf("rendering image PDF for %s: %w", path, err)
	}

	return Content{
		ExtractedText: text,
		PDFBytes:      pdfBytes,
		Metadata: Metadata{
			OriginalFilename: filepath.Base(path),
			Format:           FormatImage,
		},
	}, nil
}

// renderImagePDF embeds the image as a single XObject, scaled to fit
// a US-letter page within a 36-point margin, centered.
func renderImagePDF(raw []byte, path string) ([]byte, error) {
	img, _, err := goimage.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}
	bounds := img.Bounds()
	width, height := float64(bounds.Dx()), float64(bounds.Dy())

	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	imageType := "PNG"
	embedBytes := raw
	if ext == "jpg" || ext == "jpeg" {
		imageType = "JPG"
	} else {
		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			return nil, fmt.Errorf("re-encoding image as PNG: %w", err)
		}
		embedBytes = buf.Bytes()
	}

	availableWidth := pageWidthPt - 2*marginPt
	availableHeight := pageHeightPt - 2*marginPt
	scale := availableWidth / width
	if s := availableHeight / height; s < scale {
		scale = s
	}
	imgWidth := width * scale
	imgHeight := height * scale
	x := (pageWidthPt - imgWidth) / 2
	y := (pageHeightPt - imgHeight) / 2

	pdf := fpdf.New("P", "pt", "Letter", "")
	pdf.AddPage()
	name := "embedded"
	pdf.RegisterImageOptionsReader(name, fpdf.ImageOptions{ImageType: imageType}, bytes.NewReader(embedBytes))
	pdf.ImageOptions(name, x, y, imgWidth, imgHeight, false, fpdf.ImageOptions{ImageType: imageType}, 0, "")

	var out strings.Builder
	if err := pdf.Output(&out); err != nil {
		return nil, err
	}
	return []byte(out.String()), nil
}
