package processor

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"os/exec"
	"strings"
	"time"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ocrTimeout bounds a single tesseract invocation so a stuck OCR
// process can't stall the worker pool indefinitely.
const ocrTimeout = 2 * time.Minute

// OCREngine holds the language list and rasterization DPI shared by
// the image and PDF processors. No OCR library appears anywhere in
// the retrieval pack, so this shells out to the system tesseract
// binary the way the original's leptess binding ultimately drives the
// same Tesseract engine (see DESIGN.md) — OCR engine internals
// themselves are out of scope.
type OCREngine struct {
	languages string
	dpi       int
}

// NewOCREngine builds an engine with languages joined by "+" (default
// "eng" when empty) and the given rasterization DPI.
func NewOCREngine(languages []string, dpi int) *OCREngine {
	lang := "eng"
	if len(languages) > 0 {
		lang = strings.Join(languages, "+")
	}
	return &OCREngine{languages: lang, dpi: dpi}
}

// DPI returns the configured rasterization DPI.
func (e *OCREngine) DPI() int {
	return e.dpi
}

// ProcessImageBytes loads image bytes in any supported format,
// re-encodes as PNG into an in-memory buffer, and runs tesseract
// against it, returning the extracted UTF-8 text.
func (e *OCREngine) ProcessImageBytes(data []byte) (string, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("loading image for OCR: %w", err)
	}

	var pngBuf bytes.Buffer
	if err := png.Encode(&pngBuf, img); err != nil {
		return "", fmt.Errorf("re-encoding image as PNG for OCR: %w", err)
	}

	return e.runTesseract(pngBuf.Bytes())
}

// runTesseract feeds pngBytes to tesseract over stdin and reads the
// extracted text from stdout ("stdout" output base tells tesseract to
// write the result to its own stdout rather than a file).
func (e *OCREngine) runTesseract(pngBytes []byte) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), ocrTimeout)
	defer cancel()

	args := []string{"stdin", "stdout", "-l", e.languages}
	cmd := exec.CommandContext(ctx, "tesseract", args...)
	cmd.Stdin = bytes.NewReader(pngBytes)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("tesseract OCR failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}
