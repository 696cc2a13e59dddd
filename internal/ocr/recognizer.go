// Package ocr wraps the external text-recognition engine and the image
// preprocessing applied before recognition.
package ocr

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/starford/folio/internal/apperr"
)

// Recognizer extracts text from an image.
type Recognizer interface {
	// Recognize returns the text found in the PNG-encoded image.
	Recognize(ctx context.Context, png []byte) (string, error)
}

// Tesseract runs the tesseract binary as a subprocess, feeding the image on
// stdin and reading text from stdout.
type Tesseract struct {
	Binary   string
	Language string
}

// NewTesseract returns a recognizer using the given binary and language,
// falling back to "tesseract" and "eng".
func NewTesseract(binary, language string) *Tesseract {
	if binary == "" {
		binary = "tesseract"
	}
	if language == "" {
		language = "eng"
	}
	return &Tesseract{Binary: binary, Language: language}
}

// Recognize shells out to tesseract. Timeouts are the caller's
// responsibility via ctx.
func (t *Tesseract) Recognize(ctx context.Context, png []byte) (string, error) {
	cmd := exec.CommandContext(ctx, t.Binary, "stdin", "stdout", "-l", t.Language)
	cmd.Stdin = bytes.NewReader(png)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("%w: %v: %s", apperr.ErrRecognitionFault, err, strings.TrimSpace(stderr.String()))
	}
	return strings.TrimSpace(stdout.String()), nil
}
