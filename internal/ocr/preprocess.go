package ocr

import (
	"bytes"
	"fmt"
	"image"

	"github.com/disintegration/imaging"

	"github.com/starford/folio/internal/apperr"
)

// Preprocess prepares a rendered page for recognition: grayscale, contrast
// boost, then sharpen. Matches what scanners' dirty output needs most.
func Preprocess(img image.Image) image.Image {
	out := imaging.Grayscale(img)
	out = imaging.AdjustContrast(out, 20)
	out = imaging.Sharpen(out, 1.0)
	return out
}

// EncodePNG serializes an image for the recognizer's stdin.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("%w: encode png: %v", apperr.ErrRecognitionFault, err)
	}
	return buf.Bytes(), nil
}

// DecodeImage parses uploaded image bytes for the direct-image OCR path.
func DecodeImage(data []byte) (image.Image, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrInvalidImageData, err)
	}
	return img, nil
}
