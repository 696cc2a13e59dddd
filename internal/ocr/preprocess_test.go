package ocr

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/starford/folio/internal/apperr"
)

func testImage() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for x := 0; x < 8; x++ {
		for y := 0; y < 8; y++ {
			c := color.RGBA{R: uint8(x * 30), G: uint8(y * 30), B: 128, A: 255}
			img.Set(x, y, c)
		}
	}
	return img
}

func TestPreprocessProducesGrayscale(t *testing.T) {
	out := Preprocess(testImage())
	if out.Bounds() != testImage().Bounds() {
		t.Errorf("bounds changed: %v", out.Bounds())
	}
	r, g, b, _ := out.At(3, 3).RGBA()
	if r != g || g != b {
		t.Errorf("pixel not gray: %d %d %d", r, g, b)
	}
}

func TestEncodePNGRoundTrip(t *testing.T) {
	data, err := EncodePNG(testImage())
	if err != nil {
		t.Fatalf("EncodePNG: %v", err)
	}
	if _, err := png.Decode(bytes.NewReader(data)); err != nil {
		t.Errorf("output is not decodable PNG: %v", err)
	}
}

func TestDecodeImageRejectsGarbage(t *testing.T) {
	if _, err := DecodeImage([]byte("not an image")); !errors.Is(err, apperr.ErrInvalidImageData) {
		t.Errorf("err = %v", err)
	}
}

func TestDecodeImageAcceptsPNG(t *testing.T) {
	data, _ := EncodePNG(testImage())
	img, err := DecodeImage(data)
	if err != nil {
		t.Fatalf("DecodeImage: %v", err)
	}
	if img.Bounds().Dx() != 8 {
		t.Errorf("bounds = %v", img.Bounds())
	}
}
