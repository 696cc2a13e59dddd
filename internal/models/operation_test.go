package models

import (
	"encoding/base64"
	"errors"
	"strings"
	"testing"

	"github.com/starford/folio/internal/apperr"
)

func TestValidateInsertText(t *testing.T) {
	op := Operation{Type: OpInsertText, PageIndex: 0, X: 10, Y: 20, Text: "hello"}
	if err := op.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	op.Text = ""
	if err := op.Validate(); !errors.Is(err, apperr.ErrInvalidParameter) {
		t.Errorf("missing text: err = %v", err)
	}
}

func TestValidateRotateAngle(t *testing.T) {
	for _, angle := range []int{0, 90, 180, 270, -90, 360} {
		op := Operation{Type: OpRotatePage, PageIndex: 1, Angle: angle}
		if err := op.Validate(); err != nil {
			t.Errorf("angle %d: %v", angle, err)
		}
	}
	op := Operation{Type: OpRotatePage, PageIndex: 1, Angle: 45}
	if err := op.Validate(); !errors.Is(err, apperr.ErrInvalidParameter) {
		t.Errorf("angle 45: err = %v", err)
	}
}

func TestValidateUnknownType(t *testing.T) {
	op := Operation{Type: "shred-page", PageIndex: 0}
	if err := op.Validate(); !errors.Is(err, apperr.ErrInvalidParameter) {
		t.Errorf("err = %v", err)
	}
}

func TestValidateNegativePageIndex(t *testing.T) {
	op := Operation{Type: OpRemovePage, PageIndex: -1}
	if err := op.Validate(); !errors.Is(err, apperr.ErrInvalidParameter) {
		t.Errorf("err = %v", err)
	}
}

func TestValidateMergeRequiresSource(t *testing.T) {
	op := Operation{Type: OpMergePages}
	if err := op.Validate(); !errors.Is(err, apperr.ErrInvalidParameter) {
		t.Errorf("err = %v", err)
	}
}

func TestDecodeImage(t *testing.T) {
	payload := []byte{0x89, 'P', 'N', 'G'}
	op := Operation{
		Type:      OpInsertImage,
		ImageData: base64.StdEncoding.EncodeToString(payload),
		Width:     10, Height: 10,
	}
	raw, err := op.DecodeImage()
	if err != nil {
		t.Fatalf("DecodeImage: %v", err)
	}
	if string(raw) != string(payload) {
		t.Errorf("payload mismatch: %v", raw)
	}

	op.ImageData = "not-base64!!"
	if _, err := op.DecodeImage(); !errors.Is(err, apperr.ErrInvalidImageData) {
		t.Errorf("err = %v", err)
	}
}

func TestParamJSONRedactsImagePayload(t *testing.T) {
	op := Operation{Type: OpInsertImage, ImageData: strings.Repeat("A", 4096), Width: 5, Height: 5}
	got := op.ParamJSON()
	if strings.Contains(got, strings.Repeat("A", 64)) {
		t.Error("image payload leaked into log params")
	}
	if !strings.Contains(got, "4096 bytes") {
		t.Errorf("expected size marker in %q", got)
	}
}
