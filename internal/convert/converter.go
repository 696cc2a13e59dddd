// Package convert wraps the external format-conversion capability: office
// formats via a LibreOffice subprocess, image formats via the page renderer.
package convert

import (
	"bytes"
	"context"
	"fmt"
	"image/jpeg"
	"image/png"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/starford/folio/internal/apperr"
	"github.com/starford/folio/internal/render"
)

// Format is a conversion target.
type Format string

const (
	FormatDocx Format = "docx"
	FormatXlsx Format = "xlsx"
	FormatPptx Format = "pptx"
	FormatJpg  Format = "jpg"
	FormatPng  Format = "png"
)

// ParseFormat maps a request string onto a Format, accepting the aliases the
// old API used.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "docx", "word":
		return FormatDocx, nil
	case "xlsx", "excel":
		return FormatXlsx, nil
	case "pptx", "ppt", "powerpoint":
		return FormatPptx, nil
	case "jpg", "jpeg":
		return FormatJpg, nil
	case "png":
		return FormatPng, nil
	}
	return "", fmt.Errorf("%w: %q", apperr.ErrUnsupportedFormat, s)
}

// Ext returns the artifact file extension for f.
func (f Format) Ext() string { return "." + string(f) }

// Converter turns PDF bytes into another format.
type Converter interface {
	Convert(ctx context.Context, pdf []byte, target Format) ([]byte, error)
}

// Office converts documents with soffice for office targets and the page
// renderer for image targets. Image targets render the first page only.
type Office struct {
	Binary   string
	Renderer render.Renderer
}

// NewOffice returns a converter using the given soffice binary (default
// "soffice") and renderer.
func NewOffice(binary string, r render.Renderer) *Office {
	if binary == "" {
		binary = "soffice"
	}
	return &Office{Binary: binary, Renderer: r}
}

// Convert dispatches on target. Timeouts are the caller's responsibility
// via ctx.
func (o *Office) Convert(ctx context.Context, pdf []byte, target Format) ([]byte, error) {
	switch target {
	case FormatJpg, FormatPng:
		return o.renderFirstPage(pdf, target)
	case FormatDocx, FormatXlsx, FormatPptx:
		return o.soffice(ctx, pdf, target)
	}
	return nil, fmt.Errorf("%w: %q", apperr.ErrUnsupportedFormat, target)
}

func (o *Office) renderFirstPage(pdf []byte, target Format) ([]byte, error) {
	img, err := o.Renderer.PageImage(pdf, 0)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	switch target {
	case FormatJpg:
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90})
	case FormatPng:
		err = png.Encode(&buf, img)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: encode %s: %v", apperr.ErrConversionFault, target, err)
	}
	return buf.Bytes(), nil
}

// soffice writes the PDF to a scratch dir, runs the converter, and reads
// back the produced file. soffice names the output after the input stem.
func (o *Office) soffice(ctx context.Context, pdf []byte, target Format) ([]byte, error) {
	dir, err := os.MkdirTemp("", "folio-convert-*")
	if err != nil {
		return nil, fmt.Errorf("%w: scratch dir: %v", apperr.ErrConversionFault, err)
	}
	defer os.RemoveAll(dir)

	in := filepath.Join(dir, "input.pdf")
	if err := os.WriteFile(in, pdf, 0o600); err != nil {
		return nil, fmt.Errorf("%w: write input: %v", apperr.ErrConversionFault, err)
	}

	cmd := exec.CommandContext(ctx, o.Binary, "--headless", "--convert-to", string(target), "--outdir", dir, in)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%w: %v: %s", apperr.ErrConversionFault, err, strings.TrimSpace(stderr.String()))
	}

	out, err := os.ReadFile(filepath.Join(dir, "input"+target.Ext()))
	if err != nil {
		return nil, fmt.Errorf("%w: read output: %v", apperr.ErrConversionFault, err)
	}
	return out, nil
}
