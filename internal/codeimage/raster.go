package codeimage

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"strings"

	"github.com/fogleman/gg"
	"golang.org/x/image/draw"
	"golang.org/x/image/font/basicfont"
)

type Format string

const (
	FormatPNG  Format = "png"
	FormatJPEG Format = "jpeg"

	// JPEGQuality matches a 0.92 browser canvas export.
	JPEGQuality = 92

	MinSize = 64
	MaxSize = 4096

	captionHeight = 28
)

var (
	ErrSizeOutOfRange = errors.New("image size out of range")
	ErrUnknownFormat  = errors.New("unknown image format")
)

var background = color.White

// ParseFormat accepts png, jpg and jpeg in any case.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "png":
		return FormatPNG, nil
	case "jpg", "jpeg":
		return FormatJPEG, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

func (f Format) ContentType() string {
	if f == FormatJPEG {
		return "image/jpeg"
	}
	return "image/png"
}

func (f Format) Ext() string {
	if f == FormatJPEG {
		return "jpg"
	}
	return "png"
}

// RasterOptions controls the bitmap surface. Caption, when set, is written
// under the code and grows the canvas height.
type RasterOptions struct {
	Size    int
	Caption string
}

// Rasterize draws the code onto a size x size surface. The surface is filled
// with an opaque background before any module is drawn, so no exported pixel is
// transparent.
func Rasterize(code *Code, opts RasterOptions) (image.Image, error) {
	if code == nil || code.Size() == 0 {
		return nil, ErrEmptyContent
	}
	if opts.Size < MinSize || opts.Size > MaxSize || opts.Size < code.Size() {
		return nil, fmt.Errorf("%w: %d", ErrSizeOutOfRange, opts.Size)
	}

	height := opts.Size
	if opts.Caption != "" {
		height += captionHeight
	}

	dc := gg.NewContext(opts.Size, height)
	dc.SetColor(background)
	dc.Clear()

	// Whole-pixel modules keep edges sharp; the remainder becomes extra margin.
	modulePx := opts.Size / code.Size()
	side := modulePx * code.Size()
	offset := (opts.Size - side) / 2

	scaled := image.NewNRGBA(image.Rect(0, 0, side, side))
	draw.NearestNeighbor.Scale(scaled, scaled.Bounds(), moduleImage(code), image.Rect(0, 0, code.Size(), code.Size()), draw.Over, nil)
	dc.DrawImage(scaled, offset, offset)

	if opts.Caption != "" {
		dc.SetColor(color.Black)
		dc.SetFontFace(basicfont.Face7x13)
		dc.DrawStringAnchored(opts.Caption, float64(opts.Size)/2, float64(opts.Size)+float64(captionHeight)/2, 0.5, 0.5)
	}

	return dc.Image(), nil
}

// moduleImage is one pixel per module: dark modules opaque black, light
// modules fully transparent.
func moduleImage(code *Code) *image.NRGBA {
	n := code.Size()
	img := image.NewNRGBA(image.Rect(0, 0, n, n))
	for y, row := range code.Modules {
		for x, dark := range row {
			if dark {
				img.SetNRGBA(x, y, color.NRGBA{A: 0xff})
			}
		}
	}
	return img
}

// Encode writes img in the given format.
func Encode(w io.Writer, img image.Image, format Format) error {
	switch format {
	case FormatPNG:
		return png.Encode(w, img)
	case FormatJPEG:
		return jpeg.Encode(w, img, &jpeg.Options{Quality: JPEGQuality})
	}
	return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
}

// Save writes img to path, choosing the encoder by format.
func Save(path string, img image.Image, format Format) error {
	switch format {
	case FormatPNG:
		return gg.SavePNG(path, img)
	case FormatJPEG:
		return gg.SaveJPG(path, img, JPEGQuality)
	}
	return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
}
