// Package codeimage turns a feedback URL into a scannable code image and
// publishes it to object storage.
package codeimage

import (
	"errors"
	"fmt"
	"strings"

	qrcode "github.com/skip2/go-qrcode"
)

var ErrEmptyContent = errors.New("code content is empty")

// Code is the rendered module grid for one URL. Modules includes the quiet
// zone; true means a dark module.
type Code struct {
	Content string
	Modules [][]bool
}

// Render encodes content as a QR symbol at medium error correction.
func Render(content string) (*Code, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyContent
	}
	q, err := qrcode.New(content, qrcode.Medium)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}
	return &Code{Content: content, Modules: q.Bitmap()}, nil
}

// Size is the edge length of the grid in modules.
func (c *Code) Size() int {
	return len(c.Modules)
}

// SVG returns the vector form of the code, drawn at displaySize pixels with an
// opaque white background. Dark modules in a row are merged into runs.
func (c *Code) SVG(displaySize int) string {
	n := c.Size()
	var sb strings.Builder
	fmt.Fprintf(&sb, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d" shape-rendering="crispEdges">`,
		displaySize, displaySize, n, n)
	fmt.Fprintf(&sb, `<rect width="%d" height="%d" fill="#ffffff"/>`, n, n)
	sb.WriteString(`<path fill="#000000" d="`)
	for y, row := range c.Modules {
		for x := 0; x < len(row); {
			if !row[x] {
				x++
				continue
			}
			start := x
			for x < len(row) && row[x] {
				x++
			}
			fmt.Fprintf(&sb, "M%d %dh%dv1h-%dz", start, y, x-start, x-start)
		}
	}
	sb.WriteString(`"/></svg>`)
	return sb.String()
}
