// Package compose paints price bands onto catalog pages and assembles the
// priced catalog PDF.
package compose

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

// DefaultBandHeight is the band height in pixels at the 2x raster scale.
const DefaultBandHeight = 300

// DefaultBandColor is the gray band.
var DefaultBandColor = color.NRGBA{R: 128, G: 128, B: 128, A: 255}

// Band is the opaque footer rectangle drawn under the price labels.
type Band struct {
	Height int
	Color  color.NRGBA
}

// Paint returns a copy of img with the band pasted over its bottom edge.
// The image keeps its size; a band taller than the image covers all of it.
func (b Band) Paint(img image.Image) *image.NRGBA {
	out := imaging.Clone(img)
	h := b.clamp(out.Bounds().Dy())
	if h == 0 {
		return out
	}

	c := b.Color
	c.A = 255
	w := out.Bounds().Dx()
	strip := imaging.New(w, h, c)
	return imaging.Paste(out, strip, image.Pt(0, out.Bounds().Dy()-h))
}

// Top returns the y coordinate of the band's upper edge on a page of the given height.
func (b Band) Top(pageHeight int) int {
	return pageHeight - b.clamp(pageHeight)
}

func (b Band) clamp(pageHeight int) int {
	switch {
	case b.Height <= 0:
		return 0
	case b.Height > pageHeight:
		return pageHeight
	default:
		return b.Height
	}
}
