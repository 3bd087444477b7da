package testutil

import (
	"image"
	"image/color"
	"image/draw"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// PageImageConfig describes a synthetic rasterized catalog page.
type PageImageConfig struct {
	Width      int
	Height     int
	Background color.Color
	// Photo is the placeholder block standing in for the product photo.
	Photo color.Color
	// Footer is drawn near the bottom edge, where the price band goes.
	Footer string
}

// DefaultPageImageConfig returns a small page at the 2x raster scale.
func DefaultPageImageConfig() PageImageConfig {
	return PageImageConfig{
		Width:      600,
		Height:     800,
		Background: color.White,
		Photo:      color.NRGBA{R: 200, G: 120, B: 60, A: 255},
		Footer:     "BONE 82969",
	}
}

// GeneratePageImage draws a page with a photo block and footer text.
func GeneratePageImage(cfg PageImageConfig) *image.NRGBA {
	img := imaging.New(cfg.Width, cfg.Height, cfg.Background)

	photo := image.Rect(cfg.Width/10, cfg.Height/10, cfg.Width*9/10, cfg.Height*6/10)
	draw.Draw(img, photo, &image.Uniform{C: cfg.Photo}, image.Point{}, draw.Src)

	if cfg.Footer != "" {
		face := basicfont.Face7x13
		drawer := &font.Drawer{
			Dst:  img,
			Src:  image.NewUniform(color.Black),
			Face: face,
			Dot:  fixed.P(20, cfg.Height-40),
		}
		drawer.DrawString(cfg.Footer)
	}
	return img
}

// WritePageImage saves a generated page as page_<n>.png in dir and returns its path.
func WritePageImage(t *testing.T, dir, name string, cfg PageImageConfig) string {
	t.Helper()

	require.NoError(t, EnsureDir(dir))
	path := filepath.Join(dir, name)
	require.NoError(t, imaging.Save(GeneratePageImage(cfg), path))
	return path
}

// LoadImage decodes the image at path.
func LoadImage(t *testing.T, path string) image.Image {
	t.Helper()

	img, err := imaging.Open(path)
	require.NoError(t, err, "Failed to open image %s", path)
	return img
}

// ColorAt returns the non-premultiplied color of one pixel.
func ColorAt(img image.Image, x, y int) color.NRGBA {
	return color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
}

// ReadFile returns file contents or fails the test.
func ReadFile(t *testing.T, path string) []byte {
	t.Helper()

	data, err := os.ReadFile(path) //nolint:gosec // G304: test artifact with controlled path
	require.NoError(t, err)
	return data
}
