package compose

import (
	"fmt"
	"log/slog"
	"os"

	"codeberg.org/go-pdf/fpdf"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

// DefaultFontPaths lists the TrueType fonts tried for labels, preferred first.
var DefaultFontPaths = []string{
	"/usr/share/fonts/truetype/liberation/LiberationSans-Regular.ttf",
	"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
	"/usr/share/fonts/truetype/freefont/FreeSans.ttf",
	"/usr/share/fonts/truetype/ubuntu/Ubuntu-R.ttf",
}

const (
	labelFamily = "PriceLabel"
	coreFamily  = "Helvetica"
)

// Font is the resolved label font of a document.
type Font struct {
	Family string
	// Path is empty for the built-in core font.
	Path string
	// Encode converts UTF-8 label text into what the font expects.
	Encode func(string) string
}

// Builtin reports whether the core font is in use.
func (f Font) Builtin() bool {
	return f.Path == ""
}

// ResolveFont registers the first loadable font of paths with doc. When none
// loads, the built-in Helvetica is used with Windows-1252 text.
func ResolveFont(doc *fpdf.Fpdf, paths []string, logger *slog.Logger) Font {
	if logger == nil {
		logger = slog.Default()
	}
	for _, path := range paths {
		if err := addUTF8Font(doc, path); err != nil {
			logger.Debug("font unavailable", "path", path, "error", err)
			continue
		}
		logger.Debug("label font resolved", "path", path)
		return Font{Family: labelFamily, Path: path, Encode: func(s string) string { return s }}
	}

	logger.Info("no TrueType label font found, using built-in font", "font", coreFamily)
	return Font{Family: coreFamily, Encode: encodeWindows1252}
}

func addUTF8Font(doc *fpdf.Fpdf, path string) (err error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: font paths come from config
	if err != nil {
		return err
	}

	defer func() {
		if r := recover(); r != nil {
			doc.ClearError()
			err = fmt.Errorf("parse font: %v", r)
		}
	}()

	doc.AddUTF8FontFromBytes(labelFamily, "", data)
	if doc.Err() {
		err = doc.Error()
		doc.ClearError()
		return err
	}
	return nil
}

func encodeWindows1252(s string) string {
	out, err := encoding.ReplaceUnsupported(charmap.Windows1252.NewEncoder()).String(s)
	if err != nil {
		return s
	}
	return out
}
