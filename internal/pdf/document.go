// Package pdf renders catalog pages to images and reads their embedded text.
package pdf

import (
	"errors"
	"fmt"
	"os"

	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// ErrOpenDocument is returned when a PDF cannot be opened or parsed.
var ErrOpenDocument = errors.New("cannot open document")

// PageCount returns the number of pages of the PDF at path.
func PageCount(path string) (int, error) {
	n, err := api.PageCountFile(path)
	if err != nil {
		return 0, fmt.Errorf("%w %q: %v", ErrOpenDocument, path, err)
	}
	return n, nil
}

// Verify checks that path is a non-empty, readable PDF and returns its page count.
func Verify(path string) (int, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("%w %q: %v", ErrOpenDocument, path, err)
	}
	if info.IsDir() {
		return 0, fmt.Errorf("%w %q: is a directory", ErrOpenDocument, path)
	}
	if info.Size() == 0 {
		return 0, fmt.Errorf("%w %q: empty file", ErrOpenDocument, path)
	}
	n, err := PageCount(path)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, fmt.Errorf("%w %q: no pages", ErrOpenDocument, path)
	}
	return n, nil
}
