package config

import (
	"errors"
	"fmt"
	"image/color"
	"strconv"
	"strings"

	"golang.org/x/image/colornames"
)

// ErrInvalidColor is returned for color strings that cannot be parsed.
var ErrInvalidColor = errors.New("invalid color")

// bandPalette holds the band color choices offered to catalog editors, in
// English and Portuguese.
var bandPalette = map[string]color.NRGBA{
	"gray":     {R: 128, G: 128, B: 128, A: 255},
	"grey":     {R: 128, G: 128, B: 128, A: 255},
	"cinza":    {R: 128, G: 128, B: 128, A: 255},
	"blue":     {R: 41, G: 98, B: 255, A: 255},
	"azul":     {R: 41, G: 98, B: 255, A: 255},
	"green":    {R: 0, G: 128, B: 0, A: 255},
	"verde":    {R: 0, G: 128, B: 0, A: 255},
	"red":      {R: 255, G: 0, B: 0, A: 255},
	"vermelho": {R: 255, G: 0, B: 0, A: 255},
	"black":    {R: 0, G: 0, B: 0, A: 255},
	"preto":    {R: 0, G: 0, B: 0, A: 255},
	"purple":   {R: 128, G: 0, B: 128, A: 255},
	"roxo":     {R: 128, G: 0, B: 128, A: 255},
	"white":    {R: 255, G: 255, B: 255, A: 255},
	"branco":   {R: 255, G: 255, B: 255, A: 255},
}

// ParseColor accepts a palette name, an SVG color name, "#RRGGBB" or
// "R,G,B". The result is always opaque.
func ParseColor(s string) (color.NRGBA, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	if key == "" {
		return color.NRGBA{}, fmt.Errorf("%w: empty", ErrInvalidColor)
	}
	if c, ok := bandPalette[key]; ok {
		return c, nil
	}
	if c, ok := colornames.Map[key]; ok {
		return color.NRGBA{R: c.R, G: c.G, B: c.B, A: 255}, nil
	}
	if strings.Contains(key, ",") {
		return parseTriplet(key)
	}
	return parseHexColor(key)
}

// parseHexColor parses colors like "#RRGGBB" or "RRGGBB".
func parseHexColor(s string) (color.NRGBA, error) {
	hex := strings.TrimPrefix(s, "#")
	if len(hex) != 6 {
		return color.NRGBA{}, fmt.Errorf("%w: %q", ErrInvalidColor, s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("%w: %q", ErrInvalidColor, s)
	}
	return color.NRGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}, nil //nolint:gosec // G115: masked to 8 bits
}

func parseTriplet(s string) (color.NRGBA, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return color.NRGBA{}, fmt.Errorf("%w: %q needs three components", ErrInvalidColor, s)
	}
	var rgb [3]uint8
	for i, p := range parts {
		v, err := strconv.ParseUint(strings.TrimSpace(p), 10, 8)
		if err != nil {
			return color.NRGBA{}, fmt.Errorf("%w: %q: component %d out of 0-255", ErrInvalidColor, s, i+1)
		}
		rgb[i] = uint8(v)
	}
	return color.NRGBA{R: rgb[0], G: rgb[1], B: rgb[2], A: 255}, nil
}

// FormatColor renders c as "#rrggbb".
func FormatColor(c color.NRGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}
