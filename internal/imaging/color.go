package imaging

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// White is the default scene background.
var White = color.NRGBA{R: 255, G: 255, B: 255, A: 255}

// ParseHex parses "#RGB", "#RRGGBB" or "#RRGGBBAA". Colours without an alpha
// component are opaque.
func ParseHex(s string) (color.NRGBA, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "#") {
		s = "#" + s
	}

	alpha := uint8(255)
	if len(s) == 9 {
		a, err := strconv.ParseUint(s[7:], 16, 8)
		if err != nil {
			return color.NRGBA{}, fmt.Errorf("invalid alpha in colour %q: %w", s, err)
		}
		alpha = uint8(a)
		s = s[:7]
	}

	c, err := colorful.Hex(s)
	if err != nil {
		return color.NRGBA{}, err
	}
	r, g, b := c.RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: alpha}, nil
}

// ParseHexOr parses s and falls back to def when s is empty or malformed.
func ParseHexOr(s string, def color.NRGBA) color.NRGBA {
	if s == "" {
		return def
	}
	c, err := ParseHex(s)
	if err != nil {
		return def
	}
	return c
}
