package engine

import (
	"fmt"
	"math"
	"strings"
)

// Quality is an export size and bitrate preset.
type Quality struct {
	Name          string
	Width, Height int
	Bitrate       string
}

// Qualities are the supported presets.
var Qualities = map[string]Quality{
	"low":    {Name: "low", Width: 854, Height: 480, Bitrate: "1M"},
	"medium": {Name: "medium", Width: 1280, Height: 720, Bitrate: "2.5M"},
	"high":   {Name: "high", Width: 1920, Height: 1080, Bitrate: "5M"},
	"ultra":  {Name: "ultra", Width: 3840, Height: 2160, Bitrate: "15M"},
}

// ParseQuality looks up a preset by name; empty means high.
func ParseQuality(name string) (Quality, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = "high"
	}
	q, ok := Qualities[name]
	if !ok {
		return Quality{}, fmt.Errorf("unknown quality %q", name)
	}
	return q, nil
}

// Fit returns the output size for a w×h canvas: the largest size inside the
// preset box with the canvas aspect ratio, never larger than the canvas,
// rounded down to even dimensions for chroma-subsampled codecs.
func (q Quality) Fit(w, h int) (int, int) {
	if w <= 0 || h <= 0 {
		return 0, 0
	}

	scale := 1.0
	if sx := float64(q.Width) / float64(w); sx < scale {
		scale = sx
	}
	if sy := float64(q.Height) / float64(h); sy < scale {
		scale = sy
	}

	ow := int(math.Round(float64(w) * scale))
	oh := int(math.Round(float64(h) * scale))
	return max(even(ow), 2), max(even(oh), 2)
}

func even(n int) int {
	return n &^ 1
}
