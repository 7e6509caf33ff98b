// Package text rasterizes overlay captions onto a canvas.
package text

import (
	"fmt"
	"image"
	"image/color"
	"os"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/ivlev/scene2video/internal/imaging"
)

// Style describes one caption draw.
type Style struct {
	Size       float64
	Color      color.NRGBA
	Background color.NRGBA // zero alpha disables the box
	Opacity    float64     // 0..1, multiplies both colours
	Padding    int
}

// Renderer draws captions with one parsed font. It is safe for concurrent
// use: the parsed font is read-only and every draw opens its own face.
type Renderer struct {
	font *opentype.Font
}

// NewRenderer parses the TrueType/OpenType font at path, or the embedded Go
// Regular font when path is empty.
func NewRenderer(path string) (*Renderer, error) {
	data := goregular.TTF
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read font: %w", err)
		}
		data = b
	}

	f, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}
	return &Renderer{font: f}, nil
}

// face opens a face for size. Faces hold glyph buffers and must not be
// shared between goroutines.
func (r *Renderer) face(size float64) (font.Face, error) {
	if size <= 0 {
		size = 24
	}
	return opentype.NewFace(r.font, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
}

// Measure returns the pixel width and line height of s at size.
func (r *Renderer) Measure(s string, size float64) (int, int, error) {
	face, err := r.face(size)
	if err != nil {
		return 0, 0, err
	}
	defer face.Close()

	m := face.Metrics()
	return font.MeasureString(face, s).Ceil(), (m.Ascent + m.Descent).Ceil(), nil
}

// Draw renders s with its top-left corner at (x, y) onto canvas.
func (r *Renderer) Draw(canvas *imaging.Canvas, s string, x, y int, st Style) error {
	if s == "" || st.Opacity <= 0 {
		return nil
	}

	face, err := r.face(st.Size)
	if err != nil {
		return err
	}
	defer face.Close()

	m := face.Metrics()
	w := font.MeasureString(face, s).Ceil()
	h := (m.Ascent + m.Descent).Ceil()
	if w <= 0 || h <= 0 {
		return nil
	}

	pad := st.Padding
	layer := image.NewNRGBA(image.Rect(0, 0, w+2*pad, h+2*pad))

	if bg := fade(st.Background, st.Opacity); bg.A > 0 {
		for i := 0; i < len(layer.Pix); i += 4 {
			layer.Pix[i], layer.Pix[i+1], layer.Pix[i+2], layer.Pix[i+3] = bg.R, bg.G, bg.B, bg.A
		}
	}

	d := &font.Drawer{
		Dst:  layer,
		Src:  image.NewUniform(fade(st.Color, st.Opacity)),
		Face: face,
		Dot:  fixed.P(pad, pad+m.Ascent.Ceil()),
	}
	d.DrawString(s)

	canvas.CompositeAt(imaging.Layer{Img: layer, Alpha: true}, x-pad, y-pad)
	return nil
}

func fade(c color.NRGBA, opacity float64) color.NRGBA {
	if opacity >= 1 {
		return c
	}
	c.A = uint8(float64(c.A)*opacity + 0.5)
	return c
}
