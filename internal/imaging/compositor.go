package imaging

import (
	"image"
	"image/color"
	"math"

	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
)

// Canvas is the frame being composed. In transparent mode it starts fully
// transparent and tracks coverage in its alpha channel; otherwise every
// pixel stays opaque.
type Canvas struct {
	Img         *image.NRGBA
	Transparent bool
}

// NewCanvas allocates a w×h canvas. Opaque canvases are filled with bg.
func NewCanvas(w, h int, bg color.NRGBA, transparent bool) *Canvas {
	c := &Canvas{
		Img:         image.NewNRGBA(image.Rect(0, 0, w, h)),
		Transparent: transparent,
	}
	if !transparent {
		bg.A = 255
		fill(c.Img, bg)
	}
	return c
}

// Width of the canvas in pixels.
func (c *Canvas) Width() int { return c.Img.Bounds().Dx() }

// Height of the canvas in pixels.
func (c *Canvas) Height() int { return c.Img.Bounds().Dy() }

// Composite places layer so that its centre lands on (ax, ay) and blends it
// over the overlapping region. Parts outside the canvas are clipped.
func (c *Canvas) Composite(layer Layer, ax, ay float64) {
	if layer.Empty() {
		return
	}
	lb := layer.Bounds()
	x := int(math.Floor(ax - float64(lb.Dx())/2))
	y := int(math.Floor(ay - float64(lb.Dy())/2))
	c.CompositeAt(layer, x, y)
}

// CompositeAt blends layer with its top-left corner at (x, y).
func (c *Canvas) CompositeAt(layer Layer, x, y int) {
	if layer.Empty() {
		return
	}
	lb := layer.Bounds()
	cb := c.Img.Bounds()

	dst := image.Rect(x, y, x+lb.Dx(), y+lb.Dy()).Intersect(cb)
	if dst.Empty() {
		return
	}

	src := layer.Img
	for py := dst.Min.Y; py < dst.Max.Y; py++ {
		ci := c.Img.PixOffset(dst.Min.X, py)
		li := src.PixOffset(dst.Min.X-x, py-y)
		for px := dst.Min.X; px < dst.Max.X; px++ {
			cp := c.Img.Pix[ci : ci+4 : ci+4]
			lp := src.Pix[li : li+4 : li+4]
			if !layer.Alpha {
				cp[0], cp[1], cp[2], cp[3] = lp[0], lp[1], lp[2], 255
			} else {
				blend(cp, lp, c.Transparent)
			}
			ci += 4
			li += 4
		}
	}
}

// blend computes out = a*layer + (1-a)*canvas per channel with rounding, so
// a fully opaque pixel replaces the canvas exactly and a fully transparent
// one leaves it untouched.
func blend(cp, lp []uint8, transparent bool) {
	a := uint32(lp[3])
	if a == 0 {
		return
	}
	inv := 255 - a
	cp[0] = uint8((uint32(lp[0])*a + uint32(cp[0])*inv + 127) / 255)
	cp[1] = uint8((uint32(lp[1])*a + uint32(cp[1])*inv + 127) / 255)
	cp[2] = uint8((uint32(lp[2])*a + uint32(cp[2])*inv + 127) / 255)
	if transparent && lp[3] > cp[3] {
		cp[3] = lp[3]
	}
}

// FillImage stretches img over the whole canvas and blends it in.
func (c *Canvas) FillImage(img Layer) {
	if img.Empty() {
		return
	}
	layer := img
	if img.Bounds().Size() != c.Img.Bounds().Size() {
		scaled := image.NewNRGBA(c.Img.Bounds())
		draw.CatmullRom.Scale(rgbaView(scaled), scaled.Bounds(), img.Img, img.Bounds(), draw.Src, nil)
		unpremultiply(scaled)
		layer = Layer{Img: scaled, Alpha: img.Alpha}
	}
	c.CompositeAt(layer, 0, 0)
}

// Zoom scales the whole canvas by factor about (cx, cy). Pixels uncovered by
// the scaled content are filled with bg (cleared in transparent mode).
func (c *Canvas) Zoom(factor, cx, cy float64, bg color.NRGBA) {
	if factor <= 0 || math.IsNaN(factor) {
		return
	}
	src := c.Img
	dst := image.NewNRGBA(src.Bounds())
	if !c.Transparent {
		bg.A = 255
		fill(dst, bg)
	}

	s2d := f64.Aff3{
		factor, 0, cx * (1 - factor),
		0, factor, cy * (1 - factor),
	}
	draw.BiLinear.Transform(rgbaView(dst), s2d, src, src.Bounds(), draw.Src, nil)
	unpremultiply(dst)
	c.Img = dst
}
