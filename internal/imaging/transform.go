package imaging

import (
	"image"
	"image/color"
	"math"

	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
)

// Layer is an immutable raster ready for compositing. Alpha is false for
// sources without an alpha channel; such layers overwrite what they cover.
type Layer struct {
	Img   *image.NRGBA
	Alpha bool
}

// Bounds returns the layer size, or an empty rectangle for an empty layer.
func (l Layer) Bounds() image.Rectangle {
	if l.Img == nil {
		return image.Rectangle{}
	}
	return l.Img.Bounds()
}

// Empty reports whether the layer covers no pixels.
func (l Layer) Empty() bool {
	return l.Bounds().Empty()
}

// NewLayer copies img into a fresh NRGBA buffer anchored at the origin.
func NewLayer(img image.Image) Layer {
	return Layer{Img: toNRGBA(img), Alpha: HasAlpha(img)}
}

// HasAlpha reports whether img carries an alpha channel. Decoders return
// opaque RGBA, RGBA64 and palette images for files without one (RGB PNG,
// paletted PNG without tRNS, GIF without a transparent index, PDF pages), so
// those count as alpha only when some pixel is actually translucent.
func HasAlpha(img image.Image) bool {
	switch img.(type) {
	case *image.NRGBA, *image.NRGBA64, *image.NYCbCrA, *image.Alpha, *image.Alpha16:
		return true
	}
	if o, ok := img.(interface{ Opaque() bool }); ok {
		return !o.Opaque()
	}
	return true
}

// Transform scales, optionally flips and rotates src about its centre. The
// output canvas grows to the rotated bounding box; corners introduced by the
// rotation are transparent when src has alpha and opaque white otherwise.
// The source is never modified and the result never shares its buffer.
func Transform(src Layer, scale, rotationDeg float64, flipH bool) Layer {
	if src.Empty() {
		return Layer{Alpha: src.Alpha}
	}

	out := Layer{Img: toNRGBA(src.Img), Alpha: src.Alpha}

	if scale != 1 {
		out.Img = resize(out.Img, scale)
		if out.Img == nil {
			return Layer{Alpha: src.Alpha}
		}
	}

	if flipH {
		flipHorizontal(out.Img)
	}

	if deg := math.Mod(rotationDeg, 360); deg != 0 {
		out.Img = rotate(out.Img, deg, out.Alpha)
	}

	return out
}

// RotatedSize is the axis-aligned bounding box of a w×h image rotated by deg.
func RotatedSize(w, h int, deg float64) (int, int) {
	theta := deg * math.Pi / 180
	sin, cos := math.Abs(math.Sin(theta)), math.Abs(math.Cos(theta))
	fw, fh := float64(w), float64(h)
	return int(math.Round(fh*sin + fw*cos)), int(math.Round(fh*cos + fw*sin))
}

func resize(img *image.NRGBA, scale float64) *image.NRGBA {
	if math.IsNaN(scale) || math.IsInf(scale, 0) {
		return nil
	}
	b := img.Bounds()
	w := int(float64(b.Dx()) * scale)
	h := int(float64(b.Dy()) * scale)
	if w < 1 || h < 1 {
		return nil
	}
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(rgbaView(dst), dst.Bounds(), img, b, draw.Src, nil)
	unpremultiply(dst)
	return dst
}

func flipHorizontal(img *image.NRGBA) {
	b := img.Bounds()
	w := b.Dx()
	for y := 0; y < b.Dy(); y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+w*4]
		for l, r := 0, w-1; l < r; l, r = l+1, r-1 {
			li, ri := l*4, r*4
			row[li], row[ri] = row[ri], row[li]
			row[li+1], row[ri+1] = row[ri+1], row[li+1]
			row[li+2], row[ri+2] = row[ri+2], row[li+2]
			row[li+3], row[ri+3] = row[ri+3], row[li+3]
		}
	}
}

// rotate turns img counter-clockwise (as displayed) by deg degrees.
func rotate(img *image.NRGBA, deg float64, alpha bool) *image.NRGBA {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	nw, nh := RotatedSize(w, h, deg)
	if nw < 1 || nh < 1 {
		return image.NewNRGBA(image.Rect(0, 0, 0, 0))
	}

	dst := image.NewNRGBA(image.Rect(0, 0, nw, nh))
	if !alpha {
		fill(dst, White)
	}

	theta := deg * math.Pi / 180
	sin, cos := math.Sin(theta), math.Cos(theta)
	scx, scy := float64(w)/2, float64(h)/2
	dcx, dcy := float64(nw)/2, float64(nh)/2

	// Source to destination: x' = cos*x + sin*y + tx, y' = -sin*x + cos*y + ty.
	s2d := f64.Aff3{
		cos, sin, dcx - (cos*scx + sin*scy),
		-sin, cos, dcy - (-sin*scx + cos*scy),
	}
	draw.BiLinear.Transform(rgbaView(dst), s2d, img, b, draw.Src, nil)
	unpremultiply(dst)
	return dst
}

func fill(img *image.NRGBA, c color.NRGBA) {
	pix := img.Pix
	for i := 0; i+3 < len(pix); i += 4 {
		pix[i], pix[i+1], pix[i+2], pix[i+3] = c.R, c.G, c.B, c.A
	}
}

// toNRGBA returns a copy of img as a zero-origin NRGBA.
func toNRGBA(img image.Image) *image.NRGBA {
	b := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	if src, ok := img.(*image.NRGBA); ok {
		for y := 0; y < b.Dy(); y++ {
			si := src.PixOffset(b.Min.X, b.Min.Y+y)
			copy(dst.Pix[y*dst.Stride:y*dst.Stride+b.Dx()*4], src.Pix[si:si+b.Dx()*4])
		}
		return dst
	}
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}
