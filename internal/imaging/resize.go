package imaging

import (
	"image"

	"golang.org/x/image/draw"
)

// ResizeInto scales src to fill dst using Catmull-Rom resampling.
func ResizeInto(dst *image.NRGBA, src *image.NRGBA) {
	draw.CatmullRom.Scale(rgbaView(dst), dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	unpremultiply(dst)
}

// rgbaView shares img's buffer as an *image.RGBA. x/image/draw only has fast
// paths for RGBA destinations, so resampling writes premultiplied samples
// through the view and unpremultiply converts them back in place.
func rgbaView(img *image.NRGBA) *image.RGBA {
	return &image.RGBA{Pix: img.Pix, Stride: img.Stride, Rect: img.Rect}
}

func unpremultiply(img *image.NRGBA) {
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		i := img.PixOffset(b.Min.X, y)
		row := img.Pix[i : i+b.Dx()*4]
		for j := 0; j < len(row); j += 4 {
			a := uint32(row[j+3])
			switch a {
			case 0xff:
			case 0:
				row[j], row[j+1], row[j+2] = 0, 0, 0
			default:
				for k := j; k < j+3; k++ {
					row[k] = uint8(min((uint32(row[k])*0xff+a/2)/a, 0xff))
				}
			}
		}
	}
}
