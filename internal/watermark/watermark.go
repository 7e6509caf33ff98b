// Package watermark stamps a QR code and an optional caption into the
// corner of rendered frames.
package watermark

import (
	"fmt"
	"image/color"

	"github.com/skip2/go-qrcode"

	"github.com/ivlev/scene2video/internal/imaging"
	"github.com/ivlev/scene2video/internal/text"
)

// Options configure a Stamp.
type Options struct {
	URL     string
	Caption string
	// Size is the QR side in pixels.
	Size   int
	Margin int
	// Opacity scales the stamp's alpha, 0..1.
	Opacity float64
}

// Stamp is a prerendered watermark. Apply only reads it, so one Stamp may be
// shared by all render workers.
type Stamp struct {
	layer  imaging.Layer
	margin int
}

// New renders the watermark once. txt may be nil when there is no caption.
func New(opts Options, txt *text.Renderer) (*Stamp, error) {
	if opts.URL == "" && opts.Caption == "" {
		return nil, fmt.Errorf("watermark needs a url or a caption")
	}
	if opts.Size <= 0 {
		opts.Size = 96
	}
	if opts.Opacity <= 0 || opts.Opacity > 1 {
		opts.Opacity = 1
	}

	var qr imaging.Layer
	if opts.URL != "" {
		q, err := qrcode.New(opts.URL, qrcode.Medium)
		if err != nil {
			return nil, fmt.Errorf("encode qr: %w", err)
		}
		q.DisableBorder = true
		qr = imaging.NewLayer(q.Image(opts.Size))
	}

	captionSize := float64(opts.Size) / 6
	if captionSize < 10 {
		captionSize = 10
	}
	var cw, ch int
	if opts.Caption != "" {
		if txt == nil {
			return nil, fmt.Errorf("watermark caption needs a text renderer")
		}
		var err error
		if cw, ch, err = txt.Measure(opts.Caption, captionSize); err != nil {
			return nil, err
		}
	}

	qb := qr.Bounds()
	w := max(qb.Dx(), cw)
	h := qb.Dy() + ch
	if qb.Dy() > 0 && ch > 0 {
		h += opts.Margin / 2
	}

	canvas := imaging.NewCanvas(w, h, color.NRGBA{}, true)
	canvas.CompositeAt(qr, w-qb.Dx(), 0)
	if opts.Caption != "" {
		err := txt.Draw(canvas, opts.Caption, w-cw, h-ch, text.Style{
			Size:    captionSize,
			Color:   imaging.White,
			Opacity: 1,
		})
		if err != nil {
			return nil, err
		}
	}

	if opts.Opacity < 1 {
		pix := canvas.Img.Pix
		for i := 3; i < len(pix); i += 4 {
			pix[i] = uint8(float64(pix[i])*opts.Opacity + 0.5)
		}
	}

	return &Stamp{layer: imaging.Layer{Img: canvas.Img, Alpha: true}, margin: opts.Margin}, nil
}

// Layer returns the prerendered stamp.
func (s *Stamp) Layer() imaging.Layer { return s.layer }

// Apply blends the stamp into the bottom-right corner of c.
func (s *Stamp) Apply(c *imaging.Canvas) {
	b := s.layer.Bounds()
	c.CompositeAt(s.layer, c.Width()-b.Dx()-s.margin, c.Height()-b.Dy()-s.margin)
}
