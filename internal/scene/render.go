// Package scene renders a single scene at a scene-local instant.
package scene

import (
	"image/color"
	"math"

	"github.com/rs/zerolog"

	"github.com/ivlev/scene2video/internal/animation"
	"github.com/ivlev/scene2video/internal/assets"
	"github.com/ivlev/scene2video/internal/imaging"
	"github.com/ivlev/scene2video/internal/project"
	"github.com/ivlev/scene2video/internal/text"
)

const (
	// fadeWindow is the ramp length at both ends of a fading overlay.
	fadeWindow = 0.5
	// slideWindow is how long a sliding overlay takes to settle.
	slideWindow = 0.5
	// slideOffset is the starting distance of a slide, as a fraction of
	// the canvas height.
	slideOffset = 0.05
	// minOpacity is the visibility threshold below which overlays are
	// not drawn at all.
	minOpacity = 0.1
)

// Renderer composes scene frames. One Renderer may be shared by many
// goroutines: it holds no per-frame state, and every Render call allocates
// its own canvas.
type Renderer struct {
	Width, Height int
	Transparent   bool

	Assets *assets.Cache
	Text   *text.Renderer
	Log    zerolog.Logger
}

// New creates a renderer for frames of the project's canvas size.
func New(p *project.Project, cache *assets.Cache, txt *text.Renderer, transparent bool, log zerolog.Logger) *Renderer {
	return &Renderer{
		Width:       p.Width,
		Height:      p.Height,
		Transparent: transparent,
		Assets:      cache,
		Text:        txt,
		Log:         log,
	}
}

// Render draws scene s at scene-local time t: background, characters by
// z-index, active overlays, then the camera. Data problems never fail the
// frame; the affected layer is skipped.
func (r *Renderer) Render(s *project.Scene, t float64) *imaging.Canvas {
	bg := imaging.ParseHexOr(s.BackgroundColor, imaging.White)
	canvas := imaging.NewCanvas(r.Width, r.Height, bg, r.Transparent)

	if s.BackgroundImage != "" {
		if layer, err := r.Assets.Get(s.BackgroundImage); err == nil {
			canvas.FillImage(layer)
		}
	}

	for _, sc := range s.PaintOrder() {
		if sc.Visible(t) {
			r.drawCharacter(canvas, sc, t)
		}
	}

	for i := range s.Overlays {
		if o := &s.Overlays[i]; o.Active(t) {
			r.drawOverlay(canvas, o, t-o.StartTime)
		}
	}

	// A unit zoom is the identity about any centre, offset or not.
	if zoom := s.Camera.Zoom; zoom > 0 && zoom != 1 {
		cx := float64(r.Width)/2 + s.Camera.X
		cy := float64(r.Height)/2 + s.Camera.Y
		canvas.Zoom(zoom, cx, cy, bg)
	}

	return canvas
}

// Blank is the frame emitted when there is nothing to render.
func (r *Renderer) Blank() *imaging.Canvas {
	return imaging.NewCanvas(r.Width, r.Height, imaging.White, r.Transparent)
}

func (r *Renderer) drawCharacter(canvas *imaging.Canvas, sc *project.SceneCharacter, t float64) {
	src, err := r.Assets.Get(sc.Image)
	if err != nil || src.Empty() {
		return
	}

	pose := animation.PoseFrom(animation.Sample(sc.Clips, t))

	layer := imaging.Transform(src, sc.Scale*pose.Scale, sc.Rotation+pose.Rotation, sc.Flip)
	canvas.Composite(layer, sc.X+pose.TranslateX, sc.Y+pose.TranslateY)
}

func (r *Renderer) drawOverlay(canvas *imaging.Canvas, o *project.TextOverlay, local float64) {
	if r.Text == nil {
		return
	}

	opacity := OverlayOpacity(o.Animation, local, o.Duration)
	if opacity < minOpacity {
		return
	}

	s := o.Text
	if o.Animation == project.OverlayTypewriter {
		s = Reveal(s, local, o.Duration)
	}
	if s == "" {
		return
	}

	x := int(o.X * float64(r.Width) / 100)
	y := int(o.Y * float64(r.Height) / 100)
	y += int(math.Round(slide(o.Animation, local) * float64(r.Height)))

	st := text.Style{
		Size:       o.FontSize,
		Color:      imaging.ParseHexOr(o.Color, imaging.White),
		Background: imaging.ParseHexOr(o.BackgroundColor, color.NRGBA{}),
		Opacity:    opacity,
		Padding:    int(o.FontSize / 4),
	}
	if err := r.Text.Draw(canvas, s, x, y, st); err != nil {
		r.Log.Warn().Err(err).Str("text", o.Text).Msg("overlay draw failed")
	}
}

// OverlayOpacity is the overlay's opacity local seconds into a clip of the
// given duration.
func OverlayOpacity(kind project.OverlayAnimation, local, duration float64) float64 {
	if kind != project.OverlayFade {
		return 1
	}
	switch {
	case local < fadeWindow:
		return math.Max(0, local/fadeWindow)
	case local > duration-fadeWindow:
		return math.Max(0, (duration-local)/fadeWindow)
	}
	return 1
}

// Reveal returns the prefix of s a typewriter shows local seconds into a clip:
// characters appear evenly over the first half of the clip.
func Reveal(s string, local, duration float64) string {
	runes := []rune(s)
	span := duration / 2
	if span <= 0 || local >= span {
		return s
	}
	n := int(math.Ceil(float64(len(runes)) * local / span))
	if n > len(runes) {
		n = len(runes)
	}
	return string(runes[:max(n, 0)])
}

// slide returns the vertical offset, as a fraction of canvas height, of a
// sliding overlay local seconds in.
func slide(kind project.OverlayAnimation, local float64) float64 {
	var dir float64
	switch kind {
	case project.OverlaySlideUp:
		dir = 1
	case project.OverlaySlideDown:
		dir = -1
	default:
		return 0
	}
	p := animation.Ease(local/slideWindow, animation.EaseOut)
	return dir * slideOffset * (1 - p)
}
