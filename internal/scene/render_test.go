package scene

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivlev/scene2video/internal/animation"
	"github.com/ivlev/scene2video/internal/assets"
	"github.com/ivlev/scene2video/internal/imaging"
	"github.com/ivlev/scene2video/internal/project"
	"github.com/ivlev/scene2video/internal/text"
)

var (
	red  = color.NRGBA{R: 255, A: 255}
	blue = color.NRGBA{B: 255, A: 255}
)

func square(t *testing.T, size int, c color.NRGBA) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, size, size))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func newProject(chars ...project.SceneCharacter) *project.Project {
	return &project.Project{
		Width: 200, Height: 200, FPS: 10, Duration: 1,
		Characters: []project.Character{
			{Name: "red", Image: "red.png"},
			{Name: "blue", Image: "blue.png"},
			{Name: "ghost", Image: "missing.png"},
		},
		Scenes: []project.Scene{{
			Duration:        1,
			BackgroundColor: "#FFFFFF",
			Camera:          project.Camera{Zoom: 1},
			Characters:      chars,
		}},
	}
}

func newRenderer(t *testing.T, p *project.Project) *Renderer {
	t.Helper()
	require.NoError(t, p.Compile(zerolog.Nop()))

	cache := assets.NewCache(t.TempDir(), nil, zerolog.Nop())
	cache.Preload("red.png", square(t, 10, red))
	cache.Preload("blue.png", square(t, 10, blue))

	txt, err := text.NewRenderer("")
	require.NoError(t, err)
	return New(p, cache, txt, false, zerolog.Nop())
}

func at(c *imaging.Canvas, x, y int) color.NRGBA {
	return c.Img.NRGBAAt(x, y)
}

func TestRenderPlacesCharacterCentre(t *testing.T) {
	p := newProject(project.SceneCharacter{Character: "red", X: 100, Y: 100, Scale: 1})
	r := newRenderer(t, p)

	canvas := r.Render(&p.Scenes[0], 0)
	require.Equal(t, 200, canvas.Width())

	assert.Equal(t, red, at(canvas, 95, 95))
	assert.Equal(t, red, at(canvas, 104, 104))
	assert.Equal(t, imaging.White, at(canvas, 94, 94))
	assert.Equal(t, imaging.White, at(canvas, 105, 105))
}

func TestRenderIsDeterministic(t *testing.T) {
	p := newProject(
		project.SceneCharacter{Character: "red", X: 90, Y: 80, Scale: 1.7, Rotation: 33},
		project.SceneCharacter{Character: "blue", X: 110, Y: 95, Scale: 2, Flip: true, ZIndex: 1},
	)
	r := newRenderer(t, p)

	a := r.Render(&p.Scenes[0], 0.4)
	b := r.Render(&p.Scenes[0], 0.4)
	assert.Equal(t, a.Img.Pix, b.Img.Pix)
}

func TestRenderPaintsByZIndex(t *testing.T) {
	p := newProject(
		project.SceneCharacter{Character: "blue", X: 100, Y: 100, Scale: 1, ZIndex: 5},
		project.SceneCharacter{Character: "red", X: 100, Y: 100, Scale: 1, ZIndex: 1},
	)
	r := newRenderer(t, p)

	assert.Equal(t, blue, at(r.Render(&p.Scenes[0], 0), 100, 100))
}

func TestRenderSkipsMissingImage(t *testing.T) {
	p := newProject(
		project.SceneCharacter{Character: "ghost", X: 100, Y: 100, Scale: 1},
		project.SceneCharacter{Character: "red", X: 20, Y: 20, Scale: 1},
	)
	r := newRenderer(t, p)

	canvas := r.Render(&p.Scenes[0], 0)
	assert.Equal(t, imaging.White, at(canvas, 100, 100))
	assert.Equal(t, red, at(canvas, 20, 20))
}

func TestRenderMissingBackgroundFallsBackToColour(t *testing.T) {
	p := newProject()
	p.Scenes[0].BackgroundColor = "#336699"
	p.Scenes[0].BackgroundImage = "nowhere.png"
	r := newRenderer(t, p)

	assert.Equal(t, color.NRGBA{R: 0x33, G: 0x66, B: 0x99, A: 255}, at(r.Render(&p.Scenes[0], 0), 10, 10))
}

func TestRenderHonoursVisibilityWindow(t *testing.T) {
	exit := 0.5
	p := newProject(project.SceneCharacter{Character: "red", X: 100, Y: 100, Scale: 1, EnterTime: 0.2, ExitTime: &exit})
	r := newRenderer(t, p)

	assert.Equal(t, imaging.White, at(r.Render(&p.Scenes[0], 0.1), 100, 100))
	assert.Equal(t, red, at(r.Render(&p.Scenes[0], 0.2), 100, 100))
	assert.Equal(t, imaging.White, at(r.Render(&p.Scenes[0], 0.5), 100, 100))
}

func TestRenderAppliesAnimationPose(t *testing.T) {
	p := newProject(project.SceneCharacter{
		Character: "red", X: 100, Y: 100, Scale: 1,
		Animations: []project.Animation{{
			Duration:        2,
			SpeedMultiplier: 1,
			Easing:          animation.Linear,
			Keyframes: []project.KeyframeSpec{
				{Time: 0, Values: animation.Values{"translate_x": 50}},
			},
		}},
	})
	r := newRenderer(t, p)

	canvas := r.Render(&p.Scenes[0], 1)
	assert.Equal(t, red, at(canvas, 150, 100))
	assert.Equal(t, imaging.White, at(canvas, 100, 100))
}

func TestRenderCameraZoom(t *testing.T) {
	p := newProject(project.SceneCharacter{Character: "red", X: 100, Y: 100, Scale: 1})
	p.Scenes[0].Camera = project.Camera{Zoom: 2}
	r := newRenderer(t, p)

	canvas := r.Render(&p.Scenes[0], 0)
	assert.Equal(t, red, at(canvas, 92, 92))
	assert.Equal(t, red, at(canvas, 107, 107))
	assert.Equal(t, imaging.White, at(canvas, 85, 85))
	assert.Equal(t, imaging.White, at(canvas, 115, 115))
}

func TestRenderTransparentCanvas(t *testing.T) {
	p := newProject(project.SceneCharacter{Character: "red", X: 100, Y: 100, Scale: 1})
	r := newRenderer(t, p)
	r.Transparent = true

	canvas := r.Render(&p.Scenes[0], 0)
	assert.Equal(t, color.NRGBA{}, at(canvas, 10, 10))
	assert.Equal(t, red, at(canvas, 100, 100))
}

func TestRenderRotationCornersFollowSourceAlpha(t *testing.T) {
	p := newProject(project.SceneCharacter{Character: "red", X: 100, Y: 100, Scale: 1, Rotation: 45})
	p.Scenes[0].BackgroundColor = "#0000FF"
	r := newRenderer(t, p)

	// An opaque NRGBA is written as an RGB PNG, which has no alpha channel.
	r.Assets.Preload("red.png", square(t, 20, red))
	canvas := r.Render(&p.Scenes[0], 0)
	assert.Equal(t, imaging.White, at(canvas, 87, 87))
	assert.Equal(t, red, at(canvas, 100, 100))

	withAlpha := image.NewNRGBA(image.Rect(0, 0, 20, 20))
	for i := 0; i < len(withAlpha.Pix); i += 4 {
		withAlpha.Pix[i], withAlpha.Pix[i+3] = 255, 255
	}
	withAlpha.Pix[3] = 0
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, withAlpha))

	r.Assets.Preload("red.png", buf.Bytes())
	canvas = r.Render(&p.Scenes[0], 0)
	assert.Equal(t, blue, at(canvas, 87, 87))
	assert.Equal(t, red, at(canvas, 100, 100))
}

func TestRenderOverlayFade(t *testing.T) {
	p := newProject()
	p.Scenes[0].Overlays = []project.TextOverlay{{
		Text: "Hello", X: 10, Y: 10, FontSize: 32,
		Color: "#000000", Animation: project.OverlayFade, Duration: 3,
	}}
	r := newRenderer(t, p)

	blank := r.Render(&p.Scenes[0], 0)
	for i := 0; i < len(blank.Img.Pix); i += 4 {
		require.Equal(t, uint8(255), blank.Img.Pix[i], "overlay drawn below the opacity threshold")
	}

	shown := r.Render(&p.Scenes[0], 1)
	assert.NotEqual(t, blank.Img.Pix, shown.Img.Pix)
}

func TestOverlayOpacity(t *testing.T) {
	tests := []struct {
		kind  project.OverlayAnimation
		local float64
		want  float64
	}{
		{project.OverlayFade, 0, 0},
		{project.OverlayFade, 0.25, 0.5},
		{project.OverlayFade, 1.5, 1},
		{project.OverlayFade, 2.75, 0.5},
		{project.OverlayNone, 0, 1},
		{project.OverlayTypewriter, 0, 1},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, OverlayOpacity(tt.kind, tt.local, 3), 1e-9, "%s at %.2f", tt.kind, tt.local)
	}
}

func TestReveal(t *testing.T) {
	assert.Equal(t, "", Reveal("héllo", 0, 2))
	assert.Equal(t, "hél", Reveal("héllo", 0.5, 2))
	assert.Equal(t, "héllo", Reveal("héllo", 1, 2))
	assert.Equal(t, "héllo", Reveal("héllo", 1.8, 2))
}

func TestSlide(t *testing.T) {
	assert.InDelta(t, 0.05, slide(project.OverlaySlideUp, 0), 1e-9)
	assert.InDelta(t, -0.05, slide(project.OverlaySlideDown, 0), 1e-9)
	assert.InDelta(t, 0, slide(project.OverlaySlideUp, 0.5), 1e-9)
	assert.Equal(t, 0.0, slide(project.OverlayFade, 0))
}
