package timeline

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
	"github.com/ivlev/scene2video/internal/scene"
)

func twoScenes() *project.Project {
	return &project.Project{
		Width: 64, Height: 48, FPS: 10, Duration: 7,
		Scenes: []project.Scene{
			{Name: "b", Order: 2, Duration: 4, BackgroundColor: "#0000FF"},
			{Name: "a", Order: 1, Duration: 3, BackgroundColor: "#FF0000"},
		},
	}
}

func TestLocate(t *testing.T) {
	p := twoScenes()

	tests := []struct {
		t     float64
		name  string
		local float64
	}{
		{-1, "a", 0},
		{0, "a", 0},
		{2.5, "a", 2.5},
		{3, "b", 0},
		{5, "b", 2},
		{7, "b", 4},
		{100, "b", 4},
	}
	for _, tt := range tests {
		s, local, ok := Locate(p, tt.t)
		require.True(t, ok)
		assert.Equal(t, tt.name, s.Name, "t=%v", tt.t)
		assert.InDelta(t, tt.local, local, 1e-9, "t=%v", tt.t)
	}

	_, _, ok := Locate(&project.Project{}, 1)
	assert.False(t, ok)
}

func newTimeline(t *testing.T, p *project.Project) *Timeline {
	t.Helper()
	require.NoError(t, p.Compile(zerolog.Nop()))

	img := image.NewNRGBA(image.Rect(0, 0, 12, 4))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i+1], img.Pix[i+3] = 200, 255
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))

	cache := assets.NewCache(t.TempDir(), nil, zerolog.Nop())
	cache.Preload("bar.png", buf.Bytes())
	return New(p, scene.New(p, cache, nil, false, zerolog.Nop()))
}

func TestRenderAtFollowsScenes(t *testing.T) {
	tl := newTimeline(t, twoScenes())

	assert.Equal(t, color.NRGBA{R: 255, A: 255}, tl.RenderAt(1).Img.NRGBAAt(0, 0))
	assert.Equal(t, color.NRGBA{B: 255, A: 255}, tl.RenderAt(5).Img.NRGBAAt(0, 0))
	assert.Equal(t, color.NRGBA{B: 255, A: 255}, tl.RenderFrame(70).Img.NRGBAAt(0, 0))
	assert.Equal(t, color.NRGBA{R: 255, A: 255}, tl.RenderFrame(0).Img.NRGBAAt(0, 0))
}

func TestRenderAtWithoutScenesIsBlank(t *testing.T) {
	p := &project.Project{Width: 8, Height: 8, FPS: 1}
	tl := New(p, scene.New(p, assets.NewCache("", nil, zerolog.Nop()), nil, false, zerolog.Nop()))

	canvas := tl.RenderAt(0)
	require.Equal(t, 8, canvas.Width())
	assert.Equal(t, imaging.White, canvas.Img.NRGBAAt(3, 3))
}

func TestRenderAtMatchesInterpolatedPose(t *testing.T) {
	character := []project.Character{{Name: "bar", Image: "bar.png"}}

	animated := &project.Project{
		Width: 64, Height: 48, FPS: 10, Duration: 3,
		Characters: character,
		Scenes: []project.Scene{{
			Duration: 3,
			Camera:   project.Camera{Zoom: 1},
			Characters: []project.SceneCharacter{{
				Character: "bar", X: 32, Y: 24, Scale: 1,
				Animations: []project.Animation{{
					StartTime:       1,
					Duration:        2,
					SpeedMultiplier: 1,
					Easing:          animation.Linear,
					Keyframes: []project.KeyframeSpec{
						{Time: 0, Values: animation.Values{"rotation": 0}},
						{Time: 2, Values: animation.Values{"rotation": 90}},
					},
				}},
			}},
		}},
	}
	static := &project.Project{
		Width: 64, Height: 48, FPS: 10, Duration: 3,
		Characters: character,
		Scenes: []project.Scene{{
			Duration: 3,
			Camera:   project.Camera{Zoom: 1},
			Characters: []project.SceneCharacter{{
				Character: "bar", X: 32, Y: 24, Scale: 1, Rotation: 45,
			}},
		}},
	}

	got := newTimeline(t, animated).RenderAt(2)
	want := newTimeline(t, static).RenderAt(2)
	assert.Equal(t, want.Img.Pix, got.Img.Pix)

	unrotated := newTimeline(t, animated).RenderAt(0.5)
	assert.NotEqual(t, want.Img.Pix, unrotated.Img.Pix)
}

func TestPreview(t *testing.T) {
	tl := newTimeline(t, twoScenes())

	canvas, err := tl.Preview(1, 3)
	require.NoError(t, err)
	assert.Equal(t, color.NRGBA{B: 255, A: 255}, canvas.Img.NRGBAAt(0, 0))

	_, err = tl.Preview(2, 0)
	assert.Error(t, err)
	_, err = tl.Preview(0, -1)
	assert.Error(t, err)
}

func TestFrameCount(t *testing.T) {
	assert.Equal(t, 300, FrameCount(10, 30))
	assert.Equal(t, 73, FrameCount(2.44, 30))
	assert.Equal(t, 0, FrameCount(0, 30))
	assert.Equal(t, 0, FrameCount(-1, 30))
}
