package project

import (
	"bytes"
	"math"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivlev/scene2video/internal/animation"
)

const sampleProject = `
name: demo
width: 640
height: 360
fps: 24
duration: 7
characters:
  - name: hero
    image: hero.png
    processed_image: hero_masked.png
  - name: dog
    image: dog.png
presets:
  - name: walk
    animation_method: transform
    duration: 2
    transform:
      rotation_amplitude: 3
      translation_x: 5
      translation_y: -8
      translation_y_mode: bounce
      frequency: 2
  - name: jump
    animation_method: skeletal
    skeletal:
      keyframes:
        - time: 1
          joints: {spine: {rotation: 20}}
        - time: 0
          joints: {spine: {rotation: 0}}
  - name: dream
    animation_method: ai_video
scenes:
  - name: second
    order: 1
    duration: 4
  - name: first
    order: 0
    duration: 3
    background_color: "#336699"
    camera: {x: 10}
    characters:
      - character: dog
        z_index: 2
        x: 100
        y: 120
      - character: hero
        z_index: 1
        exit_time: 2.5
        animations:
          - preset: walk
            loop: true
          - keyframes:
              - time: 0
                values: {rotation: 0, label: wave}
              - time: oops
                values: {rotation: 5}
              - time: 2
                values: {rotation: 90}
            start_time: 1
    overlays:
      - text: Hello
audio:
  - name: theme
    path: theme.mp3
`

func TestParseAppliesDefaults(t *testing.T) {
	p, err := Parse([]byte(sampleProject))
	require.NoError(t, err)

	assert.Equal(t, "1.0", p.Version)
	assert.Equal(t, 640, p.Width)

	second, first := p.Scenes[0], p.Scenes[1]
	assert.Equal(t, "#FFFFFF", second.BackgroundColor)
	assert.Equal(t, Camera{Zoom: 1}, second.Camera)
	assert.Equal(t, Camera{Zoom: 1, X: 10}, first.Camera)

	hero := first.Characters[1]
	assert.Equal(t, 1.0, hero.Scale)
	require.NotNil(t, hero.ExitTime)
	assert.Equal(t, 2.5, *hero.ExitTime)
	assert.Nil(t, first.Characters[0].ExitTime)

	anim := hero.Animations[0]
	assert.Equal(t, 1.0, anim.SpeedMultiplier)
	assert.Equal(t, 2.0, anim.Duration)
	assert.Equal(t, animation.Linear, anim.Easing)

	overlay := first.Overlays[0]
	assert.Equal(t, OverlayFade, overlay.Animation)
	assert.Equal(t, 50.0, overlay.X)
	assert.Equal(t, 90.0, overlay.Y)
	assert.Equal(t, "#00000080", overlay.BackgroundColor)

	assert.Equal(t, 1.0, p.Audio[0].Volume)
}

func TestParsePresetVariants(t *testing.T) {
	p, err := Parse([]byte(sampleProject))
	require.NoError(t, err)
	require.Len(t, p.Presets, 3)

	walk, ok := p.Presets[0].Settings.(TransformSettings)
	require.True(t, ok)
	assert.Equal(t, "bounce", walk.TranslationYMode)
	assert.Equal(t, MethodTransform, walk.Method())

	jump, ok := p.Presets[1].Settings.(SkeletalSettings)
	require.True(t, ok)
	track := jump.Track(0)
	require.Len(t, track, 2)
	assert.Equal(t, 0.0, track[0].Time)
	assert.Equal(t, 20.0, track[1].Values["spine"])

	dream, ok := p.Presets[2].Settings.(AIVideoSettings)
	require.True(t, ok)
	assert.Equal(t, 100, dream.MotionBucket)
	assert.Empty(t, dream.Track(2))

	_, err = Parse([]byte("presets:\n  - name: x\n    animation_method: teleport\n"))
	assert.ErrorContains(t, err, "teleport")
}

func TestKeyframeSpecDropsMalformedValues(t *testing.T) {
	p, err := Parse([]byte(sampleProject))
	require.NoError(t, err)

	kfs := p.Scenes[1].Characters[1].Animations[1].Keyframes
	require.Len(t, kfs, 3)
	assert.Equal(t, []string{"label"}, kfs[0].Dropped)
	assert.Equal(t, animation.Values{"rotation": 0}, kfs[0].Values)
	assert.True(t, kfs[1].Invalid)

	track := compileKeyframes(kfs)
	require.Len(t, track, 2)
	assert.Equal(t, 90.0, track[1].Values["rotation"])
}

func TestCompileOrdersAndResolves(t *testing.T) {
	p, err := Parse([]byte(sampleProject))
	require.NoError(t, err)
	require.NoError(t, p.Compile(zerolog.Nop()))

	timeline := p.Timeline()
	require.Len(t, timeline, 2)
	assert.Equal(t, "first", timeline[0].Name)
	assert.Equal(t, "second", timeline[1].Name)
	assert.Equal(t, 7.0, p.TotalDuration())

	paint := timeline[0].PaintOrder()
	require.Len(t, paint, 2)
	assert.Equal(t, "hero", paint[0].Character)
	assert.Equal(t, "hero_masked.png", paint[0].Image)
	assert.Equal(t, "dog.png", paint[1].Image)

	clips := paint[0].Clips
	require.Len(t, clips, 2)
	assert.True(t, clips[0].Loop)
	assert.NotEmpty(t, clips[0].Track)
	assert.Equal(t, 1.0, clips[1].Start)
}

func TestCompileWarnsAboutAnimationsThatNeverPlay(t *testing.T) {
	p, err := Parse([]byte(sampleProject))
	require.NoError(t, err)
	require.NotEmpty(t, p.Scenes[1].Characters[1].Animations)
	p.Scenes[1].Characters[1].Animations[0].SpeedMultiplier = 0

	var logs bytes.Buffer
	require.NoError(t, p.Compile(zerolog.New(&logs)))
	assert.Contains(t, logs.String(), "never plays")
	assert.Contains(t, logs.String(), `"speed_multiplier":0`)

	var clean bytes.Buffer
	q, err := Parse([]byte(sampleProject))
	require.NoError(t, err)
	require.NoError(t, q.Compile(zerolog.New(&clean)))
	assert.NotContains(t, clean.String(), "never plays")
}

func TestStableOrderKeepsTies(t *testing.T) {
	p := &Project{Scenes: []Scene{
		{Name: "a", Order: 1},
		{Name: "b", Order: 0},
		{Name: "c", Order: 1},
		{Name: "d", Order: 0},
	}}
	var names []string
	for _, s := range p.Timeline() {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{"b", "d", "a", "c"}, names)
}

func TestValidate(t *testing.T) {
	exit := 1.0
	p := &Project{
		Width: 0, Height: 10, FPS: 0,
		Scenes: []Scene{{
			Duration: -1,
			Characters: []SceneCharacter{{
				Character:  "ghost",
				EnterTime:  2,
				ExitTime:   &exit,
				Animations: []Animation{{Preset: "nope", SpeedMultiplier: -1}},
			}},
		}},
	}

	err := p.Validate()
	require.Error(t, err)
	for _, want := range []string{"canvas size", "fps", "scene 0: duration", "unknown character", "exit_time", "unknown preset", "speed"} {
		assert.ErrorContains(t, err, want)
	}

	assert.ErrorIs(t, (&Project{Width: 1, Height: 1, FPS: 1}).Validate(), ErrNoScenes)
}

func TestTransformTrackIsPeriodic(t *testing.T) {
	s := TransformSettings{RotationAmplitude: 4, TranslationY: 3, TranslationYMode: "bounce", ScaleAmplitude: 0.02, Frequency: 2}
	track := s.Track(2)

	require.Len(t, track, 17)
	assert.Equal(t, 2.0, track.Duration())

	first, last := track[0].Values, track[len(track)-1].Values
	for _, name := range []string{"rotation", "translate_x", "translate_y", "scale"} {
		assert.InDelta(t, first[name], last[name], 1e-9, name)
	}

	peak := animation.Interpolate(track, 0.25, animation.Linear)
	assert.InDelta(t, 4, peak["rotation"], 1e-9)
	trough := animation.Interpolate(track, 0.75, animation.Linear)
	assert.InDelta(t, -4, trough["rotation"], 1e-9)
	assert.InDelta(t, 3, trough["translate_y"], 1e-9, "bounce keeps the vertical offset positive")

	for _, kf := range track {
		assert.False(t, math.IsNaN(kf.Values["rotation"]))
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	p, err := Parse([]byte(sampleProject))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "project.yaml")
	require.NoError(t, Write(p, path))

	back, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Dir(path), back.Root)
	assert.Equal(t, p.Name, back.Name)
	require.Len(t, back.Scenes, 2)
	assert.Equal(t, p.Scenes[1].Camera, back.Scenes[1].Camera)
	assert.Equal(t, p.Scenes[1].Characters[1].ExitTime, back.Scenes[1].Characters[1].ExitTime)
	assert.Equal(t, p.Presets[0].Settings, back.Presets[0].Settings)
	assert.Equal(t, p.Presets[1].Settings.Track(0), back.Presets[1].Settings.Track(0))
}
