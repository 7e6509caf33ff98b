// Package project holds the scene graph a render reads: scenes, characters,
// animations, overlays and audio, plus its YAML representation.
package project

import (
	"github.com/ivlev/scene2video/internal/animation"
)

// Project is the root of the scene graph.
type Project struct {
	Version  string  `yaml:"version"`
	Name     string  `yaml:"name"`
	Width    int     `yaml:"width"`
	Height   int     `yaml:"height"`
	FPS      int     `yaml:"fps"`
	Duration float64 `yaml:"duration"` // seconds

	Characters []Character    `yaml:"characters"`
	Presets    []MotionPreset `yaml:"presets,omitempty"`
	Scenes     []Scene        `yaml:"scenes"`
	Audio      []AudioTrack   `yaml:"audio,omitempty"`

	// Root is the directory relative asset paths resolve against.
	Root string `yaml:"-"`

	// timeline holds scene indices in playback order, filled by Compile.
	timeline []int
}

// Character is a cut-out drawing and its optional rig.
type Character struct {
	Name           string   `yaml:"name"`
	Image          string   `yaml:"image"`
	ProcessedImage string   `yaml:"processed_image,omitempty"`
	Joints         []string `yaml:"joints,omitempty"`
}

// ImagePath prefers the alpha-masked processed image.
func (c Character) ImagePath() string {
	if c.ProcessedImage != "" {
		return c.ProcessedImage
	}
	return c.Image
}

// Camera frames a scene: Zoom scales the frame about its centre shifted by
// (X, Y) pixels.
type Camera struct {
	Zoom float64 `yaml:"zoom"`
	X    float64 `yaml:"x"`
	Y    float64 `yaml:"y"`
}

// Scene is one contiguous stretch of the timeline.
type Scene struct {
	Name            string           `yaml:"name"`
	Order           int              `yaml:"order"`
	Duration        float64          `yaml:"duration"`
	BackgroundColor string           `yaml:"background_color,omitempty"`
	BackgroundImage string           `yaml:"background_image,omitempty"`
	Camera          Camera           `yaml:"camera"`
	Characters      []SceneCharacter `yaml:"characters,omitempty"`
	Overlays        []TextOverlay    `yaml:"overlays,omitempty"`

	// paint holds character indices sorted by z-index, filled by Compile.
	paint []int
}

// SceneCharacter places a Character in a Scene.
type SceneCharacter struct {
	Character  string      `yaml:"character"`
	X          float64     `yaml:"x"`
	Y          float64     `yaml:"y"`
	Scale      float64     `yaml:"scale"`
	Rotation   float64     `yaml:"rotation"`
	ZIndex     int         `yaml:"z_index"`
	Flip       bool        `yaml:"flip_horizontal,omitempty"`
	EnterTime  float64     `yaml:"enter_time"`
	ExitTime   *float64    `yaml:"exit_time,omitempty"`
	Animations []Animation `yaml:"animations,omitempty"`

	// Image is the resolved asset path, Clips the compiled animations.
	Image string           `yaml:"-"`
	Clips []animation.Clip `yaml:"-"`
}

// Visible reports whether the character is on stage at scene time t.
func (sc SceneCharacter) Visible(t float64) bool {
	if t < sc.EnterTime {
		return false
	}
	return sc.ExitTime == nil || t < *sc.ExitTime
}

// Animation drives a SceneCharacter, either from a named preset or from
// inline keyframes.
type Animation struct {
	Preset          string           `yaml:"preset,omitempty"`
	Keyframes       []KeyframeSpec   `yaml:"keyframes,omitempty"`
	StartTime       float64          `yaml:"start_time"`
	Duration        float64          `yaml:"duration"`
	SpeedMultiplier float64          `yaml:"speed_multiplier"`
	Loop            bool             `yaml:"loop,omitempty"`
	Easing          animation.Easing `yaml:"easing,omitempty"`
}

// OverlayAnimation names how a caption enters and leaves.
type OverlayAnimation string

const (
	OverlayNone       OverlayAnimation = "none"
	OverlayFade       OverlayAnimation = "fade"
	OverlayTypewriter OverlayAnimation = "typewriter"
	OverlaySlideUp    OverlayAnimation = "slide-up"
	OverlaySlideDown  OverlayAnimation = "slide-down"
)

// TextOverlay is a caption shown for a window of scene time.
type TextOverlay struct {
	Text            string           `yaml:"text"`
	X               float64          `yaml:"x"` // percent of canvas width
	Y               float64          `yaml:"y"` // percent of canvas height
	FontSize        float64          `yaml:"font_size"`
	FontFamily      string           `yaml:"font_family,omitempty"`
	Color           string           `yaml:"color,omitempty"`
	BackgroundColor string           `yaml:"background_color,omitempty"`
	Animation       OverlayAnimation `yaml:"animation,omitempty"`
	StartTime       float64          `yaml:"start_time"`
	Duration        float64          `yaml:"duration"`
}

// Active reports whether the overlay shows at scene time t.
func (o TextOverlay) Active(t float64) bool {
	return o.StartTime <= t && t < o.StartTime+o.Duration
}

// AudioTrack is a pre-rendered sound file laid on the project timeline.
type AudioTrack struct {
	Name      string  `yaml:"name"`
	Path      string  `yaml:"path"`
	StartTime float64 `yaml:"start_time"`
	Volume    float64 `yaml:"volume"`
}
