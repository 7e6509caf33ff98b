package project

import (
	"fmt"
	"math"

	"gopkg.in/yaml.v3"

	"github.com/ivlev/scene2video/internal/animation"
)

// AnimationMethod tags how a MotionPreset produces movement.
type AnimationMethod string

const (
	MethodTransform AnimationMethod = "transform"
	MethodAIVideo   AnimationMethod = "ai_video"
	MethodSkeletal  AnimationMethod = "skeletal"
)

// MotionSettings is the method-specific part of a preset.
type MotionSettings interface {
	Method() AnimationMethod
	// Track returns the keyframes the preset plays over duration seconds.
	Track(duration float64) animation.Track
}

// MotionPreset is a reusable, named motion.
type MotionPreset struct {
	Name     string
	Category string
	Duration float64
	Settings MotionSettings
}

// samplesPerCycle controls how finely transform oscillations are sampled.
const samplesPerCycle = 8

// TransformSettings oscillate the whole cut-out: Frequency full sine cycles
// over the preset duration, each amplitude peaking once per cycle.
type TransformSettings struct {
	RotationAmplitude float64 `yaml:"rotation_amplitude"`
	TranslationX      float64 `yaml:"translation_x"`
	TranslationY      float64 `yaml:"translation_y"`
	TranslationYMode  string  `yaml:"translation_y_mode,omitempty"` // "bounce" rectifies the vertical wave
	ScaleAmplitude    float64 `yaml:"scale_amplitude"`
	Frequency         float64 `yaml:"frequency"`
}

func (TransformSettings) Method() AnimationMethod { return MethodTransform }

func (s TransformSettings) Track(duration float64) animation.Track {
	freq := s.Frequency
	if freq <= 0 {
		freq = 1
	}
	if duration <= 0 {
		return animation.Track{{Time: 0, Values: animation.Values{}}}
	}

	n := int(math.Ceil(freq * samplesPerCycle))
	if n < 2 {
		n = 2
	}

	keyframes := make([]animation.Keyframe, 0, n+1)
	for i := 0; i <= n; i++ {
		at := duration * float64(i) / float64(n)
		wave := math.Sin(2 * math.Pi * freq * at / duration)

		dy := s.TranslationY * wave
		if s.TranslationYMode == "bounce" {
			dy = s.TranslationY * math.Abs(wave)
		}

		keyframes = append(keyframes, animation.Keyframe{
			Time: at,
			Values: animation.Values{
				animation.ParamRotation:   s.RotationAmplitude * wave,
				animation.ParamTranslateX: s.TranslationX * wave,
				animation.ParamTranslateY: dy,
				animation.ParamScale:      s.ScaleAmplitude * wave,
			},
		})
	}
	return animation.NewTrack(keyframes)
}

// SkeletalSettings carry joint rotations, usually from motion capture.
type SkeletalSettings struct {
	Keyframes []KeyframeSpec `yaml:"keyframes"`
}

func (SkeletalSettings) Method() AnimationMethod { return MethodSkeletal }

func (s SkeletalSettings) Track(float64) animation.Track {
	return compileKeyframes(s.Keyframes)
}

// AIVideoSettings parameterize an externally generated clip. The generated
// video replaces the cut-out outside this engine, so the track is empty.
type AIVideoSettings struct {
	MotionBucket  int     `yaml:"motion_bucket"`
	NoiseStrength float64 `yaml:"noise_strength"`
}

func (AIVideoSettings) Method() AnimationMethod { return MethodAIVideo }

func (AIVideoSettings) Track(float64) animation.Track { return nil }

type presetYAML struct {
	Name      string             `yaml:"name"`
	Category  string             `yaml:"category,omitempty"`
	Method    AnimationMethod    `yaml:"animation_method"`
	Duration  float64            `yaml:"duration"`
	Transform *TransformSettings `yaml:"transform,omitempty"`
	Skeletal  *SkeletalSettings  `yaml:"skeletal,omitempty"`
	AIVideo   *AIVideoSettings   `yaml:"ai_video,omitempty"`
}

func (p *MotionPreset) UnmarshalYAML(n *yaml.Node) error {
	raw := presetYAML{Method: MethodTransform, Duration: 2}
	if err := n.Decode(&raw); err != nil {
		return err
	}

	p.Name, p.Category, p.Duration = raw.Name, raw.Category, raw.Duration
	switch raw.Method {
	case MethodTransform:
		if raw.Transform == nil {
			raw.Transform = &TransformSettings{}
		}
		p.Settings = *raw.Transform
	case MethodSkeletal:
		if raw.Skeletal == nil {
			return fmt.Errorf("preset %q: skeletal method needs a skeletal block", raw.Name)
		}
		p.Settings = *raw.Skeletal
	case MethodAIVideo:
		if raw.AIVideo == nil {
			raw.AIVideo = &AIVideoSettings{MotionBucket: 100, NoiseStrength: 0.02}
		}
		p.Settings = *raw.AIVideo
	default:
		return fmt.Errorf("preset %q: unknown animation_method %q", raw.Name, raw.Method)
	}
	return nil
}

func (p MotionPreset) MarshalYAML() (any, error) {
	raw := presetYAML{Name: p.Name, Category: p.Category, Duration: p.Duration}
	switch s := p.Settings.(type) {
	case TransformSettings:
		raw.Method, raw.Transform = MethodTransform, &s
	case SkeletalSettings:
		raw.Method, raw.Skeletal = MethodSkeletal, &s
	case AIVideoSettings:
		raw.Method, raw.AIVideo = MethodAIVideo, &s
	default:
		return nil, fmt.Errorf("preset %q: unsupported settings %T", p.Name, p.Settings)
	}
	return raw, nil
}
