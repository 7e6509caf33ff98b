package project

import (
	"errors"
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"github.com/ivlev/scene2video/internal/animation"
)

// ErrNoScenes is returned for projects with nothing to play.
var ErrNoScenes = errors.New("project has no scenes")

// Validate reports structural problems that make a project unrenderable.
// All problems are joined into one error.
func (p *Project) Validate() error {
	var errs []error
	if p.Width <= 0 || p.Height <= 0 {
		errs = append(errs, fmt.Errorf("canvas size %dx%d must be positive", p.Width, p.Height))
	}
	if p.FPS <= 0 {
		errs = append(errs, fmt.Errorf("fps %d must be positive", p.FPS))
	}
	if p.Duration < 0 {
		errs = append(errs, fmt.Errorf("duration %.3f must not be negative", p.Duration))
	}
	if len(p.Scenes) == 0 {
		errs = append(errs, ErrNoScenes)
	}

	chars := make(map[string]bool, len(p.Characters))
	for _, c := range p.Characters {
		chars[c.Name] = true
	}
	presets := make(map[string]bool, len(p.Presets))
	for _, mp := range p.Presets {
		presets[mp.Name] = true
	}

	for si, s := range p.Scenes {
		if s.Duration < 0 {
			errs = append(errs, fmt.Errorf("scene %d: duration %.3f must not be negative", si, s.Duration))
		}
		for ci, sc := range s.Characters {
			where := fmt.Sprintf("scene %d character %d", si, ci)
			if !chars[sc.Character] {
				errs = append(errs, fmt.Errorf("%s: unknown character %q", where, sc.Character))
			}
			if sc.ExitTime != nil && *sc.ExitTime < sc.EnterTime {
				errs = append(errs, fmt.Errorf("%s: exit_time %.3f before enter_time %.3f", where, *sc.ExitTime, sc.EnterTime))
			}
			for ai, a := range sc.Animations {
				if a.Preset != "" && !presets[a.Preset] {
					errs = append(errs, fmt.Errorf("%s animation %d: unknown preset %q", where, ai, a.Preset))
				}
				if a.Duration < 0 || a.SpeedMultiplier < 0 {
					errs = append(errs, fmt.Errorf("%s animation %d: duration and speed must not be negative", where, ai))
				}
			}
		}
		for oi, o := range s.Overlays {
			if o.Duration < 0 {
				errs = append(errs, fmt.Errorf("scene %d overlay %d: duration must not be negative", si, oi))
			}
		}
	}
	return errors.Join(errs...)
}

// Compile validates the project and precomputes everything the per-frame
// path needs: playback and paint orders, resolved character images and
// sorted keyframe tracks. Data problems that only degrade the output are
// logged, not returned.
func (p *Project) Compile(log zerolog.Logger) error {
	if err := p.Validate(); err != nil {
		return err
	}

	p.timeline = stableOrder(len(p.Scenes), func(i int) int { return p.Scenes[i].Order })

	chars := make(map[string]Character, len(p.Characters))
	for _, c := range p.Characters {
		chars[c.Name] = c
	}
	presets := make(map[string]MotionPreset, len(p.Presets))
	for _, mp := range p.Presets {
		presets[mp.Name] = mp
		if _, ok := mp.Settings.(AIVideoSettings); ok {
			log.Warn().Str("preset", mp.Name).Msg("ai_video preset renders as a still cut-out")
		}
	}

	for si := range p.Scenes {
		s := &p.Scenes[si]
		s.paint = stableOrder(len(s.Characters), func(i int) int { return s.Characters[i].ZIndex })

		for ci := range s.Characters {
			sc := &s.Characters[ci]
			sc.Image = chars[sc.Character].ImagePath()
			sc.Clips = make([]animation.Clip, 0, len(sc.Animations))

			for ai, a := range sc.Animations {
				track := a.track(presets)
				logDropped(log, a.Keyframes, si, ci, ai)
				if a.Easing != "" && !a.Easing.Valid() {
					log.Warn().Int("scene", si).Int("character", ci).Int("animation", ai).
						Str("easing", string(a.Easing)).Msg("unknown easing, using linear")
				}
				if a.Duration*a.SpeedMultiplier <= 0 {
					log.Warn().Int("scene", si).Int("character", ci).Int("animation", ai).
						Float64("duration", a.Duration).Float64("speed_multiplier", a.SpeedMultiplier).
						Msg("animation has no effective duration and never plays")
				}
				if len(track) == 0 {
					log.Warn().Int("scene", si).Int("character", ci).Int("animation", ai).
						Msg("animation has no usable keyframes, using base pose")
				}
				sc.Clips = append(sc.Clips, animation.Clip{
					Start:           a.StartTime,
					Duration:        a.Duration,
					SpeedMultiplier: a.SpeedMultiplier,
					Loop:            a.Loop,
					Easing:          a.Easing,
					Track:           track,
				})
			}
		}
	}
	return nil
}

func (a Animation) track(presets map[string]MotionPreset) animation.Track {
	if a.Preset != "" {
		mp := presets[a.Preset]
		if mp.Settings == nil {
			return nil
		}
		d := mp.Duration
		if d <= 0 {
			d = a.Duration
		}
		return mp.Settings.Track(d)
	}
	return compileKeyframes(a.Keyframes)
}

func logDropped(log zerolog.Logger, specs []KeyframeSpec, si, ci, ai int) {
	for ki, k := range specs {
		if k.Invalid || len(k.Dropped) > 0 {
			log.Warn().Int("scene", si).Int("character", ci).Int("animation", ai).Int("keyframe", ki).
				Bool("bad_time", k.Invalid).Strs("dropped", k.Dropped).Msg("malformed keyframe data")
		}
	}
}

// Timeline returns the scenes in playback order: ascending Order, ties kept
// in storage order.
func (p *Project) Timeline() []*Scene {
	order := p.timeline
	if len(order) != len(p.Scenes) {
		order = stableOrder(len(p.Scenes), func(i int) int { return p.Scenes[i].Order })
	}
	out := make([]*Scene, len(order))
	for i, idx := range order {
		out[i] = &p.Scenes[idx]
	}
	return out
}

// TotalDuration is the summed length of all scenes.
func (p *Project) TotalDuration() float64 {
	total := 0.0
	for _, s := range p.Scenes {
		total += s.Duration
	}
	return total
}

// PaintOrder returns the scene's characters by ascending z-index, ties kept
// in storage order.
func (s *Scene) PaintOrder() []*SceneCharacter {
	order := s.paint
	if len(order) != len(s.Characters) {
		order = stableOrder(len(s.Characters), func(i int) int { return s.Characters[i].ZIndex })
	}
	out := make([]*SceneCharacter, len(order))
	for i, idx := range order {
		out[i] = &s.Characters[idx]
	}
	return out
}

func stableOrder(n int, key func(int) int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return key(idx[a]) < key(idx[b])
	})
	return idx
}
