package animation

import "math"

// Clip is an animation placed on a scene-local timeline.
type Clip struct {
	Start           float64
	Duration        float64
	SpeedMultiplier float64
	Loop            bool
	Easing          Easing
	Track           Track
}

// EffectiveDuration is the clip's window length on the scene timeline.
func (c Clip) EffectiveDuration() float64 {
	return c.Duration * c.SpeedMultiplier
}

// LocalTime reports whether the clip is active at sceneTime and, if so, the
// time within the clip. Looping clips stay active for any time at or after
// their start and wrap modulo the effective duration.
func (c Clip) LocalTime(sceneTime float64) (float64, bool) {
	d := c.EffectiveDuration()
	if d <= 0 || math.IsNaN(d) || sceneTime < c.Start {
		return 0, false
	}

	elapsed := sceneTime - c.Start
	if c.Loop {
		local := math.Mod(elapsed, d)
		if local < 0 {
			local += d
		}
		return local, true
	}

	if elapsed < d {
		return elapsed, true
	}
	return 0, false
}

// Resolve returns the first clip in stored order that is active at
// sceneTime, together with its local time. Later overlapping clips are
// ignored.
func Resolve(clips []Clip, sceneTime float64) (*Clip, float64, bool) {
	for i := range clips {
		if local, ok := clips[i].LocalTime(sceneTime); ok {
			return &clips[i], local, true
		}
	}
	return nil, 0, false
}

// Sample resolves the active clip at sceneTime and interpolates its track.
// It returns an empty Values when no clip is active.
func Sample(clips []Clip, sceneTime float64) Values {
	clip, local, ok := Resolve(clips, sceneTime)
	if !ok {
		return Values{}
	}
	return Interpolate(clip.Track, local, clip.Easing)
}
