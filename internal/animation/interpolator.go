package animation

import (
	"sort"
)

// Values maps a joint or transform parameter name to its numeric value.
type Values map[string]float64

// Keyframe is a parameter mapping pinned to a time offset in seconds.
type Keyframe struct {
	Time   float64
	Values Values
}

// Track is a keyframe list sorted by time.
type Track []Keyframe

// NewTrack copies keyframes into a track sorted by time. Keyframes sharing a
// time keep their input order.
func NewTrack(keyframes []Keyframe) Track {
	track := make(Track, len(keyframes))
	copy(track, keyframes)
	sort.SliceStable(track, func(i, j int) bool {
		return track[i].Time < track[j].Time
	})
	return track
}

// Duration is the time offset of the last keyframe.
func (tr Track) Duration() float64 {
	if len(tr) == 0 {
		return 0
	}
	return tr[len(tr)-1].Time
}

// Interpolate returns the track's parameters at localTime.
//
// The bracketing keyframes are the last one at or before localTime and the
// one after it. Times before the first keyframe or at/after the last one
// clamp to that keyframe's values. An empty track yields no values.
func Interpolate(tr Track, localTime float64, easing Easing) Values {
	if len(tr) == 0 {
		return Values{}
	}

	// Index of the first keyframe strictly after localTime.
	next := sort.Search(len(tr), func(i int) bool {
		return tr[i].Time > localTime
	})
	if next == 0 {
		return tr[0].Values.clone()
	}
	if next == len(tr) {
		return tr[len(tr)-1].Values.clone()
	}

	prevKf := tr[next-1]
	nextKf := tr[next]

	t := 0.0
	if timeRange := nextKf.Time - prevKf.Time; timeRange > 0 {
		t = Ease((localTime-prevKf.Time)/timeRange, easing)
	}

	out := make(Values, len(prevKf.Values))
	for name, a := range prevKf.Values {
		out[name] = lerp(a, nextKf.Values[name], t)
	}
	for name, b := range nextKf.Values {
		if _, ok := prevKf.Values[name]; !ok {
			out[name] = lerp(0, b, t)
		}
	}
	return out
}

// lerp blends a towards b as prev*(1-t) + next*t so that t=0 and t=1 return
// the endpoints exactly.
func lerp(a, b, t float64) float64 {
	return a*(1-t) + b*t
}

func (v Values) clone() Values {
	out := make(Values, len(v))
	for k, x := range v {
		out[k] = x
	}
	return out
}
