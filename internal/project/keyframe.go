package project

import (
	"math"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/ivlev/scene2video/internal/animation"
)

// KeyframeSpec is a keyframe as written in a project file. Flat values and
// per-joint rotations are both accepted:
//
//	time: 0.5
//	values: {rotation: 10, translate_y: -4}
//	joints: {spine: {rotation: 3}}
//
// Entries that are not numbers are dropped and remembered in Dropped.
type KeyframeSpec struct {
	Time    float64
	Values  animation.Values
	Dropped []string
	// Invalid marks a keyframe whose time could not be read.
	Invalid bool
}

type keyframeYAML struct {
	Time   yaml.Node            `yaml:"time"`
	Values map[string]yaml.Node `yaml:"values"`
	Joints map[string]struct {
		Rotation yaml.Node `yaml:"rotation"`
	} `yaml:"joints"`
}

func (k *KeyframeSpec) UnmarshalYAML(n *yaml.Node) error {
	var raw keyframeYAML
	if err := n.Decode(&raw); err != nil {
		return err
	}

	*k = KeyframeSpec{Values: animation.Values{}}
	t, ok := number(&raw.Time)
	if !ok {
		k.Invalid = true
	}
	k.Time = t

	for _, name := range sortedKeys(raw.Values) {
		node := raw.Values[name]
		if v, ok := number(&node); ok {
			k.Values[name] = v
		} else {
			k.Dropped = append(k.Dropped, name)
		}
	}
	for _, name := range sortedKeys(raw.Joints) {
		node := raw.Joints[name].Rotation
		if v, ok := number(&node); ok {
			k.Values[name] = v
		} else {
			k.Dropped = append(k.Dropped, name)
		}
	}
	return nil
}

func (k KeyframeSpec) MarshalYAML() (any, error) {
	return struct {
		Time   float64          `yaml:"time"`
		Values animation.Values `yaml:"values,omitempty"`
	}{k.Time, k.Values}, nil
}

func number(n *yaml.Node) (float64, bool) {
	if n.Kind != yaml.ScalarNode {
		return 0, false
	}
	if tag := n.ShortTag(); tag != "!!int" && tag != "!!float" {
		return 0, false
	}
	var v float64
	if err := n.Decode(&v); err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// compileKeyframes drops unreadable keyframes and sorts the rest by time.
func compileKeyframes(specs []KeyframeSpec) animation.Track {
	keyframes := make([]animation.Keyframe, 0, len(specs))
	for _, s := range specs {
		if s.Invalid {
			continue
		}
		keyframes = append(keyframes, animation.Keyframe{Time: s.Time, Values: s.Values})
	}
	if len(keyframes) == 0 {
		return nil
	}
	return animation.NewTrack(keyframes)
}
