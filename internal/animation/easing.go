package animation

import (
	"github.com/fogleman/ease"
)

// Easing names a reparameterization of interpolation progress.
type Easing string

const (
	Linear    Easing = "linear"
	EaseIn    Easing = "ease-in"
	EaseOut   Easing = "ease-out"
	EaseInOut Easing = "ease-in-out"
	Bounce    Easing = "bounce"
)

// Ease maps progress t to eased progress. t is clamped to [0,1] first;
// unknown kinds fall back to linear.
func Ease(t float64, kind Easing) float64 {
	if t <= 0 {
		return 0
	}
	if t >= 1 {
		return 1
	}

	switch kind {
	case EaseIn:
		return ease.InQuad(t)
	case EaseOut:
		return ease.OutQuad(t)
	case EaseInOut:
		return ease.InOutQuad(t)
	case Bounce:
		// 8t^4 below the midpoint, 1-(2-2t)^4/2 above it.
		return ease.InOutQuart(t)
	default:
		return ease.Linear(t)
	}
}

// Valid reports whether kind is one of the known easing curves.
func (e Easing) Valid() bool {
	switch e {
	case Linear, EaseIn, EaseOut, EaseInOut, Bounce:
		return true
	}
	return false
}
