package animation

// Parameter names understood by the rigid pose mapping.
const (
	ParamRotation   = "rotation"
	ParamTranslateX = "translate_x"
	ParamTranslateY = "translate_y"
	ParamScale      = "scale"

	// JointSpine drives the whole cut-out when a skeletal track carries no
	// explicit rotation parameter.
	JointSpine = "spine"
)

// Pose is the rigid transform an animation adds on top of a character's own
// placement.
type Pose struct {
	Rotation   float64 // degrees, added to the base rotation
	TranslateX float64 // pixels
	TranslateY float64 // pixels
	Scale      float64 // multiplier of the base scale
}

// Identity is the unanimated base pose.
var Identity = Pose{Scale: 1}

// PoseFrom maps interpolated parameters to a Pose. Joint deflections other
// than the spine have no rigid equivalent and are ignored.
func PoseFrom(v Values) Pose {
	p := Identity
	if rot, ok := v[ParamRotation]; ok {
		p.Rotation = rot
	} else if spine, ok := v[JointSpine]; ok {
		p.Rotation = spine
	}
	p.TranslateX = v[ParamTranslateX]
	p.TranslateY = v[ParamTranslateY]
	p.Scale = 1 + v[ParamScale]
	return p
}
