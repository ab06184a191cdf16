package pose

// Preset landmark sets for tests and the mock detector. Coordinates are in
// meters with the y axis pointing up and the hips at y=0.

// restPoint is where untracked landmarks (face, hands, feet) are placed.
var restPoint = Landmark{X: 0, Y: 0.65, Z: 0}

// FromSkeleton expands a skeleton into a full landmark set. Landmarks that are
// not tracked joints are set to a fixed point above the shoulders.
func FromSkeleton(s Skeleton) []Landmark {
	landmarks := make([]Landmark, NumLandmarks)
	for i := range landmarks {
		landmarks[i] = restPoint
	}
	for j := Joint(0); j < numJoints; j++ {
		landmarks[j.Index()] = s[j]
	}
	return landmarks
}

// straightLeg returns shoulder, hip, knee and ankle for a vertical leg at x.
func straightLeg(x float64) (shoulder, hip, knee, ankle Landmark) {
	return Landmark{X: x, Y: 0.5}, Landmark{X: x}, Landmark{X: x, Y: -0.45}, Landmark{X: x, Y: -0.9}
}

// raisedLeg returns shoulder, hip, knee and ankle for a leg whose thigh is
// horizontal and shin vertical, both joints at 90 degrees.
func raisedLeg(x float64) (shoulder, hip, knee, ankle Landmark) {
	return Landmark{X: x, Y: 0.5}, Landmark{X: x}, Landmark{X: x, Z: 0.45}, Landmark{X: x, Y: -0.45, Z: 0.45}
}

func skeletonOf(leftRaised, rightRaised bool) Skeleton {
	var s Skeleton

	left := straightLeg
	if leftRaised {
		left = raisedLeg
	}
	right := straightLeg
	if rightRaised {
		right = raisedLeg
	}

	s[LeftShoulder], s[LeftHip], s[LeftKnee], s[LeftAnkle] = left(-0.1)
	s[RightShoulder], s[RightHip], s[RightKnee], s[RightAnkle] = right(0.1)
	return s
}

// StandingLandmarks returns a landmark set with both legs straight.
func StandingLandmarks() []Landmark {
	return FromSkeleton(skeletonOf(false, false))
}

// LeftStepDownLandmarks returns a landmark set with the left leg planted
// straight and the right knee raised. Its angles equal LeftStepDown.
func LeftStepDownLandmarks() []Landmark {
	return FromSkeleton(skeletonOf(false, true))
}

// RightStepDownLandmarks returns a landmark set with the right leg planted
// straight and the left knee raised. Its angles equal RightStepDown.
func RightStepDownLandmarks() []Landmark {
	return FromSkeleton(skeletonOf(true, false))
}

// NewResult wraps a single landmark set in a Result.
func NewResult(landmarks []Landmark) *Result {
	return &Result{WorldLandmarks: [][]Landmark{landmarks}}
}
