package pose

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// AngleVector holds four turn-normalized joint angles in the order
// left ankle-knee-hip, left knee-hip-shoulder, right ankle-knee-hip,
// right knee-hip-shoulder. Each angle is in [0, 0.5] where 0.5 is 180 degrees.
type AngleVector [4]float64

// Slice returns the angles as a slice.
func (a AngleVector) Slice() []float64 {
	return a[:]
}

// vec converts a landmark to a gonum vector.
func (l Landmark) vec() r3.Vec {
	return r3.Vec{X: l.X, Y: l.Y, Z: l.Z}
}

// Negate returns the landmark with every coordinate sign-flipped.
func (l Landmark) Negate() Landmark {
	return Landmark{X: -l.X, Y: -l.Y, Z: -l.Z}
}

// VectorBetween returns the vector from p1 to p2.
func VectorBetween(p1, p2 Landmark) Landmark {
	d := r3.Sub(p2.vec(), p1.vec())
	return Landmark{X: d.X, Y: d.Y, Z: d.Z}
}

// AngleBetween returns the angle between two vectors in turns (degrees/360).
// Returns 0 if either vector has zero magnitude.
func AngleBetween(v1, v2 Landmark) float64 {
	a, b := v1.vec(), v2.vec()

	norms := r3.Norm(a) * r3.Norm(b)
	if norms == 0 {
		return 0
	}

	cos := r3.Dot(a, b) / norms
	// Rounding can push the ratio just outside acos's domain.
	cos = math.Max(-1, math.Min(1, cos))

	degrees := math.Acos(cos) * 180 / math.Pi
	return degrees / 360
}

// JointAngle returns the angle at p2 between the rays to p1 and p3, in turns.
func JointAngle(p1, p2, p3 Landmark) float64 {
	return AngleBetween(VectorBetween(p1, p2), VectorBetween(p3, p2))
}

// Angles computes the leg and hip angles of a skeleton.
func (s *Skeleton) Angles() AngleVector {
	return AngleVector{
		JointAngle(s[LeftAnkle], s[LeftKnee], s[LeftHip]),
		JointAngle(s[LeftKnee], s[LeftHip], s[LeftShoulder]),
		JointAngle(s[RightAnkle], s[RightKnee], s[RightHip]),
		JointAngle(s[RightKnee], s[RightHip], s[RightShoulder]),
	}
}
