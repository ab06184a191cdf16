// Package exercise turns per-frame pose angles into step progress and
// repetition events for a marching exercise.
package exercise

import (
	"gonum.org/v1/gonum/floats"

	"github.com/ayusman/marchrep/internal/pose"
)

// Reference postures, in pose.AngleVector order.
var (
	// LeftStepDown has the left leg planted straight and the right knee and hip
	// flexed to 90 degrees.
	LeftStepDown = pose.AngleVector{0.5, 0.5, 0.25, 0.25}
	// RightStepDown mirrors LeftStepDown.
	RightStepDown = pose.AngleVector{0.25, 0.25, 0.5, 0.5}
)

// CosineSimilarity returns the cosine of the angle between a and b.
// Returns 0 if the lengths differ or either vector has zero magnitude.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	norms := floats.Norm(a, 2) * floats.Norm(b, 2)
	if norms == 0 {
		return 0
	}

	return floats.Dot(a, b) / norms
}
