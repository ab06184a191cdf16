package exercise

import (
	"errors"
	"fmt"
)

// Empirical thresholds validated against recorded marching sessions.
const (
	// DefaultRepSimilarity is the template similarity a step must exceed to count a rep.
	DefaultRepSimilarity = 0.985
	// DefaultRepProgress is the smoothed progress a step must exceed to count a rep.
	DefaultRepProgress = 0.99
	// DefaultSideMargin is the left/right similarity gap that starts a step from Stand.
	DefaultSideMargin = 0.07
	// DefaultStandSimilarity is the similarity both sides must fall below to return to Stand.
	DefaultStandSimilarity = 0.96
	// DefaultProgressFloor is the similarity at which progress starts.
	DefaultProgressFloor = 0.95
	// DefaultProgressSpan is the similarity range mapped onto progress 0..1.
	DefaultProgressSpan = 0.04
	// DefaultSmoothingFactor is the weight of the newest sample in the progress average.
	DefaultSmoothingFactor = 0.3
)

// ErrInvalidThresholds is returned by Thresholds.Validate.
var ErrInvalidThresholds = errors.New("invalid thresholds")

// Thresholds holds the tunable constants of the step classifier.
type Thresholds struct {
	RepSimilarity   float64 `mapstructure:"rep_similarity"`
	RepProgress     float64 `mapstructure:"rep_progress"`
	SideMargin      float64 `mapstructure:"side_margin"`
	StandSimilarity float64 `mapstructure:"stand_similarity"`
	ProgressFloor   float64 `mapstructure:"progress_floor"`
	ProgressSpan    float64 `mapstructure:"progress_span"`
	SmoothingFactor float64 `mapstructure:"smoothing_factor"`
}

// DefaultThresholds returns the calibrated default thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		RepSimilarity:   DefaultRepSimilarity,
		RepProgress:     DefaultRepProgress,
		SideMargin:      DefaultSideMargin,
		StandSimilarity: DefaultStandSimilarity,
		ProgressFloor:   DefaultProgressFloor,
		ProgressSpan:    DefaultProgressSpan,
		SmoothingFactor: DefaultSmoothingFactor,
	}
}

// Validate checks that the thresholds describe a usable classifier.
func (t Thresholds) Validate() error {
	if t.SmoothingFactor <= 0 || t.SmoothingFactor > 1 {
		return fmt.Errorf("%w: smoothing factor %v not in (0, 1]", ErrInvalidThresholds, t.SmoothingFactor)
	}
	if t.ProgressSpan <= 0 {
		return fmt.Errorf("%w: progress span %v must be positive", ErrInvalidThresholds, t.ProgressSpan)
	}
	if t.SideMargin < 0 {
		return fmt.Errorf("%w: side margin %v must not be negative", ErrInvalidThresholds, t.SideMargin)
	}
	for name, v := range map[string]float64{
		"rep similarity":   t.RepSimilarity,
		"stand similarity": t.StandSimilarity,
		"progress floor":   t.ProgressFloor,
	} {
		if v < -1 || v > 1 {
			return fmt.Errorf("%w: %s %v not in [-1, 1]", ErrInvalidThresholds, name, v)
		}
	}
	return nil
}

// progressOf rescales a similarity in [ProgressFloor, ProgressFloor+ProgressSpan]
// onto [0, 1]. Values below the floor give 0; values above the window are not capped.
func (t Thresholds) progressOf(similarity float64) float64 {
	return max((similarity-t.ProgressFloor)/t.ProgressSpan, 0)
}
