// Package detector provides pose estimation interfaces for the step counter.
package detector

import (
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/marchrep/internal/pose"
)

// Detector defines the interface for pose estimation implementations.
type Detector interface {
	// Detect analyzes a video frame and returns the world landmarks of the
	// people in it. A result with no landmark sets means nobody was found.
	Detect(frame *gocv.Mat) (*pose.Result, error)

	// Close releases any resources held by the detector.
	Close() error
}

// Config holds configuration options for pose detection.
type Config struct {
	// ScriptPath is the pose service script. Empty means search the default locations.
	ScriptPath string

	// PythonPath is the interpreter used to run the script. Empty means search
	// for a virtual environment, then fall back to python3.
	PythonPath string

	// IdleTimeout stops the pose service after this long without a request.
	IdleTimeout time.Duration

	// MinConfidence is the minimum pose detection confidence (0.0-1.0).
	MinConfidence float64
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		IdleTimeout:   30 * time.Second,
		MinConfidence: 0.5,
	}
}
