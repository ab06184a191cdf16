// Package pose provides body landmark types, joint lookup and joint angle geometry
// for pose-based exercise tracking.
package pose

import (
	"errors"
	"fmt"
	"time"
)

// NumLandmarks is the number of body landmarks produced per person by the
// MediaPipe pose landmarker.
// See: https://developers.google.com/mediapipe/solutions/vision/pose_landmarker
const NumLandmarks = 33

// Frame validation errors.
var (
	// ErrMissingData is returned when no landmark set is available for a frame.
	ErrMissingData = errors.New("no pose landmarks in frame")
	// ErrInsufficientLandmarks is returned when a frame has fewer than NumLandmarks points.
	ErrInsufficientLandmarks = errors.New("insufficient pose landmarks")
	// ErrIndexOutOfRange is returned when a required joint index is not present in a frame.
	ErrIndexOutOfRange = errors.New("joint index out of range")
)

// Joint names a body landmark used for step tracking.
type Joint int

// Joints used to build the leg and hip angles.
const (
	LeftShoulder Joint = iota
	RightShoulder
	LeftHip
	RightHip
	LeftKnee
	RightKnee
	LeftAnkle
	RightAnkle
	numJoints
)

// jointIndex maps each Joint to its MediaPipe pose landmark index.
var jointIndex = [numJoints]int{
	LeftShoulder:  11,
	RightShoulder: 12,
	LeftHip:       23,
	RightHip:      24,
	LeftKnee:      25,
	RightKnee:     26,
	LeftAnkle:     27,
	RightAnkle:    28,
}

var jointNames = [numJoints]string{
	LeftShoulder:  "left_shoulder",
	RightShoulder: "right_shoulder",
	LeftHip:       "left_hip",
	RightHip:      "right_hip",
	LeftKnee:      "left_knee",
	RightKnee:     "right_knee",
	LeftAnkle:     "left_ankle",
	RightAnkle:    "right_ankle",
}

// Joints returns every tracked joint in declaration order.
func Joints() []Joint {
	joints := make([]Joint, numJoints)
	for i := range joints {
		joints[i] = Joint(i)
	}
	return joints
}

// Index returns the landmark index of the joint, or -1 for an unknown joint.
func (j Joint) Index() int {
	if j < 0 || j >= numJoints {
		return -1
	}
	return jointIndex[j]
}

// String returns the snake_case joint name.
func (j Joint) String() string {
	if j < 0 || j >= numJoints {
		return fmt.Sprintf("joint(%d)", int(j))
	}
	return jointNames[j]
}

// Landmark represents a 3D world-space point with x, y, z coordinates.
type Landmark struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Result is the pose estimator output for one frame. WorldLandmarks holds one
// landmark set per detected person.
type Result struct {
	WorldLandmarks [][]Landmark `json:"world_landmarks"`
	Timestamp      time.Time    `json:"timestamp"`
}

// Landmarks returns the first person's landmark set.
// Returns ErrMissingData if the result is nil or has no landmarks.
func (r *Result) Landmarks() ([]Landmark, error) {
	if r == nil || len(r.WorldLandmarks) == 0 || len(r.WorldLandmarks[0]) == 0 {
		return nil, ErrMissingData
	}
	return r.WorldLandmarks[0], nil
}

// Skeleton holds the joints extracted from a single frame.
type Skeleton [numJoints]Landmark

// Joint returns the landmark for j.
func (s *Skeleton) Joint(j Joint) Landmark {
	return s[j]
}

// Extract validates a landmark set and pulls out the tracked joints.
// The set must hold at least NumLandmarks points.
func Extract(landmarks []Landmark) (*Skeleton, error) {
	if len(landmarks) == 0 {
		return nil, ErrMissingData
	}
	if len(landmarks) < NumLandmarks {
		return nil, fmt.Errorf("%w: got %d, need %d", ErrInsufficientLandmarks, len(landmarks), NumLandmarks)
	}

	var s Skeleton
	for j := Joint(0); j < numJoints; j++ {
		idx := j.Index()
		// Unreachable with the current jointIndex; guards future edits to it.
		if idx < 0 || idx >= len(landmarks) {
			return nil, fmt.Errorf("%w: %s at %d with %d landmarks", ErrIndexOutOfRange, j, idx, len(landmarks))
		}
		s[j] = landmarks[idx]
	}

	return &s, nil
}
