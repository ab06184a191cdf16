package detector

import (
	"sync"

	"gocv.io/x/gocv"

	"github.com/ayusman/marchrep/internal/pose"
)

// MockDetector is a test implementation of the Detector interface.
// It replays a configured sequence of landmark sets, one per Detect call.
type MockDetector struct {
	mu       sync.Mutex
	sequence [][]pose.Landmark
	next     int
	err      error
	calls    int
}

// NewMockDetector creates a new MockDetector that reports no people.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetLandmarks makes every Detect call return the given landmark set.
func (m *MockDetector) SetLandmarks(landmarks []pose.Landmark) {
	m.SetSequence([][]pose.Landmark{landmarks})
}

// SetSequence sets landmark sets returned in turn by Detect, wrapping around
// at the end. A nil entry produces a result with no people.
func (m *MockDetector) SetSequence(sequence [][]pose.Landmark) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sequence = sequence
	m.next = 0
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns how many times Detect has been called.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Detect returns the next configured landmark set or error.
func (m *MockDetector) Detect(frame *gocv.Mat) (*pose.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	if len(m.sequence) == 0 {
		return &pose.Result{}, nil
	}

	landmarks := m.sequence[m.next%len(m.sequence)]
	m.next++
	if landmarks == nil {
		return &pose.Result{}, nil
	}
	return pose.NewResult(landmarks), nil
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}

// MarchingSequence returns the landmark sets of a marching cycle: five frames
// on the left step followed by five on the right step.
func MarchingSequence() [][]pose.Landmark {
	seq := make([][]pose.Landmark, 0, 10)
	for i := 0; i < 5; i++ {
		seq = append(seq, pose.LeftStepDownLandmarks())
	}
	for i := 0; i < 5; i++ {
		seq = append(seq, pose.RightStepDownLandmarks())
	}
	return seq
}
