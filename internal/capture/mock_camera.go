package capture

import (
	"sync"

	"gocv.io/x/gocv"
)

// MockCamera produces a fixed number of blank frames, or an endless stream
// when limit is 0. It lets the detection loop run without a device when the
// detector does not look at pixels.
type MockCamera struct {
	mu     sync.Mutex
	limit  int
	read   int
	fps    int
	open   bool
	width  int
	height int
}

// NewMockCamera creates a MockCamera that yields limit frames before
// returning ErrEndOfStream. A limit of 0 never ends.
func NewMockCamera(limit int) *MockCamera {
	return &MockCamera{
		limit:  limit,
		fps:    DefaultFPS,
		width:  DefaultWidth,
		height: DefaultHeight,
	}
}

// Open starts playback from the first frame.
func (c *MockCamera) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.open = true
	c.read = 0
	return nil
}

// Close stops playback.
func (c *MockCamera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.open = false
	return nil
}

// ReadFrame returns a new black frame.
func (c *MockCamera) ReadFrame() (*gocv.Mat, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.open {
		return nil, ErrCameraNotOpen
	}
	if c.limit > 0 && c.read >= c.limit {
		return nil, ErrEndOfStream
	}
	c.read++

	mat := gocv.NewMatWithSize(c.height, c.width, gocv.MatTypeCV8UC3)
	return &mat, nil
}

// SetFPS records the requested frame rate.
func (c *MockCamera) SetFPS(fps int) {
	if fps <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fps = fps
}

// FPS returns the recorded frame rate.
func (c *MockCamera) FPS() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fps
}

// IsOpen reports whether playback is running.
func (c *MockCamera) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}

// FramesRead returns how many frames have been delivered since Open.
func (c *MockCamera) FramesRead() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.read
}
