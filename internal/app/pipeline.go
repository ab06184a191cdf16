package app

import (
	"context"
	"errors"
	"time"

	"github.com/ayusman/marchrep/internal/capture"
)

// runPipeline is the main detection loop that processes frames from the camera.
//
// Each tick, while enabled and a session is active:
// 1. Read a frame from the camera
// 2. Detect the pose
// 3. Feed the result to the session processor
//
// Errors are logged and the frame skipped. The loop exits when ctx is
// canceled or the camera reports the end of its stream.
func (a *App) runPipeline(ctx context.Context, done chan<- struct{}) {
	defer close(done)

	fps := a.camera.FPS()
	if fps <= 0 {
		fps = capture.DefaultFPS
	}

	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !a.IsEnabled() || a.ActiveSession() == nil {
				continue
			}

			if err := a.processFrame(); err != nil {
				if errors.Is(err, capture.ErrEndOfStream) {
					a.logger.Info("camera stream ended")
					a.detach(done)
					return
				}
				a.logger.Warn("frame skipped", "error", err)
			}
		}
	}
}

// detach clears the running state when the loop ends on its own, so that
// IsRunning reports false and Start can launch a new loop. A concurrent Stop
// has already cleared it and owns the wait on done.
func (a *App) detach(done chan<- struct{}) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.done != done {
		return
	}
	a.cancel()
	a.cancel, a.done = nil, nil
}

// processFrame reads, detects and classifies a single frame. Frames the
// processor rejects are already logged by the processor and not reported here.
func (a *App) processFrame() error {
	frame, err := a.camera.ReadFrame()
	if err != nil {
		return err
	}

	result, err := a.detector.Detect(frame)
	frame.Close() // Done with the frame
	if err != nil {
		return err
	}

	_, err = a.ProcessResult(result)
	if errors.Is(err, ErrNoSession) {
		return err
	}
	return nil
}
