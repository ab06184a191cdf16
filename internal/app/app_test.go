package app

import (
	"context"
	"io"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/marchrep/internal/capture"
	"github.com/ayusman/marchrep/internal/detector"
	"github.com/ayusman/marchrep/internal/exercise"
	"github.com/ayusman/marchrep/internal/logging"
	"github.com/ayusman/marchrep/internal/pose"
	"github.com/ayusman/marchrep/internal/store"
	"github.com/ayusman/marchrep/internal/telemetry"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func newTestApp(t *testing.T, cfg Config) *App {
	t.Helper()
	if cfg.Camera == nil {
		cfg.Camera = capture.NewMockCamera(0)
	}
	if cfg.Detector == nil {
		cfg.Detector = detector.NewMockDetector()
	}
	cfg.Logger = logging.Discard()
	return New(cfg)
}

func processN(t *testing.T, a *App, landmarks []pose.Landmark, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		_, err := a.ProcessResult(pose.NewResult(landmarks))
		require.NoError(t, err)
	}
}

func TestApp_DefaultState(t *testing.T) {
	a := newTestApp(t, Config{})

	assert.False(t, a.IsEnabled())
	assert.False(t, a.IsRunning())
	assert.Nil(t, a.ActiveSession())
	assert.Zero(t, a.Reps())

	a.SetEnabled(true)
	assert.True(t, a.IsEnabled())
}

func TestApp_ProcessResult_NoSession(t *testing.T) {
	a := newTestApp(t, Config{})

	_, err := a.ProcessResult(pose.NewResult(pose.LeftStepDownLandmarks()))
	assert.ErrorIs(t, err, ErrNoSession)

	_, err = a.StopSession()
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestApp_SessionLifecycle(t *testing.T) {
	st := newTestStore(t)
	a := newTestApp(t, Config{Store: st})

	sess, err := a.StartSession("morning march")
	require.NoError(t, err)
	assert.Equal(t, store.SessionActive, sess.Status)

	_, err = a.StartSession("second")
	assert.ErrorIs(t, err, store.ErrSessionActive)

	processN(t, a, pose.LeftStepDownLandmarks(), 5)
	assert.Equal(t, 1, a.Reps())

	_, err = a.ProcessResult(nil)
	assert.ErrorIs(t, err, pose.ErrMissingData)

	active := a.ActiveSession()
	require.NotNil(t, active)
	assert.Equal(t, 6, active.Frames)
	assert.Equal(t, 1, active.Rejected)
	assert.Equal(t, 1, active.Reps)

	stored, err := st.Sessions().GetByID(sess.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.Reps, "reps are saved as they happen")

	finished, err := a.StopSession()
	require.NoError(t, err)
	assert.Equal(t, store.SessionFinished, finished.Status)
	assert.Equal(t, 1, finished.Reps)
	require.NotNil(t, finished.EndedAt)
	assert.Nil(t, a.ActiveSession())

	stored, err = st.Sessions().GetByID(sess.ID)
	require.NoError(t, err)
	assert.Equal(t, store.SessionFinished, stored.Status)
	assert.Equal(t, 1, stored.Reps)
	assert.Equal(t, 6, stored.Frames)
	assert.Equal(t, 1, stored.Rejected)
}

func TestApp_NewSessionStartsFresh(t *testing.T) {
	a := newTestApp(t, Config{})

	_, err := a.StartSession("first")
	require.NoError(t, err)
	processN(t, a, pose.LeftStepDownLandmarks(), 5)
	require.Equal(t, 1, a.Reps())
	_, err = a.StopSession()
	require.NoError(t, err)
	assert.Equal(t, 1, a.Reps(), "count of the last session stays readable")

	_, err = a.StartSession("second")
	require.NoError(t, err)
	assert.Zero(t, a.Reps())

	// A fresh processor needs the full ramp again before counting.
	processN(t, a, pose.LeftStepDownLandmarks(), 4)
	assert.Zero(t, a.Reps())
	processN(t, a, pose.LeftStepDownLandmarks(), 1)
	assert.Equal(t, 1, a.Reps())
}

func TestApp_FrameCountersFlushPeriodically(t *testing.T) {
	st := newTestStore(t)
	a := newTestApp(t, Config{Store: st})

	sess, err := a.StartSession("")
	require.NoError(t, err)

	processN(t, a, pose.StandingLandmarks(), frameFlushInterval)

	stored, err := st.Sessions().GetByID(sess.ID)
	require.NoError(t, err)
	assert.Equal(t, frameFlushInterval, stored.Frames)
}

func TestApp_Observers(t *testing.T) {
	a := newTestApp(t, Config{})

	var progress []float64
	var reps int
	a.AddObserver(exercise.SinkFuncs{
		Progress: func(p float64) { progress = append(progress, p) },
		Rep:      func() { reps++ },
	})

	_, err := a.StartSession("")
	require.NoError(t, err)
	processN(t, a, pose.LeftStepDownLandmarks(), 5)

	assert.Len(t, progress, 5)
	assert.Equal(t, 1, reps)
}

func TestApp_Metrics(t *testing.T) {
	m := telemetry.New()
	a := newTestApp(t, Config{Metrics: m})

	_, err := a.StartSession("")
	require.NoError(t, err)
	processN(t, a, pose.LeftStepDownLandmarks(), 5)
	_, _ = a.ProcessResult(pose.NewResult(pose.StandingLandmarks()[:10]))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Result().Body)
	require.NoError(t, err)

	assert.Contains(t, string(body), "marchrep_reps_total 1")
	assert.Contains(t, string(body), `marchrep_frames_total{result="ok"} 5`)
	assert.Contains(t, string(body), `marchrep_frames_total{result="insufficient_landmarks"} 1`)
	assert.Contains(t, string(body), "marchrep_posture 1")
}

func TestApp_Pipeline(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	camera := capture.NewMockCamera(10)
	camera.SetFPS(100)

	det := detector.NewMockDetector()
	det.SetSequence(detector.MarchingSequence())

	a := newTestApp(t, Config{Camera: camera, Detector: det})
	_, err := a.StartSession("pipeline")
	require.NoError(t, err)
	a.SetEnabled(true)

	require.NoError(t, a.Start(context.Background()))
	assert.True(t, a.IsRunning())

	// Five left frames count the first rep, the first right frame the second.
	require.Eventually(t, func() bool {
		return det.Calls() == 10
	}, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, 2, a.Reps())

	a.Stop()
	assert.False(t, a.IsRunning())
	assert.False(t, camera.IsOpen())
	assert.Nil(t, a.ActiveSession())
}

func TestApp_PipelineRestartsAfterEndOfStream(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	camera := capture.NewMockCamera(3)
	camera.SetFPS(100)

	det := detector.NewMockDetector()
	det.SetLandmarks(pose.StandingLandmarks())

	a := newTestApp(t, Config{Camera: camera, Detector: det})
	_, err := a.StartSession("replay")
	require.NoError(t, err)
	a.SetEnabled(true)

	require.NoError(t, a.Start(context.Background()))
	require.Eventually(t, func() bool {
		return !a.IsRunning()
	}, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, 3, det.Calls())

	// A finished stream can be started again from the first frame.
	require.NoError(t, a.Start(context.Background()))
	require.Eventually(t, func() bool {
		return det.Calls() == 6 && !a.IsRunning()
	}, 5*time.Second, 10*time.Millisecond)

	a.Stop()
	assert.False(t, a.IsRunning())
}

func TestApp_PipelineIdleWhenDisabled(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	camera := capture.NewMockCamera(0)
	camera.SetFPS(100)
	a := newTestApp(t, Config{Camera: camera})

	_, err := a.StartSession("")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, a.Start(ctx))
	time.Sleep(50 * time.Millisecond)
	cancel()

	assert.Zero(t, camera.FramesRead(), "disabled app must not read frames")
	a.Stop()
}
