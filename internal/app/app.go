// Package app provides the main application logic for the marchrep step counter.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/ayusman/marchrep/internal/capture"
	"github.com/ayusman/marchrep/internal/detector"
	"github.com/ayusman/marchrep/internal/exercise"
	"github.com/ayusman/marchrep/internal/pose"
	"github.com/ayusman/marchrep/internal/replay"
	"github.com/ayusman/marchrep/internal/store"
	"github.com/ayusman/marchrep/internal/telemetry"
)

// frameFlushInterval is how many frames are counted before the session's
// frame counters are written to the store.
const frameFlushInterval = 30

// ErrNoSession is returned when an operation needs an active session.
var ErrNoSession = errors.New("no active session")

// Config holds configuration options for the application.
type Config struct {
	// Store persists session summaries. Optional.
	Store *store.Store
	// Camera defaults to the system camera with capture.DefaultConfig.
	Camera capture.Camera
	// Detector defaults to MediaPipe, falling back to the mock detector.
	Detector detector.Detector
	// Metrics receives frame outcomes and rep events. Optional.
	Metrics *telemetry.Metrics
	// Recorder, when set, receives every detected pose result.
	Recorder *replay.Recorder
	// Thresholds for new sessions; the zero value means exercise.DefaultThresholds.
	Thresholds exercise.Thresholds
	Logger     *slog.Logger
}

// App is the main application that feeds camera frames through pose
// detection and the step classifier of the active session.
type App struct {
	config   Config
	camera   capture.Camera
	detector detector.Detector
	logger   *slog.Logger

	mu        sync.RWMutex
	enabled   bool
	cancel    context.CancelFunc
	done      chan struct{}
	observers []exercise.Sink

	// procMu serializes frame processing and session changes.
	procMu  sync.Mutex
	session *activeSession

	reps atomic.Int64
}

// activeSession is the processing state of the running session.
type activeSession struct {
	record    store.Session
	processor *exercise.Processor
	// Frame counters not yet written to the store.
	pendingFrames   int
	pendingRejected int
}

// New creates a new App instance with the given configuration.
func New(config Config) *App {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if config.Thresholds == (exercise.Thresholds{}) {
		config.Thresholds = exercise.DefaultThresholds()
	}

	a := &App{
		config:   config,
		camera:   config.Camera,
		detector: config.Detector,
		logger:   logger,
	}

	if a.camera == nil {
		a.camera = capture.NewCamera(capture.DefaultConfig())
	}

	// Try MediaPipe first, fall back to mock detector
	if a.detector == nil {
		if mp, err := detector.NewMediaPipeDetector(detector.DefaultConfig()); err == nil {
			a.detector = mp
			logger.Info("using MediaPipe pose detection")
		} else {
			logger.Warn("MediaPipe not available, using mock detector", "error", err)
			a.detector = detector.NewMockDetector()
		}
	}

	return a
}

// SetEnabled enables or disables frame processing in the pipeline loop.
func (a *App) SetEnabled(enabled bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.enabled = enabled
}

// IsEnabled returns whether frame processing is currently enabled.
func (a *App) IsEnabled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.enabled
}

// IsRunning reports whether the pipeline loop is running.
func (a *App) IsRunning() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.cancel != nil
}

// AddObserver registers a sink that receives progress and rep events of
// every session. Observers are called from the processing goroutine and
// must not block.
func (a *App) AddObserver(s exercise.Sink) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.observers = append(a.observers, s)
}

// Reps returns the rep count of the current or most recent session.
func (a *App) Reps() int {
	return int(a.reps.Load())
}

// Camera returns the camera instance.
func (a *App) Camera() capture.Camera {
	return a.camera
}

// Detector returns the pose detector.
func (a *App) Detector() detector.Detector {
	return a.detector
}

// StartSession begins a new counting session with a fresh processor.
func (a *App) StartSession(name string) (*store.Session, error) {
	a.procMu.Lock()
	defer a.procMu.Unlock()

	if a.session != nil {
		return nil, store.ErrSessionActive
	}

	record := store.Session{
		ID:        uuid.NewString(),
		Name:      name,
		Status:    store.SessionActive,
		StartedAt: time.Now().UTC(),
	}
	if a.config.Store != nil {
		if err := a.config.Store.Sessions().Create(&record); err != nil {
			return nil, fmt.Errorf("create session: %w", err)
		}
	}

	s := &activeSession{record: record}
	s.processor = exercise.NewProcessor(
		&sessionSink{app: a, sessionID: record.ID},
		exercise.WithThresholds(a.config.Thresholds),
		exercise.WithLogger(a.logger.With("session", record.ID)),
	)
	a.session = s
	a.reps.Store(0)

	if a.config.Metrics != nil {
		a.config.Metrics.OnProgress(0)
		a.config.Metrics.SetPosture(exercise.Stand)
	}

	a.logger.Info("session started", "session", record.ID, "name", name)

	out := record
	return &out, nil
}

// StopSession finishes the active session and returns its final summary.
func (a *App) StopSession() (*store.Session, error) {
	a.procMu.Lock()
	defer a.procMu.Unlock()

	s := a.session
	if s == nil {
		return nil, ErrNoSession
	}
	a.session = nil

	a.flushFrames(s)

	now := time.Now().UTC()
	s.record.Status = store.SessionFinished
	s.record.EndedAt = &now
	s.record.Reps = a.Reps()

	if a.config.Store != nil {
		if err := a.config.Store.Sessions().Finish(s.record.ID, now); err != nil {
			return nil, fmt.Errorf("finish session: %w", err)
		}
	}

	a.logger.Info("session finished",
		"session", s.record.ID,
		"reps", s.record.Reps,
		"frames", s.record.Frames,
		"rejected", s.record.Rejected,
		"duration", s.record.Duration().Round(time.Second))

	out := s.record
	return &out, nil
}

// ActiveSession returns a snapshot of the running session, or nil.
func (a *App) ActiveSession() *store.Session {
	a.procMu.Lock()
	defer a.procMu.Unlock()

	if a.session == nil {
		return nil
	}
	out := a.session.record
	out.Reps = a.Reps()
	return &out
}

// ProcessResult runs one detected pose through the active session's processor.
// Rejected frames are counted and their error is returned.
func (a *App) ProcessResult(r *pose.Result) (exercise.Step, error) {
	a.procMu.Lock()
	defer a.procMu.Unlock()

	s := a.session
	if s == nil {
		return exercise.Step{}, ErrNoSession
	}

	if a.config.Recorder != nil {
		if err := a.config.Recorder.Record(r); err != nil {
			a.logger.Warn("failed to record frame", "error", err)
		}
	}

	step, err := s.processor.Process(r)

	if m := a.config.Metrics; m != nil {
		m.ObserveFrame(err)
		m.SetPosture(s.processor.Posture())
	}

	s.record.Frames++
	s.pendingFrames++
	if err != nil {
		s.record.Rejected++
		s.pendingRejected++
	}
	if s.pendingFrames >= frameFlushInterval {
		a.flushFrames(s)
	}

	return step, err
}

// flushFrames writes pending frame counters to the store.
func (a *App) flushFrames(s *activeSession) {
	if a.config.Store == nil || s.pendingFrames == 0 {
		return
	}
	if err := a.config.Store.Sessions().AddFrames(s.record.ID, s.pendingFrames, s.pendingRejected); err != nil {
		a.logger.Error("failed to save frame counters", "session", s.record.ID, "error", err)
		return
	}
	s.pendingFrames, s.pendingRejected = 0, 0
}

// Start opens the camera and runs the pipeline loop until ctx is canceled
// or Stop is called.
func (a *App) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	// Don't start if already running
	if a.cancel != nil {
		return nil
	}

	if err := a.camera.Open(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	a.done = make(chan struct{})
	go a.runPipeline(ctx, a.done)

	a.logger.Info("detection pipeline started", "fps", a.camera.FPS())
	return nil
}

// Stop halts the pipeline loop, finishes the active session and releases
// the camera and detector.
func (a *App) Stop() {
	a.mu.Lock()
	cancel, done := a.cancel, a.done
	a.cancel, a.done = nil, nil
	a.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}

	if _, err := a.StopSession(); err != nil && !errors.Is(err, ErrNoSession) {
		a.logger.Error("failed to finish session", "error", err)
	}

	if err := a.camera.Close(); err != nil {
		a.logger.Warn("error closing camera", "error", err)
	}

	if err := a.detector.Close(); err != nil {
		a.logger.Warn("error closing detector", "error", err)
	}

	a.logger.Info("detection pipeline stopped")
}

// sessionSink fans processor events out to the store, metrics and observers.
type sessionSink struct {
	app       *App
	sessionID string
}

func (s *sessionSink) OnProgress(progress float64) {
	if m := s.app.config.Metrics; m != nil {
		m.OnProgress(progress)
	}
	for _, o := range s.app.observerList() {
		o.OnProgress(progress)
	}
}

func (s *sessionSink) OnRep() {
	reps := s.app.reps.Add(1)

	if st := s.app.config.Store; st != nil {
		if err := st.Sessions().IncrementReps(s.sessionID); err != nil {
			s.app.logger.Error("failed to save rep", "session", s.sessionID, "error", err)
		}
	}
	if m := s.app.config.Metrics; m != nil {
		m.OnRep()
	}

	s.app.logger.Debug("rep counted", "session", s.sessionID, "reps", reps)

	for _, o := range s.app.observerList() {
		o.OnRep()
	}
}

func (a *App) observerList() []exercise.Sink {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.observers
}
