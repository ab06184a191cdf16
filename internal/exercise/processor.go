package exercise

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/ayusman/marchrep/internal/pose"
)

// ErrComputation is returned when angle or similarity computation fails for a frame.
var ErrComputation = errors.New("frame computation failed")

// Step describes the outcome of one processed frame.
type Step struct {
	Angles     pose.AngleVector
	SimLeft    float64
	SimRight   float64
	Progress   float64
	Transition Transition
}

// Option configures a Processor.
type Option func(*Processor)

// WithThresholds replaces the default thresholds.
func WithThresholds(t Thresholds) Option {
	return func(p *Processor) {
		p.thresholds = t
	}
}

// WithLogger sets the logger used for rejected frames.
func WithLogger(l *slog.Logger) Option {
	return func(p *Processor) {
		if l != nil {
			p.logger = l
		}
	}
}

// Processor turns pose results into progress and rep events for one session.
// It is not safe for concurrent use; frames must be processed in arrival order.
type Processor struct {
	thresholds Thresholds
	smoother   *Smoother
	machine    *StateMachine
	sink       Sink
	logger     *slog.Logger
}

// NewProcessor creates a Processor in the Stand posture with zero progress.
// A nil sink discards all events.
func NewProcessor(sink Sink, opts ...Option) *Processor {
	p := &Processor{
		thresholds: DefaultThresholds(),
		sink:       sink,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.sink == nil {
		p.sink = discardSink{}
	}
	if err := p.thresholds.Validate(); err != nil {
		p.logger.Warn("using default thresholds", "error", err)
		p.thresholds = DefaultThresholds()
	}

	p.smoother = NewSmoother(p.thresholds.SmoothingFactor)
	p.machine = NewStateMachine(p.thresholds)

	return p
}

// Posture returns the current posture.
func (p *Processor) Posture() Posture {
	return p.machine.Posture()
}

// Progress returns the current smoothed progress.
func (p *Processor) Progress() float64 {
	return p.smoother.Value()
}

// Thresholds returns the thresholds in use.
func (p *Processor) Thresholds() Thresholds {
	return p.thresholds
}

// Process classifies one frame. Rejected frames return an error wrapping
// pose.ErrMissingData, pose.ErrInsufficientLandmarks, pose.ErrIndexOutOfRange
// or ErrComputation; they leave the processor state unchanged. A sink that
// panics fails the frame and the state is rolled back, so a rep it missed is
// counted again on the next matching frame.
func (p *Processor) Process(r *pose.Result) (step Step, err error) {
	landmarks, err := r.Landmarks()
	if err != nil {
		p.logger.Warn("skipping frame", "reason", err)
		return Step{}, err
	}

	skeleton, err := pose.Extract(landmarks)
	if err != nil {
		if errors.Is(err, pose.ErrIndexOutOfRange) {
			p.logger.Error("skipping frame", "reason", err)
		} else {
			p.logger.Warn("skipping frame", "reason", err, "landmarks", len(landmarks))
		}
		return Step{}, err
	}

	prevProgress, prevPosture := p.smoother.value, p.machine.posture
	defer func() {
		if rec := recover(); rec != nil {
			p.smoother.value, p.machine.posture = prevProgress, prevPosture
			step = Step{}
			err = fmt.Errorf("%w: %v", ErrComputation, rec)
			p.logger.Error("frame processing failed", "error", err)
		}
	}()

	step, err = p.evaluate(skeleton)
	if err != nil {
		p.logger.Error("frame processing failed", "error", err)
		return Step{}, err
	}

	p.smoother.value = step.Progress
	p.machine.Apply(step.Transition)

	p.sink.OnProgress(step.Progress)
	if step.Transition.Rep {
		p.sink.OnRep()
	}

	return step, nil
}

// evaluate computes the frame outcome without touching processor state.
func (p *Processor) evaluate(s *pose.Skeleton) (Step, error) {
	angles := s.Angles()
	for i, a := range angles {
		if !finite(a) {
			return Step{}, fmt.Errorf("%w: angle %d is %v", ErrComputation, i, a)
		}
	}

	simLeft := CosineSimilarity(LeftStepDown.Slice(), angles.Slice())
	simRight := CosineSimilarity(RightStepDown.Slice(), angles.Slice())
	if !finite(simLeft) || !finite(simRight) {
		return Step{}, fmt.Errorf("%w: similarity left=%v right=%v", ErrComputation, simLeft, simRight)
	}

	progress := p.smoother.Next(p.thresholds.progressOf(max(simLeft, simRight)))
	if !finite(progress) {
		return Step{}, fmt.Errorf("%w: progress %v", ErrComputation, progress)
	}

	return Step{
		Angles:     angles,
		SimLeft:    simLeft,
		SimRight:   simRight,
		Progress:   progress,
		Transition: p.machine.Evaluate(simLeft, simRight, progress),
	}, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
