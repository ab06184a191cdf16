package exercise

import "math"

// Posture is the classified body configuration.
type Posture int

const (
	// Stand is the initial posture with no step in progress.
	Stand Posture = iota
	// LeftStep is the posture after a left-side step was recognized.
	LeftStep
	// RightStep is the posture after a right-side step was recognized.
	RightStep
)

// String returns the posture name.
func (p Posture) String() string {
	switch p {
	case Stand:
		return "stand"
	case LeftStep:
		return "left_step"
	case RightStep:
		return "right_step"
	default:
		return "unknown"
	}
}

// Transition is the outcome of evaluating one frame against the posture rules.
type Transition struct {
	From Posture
	To   Posture
	Rep  bool
}

// Changed reports whether the posture changed.
func (t Transition) Changed() bool {
	return t.From != t.To
}

// StateMachine tracks posture across frames and decides when a rep completes.
type StateMachine struct {
	thresholds Thresholds
	posture    Posture
}

// NewStateMachine creates a StateMachine in the Stand posture.
func NewStateMachine(t Thresholds) *StateMachine {
	return &StateMachine{thresholds: t, posture: Stand}
}

// Posture returns the current posture.
func (m *StateMachine) Posture() Posture {
	return m.posture
}

// Evaluate applies the transition rules to the current posture without
// changing it. Rules are tried in order and the first match wins:
//
//  1. right template matched from LeftStep with a completed cycle: rep, go RightStep
//  2. left template matched from RightStep with a completed cycle: rep, go LeftStep
//  3. clear side preference while standing: go to the side opposite the better match
//  4. neither template close while stepping: go Stand
func (m *StateMachine) Evaluate(simLeft, simRight, progress float64) Transition {
	t := m.thresholds
	tr := Transition{From: m.posture, To: m.posture}

	switch {
	case simRight > t.RepSimilarity && m.posture == LeftStep && progress > t.RepProgress:
		tr.To, tr.Rep = RightStep, true
	case simLeft > t.RepSimilarity && m.posture == RightStep && progress > t.RepProgress:
		tr.To, tr.Rep = LeftStep, true
	case math.Abs(simLeft-simRight) > t.SideMargin && m.posture == Stand:
		// Starts on the side opposite the closer template. Rep counting was
		// validated with this mapping; do not swap.
		if simRight > simLeft {
			tr.To = LeftStep
		} else {
			tr.To = RightStep
		}
	case simLeft < t.StandSimilarity && simRight < t.StandSimilarity && m.posture != Stand:
		tr.To = Stand
	}

	return tr
}

// Apply commits a transition returned by Evaluate.
func (m *StateMachine) Apply(tr Transition) {
	m.posture = tr.To
}

// Step evaluates and commits in one call.
func (m *StateMachine) Step(simLeft, simRight, progress float64) Transition {
	tr := m.Evaluate(simLeft, simRight, progress)
	m.Apply(tr)
	return tr
}
