package exercise

// Sink receives the outputs of a Processor. Calls happen on the goroutine
// that called Processor.Process, at most once each per frame.
type Sink interface {
	// OnProgress receives the smoothed step progress.
	OnProgress(progress float64)
	// OnRep signals that one repetition was completed.
	OnRep()
}

// SinkFuncs adapts plain functions to a Sink. Nil fields are skipped.
type SinkFuncs struct {
	Progress func(progress float64)
	Rep      func()
}

// OnProgress calls f.Progress if set.
func (f SinkFuncs) OnProgress(progress float64) {
	if f.Progress != nil {
		f.Progress(progress)
	}
}

// OnRep calls f.Rep if set.
func (f SinkFuncs) OnRep() {
	if f.Rep != nil {
		f.Rep()
	}
}

// MultiSink forwards every event to each sink in order.
type MultiSink []Sink

// OnProgress forwards progress to every sink.
func (m MultiSink) OnProgress(progress float64) {
	for _, s := range m {
		s.OnProgress(progress)
	}
}

// OnRep forwards the rep to every sink.
func (m MultiSink) OnRep() {
	for _, s := range m {
		s.OnRep()
	}
}

type discardSink struct{}

func (discardSink) OnProgress(float64) {}
func (discardSink) OnRep()             {}
