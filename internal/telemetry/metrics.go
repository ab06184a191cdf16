// Package telemetry exposes Prometheus collectors for the rep counter.
package telemetry

import (
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ayusman/marchrep/internal/exercise"
	"github.com/ayusman/marchrep/internal/pose"
)

const namespace = "marchrep"

// Frame result labels.
const (
	ResultOK                    = "ok"
	ResultMissingData           = "missing_data"
	ResultInsufficientLandmarks = "insufficient_landmarks"
	ResultIndexOutOfRange       = "index_out_of_range"
	ResultComputationFailure    = "computation_failure"
)

// Metrics holds the collectors on a private registry so several instances
// can coexist in one process.
type Metrics struct {
	registry *prometheus.Registry
	frames   *prometheus.CounterVec
	reps     prometheus.Counter
	progress prometheus.Gauge
	posture  prometheus.Gauge
}

// New creates and registers the collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		frames: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_total",
			Help:      "Pose frames handled, by outcome.",
		}, []string{"result"}),
		reps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reps_total",
			Help:      "Completed marching reps.",
		}),
		progress: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "progress",
			Help:      "Smoothed progress of the current step.",
		}),
		posture: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "posture",
			Help:      "Current posture (0 stand, 1 left step, 2 right step).",
		}),
	}

	m.registry.MustRegister(m.frames, m.reps, m.progress, m.posture)

	// Pre-create every label so scrapes show zero counts.
	for _, result := range []string{
		ResultOK, ResultMissingData, ResultInsufficientLandmarks,
		ResultIndexOutOfRange, ResultComputationFailure,
	} {
		m.frames.WithLabelValues(result)
	}

	return m
}

// OnProgress implements exercise.Sink.
func (m *Metrics) OnProgress(progress float64) {
	m.progress.Set(progress)
}

// OnRep implements exercise.Sink.
func (m *Metrics) OnRep() {
	m.reps.Inc()
}

// ObserveFrame counts one processed frame by the error Process returned.
func (m *Metrics) ObserveFrame(err error) {
	m.frames.WithLabelValues(ResultOf(err)).Inc()
}

// SetPosture records the posture after a frame.
func (m *Metrics) SetPosture(p exercise.Posture) {
	m.posture.Set(float64(p))
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns the /metrics scrape handler.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ResultOf maps a frame error to its result label.
func ResultOf(err error) string {
	switch {
	case err == nil:
		return ResultOK
	case errors.Is(err, pose.ErrMissingData):
		return ResultMissingData
	case errors.Is(err, pose.ErrInsufficientLandmarks):
		return ResultInsufficientLandmarks
	case errors.Is(err, pose.ErrIndexOutOfRange):
		return ResultIndexOutOfRange
	default:
		return ResultComputationFailure
	}
}
