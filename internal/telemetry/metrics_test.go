package telemetry

import (
	"errors"
	"fmt"
	"io"
	"net/http/httptest"
	"testing"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/marchrep/internal/exercise"
	"github.com/ayusman/marchrep/internal/pose"
)

// gather returns the metric families of m keyed by name.
func gather(t *testing.T, m *Metrics) map[string]*dto.MetricFamily {
	t.Helper()

	families, err := m.Registry().Gather()
	require.NoError(t, err)

	byName := make(map[string]*dto.MetricFamily, len(families))
	for _, f := range families {
		byName[f.GetName()] = f
	}
	return byName
}

func frameCount(t *testing.T, m *Metrics, result string) float64 {
	t.Helper()

	family := gather(t, m)["marchrep_frames_total"]
	require.NotNil(t, family)
	for _, metric := range family.GetMetric() {
		for _, label := range metric.GetLabel() {
			if label.GetName() == "result" && label.GetValue() == result {
				return metric.GetCounter().GetValue()
			}
		}
	}
	t.Fatalf("no frames_total series for result %q", result)
	return 0
}

func TestResultOf(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ResultOK},
		{pose.ErrMissingData, ResultMissingData},
		{fmt.Errorf("%w: got 10", pose.ErrInsufficientLandmarks), ResultInsufficientLandmarks},
		{fmt.Errorf("%w: index 40", pose.ErrIndexOutOfRange), ResultIndexOutOfRange},
		{exercise.ErrComputation, ResultComputationFailure},
		{errors.New("anything else"), ResultComputationFailure},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ResultOf(tt.err), "error %v", tt.err)
	}
}

func TestMetrics_FramesStartAtZero(t *testing.T) {
	m := New()
	for _, result := range []string{ResultOK, ResultMissingData, ResultInsufficientLandmarks, ResultIndexOutOfRange, ResultComputationFailure} {
		assert.Zero(t, frameCount(t, m, result), result)
	}
}

func TestMetrics_ObserveFrame(t *testing.T) {
	m := New()

	m.ObserveFrame(nil)
	m.ObserveFrame(nil)
	m.ObserveFrame(pose.ErrMissingData)

	assert.Equal(t, 2.0, frameCount(t, m, ResultOK))
	assert.Equal(t, 1.0, frameCount(t, m, ResultMissingData))
	assert.Zero(t, frameCount(t, m, ResultComputationFailure))
}

func TestMetrics_Sink(t *testing.T) {
	m := New()
	var _ exercise.Sink = m

	m.OnProgress(0.375)
	m.OnRep()
	m.OnRep()
	m.SetPosture(exercise.RightStep)

	families := gather(t, m)
	assert.Equal(t, 0.375, families["marchrep_progress"].GetMetric()[0].GetGauge().GetValue())
	assert.Equal(t, 2.0, families["marchrep_reps_total"].GetMetric()[0].GetCounter().GetValue())
	assert.Equal(t, 2.0, families["marchrep_posture"].GetMetric()[0].GetGauge().GetValue())
}

func TestMetrics_IndependentRegistries(t *testing.T) {
	a, b := New(), New()
	a.OnRep()

	assert.Equal(t, 1.0, gather(t, a)["marchrep_reps_total"].GetMetric()[0].GetCounter().GetValue())
	assert.Zero(t, gather(t, b)["marchrep_reps_total"].GetMetric()[0].GetCounter().GetValue())
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.OnRep()
	m.ObserveFrame(nil)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Result().Body)
	require.NoError(t, err)
	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, string(body), "marchrep_reps_total 1")
	assert.Contains(t, string(body), `marchrep_frames_total{result="ok"} 1`)
}
