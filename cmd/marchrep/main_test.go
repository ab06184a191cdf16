package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/marchrep/internal/pose"
	"github.com/ayusman/marchrep/internal/replay"
)

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())

	var out bytes.Buffer
	cmd := newRootCommand()
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader(stdin))

	err := cmd.Execute()
	return out.String(), err
}

func writeRecording(t *testing.T, frames ...[]pose.Landmark) string {
	t.Helper()

	var buf bytes.Buffer
	rec := replay.NewRecorder(&buf)
	start := time.Date(2026, 5, 1, 7, 0, 0, 0, time.UTC)
	for i, f := range frames {
		r := pose.NewResult(f)
		r.Timestamp = start.Add(time.Duration(i) * 2 * time.Second)
		require.NoError(t, rec.Record(r))
	}

	path := filepath.Join(t.TempDir(), "session.jsonl")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "", "version")
	require.NoError(t, err)
	assert.Equal(t, "marchrep dev (commit: none)\n", out)
}

func TestReplayCommand(t *testing.T) {
	left := pose.LeftStepDownLandmarks()
	path := writeRecording(t, left, left, left, left, left, pose.RightStepDownLandmarks())

	out, err := execute(t, "", "replay", path)
	require.NoError(t, err)

	assert.Contains(t, out, "frames:    6 (0 rejected, 0 malformed)")
	assert.Contains(t, out, "reps:      2")
	assert.Contains(t, out, "posture:   right_step")
	assert.Contains(t, out, "span:      10 seconds")
}

func TestReplayCommand_Stdin(t *testing.T) {
	out, err := execute(t, "not json\n", "replay", "-")
	require.NoError(t, err)
	assert.Contains(t, out, "frames:    1 (1 rejected, 1 malformed)")
	assert.Contains(t, out, "posture:   stand")
	assert.NotContains(t, out, "span:")
}

func TestReplayCommand_Errors(t *testing.T) {
	_, err := execute(t, "", "replay")
	assert.Error(t, err, "a file argument is required")

	_, err = execute(t, "", "replay", filepath.Join(t.TempDir(), "missing.jsonl"))
	assert.ErrorContains(t, err, "open recording")

	cfg := filepath.Join(t.TempDir(), "marchrep.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("thresholds:\n  smoothing_factor: 2\n"), 0o644))
	_, err = execute(t, "", "replay", "--config", cfg, "-")
	assert.ErrorContains(t, err, "validate config")
}

func TestDashboardURL(t *testing.T) {
	assert.Equal(t, "http://localhost:8080", dashboardURL(":8080"))
	assert.Equal(t, "http://127.0.0.1:9000", dashboardURL("127.0.0.1:9000"))
	assert.Equal(t, "http://localhost:8080", dashboardURL("0.0.0.0:8080"))
}
