// Package replay runs recorded pose frames through a Processor offline.
//
// A recording is a JSON lines stream; each line is one pose.Result:
//
//	{"world_landmarks": [[{"x": 0.1, "y": 0.5, "z": 0}, ...]], "timestamp": "2026-01-02T15:04:05Z"}
package replay

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/ayusman/marchrep/internal/exercise"
	"github.com/ayusman/marchrep/internal/pose"
)

// maxLineSize bounds a single recorded frame.
const maxLineSize = 1 << 20

// Summary describes a finished replay.
type Summary struct {
	// Frames is the number of non-blank lines read.
	Frames int
	// Rejected counts frames the processor refused plus malformed lines.
	Rejected int
	// Malformed counts lines that were not valid JSON.
	Malformed int
	Reps      int
	Progress  float64
	Posture   exercise.Posture
	// Span is the time between the first and last timestamped frame.
	Span time.Duration
}

// Accepted returns the number of frames that advanced the processor.
func (s Summary) Accepted() int {
	return s.Frames - s.Rejected
}

// Run feeds every line of r to p in order. Only read errors abort the run;
// bad frames are counted and skipped.
func Run(r io.Reader, p *exercise.Processor) (Summary, error) {
	var (
		sum         Summary
		first, last time.Time
	)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		sum.Frames++

		var result pose.Result
		if err := json.Unmarshal(line, &result); err != nil {
			sum.Malformed++
			sum.Rejected++
			continue
		}

		if !result.Timestamp.IsZero() {
			if first.IsZero() {
				first = result.Timestamp
			}
			last = result.Timestamp
		}

		step, err := p.Process(&result)
		if err != nil {
			sum.Rejected++
			continue
		}
		if step.Transition.Rep {
			sum.Reps++
		}
	}

	sum.Progress = p.Progress()
	sum.Posture = p.Posture()
	if !first.IsZero() {
		sum.Span = last.Sub(first)
	}

	if err := scanner.Err(); err != nil {
		return sum, fmt.Errorf("read recording: %w", err)
	}
	return sum, nil
}

// Recorder writes pose results as JSON lines. It is safe for concurrent use.
type Recorder struct {
	mu  sync.Mutex
	enc *json.Encoder
}

// NewRecorder creates a Recorder writing to w.
func NewRecorder(w io.Writer) *Recorder {
	return &Recorder{enc: json.NewEncoder(w)}
}

// Record appends one result. Nil results are written as empty frames so the
// replay sees the same missing-data gaps the live session did.
func (r *Recorder) Record(result *pose.Result) error {
	if result == nil {
		result = &pose.Result{}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.enc.Encode(result)
}
