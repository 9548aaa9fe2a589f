package ffmpeg

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"upload-ai/domain/video"
)

// ProgressTracker turns ffmpeg "-progress" key=value output into fractional
// progress. Reported ratios stay within [0,1] and never decrease.
type ProgressTracker struct {
	mu         sync.Mutex
	total      time.Duration
	onProgress video.ProgressFunc
	partial    []byte
	last       float64
	reported   bool
}

// NewProgressTracker creates a tracker for a run whose input lasts total.
// A zero total means only completion is reported.
func NewProgressTracker(total time.Duration, onProgress video.ProgressFunc) *ProgressTracker {
	return &ProgressTracker{
		total:      total,
		onProgress: onProgress,
	}
}

// Write implements io.Writer; it accepts arbitrary chunks of ffmpeg output
func (t *ProgressTracker) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.partial = append(t.partial, p...)
	for {
		idx := bytes.IndexByte(t.partial, '\n')
		if idx < 0 {
			break
		}
		line := string(t.partial[:idx])
		t.partial = t.partial[idx+1:]
		t.handleLine(strings.TrimSpace(line))
	}
	return len(p), nil
}

// Last returns the most recently reported ratio
func (t *ProgressTracker) Last() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.last
}

func (t *ProgressTracker) handleLine(line string) {
	key, value, ok := strings.Cut(line, "=")
	if !ok {
		return
	}

	switch key {
	// ffmpeg reports out_time_ms in microseconds as well
	case "out_time_us", "out_time_ms":
		if t.total <= 0 {
			return
		}
		us, err := strconv.ParseInt(value, 10, 64)
		if err != nil || us < 0 {
			return
		}
		elapsed := time.Duration(us) * time.Microsecond
		t.report(float64(elapsed) / float64(t.total))
	case "progress":
		if value == "end" {
			t.report(1)
		}
	}
}

func (t *ProgressTracker) report(ratio float64) {
	if ratio < 0 {
		ratio = 0
	}
	if ratio > 1 {
		ratio = 1
	}
	if ratio < t.last {
		ratio = t.last
	}
	if t.reported && ratio == t.last {
		return
	}

	t.last = ratio
	t.reported = true
	if t.onProgress != nil {
		t.onProgress(video.Progress{Ratio: ratio})
	}
}

// ParseDuration parses ffprobe's format=duration output (seconds)
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	seconds, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", s, err)
	}
	if seconds < 0 {
		return 0, fmt.Errorf("invalid duration %q: negative", s)
	}
	return time.Duration(seconds * float64(time.Second)), nil
}
