// Package drowsiness turns per-frame eye detections into drowsiness alerts.
package drowsiness

import "sync"

// DefaultThreshold is the number of consecutive closed-eye frames that
// triggers an alert.
const DefaultThreshold = 3

// Counter counts consecutive frames where a face is visible but its eyes are
// not. It is safe for concurrent use.
type Counter struct {
	threshold int

	mu    sync.Mutex
	count int
}

// NewCounter creates a Counter. Thresholds below one use DefaultThreshold.
func NewCounter(threshold int) *Counter {
	if threshold < 1 {
		threshold = DefaultThreshold
	}
	return &Counter{threshold: threshold}
}

// Observe records one frame and reports whether it completes a run of
// closed-eye frames. The count restarts after every trigger, so eyes that stay
// closed trigger again every threshold frames. eyesDetected is ignored when
// no face is present.
func (c *Counter) Observe(facePresent, eyesDetected bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !facePresent || eyesDetected {
		c.count = 0
		return false
	}

	c.count++
	if c.count >= c.threshold {
		c.count = 0
		return true
	}
	return false
}

// Count returns the current run length.
func (c *Counter) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count
}

// Threshold returns the configured run length that triggers an alert.
func (c *Counter) Threshold() int {
	return c.threshold
}

// Reset clears the run.
func (c *Counter) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.count = 0
}
