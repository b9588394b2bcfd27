// Package gesture confirms vehicle shake gestures from motion classifier output.
package gesture

import (
	"sync"
	"time"
)

// Defaults match the tuning used on the vehicle rig.
const (
	DefaultThreshold = 0.6
	DefaultDuration  = 2500 * time.Millisecond
)

// DefaultShakeClasses are the classifier labels that count as shaking.
var DefaultShakeClasses = []string{"snake", "updown", "wave"}

// State is the confirmation state.
type State int

const (
	// StateIdle means no above-threshold run is in progress.
	StateIdle State = iota
	// StateAccumulating means confidence is high but not yet for long enough.
	StateAccumulating
	// StateConfirmed means the current run has already produced its event.
	StateConfirmed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAccumulating:
		return "accumulating"
	case StateConfirmed:
		return "confirmed"
	default:
		return "unknown"
	}
}

// Window is an above-threshold run.
type Window struct {
	Start     time.Time
	Confirmed bool
}

// Event is emitted once per run, when it first lasts long enough.
type Event struct {
	Confidence float64
	Duration   time.Duration
	At         time.Time
}

// Config holds confirmer settings. Zero values fall back to the defaults.
type Config struct {
	Threshold float64
	Duration  time.Duration
	Classes   []string
	Now       func() time.Time
}

// Confirmer turns a stream of classifications into confirmed shake events.
// It is safe for concurrent use.
type Confirmer struct {
	threshold float64
	duration  time.Duration
	classes   []string
	now       func() time.Time

	mu     sync.Mutex
	window *Window
}

// NewConfirmer creates a Confirmer in the idle state.
func NewConfirmer(cfg Config) *Confirmer {
	if cfg.Threshold <= 0 {
		cfg.Threshold = DefaultThreshold
	}
	if cfg.Duration <= 0 {
		cfg.Duration = DefaultDuration
	}
	if cfg.Classes == nil {
		cfg.Classes = DefaultShakeClasses
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	classes := make([]string, len(cfg.Classes))
	copy(classes, cfg.Classes)

	return &Confirmer{
		threshold: cfg.Threshold,
		duration:  cfg.Duration,
		classes:   classes,
		now:       cfg.Now,
	}
}

// Observe feeds one classification (label to confidence). It returns an event
// and true only on the transition into StateConfirmed. An empty classification
// leaves the state untouched.
func (c *Confirmer) Observe(classification map[string]float64) (Event, bool) {
	if len(classification) == 0 {
		return Event{}, false
	}

	confidence := c.ShakeConfidence(classification)

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()

	if confidence < c.threshold {
		c.window = nil
		return Event{}, false
	}

	if c.window == nil {
		c.window = &Window{Start: now}
		return Event{}, false
	}

	if c.window.Confirmed {
		return Event{}, false
	}

	held := now.Sub(c.window.Start)
	if held < c.duration {
		return Event{}, false
	}

	c.window.Confirmed = true
	return Event{
		Confidence: confidence,
		Duration:   held,
		At:         now,
	}, true
}

// ShakeConfidence returns the highest confidence among the shake classes.
// Missing labels count as zero.
func (c *Confirmer) ShakeConfidence(classification map[string]float64) float64 {
	best := 0.0
	for _, label := range c.classes {
		if v := classification[label]; v > best {
			best = v
		}
	}
	return best
}

// State returns the current confirmation state.
func (c *Confirmer) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch {
	case c.window == nil:
		return StateIdle
	case c.window.Confirmed:
		return StateConfirmed
	default:
		return StateAccumulating
	}
}

// Window returns a copy of the current run, or nil when idle.
func (c *Confirmer) Window() *Window {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.window == nil {
		return nil
	}
	w := *c.window
	return &w
}

// Reset returns the confirmer to idle.
func (c *Confirmer) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.window = nil
}
