// Package motion connects accelerometer samples to an external movement
// classifier and fans its classifications out to subscribers.
package motion

import (
	"errors"
	"sort"
	"sync"
)

// DefaultMinConfidence is the confidence a top label needs before its
// subscribers are told about it.
const DefaultMinConfidence = 0.4

// Labels the classifier is expected to produce.
const (
	LabelIdle   = "idle"
	LabelSnake  = "snake"
	LabelUpDown = "updown"
	LabelWave   = "wave"
)

// DefaultLabels lists every label subscribed to by default.
var DefaultLabels = []string{LabelIdle, LabelSnake, LabelUpDown, LabelWave}

// ErrClosed is returned when a sample is sent to a closed classifier.
var ErrClosed = errors.New("classifier closed")

// Classification maps movement labels to confidences in [0, 1].
type Classification map[string]float64

// Top returns the label with the highest confidence. Ties go to the
// alphabetically first label. ok is false for an empty classification.
func (c Classification) Top() (label string, confidence float64, ok bool) {
	labels := make([]string, 0, len(c))
	for l := range c {
		labels = append(labels, l)
	}
	sort.Strings(labels)

	for _, l := range labels {
		if !ok || c[l] > confidence {
			label, confidence, ok = l, c[l], true
		}
	}
	return label, confidence, ok
}

// Sample is one accelerometer reading in m/s².
type Sample struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Handler receives classifications for a subscribed label.
type Handler func(Classification)

// Classifier accepts samples and reports classified movements.
type Classifier interface {
	// Accumulate hands one sample to the classifier.
	Accumulate(s Sample) error

	// OnMovement subscribes h to classifications whose top label is label.
	OnMovement(label string, h Handler)

	// Close releases the classifier.
	Close() error
}

// dispatcher routes classifications to subscribed handlers.
type dispatcher struct {
	minConfidence float64

	mu       sync.RWMutex
	handlers map[string][]Handler
}

func newDispatcher(minConfidence float64) *dispatcher {
	if minConfidence <= 0 {
		minConfidence = DefaultMinConfidence
	}
	return &dispatcher{
		minConfidence: minConfidence,
		handlers:      make(map[string][]Handler),
	}
}

func (d *dispatcher) subscribe(label string, h Handler) {
	if h == nil {
		return
	}
	d.mu.Lock()
	d.handlers[label] = append(d.handlers[label], h)
	d.mu.Unlock()
}

// dispatch calls the handlers of c's top label and reports how many ran.
func (d *dispatcher) dispatch(c Classification) int {
	label, confidence, ok := c.Top()
	if !ok || confidence < d.minConfidence {
		return 0
	}

	d.mu.RLock()
	handlers := append([]Handler(nil), d.handlers[label]...)
	d.mu.RUnlock()

	for _, h := range handlers {
		h(c)
	}
	return len(handlers)
}
