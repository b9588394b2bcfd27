package motion

import "sync"

// MockClassifier is a Classifier for tests. It records samples and lets the
// test emit classifications directly.
type MockClassifier struct {
	*dispatcher

	mu      sync.Mutex
	samples []Sample
	err     error
	closed  bool
}

// NewMockClassifier creates a MockClassifier that filters with minConfidence.
func NewMockClassifier(minConfidence float64) *MockClassifier {
	return &MockClassifier{dispatcher: newDispatcher(minConfidence)}
}

// SetError sets the error returned by Accumulate.
func (m *MockClassifier) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Accumulate records s.
func (m *MockClassifier) Accumulate(s Sample) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	if m.err != nil {
		return m.err
	}
	m.samples = append(m.samples, s)
	return nil
}

// OnMovement subscribes h to classifications whose top label is label.
func (m *MockClassifier) OnMovement(label string, h Handler) {
	m.subscribe(label, h)
}

// Emit dispatches c as if the classifier had produced it and returns the
// number of handlers called.
func (m *MockClassifier) Emit(c Classification) int {
	return m.dispatch(c)
}

// Samples returns a copy of the recorded samples.
func (m *MockClassifier) Samples() []Sample {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Sample(nil), m.samples...)
}

// Close marks the mock closed.
func (m *MockClassifier) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
