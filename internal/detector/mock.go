package detector

import (
	"image"
	"sync"

	"gocv.io/x/gocv"
)

// MockDetector is a test implementation of the Detector interface.
// It plays back a script of results, then repeats the fallback result.
type MockDetector struct {
	mu       sync.Mutex
	script   []Result
	fallback Result
	err      error
	calls    int
}

// NewMockDetector creates a new MockDetector instance that sees nothing.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetResults replaces the script.
func (m *MockDetector) SetResults(results ...Result) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script = append([]Result(nil), results...)
}

// SetFallback sets the result returned once the script is used up.
func (m *MockDetector) SetFallback(r Result) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fallback = r
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Detect returns the next scripted result or the configured error.
func (m *MockDetector) Detect(frame *gocv.Mat) (Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	if m.err != nil {
		return Result{}, m.err
	}
	if len(m.script) == 0 {
		return m.fallback, nil
	}
	r := m.script[0]
	m.script = m.script[1:]
	return r, nil
}

// Calls returns how many times Detect was called.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}

// FaceWithEyesClosed returns a result with one face and no open eyes.
func FaceWithEyesClosed() Result {
	return Result{Faces: []image.Rectangle{image.Rect(120, 60, 280, 220)}}
}

// FaceWithEyesOpen returns a result with one face whose eyes are open.
func FaceWithEyesOpen() Result {
	return Result{Faces: []image.Rectangle{image.Rect(120, 60, 280, 220)}, EyesOpen: true}
}

// NoFace returns an empty result.
func NoFace() Result {
	return Result{}
}
