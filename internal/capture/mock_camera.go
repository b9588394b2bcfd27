package capture

import (
	"errors"
	"sync"

	"gocv.io/x/gocv"
)

// ErrMockOpen is returned by MockCamera.Open while FailOpen is in effect.
var ErrMockOpen = errors.New("mock camera: device not available")

// MockCamera plays back pre-recorded frames for testing
type MockCamera struct {
	frames   []*gocv.Mat
	index    int
	loop     bool
	failNext int
	failOpen int
	opens    int
	reads    int
	mu       sync.Mutex
	running  bool
}

func NewMockCamera(frames []*gocv.Mat, loop bool) *MockCamera {
	return &MockCamera{
		frames: frames,
		loop:   loop,
	}
}

func (c *MockCamera) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.opens++
	if c.failOpen > 0 {
		c.failOpen--
		return ErrMockOpen
	}
	c.running = true
	c.index = 0
	return nil
}

func (c *MockCamera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.running = false
	return nil
}

func (c *MockCamera) ReadFrame() (*gocv.Mat, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running {
		return nil, ErrCameraNotOpen
	}
	c.reads++

	if c.failNext > 0 {
		c.failNext--
		return nil, ErrFrameMiss
	}

	if len(c.frames) == 0 {
		return nil, ErrFrameMiss
	}

	if c.index >= len(c.frames) {
		if !c.loop {
			return nil, ErrFrameMiss
		}
		c.index = 0
	}

	// Clone the frame so the original isn't modified
	frame := c.frames[c.index].Clone()
	c.index++

	return &frame, nil
}

func (c *MockCamera) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// FailNext makes the next n reads miss.
func (c *MockCamera) FailNext(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failNext = n
}

// FailOpen makes the next n Open calls fail with ErrMockOpen.
func (c *MockCamera) FailOpen(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failOpen = n
}

// Opens returns the number of Open calls, failed ones included.
func (c *MockCamera) Opens() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.opens
}

// Reads returns the number of ReadFrame calls made while open.
func (c *MockCamera) Reads() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reads
}

// SetFrames replaces the frame sequence
func (c *MockCamera) SetFrames(frames []*gocv.Mat) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = frames
	c.index = 0
}
