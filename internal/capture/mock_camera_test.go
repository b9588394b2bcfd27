package capture

import (
	"errors"
	"testing"

	"gocv.io/x/gocv"
)

func TestMockCamera_Playback(t *testing.T) {
	frame1 := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer frame1.Close()
	frame2 := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer frame2.Close()

	cam := NewMockCamera([]*gocv.Mat{&frame1, &frame2}, false)

	if _, err := cam.ReadFrame(); !errors.Is(err, ErrCameraNotOpen) {
		t.Errorf("ReadFrame() before Open error = %v, want ErrCameraNotOpen", err)
	}

	if err := cam.Open(); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer cam.Close()

	for i := 0; i < 2; i++ {
		f, err := cam.ReadFrame()
		if err != nil {
			t.Fatalf("ReadFrame() %d error = %v", i, err)
		}
		f.Close()
	}

	// Third read should fail (no loop)
	if _, err := cam.ReadFrame(); !errors.Is(err, ErrFrameMiss) {
		t.Errorf("expected ErrFrameMiss after all frames consumed, got %v", err)
	}
}

func TestMockCamera_Loop(t *testing.T) {
	frame := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer frame.Close()

	cam := NewMockCamera([]*gocv.Mat{&frame}, true)
	cam.Open()
	defer cam.Close()

	for i := 0; i < 5; i++ {
		f, err := cam.ReadFrame()
		if err != nil {
			t.Fatalf("ReadFrame() iteration %d error = %v", i, err)
		}
		f.Close()
	}

	if got := cam.Reads(); got != 5 {
		t.Errorf("Reads() = %d, want 5", got)
	}
}

func TestMockCamera_FailNext(t *testing.T) {
	frame := gocv.NewMatWithSize(30, 40, gocv.MatTypeCV8UC3)
	defer frame.Close()

	cam := NewMockCamera([]*gocv.Mat{&frame}, true)
	cam.Open()
	defer cam.Close()

	cam.FailNext(2)
	for i := 0; i < 2; i++ {
		if _, err := cam.ReadFrame(); !errors.Is(err, ErrFrameMiss) {
			t.Errorf("read %d: error = %v, want ErrFrameMiss", i, err)
		}
	}

	f, err := cam.ReadFrame()
	if err != nil {
		t.Fatalf("ReadFrame() after misses error = %v", err)
	}
	f.Close()
}

func TestMockCamera_FailOpen(t *testing.T) {
	cam := NewMockCamera(nil, false)
	cam.FailOpen(2)

	for i := 0; i < 2; i++ {
		if err := cam.Open(); !errors.Is(err, ErrMockOpen) {
			t.Errorf("Open() %d error = %v, want ErrMockOpen", i, err)
		}
		if cam.IsOpen() {
			t.Errorf("camera should stay closed after failed Open() %d", i)
		}
	}

	if err := cam.Open(); err != nil {
		t.Fatalf("Open() after failures error = %v", err)
	}
	defer cam.Close()

	if got := cam.Opens(); got != 3 {
		t.Errorf("Opens() = %d, want 3", got)
	}
}

func TestMockCamera_SetFrames(t *testing.T) {
	small := gocv.NewMatWithSize(30, 40, gocv.MatTypeCV8UC3)
	defer small.Close()
	large := gocv.NewMatWithSize(60, 80, gocv.MatTypeCV8UC3)
	defer large.Close()

	cam := NewMockCamera([]*gocv.Mat{&small}, false)
	cam.Open()
	defer cam.Close()

	f, err := cam.ReadFrame()
	if err != nil {
		t.Fatalf("ReadFrame() error = %v", err)
	}
	f.Close()

	cam.SetFrames([]*gocv.Mat{&large})

	f, err = cam.ReadFrame()
	if err != nil {
		t.Fatalf("ReadFrame() after SetFrames error = %v", err)
	}
	defer f.Close()

	if f.Cols() != 80 || f.Rows() != 60 {
		t.Errorf("frame = %dx%d, want 80x60", f.Cols(), f.Rows())
	}
}
