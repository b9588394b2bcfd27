package detector

import (
	"errors"
	"image"
	"testing"

	"gocv.io/x/gocv"
)

func TestUpperHalf(t *testing.T) {
	tests := []struct {
		name string
		face image.Rectangle
		want image.Rectangle
	}{
		{
			name: "even height",
			face: image.Rect(10, 20, 110, 120),
			want: image.Rect(10, 20, 110, 70),
		},
		{
			name: "odd height rounds down",
			face: image.Rect(0, 0, 40, 41),
			want: image.Rect(0, 0, 40, 20),
		},
		{
			name: "empty box",
			face: image.Rectangle{},
			want: image.Rectangle{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := UpperHalf(tt.face); got != tt.want {
				t.Errorf("UpperHalf(%v) = %v, want %v", tt.face, got, tt.want)
			}
		})
	}
}

func TestResult_FacePresent(t *testing.T) {
	if NoFace().FacePresent() {
		t.Error("empty result should have no face")
	}
	if !FaceWithEyesClosed().FacePresent() {
		t.Error("expected a face")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.FaceScaleFactor != 1.3 || cfg.FaceMinNeighbors != 5 {
		t.Errorf("face params = %v/%d, want 1.3/5", cfg.FaceScaleFactor, cfg.FaceMinNeighbors)
	}
	if cfg.EyeScaleFactor != 1.05 || cfg.EyeMinNeighbors != 6 {
		t.Errorf("eye params = %v/%d, want 1.05/6", cfg.EyeScaleFactor, cfg.EyeMinNeighbors)
	}
	if cfg.EyeMinSize != image.Pt(30, 30) {
		t.Errorf("EyeMinSize = %v, want 30x30", cfg.EyeMinSize)
	}
}

func TestMockDetector(t *testing.T) {
	t.Run("sees nothing by default", func(t *testing.T) {
		mock := NewMockDetector()

		got, err := mock.Detect(nil)
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if got.FacePresent() {
			t.Errorf("expected no face, got %v", got)
		}
	})

	t.Run("plays script then fallback", func(t *testing.T) {
		mock := NewMockDetector()
		mock.SetResults(FaceWithEyesClosed(), FaceWithEyesOpen())
		mock.SetFallback(FaceWithEyesClosed())

		want := []bool{false, true, false, false}
		for i, w := range want {
			got, err := mock.Detect(nil)
			if err != nil {
				t.Fatalf("call %d: unexpected error: %v", i, err)
			}
			if got.EyesOpen != w {
				t.Errorf("call %d: EyesOpen = %v, want %v", i, got.EyesOpen, w)
			}
		}
		if mock.Calls() != len(want) {
			t.Errorf("Calls() = %d, want %d", mock.Calls(), len(want))
		}
	})

	t.Run("returns configured error", func(t *testing.T) {
		mock := NewMockDetector()

		expectedErr := errors.New("detection failed")
		mock.SetError(expectedErr)

		_, err := mock.Detect(nil)
		if err != expectedErr {
			t.Errorf("expected error %v, got %v", expectedErr, err)
		}
	})

	t.Run("implements Detector interface", func(t *testing.T) {
		var _ Detector = (*MockDetector)(nil)
		var _ Detector = (*CascadeDetector)(nil)
	})
}

func TestNewCascadeDetector_MissingFiles(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping OpenCV test in short mode")
	}

	cfg := DefaultConfig()
	cfg.FaceCascade = "/nonexistent/face.xml"

	if _, err := NewCascadeDetector(cfg); err == nil {
		t.Error("expected error for missing face cascade")
	}
}

func TestCascadeDetector_BlankFrame(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping OpenCV test in short mode")
	}

	d, err := NewCascadeDetector(DefaultConfig())
	if err != nil {
		t.Skipf("skipping test - cascades not available: %v", err)
	}
	defer d.Close()

	frame := gocv.NewMatWithSize(300, 400, gocv.MatTypeCV8UC3)
	defer frame.Close()

	got, err := d.Detect(&frame)
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	if got.FacePresent() || got.EyesOpen {
		t.Errorf("blank frame produced %+v", got)
	}

	empty := gocv.NewMat()
	defer empty.Close()
	if _, err := d.Detect(&empty); err == nil {
		t.Error("expected error for empty frame")
	}
}
