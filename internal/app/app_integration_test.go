package app

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/ayusman/drivewatch/internal/alert"
	"github.com/ayusman/drivewatch/internal/capture"
	"github.com/ayusman/drivewatch/internal/detector"
	"github.com/ayusman/drivewatch/internal/evidence"
	"github.com/ayusman/drivewatch/internal/motion"
	"go.uber.org/zap"
	"gocv.io/x/gocv"
)

func TestApp_DetectionPipeline_Drowsy(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	frame := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer frame.Close()

	cam := capture.NewMockCamera([]*gocv.Mat{&frame}, true)
	cam.FailNext(2)

	det := detector.NewMockDetector()
	det.SetFallback(detector.FaceWithEyesClosed())

	sender := &recordingSender{}
	notifier := alert.NewNotifier(sender, alert.Config{}, zap.NewNop())

	ev, err := evidence.NewStore(filepath.Join(t.TempDir(), "captures"), 20, zap.NewNop())
	if err != nil {
		t.Fatalf("evidence.NewStore() error = %v", err)
	}

	app, err := New(Config{
		FrameInterval: time.Millisecond,
		ReadBackoff:   time.Millisecond,
	}, Deps{
		Camera:     cam,
		Detector:   det,
		Classifier: motion.NewMockClassifier(0),
		Notifier:   notifier,
		Evidence:   ev,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if err := app.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if !app.Running() {
		t.Fatal("app should be running after Start()")
	}

	deadline := time.Now().Add(5 * time.Second)
	for det.Calls() < 9 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	app.Stop()

	if app.Running() {
		t.Error("app should not be running after Stop()")
	}
	if cam.IsOpen() {
		t.Error("camera should be closed after Stop()")
	}

	snap := app.Snapshot()
	if snap.FrameMisses < 2 {
		t.Errorf("FrameMisses = %d, want >= 2", snap.FrameMisses)
	}

	got := sender.all()
	if len(got) != 1 {
		t.Fatalf("sent %d alerts, want 1 (cooldown covers the rest)", len(got))
	}
	if !bytes.HasPrefix(got[0].photo, []byte{0xff, 0xd8}) {
		t.Error("drowsy alert should carry a JPEG")
	}

	files, err := ev.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(files) == 0 {
		t.Error("expected an evidence image on disk")
	}
}

func TestApp_DetectionPipeline_Resizes(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	frame := gocv.NewMatWithSize(720, 1280, gocv.MatTypeCV8UC3)
	defer frame.Close()

	notifier := alert.NewNotifier(nil, alert.Config{}, zap.NewNop())
	sizes := &sizeDetector{}

	app, err := New(Config{}, Deps{
		Detector:   sizes,
		Classifier: motion.NewMockClassifier(0),
		Notifier:   notifier,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer app.Stop()

	app.processFrame(&frame)

	if sizes.cols != 400 || sizes.rows != 225 {
		t.Errorf("detector saw %dx%d, want 400x225", sizes.cols, sizes.rows)
	}
}

// sizeDetector records the size of the last frame it was given.
type sizeDetector struct {
	cols, rows int
}

func (d *sizeDetector) Detect(frame *gocv.Mat) (detector.Result, error) {
	d.cols, d.rows = frame.Cols(), frame.Rows()
	return detector.NoFace(), nil
}

func (d *sizeDetector) Close() error { return nil }
