package app

import (
	"errors"
	"fmt"
	"time"

	"github.com/ayusman/drivewatch/internal/alert"
	"github.com/ayusman/drivewatch/internal/capture"
	"github.com/ayusman/drivewatch/internal/detector"
	"go.uber.org/zap"
	"gocv.io/x/gocv"
)

// runPipeline is the frame loop. Each pass reads one frame, runs face and eye
// detection on it and feeds the closed-eye counter. A failed read waits
// ReadBackoff before retrying; a processed frame waits FrameInterval. A closed
// camera is reopened on every pass until it comes up.
func (a *App) runPipeline(stopCh <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	for {
		wait := a.config.FrameInterval

		frame, err := a.camera.ReadFrame()
		switch {
		case errors.Is(err, capture.ErrCameraNotOpen):
			a.misses.Add(1)
			wait = a.config.ReadBackoff
			if err := a.camera.Open(); err != nil {
				a.logger.Debug("camera reopen failed", zap.Error(err))
			} else {
				a.logger.Info("camera opened")
			}
		case err != nil:
			a.misses.Add(1)
			a.logger.Debug("frame read failed", zap.Error(err))
			wait = a.config.ReadBackoff
		default:
			a.processFrame(frame)
			frame.Close()
		}

		select {
		case <-stopCh:
			return
		case <-time.After(wait):
		}
	}
}

// processFrame resizes one frame, detects faces and eyes and acts on the
// result.
func (a *App) processFrame(frame *gocv.Mat) {
	small, err := capture.Resize(frame, a.config.FrameWidth)
	if err != nil {
		a.logger.Warn("resize failed", zap.Error(err))
		return
	}
	defer small.Close()

	result, err := a.detector.Detect(&small)
	if err != nil {
		a.logger.Warn("detection failed", zap.Error(err))
		return
	}

	a.observeFrame(result, func() ([]byte, error) {
		return capture.EncodeJPEG(&small)
	})
}

// observeFrame feeds one detection result to the closed-eye counter and
// raises a drowsy alert when it trips. encode is only called on a trip.
func (a *App) observeFrame(result detector.Result, encode func() ([]byte, error)) {
	a.frames.Add(1)

	if !a.counter.Observe(result.FacePresent(), result.EyesOpen) {
		return
	}

	now := a.config.Now()
	a.logger.Info("drowsiness detected", zap.Int("faces", len(result.Faces)))

	jpeg, err := encode()
	if err != nil {
		a.logger.Warn("failed to encode evidence frame", zap.Error(err))
		jpeg = nil
	}

	if jpeg != nil && a.evidence != nil {
		path, err := a.evidence.Save(string(alert.CategoryDrowsy), jpeg, now)
		if err != nil {
			a.logger.Warn("failed to save evidence frame", zap.Error(err))
		} else {
			a.lastCapture.Store(path)
		}
	}

	outcome := a.notifier.Notify(alert.CategoryDrowsy, DrowsyMessage(now), jpeg)
	a.logger.Debug("drowsy alert", zap.Stringer("outcome", outcome))
}

// DrowsyMessage is the text of a drowsiness alert raised at t.
func DrowsyMessage(t time.Time) string {
	return fmt.Sprintf("🚨 Driver Drowsiness Detected\nEyes CLOSED\nTime: %s", t.Format(TimeLayout))
}
