package app

import (
	"fmt"

	"github.com/ayusman/drivewatch/internal/alert"
	"github.com/ayusman/drivewatch/internal/gesture"
	"github.com/ayusman/drivewatch/internal/motion"
	"go.uber.org/zap"
)

// Gravity converts accelerations in g to m/s².
const Gravity = 9.81

// RecordSensorMovement takes one accelerometer sample in g and hands it to
// the classifier in m/s². Classifier errors are logged, never returned.
func (a *App) RecordSensorMovement(x, y, z float64) {
	a.samples.Add(1)

	s := motion.Sample{X: x * Gravity, Y: y * Gravity, Z: z * Gravity}
	if err := a.classifier.Accumulate(s); err != nil {
		a.logger.Warn("failed to accumulate sensor sample", zap.Error(err))
	}
}

// onMovement receives classifier output for every subscribed label.
func (a *App) onMovement(c motion.Classification) {
	ev, ok := a.confirmer.Observe(c)
	if !ok {
		return
	}

	a.logger.Info("vehicle shake confirmed",
		zap.Float64("confidence", ev.Confidence),
		zap.Duration("duration", ev.Duration),
	)

	outcome := a.notifier.Notify(alert.CategoryShake, ShakeMessage(ev), nil)
	a.logger.Debug("shake alert", zap.Stringer("outcome", outcome))
}

// ShakeMessage is the text of a shake alert for ev.
func ShakeMessage(ev gesture.Event) string {
	return fmt.Sprintf("🚗 Vehicle Shake Detected\nConfidence: %.2f\nDuration: %.1f sec\nTime: %s",
		ev.Confidence, ev.Duration.Seconds(), ev.At.Format(TimeLayout))
}

// GestureState returns the shake confirmation state.
func (a *App) GestureState() gesture.State {
	return a.confirmer.State()
}

// ClosedEyeFrames returns the current closed-eye run length.
func (a *App) ClosedEyeFrames() int {
	return a.counter.Count()
}
