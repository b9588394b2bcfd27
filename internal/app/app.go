// Package app wires the camera, detectors, classifier and notifier into the
// drivewatch monitor.
package app

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ayusman/drivewatch/internal/alert"
	"github.com/ayusman/drivewatch/internal/bridge"
	"github.com/ayusman/drivewatch/internal/capture"
	"github.com/ayusman/drivewatch/internal/detector"
	"github.com/ayusman/drivewatch/internal/drowsiness"
	"github.com/ayusman/drivewatch/internal/evidence"
	"github.com/ayusman/drivewatch/internal/gesture"
	"github.com/ayusman/drivewatch/internal/motion"
	"go.uber.org/zap"
)

// Pipeline timing defaults.
const (
	DefaultFrameWidth    = 400
	DefaultFrameInterval = 20 * time.Millisecond
	DefaultReadBackoff   = 50 * time.Millisecond
)

// TimeLayout formats timestamps in alert messages.
const TimeLayout = "2006-01-02 15:04:05"

// Notifier is the part of alert.Notifier the app depends on.
type Notifier interface {
	Notify(category alert.Category, message string, image []byte) alert.Outcome
	Remaining(category alert.Category) time.Duration
	Close()
}

// Config holds configuration options for the application.
type Config struct {
	FrameWidth    int
	FrameInterval time.Duration
	ReadBackoff   time.Duration

	// ClosedFrames is the closed-eye run length that raises a drowsy alert.
	ClosedFrames int
	// Gesture configures shake confirmation.
	Gesture gesture.Config
	// Labels are the classifier labels the app subscribes to.
	Labels []string

	// Now is the clock used for messages and evidence names.
	Now func() time.Time
}

// Deps are the collaborators the app drives. Camera and Detector may be nil
// when only the sensor path runs.
type Deps struct {
	Camera     capture.Camera
	Detector   detector.Detector
	Classifier motion.Classifier
	Notifier   Notifier
	Evidence   *evidence.Store
	Logger     *zap.Logger
}

// App is the main application that runs the drowsiness and shake paths.
type App struct {
	config     Config
	camera     capture.Camera
	detector   detector.Detector
	classifier motion.Classifier
	notifier   Notifier
	evidence   *evidence.Store
	counter    *drowsiness.Counter
	confirmer  *gesture.Confirmer
	logger     *zap.Logger

	mu     sync.Mutex
	stopCh chan struct{}
	done   chan struct{}

	frames      atomic.Uint64
	misses      atomic.Uint64
	samples     atomic.Uint64
	lastCapture atomic.Value // string
}

// New creates a new App and subscribes it to the classifier.
func New(config Config, deps Deps) (*App, error) {
	if deps.Notifier == nil {
		return nil, errors.New("notifier is required")
	}
	if deps.Classifier == nil {
		return nil, errors.New("classifier is required")
	}
	if deps.Camera != nil && deps.Detector == nil {
		return nil, errors.New("detector is required with a camera")
	}

	if config.FrameWidth <= 0 {
		config.FrameWidth = DefaultFrameWidth
	}
	if config.FrameInterval <= 0 {
		config.FrameInterval = DefaultFrameInterval
	}
	if config.ReadBackoff <= 0 {
		config.ReadBackoff = DefaultReadBackoff
	}
	if len(config.Labels) == 0 {
		config.Labels = motion.DefaultLabels
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	if config.Gesture.Now == nil {
		config.Gesture.Now = config.Now
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	a := &App{
		config:     config,
		camera:     deps.Camera,
		detector:   deps.Detector,
		classifier: deps.Classifier,
		notifier:   deps.Notifier,
		evidence:   deps.Evidence,
		counter:    drowsiness.NewCounter(config.ClosedFrames),
		confirmer:  gesture.NewConfirmer(config.Gesture),
		logger:     logger.Named("app"),
	}
	a.lastCapture.Store("")

	for _, label := range config.Labels {
		a.classifier.OnMovement(label, a.onMovement)
	}

	return a, nil
}

// ProvideBridge registers the app's entry points on r.
func (a *App) ProvideBridge(r *bridge.Registry) {
	r.ProvideSensor(bridge.MethodRecordSensorMovement, a.RecordSensorMovement)
}

// Start opens the camera and begins the frame loop. A camera that cannot be
// opened yet is retried by the loop, so the sensor path never depends on it.
// Without a camera only the sensor path is active.
func (a *App) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	// Don't start if already running
	if a.stopCh != nil {
		return nil
	}

	if a.camera != nil {
		if err := a.camera.Open(); err != nil {
			a.logger.Warn("camera unavailable, retrying", zap.Error(err))
		}

		a.stopCh = make(chan struct{})
		a.done = make(chan struct{})
		go a.runPipeline(a.stopCh, a.done)
	}

	a.logger.Info("system running",
		zap.Bool("camera", a.camera != nil),
		zap.Strings("labels", a.config.Labels),
	)
	return nil
}

// Stop halts the frame loop, releases the devices and drains queued alerts.
func (a *App) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.stopCh != nil {
		close(a.stopCh)
		<-a.done
		a.stopCh = nil
		a.done = nil
	}

	if a.camera != nil {
		if err := a.camera.Close(); err != nil {
			a.logger.Warn("error closing camera", zap.Error(err))
		}
	}

	if a.detector != nil {
		if err := a.detector.Close(); err != nil {
			a.logger.Warn("error closing detector", zap.Error(err))
		}
	}

	if err := a.classifier.Close(); err != nil {
		a.logger.Warn("error closing classifier", zap.Error(err))
	}

	a.notifier.Close()

	a.logger.Info("system stopped")
}

// Running reports whether the frame loop is active.
func (a *App) Running() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stopCh != nil
}

// Snapshot is a point-in-time view of the monitor state.
type Snapshot struct {
	Running            bool               `json:"running"`
	ClosedEyeFrames    int                `json:"closed_eye_frames"`
	ClosedEyeThreshold int                `json:"closed_eye_threshold"`
	Gesture            string             `json:"gesture"`
	CooldownRemaining  map[string]float64 `json:"cooldown_remaining_seconds"`
	FramesProcessed    uint64             `json:"frames_processed"`
	FrameMisses        uint64             `json:"frame_misses"`
	SensorSamples      uint64             `json:"sensor_samples"`
	LastCapture        string             `json:"last_capture,omitempty"`
}

// Snapshot returns the current monitor state.
func (a *App) Snapshot() Snapshot {
	cooldowns := make(map[string]float64, len(alert.Categories))
	for _, c := range alert.Categories {
		cooldowns[string(c)] = a.notifier.Remaining(c).Seconds()
	}

	return Snapshot{
		Running:            a.Running(),
		ClosedEyeFrames:    a.counter.Count(),
		ClosedEyeThreshold: a.counter.Threshold(),
		Gesture:            a.confirmer.State().String(),
		CooldownRemaining:  cooldowns,
		FramesProcessed:    a.frames.Load(),
		FrameMisses:        a.misses.Load(),
		SensorSamples:      a.samples.Load(),
		LastCapture:        a.lastCapture.Load().(string),
	}
}
