// Package config loads the drivewatch configuration from defaults, an optional
// TOML or YAML file, a .env file and the process environment.
package config

import (
	"errors"
	"fmt"
	"time"
)

// Config holds the complete process configuration. It is fixed at startup.
type Config struct {
	Alert      AlertConfig      `toml:"alert" yaml:"alert"`
	Telegram   TelegramConfig   `toml:"telegram" yaml:"telegram"`
	Gesture    GestureConfig    `toml:"gesture" yaml:"gesture"`
	Motion     MotionConfig     `toml:"motion" yaml:"motion"`
	Camera     CameraConfig     `toml:"camera" yaml:"camera"`
	Drowsiness DrowsinessConfig `toml:"drowsiness" yaml:"drowsiness"`
	Detector   DetectorConfig   `toml:"detector" yaml:"detector"`
	Evidence   EvidenceConfig   `toml:"evidence" yaml:"evidence"`
	Store      StoreConfig      `toml:"store" yaml:"store"`
	Server     ServerConfig     `toml:"server" yaml:"server"`
	MQTT       MQTTConfig       `toml:"mqtt" yaml:"mqtt"`
	Log        LogConfig        `toml:"log" yaml:"log"`
}

// AlertConfig controls the notifier.
type AlertConfig struct {
	// CooldownSeconds is the minimum gap between two alerts of the same category.
	CooldownSeconds float64 `toml:"cooldown_seconds" yaml:"cooldown_seconds"`
	// DispatchTimeoutSeconds bounds a single outbound send.
	DispatchTimeoutSeconds float64 `toml:"dispatch_timeout_seconds" yaml:"dispatch_timeout_seconds"`
	// QueueSize is the number of pending dispatches held before new ones are dropped.
	QueueSize int `toml:"queue_size" yaml:"queue_size"`
}

// TelegramConfig holds the bot credentials and endpoint.
type TelegramConfig struct {
	BaseURL  string `toml:"base_url" yaml:"base_url"`
	BotToken string `toml:"bot_token" yaml:"bot_token"`
	ChatID   string `toml:"chat_id" yaml:"chat_id"`
}

// GestureConfig controls shake confirmation.
type GestureConfig struct {
	ConfidenceThreshold  float64  `toml:"confidence_threshold" yaml:"confidence_threshold"`
	TimeThresholdSeconds float64  `toml:"time_threshold_seconds" yaml:"time_threshold_seconds"`
	Classes              []string `toml:"classes" yaml:"classes"`
}

// MotionConfig describes the external motion classifier process.
type MotionConfig struct {
	// Command is the classifier executable. Empty disables classification.
	Command string   `toml:"command" yaml:"command"`
	Args    []string `toml:"args" yaml:"args"`
	// MinConfidence is the lowest top-label confidence forwarded to subscribers.
	MinConfidence float64  `toml:"min_confidence" yaml:"min_confidence"`
	Labels        []string `toml:"labels" yaml:"labels"`
}

// CameraConfig controls frame acquisition.
type CameraConfig struct {
	Index           int `toml:"index" yaml:"index"`
	FrameWidth      int `toml:"frame_width" yaml:"frame_width"`
	FrameIntervalMs int `toml:"frame_interval_ms" yaml:"frame_interval_ms"`
	ReadBackoffMs   int `toml:"read_backoff_ms" yaml:"read_backoff_ms"`
}

// DrowsinessConfig controls the closed-eye counter.
type DrowsinessConfig struct {
	ClosedFramesThreshold int `toml:"closed_frames_threshold" yaml:"closed_frames_threshold"`
}

// DetectorConfig points at the Haar cascade files.
type DetectorConfig struct {
	FaceCascade string `toml:"face_cascade" yaml:"face_cascade"`
	EyeCascade  string `toml:"eye_cascade" yaml:"eye_cascade"`
}

// EvidenceConfig controls where captured frames go and how many are kept.
type EvidenceConfig struct {
	Dir       string `toml:"dir" yaml:"dir"`
	MaxImages int    `toml:"max_images" yaml:"max_images"`
}

// StoreConfig locates the alert journal. An empty path disables it.
type StoreConfig struct {
	Path string `toml:"path" yaml:"path"`
	// RetentionDays drops journal rows older than this many days. Zero keeps them all.
	RetentionDays int `toml:"retention_days" yaml:"retention_days"`
}

// ServerConfig controls the ops HTTP server. An empty address disables it.
type ServerConfig struct {
	Addr string `toml:"addr" yaml:"addr"`
}

// MQTTConfig controls the MQTT sensor bridge. An empty broker disables it.
type MQTTConfig struct {
	Broker      string `toml:"broker" yaml:"broker"`
	ClientID    string `toml:"client_id" yaml:"client_id"`
	Username    string `toml:"username" yaml:"username"`
	Password    string `toml:"password" yaml:"password"`
	TopicPrefix string `toml:"topic_prefix" yaml:"topic_prefix"`
	QoS         byte   `toml:"qos" yaml:"qos"`
}

// LogConfig controls the zap logger.
type LogConfig struct {
	Level  string `toml:"level" yaml:"level"`
	Format string `toml:"format" yaml:"format"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		Alert: AlertConfig{
			CooldownSeconds:        10,
			DispatchTimeoutSeconds: 10,
			QueueSize:              16,
		},
		Telegram: TelegramConfig{
			BaseURL: "https://api.telegram.org",
		},
		Gesture: GestureConfig{
			ConfidenceThreshold:  0.6,
			TimeThresholdSeconds: 2.5,
			Classes:              []string{"snake", "updown", "wave"},
		},
		Motion: MotionConfig{
			MinConfidence: 0.4,
			Labels:        []string{"idle", "snake", "updown", "wave"},
		},
		Camera: CameraConfig{
			Index:           0,
			FrameWidth:      400,
			FrameIntervalMs: 20,
			ReadBackoffMs:   50,
		},
		Drowsiness: DrowsinessConfig{
			ClosedFramesThreshold: 3,
		},
		Detector: DetectorConfig{
			FaceCascade: "haarcascade_frontalface_default.xml",
			EyeCascade:  "haarcascade_eye_tree_eyeglasses.xml",
		},
		Evidence: EvidenceConfig{
			Dir:       "captures",
			MaxImages: 20,
		},
		Store: StoreConfig{
			Path:          "drivewatch.db",
			RetentionDays: 30,
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
		MQTT: MQTTConfig{
			ClientID:    "drivewatch",
			TopicPrefix: "drivewatch/bridge",
			QoS:         1,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Validate checks the configuration for values the monitor cannot run with.
func (c *Config) Validate() error {
	var errs []error

	if c.Alert.CooldownSeconds <= 0 {
		errs = append(errs, errors.New("alert.cooldown_seconds must be positive"))
	}
	if c.Alert.DispatchTimeoutSeconds <= 0 {
		errs = append(errs, errors.New("alert.dispatch_timeout_seconds must be positive"))
	}
	if c.Alert.QueueSize <= 0 {
		errs = append(errs, errors.New("alert.queue_size must be positive"))
	}
	if c.Telegram.BaseURL == "" {
		errs = append(errs, errors.New("telegram.base_url is required"))
	}
	if c.Gesture.ConfidenceThreshold <= 0 || c.Gesture.ConfidenceThreshold > 1 {
		errs = append(errs, fmt.Errorf("gesture.confidence_threshold %v out of range (0,1]", c.Gesture.ConfidenceThreshold))
	}
	if c.Gesture.TimeThresholdSeconds <= 0 {
		errs = append(errs, errors.New("gesture.time_threshold_seconds must be positive"))
	}
	if len(c.Gesture.Classes) == 0 {
		errs = append(errs, errors.New("gesture.classes cannot be empty"))
	}
	if c.Motion.MinConfidence < 0 || c.Motion.MinConfidence > 1 {
		errs = append(errs, fmt.Errorf("motion.min_confidence %v out of range [0,1]", c.Motion.MinConfidence))
	}
	if c.Camera.FrameWidth <= 0 {
		errs = append(errs, errors.New("camera.frame_width must be positive"))
	}
	if c.Camera.FrameIntervalMs < 0 || c.Camera.ReadBackoffMs < 0 {
		errs = append(errs, errors.New("camera intervals cannot be negative"))
	}
	if c.Drowsiness.ClosedFramesThreshold <= 0 {
		errs = append(errs, errors.New("drowsiness.closed_frames_threshold must be positive"))
	}
	if c.Evidence.Dir == "" {
		errs = append(errs, errors.New("evidence.dir is required"))
	}
	if c.Evidence.MaxImages <= 0 {
		errs = append(errs, errors.New("evidence.max_images must be positive"))
	}
	if c.Store.RetentionDays < 0 {
		errs = append(errs, errors.New("store.retention_days cannot be negative"))
	}
	if c.MQTT.QoS > 2 {
		errs = append(errs, fmt.Errorf("mqtt.qos %d must be 0, 1 or 2", c.MQTT.QoS))
	}

	return errors.Join(errs...)
}

// Cooldown returns the alert cooldown window.
func (c *Config) Cooldown() time.Duration {
	return seconds(c.Alert.CooldownSeconds)
}

// DispatchTimeout returns the bound on a single outbound send.
func (c *Config) DispatchTimeout() time.Duration {
	return seconds(c.Alert.DispatchTimeoutSeconds)
}

// ShakeDuration returns how long shake confidence must stay high before confirming.
func (c *Config) ShakeDuration() time.Duration {
	return seconds(c.Gesture.TimeThresholdSeconds)
}

// FrameInterval returns the pause between processed frames.
func (c *Config) FrameInterval() time.Duration {
	return time.Duration(c.Camera.FrameIntervalMs) * time.Millisecond
}

// ReadBackoff returns the pause after a failed camera read.
func (c *Config) ReadBackoff() time.Duration {
	return time.Duration(c.Camera.ReadBackoffMs) * time.Millisecond
}

// Retention returns how long journal rows are kept.
func (c *Config) Retention() time.Duration {
	return time.Duration(c.Store.RetentionDays) * 24 * time.Hour
}

// TelegramEnabled reports whether bot credentials are present.
func (c *Config) TelegramEnabled() bool {
	return c.Telegram.BotToken != "" && c.Telegram.ChatID != ""
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
