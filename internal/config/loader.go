package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every drivewatch environment override.
const EnvPrefix = "DRIVEWATCH_"

// Load builds the configuration. Values are layered as defaults, then the file
// at path (if any), then environment variables. A .env file in the working
// directory is loaded into the environment first when present.
func Load(path string) (*Config, error) {
	// Missing .env is fine, the process environment is used as-is.
	_ = godotenv.Load()

	cfg := Default()

	if path != "" {
		if err := loadFile(path, cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// loadFile decodes a TOML or YAML file over cfg, chosen by extension.
func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if err := toml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("parse toml %s: %w", path, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("parse yaml %s: %w", path, err)
		}
	default:
		return fmt.Errorf("unsupported config format %q", filepath.Ext(path))
	}

	return nil
}

// ApplyEnv overrides fields from environment variables. lookup is usually
// os.LookupEnv; tests pass a map-backed function.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	var firstErr error
	get := func(key string) (string, bool) {
		return lookup(EnvPrefix + key)
	}
	str := func(key string, dst *string) {
		if v, ok := get(key); ok {
			*dst = v
		}
	}
	num := func(key string, dst *int) {
		if v, ok := get(key); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				if firstErr == nil {
					firstErr = fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
				}
				return
			}
			*dst = n
		}
	}
	float := func(key string, dst *float64) {
		if v, ok := get(key); ok {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				if firstErr == nil {
					firstErr = fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
				}
				return
			}
			*dst = f
		}
	}
	list := func(key string, dst *[]string) {
		if v, ok := get(key); ok {
			var out []string
			for _, s := range strings.Split(v, ",") {
				if s = strings.TrimSpace(s); s != "" {
					out = append(out, s)
				}
			}
			*dst = out
		}
	}

	float("ALERT_COOLDOWN_SECONDS", &c.Alert.CooldownSeconds)
	float("ALERT_DISPATCH_TIMEOUT_SECONDS", &c.Alert.DispatchTimeoutSeconds)
	num("ALERT_QUEUE_SIZE", &c.Alert.QueueSize)

	str("TELEGRAM_BASE_URL", &c.Telegram.BaseURL)
	str("TELEGRAM_BOT_TOKEN", &c.Telegram.BotToken)
	str("TELEGRAM_CHAT_ID", &c.Telegram.ChatID)
	// Bare names as used by most bot deployments.
	if v, ok := lookup("TELEGRAM_BOT_TOKEN"); ok {
		c.Telegram.BotToken = v
	}
	if v, ok := lookup("TELEGRAM_CHAT_ID"); ok {
		c.Telegram.ChatID = v
	}

	float("GESTURE_CONFIDENCE_THRESHOLD", &c.Gesture.ConfidenceThreshold)
	float("GESTURE_TIME_THRESHOLD_SECONDS", &c.Gesture.TimeThresholdSeconds)
	list("GESTURE_CLASSES", &c.Gesture.Classes)

	str("MOTION_COMMAND", &c.Motion.Command)
	list("MOTION_ARGS", &c.Motion.Args)
	float("MOTION_MIN_CONFIDENCE", &c.Motion.MinConfidence)
	list("MOTION_LABELS", &c.Motion.Labels)

	num("CAMERA_INDEX", &c.Camera.Index)
	num("CAMERA_FRAME_WIDTH", &c.Camera.FrameWidth)
	num("CAMERA_FRAME_INTERVAL_MS", &c.Camera.FrameIntervalMs)
	num("CAMERA_READ_BACKOFF_MS", &c.Camera.ReadBackoffMs)

	num("DROWSINESS_CLOSED_FRAMES_THRESHOLD", &c.Drowsiness.ClosedFramesThreshold)

	str("DETECTOR_FACE_CASCADE", &c.Detector.FaceCascade)
	str("DETECTOR_EYE_CASCADE", &c.Detector.EyeCascade)

	str("EVIDENCE_DIR", &c.Evidence.Dir)
	num("EVIDENCE_MAX_IMAGES", &c.Evidence.MaxImages)

	str("STORE_PATH", &c.Store.Path)
	num("STORE_RETENTION_DAYS", &c.Store.RetentionDays)
	str("SERVER_ADDR", &c.Server.Addr)

	str("MQTT_BROKER", &c.MQTT.Broker)
	str("MQTT_CLIENT_ID", &c.MQTT.ClientID)
	str("MQTT_USERNAME", &c.MQTT.Username)
	str("MQTT_PASSWORD", &c.MQTT.Password)
	str("MQTT_TOPIC_PREFIX", &c.MQTT.TopicPrefix)
	qos := int(c.MQTT.QoS)
	num("MQTT_QOS", &qos)
	if qos < 0 || qos > 255 {
		qos = 255 // rejected by Validate
	}
	c.MQTT.QoS = byte(qos)

	str("LOG_LEVEL", &c.Log.Level)
	str("LOG_FORMAT", &c.Log.Format)

	return firstErr
}
