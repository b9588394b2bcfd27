package bridge

import (
	"errors"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

// DefaultTopicPrefix is the topic prefix calls are published under.
const DefaultTopicPrefix = "drivewatch/bridge"

// MQTTConfig holds the broker connection settings.
type MQTTConfig struct {
	Broker      string
	ClientID    string
	Username    string
	Password    string
	TopicPrefix string
	QoS         byte
}

// MQTTListener subscribes to <prefix>/+ and turns each message into a
// registry call named by the last topic segment.
type MQTTListener struct {
	cfg      MQTTConfig
	registry *Registry
	logger   *zap.Logger
	client   mqtt.Client
}

// NewMQTTListener creates a listener. It does not connect until Start.
func NewMQTTListener(cfg MQTTConfig, registry *Registry, logger *zap.Logger) (*MQTTListener, error) {
	if cfg.Broker == "" {
		return nil, errors.New("mqtt broker is required")
	}
	if cfg.TopicPrefix == "" {
		cfg.TopicPrefix = DefaultTopicPrefix
	}
	cfg.TopicPrefix = strings.TrimSuffix(cfg.TopicPrefix, "/")
	if cfg.ClientID == "" {
		cfg.ClientID = fmt.Sprintf("drivewatch-%d", time.Now().UnixNano())
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &MQTTListener{
		cfg:      cfg,
		registry: registry,
		logger:   logger.Named("bridge.mqtt"),
	}, nil
}

// Topic returns the subscription filter.
func (l *MQTTListener) Topic() string {
	return l.cfg.TopicPrefix + "/+"
}

// Start connects to the broker and subscribes. The subscription is restored
// on every reconnect.
func (l *MQTTListener) Start() error {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(l.cfg.Broker)
	opts.SetClientID(l.cfg.ClientID)
	if l.cfg.Username != "" {
		opts.SetUsername(l.cfg.Username)
	}
	if l.cfg.Password != "" {
		opts.SetPassword(l.cfg.Password)
	}
	opts.SetAutoReconnect(true)
	opts.SetCleanSession(true)
	opts.SetOnConnectHandler(func(c mqtt.Client) {
		if err := l.subscribe(c); err != nil {
			l.logger.Error("subscribe failed", zap.Error(err))
		}
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		l.logger.Warn("connection lost", zap.Error(err))
	})

	l.client = mqtt.NewClient(opts)
	if token := l.client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("connect to mqtt broker %s: %w", l.cfg.Broker, token.Error())
	}

	l.logger.Info("listening for bridge calls",
		zap.String("broker", l.cfg.Broker),
		zap.String("topic", l.Topic()),
	)
	return nil
}

func (l *MQTTListener) subscribe(c mqtt.Client) error {
	token := c.Subscribe(l.Topic(), l.cfg.QoS, func(_ mqtt.Client, msg mqtt.Message) {
		if err := l.HandleMessage(msg.Topic(), msg.Payload()); err != nil {
			l.logger.Warn("bridge call failed",
				zap.String("topic", msg.Topic()),
				zap.Error(err),
			)
		}
	})
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("subscribe to %s: %w", l.Topic(), token.Error())
	}
	return nil
}

// HandleMessage performs the call carried by one message.
func (l *MQTTListener) HandleMessage(topic string, payload []byte) error {
	name, ok := strings.CutPrefix(topic, l.cfg.TopicPrefix+"/")
	if !ok || name == "" || strings.Contains(name, "/") {
		return fmt.Errorf("%w: topic %q", ErrUnknownMethod, topic)
	}

	args, err := DecodeArgs(payload)
	if err != nil {
		return err
	}
	return l.registry.Call(name, args)
}

// Stop disconnects from the broker.
func (l *MQTTListener) Stop() {
	if l.client == nil {
		return
	}
	l.client.Disconnect(250)
	l.logger.Info("disconnected")
}
