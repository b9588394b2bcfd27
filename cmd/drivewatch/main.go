package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ayusman/drivewatch/internal/alert"
	"github.com/ayusman/drivewatch/internal/app"
	"github.com/ayusman/drivewatch/internal/bridge"
	"github.com/ayusman/drivewatch/internal/capture"
	"github.com/ayusman/drivewatch/internal/config"
	"github.com/ayusman/drivewatch/internal/detector"
	"github.com/ayusman/drivewatch/internal/evidence"
	"github.com/ayusman/drivewatch/internal/gesture"
	"github.com/ayusman/drivewatch/internal/logging"
	"github.com/ayusman/drivewatch/internal/motion"
	"github.com/ayusman/drivewatch/internal/server"
	"github.com/ayusman/drivewatch/internal/store"
	"github.com/ayusman/drivewatch/internal/telegram"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const serviceName = "drivewatch"

func main() {
	configPath := flag.String("config", "", "path to a TOML or YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "drivewatch: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format, serviceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "drivewatch: failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Error("drivewatch exited", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	logger.Info("Drivewatch - driver and vehicle monitor",
		zap.Int("camera", cfg.Camera.Index),
		zap.String("server_addr", cfg.Server.Addr),
		zap.Bool("telegram", cfg.TelegramEnabled()),
		zap.String("classifier", cfg.Motion.Command),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var sender alert.Sender
	if cfg.TelegramEnabled() {
		client, err := telegram.NewClient(telegram.Config{
			BaseURL:  cfg.Telegram.BaseURL,
			BotToken: cfg.Telegram.BotToken,
			ChatID:   cfg.Telegram.ChatID,
			Timeout:  cfg.DispatchTimeout(),
		}, logger)
		if err != nil {
			return fmt.Errorf("telegram client: %w", err)
		}
		checkBot(ctx, client, cfg.DispatchTimeout(), logger)
		sender = client
	} else {
		logger.Warn("telegram credentials missing, alerts will be logged only")
	}

	notifier := alert.NewNotifier(sender, alert.Config{
		Cooldown:        cfg.Cooldown(),
		DispatchTimeout: cfg.DispatchTimeout(),
		QueueSize:       cfg.Alert.QueueSize,
	}, logger)

	var st *store.Store
	if cfg.Store.Path != "" {
		var err error
		st, err = store.New(cfg.Store.Path)
		if err != nil {
			notifier.Close()
			return fmt.Errorf("open alert journal: %w", err)
		}
		defer st.Close()

		recorder := store.NewRecorder(st.Alerts(), logger).WithRetention(cfg.Retention())
		if removed, err := recorder.Prune(time.Now()); err != nil {
			logger.Warn("journal retention sweep failed", zap.Error(err))
		} else if removed > 0 {
			logger.Info("journal retention sweep", zap.Int64("removed", removed))
		}
		notifier.AddObserver(recorder)
	}

	hub := server.NewHub(logger)
	notifier.AddObserver(hub)

	ev, err := evidence.NewStore(cfg.Evidence.Dir, cfg.Evidence.MaxImages, logger)
	if err != nil {
		notifier.Close()
		return fmt.Errorf("evidence store: %w", err)
	}

	detCfg := detector.DefaultConfig()
	detCfg.FaceCascade = cfg.Detector.FaceCascade
	detCfg.EyeCascade = cfg.Detector.EyeCascade
	det, err := detector.NewCascadeDetector(detCfg)
	if err != nil {
		notifier.Close()
		return fmt.Errorf("load cascades: %w", err)
	}

	classifier, err := newClassifier(cfg, logger)
	if err != nil {
		det.Close()
		notifier.Close()
		return err
	}

	monitor, err := app.New(app.Config{
		FrameWidth:    cfg.Camera.FrameWidth,
		FrameInterval: cfg.FrameInterval(),
		ReadBackoff:   cfg.ReadBackoff(),
		ClosedFrames:  cfg.Drowsiness.ClosedFramesThreshold,
		Gesture: gesture.Config{
			Threshold: cfg.Gesture.ConfidenceThreshold,
			Duration:  cfg.ShakeDuration(),
			Classes:   cfg.Gesture.Classes,
		},
		Labels: cfg.Motion.Labels,
	}, app.Deps{
		Camera:     capture.NewCamera(cfg.Camera.Index),
		Detector:   det,
		Classifier: classifier,
		Notifier:   notifier,
		Evidence:   ev,
		Logger:     logger,
	})
	if err != nil {
		det.Close()
		classifier.Close()
		notifier.Close()
		return err
	}

	if err := monitor.Start(); err != nil {
		monitor.Stop()
		return fmt.Errorf("start monitor: %w", err)
	}
	defer monitor.Stop()

	registry := bridge.NewRegistry()
	monitor.ProvideBridge(registry)

	g, gctx := errgroup.WithContext(ctx)

	if cfg.MQTT.Broker != "" {
		listener, err := bridge.NewMQTTListener(bridge.MQTTConfig{
			Broker:      cfg.MQTT.Broker,
			ClientID:    cfg.MQTT.ClientID,
			Username:    cfg.MQTT.Username,
			Password:    cfg.MQTT.Password,
			TopicPrefix: cfg.MQTT.TopicPrefix,
			QoS:         cfg.MQTT.QoS,
		}, registry, logger)
		if err != nil {
			return fmt.Errorf("mqtt bridge: %w", err)
		}
		if err := listener.Start(); err != nil {
			return fmt.Errorf("mqtt bridge: %w", err)
		}
		g.Go(func() error {
			<-gctx.Done()
			listener.Stop()
			return nil
		})
	}

	if cfg.Server.Addr != "" {
		srv := server.New(server.Config{
			Store:  st,
			Bridge: registry,
			Status: func() any { return monitor.Snapshot() },
			Events: hub,
			Logger: logger,
		})
		g.Go(func() error {
			return srv.Run(gctx, cfg.Server.Addr)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		return nil
	})

	err = g.Wait()
	logger.Info("shutting down")
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// newClassifier starts the configured classifier program, or returns a
// classifier that drops samples when none is configured.
func newClassifier(cfg *config.Config, logger *zap.Logger) (motion.Classifier, error) {
	if cfg.Motion.Command == "" {
		logger.Warn("motion.command not set, sensor samples will be dropped")
		return motion.NewDiscardClassifier(logger), nil
	}

	pc, err := motion.NewProcessClassifier(motion.ProcessConfig{
		Command:       cfg.Motion.Command,
		Args:          cfg.Motion.Args,
		MinConfidence: cfg.Motion.MinConfidence,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("start classifier: %w", err)
	}
	return pc, nil
}

// checkBot logs the bot identity. A failure is only logged.
func checkBot(ctx context.Context, client *telegram.Client, timeout time.Duration, logger *zap.Logger) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	me, err := client.GetMe(ctx)
	if err != nil {
		logger.Warn("telegram getMe failed", zap.Error(err))
		return
	}
	logger.Info("telegram bot ready", zap.ByteString("bot", me))
}
