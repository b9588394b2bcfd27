package alert

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Default notifier settings.
const (
	DefaultCooldown        = 10 * time.Second
	DefaultDispatchTimeout = 10 * time.Second
	DefaultQueueSize       = 16
)

// Config holds notifier settings. Zero values fall back to the defaults.
type Config struct {
	Cooldown        time.Duration
	DispatchTimeout time.Duration
	QueueSize       int
	// Now is the clock used for cooldowns. It defaults to time.Now, whose
	// monotonic reading keeps cooldowns stable across wall-clock changes.
	Now func() time.Time
}

// Notifier rate-limits alerts per category and sends them from a single
// background worker.
//
// The cooldown slot is reserved before the send is attempted and is never
// refunded, so a failed send still silences its category for one window.
type Notifier struct {
	sender          Sender
	logger          *zap.Logger
	cooldown        time.Duration
	dispatchTimeout time.Duration
	now             func() time.Time

	mu        sync.Mutex
	lastSent  map[Category]time.Time
	observers []Observer
	closed    bool

	jobs chan Alert
	done chan struct{}
}

// NewNotifier creates a Notifier and starts its dispatch worker.
// A nil sender logs alerts instead of sending them.
func NewNotifier(sender Sender, cfg Config, logger *zap.Logger) *Notifier {
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = DefaultCooldown
	}
	if cfg.DispatchTimeout <= 0 {
		cfg.DispatchTimeout = DefaultDispatchTimeout
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultQueueSize
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	n := &Notifier{
		sender:          sender,
		logger:          logger.Named("notifier"),
		cooldown:        cfg.Cooldown,
		dispatchTimeout: cfg.DispatchTimeout,
		now:             cfg.Now,
		lastSent:        make(map[Category]time.Time),
		jobs:            make(chan Alert, cfg.QueueSize),
		done:            make(chan struct{}),
	}

	go n.run()

	return n
}

// AddObserver registers an observer for dispatch results.
func (n *Notifier) AddObserver(o Observer) {
	if o == nil {
		return
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.observers = append(n.observers, o)
}

// Notify accepts an alert unless its category is still cooling down.
// It never blocks on the network and never returns delivery errors; those
// are logged and reported to observers.
func (n *Notifier) Notify(category Category, message string, image []byte) Outcome {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed {
		return OutcomeClosed
	}

	now := n.now()
	if last, ok := n.lastSent[category]; ok && now.Sub(last) < n.cooldown {
		n.logger.Debug("alert suppressed by cooldown",
			zap.String("category", string(category)),
			zap.Duration("remaining", n.cooldown-now.Sub(last)),
		)
		return OutcomeSuppressed
	}
	n.lastSent[category] = now

	a := Alert{
		Category: category,
		Message:  message,
		Image:    image,
		Time:     now,
	}

	select {
	case n.jobs <- a:
		return OutcomeQueued
	default:
		n.logger.Warn("dispatch queue full, alert dropped",
			zap.String("category", string(category)),
		)
		return OutcomeDropped
	}
}

// Remaining returns how long category stays silenced. Zero means an alert
// would be accepted now.
func (n *Notifier) Remaining(category Category) time.Duration {
	n.mu.Lock()
	defer n.mu.Unlock()

	last, ok := n.lastSent[category]
	if !ok {
		return 0
	}
	elapsed := n.now().Sub(last)
	if elapsed >= n.cooldown {
		return 0
	}
	return n.cooldown - elapsed
}

// Close stops accepting alerts and waits for queued dispatches to finish.
func (n *Notifier) Close() {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		<-n.done
		return
	}
	n.closed = true
	close(n.jobs)
	n.mu.Unlock()

	<-n.done
}

// run drains the job queue until Close.
func (n *Notifier) run() {
	defer close(n.done)

	for a := range n.jobs {
		n.dispatch(a)
	}
}

// dispatch performs exactly one send for a and reports the result.
func (n *Notifier) dispatch(a Alert) {
	start := time.Now()
	err := n.send(a)
	result := Result{Alert: a, Err: err, Duration: time.Since(start)}

	if err != nil {
		n.logger.Error("alert delivery failed",
			zap.String("category", string(a.Category)),
			zap.Bool("photo", len(a.Image) > 0),
			zap.Error(err),
		)
	} else {
		n.logger.Info("alert sent",
			zap.String("category", string(a.Category)),
			zap.Bool("photo", len(a.Image) > 0),
			zap.Duration("took", result.Duration),
		)
	}

	n.mu.Lock()
	observers := make([]Observer, len(n.observers))
	copy(observers, n.observers)
	n.mu.Unlock()

	for _, o := range observers {
		o.Observe(result)
	}
}

// errNoSender is reported when no messaging endpoint is configured.
var errNoSender = errors.New("no sender configured")

func (n *Notifier) send(a Alert) error {
	if n.sender == nil {
		n.logger.Info("alert (not sent)",
			zap.String("category", string(a.Category)),
			zap.String("message", a.Message),
		)
		return errNoSender
	}

	ctx, cancel := context.WithTimeout(context.Background(), n.dispatchTimeout)
	defer cancel()

	if len(a.Image) > 0 {
		return n.sender.SendPhoto(ctx, a.Image, a.Message)
	}
	return n.sender.SendMessage(ctx, a.Message)
}
