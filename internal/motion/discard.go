package motion

import (
	"sync/atomic"

	"go.uber.org/zap"
)

// DiscardClassifier is the Classifier used when no classifier program is
// configured. Samples are logged at debug level and dropped, so subscribers
// never fire.
type DiscardClassifier struct {
	*dispatcher

	dropped atomic.Uint64
	logger  *zap.Logger
}

// NewDiscardClassifier creates a DiscardClassifier.
func NewDiscardClassifier(logger *zap.Logger) *DiscardClassifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DiscardClassifier{
		dispatcher: newDispatcher(0),
		logger:     logger.Named("motion"),
	}
}

// Accumulate drops s.
func (d *DiscardClassifier) Accumulate(s Sample) error {
	d.dropped.Add(1)
	d.logger.Debug("no classifier configured, dropping sample",
		zap.Float64("x", s.X), zap.Float64("y", s.Y), zap.Float64("z", s.Z))
	return nil
}

// OnMovement records the subscription; it is never called.
func (d *DiscardClassifier) OnMovement(label string, h Handler) {
	d.subscribe(label, h)
}

// Dropped returns the number of samples discarded.
func (d *DiscardClassifier) Dropped() uint64 {
	return d.dropped.Load()
}

// Close is a no-op.
func (d *DiscardClassifier) Close() error { return nil }
