package store

import (
	"sync"
	"time"

	"github.com/ayusman/drivewatch/internal/alert"
	"go.uber.org/zap"
)

// PruneInterval is the minimum gap between two retention sweeps run from
// Observe.
const PruneInterval = time.Hour

// Recorder journals dispatch results. It implements alert.Observer.
type Recorder struct {
	alerts    *AlertRepository
	logger    *zap.Logger
	retention time.Duration

	mu        sync.Mutex
	lastPrune time.Time
}

// NewRecorder creates a Recorder writing to repo.
func NewRecorder(repo *AlertRepository, logger *zap.Logger) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{alerts: repo, logger: logger.Named("journal")}
}

// WithRetention makes the recorder delete rows older than d. Zero keeps
// every row.
func (rec *Recorder) WithRetention(d time.Duration) *Recorder {
	rec.retention = d
	return rec
}

// Prune deletes rows older than the retention window before now.
func (rec *Recorder) Prune(now time.Time) (int64, error) {
	if rec.retention <= 0 {
		return 0, nil
	}
	rec.mu.Lock()
	rec.lastPrune = now
	rec.mu.Unlock()

	return rec.alerts.DeleteBefore(now.Add(-rec.retention))
}

// Observe writes one row for r. Write failures are logged. At most once per
// PruneInterval it also sweeps rows past the retention window.
func (rec *Recorder) Observe(r alert.Result) {
	row := &Alert{
		Category:   string(r.Alert.Category),
		Message:    r.Alert.Message,
		HasImage:   len(r.Alert.Image) > 0,
		Status:     StatusSent,
		DurationMs: r.Duration.Milliseconds(),
		CreatedAt:  r.Alert.Time,
	}
	if r.Err != nil {
		row.Status = StatusFailed
		row.Error = r.Err.Error()
	}

	if err := rec.alerts.Create(row); err != nil {
		rec.logger.Error("failed to journal alert",
			zap.String("category", row.Category),
			zap.Error(err),
		)
	}

	if rec.pruneDue(r.Alert.Time) {
		removed, err := rec.Prune(r.Alert.Time)
		if err != nil {
			rec.logger.Warn("journal retention sweep failed", zap.Error(err))
		} else if removed > 0 {
			rec.logger.Info("journal retention sweep", zap.Int64("removed", removed))
		}
	}
}

func (rec *Recorder) pruneDue(now time.Time) bool {
	if rec.retention <= 0 || now.IsZero() {
		return false
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return rec.lastPrune.IsZero() || now.Sub(rec.lastPrune) >= PruneInterval
}
