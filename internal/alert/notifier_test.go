package alert

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeSender records every send and optionally fails or blocks.
type fakeSender struct {
	mu       sync.Mutex
	messages []string
	photos   []string
	err      error
	block    chan struct{}
}

func (f *fakeSender) SendMessage(ctx context.Context, text string) error {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, text)
	return f.err
}

func (f *fakeSender) SendPhoto(ctx context.Context, photo []byte, caption string) error {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.photos = append(f.photos, caption)
	return f.err
}

func (f *fakeSender) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.messages) + len(f.photos)
}

// fakeClock is a manually advanced clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestNotifier(sender Sender, clock *fakeClock) *Notifier {
	return NewNotifier(sender, Config{
		Cooldown: 10 * time.Second,
		Now:      clock.Now,
	}, zap.NewNop())
}

func TestNotifier_CooldownSuppressesWithinWindow(t *testing.T) {
	for _, category := range Categories {
		t.Run(string(category), func(t *testing.T) {
			sender := &fakeSender{}
			clock := newFakeClock()
			n := newTestNotifier(sender, clock)

			assert.Equal(t, OutcomeQueued, n.Notify(category, "first", nil))
			clock.Advance(9999 * time.Millisecond)
			assert.Equal(t, OutcomeSuppressed, n.Notify(category, "second", nil))

			n.Close()
			assert.Equal(t, 1, sender.calls())
		})
	}
}

func TestNotifier_DispatchesWhenSpacedByCooldown(t *testing.T) {
	sender := &fakeSender{}
	clock := newFakeClock()
	n := newTestNotifier(sender, clock)

	for i := 0; i < 3; i++ {
		assert.Equal(t, OutcomeQueued, n.Notify(CategoryDrowsy, "drowsy", nil))
		clock.Advance(10 * time.Second)
	}

	n.Close()
	assert.Equal(t, 3, sender.calls())
}

func TestNotifier_CategoriesAreIndependent(t *testing.T) {
	sender := &fakeSender{}
	clock := newFakeClock()
	n := newTestNotifier(sender, clock)

	assert.Equal(t, OutcomeQueued, n.Notify(CategoryShake, "shake", nil))
	assert.Equal(t, OutcomeQueued, n.Notify(CategoryDrowsy, "drowsy", nil))
	assert.Equal(t, OutcomeQueued, n.Notify(CategoryGeneric, "generic", nil))

	assert.Equal(t, OutcomeSuppressed, n.Notify(CategoryShake, "shake again", nil))

	n.Close()
	assert.Equal(t, 3, sender.calls())
}

func TestNotifier_PhotoWhenImageAttached(t *testing.T) {
	sender := &fakeSender{}
	n := newTestNotifier(sender, newFakeClock())

	n.Notify(CategoryDrowsy, "eyes closed", []byte{0xff, 0xd8})
	n.Notify(CategoryShake, "shake", nil)
	n.Close()

	assert.Equal(t, []string{"eyes closed"}, sender.photos)
	assert.Equal(t, []string{"shake"}, sender.messages)
}

func TestNotifier_FailedSendConsumesCooldown(t *testing.T) {
	sender := &fakeSender{err: errors.New("network down")}
	clock := newFakeClock()
	n := newTestNotifier(sender, clock)

	var mu sync.Mutex
	var results []Result
	n.AddObserver(ObserverFunc(func(r Result) {
		mu.Lock()
		defer mu.Unlock()
		results = append(results, r)
	}))

	assert.Equal(t, OutcomeQueued, n.Notify(CategoryShake, "shake", nil))
	clock.Advance(time.Second)
	assert.Equal(t, OutcomeSuppressed, n.Notify(CategoryShake, "shake", nil))
	assert.Equal(t, 9*time.Second, n.Remaining(CategoryShake))

	n.Close()

	require.Len(t, results, 1)
	assert.False(t, results[0].Delivered())
	assert.EqualError(t, results[0].Err, "network down")
	assert.Equal(t, CategoryShake, results[0].Alert.Category)
}

func TestNotifier_NotifyDoesNotBlockOnSlowSend(t *testing.T) {
	block := make(chan struct{})
	sender := &fakeSender{block: block}
	clock := newFakeClock()
	n := NewNotifier(sender, Config{
		Cooldown:  time.Second,
		QueueSize: 1,
		Now:       clock.Now,
	}, zap.NewNop())

	done := make(chan []Outcome)
	go func() {
		var outcomes []Outcome
		for i := 0; i < 4; i++ {
			outcomes = append(outcomes, n.Notify(CategoryGeneric, "msg", nil))
			clock.Advance(2 * time.Second)
		}
		done <- outcomes
	}()

	var outcomes []Outcome
	select {
	case outcomes = <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Notify blocked on a stalled sender")
	}

	assert.Contains(t, outcomes, OutcomeDropped)

	close(block)
	n.Close()
}

func TestNotifier_NilSenderReportsFailure(t *testing.T) {
	n := NewNotifier(nil, Config{}, zap.NewNop())

	var got Result
	n.AddObserver(ObserverFunc(func(r Result) { got = r }))

	assert.Equal(t, OutcomeQueued, n.Notify(CategoryGeneric, "hello", nil))
	n.Close()

	assert.Error(t, got.Err)
}

func TestNotifier_Close(t *testing.T) {
	sender := &fakeSender{}
	n := newTestNotifier(sender, newFakeClock())

	n.Close()
	n.Close()

	assert.Equal(t, OutcomeClosed, n.Notify(CategoryShake, "late", nil))
	assert.Equal(t, 0, sender.calls())
}

func TestNotifier_Remaining(t *testing.T) {
	clock := newFakeClock()
	n := newTestNotifier(&fakeSender{}, clock)
	defer n.Close()

	assert.Zero(t, n.Remaining(CategoryDrowsy))

	n.Notify(CategoryDrowsy, "drowsy", nil)
	clock.Advance(4 * time.Second)
	assert.Equal(t, 6*time.Second, n.Remaining(CategoryDrowsy))

	clock.Advance(6 * time.Second)
	assert.Zero(t, n.Remaining(CategoryDrowsy))
}

func TestNotifier_ZeroCooldownUsesDefault(t *testing.T) {
	clock := newFakeClock()
	sender := &fakeSender{}
	n := NewNotifier(sender, Config{Now: clock.Now}, zap.NewNop())

	assert.Equal(t, OutcomeQueued, n.Notify(CategoryShake, "first", nil))
	assert.Equal(t, OutcomeSuppressed, n.Notify(CategoryShake, "second", nil))
	assert.Equal(t, DefaultCooldown, n.Remaining(CategoryShake))

	clock.Advance(DefaultCooldown)
	assert.Equal(t, OutcomeQueued, n.Notify(CategoryShake, "third", nil))

	n.Close()
	assert.Equal(t, 2, sender.calls())
}

func TestCategory_Valid(t *testing.T) {
	for _, c := range Categories {
		assert.True(t, c.Valid())
	}
	assert.False(t, Category("speeding").Valid())
}
