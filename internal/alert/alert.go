// Package alert gates outbound alerts behind per-category cooldowns and
// dispatches them off the caller's goroutine.
package alert

import (
	"context"
	"time"
)

// Category groups alerts that share a cooldown timer.
type Category string

const (
	// CategoryShake is raised by confirmed vehicle shake gestures.
	CategoryShake Category = "shake"
	// CategoryDrowsy is raised by sustained closed-eye frames.
	CategoryDrowsy Category = "drowsy"
	// CategoryGeneric covers everything else.
	CategoryGeneric Category = "generic"
)

// Categories lists every known category.
var Categories = []Category{CategoryShake, CategoryDrowsy, CategoryGeneric}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	switch c {
	case CategoryShake, CategoryDrowsy, CategoryGeneric:
		return true
	}
	return false
}

// Sender delivers alerts to a messaging endpoint.
type Sender interface {
	SendMessage(ctx context.Context, text string) error
	SendPhoto(ctx context.Context, photo []byte, caption string) error
}

// Outcome describes what Notify did with an alert.
type Outcome int

const (
	// OutcomeSuppressed means the category was still cooling down.
	OutcomeSuppressed Outcome = iota
	// OutcomeQueued means the alert was accepted for dispatch.
	OutcomeQueued
	// OutcomeDropped means the cooldown was consumed but the dispatch queue was full.
	OutcomeDropped
	// OutcomeClosed means the notifier no longer accepts alerts.
	OutcomeClosed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuppressed:
		return "suppressed"
	case OutcomeQueued:
		return "queued"
	case OutcomeDropped:
		return "dropped"
	case OutcomeClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Alert is a single accepted notification.
type Alert struct {
	Category Category
	Message  string
	Image    []byte
	Time     time.Time
}

// Result is the delivery outcome of one dispatched alert.
type Result struct {
	Alert    Alert
	Err      error
	Duration time.Duration
}

// Delivered reports whether the send succeeded.
func (r Result) Delivered() bool {
	return r.Err == nil
}

// Observer is notified after every dispatch attempt. Observers run on the
// dispatch goroutine and must not block for long.
type Observer interface {
	Observe(Result)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(Result)

// Observe calls f(r).
func (f ObserverFunc) Observe(r Result) {
	f(r)
}
