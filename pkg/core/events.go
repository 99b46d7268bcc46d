package core

import (
	"context"
	"time"
)

// Event is the interface for all bridge and scheduler events.
type Event interface {
	eventMarker()
}

// FiringStarted is emitted right before the target method is invoked.
type FiringStarted struct {
	FireInstanceID string
	JobKey         string
	TriggerName    string
	Timestamp      time.Time
}

func (*FiringStarted) eventMarker() {}

// FiringSucceeded is emitted when the target method returned without error.
type FiringSucceeded struct {
	FireInstanceID string
	JobKey         string
	Result         any
	Duration       time.Duration
	Timestamp      time.Time
}

func (*FiringSucceeded) eventMarker() {}

// FiringFailed is emitted when a firing could not complete.
type FiringFailed struct {
	FireInstanceID string
	JobKey         string
	Error          error
	Duration       time.Duration
	Timestamp      time.Time
}

func (*FiringFailed) eventMarker() {}

// JobListener is notified around firings of descriptors that name it.
type JobListener interface {
	Name() string
	JobToBeExecuted(ctx context.Context, fc *FiringContext)
	JobWasExecuted(ctx context.Context, fc *FiringContext, outcome *Outcome)
}
