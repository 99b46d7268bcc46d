package core

import (
	"sync"
	"time"
)

// FireState is the state of a single firing.
type FireState string

const (
	StateIdle      FireState = "idle"
	StateInvoking  FireState = "invoking"
	StateSucceeded FireState = "succeeded"
	StateFailed    FireState = "failed"
)

// FiringContext is handed to the bridge by the scheduler for one firing.
// The bridge writes only the result slot.
type FiringContext struct {
	FireInstanceID string
	TriggerName    string
	TriggerGroup   string
	FireTime       time.Time
	Descriptor     *JobDescriptor

	mu        sync.Mutex
	result    any
	hasResult bool
}

// JobKey returns the descriptor key, or "" when no descriptor is attached.
func (fc *FiringContext) JobKey() string {
	if fc.Descriptor == nil {
		return ""
	}
	return fc.Descriptor.Key()
}

// SetResult stores v in the result slot.
func (fc *FiringContext) SetResult(v any) {
	fc.mu.Lock()
	fc.result = v
	fc.hasResult = true
	fc.mu.Unlock()
}

// Result returns the value in the result slot.
func (fc *FiringContext) Result() any {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	return fc.result
}

// HasResult reports whether SetResult was called, including with nil.
func (fc *FiringContext) HasResult() bool {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	return fc.hasResult
}

// Outcome describes how a firing ended.
type Outcome struct {
	FireInstanceID string
	JobKey         string
	TriggerName    string
	State          FireState
	Result         any
	Err            error
	StartedAt      time.Time
	Duration       time.Duration
}
