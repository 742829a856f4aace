package session

import "time"

// Policy holds the reconnection parameters.
type Policy struct {
	// MaxAttempts is the number of scheduled reconnects allowed after
	// consecutive transient closes. Reaching Open resets the count.
	MaxAttempts int
	// Step is the linear backoff increment per attempt.
	Step time.Duration
	// Max caps the backoff delay.
	Max time.Duration
	// StartRetryDelay is the fixed delay before retrying a Start whose
	// transport could not be constructed.
	StartRetryDelay time.Duration
}

// DefaultPolicy returns five attempts, 3s linear steps capped at 30s, and a
// 10s construction retry.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:     5,
		Step:            3 * time.Second,
		Max:             30 * time.Second,
		StartRetryDelay: 10 * time.Second,
	}
}

func (p Policy) withDefaults() Policy {
	d := DefaultPolicy()
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = d.MaxAttempts
	}
	if p.Step <= 0 {
		p.Step = d.Step
	}
	if p.Max <= 0 {
		p.Max = d.Max
	}
	if p.StartRetryDelay <= 0 {
		p.StartRetryDelay = d.StartRetryDelay
	}
	return p
}

// Backoff returns the delay before reconnect attempt n (1-based):
// min(Step*n, Max).
func (p Policy) Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := p.Step * time.Duration(attempt)
	if delay > p.Max || delay <= 0 {
		return p.Max
	}
	return delay
}

// Timer is a scheduled callback that can be cancelled.
type Timer interface {
	Stop() bool
}

// Clock schedules callbacks. Tests replace it to observe delays.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
	Now() time.Time
}

type realClock struct{}

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

func (realClock) Now() time.Time {
	return time.Now()
}
