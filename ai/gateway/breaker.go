package gateway

import (
	"fmt"
	"sync/atomic"
	"time"
)

// Breaker defaults. The breaker opens after threshold consecutive failed
// call sequences and rejects everything for the cool-down window.
const (
	DefaultFailureThreshold = 5
	DefaultCooldown         = 60 * time.Second
)

// ErrCircuitOpen is returned when the breaker rejects a call without
// attempting the connector. RetryAfter is the remaining cool-down.
type ErrCircuitOpen struct {
	RetryAfter time.Duration
}

func (e *ErrCircuitOpen) Error() string {
	return fmt.Sprintf("LLM unavailable, retry after %d seconds", int(e.RetryAfter.Seconds())+1)
}

// CircuitBreaker is process-wide shared state: concurrent turns all observe
// the same consecutive-failure counter. All fields use atomics; the clock
// is injectable so cool-down can be tested with simulated time.
type CircuitBreaker struct {
	consecutiveFailures atomic.Int64
	openedAtUnixNano    atomic.Int64 // 0 when closed
	threshold           int64
	cooldown            time.Duration
	now                 func() time.Time
}

// NewCircuitBreaker creates a breaker. Zero threshold/cooldown select the
// defaults; a nil clock selects the wall clock.
func NewCircuitBreaker(threshold int, cooldown time.Duration, now func() time.Time) *CircuitBreaker {
	if threshold <= 0 {
		threshold = DefaultFailureThreshold
	}
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	if now == nil {
		now = time.Now
	}
	return &CircuitBreaker{threshold: int64(threshold), cooldown: cooldown, now: now}
}

// Allow reports whether a call may proceed. While open, it returns an
// ErrCircuitOpen carrying the remaining cool-down. Once the cool-down has
// elapsed the breaker closes again, leaving the failure counter one short
// of the threshold so a single new failure re-opens it immediately: the
// next call is the one attempt that proves health.
func (b *CircuitBreaker) Allow() error {
	openedAt := b.openedAtUnixNano.Load()
	if openedAt == 0 {
		return nil
	}

	elapsed := b.now().Sub(time.Unix(0, openedAt))
	if elapsed < b.cooldown {
		return &ErrCircuitOpen{RetryAfter: b.cooldown - elapsed}
	}

	// Cool-down elapsed: close, allow one probe.
	if b.openedAtUnixNano.CompareAndSwap(openedAt, 0) {
		b.consecutiveFailures.Store(b.threshold - 1)
	}
	return nil
}

// RecordSuccess resets the consecutive-failure counter immediately.
func (b *CircuitBreaker) RecordSuccess() {
	b.consecutiveFailures.Store(0)
	b.openedAtUnixNano.Store(0)
}

// RecordFailure counts one failed call sequence and opens the breaker when
// the threshold is reached.
func (b *CircuitBreaker) RecordFailure() {
	if b.consecutiveFailures.Add(1) >= b.threshold {
		b.openedAtUnixNano.CompareAndSwap(0, b.now().UnixNano())
	}
}

// ConsecutiveFailures returns the current consecutive-failure count.
func (b *CircuitBreaker) ConsecutiveFailures() int64 {
	return b.consecutiveFailures.Load()
}

// Open reports whether the breaker is currently rejecting calls.
func (b *CircuitBreaker) Open() bool {
	openedAt := b.openedAtUnixNano.Load()
	if openedAt == 0 {
		return false
	}
	return b.now().Sub(time.Unix(0, openedAt)) < b.cooldown
}
