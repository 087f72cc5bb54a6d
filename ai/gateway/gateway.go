// Package gateway wraps the LLM connector with retry, circuit breaking and
// call metrics. Retries are local to one logical call; breaker state is
// shared across every call in the process lifetime.
package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mhalter/coachflow/ai/llm"
)

// Retry policy: up to maxAttempts per logical call, exponential backoff
// doubling from initialBackoff.
const (
	maxAttempts    = 3
	initialBackoff = 500 * time.Millisecond
)

// Gateway is the resilience wrapper around the LLM connector.
type Gateway struct {
	svc     llm.Service
	breaker *CircuitBreaker
	metrics *CallMetrics
	sleep   func(ctx context.Context, d time.Duration) error
}

// New creates a gateway around svc. breaker may be nil for a default
// breaker on the wall clock.
func New(svc llm.Service, breaker *CircuitBreaker) *Gateway {
	if breaker == nil {
		breaker = NewCircuitBreaker(0, 0, nil)
	}
	return &Gateway{
		svc:     svc,
		breaker: breaker,
		metrics: &CallMetrics{},
		sleep:   sleepCtx,
	}
}

// Call performs one logical LLM call with retries. A rejected call (open
// breaker) returns ErrCircuitOpen without touching the connector. An
// interrupted backoff wait aborts immediately with the context error.
func (g *Gateway) Call(ctx context.Context, system, user llm.Message) (string, error) {
	if err := g.breaker.Allow(); err != nil {
		slog.Warn("LLM gateway: circuit open, rejecting call", "provider", g.svc.Name())
		return "", err
	}

	var lastErr error
	backoff := initialBackoff
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		start := time.Now()
		content, stats, err := g.svc.Chat(ctx, []llm.Message{system, user})
		if err == nil {
			latency := time.Since(start).Milliseconds()
			promptTokens, completionTokens := 0, 0
			if stats != nil {
				promptTokens, completionTokens = stats.PromptTokens, stats.CompletionTokens
			}
			g.metrics.recordCall(latency, promptTokens, completionTokens)
			g.breaker.RecordSuccess()
			return content, nil
		}

		g.metrics.recordFailure()
		lastErr = err
		slog.Warn("LLM gateway: call attempt failed",
			"provider", g.svc.Name(),
			"attempt", attempt,
			"error", err,
		)

		if attempt < maxAttempts {
			if sleepErr := g.sleep(ctx, backoff); sleepErr != nil {
				// Interrupted wait is fatal: no further retries.
				g.breaker.RecordFailure()
				return "", fmt.Errorf("LLM call interrupted during backoff: %w", sleepErr)
			}
			backoff *= 2
		}
	}

	g.breaker.RecordFailure()
	return "", fmt.Errorf("LLM call failed after %d attempts: %w", maxAttempts, lastErr)
}

// Metrics returns a read-only snapshot of the cumulative call metrics.
func (g *Gateway) Metrics() Snapshot {
	return g.metrics.Snapshot()
}

// Breaker exposes the shared circuit breaker, for observability bridges.
func (g *Gateway) Breaker() *CircuitBreaker {
	return g.breaker
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
