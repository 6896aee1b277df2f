package embedgw

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"
)

// retryConfig configures exponential-backoff retry for retryWithResult.
// None of the gateways in this package call retryWithResult or
// circuitBreaker; remoteGateway makes a single request per call.
type retryConfig struct {
	maxRetries   int
	initialDelay time.Duration
	maxDelay     time.Duration
	multiplier   float64
	jitter       bool
}

func defaultRetryConfig() retryConfig {
	return retryConfig{
		maxRetries:   3,
		initialDelay: 500 * time.Millisecond,
		maxDelay:     8 * time.Second,
		multiplier:   2.0,
		jitter:       true,
	}
}

// retryWithResult runs fn, retrying on error with exponential backoff
// (context cancellation aborts immediately), returning the last error
// wrapped with the attempt count on exhaustion.
func retryWithResult[T any](ctx context.Context, cfg retryConfig, fn func() (T, error)) (T, error) {
	var zero T
	delay := cfg.initialDelay
	var lastErr error

	for attempt := 0; attempt <= cfg.maxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		default:
		}

		result, err := fn()
		if err == nil {
			return result, nil
		}
		lastErr = err
		if attempt >= cfg.maxRetries {
			break
		}

		wait := delay
		if cfg.jitter {
			wait = time.Duration(float64(delay) * (0.5 + rand.Float64()*0.5))
		}
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(wait):
		}

		delay = time.Duration(float64(delay) * cfg.multiplier)
		if delay > cfg.maxDelay {
			delay = cfg.maxDelay
		}
	}

	return zero, fmt.Errorf("remote embed failed after %d retries: %w", cfg.maxRetries, lastErr)
}

// errCircuitOpen is returned when the breaker is open and a call is
// refused without contacting the provider.
var errCircuitOpen = errors.New("embedding provider circuit is open")

type breakerState int

const (
	breakerClosed breakerState = iota
	breakerOpen
	breakerHalfOpen
)

// circuitBreaker fails fast once the remote provider has failed
// repeatedly, instead of retrying every subsequent call into a still-down
// endpoint. Closed/open/half-open state machine.
type circuitBreaker struct {
	maxFailures  int
	resetTimeout time.Duration

	mu          sync.Mutex
	state       breakerState
	failures    int
	lastFailure time.Time
}

func newCircuitBreaker(maxFailures int, resetTimeout time.Duration) *circuitBreaker {
	return &circuitBreaker{maxFailures: maxFailures, resetTimeout: resetTimeout}
}

func (cb *circuitBreaker) currentState() breakerState {
	if cb.state == breakerOpen && time.Since(cb.lastFailure) > cb.resetTimeout {
		return breakerHalfOpen
	}
	return cb.state
}

// Execute runs fn through the breaker, refusing the call with
// errCircuitOpen while open.
func (cb *circuitBreaker) Execute(fn func() error) error {
	cb.mu.Lock()
	state := cb.currentState()
	if state == breakerOpen {
		cb.mu.Unlock()
		return errCircuitOpen
	}
	cb.mu.Unlock()

	err := fn()

	cb.mu.Lock()
	defer cb.mu.Unlock()
	if err != nil {
		cb.failures++
		cb.lastFailure = time.Now()
		if cb.failures >= cb.maxFailures {
			cb.state = breakerOpen
		}
		return err
	}
	cb.failures = 0
	cb.state = breakerClosed
	return nil
}
