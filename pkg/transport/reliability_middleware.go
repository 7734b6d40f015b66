package transport

import (
	"context"
	cryptorand "crypto/rand"
	"math"
	"math/big"
	"sync"
	"time"

	mcperrors "github.com/ajitpratap0/mcp-client-go/pkg/errors"
	"github.com/ajitpratap0/mcp-client-go/pkg/logging"
	"github.com/ajitpratap0/mcp-client-go/pkg/protocol"
)

// ReliabilityMiddleware retries failed process launches and trips a
// circuit breaker after repeated transport failures. Requests themselves
// are never retried.
type ReliabilityMiddleware struct {
	config         ReliabilityConfig
	circuitBreaker *reliabilityCircuitBreaker
	logger         logging.Logger
}

// NewReliabilityMiddleware creates a new reliability middleware
func NewReliabilityMiddleware(config ReliabilityConfig, logger logging.Logger) Middleware {
	if logger == nil {
		logger = logging.NewNop()
	}
	rm := &ReliabilityMiddleware{
		config: config,
		logger: logger.WithFields(logging.String("component", "reliability_middleware")),
	}

	if config.CircuitBreaker.Enabled {
		rm.circuitBreaker = newReliabilityCircuitBreaker(config.CircuitBreaker)
	}

	return rm
}

// Wrap implements the Middleware interface
func (rm *ReliabilityMiddleware) Wrap(transport Transport) Transport {
	return &reliabilityTransport{
		middlewareTransport: middlewareTransport{next: transport},
		middleware:          rm,
	}
}

// reliabilityTransport wraps a transport with reliability features
type reliabilityTransport struct {
	middlewareTransport
	middleware *ReliabilityMiddleware
}

// Connect retries errors that happen before the server is running
func (rt *reliabilityTransport) Connect(ctx context.Context) error {
	config := rt.middleware.config
	maxAttempts := config.MaxRetries + 1

	var err error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			delay := calculateBackoff(attempt, config)
			rt.middleware.logger.Info("retrying connect",
				logging.Int("attempt", attempt),
				logging.Int("max_retries", config.MaxRetries),
				logging.Duration("delay", delay))

			timer := time.NewTimer(delay)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return err
			}
		}

		err = rt.next.Connect(ctx)
		if err == nil || !mcperrors.IsRetryableError(err) {
			return err
		}
		rt.middleware.logger.Warn("connect failed", logging.ErrorField(err), logging.Int("attempt", attempt+1))
	}
	return err
}

// Send short-circuits while the breaker is open
func (rt *reliabilityTransport) Send(ctx context.Context, msg protocol.Message) (*protocol.Response, error) {
	cb := rt.middleware.circuitBreaker
	if cb == nil {
		return rt.next.Send(ctx, msg)
	}

	method := methodOf(msg)
	if !cb.canMakeCall() {
		return nil, mcperrors.CircuitOpen(method, cb.retryAfter()).WithContext(&mcperrors.Context{
			Method:    method,
			Component: "ReliabilityMiddleware",
			Operation: "circuit_breaker_check",
		})
	}

	resp, err := rt.next.Send(ctx, msg)
	switch {
	case err == nil:
		cb.recordSuccess()
	case countsAsFailure(err):
		if cb.recordFailure() {
			rt.middleware.logger.Warn("circuit breaker opened",
				logging.String("method", method),
				logging.ErrorField(err))
		}
	}
	return resp, err
}

// countsAsFailure reports whether err says something about the health of
// the channel. A caller giving up does not.
func countsAsFailure(err error) bool {
	if mcperrors.IsCode(err, mcperrors.CodeRequestAborted) {
		return false
	}
	switch mcperrors.CategoryOf(err) {
	case mcperrors.CategoryTransport, mcperrors.CategoryConnection:
		return true
	}
	return false
}

func methodOf(msg protocol.Message) string {
	switch m := msg.(type) {
	case *protocol.Request:
		return m.Method
	case *protocol.Notification:
		return m.Method
	}
	return ""
}

// secureRandFloat64 generates a cryptographically secure random float64 in [0, 1)
func secureRandFloat64() (float64, error) {
	max := big.NewInt(1 << 53)
	n, err := cryptorand.Int(cryptorand.Reader, max)
	if err != nil {
		return 0, err
	}
	return float64(n.Int64()) / float64(1<<53), nil
}

// calculateBackoff returns the exponential delay before retry attempt,
// capped at MaxRetryDelay with ±10% jitter
func calculateBackoff(attempt int, config ReliabilityConfig) time.Duration {
	factor := config.RetryBackoffFactor
	if factor < 1 {
		factor = 1
	}
	backoff := float64(config.InitialRetryDelay) * math.Pow(factor, float64(attempt-1))

	if config.MaxRetryDelay > 0 && backoff > float64(config.MaxRetryDelay) {
		backoff = float64(config.MaxRetryDelay)
	}

	if randFloat, err := secureRandFloat64(); err == nil {
		backoff += backoff * 0.1 * (randFloat*2 - 1)
	}

	return time.Duration(backoff)
}

// reliabilityCircuitBreaker implements a simple circuit breaker
type reliabilityCircuitBreaker struct {
	config    CircuitBreakerConfig
	state     circuitState
	failures  int
	successes int
	lastError time.Time
	mu        sync.Mutex
}

type circuitState int

const (
	circuitClosed circuitState = iota
	circuitOpen
	circuitHalfOpen
)

func newReliabilityCircuitBreaker(config CircuitBreakerConfig) *reliabilityCircuitBreaker {
	if config.FailureThreshold <= 0 {
		config.FailureThreshold = 1
	}
	if config.SuccessThreshold <= 0 {
		config.SuccessThreshold = 1
	}
	return &reliabilityCircuitBreaker{
		config: config,
		state:  circuitClosed,
	}
}

func (cb *reliabilityCircuitBreaker) canMakeCall() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case circuitClosed:
		return true
	case circuitOpen:
		if time.Since(cb.lastError) > cb.config.Timeout {
			cb.state = circuitHalfOpen
			cb.successes = 0
			return true
		}
		return false
	case circuitHalfOpen:
		return true
	}

	return false
}

func (cb *reliabilityCircuitBreaker) retryAfter() time.Duration {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if d := cb.config.Timeout - time.Since(cb.lastError); d > 0 {
		return d
	}
	return 0
}

func (cb *reliabilityCircuitBreaker) recordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures = 0

	if cb.state == circuitHalfOpen {
		cb.successes++
		if cb.successes >= cb.config.SuccessThreshold {
			cb.state = circuitClosed
		}
	}
}

// recordFailure returns true when this failure opened the circuit
func (cb *reliabilityCircuitBreaker) recordFailure() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.lastError = time.Now()
	cb.failures++

	if cb.state == circuitHalfOpen {
		cb.state = circuitOpen
		return true
	}

	if cb.state == circuitClosed && cb.failures >= cb.config.FailureThreshold {
		cb.state = circuitOpen
		return true
	}
	return false
}
