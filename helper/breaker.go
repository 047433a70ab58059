package helper

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"
)

// ErrBreakerOpen is returned when the circuit breaker rejects a call because
// the guarded service kept failing.
var ErrBreakerOpen = errors.New("circuit breaker is open")

// Breaker guards calls to an external annotation or embedding service.
// After 3 consecutive failures the circuit opens for 30 seconds, then
// half-opens and closes again after 2 successful probe calls.
type Breaker struct {
	breaker *gobreaker.CircuitBreaker
	logger  *slog.Logger
}

// NewBreaker creates a circuit breaker with the given name for logging.
func NewBreaker(name string, logger *slog.Logger) *Breaker {
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: 2,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn(
				"Circuit breaker state changed",
				slog.String("name", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
		},
	}

	return &Breaker{
		breaker: gobreaker.NewCircuitBreaker(settings),
		logger:  logger,
	}
}

// Execute runs fn through the circuit breaker. An open circuit returns
// ErrBreakerOpen without calling fn. A cancelled context counts as a failure.
func (b *Breaker) Execute(ctx context.Context, fn func() (interface{}, error)) (interface{}, error) {
	result, err := b.breaker.Execute(func() (interface{}, error) {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		return fn()
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, ErrBreakerOpen
		}
		return nil, err
	}
	return result, nil
}

// State returns the current breaker state as a string.
func (b *Breaker) State() string {
	switch b.breaker.State() {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateOpen:
		return "open"
	case gobreaker.StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}
