package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"
)

// ErrCircuitOpen is returned when the breaker rejects a call without attempting it
var ErrCircuitOpen = errors.New("circuit breaker is open")

// StateObserver receives breaker state changes; *metrics.Metrics satisfies it
type StateObserver interface {
	SetCircuitBreakerState(name string, state int)
	RecordCircuitBreakerTrip(name string)
}

// CircuitBreakerConfig holds configuration for a circuit breaker.
// The breaker trips on FailureThreshold consecutive failures, or once MinRequestsToTrip
// calls have been counted in the current Interval and FailureRatioThreshold of them failed.
type CircuitBreakerConfig struct {
	Name                  string
	MaxRequests           uint32        // trial requests let through while half-open
	Interval              time.Duration // count reset period while closed; 0 keeps counts
	Timeout               time.Duration // how long the breaker stays open
	FailureThreshold      uint32
	FailureRatioThreshold float64
	MinRequestsToTrip     uint32
}

// DefaultCircuitBreakerConfig suits a downstream that recovers within tens of seconds
func DefaultCircuitBreakerConfig(name string) *CircuitBreakerConfig {
	return &CircuitBreakerConfig{
		Name:                  name,
		MaxRequests:           3,
		Interval:              time.Minute,
		Timeout:               30 * time.Second,
		FailureThreshold:      5,
		FailureRatioThreshold: 0.5,
		MinRequestsToTrip:     10,
	}
}

func (c *CircuitBreakerConfig) shouldTrip(counts gobreaker.Counts) bool {
	if counts.ConsecutiveFailures >= c.FailureThreshold {
		return true
	}
	return counts.Requests >= c.MinRequestsToTrip &&
		float64(counts.TotalFailures)/float64(counts.Requests) >= c.FailureRatioThreshold
}

// CircuitBreaker is a gobreaker instance that logs transitions and reports them to an observer
type CircuitBreaker struct {
	cb     *gobreaker.CircuitBreaker
	logger *slog.Logger
}

// NewCircuitBreaker creates a new circuit breaker. observer may be nil.
func NewCircuitBreaker(config *CircuitBreakerConfig, logger *slog.Logger, observer StateObserver) *CircuitBreaker {
	onChange := func(name string, from, to gobreaker.State) {
		logger.Warn("Circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
		if observer == nil {
			return
		}
		observer.SetCircuitBreakerState(name, int(to))
		if to == gobreaker.StateOpen {
			observer.RecordCircuitBreakerTrip(name)
		}
	}

	return &CircuitBreaker{
		cb: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:          config.Name,
			MaxRequests:   config.MaxRequests,
			Interval:      config.Interval,
			Timeout:       config.Timeout,
			ReadyToTrip:   config.shouldTrip,
			OnStateChange: onChange,
		}),
		logger: logger,
	}
}

// Do runs fn through the circuit breaker. Rejections wrap ErrCircuitOpen.
func (c *CircuitBreaker) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	_, err := c.cb.Execute(func() (any, error) { return nil, fn(ctx) })
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		c.logger.Warn("Circuit breaker rejected call", "name", c.cb.Name(), "state", c.cb.State().String())
		return fmt.Errorf("%w: %s", ErrCircuitOpen, c.cb.Name())
	}
	return err
}

// State returns the current state of the circuit breaker
func (c *CircuitBreaker) State() gobreaker.State {
	return c.cb.State()
}
