package circuitbreaker

import (
	"context"
	"database/sql/driver"
	"errors"
	"net"
	"time"

	apperrors "github.com/labelflow/labelflow/api/internal/pkg/errors"
)

// Guard bounds every call with a timeout and runs it through a circuit breaker.
// Infrastructure failures come back as apperrors Unavailable; application
// errors pass through and never trip the breaker.
type Guard struct {
	cb      *CircuitBreaker
	timeout time.Duration
}

// NewGuard creates a guard over cb. A zero timeout leaves the caller's deadline alone.
func NewGuard(cb *CircuitBreaker, timeout time.Duration) *Guard {
	return &Guard{cb: cb, timeout: timeout}
}

// GuardConfig returns a breaker configuration that only counts infrastructure failures
func GuardConfig(name string, maxFailures int, cooldown time.Duration) Config {
	cfg := DefaultConfig(name)
	if maxFailures > 0 {
		cfg.MaxFailures = maxFailures
	}
	if cooldown > 0 {
		cfg.Timeout = cooldown
	}
	cfg.IsFailure = isInfrastructureError
	return cfg
}

// Breaker returns the underlying circuit breaker
func (g *Guard) Breaker() *CircuitBreaker {
	return g.cb
}

// Do runs fn under the guard
func (g *Guard) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	_, err := Run(ctx, g, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// Run runs fn under the guard and returns its result
func Run[T any](ctx context.Context, g *Guard, fn func(ctx context.Context) (T, error)) (T, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	result, err := ExecuteWithResult(g.cb, ctx, func() (T, error) {
		return fn(ctx)
	})
	if err != nil {
		var zero T
		return zero, classify(err)
	}
	return result, nil
}

func classify(err error) error {
	switch {
	case errors.Is(err, ErrCircuitOpen), errors.Is(err, ErrTooManyRequests):
		return apperrors.Unavailable("store is temporarily unavailable").WithError(err)
	case apperrors.IsAppError(err):
		return err
	case errors.Is(err, context.DeadlineExceeded):
		return apperrors.Unavailable("store operation timed out").WithError(err)
	case errors.Is(err, context.Canceled):
		return apperrors.Unavailable("store operation cancelled").WithError(err)
	case isConnectionError(err):
		return apperrors.Unavailable("store is unreachable").WithError(err)
	default:
		return apperrors.Internal("store operation failed").WithError(err)
	}
}

func isInfrastructureError(err error) bool {
	if apperrors.IsAppError(err) {
		return apperrors.IsUnavailable(err)
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	return errors.Is(err, context.DeadlineExceeded) || isConnectionError(err)
}

func isConnectionError(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) || errors.Is(err, driver.ErrBadConn)
}
