package circuitbreaker

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/labelflow/labelflow/api/internal/pkg/errors"
)

func newTestGuard(timeout time.Duration) *Guard {
	return NewGuard(New(GuardConfig("store-test", 2, time.Hour)), timeout)
}

func TestGuardPassesResults(t *testing.T) {
	g := newTestGuard(time.Second)

	v, err := Run(context.Background(), g, func(ctx context.Context) (string, error) {
		_, ok := ctx.Deadline()
		assert.True(t, ok, "guard must apply a deadline")
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
}

func TestGuardErrorMapping(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		check func(error) bool
	}{
		{name: "app error passes through", err: apperrors.NotFound("task"), check: apperrors.IsNotFound},
		{name: "wrapped app error passes through", err: fmt.Errorf("claim: %w", apperrors.Conflict("taken")), check: apperrors.IsConflict},
		{name: "deadline", err: context.DeadlineExceeded, check: apperrors.IsUnavailable},
		{name: "net error", err: &net.OpError{Op: "dial", Err: errors.New("refused")}, check: apperrors.IsUnavailable},
		{name: "bad conn", err: driver.ErrBadConn, check: apperrors.IsUnavailable},
		{name: "unknown", err: errors.New("syntax error"), check: func(err error) bool {
			return apperrors.GetCode(err) == apperrors.CodeInternal && apperrors.IsAppError(err)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newTestGuard(0)
			err := g.Do(context.Background(), func(context.Context) error { return tt.err })
			require.Error(t, err)
			assert.True(t, tt.check(err), "unexpected mapping: %v", err)
		})
	}
}

func TestGuardTimeout(t *testing.T) {
	g := newTestGuard(10 * time.Millisecond)

	err := g.Do(context.Background(), func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	assert.True(t, apperrors.IsUnavailable(err))
}

func TestGuardOpensOnInfrastructureFailuresOnly(t *testing.T) {
	g := newTestGuard(0)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_ = g.Do(ctx, func(context.Context) error { return apperrors.Conflict("taken") })
	}
	assert.Equal(t, StateClosed, g.Breaker().State())

	for i := 0; i < 2; i++ {
		_ = g.Do(ctx, func(context.Context) error { return driver.ErrBadConn })
	}
	assert.Equal(t, StateOpen, g.Breaker().State())

	called := false
	err := g.Do(ctx, func(context.Context) error {
		called = true
		return nil
	})
	assert.False(t, called)
	assert.True(t, apperrors.IsUnavailable(err))
}
