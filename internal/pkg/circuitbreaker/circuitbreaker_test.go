package circuitbreaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

func TestCircuitBreakerOpensAfterMaxFailures(t *testing.T) {
	cb := New(Config{Name: "test", MaxFailures: 2, Timeout: time.Hour})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		err := cb.Execute(ctx, func() error { return errBoom })
		assert.ErrorIs(t, err, errBoom)
	}
	assert.Equal(t, StateOpen, cb.State())

	called := false
	err := cb.Execute(ctx, func() error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)
}

func TestCircuitBreakerHalfOpenRecovers(t *testing.T) {
	cb := New(Config{Name: "test", MaxFailures: 1, Timeout: 10 * time.Millisecond})
	ctx := context.Background()

	_ = cb.Execute(ctx, func() error { return errBoom })
	require.Equal(t, StateOpen, cb.State())

	time.Sleep(20 * time.Millisecond)

	require.NoError(t, cb.Execute(ctx, func() error { return nil }))
	assert.Equal(t, StateClosed, cb.State())
	assert.Equal(t, 0, cb.Failures())
}

func TestCircuitBreakerIsFailure(t *testing.T) {
	ignored := errors.New("ignored")
	cb := New(Config{
		Name:        "test",
		MaxFailures: 1,
		IsFailure:   func(err error) bool { return !errors.Is(err, ignored) },
	})

	_ = cb.Execute(context.Background(), func() error { return ignored })
	assert.Equal(t, StateClosed, cb.State())

	_ = cb.Execute(context.Background(), func() error { return errBoom })
	assert.Equal(t, StateOpen, cb.State())
}

func TestCircuitBreakerStateChangeCallback(t *testing.T) {
	var transitions []State
	cb := New(Config{
		Name:        "test",
		MaxFailures: 1,
		OnStateChange: func(name string, from, to State) {
			assert.Equal(t, "test", name)
			transitions = append(transitions, to)
		},
	})

	_ = cb.Execute(context.Background(), func() error { return errBoom })
	cb.Reset()

	assert.Equal(t, []State{StateOpen, StateClosed}, transitions)
}

func TestExecuteWithResult(t *testing.T) {
	cb := New(DefaultConfig("test"))

	v, err := ExecuteWithResult(cb, context.Background(), func() (int, error) { return 42, nil })
	require.NoError(t, err)
	assert.Equal(t, 42, v)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = ExecuteWithResult(cb, ctx, func() (int, error) { return 1, nil })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	a := r.Get("store")
	b := r.Get("store", Config{Name: "store", MaxFailures: 99})
	assert.Same(t, a, b)

	stats := r.Stats()
	require.Contains(t, stats, "store")
	assert.Equal(t, "closed", stats["store"].State)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "open", StateOpen.String())
	assert.Equal(t, "half-open", StateHalfOpen.String())
	assert.Equal(t, "unknown", State(42).String())
}

func TestCircuitBreakerHalfOpenFailureReopens(t *testing.T) {
	cb := New(Config{Name: "test", MaxFailures: 1, Timeout: 10 * time.Millisecond})
	ctx := context.Background()

	_ = cb.Execute(ctx, func() error { return errBoom })
	time.Sleep(20 * time.Millisecond)

	_ = cb.Execute(ctx, func() error { return errBoom })
	assert.Equal(t, StateOpen, cb.State())
	assert.ErrorIs(t, cb.Execute(ctx, func() error { return nil }), ErrCircuitOpen)
}

func TestRegistriesAreIndependent(t *testing.T) {
	server, worker := NewRegistry(), NewRegistry()

	cb := server.Get("store", Config{Name: "store", MaxFailures: 1})
	_ = cb.Execute(context.Background(), func() error { return errBoom })

	assert.Equal(t, Stats{State: "open", Failures: 1}, server.Stats()["store"])
	assert.Empty(t, worker.Stats())
}
