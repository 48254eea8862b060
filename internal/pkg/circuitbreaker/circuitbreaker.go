package circuitbreaker

import (
	"context"
	"errors"
	"sync"
	"time"
)

var (
	// ErrCircuitOpen is returned while the breaker rejects calls
	ErrCircuitOpen = errors.New("circuit breaker is open")
	// ErrTooManyRequests is returned when every half-open probe slot is taken
	ErrTooManyRequests = errors.New("too many requests, circuit breaker is half-open")
)

// State is the position of a breaker
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

var stateNames = [...]string{
	StateClosed:   "closed",
	StateOpen:     "open",
	StateHalfOpen: "half-open",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// Config holds circuit breaker configuration
type Config struct {
	Name string
	// MaxFailures consecutive counted failures open the breaker
	MaxFailures int
	// Timeout is the cooldown before an open breaker lets probes through
	Timeout time.Duration
	// MaxHalfOpenRequests probes must all succeed to close again
	MaxHalfOpenRequests int
	// IsFailure selects the errors that count; nil counts every error
	IsFailure func(err error) bool
	// OnStateChange runs under the breaker lock and must not call back into it
	OnStateChange func(name string, from, to State)
}

// DefaultConfig returns the configuration used when none is given
func DefaultConfig(name string) Config {
	return Config{
		Name:                name,
		MaxFailures:         5,
		Timeout:             30 * time.Second,
		MaxHalfOpenRequests: 1,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig(c.Name)
	if c.MaxFailures <= 0 {
		c.MaxFailures = def.MaxFailures
	}
	if c.Timeout <= 0 {
		c.Timeout = def.Timeout
	}
	if c.MaxHalfOpenRequests <= 0 {
		c.MaxHalfOpenRequests = def.MaxHalfOpenRequests
	}
	return c
}

// CircuitBreaker stops calling a dependency after repeated failures and
// probes it again once the cooldown has passed.
type CircuitBreaker struct {
	config Config

	mu       sync.Mutex
	state    State
	failures int
	openedAt time.Time
	inFlight int // half-open probes admitted
	passed   int // half-open probes that succeeded
}

// New creates a closed breaker
func New(config Config) *CircuitBreaker {
	return &CircuitBreaker{config: config.withDefaults()}
}

// Execute runs fn unless the breaker rejects the call
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func() error) error {
	_, err := ExecuteWithResult(cb, ctx, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

// ExecuteWithResult runs fn unless the breaker rejects the call, and records its outcome
func ExecuteWithResult[T any](cb *CircuitBreaker, ctx context.Context, fn func() (T, error)) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}
	if err := cb.admit(); err != nil {
		return zero, err
	}

	result, err := fn()
	cb.record(err)
	return result, err
}

func (cb *CircuitBreaker) admit() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateOpen {
		if time.Since(cb.openedAt) < cb.config.Timeout {
			return ErrCircuitOpen
		}
		cb.moveTo(StateHalfOpen)
	}
	if cb.state == StateHalfOpen {
		if cb.inFlight >= cb.config.MaxHalfOpenRequests {
			return ErrTooManyRequests
		}
		cb.inFlight++
	}
	return nil
}

func (cb *CircuitBreaker) record(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	failed := err != nil && (cb.config.IsFailure == nil || cb.config.IsFailure(err))

	switch cb.state {
	case StateClosed:
		if !failed {
			cb.failures = 0
			return
		}
		cb.failures++
		if cb.failures >= cb.config.MaxFailures {
			cb.moveTo(StateOpen)
		}
	case StateHalfOpen:
		if failed {
			cb.failures++
			cb.moveTo(StateOpen)
			return
		}
		cb.passed++
		if cb.passed >= cb.config.MaxHalfOpenRequests {
			cb.moveTo(StateClosed)
		}
	}
}

// moveTo must be called with mu held
func (cb *CircuitBreaker) moveTo(next State) {
	if cb.state == next {
		return
	}
	prev := cb.state
	cb.state = next
	cb.inFlight, cb.passed = 0, 0

	switch next {
	case StateClosed:
		cb.failures = 0
	case StateOpen:
		cb.openedAt = time.Now()
	}

	if cb.config.OnStateChange != nil {
		cb.config.OnStateChange(cb.config.Name, prev, next)
	}
}

// State returns the current state
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Failures returns the counted failures since the breaker last closed
func (cb *CircuitBreaker) Failures() int {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.failures
}

// Reset closes the breaker
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.moveTo(StateClosed)
}

// Stats is a snapshot of one circuit breaker
type Stats struct {
	State    string `json:"state"`
	Failures int    `json:"failures"`
}

// Registry holds the named breakers of one process
type Registry struct {
	mu       sync.Mutex
	breakers map[string]*CircuitBreaker
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{breakers: make(map[string]*CircuitBreaker)}
}

// Get returns the breaker registered under name. The config is only used
// the first time a name is seen.
func (r *Registry) Get(name string, config ...Config) *CircuitBreaker {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cb, ok := r.breakers[name]; ok {
		return cb
	}

	cfg := DefaultConfig(name)
	if len(config) > 0 {
		cfg = config[0]
	}
	cb := New(cfg)
	r.breakers[name] = cb
	return cb
}

// Stats snapshots every registered breaker
func (r *Registry) Stats() map[string]Stats {
	r.mu.Lock()
	defer r.mu.Unlock()

	stats := make(map[string]Stats, len(r.breakers))
	for name, cb := range r.breakers {
		stats[name] = Stats{State: cb.State().String(), Failures: cb.Failures()}
	}
	return stats
}
