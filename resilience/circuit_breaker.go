package resilience

import (
	"errors"
	"sync"
	"time"
)

// State is a circuit breaker position.
type State int

const (
	StateClosed   State = iota // calls pass
	StateOpen                  // calls fail fast until the cool-down ends
	StateHalfOpen              // a few probe calls decide whether to close
)

var stateNames = [...]string{StateClosed: "closed", StateOpen: "open", StateHalfOpen: "half-open"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// ErrCircuitOpen is returned instead of calling a dependency that keeps
// failing.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// CircuitBreakerConfig configures a CircuitBreaker.
type CircuitBreakerConfig struct {
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
	// MaxFailures consecutive failures open the circuit.
	MaxFailures int `yaml:"max_failures" mapstructure:"max_failures"`
	// Timeout is how long the circuit stays open before probing.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
	// HalfOpenMaxCalls successful probes close the circuit.
	HalfOpenMaxCalls int `yaml:"half_open_max_calls" mapstructure:"half_open_max_calls"`

	// IsFailure selects the errors that count. Nil counts every error.
	IsFailure     func(error) bool                  `yaml:"-" mapstructure:"-"`
	OnStateChange func(name string, from, to State) `yaml:"-" mapstructure:"-"`
}

// ApplyDefaults opens after 5 failures for 30s and closes after one probe.
func (c *CircuitBreakerConfig) ApplyDefaults() {
	if c.MaxFailures <= 0 {
		c.MaxFailures = 5
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.HalfOpenMaxCalls <= 0 {
		c.HalfOpenMaxCalls = 1
	}
}

// CircuitBreaker fails fast while a dependency keeps failing.
type CircuitBreaker struct {
	name string
	cfg  CircuitBreakerConfig
	now  func() time.Time

	mu       sync.Mutex
	state    State
	failures int
	openedAt time.Time
	// admitted and passed count half-open probes.
	admitted int
	passed   int
}

func NewCircuitBreaker(name string, cfg CircuitBreakerConfig) *CircuitBreaker {
	cfg.ApplyDefaults()
	return &CircuitBreaker{name: name, cfg: cfg, now: time.Now}
}

// Execute calls fn unless the circuit is open, and records its outcome.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	if !cb.admit() {
		return ErrCircuitOpen
	}
	err := fn()
	cb.observe(err != nil && (cb.cfg.IsFailure == nil || cb.cfg.IsFailure(err)))
	return err
}

func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.refresh()
}

// Reset closes the circuit.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.moveTo(StateClosed)
	cb.failures = 0
}

func (cb *CircuitBreaker) admit() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	switch cb.refresh() {
	case StateClosed:
		return true
	case StateHalfOpen:
		if cb.admitted >= cb.cfg.HalfOpenMaxCalls {
			return false
		}
		cb.admitted++
		return true
	default:
		return false
	}
}

func (cb *CircuitBreaker) observe(failed bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	state := cb.refresh()

	if failed {
		cb.failures++
		if state == StateHalfOpen || cb.failures >= cb.cfg.MaxFailures {
			cb.openedAt = cb.now()
			cb.moveTo(StateOpen)
		}
		return
	}
	switch state {
	case StateClosed:
		cb.failures = 0
	case StateHalfOpen:
		if cb.passed++; cb.passed >= cb.cfg.HalfOpenMaxCalls {
			cb.moveTo(StateClosed)
		}
	}
}

// refresh moves an open circuit to half-open once the cool-down has
// elapsed. mu must be held.
func (cb *CircuitBreaker) refresh() State {
	if cb.state == StateOpen && !cb.now().Before(cb.openedAt.Add(cb.cfg.Timeout)) {
		cb.moveTo(StateHalfOpen)
	}
	return cb.state
}

func (cb *CircuitBreaker) moveTo(to State) {
	from := cb.state
	if from == to {
		return
	}
	cb.state, cb.admitted, cb.passed = to, 0, 0
	if to == StateClosed {
		cb.failures = 0
	}
	if cb.cfg.OnStateChange != nil {
		cb.cfg.OnStateChange(cb.name, from, to)
	}
}
