// Package breaker provides per-(agent, operation) circuit breakers guarding
// collaborator-facing calls. Composition is explicit: callers wrap outbound
// work in Execute rather than relying on interception.
package breaker

import (
	"fmt"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// State represents the state of one circuit.
type State int

// Circuit states for managing collaborator failure patterns.
const (
	Closed   State = iota // Normal operation
	Open                  // Failing, reject requests
	HalfOpen              // Cooldown elapsed, single trial allowed
)

func (s State) String() string {
	switch s {
	case Closed:
		return "CLOSED"
	case Open:
		return "OPEN"
	case HalfOpen:
		return "HALF_OPEN"
	default:
		return "UNKNOWN"
	}
}

// Config defines circuit breaker behavior. Injectable so tests can exercise
// all three states quickly.
type Config struct {
	FailureThreshold int           `yaml:"failure_threshold"` // failures within Window before opening
	Window           time.Duration `yaml:"window"`            // rolling window for failure counting
	Cooldown         time.Duration `yaml:"cooldown"`          // time to wait before the half-open trial
}

// UnmarshalYAML decodes durations from strings like "30s". Fields absent
// from the document keep their existing values.
func (c *Config) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		FailureThreshold *int    `yaml:"failure_threshold"`
		Window           *string `yaml:"window"`
		Cooldown         *string `yaml:"cooldown"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	if raw.FailureThreshold != nil {
		c.FailureThreshold = *raw.FailureThreshold
	}
	if raw.Window != nil {
		d, err := time.ParseDuration(*raw.Window)
		if err != nil {
			return fmt.Errorf("window: %w", err)
		}
		c.Window = d
	}
	if raw.Cooldown != nil {
		d, err := time.ParseDuration(*raw.Cooldown)
		if err != nil {
			return fmt.Errorf("cooldown: %w", err)
		}
		c.Cooldown = d
	}
	return nil
}

// DefaultConfig provides reasonable defaults.
func DefaultConfig() Config {
	return Config{
		FailureThreshold: 5,
		Window:           time.Minute,
		Cooldown:         30 * time.Second,
	}
}

// OpenError is returned when a call is rejected because the circuit is open.
type OpenError struct {
	Agent     string
	Operation string
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("circuit open for %s/%s", e.Agent, e.Operation)
}

// circuit tracks failure state for one (agent, operation) key.
type circuit struct {
	state        State
	failures     []time.Time // failure timestamps within the rolling window
	openedAt     time.Time
	trialPending bool // a half-open trial call is in flight
}

// Registry manages independent circuits keyed by (agent, operation).
// Breaker state is local per key and never shared across sessions.
type Registry struct {
	cfg      Config
	now      func() time.Time
	mu       sync.Mutex
	circuits map[string]*circuit
}

// NewRegistry creates a registry with the given configuration.
func NewRegistry(cfg Config) *Registry {
	return NewRegistryWithClock(cfg, time.Now)
}

// NewRegistryWithClock creates a registry with an injectable clock for tests.
func NewRegistryWithClock(cfg Config, now func() time.Time) *Registry {
	return &Registry{
		cfg:      cfg,
		now:      now,
		circuits: make(map[string]*circuit),
	}
}

func key(agent, operation string) string {
	return agent + "/" + operation
}

// Execute runs fn under the circuit for (agent, operation). When the circuit
// is open the call is rejected immediately with *OpenError and fn is never
// invoked.
func (r *Registry) Execute(agent, operation string, fn func() error) error {
	if err := r.allow(agent, operation); err != nil {
		return err
	}

	err := fn()
	r.record(agent, operation, err == nil)
	return err
}

// State returns the current state for a key. Keys that have never been used
// report Closed.
func (r *Registry) State(agent, operation string) State {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, exists := r.circuits[key(agent, operation)]
	if !exists {
		return Closed
	}
	return c.state
}

// Reset closes the circuit for a key and clears its failure history.
func (r *Registry) Reset(agent, operation string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.circuits, key(agent, operation))
}

func (r *Registry) allow(agent, operation string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	k := key(agent, operation)
	c, exists := r.circuits[k]
	if !exists {
		c = &circuit{state: Closed}
		r.circuits[k] = c
	}

	switch c.state {
	case Closed:
		return nil

	case Open:
		if r.now().Sub(c.openedAt) >= r.cfg.Cooldown {
			c.state = HalfOpen
			c.trialPending = true
			return nil
		}
		return &OpenError{Agent: agent, Operation: operation}

	case HalfOpen:
		// Only one trial call at a time while half-open.
		if c.trialPending {
			return &OpenError{Agent: agent, Operation: operation}
		}
		c.trialPending = true
		return nil

	default:
		return &OpenError{Agent: agent, Operation: operation}
	}
}

func (r *Registry) record(agent, operation string, success bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, exists := r.circuits[key(agent, operation)]
	if !exists {
		return
	}

	switch c.state {
	case Closed:
		if success {
			c.failures = nil
			return
		}
		now := r.now()
		c.failures = append(c.failures, now)
		c.failures = prune(c.failures, now.Add(-r.cfg.Window))
		if len(c.failures) >= r.cfg.FailureThreshold {
			c.state = Open
			c.openedAt = now
			c.failures = nil
		}

	case HalfOpen:
		c.trialPending = false
		if success {
			c.state = Closed
			c.failures = nil
		} else {
			// Trial failed: back to open with a fresh cooldown.
			c.state = Open
			c.openedAt = r.now()
		}
	}
}

// prune drops failure timestamps older than the cutoff.
func prune(failures []time.Time, cutoff time.Time) []time.Time {
	kept := failures[:0]
	for _, ts := range failures {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	return kept
}
