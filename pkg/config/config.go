// Package config aggregates the tunable tables for the interview
// orchestrator. Configuration is plain data passed to constructors; there is
// no package-level singleton.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"interviewcoach/pkg/breaker"
	"interviewcoach/pkg/complexity"
	"interviewcoach/pkg/gating"
	"interviewcoach/pkg/semantic"
)

// Config holds every injectable table and knob for one orchestrator
// instance.
type Config struct {
	Complexity complexity.Weights `yaml:"complexity"`
	Hints      semantic.HintTable `yaml:"hints"`
	Gating     gating.Rules       `yaml:"gating"`
	Breaker    breaker.Config     `yaml:"breaker"`

	// DispatchInterval is the mailbox polling tick for collaborator
	// dispatchers.
	DispatchInterval time.Duration `yaml:"dispatch_interval"`

	// SendLatency optionally simulates delivery delay on every send.
	SendLatency time.Duration `yaml:"send_latency"`

	// ArchivePath is the sqlite database for completed-session records.
	// Empty disables archiving.
	ArchivePath string `yaml:"archive_path"`

	// EventLogDir is the directory for the JSONL message log. Empty
	// disables event logging.
	EventLogDir string `yaml:"event_log_dir"`
}

// UnmarshalYAML decodes top-level durations from strings like "50ms" and
// applies nested sections over whatever values the target already holds, so
// partial config files keep defaults for everything they omit.
func (c *Config) UnmarshalYAML(value *yaml.Node) error {
	raw := struct {
		Complexity       *complexity.Weights `yaml:"complexity"`
		Hints            *semantic.HintTable `yaml:"hints"`
		Gating           *gating.Rules       `yaml:"gating"`
		Breaker          *breaker.Config     `yaml:"breaker"`
		DispatchInterval *string             `yaml:"dispatch_interval"`
		SendLatency      *string             `yaml:"send_latency"`
		ArchivePath      *string             `yaml:"archive_path"`
		EventLogDir      *string             `yaml:"event_log_dir"`
	}{
		Complexity: &c.Complexity,
		Hints:      &c.Hints,
		Gating:     &c.Gating,
		Breaker:    &c.Breaker,
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	if raw.DispatchInterval != nil {
		d, err := time.ParseDuration(*raw.DispatchInterval)
		if err != nil {
			return fmt.Errorf("dispatch_interval: %w", err)
		}
		c.DispatchInterval = d
	}
	if raw.SendLatency != nil {
		d, err := time.ParseDuration(*raw.SendLatency)
		if err != nil {
			return fmt.Errorf("send_latency: %w", err)
		}
		c.SendLatency = d
	}
	if raw.ArchivePath != nil {
		c.ArchivePath = *raw.ArchivePath
	}
	if raw.EventLogDir != nil {
		c.EventLogDir = *raw.EventLogDir
	}
	return nil
}

// Default returns the standard configuration.
func Default() Config {
	return Config{
		Complexity:       complexity.DefaultWeights(),
		Hints:            semantic.DefaultHints(),
		Gating:           gating.DefaultRules(),
		Breaker:          breaker.DefaultConfig(),
		DispatchInterval: 50 * time.Millisecond,
	}
}

// Load reads a YAML config file over the defaults. Fields absent from the
// file keep their default values.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks internal consistency.
func (c Config) Validate() error {
	if c.DispatchInterval <= 0 {
		return fmt.Errorf("dispatch_interval must be positive, got %s", c.DispatchInterval)
	}
	if c.SendLatency < 0 {
		return fmt.Errorf("send_latency must not be negative, got %s", c.SendLatency)
	}
	if c.Breaker.FailureThreshold <= 0 {
		return fmt.Errorf("breaker.failure_threshold must be positive, got %d", c.Breaker.FailureThreshold)
	}
	if c.Breaker.Window <= 0 || c.Breaker.Cooldown <= 0 {
		return fmt.Errorf("breaker window and cooldown must be positive")
	}
	if len(c.Complexity.TypeWeights) == 0 || len(c.Complexity.LevelWeights) == 0 {
		return fmt.Errorf("complexity weight tables must not be empty")
	}
	if c.Complexity.LowMax >= c.Complexity.MediumMax {
		return fmt.Errorf("complexity low_max %v must be below medium_max %v", c.Complexity.LowMax, c.Complexity.MediumMax)
	}
	if c.Gating.MinResponseWords <= 0 {
		return fmt.Errorf("gating.min_response_words must be positive, got %d", c.Gating.MinResponseWords)
	}
	return nil
}
