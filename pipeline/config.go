package pipeline

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that unmarshals from YAML strings like "90s"
// or "5m".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (duration *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*duration = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (duration Duration) MarshalYAML() (any, error) {
	return time.Duration(duration).String(), nil
}

// PhaseConfig overrides engine defaults for one phase. Zero values leave the
// engine defaults in place; Required is a pointer so "unset" and "false" are
// distinguishable.
type PhaseConfig struct {
	Timeout    Duration `yaml:"timeout,omitempty"`
	Retries    int      `yaml:"retries,omitempty"`
	RetryDelay Duration `yaml:"retry_delay,omitempty"`
	Required   *bool    `yaml:"required,omitempty"`
}

// Config is the pipeline configuration surface, loadable from YAML.
type Config struct {
	Name        string                `yaml:"name,omitempty"`
	MaxParallel int                   `yaml:"max_parallel,omitempty"`
	Phases      map[Phase]PhaseConfig `yaml:"phases,omitempty"`
}

// DefaultConfig returns a config that defers everything to the engine
// defaults.
func DefaultConfig() *Config {
	return &Config{
		Phases: make(map[Phase]PhaseConfig),
	}
}

// LoadConfig reads and validates a YAML config file.
func LoadConfig(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(raw, config); err != nil {
		return nil, fmt.Errorf("parse config %q: %w", path, err)
	}
	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("config %q: %w", path, err)
	}
	return config, nil
}

func (config *Config) validate() error {
	if config.MaxParallel < 0 {
		return fmt.Errorf("max_parallel must not be negative, got %d", config.MaxParallel)
	}
	for phase, phaseConfig := range config.Phases {
		if !knownPhase(phase) {
			return fmt.Errorf("unknown phase %q in phases", phase)
		}
		if phaseConfig.Retries < 0 {
			return fmt.Errorf("phase %q: retries must not be negative", phase)
		}
	}
	return nil
}

// phase returns the overrides for one phase; absent phases yield the zero
// config, meaning engine defaults.
func (config *Config) phase(phase Phase) PhaseConfig {
	if config.Phases == nil {
		return PhaseConfig{}
	}
	return config.Phases[phase]
}
