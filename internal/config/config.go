// Package config provides configuration management for walletgate using
// Viper for flexible loading from files, environment variables, and
// command-line flags.
//
// The configuration system supports YAML files and environment variable
// overrides with the WALLETGATE_ prefix. It manages transport settings,
// admission-control policies, and logging options, and can hot-reload the
// policy file at runtime.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/conneroisu/walletgate/internal/errors"
	"github.com/conneroisu/walletgate/internal/ratelimit"
)

type Config struct {
	Logging   LoggingConfig   `yaml:"logging" mapstructure:"logging"`
	Transport TransportConfig `yaml:"transport" mapstructure:"transport"`
	RateLimit RateLimitConfig `yaml:"rate_limit" mapstructure:"rate_limit"`
}

type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

type TransportConfig struct {
	// Kind selects the transport variant: relay, port, or socket.
	Kind          string `yaml:"kind" mapstructure:"kind"`
	SocketURL     string `yaml:"socket_url" mapstructure:"socket_url"`
	TrustedOrigin string `yaml:"trusted_origin" mapstructure:"trusted_origin"`
	SelfOrigin    string `yaml:"self_origin" mapstructure:"self_origin"`
}

type RateLimitConfig struct {
	// PolicyFile optionally points at a YAML file of per-operation
	// policies watched for changes at runtime.
	PolicyFile string            `yaml:"policy_file" mapstructure:"policy_file"`
	Policies   map[string]Policy `yaml:"policies" mapstructure:"policies"`
}

// Policy is the file representation of one admission policy. Durations are
// in milliseconds to match the wire shape callers see.
type Policy struct {
	MaxRequests           int     `yaml:"max_requests" mapstructure:"max_requests"`
	WindowMs              int     `yaml:"window_ms" mapstructure:"window_ms"`
	BurstSize             int     `yaml:"burst_size" mapstructure:"burst_size"`
	PenaltyMultiplier     float64 `yaml:"penalty_multiplier" mapstructure:"penalty_multiplier"`
	MaxPenaltyMs          int     `yaml:"max_penalty_ms" mapstructure:"max_penalty_ms"`
	BlockDurationMs       int     `yaml:"block_duration_ms" mapstructure:"block_duration_ms"`
	ViolationsBeforeBlock int     `yaml:"violations_before_block" mapstructure:"violations_before_block"`
	PerOrigin             *bool   `yaml:"per_origin" mapstructure:"per_origin"`
	PerOperation          bool    `yaml:"per_operation" mapstructure:"per_operation"`
}

// ToLimiterConfig converts a file policy to a limiter configuration.
// Unset escalation fields fall back to the limiter defaults; per-origin
// tracking defaults to on.
func (p Policy) ToLimiterConfig() *ratelimit.Config {
	perOrigin := true
	if p.PerOrigin != nil {
		perOrigin = *p.PerOrigin
	}

	return &ratelimit.Config{
		MaxRequests:           p.MaxRequests,
		Window:                time.Duration(p.WindowMs) * time.Millisecond,
		BurstSize:             p.BurstSize,
		PenaltyMultiplier:     p.PenaltyMultiplier,
		MaxPenalty:            time.Duration(p.MaxPenaltyMs) * time.Millisecond,
		BlockDuration:         time.Duration(p.BlockDurationMs) * time.Millisecond,
		ViolationsBeforeBlock: p.ViolationsBeforeBlock,
		PerOrigin:             perOrigin,
		PerOperation:          p.PerOperation,
	}
}

// Load builds a Config from whatever viper has already read (config file,
// environment, bound flags) and applies defaults.
func Load() (*Config, error) {
	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	if config.Logging.Level == "" {
		config.Logging.Level = "info"
	}
	if config.Logging.Format == "" {
		config.Logging.Format = "text"
	}
	if config.Transport.Kind == "" {
		config.Transport.Kind = "socket"
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate checks cross-field consistency.
func (c *Config) Validate() error {
	switch c.Transport.Kind {
	case "relay", "port", "socket":
	default:
		return errors.NewConfigError(
			errors.ErrCodeConfigInvalid,
			fmt.Sprintf("unknown transport kind %q", c.Transport.Kind),
		)
	}

	if c.Transport.Kind == "socket" && c.Transport.SocketURL == "" {
		return errors.NewConfigError(
			errors.ErrCodeConfigInvalid,
			"transport.socket_url is required for the socket transport",
		)
	}

	if c.Transport.Kind == "relay" && c.Transport.TrustedOrigin == "" {
		return errors.NewConfigError(
			errors.ErrCodeConfigInvalid,
			"transport.trusted_origin is required for the relay transport",
		)
	}

	for name, policy := range c.RateLimit.Policies {
		if policy.MaxRequests < 0 || policy.WindowMs < 0 || policy.BurstSize < 0 {
			return errors.NewConfigError(
				errors.ErrCodeConfigInvalid,
				fmt.Sprintf("policy %q has negative limits", name),
			)
		}
	}

	return nil
}

// EffectivePolicy returns the configured policy for an operation, falling
// back to the built-in presets.
func (c *Config) EffectivePolicy(operation string) *ratelimit.Config {
	if policy, ok := c.RateLimit.Policies[operation]; ok {
		return policy.ToLimiterConfig()
	}

	return ratelimit.PolicyFor(operation)
}
