// Copyright 2026 The StageGate Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides configuration loading for StageGate
// services.
//
// Configuration is loaded from a single file specified by:
//   - STAGEGATE_CONFIG environment variable, or
//   - --config flag passed to the command
//
// There are no fallbacks or automatic discovery. This ensures
// deterministic, auditable configuration with no hidden overrides.
//
// The config file may contain environment-specific sections
// (development, staging, production) that override base values when
// the environment matches.
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/stagegate-io/stagegate/lib/sealed"
	"github.com/stagegate-io/stagegate/lib/tenant"
)

// Environment represents the deployment environment.
type Environment string

const (
	// Development is for local development machines.
	Development Environment = "development"
	// Staging is for pre-production testing.
	Staging Environment = "staging"
	// Production is for production deployments.
	Production Environment = "production"
)

// Config is the master configuration for StageGate services.
type Config struct {
	// Environment identifies the deployment type (development,
	// staging, production).
	Environment Environment `yaml:"environment"`

	// LogLevel sets the minimum log level: debug, info, warn, error.
	LogLevel string `yaml:"log_level"`

	// Redis configures the backing store connection.
	Redis RedisConfig `yaml:"redis"`

	// Stream configures the pipeline event stream.
	Stream StreamConfig `yaml:"stream"`

	// Audit configures the audit trail.
	Audit AuditConfig `yaml:"audit"`

	// Tenancy configures tenant isolation.
	Tenancy TenancyConfig `yaml:"tenancy"`

	// Sweep configures the gate expiry sweeper.
	Sweep SweepConfig `yaml:"sweep"`

	// StagesFile is an optional JSONC stage definition replacing the
	// built-in five-stage pipeline.
	StagesFile string `yaml:"stages_file"`

	// EnvironmentOverrides contains per-environment overrides.
	// These are applied after the base config is loaded.
	Development *ConfigOverrides `yaml:"development,omitempty"`
	Staging     *ConfigOverrides `yaml:"staging,omitempty"`
	Production  *ConfigOverrides `yaml:"production,omitempty"`
}

// ConfigOverrides contains fields that can be overridden per
// environment.
type ConfigOverrides struct {
	LogLevel string         `yaml:"log_level,omitempty"`
	Redis    *RedisConfig   `yaml:"redis,omitempty"`
	Stream   *StreamConfig  `yaml:"stream,omitempty"`
	Audit    *AuditConfig   `yaml:"audit,omitempty"`
	Tenancy  *TenancyConfig `yaml:"tenancy,omitempty"`
	Sweep    *SweepConfig   `yaml:"sweep,omitempty"`
}

// RedisConfig configures the backing store connection.
type RedisConfig struct {
	// Addr is the host:port of the Redis server.
	// Default: localhost:6379
	Addr string `yaml:"addr"`

	// Password is the plaintext connection password. Prefer
	// PasswordFile outside development.
	Password string `yaml:"password"`

	// PasswordFile is the path to an age-encrypted file holding the
	// password. Takes effect only when Password is empty.
	PasswordFile string `yaml:"password_file"`

	// IdentityFile is the path to the age identity file that
	// decrypts PasswordFile.
	IdentityFile string `yaml:"identity_file"`

	// DB selects the Redis logical database.
	DB int `yaml:"db"`
}

// StreamConfig configures the pipeline event stream.
type StreamConfig struct {
	// Name is the default stream name gate events publish to.
	// Default: pipeline
	Name string `yaml:"name"`

	// PublishMaxLen bounds the live stream length.
	// Default: 10000
	PublishMaxLen int64 `yaml:"publish_max_len"`

	// BootstrapMaxLen bounds streams created by the bootstrap
	// placeholder. Default: 8
	BootstrapMaxLen int64 `yaml:"bootstrap_max_len"`
}

// AuditConfig configures the audit trail.
type AuditConfig struct {
	// StreamMaxLen bounds the global audit stream. The per-task
	// history lists are never trimmed. Default: 100000
	StreamMaxLen int64 `yaml:"stream_max_len"`
}

// TenancyConfig configures tenant isolation.
type TenancyConfig struct {
	// Enabled turns on per-tenant key namespacing.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// DefaultTenant is the namespace used for requests that carry no
	// tenant. Default: default
	DefaultTenant string `yaml:"default_tenant"`
}

// SweepConfig configures the gate expiry sweeper.
type SweepConfig struct {
	// Interval is the delay between expiry sweeps, as a Go duration
	// string. Default: 30s
	Interval string `yaml:"interval"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Environment: Development,
		LogLevel:    "info",
		Redis: RedisConfig{
			Addr: "localhost:6379",
		},
		Stream: StreamConfig{
			Name:            "pipeline",
			PublishMaxLen:   10000,
			BootstrapMaxLen: 8,
		},
		Audit: AuditConfig{
			StreamMaxLen: 100000,
		},
		Tenancy: TenancyConfig{
			Enabled:       false,
			DefaultTenant: "default",
		},
		Sweep: SweepConfig{
			Interval: "30s",
		},
	}
}

// Load loads configuration from the STAGEGATE_CONFIG environment
// variable.
//
// This is the only way to load configuration without an explicit
// path. There are no fallbacks or defaults - if STAGEGATE_CONFIG is
// not set, this fails. This ensures deterministic, auditable
// configuration with no hidden overrides.
func Load() (*Config, error) {
	configPath := os.Getenv("STAGEGATE_CONFIG")
	if configPath == "" {
		return nil, fmt.Errorf("STAGEGATE_CONFIG environment variable not set; " +
			"set it to the path of your stagegate.yaml config file, or use --config flag")
	}

	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path.
//
// The config file is the single source of truth. Environment
// variables do not override config values. The only expansion
// performed is ${HOME} and similar variables in paths for
// portability.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}

	// Apply environment-specific overrides (development/staging/
	// production sections in the file).
	cfg.applyEnvironmentOverrides()

	// Expand ${HOME} and similar variables in paths.
	cfg.expandVariables()

	return cfg, nil
}

// loadFile loads a single configuration file, merging into the
// current config.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	return yaml.Unmarshal(data, c)
}

// applyEnvironmentOverrides applies the environment-specific
// overrides.
func (c *Config) applyEnvironmentOverrides() {
	var overrides *ConfigOverrides

	switch c.Environment {
	case Development:
		overrides = c.Development
	case Staging:
		overrides = c.Staging
	case Production:
		overrides = c.Production
	}

	if overrides == nil {
		return
	}

	if overrides.LogLevel != "" {
		c.LogLevel = overrides.LogLevel
	}

	if overrides.Redis != nil {
		if overrides.Redis.Addr != "" {
			c.Redis.Addr = overrides.Redis.Addr
		}
		if overrides.Redis.Password != "" {
			c.Redis.Password = overrides.Redis.Password
		}
		if overrides.Redis.PasswordFile != "" {
			c.Redis.PasswordFile = overrides.Redis.PasswordFile
		}
		if overrides.Redis.IdentityFile != "" {
			c.Redis.IdentityFile = overrides.Redis.IdentityFile
		}
		if overrides.Redis.DB != 0 {
			c.Redis.DB = overrides.Redis.DB
		}
	}

	if overrides.Stream != nil {
		if overrides.Stream.Name != "" {
			c.Stream.Name = overrides.Stream.Name
		}
		if overrides.Stream.PublishMaxLen != 0 {
			c.Stream.PublishMaxLen = overrides.Stream.PublishMaxLen
		}
		if overrides.Stream.BootstrapMaxLen != 0 {
			c.Stream.BootstrapMaxLen = overrides.Stream.BootstrapMaxLen
		}
	}

	if overrides.Audit != nil {
		if overrides.Audit.StreamMaxLen != 0 {
			c.Audit.StreamMaxLen = overrides.Audit.StreamMaxLen
		}
	}

	if overrides.Tenancy != nil {
		// Enabled is a bool, so we always apply it from overrides.
		c.Tenancy.Enabled = overrides.Tenancy.Enabled
		if overrides.Tenancy.DefaultTenant != "" {
			c.Tenancy.DefaultTenant = overrides.Tenancy.DefaultTenant
		}
	}

	if overrides.Sweep != nil {
		if overrides.Sweep.Interval != "" {
			c.Sweep.Interval = overrides.Sweep.Interval
		}
	}
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns in
// path-valued fields.
func (c *Config) expandVariables() {
	vars := map[string]string{
		"HOME": os.Getenv("HOME"),
	}

	c.Redis.PasswordFile = expandVars(c.Redis.PasswordFile, vars)
	c.Redis.IdentityFile = expandVars(c.Redis.IdentityFile, vars)
	c.StagesFile = expandVars(c.StagesFile, vars)
}

// expandVars expands ${VAR} and ${VAR:-default} patterns.
var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		// Check provided vars first, then environment.
		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// logLevels are the accepted log_level values.
var logLevels = []string{"debug", "info", "warn", "error"}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.Environment != Development && c.Environment != Staging && c.Environment != Production {
		errs = append(errs, fmt.Errorf("invalid environment: %s", c.Environment))
	}

	if !contains(logLevels, c.LogLevel) {
		errs = append(errs, fmt.Errorf("log_level must be one of: %v", logLevels))
	}

	if c.Redis.Addr == "" {
		errs = append(errs, fmt.Errorf("redis.addr is required"))
	}
	if c.Redis.PasswordFile != "" && c.Redis.IdentityFile == "" {
		errs = append(errs, fmt.Errorf("redis.identity_file is required when redis.password_file is set"))
	}

	if c.Stream.Name == "" {
		errs = append(errs, fmt.Errorf("stream.name is required"))
	}
	if c.Stream.PublishMaxLen <= 0 {
		errs = append(errs, fmt.Errorf("stream.publish_max_len must be positive"))
	}
	if c.Stream.BootstrapMaxLen <= 0 {
		errs = append(errs, fmt.Errorf("stream.bootstrap_max_len must be positive"))
	}

	if c.Audit.StreamMaxLen <= 0 {
		errs = append(errs, fmt.Errorf("audit.stream_max_len must be positive"))
	}

	if err := tenant.Tenant(c.Tenancy.DefaultTenant).Validate(); err != nil {
		errs = append(errs, fmt.Errorf("tenancy.default_tenant: %w", err))
	}

	if interval, err := time.ParseDuration(c.Sweep.Interval); err != nil {
		errs = append(errs, fmt.Errorf("sweep.interval: %w", err))
	} else if interval <= 0 {
		errs = append(errs, fmt.Errorf("sweep.interval must be positive"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// SweepInterval returns the parsed sweep interval. Call Validate
// first; an unparseable interval falls back to the default here.
func (c *Config) SweepInterval() time.Duration {
	interval, err := time.ParseDuration(c.Sweep.Interval)
	if err != nil || interval <= 0 {
		return 30 * time.Second
	}
	return interval
}

// ResolveRedisPassword returns the connection password: the inline
// value when set, otherwise the decrypted contents of PasswordFile,
// otherwise empty.
func (c *Config) ResolveRedisPassword() (string, error) {
	if c.Redis.Password != "" {
		return c.Redis.Password, nil
	}
	if c.Redis.PasswordFile == "" {
		return "", nil
	}

	identities, err := sealed.LoadIdentities(c.Redis.IdentityFile)
	if err != nil {
		return "", fmt.Errorf("config: loading redis identity: %w", err)
	}
	password, err := sealed.DecryptFile(c.Redis.PasswordFile, identities)
	if err != nil {
		return "", fmt.Errorf("config: decrypting redis password: %w", err)
	}
	return string(password), nil
}

func contains(slice []string, s string) bool {
	for _, v := range slice {
		if v == s {
			return true
		}
	}
	return false
}
