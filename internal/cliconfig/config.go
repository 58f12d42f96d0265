package cliconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/bft-labs/rolekeeper/internal/adapters/election"
)

// Election backends.
const (
	ElectionLocal      = "local"
	ElectionKubernetes = "kubernetes"
)

// Config holds CLI configuration for rolekeeper.
type Config struct {
	Inventory string
	StateDir  string
	LogLevel  string
	Watch     bool

	Election      string
	Namespace     string
	LeasePrefix   string
	Identity      string
	Kubeconfig    string
	LeaseDuration time.Duration
	RenewDeadline time.Duration
	RetryPeriod   time.Duration

	Workers   int
	QueueSize int

	HTTPTimeout time.Duration
	RateLimit   float64
	RateBurst   int
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		LogLevel:      "info",
		Election:      ElectionLocal,
		Namespace:     election.DefaultNamespace,
		LeasePrefix:   election.DefaultLeasePrefix,
		LeaseDuration: election.DefaultLeaseDuration,
		RenewDeadline: election.DefaultRenewDeadline,
		RetryPeriod:   election.DefaultRetryPeriod,
		Workers:       4,
		QueueSize:     256,
		HTTPTimeout:   10 * time.Second,
		RateLimit:     20,
		RateBurst:     5,
		StateDir:      "", // Derived from the home directory during Validate
	}
}

// Validate checks the configuration for errors and sets derived defaults.
func (c *Config) Validate() error {
	if c.Inventory == "" {
		return fmt.Errorf("inventory is required")
	}

	if c.StateDir == "" {
		c.StateDir = DefaultStateDir()
	}
	if c.StateDir == "" {
		return fmt.Errorf("state-dir is required (home directory unavailable)")
	}

	c.Election = strings.ToLower(strings.TrimSpace(c.Election))
	switch c.Election {
	case "":
		c.Election = ElectionLocal
	case ElectionLocal, ElectionKubernetes:
	default:
		return fmt.Errorf("unknown election backend %q (want %s or %s)", c.Election, ElectionLocal, ElectionKubernetes)
	}

	if c.Election == ElectionKubernetes {
		if c.LeaseDuration <= c.RenewDeadline {
			return fmt.Errorf("lease duration must be greater than renew deadline")
		}
		if c.RetryPeriod <= 0 {
			return fmt.Errorf("retry period must be positive")
		}
	}

	if c.Workers <= 0 {
		return fmt.Errorf("workers must be positive")
	}
	if c.QueueSize <= 0 {
		return fmt.Errorf("queue size must be positive")
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("http timeout must be positive")
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("rate limit must not be negative")
	}

	return nil
}

// DefaultStateDir returns ~/.rolekeeper, or "" if the home directory is not
// accessible.
func DefaultStateDir() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".rolekeeper")
	}
	return ""
}

// configSetter applies configuration values while respecting flag precedence.
// It only applies values if the corresponding flag hasn't been explicitly set.
type configSetter struct {
	changed map[string]bool
}

func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setInt sets an int value if positive and flag not changed.
func (s *configSetter) setInt(flag string, value int, dst *int) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setFloat sets a float64 value if positive and flag not changed.
func (s *configSetter) setFloat(flag string, value float64, dst *float64) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setDuration parses and sets a duration from string if valid and flag not changed.
func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

// setBool sets a bool value from a pointer if not nil and flag not changed.
func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setIntFromString parses an environment value and sets dst if positive.
func (s *configSetter) setIntFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if i <= 0 {
		return nil
	}
	*dst = i
	return nil
}

// setFloatFromString parses an environment value and sets dst if positive.
func (s *configSetter) setFloatFromString(flag, value string, dst *float64) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if f <= 0 {
		return nil
	}
	*dst = f
	return nil
}

// setBoolFromString accepts "true" and "1" as true, anything else as false.
func (s *configSetter) setBoolFromString(flag, value string, dst *bool) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value == "true" || value == "1"
}
