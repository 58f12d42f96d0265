package cliconfig

import (
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config but uses strings for durations to make TOML friendly.
type FileConfig struct {
	Inventory     string  `toml:"inventory"`
	StateDir      string  `toml:"state_dir"`
	LogLevel      string  `toml:"log_level"`
	Watch         *bool   `toml:"watch"`
	Election      string  `toml:"election"`
	Namespace     string  `toml:"namespace"`
	LeasePrefix   string  `toml:"lease_prefix"`
	Identity      string  `toml:"identity"`
	Kubeconfig    string  `toml:"kubeconfig"`
	LeaseDuration string  `toml:"lease_duration"`
	RenewDeadline string  `toml:"renew_deadline"`
	RetryPeriod   string  `toml:"retry_period"`
	Workers       int     `toml:"workers"`
	QueueSize     int     `toml:"queue_size"`
	HTTPTimeout   string  `toml:"http_timeout"`
	RateLimit     float64 `toml:"rate_limit"`
	RateBurst     int     `toml:"rate_burst"`
}

// LoadFileConfig reads and parses a TOML config file from the given path.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// DefaultConfigPath returns ~/.rolekeeper/config.toml if the user home
// directory is accessible.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".rolekeeper", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("inventory", fc.Inventory, &cfg.Inventory)
	s.setString("state-dir", fc.StateDir, &cfg.StateDir)
	s.setString("log-level", fc.LogLevel, &cfg.LogLevel)
	s.setString("election", fc.Election, &cfg.Election)
	s.setString("namespace", fc.Namespace, &cfg.Namespace)
	s.setString("lease-prefix", fc.LeasePrefix, &cfg.LeasePrefix)
	s.setString("identity", fc.Identity, &cfg.Identity)
	s.setString("kubeconfig", fc.Kubeconfig, &cfg.Kubeconfig)

	if err := s.setDuration("lease-duration", fc.LeaseDuration, &cfg.LeaseDuration); err != nil {
		return err
	}
	if err := s.setDuration("renew-deadline", fc.RenewDeadline, &cfg.RenewDeadline); err != nil {
		return err
	}
	if err := s.setDuration("retry-period", fc.RetryPeriod, &cfg.RetryPeriod); err != nil {
		return err
	}
	if err := s.setDuration("timeout", fc.HTTPTimeout, &cfg.HTTPTimeout); err != nil {
		return err
	}

	s.setInt("workers", fc.Workers, &cfg.Workers)
	s.setInt("queue-size", fc.QueueSize, &cfg.QueueSize)
	s.setInt("rate-burst", fc.RateBurst, &cfg.RateBurst)
	s.setFloat("rate-limit", fc.RateLimit, &cfg.RateLimit)

	s.setBool("watch", fc.Watch, &cfg.Watch)

	return nil
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
