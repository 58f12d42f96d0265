package cliconfig

import "os"

// ApplyEnvConfig applies configuration from environment variables (ROLEKEEPER_*).
// It respects flags that have been explicitly set (changed map).
// Returns error if any environment variable has an invalid format.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("inventory", os.Getenv("ROLEKEEPER_INVENTORY"), &cfg.Inventory)
	s.setString("state-dir", os.Getenv("ROLEKEEPER_STATE_DIR"), &cfg.StateDir)
	s.setString("log-level", os.Getenv("ROLEKEEPER_LOG_LEVEL"), &cfg.LogLevel)
	s.setString("election", os.Getenv("ROLEKEEPER_ELECTION"), &cfg.Election)
	s.setString("namespace", os.Getenv("ROLEKEEPER_NAMESPACE"), &cfg.Namespace)
	s.setString("lease-prefix", os.Getenv("ROLEKEEPER_LEASE_PREFIX"), &cfg.LeasePrefix)
	s.setString("identity", os.Getenv("ROLEKEEPER_IDENTITY"), &cfg.Identity)
	s.setString("kubeconfig", os.Getenv("ROLEKEEPER_KUBECONFIG"), &cfg.Kubeconfig)

	if err := s.setDuration("lease-duration", os.Getenv("ROLEKEEPER_LEASE_DURATION"), &cfg.LeaseDuration); err != nil {
		return err
	}
	if err := s.setDuration("renew-deadline", os.Getenv("ROLEKEEPER_RENEW_DEADLINE"), &cfg.RenewDeadline); err != nil {
		return err
	}
	if err := s.setDuration("retry-period", os.Getenv("ROLEKEEPER_RETRY_PERIOD"), &cfg.RetryPeriod); err != nil {
		return err
	}
	if err := s.setDuration("timeout", os.Getenv("ROLEKEEPER_HTTP_TIMEOUT"), &cfg.HTTPTimeout); err != nil {
		return err
	}

	if err := s.setIntFromString("workers", os.Getenv("ROLEKEEPER_WORKERS"), &cfg.Workers); err != nil {
		return err
	}
	if err := s.setIntFromString("queue-size", os.Getenv("ROLEKEEPER_QUEUE_SIZE"), &cfg.QueueSize); err != nil {
		return err
	}
	if err := s.setIntFromString("rate-burst", os.Getenv("ROLEKEEPER_RATE_BURST"), &cfg.RateBurst); err != nil {
		return err
	}
	if err := s.setFloatFromString("rate-limit", os.Getenv("ROLEKEEPER_RATE_LIMIT"), &cfg.RateLimit); err != nil {
		return err
	}

	s.setBoolFromString("watch", os.Getenv("ROLEKEEPER_WATCH"), &cfg.Watch)

	return nil
}
