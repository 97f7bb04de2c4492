package config

import (
	"fmt"
	"net"

	"k8s.io/apimachinery/pkg/util/validation"
)

// Validate checks the configuration for common errors and returns a detailed error if validation fails.
func (c *Config) Validate() error {
	if _, err := ParseCredentialSource(string(c.CredentialSource)); err != nil {
		return err
	}

	if err := validateBindAddress("metricsBindAddress", c.MetricsBindAddress); err != nil {
		return err
	}
	if err := validateBindAddress("healthProbeBindAddress", c.HealthProbeBindAddress); err != nil {
		return err
	}

	if c.LeaderElectionEnabled() && c.LeaderElectionID == "" {
		return fmt.Errorf("leaderElectionID is required when leader election is enabled")
	}

	if c.MaxConcurrentReconciles < 1 {
		return fmt.Errorf("maxConcurrentReconciles must be at least 1, got %d", c.MaxConcurrentReconciles)
	}

	if c.WatchNamespace != "" {
		if errs := validation.IsDNS1123Label(c.WatchNamespace); len(errs) > 0 {
			return fmt.Errorf("invalid watchNamespace %q: %v", c.WatchNamespace, errs)
		}
	}

	return nil
}

// validateBindAddress accepts "0" (disabled) or a host:port pair.
func validateBindAddress(field, addr string) error {
	if addr == "0" {
		return nil
	}
	if _, _, err := net.SplitHostPort(addr); err != nil {
		return fmt.Errorf("invalid %s %q: %w", field, addr, err)
	}
	return nil
}
