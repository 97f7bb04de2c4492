package config

import (
	"fmt"
	"strings"
)

// DefaultConfigFilename is the default configuration filename.
const DefaultConfigFilename = "noria-operator.yaml"

// Defaults applied by Default.
const (
	DefaultMetricsBindAddress      = ":8080"
	DefaultHealthProbeBindAddress  = ":8081"
	DefaultLeaderElectionID        = "noria-operator"
	DefaultMaxConcurrentReconciles = 1
)

// CredentialSource selects where the operator finds its API credentials.
type CredentialSource string

const (
	// CredentialSourceKubeconfig uses the standard kubeconfig loading rules
	// ($KUBECONFIG, then ~/.kube/config).
	CredentialSourceKubeconfig CredentialSource = "kubeconfig"

	// CredentialSourceServiceAccount uses the in-cluster service account.
	CredentialSourceServiceAccount CredentialSource = "serviceaccount"
)

// CredentialSources lists the accepted credential sources.
var CredentialSources = []CredentialSource{CredentialSourceKubeconfig, CredentialSourceServiceAccount}

// ParseCredentialSource parses s case-insensitively.
func ParseCredentialSource(s string) (CredentialSource, error) {
	for _, src := range CredentialSources {
		if strings.EqualFold(s, string(src)) {
			return src, nil
		}
	}
	return "", fmt.Errorf("invalid credential source %q: must be one of %v", s, CredentialSources)
}

// Config is the operator configuration.
type Config struct {
	// MetricsBindAddress is where the prometheus endpoint listens. "0" disables it.
	MetricsBindAddress string `yaml:"metricsBindAddress"`

	// HealthProbeBindAddress is where healthz and readyz listen.
	HealthProbeBindAddress string `yaml:"healthProbeBindAddress"`

	// LeaderElection enables leader election. Nil means enabled.
	LeaderElection *bool `yaml:"leaderElection"`

	// LeaderElectionID names the election lease.
	LeaderElectionID string `yaml:"leaderElectionID"`

	// CredentialSource is kubeconfig or serviceaccount.
	CredentialSource CredentialSource `yaml:"credentialSource"`

	// MaxConcurrentReconciles bounds parallel cluster reconciles.
	MaxConcurrentReconciles int `yaml:"maxConcurrentReconciles"`

	// WatchNamespace restricts the operator to one namespace. Empty watches all.
	WatchNamespace string `yaml:"watchNamespace"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills every unset field.
func (c *Config) ApplyDefaults() {
	if c.MetricsBindAddress == "" {
		c.MetricsBindAddress = DefaultMetricsBindAddress
	}
	if c.HealthProbeBindAddress == "" {
		c.HealthProbeBindAddress = DefaultHealthProbeBindAddress
	}
	if c.LeaderElection == nil {
		enabled := true
		c.LeaderElection = &enabled
	}
	if c.LeaderElectionID == "" {
		c.LeaderElectionID = DefaultLeaderElectionID
	}
	if c.CredentialSource == "" {
		c.CredentialSource = CredentialSourceServiceAccount
	}
	if c.MaxConcurrentReconciles == 0 {
		c.MaxConcurrentReconciles = DefaultMaxConcurrentReconciles
	}
}

// LeaderElectionEnabled reports whether leader election is on.
func (c *Config) LeaderElectionEnabled() bool {
	return c.LeaderElection == nil || *c.LeaderElection
}
