package main

import (
	"flag"

	"github.com/fussybeaver/noria-operator/internal/config"
)

// operatorFlags holds the command line values. A flag only overrides the
// config file when it was set explicitly.
type operatorFlags struct {
	configFile              string
	credentialSource        string
	metricsAddr             string
	probeAddr               string
	enableLeaderElection    bool
	leaderElectionID        string
	maxConcurrentReconciles int
	watchNamespace          string
}

func newFlags(fs *flag.FlagSet) *operatorFlags {
	f := &operatorFlags{}
	fs.StringVar(&f.configFile, "config", "", "Path to the operator configuration file.")
	fs.StringVar(&f.credentialSource, "conf", string(config.CredentialSourceServiceAccount),
		"Where to load API credentials from: kubeconfig or serviceaccount.")
	fs.StringVar(&f.metricsAddr, "metrics-bind-address", config.DefaultMetricsBindAddress,
		"The address the metric endpoint binds to.")
	fs.StringVar(&f.probeAddr, "health-probe-bind-address", config.DefaultHealthProbeBindAddress,
		"The address the probe endpoint binds to.")
	fs.BoolVar(&f.enableLeaderElection, "leader-elect", true, "Enable leader election for controller manager.")
	fs.StringVar(&f.leaderElectionID, "leader-election-id", config.DefaultLeaderElectionID,
		"The name of the leader election resource.")
	fs.IntVar(&f.maxConcurrentReconciles, "max-concurrent-reconciles", config.DefaultMaxConcurrentReconciles,
		"How many NoriaClusters are reconciled in parallel.")
	fs.StringVar(&f.watchNamespace, "watch-namespace", "", "Only watch this namespace. Empty watches all.")
	return f
}

// load reads the config file when one is given, applies explicitly set flags
// on top and validates the result.
func (f *operatorFlags) load(fs *flag.FlagSet) (*config.Config, error) {
	cfg := config.Default()
	if f.configFile != "" {
		loaded, err := config.LoadFile(f.configFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	var parseErr error
	fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "conf":
			src, err := config.ParseCredentialSource(f.credentialSource)
			if err != nil {
				parseErr = err
				return
			}
			cfg.CredentialSource = src
		case "metrics-bind-address":
			cfg.MetricsBindAddress = f.metricsAddr
		case "health-probe-bind-address":
			cfg.HealthProbeBindAddress = f.probeAddr
		case "leader-elect":
			enabled := f.enableLeaderElection
			cfg.LeaderElection = &enabled
		case "leader-election-id":
			cfg.LeaderElectionID = f.leaderElectionID
		case "max-concurrent-reconciles":
			cfg.MaxConcurrentReconciles = f.maxConcurrentReconciles
		case "watch-namespace":
			cfg.WatchNamespace = f.watchNamespace
		}
	})
	if parseErr != nil {
		return nil, parseErr
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
