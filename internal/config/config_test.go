package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, ":8080", cfg.MetricsBindAddress)
	assert.Equal(t, ":8081", cfg.HealthProbeBindAddress)
	assert.True(t, cfg.LeaderElectionEnabled())
	assert.Equal(t, "noria-operator", cfg.LeaderElectionID)
	assert.Equal(t, CredentialSourceServiceAccount, cfg.CredentialSource)
	assert.Equal(t, 1, cfg.MaxConcurrentReconciles)
	assert.Empty(t, cfg.WatchNamespace)
	assert.NoError(t, cfg.Validate())
}

func TestParseCredentialSource(t *testing.T) {
	tests := []struct {
		input   string
		want    CredentialSource
		wantErr bool
	}{
		{input: "kubeconfig", want: CredentialSourceKubeconfig},
		{input: "Kubeconfig", want: CredentialSourceKubeconfig},
		{input: "serviceaccount", want: CredentialSourceServiceAccount},
		{input: "ServiceAccount", want: CredentialSourceServiceAccount},
		{input: "token", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseCredentialSource(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "invalid credential source")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoadFromBytes(t *testing.T) {
	t.Run("empty document uses defaults", func(t *testing.T) {
		cfg, err := LoadFromBytes(nil)
		require.NoError(t, err)
		assert.Equal(t, Default(), cfg)
	})

	t.Run("explicit values", func(t *testing.T) {
		cfg, err := LoadFromBytes([]byte(`
metricsBindAddress: "0"
healthProbeBindAddress: 127.0.0.1:9440
leaderElection: false
credentialSource: kubeconfig
maxConcurrentReconciles: 4
watchNamespace: noria
`))
		require.NoError(t, err)
		assert.Equal(t, "0", cfg.MetricsBindAddress)
		assert.Equal(t, "127.0.0.1:9440", cfg.HealthProbeBindAddress)
		assert.False(t, cfg.LeaderElectionEnabled())
		assert.Equal(t, CredentialSourceKubeconfig, cfg.CredentialSource)
		assert.Equal(t, 4, cfg.MaxConcurrentReconciles)
		assert.Equal(t, "noria", cfg.WatchNamespace)
	})

	t.Run("unknown key", func(t *testing.T) {
		_, err := LoadFromBytes([]byte("metricsAddr: :8080\n"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to unmarshal yaml")
	})

	t.Run("invalid yaml", func(t *testing.T) {
		_, err := LoadFromBytes([]byte("metricsBindAddress: [unclosed"))
		require.Error(t, err)
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "bad credential source",
			mutate:  func(c *Config) { c.CredentialSource = "token" },
			wantErr: "invalid credential source",
		},
		{
			name:    "metrics address without port",
			mutate:  func(c *Config) { c.MetricsBindAddress = "localhost" },
			wantErr: "invalid metricsBindAddress",
		},
		{
			name:    "probe address without port",
			mutate:  func(c *Config) { c.HealthProbeBindAddress = "8081" },
			wantErr: "invalid healthProbeBindAddress",
		},
		{
			name:    "negative concurrency",
			mutate:  func(c *Config) { c.MaxConcurrentReconciles = -1 },
			wantErr: "maxConcurrentReconciles must be at least 1",
		},
		{
			name:    "empty election id",
			mutate:  func(c *Config) { c.LeaderElectionID = "" },
			wantErr: "leaderElectionID is required",
		},
		{
			name:    "invalid namespace",
			mutate:  func(c *Config) { c.WatchNamespace = "Not_A_Namespace" },
			wantErr: "invalid watchNamespace",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	t.Run("empty election id without leader election", func(t *testing.T) {
		cfg := Default()
		disabled := false
		cfg.LeaderElection = &disabled
		cfg.LeaderElectionID = ""
		assert.NoError(t, cfg.Validate())
	})
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()

	t.Run("valid file", func(t *testing.T) {
		path := filepath.Join(dir, DefaultConfigFilename)
		require.NoError(t, os.WriteFile(path, []byte("maxConcurrentReconciles: 2\n"), 0o600))

		cfg, err := LoadFile(path)
		require.NoError(t, err)
		assert.Equal(t, 2, cfg.MaxConcurrentReconciles)
		assert.Equal(t, CredentialSourceServiceAccount, cfg.CredentialSource)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadFile(filepath.Join(dir, "missing.yaml"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to read config file")
	})

	t.Run("invalid values", func(t *testing.T) {
		path := filepath.Join(dir, "invalid.yaml")
		require.NoError(t, os.WriteFile(path, []byte("credentialSource: token\n"), 0o600))

		_, err := LoadFile(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "configuration validation failed")
	})
}

const testKubeconfig = `apiVersion: v1
kind: Config
clusters:
- name: test
  cluster:
    server: https://noria.example.com:6443
contexts:
- name: test
  context:
    cluster: test
    user: test
current-context: test
users:
- name: test
  user:
    token: secret
`

func TestRESTConfig(t *testing.T) {
	t.Run("kubeconfig", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "kubeconfig")
		require.NoError(t, os.WriteFile(path, []byte(testKubeconfig), 0o600))
		t.Setenv("KUBECONFIG", path)

		cfg, err := RESTConfig(CredentialSourceKubeconfig)
		require.NoError(t, err)
		assert.Equal(t, "https://noria.example.com:6443", cfg.Host)
		assert.Equal(t, "secret", cfg.BearerToken)
	})

	t.Run("service account outside a cluster", func(t *testing.T) {
		t.Setenv("KUBERNETES_SERVICE_HOST", "")
		t.Setenv("KUBERNETES_SERVICE_PORT", "")

		_, err := RESTConfig(CredentialSourceServiceAccount)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to load service account config")
	})

	t.Run("unknown source", func(t *testing.T) {
		_, err := RESTConfig("token")
		require.Error(t, err)
	})
}
