package config

import (
	"fmt"

	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
)

// RESTConfig builds the API client configuration for a credential source.
func RESTConfig(source CredentialSource) (*rest.Config, error) {
	switch source {
	case CredentialSourceKubeconfig:
		loader := clientcmd.NewNonInteractiveDeferredLoadingClientConfig(
			clientcmd.NewDefaultClientConfigLoadingRules(),
			&clientcmd.ConfigOverrides{},
		)
		cfg, err := loader.ClientConfig()
		if err != nil {
			return nil, fmt.Errorf("failed to load kubeconfig: %w", err)
		}
		return cfg, nil
	case CredentialSourceServiceAccount:
		cfg, err := rest.InClusterConfig()
		if err != nil {
			return nil, fmt.Errorf("failed to load service account config: %w", err)
		}
		return cfg, nil
	default:
		return nil, fmt.Errorf("unsupported credential source %q", source)
	}
}
