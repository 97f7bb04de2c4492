// Package handlers executes the noriactl commands.
package handlers

import (
	"fmt"
	"os"

	"sigs.k8s.io/yaml"

	noriav1alpha1 "github.com/fussybeaver/noria-operator/api/v1alpha1"
)

const defaultNamespace = "default"

// loadCluster reads a NoriaCluster document in YAML or JSON. Unknown fields
// are rejected.
func loadCluster(path string) (*noriav1alpha1.NoriaCluster, error) {
	if path == "" {
		return nil, fmt.Errorf("a NoriaCluster file is required")
	}

	// #nosec G304
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read cluster file: %w", err)
	}

	cluster := &noriav1alpha1.NoriaCluster{}
	if err := yaml.UnmarshalStrict(data, cluster); err != nil {
		return nil, fmt.Errorf("failed to parse cluster file: %w", err)
	}

	if cluster.Kind != "" && cluster.Kind != "NoriaCluster" {
		return nil, fmt.Errorf("expected kind NoriaCluster, got %q", cluster.Kind)
	}
	if cluster.APIVersion != "" && cluster.APIVersion != noriav1alpha1.GroupVersion.String() {
		return nil, fmt.Errorf("expected apiVersion %s, got %q", noriav1alpha1.GroupVersion, cluster.APIVersion)
	}

	return cluster, nil
}

// namespaceFor picks the flag value, then the document namespace, then default.
func namespaceFor(cluster *noriav1alpha1.NoriaCluster, override string) string {
	switch {
	case override != "":
		return override
	case cluster.Namespace != "":
		return cluster.Namespace
	default:
		return defaultNamespace
	}
}
