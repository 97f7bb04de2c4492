package synthesis

import (
	"strings"

	"sigs.k8s.io/controller-runtime/pkg/client"

	noriav1alpha1 "github.com/fussybeaver/noria-operator/api/v1alpha1"
)

// ValidateDeployments checks every deployment id. The first id containing a
// dash is reported as an InvalidIdentifierError.
func ValidateDeployments(deployments []noriav1alpha1.Deployment) error {
	for _, d := range deployments {
		if strings.Contains(d.ID, "-") {
			return &InvalidIdentifierError{ID: d.ID}
		}
	}
	return nil
}

// Resolve validates the spec and returns the resolved components in
// emission order: ensemble, compute and gateway per deployment, UI.
// Validation runs before anything is resolved; on error the result is nil.
func Resolve(spec noriav1alpha1.NoriaClusterSpec) ([]Resolved, error) {
	if err := ValidateDeployments(spec.Deployments); err != nil {
		return nil, err
	}

	resolved := make([]Resolved, 0, 2+2*len(spec.Deployments))
	resolved = append(resolved, ResolveEnsemble(spec.Ensemble))
	for _, d := range spec.Deployments {
		resolved = append(resolved,
			ResolveCompute(d.Compute, d.ID),
			ResolveGateway(d.Gateway, d.ID),
		)
	}
	resolved = append(resolved, ResolveUI(spec.UI))

	return resolved, nil
}

// Render concatenates the children of every component, preserving order.
func Render(resolved []Resolved, namespace string) []client.Object {
	var children []client.Object
	for _, r := range resolved {
		children = append(children, r.Render(namespace)...)
	}
	return children
}

// Synthesize returns every child object of a cluster in namespace. It is all
// or nothing: an invalid deployment id yields no children at all.
func Synthesize(spec noriav1alpha1.NoriaClusterSpec, namespace string) ([]client.Object, error) {
	resolved, err := Resolve(spec)
	if err != nil {
		return nil, err
	}
	return Render(resolved, namespace), nil
}
