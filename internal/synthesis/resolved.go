package synthesis

import (
	"sigs.k8s.io/controller-runtime/pkg/client"
)

// Default image settings shared by the Noria components.
const (
	NoriaImage     = "fussybeaver/noria"
	ZookeeperImage = "confluentinc/cp-zookeeper"

	// DefaultNoriaVersion is the image tag used when a component sets no version
	DefaultNoriaVersion = "0.4.1"
)

// Resolved is a fully defaulted component ready to render. The set of
// implementations is closed: Ensemble, Compute, Gateway and UI.
type Resolved interface {
	// Component returns the kind label value of the component.
	Component() string

	// Render returns the child objects for the component in namespace.
	Render(namespace string) []client.Object

	resolved()
}

var (
	_ Resolved = Ensemble{}
	_ Resolved = Compute{}
	_ Resolved = Gateway{}
	_ Resolved = UI{}
)

func (Ensemble) resolved() {}
func (Compute) resolved()  {}
func (Gateway) resolved()  {}
func (UI) resolved()       {}

// MaxMebibytes caps heap and storage sizes so byte counts stay within int64.
const MaxMebibytes = 1 << 20

// replicasOr returns *v, or def when v is nil or negative. An explicit zero
// is kept so a component can be scaled down.
func replicasOr(v *int32, def int32) int32 {
	if v == nil || *v < 0 {
		return def
	}
	return *v
}

// mebibytesOr returns *v clamped to MaxMebibytes, or def when v is nil or
// not positive.
func mebibytesOr(v *int64, def int64) int64 {
	if v == nil || *v <= 0 {
		return def
	}
	return min(*v, MaxMebibytes)
}

func stringOr(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func image(repository, version string) string {
	return repository + ":" + version
}
