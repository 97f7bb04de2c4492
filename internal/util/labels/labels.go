package labels

// Label keys use the noria-operator.io prefix for namespacing.
const (
	// KeyKind identifies which component a child belongs to
	KeyKind = "noria-operator.io/kind"

	// KeyName identifies the tenant (or the shared "noria" instance)
	KeyName = "noria-operator.io/name"

	// KeyCluster identifies the owning NoriaCluster. Set by the controller,
	// never part of a selector.
	KeyCluster = "noria-operator.io/cluster"

	// KeyManagedBy identifies the management system
	KeyManagedBy = "app.kubernetes.io/managed-by"
)

// Kind values
const (
	KindZookeeper = "zookeeper"
	KindCompute   = "compute"
	KindGateway   = "gateway"
	KindUI        = "ui"
)

// NameShared is the name label of cluster-wide components (ensemble and UI).
const NameShared = "noria"

// ManagedByOperator is the managed-by value stamped on every child.
const ManagedByOperator = "noria-operator"

// LabelBuilder provides a fluent interface for building child labels.
type LabelBuilder struct {
	labels map[string]string
}

// NewLabelBuilder creates a builder with the kind and name labels pre-set.
func NewLabelBuilder(kind, name string) *LabelBuilder {
	return &LabelBuilder{
		labels: map[string]string{
			KeyKind: kind,
			KeyName: name,
		},
	}
}

// WithManagedBy sets who manages this resource.
func (lb *LabelBuilder) WithManagedBy(manager string) *LabelBuilder {
	lb.labels[KeyManagedBy] = manager
	return lb
}

// WithCluster adds the owning cluster label.
func (lb *LabelBuilder) WithCluster(cluster string) *LabelBuilder {
	lb.labels[KeyCluster] = cluster
	return lb
}

// Merge adds all labels from the provided map.
func (lb *LabelBuilder) Merge(extra map[string]string) *LabelBuilder {
	for k, v := range extra {
		lb.labels[k] = v
	}
	return lb
}

// Build returns a copy of the labels map.
func (lb *LabelBuilder) Build() map[string]string {
	result := make(map[string]string, len(lb.labels))
	for k, v := range lb.labels {
		result[k] = v
	}
	return result
}

// Selector returns the pod selector labels for a component.
func Selector(kind, name string) map[string]string {
	return NewLabelBuilder(kind, name).Build()
}

// ForObject returns the metadata labels for a child object.
func ForObject(kind, name string) map[string]string {
	return NewLabelBuilder(kind, name).WithManagedBy(ManagedByOperator).Build()
}

// SelectorForCluster returns the labels matching every child of a cluster.
func SelectorForCluster(cluster string) map[string]string {
	return map[string]string{
		KeyCluster:   cluster,
		KeyManagedBy: ManagedByOperator,
	}
}
