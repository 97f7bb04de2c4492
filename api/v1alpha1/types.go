// Package v1alpha1 contains API Schema definitions for the noria-operator.io v1alpha1 API group
// +kubebuilder:object:generate=true
// +groupName=noria-operator.io
package v1alpha1

import (
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// NoriaClusterSpec defines the desired topology of a Noria cluster.
type NoriaClusterSpec struct {
	// Deployments is the ordered list of tenants sharing the cluster.
	// +optional
	Deployments []Deployment `json:"deployments,omitempty"`

	// Ensemble configures the ZooKeeper quorum shared by all deployments
	// +optional
	Ensemble *EnsembleSpec `json:"ensemble,omitempty"`

	// UI configures the shared dashboard
	// +optional
	UI *UISpec `json:"ui,omitempty"`
}

// Deployment is one tenant: a noria-server StatefulSet and a noria-mysql gateway.
type Deployment struct {
	// ID names the tenant. It is embedded in child names and label values,
	// so it must not contain dashes. The operator rejects such ids and reports
	// the error in the status.
	ID string `json:"id"`

	// Compute overrides the noria-server defaults
	// +optional
	Compute *ComputeSpec `json:"compute,omitempty"`

	// Gateway overrides the noria-mysql defaults
	// +optional
	Gateway *GatewaySpec `json:"gateway,omitempty"`
}

// EnsembleSpec holds optional overrides for the ZooKeeper ensemble.
type EnsembleSpec struct {
	// Version is the confluentinc/cp-zookeeper image tag
	// +optional
	Version string `json:"version,omitempty"`

	// MaxHeap is the JVM heap ceiling in MiB (default: 512)
	// +kubebuilder:validation:Minimum=1
	// +kubebuilder:validation:Maximum=1048576
	// +optional
	MaxHeap *int64 `json:"maxHeap,omitempty"`

	// StorageSize is the data volume size in MiB (default: 1024)
	// +kubebuilder:validation:Minimum=1
	// +kubebuilder:validation:Maximum=1048576
	// +optional
	StorageSize *int64 `json:"storageSize,omitempty"`

	// Replicas is the quorum size (default: 3)
	// +kubebuilder:validation:Minimum=0
	// +optional
	Replicas *int32 `json:"replicas,omitempty"`

	// AdditionalProperties are appended to zookeeper.properties, sorted by key
	// +optional
	AdditionalProperties map[string]string `json:"additionalProperties,omitempty"`
}

// ComputeSpec holds optional overrides for a tenant's noria-server StatefulSet.
type ComputeSpec struct {
	// Version is the fussybeaver/noria image tag
	// +optional
	Version string `json:"version,omitempty"`

	// MaxHeap is the memory budget in MiB (default: 96)
	// +kubebuilder:validation:Minimum=1
	// +kubebuilder:validation:Maximum=1048576
	// +optional
	MaxHeap *int64 `json:"maxHeap,omitempty"`

	// StorageSize is the data volume size in MiB (default: 1024)
	// +kubebuilder:validation:Minimum=1
	// +kubebuilder:validation:Maximum=1048576
	// +optional
	StorageSize *int64 `json:"storageSize,omitempty"`

	// Replicas is the number of servers, also passed as the quorum size (default: 3)
	// +kubebuilder:validation:Minimum=0
	// +optional
	Replicas *int32 `json:"replicas,omitempty"`
}

// GatewaySpec holds optional overrides for a tenant's noria-mysql Deployment.
type GatewaySpec struct {
	// Version is the fussybeaver/noria image tag
	// +optional
	Version string `json:"version,omitempty"`

	// Replicas is the number of adapter pods (default: 3)
	// +kubebuilder:validation:Minimum=0
	// +optional
	Replicas *int32 `json:"replicas,omitempty"`
}

// UISpec holds optional overrides for the shared dashboard.
type UISpec struct {
	// Version is the fussybeaver/noria image tag
	// +optional
	Version string `json:"version,omitempty"`
}

// NoriaClusterStatus defines the observed state of NoriaCluster.
type NoriaClusterStatus struct {
	// Phase is the outcome of the last synthesis
	// +kubebuilder:validation:Enum=Synced;Error
	// +optional
	Phase ClusterPhase `json:"phase,omitempty"`

	// Message is a human readable summary of the last synthesis
	// +optional
	Message string `json:"message,omitempty"`

	// Children is the number of child objects the last successful synthesis produced
	// +optional
	Children int `json:"children,omitempty"`

	// Conditions represent the latest available observations
	// +optional
	Conditions []metav1.Condition `json:"conditions,omitempty"`

	// LastSyncTime is when the operator last applied the child set
	// +optional
	LastSyncTime *metav1.Time `json:"lastSyncTime,omitempty"`

	// ObservedGeneration is the last observed generation
	// +optional
	ObservedGeneration int64 `json:"observedGeneration,omitempty"`
}

// ClusterPhase represents the outcome of synthesizing a cluster.
type ClusterPhase string

const (
	// ClusterPhaseSynced means every child was synthesized and applied
	ClusterPhaseSynced ClusterPhase = "Synced"
	// ClusterPhaseError means the spec was rejected; no children were produced
	ClusterPhaseError ClusterPhase = "Error"
)

// +kubebuilder:object:root=true
// +kubebuilder:subresource:status
// +kubebuilder:resource:scope=Namespaced,shortName=noria
// +kubebuilder:printcolumn:name="Phase",type=string,JSONPath=`.status.phase`
// +kubebuilder:printcolumn:name="Children",type=integer,JSONPath=`.status.children`
// +kubebuilder:printcolumn:name="Message",type=string,JSONPath=`.status.message`
// +kubebuilder:printcolumn:name="Age",type=date,JSONPath=`.metadata.creationTimestamp`

// NoriaCluster is the Schema for the noriaclusters API.
type NoriaCluster struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec   NoriaClusterSpec   `json:"spec,omitempty"`
	Status NoriaClusterStatus `json:"status,omitempty"`
}

// +kubebuilder:object:root=true

// NoriaClusterList contains a list of NoriaCluster.
type NoriaClusterList struct {
	metav1.TypeMeta `json:",inline"`
	metav1.ListMeta `json:"metadata,omitempty"`
	Items           []NoriaCluster `json:"items"`
}

// Condition types for NoriaCluster
const (
	// ConditionReady indicates the child set matches the spec
	ConditionReady = "Ready"
)
