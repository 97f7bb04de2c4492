package synthesis

import (
	noriav1alpha1 "github.com/fussybeaver/noria-operator/api/v1alpha1"
)

// SyncCompleteMessage is the status message after a successful synthesis.
const SyncCompleteMessage = "Sync complete"

// ErrorStatus renders a synthesis failure as the parent's status.
func ErrorStatus(err error) noriav1alpha1.NoriaClusterStatus {
	return noriav1alpha1.NoriaClusterStatus{
		Phase:   noriav1alpha1.ClusterPhaseError,
		Message: err.Error(),
	}
}

// SyncedStatus renders a successful synthesis of n children.
func SyncedStatus(children int) noriav1alpha1.NoriaClusterStatus {
	return noriav1alpha1.NoriaClusterStatus{
		Phase:    noriav1alpha1.ClusterPhaseSynced,
		Message:  SyncCompleteMessage,
		Children: children,
	}
}
