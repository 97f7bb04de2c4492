package naming

import "fmt"

// Ensemble is the name of the ZooKeeper StatefulSet.
const Ensemble = "zookeeper-noria"

// UI is the name of the shared dashboard.
const UI = "noria-ui"

func EnsembleNodesService(ensemble string) string {
	return fmt.Sprintf("%s-nodes", ensemble)
}

func EnsembleClientService(ensemble string) string {
	return fmt.Sprintf("%s-client", ensemble)
}

func EnsembleProperties(ensemble, hash string) string {
	return fmt.Sprintf("%s-properties-%s", ensemble, hash)
}

// EnsemblePeer is the stable DNS name of one quorum member.
func EnsemblePeer(ensemble string, ordinal int) string {
	return fmt.Sprintf("%s-%d.%s", ensemble, ordinal, EnsembleNodesService(ensemble))
}

func Compute(id string) string {
	return fmt.Sprintf("compute-%s", id)
}

func Gateway(id string) string {
	return fmt.Sprintf("gateway-%s", id)
}
