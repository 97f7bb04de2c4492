// Package labels provides consistent labeling for Noria child objects.
//
// Every child carries a kind label (zookeeper, compute, gateway, ui) and a name
// label (the tenant id, or "noria" for cluster-wide components). The pair is
// used both as metadata and as the pod selector, so it must stay stable for
// the lifetime of a workload.
package labels
