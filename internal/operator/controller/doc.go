// Package controller implements the Kubernetes controller for NoriaCluster
// custom resources.
//
// Each reconcile synthesizes the full set of children (ZooKeeper ensemble,
// per-deployment compute and gateway, shared UI) and converges the namespace
// to it:
//
//	Synthesize -> Decorate -> Apply (create / unchanged / recreate) -> Prune -> Status
//
// Children are never patched in place. A child whose rendered form changed is
// deleted and created again, and children that are no longer rendered (for
// example a ConfigMap superseded by a new properties hash) are pruned by the
// cluster label.
package controller
