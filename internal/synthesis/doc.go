// Package synthesis turns a NoriaCluster spec into the ordered list of child
// objects the operator must keep in place.
//
// Synthesis is a pure two step transformation. Resolve applies defaults and
// tenant identifiers to produce one Resolved value per component; Render then
// turns each value into Kubernetes objects for a namespace. Nothing here talks
// to the API server, logs, or keeps state between calls.
//
// The emitted order is fixed: ensemble, then compute and gateway for each
// deployment in input order, then the UI. The ensemble properties ConfigMap is
// content addressed, so any property change produces a new name and forces the
// StatefulSet that mounts it to be replaced.
package synthesis
