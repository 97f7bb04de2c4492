// Package naming provides consistent naming functions for Noria child objects.
//
// Cluster-wide components have fixed names (zookeeper-noria, noria-ui).
// Tenant components follow {component}-{id}; the id is dash-free so the
// component prefix can always be split off again.
package naming
