package controller

// Option configures a ClusterReconciler.
type Option func(*ClusterReconciler)

// WithMetrics enables or disables prometheus metrics recording.
func WithMetrics(enable bool) Option {
	return func(r *ClusterReconciler) {
		r.enableMetrics = enable
	}
}

// WithFieldOwner sets the field manager used when creating children.
func WithFieldOwner(owner string) Option {
	return func(r *ClusterReconciler) {
		if owner != "" {
			r.fieldOwner = owner
		}
	}
}

// WithMaxConcurrentReconciles sets how many clusters are reconciled in parallel.
func WithMaxConcurrentReconciles(n int) Option {
	return func(r *ClusterReconciler) {
		if n > 0 {
			r.maxConcurrentReconciles = n
		}
	}
}
