// Package controller contains the Kubernetes controllers for the noria operator.
package controller

import (
	"context"
	"errors"
	"fmt"
	"time"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/api/meta"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/client-go/tools/record"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/controller"
	"sigs.k8s.io/controller-runtime/pkg/controller/controllerutil"
	"sigs.k8s.io/controller-runtime/pkg/log"

	noriav1alpha1 "github.com/fussybeaver/noria-operator/api/v1alpha1"
	"github.com/fussybeaver/noria-operator/internal/synthesis"
)

const (
	// DefaultFieldOwner is the field manager recorded on created children.
	DefaultFieldOwner = "noria-operator"

	controllerName = "noriacluster"
)

// Event reasons
const (
	EventReasonSynced         = "Synced"
	EventReasonInvalidSpec    = "InvalidSpec"
	EventReasonApplyFailed    = "ApplyFailed"
	EventReasonChildRecreated = "ChildRecreated"
	EventReasonChildConflict  = "ChildConflict"
)

// Ready condition reasons
const (
	ReasonSynced        = "Synced"
	ReasonInvalidSpec   = "InvalidSpec"
	ReasonApplyFailed   = "ApplyFailed"
	ReasonChildConflict = "ChildConflict"
)

// ClusterReconciler reconciles a NoriaCluster object.
type ClusterReconciler struct {
	client.Client
	Scheme   *runtime.Scheme
	Recorder record.EventRecorder

	enableMetrics           bool
	fieldOwner              string
	maxConcurrentReconciles int
}

// NewClusterReconciler creates a new ClusterReconciler.
func NewClusterReconciler(c client.Client, scheme *runtime.Scheme, recorder record.EventRecorder, opts ...Option) *ClusterReconciler {
	r := &ClusterReconciler{
		Client:                  c,
		Scheme:                  scheme,
		Recorder:                recorder,
		enableMetrics:           true,
		fieldOwner:              DefaultFieldOwner,
		maxConcurrentReconciles: 1,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// +kubebuilder:rbac:groups=noria-operator.io,resources=noriaclusters,verbs=get;list;watch;update;patch
// +kubebuilder:rbac:groups=noria-operator.io,resources=noriaclusters/status,verbs=get;update;patch
// +kubebuilder:rbac:groups="",resources=configmaps;services,verbs=get;list;watch;create;delete
// +kubebuilder:rbac:groups=apps,resources=statefulsets;deployments,verbs=get;list;watch;create;delete
// +kubebuilder:rbac:groups="",resources=events,verbs=create;patch

// Reconcile synthesizes the children of a NoriaCluster and converges the
// namespace to them.
func (r *ClusterReconciler) Reconcile(ctx context.Context, req ctrl.Request) (ctrl.Result, error) {
	logger := log.FromContext(ctx)
	start := time.Now()

	cluster := &noriav1alpha1.NoriaCluster{}
	if err := r.Get(ctx, req.NamespacedName, cluster); err != nil {
		if apierrors.IsNotFound(err) {
			// Children are garbage collected through their owner reference.
			return ctrl.Result{}, nil
		}
		logger.Error(err, "unable to fetch NoriaCluster")
		return ctrl.Result{}, err
	}

	children, err := synthesis.Synthesize(cluster.Spec, cluster.Namespace)
	if err != nil {
		// An invalid spec stays invalid until the user edits it, and the edit
		// triggers a new reconcile. Nothing is applied and nothing is retried.
		logger.Info("rejecting invalid cluster spec", "reason", err.Error())
		r.Recorder.Event(cluster, corev1.EventTypeWarning, EventReasonInvalidSpec, err.Error())
		r.setStatus(cluster, synthesis.ErrorStatus(err), metav1.ConditionFalse, ReasonInvalidSpec)
		r.recordReconcile(cluster.Name, resultInvalid, time.Since(start).Seconds())
		return ctrl.Result{}, r.updateStatus(ctx, cluster)
	}

	if err := r.converge(ctx, cluster, children); err != nil {
		logger.Error(err, "failed to apply children")
		eventReason, conditionReason := EventReasonApplyFailed, ReasonApplyFailed
		if isChildConflict(err) {
			eventReason, conditionReason = EventReasonChildConflict, ReasonChildConflict
		}
		r.Recorder.Event(cluster, corev1.EventTypeWarning, eventReason, err.Error())
		r.setStatus(cluster, synthesis.ErrorStatus(err), metav1.ConditionFalse, conditionReason)
		r.recordReconcile(cluster.Name, resultError, time.Since(start).Seconds())
		if statusErr := r.updateStatus(ctx, cluster); statusErr != nil {
			logger.Error(statusErr, "failed to update status")
		}
		return ctrl.Result{}, err
	}

	r.setStatus(cluster, synthesis.SyncedStatus(len(children)), metav1.ConditionTrue, ReasonSynced)
	r.Recorder.Eventf(cluster, corev1.EventTypeNormal, EventReasonSynced,
		"Synthesized %d children", len(children))
	r.recordClusterChildren(cluster.Name, len(children))
	r.recordReconcile(cluster.Name, resultSuccess, time.Since(start).Seconds())

	logger.Info("sync complete", "children", len(children), "deployments", len(cluster.Spec.Deployments))
	return ctrl.Result{}, r.updateStatus(ctx, cluster)
}

// converge decorates and applies every child in order, then prunes stale ones.
// Children controlled by another owner are skipped and reported together
// once the rest of the set has converged.
func (r *ClusterReconciler) converge(ctx context.Context, cluster *noriav1alpha1.NoriaCluster, children []client.Object) error {
	desired := make(map[string]bool, len(children))
	var conflicts []error

	for _, child := range children {
		kind := child.GetObjectKind().GroupVersionKind().Kind
		desired[childKey(kind, child.GetName())] = true

		if err := r.decorate(cluster, child); err != nil {
			return err
		}
		action, err := r.applyChild(ctx, cluster, child)
		if isChildConflict(err) {
			conflicts = append(conflicts, err)
			continue
		}
		if err != nil {
			return err
		}
		r.recordChildApplied(kind, action)
	}

	pruned, err := r.pruneChildren(ctx, cluster, desired)
	if err != nil {
		return err
	}
	if pruned > 0 {
		log.FromContext(ctx).V(1).Info("pruned stale children", "count", pruned)
	}
	return errors.Join(conflicts...)
}

func isChildConflict(err error) bool {
	var owned *controllerutil.AlreadyOwnedError
	return errors.As(err, &owned)
}

// setStatus replaces the synthesis part of the status and records the Ready
// condition. Existing conditions are kept.
func (r *ClusterReconciler) setStatus(cluster *noriav1alpha1.NoriaCluster, status noriav1alpha1.NoriaClusterStatus, ready metav1.ConditionStatus, reason string) {
	conditions := cluster.Status.Conditions
	now := metav1.Now()

	cluster.Status = status
	cluster.Status.Conditions = conditions
	cluster.Status.ObservedGeneration = cluster.Generation
	cluster.Status.LastSyncTime = &now

	meta.SetStatusCondition(&cluster.Status.Conditions, metav1.Condition{
		Type:               noriav1alpha1.ConditionReady,
		Status:             ready,
		Reason:             reason,
		Message:            status.Message,
		ObservedGeneration: cluster.Generation,
	})
}

func (r *ClusterReconciler) updateStatus(ctx context.Context, cluster *noriav1alpha1.NoriaCluster) error {
	if err := r.Status().Update(ctx, cluster); err != nil {
		return fmt.Errorf("failed to update status: %w", err)
	}
	return nil
}

// SetupWithManager sets up the controller with the Manager.
func (r *ClusterReconciler) SetupWithManager(mgr ctrl.Manager) error {
	return ctrl.NewControllerManagedBy(mgr).
		For(&noriav1alpha1.NoriaCluster{}).
		Owns(&corev1.ConfigMap{}).
		Owns(&corev1.Service{}).
		Owns(&appsv1.StatefulSet{}).
		Owns(&appsv1.Deployment{}).
		WithOptions(controller.Options{MaxConcurrentReconciles: r.maxConcurrentReconciles}).
		Named(controllerName).
		Complete(r)
}
