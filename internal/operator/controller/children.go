package controller

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/go-logr/logr"
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/equality"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/api/meta"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/rand"
	"k8s.io/apimachinery/pkg/util/wait"
	"k8s.io/client-go/util/retry"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/controller/controllerutil"
	"sigs.k8s.io/controller-runtime/pkg/log"

	noriav1alpha1 "github.com/fussybeaver/noria-operator/api/v1alpha1"
	"github.com/fussybeaver/noria-operator/internal/util/labels"
)

// AnnotationSpecHash records the hash of a child's rendered form. A child
// whose stored hash differs from the freshly rendered one is recreated.
const AnnotationSpecHash = "noria-operator.io/spec-hash"

// Apply actions used as the action label.
const (
	actionCreated   = "created"
	actionUnchanged = "unchanged"
	actionRecreated = "recreated"
	actionPruned    = "pruned"
)

// recreateBackoff bounds how long a recreate waits for the deleted child to
// disappear before the create succeeds.
var recreateBackoff = wait.Backoff{
	Duration: 200 * time.Millisecond,
	Factor:   2,
	Steps:    5,
}

// childKind is one kind of object the operator creates and prunes.
type childKind struct {
	kind    string
	newList func() client.ObjectList
}

var childKinds = []childKind{
	{kind: "ConfigMap", newList: func() client.ObjectList { return &corev1.ConfigMapList{} }},
	{kind: "Service", newList: func() client.ObjectList { return &corev1.ServiceList{} }},
	{kind: "StatefulSet", newList: func() client.ObjectList { return &appsv1.StatefulSetList{} }},
	{kind: "Deployment", newList: func() client.ObjectList { return &appsv1.DeploymentList{} }},
}

func childLogger(logger logr.Logger, kind, name string) logr.Logger {
	return logger.WithValues("kind", kind, "name", name)
}

func childKey(kind, name string) string {
	return kind + "/" + name
}

// specHash hashes the serialized form of obj.
func specHash(obj client.Object) (string, error) {
	data, err := json.Marshal(obj)
	if err != nil {
		return "", fmt.Errorf("failed to serialize %s: %w", obj.GetName(), err)
	}
	h := fnv.New32a()
	_, _ = h.Write(data)
	return rand.SafeEncodeString(fmt.Sprint(h.Sum32())), nil
}

// decorate stamps the cluster label, the owner reference and the spec hash
// on a child. The hash covers everything else, so it is set last.
func (r *ClusterReconciler) decorate(cluster *noriav1alpha1.NoriaCluster, obj client.Object) error {
	obj.SetLabels(labels.NewLabelBuilder(
		obj.GetLabels()[labels.KeyKind],
		obj.GetLabels()[labels.KeyName],
	).Merge(obj.GetLabels()).WithCluster(cluster.Name).Build())

	if err := controllerutil.SetControllerReference(cluster, obj, r.Scheme); err != nil {
		return fmt.Errorf("failed to set owner on %s: %w", obj.GetName(), err)
	}

	hash, err := specHash(obj)
	if err != nil {
		return err
	}
	annotations := obj.GetAnnotations()
	if annotations == nil {
		annotations = make(map[string]string, 1)
	}
	annotations[AnnotationSpecHash] = hash
	obj.SetAnnotations(annotations)
	return nil
}

// applyChild converges one child. Existing children with the same spec hash
// whose live fields still match are left alone; any other existing child is
// deleted and created again. A child controlled by another owner is never
// touched and yields an *controllerutil.AlreadyOwnedError.
func (r *ClusterReconciler) applyChild(ctx context.Context, cluster *noriav1alpha1.NoriaCluster, desired client.Object) (string, error) {
	gvk := desired.GetObjectKind().GroupVersionKind()
	logger := childLogger(log.FromContext(ctx), gvk.Kind, desired.GetName())

	newObj, err := r.Scheme.New(gvk)
	if err != nil {
		return "", fmt.Errorf("unsupported child kind %s: %w", gvk.Kind, err)
	}
	existing, ok := newObj.(client.Object)
	if !ok {
		return "", fmt.Errorf("child kind %s is not a client.Object", gvk.Kind)
	}

	err = r.Get(ctx, client.ObjectKeyFromObject(desired), existing)
	switch {
	case apierrors.IsNotFound(err):
		logger.V(1).Info("creating child")
		if err := r.Create(ctx, desired, client.FieldOwner(r.fieldOwner)); err != nil {
			return "", fmt.Errorf("failed to create %s %s: %w", gvk.Kind, desired.GetName(), err)
		}
		return actionCreated, nil
	case err != nil:
		return "", fmt.Errorf("failed to get %s %s: %w", gvk.Kind, desired.GetName(), err)
	}

	if owner := metav1.GetControllerOf(existing); owner != nil && owner.UID != cluster.UID {
		return "", &controllerutil.AlreadyOwnedError{Object: existing, Owner: *owner}
	}

	hashChanged := existing.GetAnnotations()[AnnotationSpecHash] != desired.GetAnnotations()[AnnotationSpecHash]
	if !hashChanged && matchesLive(desired, existing) {
		return actionUnchanged, nil
	}

	logger.Info("recreating changed child",
		"oldHash", existing.GetAnnotations()[AnnotationSpecHash],
		"newHash", desired.GetAnnotations()[AnnotationSpecHash],
		"drifted", !hashChanged,
	)
	if err := r.Delete(ctx, existing, client.PropagationPolicy(metav1.DeletePropagationBackground)); client.IgnoreNotFound(err) != nil {
		return "", fmt.Errorf("failed to delete %s %s: %w", gvk.Kind, desired.GetName(), err)
	}
	err = retry.OnError(recreateBackoff, apierrors.IsAlreadyExists, func() error {
		return r.Create(ctx, desired, client.FieldOwner(r.fieldOwner))
	})
	if err != nil {
		return "", fmt.Errorf("failed to recreate %s %s: %w", gvk.Kind, desired.GetName(), err)
	}
	r.Recorder.Eventf(cluster, corev1.EventTypeNormal, EventReasonChildRecreated,
		"Recreated %s %s", gvk.Kind, desired.GetName())
	return actionRecreated, nil
}

// matchesLive reports whether every field set on desired holds the same value
// on the live object. Fields the API server defaults are ignored.
func matchesLive(desired, existing client.Object) bool {
	if !equality.Semantic.DeepDerivative(desired.GetLabels(), existing.GetLabels()) {
		return false
	}

	switch d := desired.(type) {
	case *corev1.ConfigMap:
		e, ok := existing.(*corev1.ConfigMap)
		return ok && equality.Semantic.DeepDerivative(d.Data, e.Data)
	case *corev1.Service:
		e, ok := existing.(*corev1.Service)
		return ok && equality.Semantic.DeepDerivative(d.Spec, e.Spec)
	case *appsv1.StatefulSet:
		e, ok := existing.(*appsv1.StatefulSet)
		return ok && equality.Semantic.DeepDerivative(d.Spec, e.Spec)
	case *appsv1.Deployment:
		e, ok := existing.(*appsv1.Deployment)
		return ok && equality.Semantic.DeepDerivative(d.Spec, e.Spec)
	default:
		return true
	}
}

// pruneChildren deletes labelled children of the cluster that are not in
// desired. desired is keyed by childKey.
func (r *ClusterReconciler) pruneChildren(ctx context.Context, cluster *noriav1alpha1.NoriaCluster, desired map[string]bool) (int, error) {
	logger := log.FromContext(ctx)
	pruned := 0

	for _, ck := range childKinds {
		list := ck.newList()
		if err := r.List(ctx, list,
			client.InNamespace(cluster.Namespace),
			client.MatchingLabels(labels.SelectorForCluster(cluster.Name)),
		); err != nil {
			return pruned, fmt.Errorf("failed to list %s children: %w", ck.kind, err)
		}

		items, err := meta.ExtractList(list)
		if err != nil {
			return pruned, fmt.Errorf("failed to read %s list: %w", ck.kind, err)
		}
		for _, item := range items {
			obj, ok := item.(client.Object)
			if !ok || desired[childKey(ck.kind, obj.GetName())] {
				continue
			}
			if !metav1.IsControlledBy(obj, cluster) {
				continue
			}

			childLogger(logger, ck.kind, obj.GetName()).Info("pruning stale child")
			if err := r.Delete(ctx, obj, client.PropagationPolicy(metav1.DeletePropagationBackground)); client.IgnoreNotFound(err) != nil {
				return pruned, fmt.Errorf("failed to prune %s %s: %w", ck.kind, obj.GetName(), err)
			}
			r.recordChildApplied(ck.kind, actionPruned)
			pruned++
		}
	}

	return pruned, nil
}
