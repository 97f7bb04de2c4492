package controller

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/api/meta"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/client-go/tools/record"
	"k8s.io/utils/ptr"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/client/fake"
	"sigs.k8s.io/controller-runtime/pkg/controller/controllerutil"

	noriav1alpha1 "github.com/fussybeaver/noria-operator/api/v1alpha1"
	"github.com/fussybeaver/noria-operator/internal/synthesis"
	"github.com/fussybeaver/noria-operator/internal/util/labels"
)

func setupTestScheme(t *testing.T) *runtime.Scheme {
	scheme := runtime.NewScheme()
	require.NoError(t, corev1.AddToScheme(scheme))
	require.NoError(t, appsv1.AddToScheme(scheme))
	require.NoError(t, noriav1alpha1.AddToScheme(scheme))
	return scheme
}

func newTestCluster(ids ...string) *noriav1alpha1.NoriaCluster {
	cluster := &noriav1alpha1.NoriaCluster{
		ObjectMeta: metav1.ObjectMeta{
			Name:       "noria",
			Namespace:  "ns1",
			UID:        types.UID("cluster-uid"),
			Generation: 1,
		},
	}
	for _, id := range ids {
		cluster.Spec.Deployments = append(cluster.Spec.Deployments, noriav1alpha1.Deployment{ID: id})
	}
	return cluster
}

type testEnv struct {
	client   client.Client
	recorder *record.FakeRecorder
	r        *ClusterReconciler
}

func newTestEnv(t *testing.T, objs ...client.Object) *testEnv {
	scheme := setupTestScheme(t)
	c := fake.NewClientBuilder().
		WithScheme(scheme).
		WithObjects(objs...).
		WithStatusSubresource(&noriav1alpha1.NoriaCluster{}).
		Build()
	recorder := record.NewFakeRecorder(100)
	return &testEnv{
		client:   c,
		recorder: recorder,
		r:        NewClusterReconciler(c, scheme, recorder, WithMetrics(false)),
	}
}

func (e *testEnv) reconcile(t *testing.T) ctrl.Result {
	result, err := e.reconcileNamed("noria")
	require.NoError(t, err)
	return result
}

func (e *testEnv) reconcileNamed(name string) (ctrl.Result, error) {
	return e.r.Reconcile(context.Background(), ctrl.Request{
		NamespacedName: types.NamespacedName{Name: name, Namespace: "ns1"},
	})
}

func (e *testEnv) cluster(t *testing.T) *noriav1alpha1.NoriaCluster {
	return e.clusterNamed(t, "noria")
}

func (e *testEnv) clusterNamed(t *testing.T, name string) *noriav1alpha1.NoriaCluster {
	cluster := &noriav1alpha1.NoriaCluster{}
	require.NoError(t, e.client.Get(context.Background(),
		types.NamespacedName{Name: name, Namespace: "ns1"}, cluster))
	return cluster
}

func (e *testEnv) statefulSet(t *testing.T, name string) *appsv1.StatefulSet {
	sts := &appsv1.StatefulSet{}
	require.NoError(t, e.client.Get(context.Background(),
		types.NamespacedName{Name: name, Namespace: "ns1"}, sts))
	return sts
}

func (e *testEnv) updateSpec(t *testing.T, mutate func(*noriav1alpha1.NoriaClusterSpec)) {
	cluster := e.cluster(t)
	mutate(&cluster.Spec)
	require.NoError(t, e.client.Update(context.Background(), cluster))
}

// events drains the fake recorder.
func (e *testEnv) events() []string {
	var out []string
	for {
		select {
		case ev := <-e.recorder.Events:
			out = append(out, ev)
		default:
			return out
		}
	}
}

func (e *testEnv) children(t *testing.T) []string {
	var names []string
	for _, ck := range childKinds {
		list := ck.newList()
		require.NoError(t, e.client.List(context.Background(), list, client.InNamespace("ns1")))
		items, err := meta.ExtractList(list)
		require.NoError(t, err)
		for _, item := range items {
			names = append(names, childKey(ck.kind, item.(client.Object).GetName()))
		}
	}
	return names
}

func TestNewClusterReconciler(t *testing.T) {
	scheme := setupTestScheme(t)
	c := fake.NewClientBuilder().WithScheme(scheme).Build()
	recorder := record.NewFakeRecorder(10)

	t.Run("with default options", func(t *testing.T) {
		r := NewClusterReconciler(c, scheme, recorder)

		assert.NotNil(t, r)
		assert.Equal(t, c, r.Client)
		assert.Equal(t, scheme, r.Scheme)
		assert.Equal(t, recorder, r.Recorder)
		assert.True(t, r.enableMetrics)
		assert.Equal(t, DefaultFieldOwner, r.fieldOwner)
		assert.Equal(t, 1, r.maxConcurrentReconciles)
	})

	t.Run("with custom options", func(t *testing.T) {
		r := NewClusterReconciler(c, scheme, recorder,
			WithMetrics(false),
			WithFieldOwner("custom-owner"),
			WithMaxConcurrentReconciles(4),
		)

		assert.False(t, r.enableMetrics)
		assert.Equal(t, "custom-owner", r.fieldOwner)
		assert.Equal(t, 4, r.maxConcurrentReconciles)
	})

	t.Run("ignores empty and non-positive values", func(t *testing.T) {
		r := NewClusterReconciler(c, scheme, recorder,
			WithFieldOwner(""),
			WithMaxConcurrentReconciles(0),
		)

		assert.Equal(t, DefaultFieldOwner, r.fieldOwner)
		assert.Equal(t, 1, r.maxConcurrentReconciles)
	})
}

func TestClusterReconciler_Reconcile(t *testing.T) {
	t.Run("cluster not found returns no error", func(t *testing.T) {
		env := newTestEnv(t)

		result := env.reconcile(t)

		assert.Equal(t, ctrl.Result{}, result)
		assert.Empty(t, env.children(t))
		assert.Empty(t, env.events())
	})

	t.Run("creates every child and reports synced", func(t *testing.T) {
		env := newTestEnv(t, newTestCluster("east"))

		result := env.reconcile(t)
		assert.Equal(t, ctrl.Result{}, result)

		assert.Len(t, env.children(t), 10)

		cluster := env.cluster(t)
		assert.Equal(t, noriav1alpha1.ClusterPhaseSynced, cluster.Status.Phase)
		assert.Equal(t, synthesis.SyncCompleteMessage, cluster.Status.Message)
		assert.Equal(t, 10, cluster.Status.Children)
		assert.Equal(t, cluster.Generation, cluster.Status.ObservedGeneration)
		assert.NotNil(t, cluster.Status.LastSyncTime)

		ready := meta.FindStatusCondition(cluster.Status.Conditions, noriav1alpha1.ConditionReady)
		require.NotNil(t, ready)
		assert.Equal(t, metav1.ConditionTrue, ready.Status)
		assert.Equal(t, ReasonSynced, ready.Reason)

		assert.Contains(t, env.events(), "Normal Synced Synthesized 10 children")
	})

	t.Run("children are owned and labelled", func(t *testing.T) {
		env := newTestEnv(t, newTestCluster("east"))
		env.reconcile(t)

		sts := &appsv1.StatefulSet{}
		require.NoError(t, env.client.Get(context.Background(),
			types.NamespacedName{Name: "compute-east", Namespace: "ns1"}, sts))

		assert.Equal(t, "noria", sts.Labels[labels.KeyCluster])
		assert.Equal(t, labels.ManagedByOperator, sts.Labels[labels.KeyManagedBy])
		assert.Equal(t, labels.KindCompute, sts.Labels[labels.KeyKind])
		assert.NotEmpty(t, sts.Annotations[AnnotationSpecHash])

		owner := metav1.GetControllerOf(sts)
		require.NotNil(t, owner)
		assert.Equal(t, "NoriaCluster", owner.Kind)
		assert.Equal(t, env.cluster(t).UID, owner.UID)
	})

	t.Run("second reconcile leaves children untouched", func(t *testing.T) {
		env := newTestEnv(t, newTestCluster("east"))
		env.reconcile(t)

		before := &appsv1.StatefulSet{}
		require.NoError(t, env.client.Get(context.Background(),
			types.NamespacedName{Name: "zookeeper-noria", Namespace: "ns1"}, before))
		env.events()

		env.reconcile(t)

		after := &appsv1.StatefulSet{}
		require.NoError(t, env.client.Get(context.Background(),
			types.NamespacedName{Name: "zookeeper-noria", Namespace: "ns1"}, after))
		assert.Equal(t, before.ResourceVersion, after.ResourceVersion)
		assert.Len(t, env.children(t), 10)

		for _, ev := range env.events() {
			assert.NotContains(t, ev, EventReasonChildRecreated)
		}
	})

	t.Run("invalid identifier reports error and creates nothing", func(t *testing.T) {
		env := newTestEnv(t, newTestCluster("east", "a-b"))

		result := env.reconcile(t)

		assert.Equal(t, ctrl.Result{}, result, "an invalid spec must not be requeued")
		assert.Empty(t, env.children(t))

		cluster := env.cluster(t)
		assert.Equal(t, noriav1alpha1.ClusterPhaseError, cluster.Status.Phase)
		assert.Equal(t, "deployment ID must not contain dashes (a-b)", cluster.Status.Message)
		assert.Zero(t, cluster.Status.Children)

		ready := meta.FindStatusCondition(cluster.Status.Conditions, noriav1alpha1.ConditionReady)
		require.NotNil(t, ready)
		assert.Equal(t, metav1.ConditionFalse, ready.Status)
		assert.Equal(t, ReasonInvalidSpec, ready.Reason)

		assert.Contains(t, env.events(), "Warning InvalidSpec deployment ID must not contain dashes (a-b)")
	})

	t.Run("fixing an invalid identifier recovers", func(t *testing.T) {
		env := newTestEnv(t, newTestCluster("a-b"))
		env.reconcile(t)

		env.updateSpec(t, func(spec *noriav1alpha1.NoriaClusterSpec) {
			spec.Deployments[0].ID = "ab"
		})
		env.reconcile(t)

		assert.Len(t, env.children(t), 10)
		assert.Equal(t, noriav1alpha1.ClusterPhaseSynced, env.cluster(t).Status.Phase)
	})
}

func TestClusterReconciler_EnsembleChange(t *testing.T) {
	env := newTestEnv(t, newTestCluster("east"))
	env.reconcile(t)

	oldName := synthesis.ResolveEnsemble(nil).PropertiesName()
	assert.Contains(t, env.children(t), childKey("ConfigMap", oldName))

	before := &appsv1.StatefulSet{}
	require.NoError(t, env.client.Get(context.Background(),
		types.NamespacedName{Name: "zookeeper-noria", Namespace: "ns1"}, before))
	env.events()

	additional := map[string]string{"maxClientCnxns": "100"}
	env.updateSpec(t, func(spec *noriav1alpha1.NoriaClusterSpec) {
		spec.Ensemble = &noriav1alpha1.EnsembleSpec{AdditionalProperties: additional}
	})
	env.reconcile(t)

	newName := synthesis.ResolveEnsemble(&noriav1alpha1.EnsembleSpec{AdditionalProperties: additional}).PropertiesName()
	require.NotEqual(t, oldName, newName)

	children := env.children(t)
	assert.Len(t, children, 10)
	assert.Contains(t, children, childKey("ConfigMap", newName))
	assert.NotContains(t, children, childKey("ConfigMap", oldName), "superseded properties should be pruned")

	cm := &corev1.ConfigMap{}
	require.NoError(t, env.client.Get(context.Background(),
		types.NamespacedName{Name: newName, Namespace: "ns1"}, cm))
	assert.True(t, strings.HasSuffix(cm.Data["zookeeper.properties"], "maxClientCnxns=100\n"))

	after := &appsv1.StatefulSet{}
	require.NoError(t, env.client.Get(context.Background(),
		types.NamespacedName{Name: "zookeeper-noria", Namespace: "ns1"}, after))
	assert.NotEqual(t, before.Annotations[AnnotationSpecHash], after.Annotations[AnnotationSpecHash])
	assert.Equal(t, newName, after.Spec.Template.Spec.Volumes[0].ConfigMap.Name)

	assert.Contains(t, env.events(), "Normal ChildRecreated Recreated StatefulSet zookeeper-noria")
}

func TestClusterReconciler_RemovedDeploymentIsPruned(t *testing.T) {
	env := newTestEnv(t, newTestCluster("east", "west"))
	env.reconcile(t)
	assert.Len(t, env.children(t), 14)

	env.updateSpec(t, func(spec *noriav1alpha1.NoriaClusterSpec) {
		spec.Deployments = spec.Deployments[:1]
	})
	env.reconcile(t)

	children := env.children(t)
	assert.Len(t, children, 10)
	assert.NotContains(t, children, childKey("StatefulSet", "compute-west"))
	assert.NotContains(t, children, childKey("Deployment", "gateway-west"))
	assert.Contains(t, children, childKey("StatefulSet", "compute-east"))
	assert.Equal(t, 10, env.cluster(t).Status.Children)
}

func TestClusterReconciler_PruneLeavesForeignObjects(t *testing.T) {
	unlabelled := &corev1.ConfigMap{
		ObjectMeta: metav1.ObjectMeta{Name: "unrelated", Namespace: "ns1"},
	}
	otherOwner := &corev1.Service{
		ObjectMeta: metav1.ObjectMeta{
			Name:      "borrowed",
			Namespace: "ns1",
			Labels:    labels.SelectorForCluster("noria"),
		},
	}
	env := newTestEnv(t, newTestCluster(), unlabelled, otherOwner)

	env.reconcile(t)

	children := env.children(t)
	assert.Contains(t, children, childKey("ConfigMap", "unrelated"))
	assert.Contains(t, children, childKey("Service", "borrowed"))
	assert.Len(t, children, 6+2)
}

func TestClusterReconciler_ReplacesUnmanagedChild(t *testing.T) {
	stale := &corev1.Service{
		ObjectMeta: metav1.ObjectMeta{Name: "noria-ui", Namespace: "ns1"},
		Spec: corev1.ServiceSpec{
			Ports: []corev1.ServicePort{{Name: "old", Port: 1234}},
		},
	}
	env := newTestEnv(t, newTestCluster(), stale)

	env.reconcile(t)

	svc := &corev1.Service{}
	require.NoError(t, env.client.Get(context.Background(),
		types.NamespacedName{Name: "noria-ui", Namespace: "ns1"}, svc))
	require.Len(t, svc.Spec.Ports, 1)
	assert.Equal(t, int32(80), svc.Spec.Ports[0].Port)
	assert.NotEmpty(t, svc.Annotations[AnnotationSpecHash])
}

func TestClusterReconciler_RevertsLiveDrift(t *testing.T) {
	t.Run("scaled statefulset is restored", func(t *testing.T) {
		env := newTestEnv(t, newTestCluster("east"))
		env.reconcile(t)
		env.events()

		sts := env.statefulSet(t, "compute-east")
		sts.Spec.Replicas = ptr.To[int32](0)
		require.NoError(t, env.client.Update(context.Background(), sts))

		env.reconcile(t)

		restored := env.statefulSet(t, "compute-east")
		require.NotNil(t, restored.Spec.Replicas)
		assert.Equal(t, int32(3), *restored.Spec.Replicas)
		assert.Contains(t, env.events(), "Normal ChildRecreated Recreated StatefulSet compute-east")
	})

	t.Run("edited properties are restored", func(t *testing.T) {
		env := newTestEnv(t, newTestCluster())
		env.reconcile(t)

		name := synthesis.ResolveEnsemble(nil).PropertiesName()
		cm := &corev1.ConfigMap{}
		key := types.NamespacedName{Name: name, Namespace: "ns1"}
		require.NoError(t, env.client.Get(context.Background(), key, cm))
		want := cm.Data["zookeeper.properties"]
		cm.Data["zookeeper.properties"] = "tickTime=1\n"
		require.NoError(t, env.client.Update(context.Background(), cm))

		env.reconcile(t)

		require.NoError(t, env.client.Get(context.Background(), key, cm))
		assert.Equal(t, want, cm.Data["zookeeper.properties"])
	})

	t.Run("removed cluster label is restored", func(t *testing.T) {
		env := newTestEnv(t, newTestCluster("east"))
		env.reconcile(t)

		dep := &appsv1.Deployment{}
		key := types.NamespacedName{Name: "gateway-east", Namespace: "ns1"}
		require.NoError(t, env.client.Get(context.Background(), key, dep))
		delete(dep.Labels, labels.KeyCluster)
		require.NoError(t, env.client.Update(context.Background(), dep))

		env.reconcile(t)

		require.NoError(t, env.client.Get(context.Background(), key, dep))
		assert.Equal(t, "noria", dep.Labels[labels.KeyCluster])
	})
}

func TestClusterReconciler_ChildOwnedByAnotherCluster(t *testing.T) {
	other := newTestCluster("west")
	other.Name = "other"
	other.UID = types.UID("other-uid")
	env := newTestEnv(t, newTestCluster("east"), other)

	env.reconcile(t)
	before := env.statefulSet(t, "zookeeper-noria")
	env.events()

	result, err := env.reconcileNamed("other")
	require.Error(t, err)
	assert.Equal(t, ctrl.Result{}, result)
	assert.True(t, isChildConflict(err))
	assert.Contains(t, err.Error(), "already owned by another NoriaCluster controller noria")

	after := env.statefulSet(t, "zookeeper-noria")
	assert.Equal(t, before.ResourceVersion, after.ResourceVersion)
	owner := metav1.GetControllerOf(after)
	require.NotNil(t, owner)
	assert.Equal(t, types.UID("cluster-uid"), owner.UID)

	west := env.statefulSet(t, "compute-west")
	westOwner := metav1.GetControllerOf(west)
	require.NotNil(t, westOwner)
	assert.Equal(t, types.UID("other-uid"), westOwner.UID)

	status := env.clusterNamed(t, "other").Status
	assert.Equal(t, noriav1alpha1.ClusterPhaseError, status.Phase)
	ready := meta.FindStatusCondition(status.Conditions, noriav1alpha1.ConditionReady)
	require.NotNil(t, ready)
	assert.Equal(t, ReasonChildConflict, ready.Reason)

	events := env.events()
	require.NotEmpty(t, events)
	for _, ev := range events {
		assert.NotContains(t, ev, EventReasonChildRecreated)
	}
	assert.True(t, strings.HasPrefix(events[0], "Warning ChildConflict "), events[0])

	env.reconcile(t)
	assert.Equal(t, after.ResourceVersion, env.statefulSet(t, "zookeeper-noria").ResourceVersion)
	assert.Equal(t, noriav1alpha1.ClusterPhaseSynced, env.cluster(t).Status.Phase)
}

func TestApplyChild_ForeignController(t *testing.T) {
	scheme := setupTestScheme(t)
	foreign := &corev1.Service{
		ObjectMeta: metav1.ObjectMeta{
			Name:      "noria-ui",
			Namespace: "ns1",
			OwnerReferences: []metav1.OwnerReference{{
				APIVersion: "apps/v1",
				Kind:       "Deployment",
				Name:       "someone-else",
				UID:        types.UID("foreign-uid"),
				Controller: ptr.To(true),
			}},
		},
	}
	c := fake.NewClientBuilder().WithScheme(scheme).WithObjects(foreign).Build()
	r := NewClusterReconciler(c, scheme, record.NewFakeRecorder(1), WithMetrics(false))

	desired := &corev1.Service{
		TypeMeta:   metav1.TypeMeta{APIVersion: "v1", Kind: "Service"},
		ObjectMeta: metav1.ObjectMeta{Name: "noria-ui", Namespace: "ns1"},
	}
	_, err := r.applyChild(context.Background(), newTestCluster(), desired)
	require.Error(t, err)

	var owned *controllerutil.AlreadyOwnedError
	require.True(t, errors.As(err, &owned))
	assert.Equal(t, "someone-else", owned.Owner.Name)
}

func TestMatchesLive(t *testing.T) {
	desired := &appsv1.Deployment{
		ObjectMeta: metav1.ObjectMeta{Labels: map[string]string{"a": "1"}},
		Spec:       appsv1.DeploymentSpec{Replicas: ptr.To[int32](3)},
	}

	defaulted := desired.DeepCopy()
	defaulted.Labels["extra"] = "x"
	defaulted.Spec.RevisionHistoryLimit = ptr.To[int32](10)
	assert.True(t, matchesLive(desired, defaulted))

	scaled := desired.DeepCopy()
	scaled.Spec.Replicas = ptr.To[int32](1)
	assert.False(t, matchesLive(desired, scaled))

	relabelled := desired.DeepCopy()
	relabelled.Labels["a"] = "2"
	assert.False(t, matchesLive(desired, relabelled))

	assert.False(t, matchesLive(desired, &corev1.Service{}))
}

func TestSpecHash(t *testing.T) {
	a := &corev1.ConfigMap{ObjectMeta: metav1.ObjectMeta{Name: "a"}, Data: map[string]string{"k": "v"}}
	b := a.DeepCopy()

	hashA, err := specHash(a)
	require.NoError(t, err)
	hashB, err := specHash(b)
	require.NoError(t, err)
	assert.Equal(t, hashA, hashB)

	b.Data["k"] = "changed"
	hashB, err = specHash(b)
	require.NoError(t, err)
	assert.NotEqual(t, hashA, hashB)
}

func TestApplyChild_GetError(t *testing.T) {
	scheme := setupTestScheme(t)
	c := fake.NewClientBuilder().WithScheme(scheme).Build()
	r := NewClusterReconciler(c, runtime.NewScheme(), record.NewFakeRecorder(1), WithMetrics(false))

	cm := &corev1.ConfigMap{
		TypeMeta:   metav1.TypeMeta{APIVersion: "v1", Kind: "ConfigMap"},
		ObjectMeta: metav1.ObjectMeta{Name: "x", Namespace: "ns1"},
	}
	_, err := r.applyChild(context.Background(), newTestCluster(), cm)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported child kind ConfigMap")
	assert.False(t, apierrors.IsNotFound(err))
}
