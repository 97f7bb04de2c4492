package synthesis

import (
	"fmt"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/utils/ptr"
	"sigs.k8s.io/controller-runtime/pkg/client"

	noriav1alpha1 "github.com/fussybeaver/noria-operator/api/v1alpha1"
	"github.com/fussybeaver/noria-operator/internal/util/labels"
	"github.com/fussybeaver/noria-operator/internal/util/naming"
)

// Default ensemble settings.
const (
	DefaultZookeeperVersion     = "5.3.3"
	DefaultZookeeperMaxHeap     = 512
	DefaultZookeeperStorageSize = 1024
	DefaultZookeeperReplicas    = 3
)

const (
	zookeeperDataDir        = "/var/lib/zookeeper"
	zookeeperPropertiesKey  = "zookeeper.properties"
	zookeeperPropertiesPath = "/etc/kafka/zookeeper.properties"
	propertiesVolume        = "properties"
)

// initZookeeperScript writes myid from the pod ordinal: pod zookeeper-noria-0
// is server.1, matching PeerProperties.
const initZookeeperScript = `set -ex
[[ ` + "`hostname`" + ` =~ -([0-9]+)$ ]] || exit 1
echo $((BASH_REMATCH[1] + 1)) > /var/lib/zookeeper/myid`

// ruokScript is the liveness check: a healthy server answers "imok".
const ruokScript = `[[ "$(echo ruok | nc 127.0.0.1 2181)" = "imok" ]]`

// Ensemble is the resolved ZooKeeper quorum shared by every deployment.
type Ensemble struct {
	Name        string
	Version     string
	MaxHeap     int64
	StorageSize int64
	Replicas    int32
	Properties  Properties
}

// ResolveEnsemble applies defaults to the optional ensemble spec and builds
// the full property list: base settings, one server entry per replica, then
// the additional properties in key order.
func ResolveEnsemble(spec *noriav1alpha1.EnsembleSpec) Ensemble {
	if spec == nil {
		spec = &noriav1alpha1.EnsembleSpec{}
	}

	e := Ensemble{
		Name:        naming.Ensemble,
		Version:     stringOr(spec.Version, DefaultZookeeperVersion),
		MaxHeap:     mebibytesOr(spec.MaxHeap, DefaultZookeeperMaxHeap),
		StorageSize: mebibytesOr(spec.StorageSize, DefaultZookeeperStorageSize),
		Replicas:    replicasOr(spec.Replicas, DefaultZookeeperReplicas),
	}

	e.Properties = BaseProperties().
		Concat(PeerProperties(e.Name, e.Replicas)).
		AppendAdditional(spec.AdditionalProperties)

	return e
}

// Component implements Resolved.
func (e Ensemble) Component() string { return labels.KindZookeeper }

// PropertiesName is the content addressed name of the properties ConfigMap.
func (e Ensemble) PropertiesName() string {
	return naming.EnsembleProperties(e.Name, e.Properties.Hash())
}

// ClientService is the name clients use to reach the quorum.
func (e Ensemble) ClientService() string {
	return naming.EnsembleClientService(e.Name)
}

// Render returns the properties ConfigMap, the headless nodes Service, the
// client Service and the StatefulSet, in that order.
func (e Ensemble) Render(namespace string) []client.Object {
	return []client.Object{
		e.configMap(namespace),
		e.nodesService(namespace),
		e.clientService(namespace),
		e.statefulSet(namespace),
	}
}

func (e Ensemble) configMap(namespace string) *corev1.ConfigMap {
	return &corev1.ConfigMap{
		TypeMeta: typeConfigMap,
		ObjectMeta: metav1.ObjectMeta{
			Name:      e.PropertiesName(),
			Namespace: namespace,
			Labels:    labels.ForObject(labels.KindZookeeper, labels.NameShared),
		},
		Data: map[string]string{
			zookeeperPropertiesKey: e.Properties.String(),
		},
	}
}

// nodesService gives each member a stable DNS name. Unready members must be
// resolvable or the quorum can never form.
func (e Ensemble) nodesService(namespace string) *corev1.Service {
	svc := newService(
		naming.EnsembleNodesService(e.Name),
		namespace,
		labels.ForObject(labels.KindZookeeper, labels.NameShared),
		labels.Selector(labels.KindZookeeper, labels.NameShared),
		servicePort("clients", zookeeperClientPort, zookeeperClientPort),
		servicePort("clustering", zookeeperPeerPort, zookeeperPeerPort),
		servicePort("leader-election", zookeeperElectionPort, zookeeperElectionPort),
	)
	svc.Spec.ClusterIP = corev1.ClusterIPNone
	svc.Spec.PublishNotReadyAddresses = true
	svc.Spec.SessionAffinity = corev1.ServiceAffinityNone
	return svc
}

func (e Ensemble) clientService(namespace string) *corev1.Service {
	return newService(
		e.ClientService(),
		namespace,
		labels.ForObject(labels.KindZookeeper, labels.NameShared),
		labels.Selector(labels.KindZookeeper, labels.NameShared),
		servicePort("clients", zookeeperClientPort, zookeeperClientPort),
	)
}

func (e Ensemble) statefulSet(namespace string) *appsv1.StatefulSet {
	selector := labels.Selector(labels.KindZookeeper, labels.NameShared)
	img := image(ZookeeperImage, e.Version)
	dataMount := corev1.VolumeMount{Name: dataVolume, MountPath: zookeeperDataDir}

	return &appsv1.StatefulSet{
		TypeMeta: typeStatefulSet,
		ObjectMeta: metav1.ObjectMeta{
			Name:      e.Name,
			Namespace: namespace,
			Labels:    labels.ForObject(labels.KindZookeeper, labels.NameShared),
		},
		Spec: appsv1.StatefulSetSpec{
			PodManagementPolicy: appsv1.ParallelPodManagement,
			Replicas:            ptr.To(e.Replicas),
			ServiceName:         naming.EnsembleNodesService(e.Name),
			Selector:            &metav1.LabelSelector{MatchLabels: selector},
			Template: corev1.PodTemplateSpec{
				ObjectMeta: metav1.ObjectMeta{
					Name:   e.Name,
					Labels: selector,
				},
				Spec: corev1.PodSpec{
					InitContainers: []corev1.Container{{
						Name:         "init-zookeeper",
						Image:        img,
						Command:      []string{"bash", "-c", initZookeeperScript},
						VolumeMounts: []corev1.VolumeMount{dataMount},
					}},
					Containers: []corev1.Container{{
						Name:            "zookeeper",
						Image:           img,
						ImagePullPolicy: corev1.PullIfNotPresent,
						Command:         []string{"/usr/bin/zookeeper-server-start"},
						Args:            []string{zookeeperPropertiesPath},
						Env: []corev1.EnvVar{{
							Name:  "KAFKA_HEAP_OPTS",
							Value: fmt.Sprintf("-Xmx%dm", e.MaxHeap),
						}},
						Ports: []corev1.ContainerPort{
							containerPort("clients", zookeeperClientPort),
							containerPort("clustering", zookeeperPeerPort),
							containerPort("leader-election", zookeeperElectionPort),
						},
						Resources: containerMemory(e.MaxHeap),
						LivenessProbe: livenessProbe(corev1.ProbeHandler{
							Exec: &corev1.ExecAction{Command: []string{"bash", "-exc", ruokScript}},
						}, 60),
						VolumeMounts: []corev1.VolumeMount{
							dataMount,
							{
								Name:      propertiesVolume,
								MountPath: zookeeperPropertiesPath,
								SubPath:   zookeeperPropertiesKey,
							},
						},
					}},
					Volumes: []corev1.Volume{{
						Name: propertiesVolume,
						VolumeSource: corev1.VolumeSource{
							ConfigMap: &corev1.ConfigMapVolumeSource{
								LocalObjectReference: corev1.LocalObjectReference{Name: e.PropertiesName()},
							},
						},
					}},
				},
			},
			// Pods are only replaced when deleted by an operator, never rolled
			// automatically, so a config change cannot take down the quorum.
			UpdateStrategy: appsv1.StatefulSetUpdateStrategy{
				Type: appsv1.OnDeleteStatefulSetStrategyType,
			},
			VolumeClaimTemplates: []corev1.PersistentVolumeClaim{dataVolumeClaim(e.StorageSize)},
		},
	}
}
