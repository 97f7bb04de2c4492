package synthesis

import (
	"fmt"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/intstr"
	"k8s.io/utils/ptr"
	"sigs.k8s.io/controller-runtime/pkg/client"

	noriav1alpha1 "github.com/fussybeaver/noria-operator/api/v1alpha1"
	"github.com/fussybeaver/noria-operator/internal/util/labels"
	"github.com/fussybeaver/noria-operator/internal/util/naming"
)

// Default noria-server settings.
const (
	DefaultComputeMaxHeap     = 96
	DefaultComputeStorageSize = 1024
	DefaultComputeReplicas    = 3
)

const (
	computePort   = 6033
	computeLogDir = "/var/lib/noria"

	// computeShards is passed as --shards; 0 disables sharding.
	computeShards = 0
)

// Compute is the resolved noria-server StatefulSet of one deployment.
type Compute struct {
	ID          string
	Name        string
	Version     string
	MaxHeap     int64
	StorageSize int64
	Replicas    int32
}

// ResolveCompute applies defaults to the optional compute spec of deployment id.
func ResolveCompute(spec *noriav1alpha1.ComputeSpec, id string) Compute {
	if spec == nil {
		spec = &noriav1alpha1.ComputeSpec{}
	}
	return Compute{
		ID:          id,
		Name:        naming.Compute(id),
		Version:     stringOr(spec.Version, DefaultNoriaVersion),
		MaxHeap:     mebibytesOr(spec.MaxHeap, DefaultComputeMaxHeap),
		StorageSize: mebibytesOr(spec.StorageSize, DefaultComputeStorageSize),
		Replicas:    replicasOr(spec.Replicas, DefaultComputeReplicas),
	}
}

// Component implements Resolved.
func (c Compute) Component() string { return labels.KindCompute }

// Render returns the Service and the StatefulSet.
func (c Compute) Render(namespace string) []client.Object {
	return []client.Object{
		newService(
			c.Name,
			namespace,
			labels.ForObject(labels.KindCompute, c.ID),
			labels.Selector(labels.KindCompute, c.ID),
			servicePort("noria", computePort, computePort),
		),
		c.statefulSet(namespace),
	}
}

func (c Compute) command() string {
	return fmt.Sprintf(`/usr/local/bin/noria-server --address $NODE_IP \
  --deployment %s --log-dir %s --memory %d \
  --quorum %d --shards %d --zookeeper %s:%d`,
		c.ID, computeLogDir, c.MaxHeap*1024*1024,
		c.Replicas, computeShards, naming.EnsembleClientService(naming.Ensemble), zookeeperClientPort)
}

func (c Compute) statefulSet(namespace string) *appsv1.StatefulSet {
	selector := labels.Selector(labels.KindCompute, c.ID)

	return &appsv1.StatefulSet{
		TypeMeta: typeStatefulSet,
		ObjectMeta: metav1.ObjectMeta{
			Name:      c.Name,
			Namespace: namespace,
			Labels:    labels.ForObject(labels.KindCompute, c.ID),
		},
		Spec: appsv1.StatefulSetSpec{
			Replicas:    ptr.To(c.Replicas),
			ServiceName: c.Name,
			Selector:    &metav1.LabelSelector{MatchLabels: selector},
			Template: corev1.PodTemplateSpec{
				ObjectMeta: metav1.ObjectMeta{
					Name:   c.Name,
					Labels: selector,
				},
				Spec: corev1.PodSpec{
					Containers: []corev1.Container{{
						Name:            "noria-server",
						Image:           image(NoriaImage, c.Version),
						ImagePullPolicy: corev1.PullAlways,
						Command:         []string{"bash", "-exc"},
						Args:            []string{c.command()},
						Env:             nodeIPEnv(),
						Ports:           []corev1.ContainerPort{containerPort("api", computePort)},
						Resources:       containerMemory(c.MaxHeap),
						LivenessProbe: livenessProbe(corev1.ProbeHandler{
							TCPSocket: &corev1.TCPSocketAction{Port: intstr.FromInt32(computePort)},
						}, 60),
						VolumeMounts: []corev1.VolumeMount{{Name: dataVolume, MountPath: computeLogDir}},
					}},
				},
			},
			UpdateStrategy: appsv1.StatefulSetUpdateStrategy{
				Type: appsv1.OnDeleteStatefulSetStrategyType,
			},
			VolumeClaimTemplates: []corev1.PersistentVolumeClaim{dataVolumeClaim(c.StorageSize)},
		},
	}
}
