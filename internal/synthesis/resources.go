package synthesis

import (
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/intstr"
)

// Type metadata for the four child kinds. Set explicitly so rendered objects
// serialize with apiVersion and kind without a scheme round trip.
var (
	typeConfigMap   = metav1.TypeMeta{APIVersion: "v1", Kind: "ConfigMap"}
	typeService     = metav1.TypeMeta{APIVersion: "v1", Kind: "Service"}
	typeStatefulSet = metav1.TypeMeta{APIVersion: appsv1.SchemeGroupVersion.String(), Kind: "StatefulSet"}
	typeDeployment  = metav1.TypeMeta{APIVersion: appsv1.SchemeGroupVersion.String(), Kind: "Deployment"}
)

// Container memory is the heap ceiling plus 30% for non-heap overhead.
const (
	memoryHeadroomNumerator   = 13
	memoryHeadroomDenominator = 10
)

// dataVolume is the name of the volume claim template on stateful workloads.
const dataVolume = "data"

func mebibytes(n int64) resource.Quantity {
	return *resource.NewQuantity(n*1024*1024, resource.BinarySI)
}

// containerMemory returns the memory request and limit for a heap ceiling in
// MiB. Request equals limit so the pod gets the Guaranteed QoS class.
func containerMemory(maxHeap int64) corev1.ResourceRequirements {
	mem := mebibytes(maxHeap * memoryHeadroomNumerator / memoryHeadroomDenominator)
	return corev1.ResourceRequirements{
		Limits:   corev1.ResourceList{corev1.ResourceMemory: mem},
		Requests: corev1.ResourceList{corev1.ResourceMemory: mem.DeepCopy()},
	}
}

func dataVolumeClaim(storageSize int64) corev1.PersistentVolumeClaim {
	return corev1.PersistentVolumeClaim{
		ObjectMeta: metav1.ObjectMeta{Name: dataVolume},
		Spec: corev1.PersistentVolumeClaimSpec{
			AccessModes: []corev1.PersistentVolumeAccessMode{corev1.ReadWriteOnce},
			Resources: corev1.VolumeResourceRequirements{
				Requests: corev1.ResourceList{corev1.ResourceStorage: mebibytes(storageSize)},
			},
		},
	}
}

func livenessProbe(handler corev1.ProbeHandler, initialDelaySeconds int32) *corev1.Probe {
	return &corev1.Probe{
		ProbeHandler:        handler,
		FailureThreshold:    3,
		InitialDelaySeconds: initialDelaySeconds,
		PeriodSeconds:       10,
		SuccessThreshold:    1,
		TimeoutSeconds:      5,
	}
}

func servicePort(name string, port, targetPort int32) corev1.ServicePort {
	return corev1.ServicePort{
		Name:       name,
		Port:       port,
		TargetPort: intstr.FromInt32(targetPort),
	}
}

func containerPort(name string, port int32) corev1.ContainerPort {
	return corev1.ContainerPort{
		Name:          name,
		ContainerPort: port,
		Protocol:      corev1.ProtocolTCP,
	}
}

// nodeIPEnv exposes the pod IP to the Noria binaries, which advertise it to
// ZooKeeper.
func nodeIPEnv() []corev1.EnvVar {
	return []corev1.EnvVar{
		{Name: "RUST_LOG", Value: "debug"},
		{
			Name: "NODE_IP",
			ValueFrom: &corev1.EnvVarSource{
				FieldRef: &corev1.ObjectFieldSelector{
					APIVersion: "v1",
					FieldPath:  "status.podIP",
				},
			},
		},
	}
}

func newService(name, namespace string, objectLabels, selector map[string]string, ports ...corev1.ServicePort) *corev1.Service {
	return &corev1.Service{
		TypeMeta: typeService,
		ObjectMeta: metav1.ObjectMeta{
			Name:      name,
			Namespace: namespace,
			Labels:    objectLabels,
		},
		Spec: corev1.ServiceSpec{
			Ports:    ports,
			Selector: selector,
		},
	}
}
