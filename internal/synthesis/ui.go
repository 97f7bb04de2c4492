package synthesis

import (
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

// UIReplicas is fixed: one dashboard serves the whole cluster.
const UIReplicas = 1

const (
	uiServicePort = 80
	uiPort        = 8000
)

// UI is the resolved dashboard.
type UI struct {
	Name    string
	Version string
}

// ResolveUI applies defaults to the optional UI spec.
func ResolveUI(spec *noriav1alpha1.UISpec) UI {
	if spec == nil {
		spec = &noriav1alpha1.UISpec{}
	}
	return UI{
		Name:    naming.UI,
		Version: stringOr(spec.Version, DefaultNoriaVersion),
	}
}

// Component implements Resolved.
func (u UI) Component() string { return labels.KindUI }

// Render returns the Service and the Deployment.
func (u UI) Render(namespace string) []client.Object {
	return []client.Object{
		newService(
			u.Name,
			namespace,
			labels.ForObject(labels.KindUI, labels.NameShared),
			labels.Selector(labels.KindUI, labels.NameShared),
			servicePort("ui", uiServicePort, uiPort),
		),
		u.deployment(namespace),
	}
}

func (u UI) deployment(namespace string) *appsv1.Deployment {
	selector := labels.Selector(labels.KindUI, labels.NameShared)

	return &appsv1.Deployment{
		TypeMeta: typeDeployment,
		ObjectMeta: metav1.ObjectMeta{
			Name:      u.Name,
			Namespace: namespace,
			Labels:    labels.ForObject(labels.KindUI, labels.NameShared),
		},
		Spec: appsv1.DeploymentSpec{
			Replicas: ptr.To[int32](UIReplicas),
			Selector: &metav1.LabelSelector{MatchLabels: selector},
			Strategy: appsv1.DeploymentStrategy{Type: appsv1.RollingUpdateDeploymentStrategyType},
			Template: corev1.PodTemplateSpec{
				ObjectMeta: metav1.ObjectMeta{
					Name:   u.Name,
					Labels: selector,
				},
				Spec: corev1.PodSpec{
					Containers: []corev1.Container{{
						Name:            "noria-ui",
						Image:           image(NoriaImage, u.Version),
						ImagePullPolicy: corev1.PullAlways,
						Command:         []string{"python3", "-m", "http.server"},
						WorkingDir:      "/srv/noria-ui",
						Ports:           []corev1.ContainerPort{containerPort("web", uiPort)},
						LivenessProbe: livenessProbe(corev1.ProbeHandler{
							HTTPGet: &corev1.HTTPGetAction{
								Path: "/",
								Port: intstr.FromInt32(uiPort),
							},
						}, 30),
					}},
				},
			},
		},
	}
}
