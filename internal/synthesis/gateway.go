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

// DefaultGatewayReplicas is the noria-mysql replica count.
const DefaultGatewayReplicas = 3

const gatewayPort = 3306

// Gateway is the resolved noria-mysql adapter of one deployment. It is
// stateless, so it has no heap or storage settings.
type Gateway struct {
	ID       string
	Name     string
	Version  string
	Replicas int32
}

// ResolveGateway applies defaults to the optional gateway spec of deployment id.
func ResolveGateway(spec *noriav1alpha1.GatewaySpec, id string) Gateway {
	if spec == nil {
		spec = &noriav1alpha1.GatewaySpec{}
	}
	return Gateway{
		ID:       id,
		Name:     naming.Gateway(id),
		Version:  stringOr(spec.Version, DefaultNoriaVersion),
		Replicas: replicasOr(spec.Replicas, DefaultGatewayReplicas),
	}
}

// Component implements Resolved.
func (g Gateway) Component() string { return labels.KindGateway }

// Render returns the Service and the Deployment.
func (g Gateway) Render(namespace string) []client.Object {
	return []client.Object{
		newService(
			g.Name,
			namespace,
			labels.ForObject(labels.KindGateway, g.ID),
			labels.Selector(labels.KindGateway, g.ID),
			servicePort("mysql", gatewayPort, gatewayPort),
		),
		g.deployment(namespace),
	}
}

func (g Gateway) command() string {
	return fmt.Sprintf(`/usr/local/bin/noria-mysql --address ${NODE_IP}:%d \
  --deployment %s --zookeeper-address %s:%d`,
		gatewayPort, g.ID, naming.EnsembleClientService(naming.Ensemble), zookeeperClientPort)
}

func (g Gateway) deployment(namespace string) *appsv1.Deployment {
	selector := labels.Selector(labels.KindGateway, g.ID)

	return &appsv1.Deployment{
		TypeMeta: typeDeployment,
		ObjectMeta: metav1.ObjectMeta{
			Name:      g.Name,
			Namespace: namespace,
			Labels:    labels.ForObject(labels.KindGateway, g.ID),
		},
		Spec: appsv1.DeploymentSpec{
			Replicas: ptr.To(g.Replicas),
			Selector: &metav1.LabelSelector{MatchLabels: selector},
			Strategy: appsv1.DeploymentStrategy{Type: appsv1.RollingUpdateDeploymentStrategyType},
			Template: corev1.PodTemplateSpec{
				ObjectMeta: metav1.ObjectMeta{
					Name:   g.Name,
					Labels: selector,
				},
				Spec: corev1.PodSpec{
					Containers: []corev1.Container{{
						Name:            "noria-mysql",
						Image:           image(NoriaImage, g.Version),
						ImagePullPolicy: corev1.PullAlways,
						Command:         []string{"bash", "-exc"},
						Args:            []string{g.command()},
						Env:             nodeIPEnv(),
						Ports:           []corev1.ContainerPort{containerPort("clients", gatewayPort)},
						LivenessProbe: livenessProbe(corev1.ProbeHandler{
							Exec: &corev1.ExecAction{
								Command: []string{"bash", "-exc", `mysqladmin ping -h "$NODE_IP"`},
							},
						}, 60),
					}},
				},
			},
		},
	}
}
