package handlers

import (
	"encoding/json"
	"fmt"
	"io"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/yaml"

	"github.com/fussybeaver/noria-operator/internal/synthesis"
)

// Output formats accepted by Render.
const (
	OutputYAML = "yaml"
	OutputJSON = "json"
)

// Render synthesizes the children of the cluster in path and writes them to w.
func Render(w io.Writer, path, namespace, output string) error {
	if output != OutputYAML && output != OutputJSON {
		return fmt.Errorf("unsupported output format %q: must be %s or %s", output, OutputYAML, OutputJSON)
	}

	cluster, err := loadCluster(path)
	if err != nil {
		return err
	}

	children, err := synthesis.Synthesize(cluster.Spec, namespaceFor(cluster, namespace))
	if err != nil {
		return fmt.Errorf("invalid cluster %s: %w", cluster.Name, err)
	}

	if output == OutputJSON {
		return writeJSONList(w, children)
	}
	return writeYAMLDocuments(w, children)
}

func writeYAMLDocuments(w io.Writer, children []client.Object) error {
	for i, child := range children {
		data, err := yaml.Marshal(child)
		if err != nil {
			return fmt.Errorf("failed to encode %s: %w", child.GetName(), err)
		}
		if i > 0 {
			if _, err := io.WriteString(w, "---\n"); err != nil {
				return err
			}
		}
		if _, err := w.Write(data); err != nil {
			return err
		}
	}
	return nil
}

func writeJSONList(w io.Writer, children []client.Object) error {
	list := metav1.List{
		TypeMeta: metav1.TypeMeta{APIVersion: "v1", Kind: "List"},
		Items:    make([]runtime.RawExtension, 0, len(children)),
	}
	for _, child := range children {
		list.Items = append(list.Items, runtime.RawExtension{Object: child})
	}

	data, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
