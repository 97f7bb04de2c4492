package handlers

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/fussybeaver/noria-operator/internal/synthesis"
)

// Validate checks the cluster in path and writes a summary of the resolved
// topology to w.
func Validate(w io.Writer, path string) error {
	cluster, err := loadCluster(path)
	if err != nil {
		return err
	}

	resolved, err := synthesis.Resolve(cluster.Spec)
	if err != nil {
		return fmt.Errorf("invalid cluster %s: %w", cluster.Name, err)
	}

	fmt.Fprintf(w, "NoriaCluster %s is valid\n\n", cluster.Name)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "COMPONENT\tNAME\tVERSION\tREPLICAS\tDETAILS")
	for _, r := range resolved {
		fmt.Fprintln(tw, summaryRow(r))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	children := len(synthesis.Render(resolved, namespaceFor(cluster, "")))
	fmt.Fprintf(w, "\n%d deployments, %d children\n", len(cluster.Spec.Deployments), children)
	return nil
}

func summaryRow(r synthesis.Resolved) string {
	switch c := r.(type) {
	case synthesis.Ensemble:
		return fmt.Sprintf("%s\t%s\t%s\t%d\theap=%dMi storage=%dMi properties=%s",
			c.Component(), c.Name, c.Version, c.Replicas, c.MaxHeap, c.StorageSize, c.PropertiesName())
	case synthesis.Compute:
		return fmt.Sprintf("%s\t%s\t%s\t%d\tdeployment=%s heap=%dMi storage=%dMi",
			c.Component(), c.Name, c.Version, c.Replicas, c.ID, c.MaxHeap, c.StorageSize)
	case synthesis.Gateway:
		return fmt.Sprintf("%s\t%s\t%s\t%d\tdeployment=%s",
			c.Component(), c.Name, c.Version, c.Replicas, c.ID)
	case synthesis.UI:
		return fmt.Sprintf("%s\t%s\t%s\t%d\t-",
			c.Component(), c.Name, c.Version, synthesis.UIReplicas)
	default:
		return fmt.Sprintf("%s\t-\t-\t-\t-", r.Component())
	}
}
