package commands

import (
	"github.com/spf13/cobra"

	"github.com/fussybeaver/noria-operator/cmd/noriactl/handlers"
)

// Render returns the command that prints the children of a cluster.
func Render() *cobra.Command {
	var (
		file      string
		namespace string
		output    string
	)

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Print the child resources of a NoriaCluster",
		Long: `Synthesize the children of a NoriaCluster document and print them.

The output is what the operator would create: the ZooKeeper ensemble, the
compute and gateway of every deployment, and the shared UI, in that order.
The namespace defaults to the document's metadata.namespace, then "default".
`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Render(cmd.OutOrStdout(), file, namespace, output)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Path to the NoriaCluster document")
	cmd.Flags().StringVarP(&namespace, "namespace", "n", "", "Namespace of the rendered children")
	cmd.Flags().StringVarP(&output, "output", "o", handlers.OutputYAML, "Output format: yaml or json")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}
