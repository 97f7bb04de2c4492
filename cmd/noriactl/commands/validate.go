package commands

import (
	"github.com/spf13/cobra"

	"github.com/fussybeaver/noria-operator/cmd/noriactl/handlers"
)

// Validate returns the command that checks a cluster document.
func Validate() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check a NoriaCluster and summarize its topology",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Validate(cmd.OutOrStdout(), file)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Path to the NoriaCluster document")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}
