// Package main is the entry point for the noriactl CLI.
//
// noriactl renders and validates NoriaCluster documents offline, using the
// same synthesis code as the operator. It shows exactly which children the
// operator would create for a cluster without talking to an API server.
//
// Commands: render, validate, version.
//
// For detailed usage information, run:
//
//	noriactl --help
package main

import (
	"fmt"
	"os"

	"github.com/fussybeaver/noria-operator/cmd/noriactl/commands"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.SetVersionInfo(version, commit, date)
	if err := commands.Root().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
