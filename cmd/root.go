package cmd

import (
	"github.com/grovetools/pyfinder/cli"
	"github.com/spf13/cobra"
)

// NewRootCmd assembles the pyfinder command tree.
func NewRootCmd() *cobra.Command {
	root := cli.NewStandardCommand("pyfinder", "Discover Python environments and serve them over JSON-RPC")
	root.AddCommand(
		NewServerCmd(),
		NewFindCmd(),
		NewResolveCmd(),
		NewSchemaCmd(),
		NewPathsCmd(),
		cli.NewVersionCommand(),
	)
	cli.ApplyStyledHelpRecursive(root)
	return root
}
