package main

import (
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "fastform",
		Short:        "FastForm API server and form tools",
		SilenceUsage: true,
	}
	root.AddCommand(newServeCmd(), newValidateCmd())
	return root
}
