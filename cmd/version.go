package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// version is overridden at build time with -ldflags "-X firestige.xyz/router/cmd.version=..."
var version = "0.1.0"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "router version %s\n", version)
	},
}
