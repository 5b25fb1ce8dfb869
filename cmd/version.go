package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// version is stamped at release time via -ldflags "-X ...cmd.version=v1.2.3".
var version = "dev"

func init() {
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the nexusview version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("nexusview " + version)
	},
}
