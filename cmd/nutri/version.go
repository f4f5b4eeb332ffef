package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aretw0/nutri"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of nutri",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "nutri version %s\n", strings.TrimSpace(nutri.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
