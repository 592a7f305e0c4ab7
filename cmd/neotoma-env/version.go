package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version of neotoma-env",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "neotoma-env %s\n", version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
