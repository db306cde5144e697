package main

import (
	"github.com/spf13/cobra"

	"github.com/ducminhle1904/smart-ea/cmd/common"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		common.PrintVersion(cmd.OutOrStdout(), "smart-ea")
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
