package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aretw0/notefold"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of notefold",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("notefold version %s\n", strings.TrimSpace(notefold.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
