package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/notefold"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Upgrade a flat legacy store into the folder tree",
	Long: `migrate copies legacy notes/ and folders/ records into the tree and
renames the legacy directories with an _old_backup suffix. Running it again
is a no-op.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		root, err := storeRoot()
		if err != nil {
			fatal("Failed to resolve store root", err)
		}

		report, err := notefold.Migrate(cmd.Context(), root, storeOptions()...)
		if report.Skipped {
			fmt.Println("No legacy store found.")
			return
		}
		fmt.Printf("folders=%d notes=%d fallbacks=%d collisions=%d\n", report.Folders, report.Notes, report.Fallbacks, report.Collisions)
		for _, dir := range report.BackedUp {
			fmt.Printf("backup: %s\n", dir)
		}
		if err != nil {
			fatal("Migration finished with errors", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
