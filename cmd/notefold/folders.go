package main

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/aretw0/notefold/pkg/core"
)

var (
	foldersJSON bool
	foldersFile string
)

var foldersCmd = &cobra.Command{
	Use:   "folders",
	Short: "List all folders in the store",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		svc := openService(ctx)

		folders, err := svc.ListFolders(ctx)
		if err != nil {
			fatal("Failed to list folders", err)
		}

		if foldersJSON {
			printJSON(folders)
			return
		}
		byID := make(map[string]core.Folder, len(folders))
		for _, f := range folders {
			byID[f.ID] = f
		}
		for _, f := range folders {
			path := core.ResolveFolderPath(f.ID, byID, nil)
			fmt.Printf("%s\t%s\n", f.ID, filepath.Join(path...))
		}
	},
}

var saveFoldersCmd = &cobra.Command{
	Use:   "save-folders",
	Short: "Reconcile the directory tree with a folder list",
	Long: `save-folders reads a JSON array of folders ({"id","parentId","name"})
and creates, renames, moves or merges directories until the tree matches it.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		data, err := readInput(foldersFile)
		if err != nil {
			fatal("Failed to read folder list", err)
		}
		var folders []core.Folder
		if err := json.Unmarshal(data, &folders); err != nil {
			fatal("Failed to parse folder list", err)
		}

		ctx := cmd.Context()
		svc := openService(ctx)
		ctx = withChangeReason(ctx, "reconcile folders")

		report, err := svc.ApplyFolders(ctx, folders)
		fmt.Printf("created=%d moved=%d merged=%d unchanged=%d failed=%d\n",
			len(report.Created), len(report.Moved), len(report.Merged), len(report.Unchanged), len(report.Failed))
		if err != nil {
			fatal("Some folders could not be reconciled", err)
		}
	},
}

var deleteFolderCmd = &cobra.Command{
	Use:   "delete-folder [id]",
	Short: "Delete a folder and everything inside it",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		svc := openService(ctx)

		ctx = withChangeReason(ctx, "delete folder "+args[0])
		if err := svc.DeleteFolder(ctx, args[0]); err != nil {
			fatal("Failed to delete folder", err)
		}
		fmt.Printf("Folder deleted: %s\n", args[0])
	},
}

func init() {
	rootCmd.AddCommand(foldersCmd, saveFoldersCmd, deleteFolderCmd)

	foldersCmd.Flags().BoolVar(&foldersJSON, "json", false, "Output in JSON format")
	addCommitFlags(saveFoldersCmd, deleteFolderCmd)
	saveFoldersCmd.Flags().StringVarP(&foldersFile, "file", "f", "-", "Folder list JSON (- for stdin)")
}
