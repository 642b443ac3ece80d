package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/aretw0/notefold/pkg/adapters/fs"
	"github.com/aretw0/notefold/pkg/core"
)

var (
	notesJSON   bool
	notesFolder string

	saveID      string
	saveFolder  string
	saveContent string
	saveFile    string
	saveTitle   string
)

var notesCmd = &cobra.Command{
	Use:   "notes",
	Short: "List all notes in the store",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		svc := openService(ctx)

		notes, err := svc.ListNotes(ctx)
		if err != nil {
			fatal("Failed to list notes", err)
		}

		var filtered []core.Note
		for _, n := range notes {
			if notesFolder != "" && n.FolderID != notesFolder {
				continue
			}
			filtered = append(filtered, n)
		}

		if notesJSON {
			printJSON(filtered)
			return
		}

		var codec *fs.Codec
		if repo, ok := svc.Store().(*fs.Repository); ok {
			codec = repo.Codec()
		}
		for _, n := range filtered {
			title := n.Title()
			if title == "" && codec != nil {
				title = codec.Title(n)
			}
			folder := n.FolderID
			if folder == "" {
				folder = "-"
			}
			fmt.Printf("%s\t%s\t%s\n", n.ID, folder, title)
		}
	},
}

var saveCmd = &cobra.Command{
	Use:   "save",
	Short: "Create or update a note",
	Long: `Save writes a note into the directory of its folder, or into the
Uncategorized bucket when no folder is given. Content comes from --content,
--file, or stdin when --file is "-". Without --id a new ID is generated.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		content := saveContent
		if saveFile != "" {
			data, err := readInput(saveFile)
			if err != nil {
				fatal("Failed to read content", err)
			}
			content = string(data)
		}

		n := core.Note{ID: saveID, FolderID: saveFolder, Content: content}
		if saveTitle != "" {
			n.Metadata = core.Metadata{"title": saveTitle}
		}

		ctx := cmd.Context()
		svc := openService(ctx)
		if n.ID == "" {
			n.ID = uuid.NewString()
		}
		ctx = withChangeReason(ctx, "update note "+n.ID)

		saved, err := svc.CreateNote(ctx, n)
		if err != nil {
			fatal("Failed to save note", err)
		}
		fmt.Printf("Note saved: %s\n", saved.ID)
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete [id]",
	Short: "Delete a note from the store",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		svc := openService(ctx)

		ctx = withChangeReason(ctx, "delete note "+args[0])
		if err := svc.DeleteNote(ctx, args[0]); err != nil {
			fatal("Failed to delete note", err)
		}
		fmt.Printf("Note deleted: %s\n", args[0])
	},
}

func readInput(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

func printJSON(v any) {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		fatal("Failed to encode JSON", err)
	}
}

func init() {
	rootCmd.AddCommand(notesCmd, saveCmd, deleteCmd)

	notesCmd.Flags().BoolVar(&notesJSON, "json", false, "Output in JSON format")
	notesCmd.Flags().StringVar(&notesFolder, "folder", "", "Only list notes of this folder ID")

	saveCmd.Flags().StringVar(&saveID, "id", "", "Note ID (file name without extension)")
	saveCmd.Flags().StringVar(&saveFolder, "folder", "", "Folder ID")
	saveCmd.Flags().StringVar(&saveContent, "content", "", "Note body")
	saveCmd.Flags().StringVarP(&saveFile, "file", "f", "", "Read the body from a file (- for stdin)")
	saveCmd.Flags().StringVar(&saveTitle, "title", "", "Title front matter field")
	addCommitFlags(saveCmd, deleteCmd)
}
