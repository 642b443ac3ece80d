package notefold_test

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/aretw0/notefold"
)

// Example_basic creates a folder, saves a note into it and lists it back.
func Example_basic() {
	tmpDir, err := os.MkdirTemp("", "notefold-example-*")
	if err != nil {
		log.Fatal(err)
	}
	defer os.RemoveAll(tmpDir)

	root := filepath.Join(tmpDir, "store")
	svc, err := notefold.New(root)
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()

	if err := svc.SaveFolders(ctx, []notefold.Folder{{ID: "f1", Name: "Work: Q1/Q2"}}); err != nil {
		log.Fatal(err)
	}
	if err := svc.SaveNote(ctx, notefold.Note{ID: "n1", FolderID: "f1", Content: "# Plan"}); err != nil {
		log.Fatal(err)
	}

	notes, err := svc.ListNotes(ctx)
	if err != nil {
		log.Fatal(err)
	}
	for _, n := range notes {
		fmt.Printf("%s in %s\n", n.ID, n.FolderID)
	}

	if _, err := os.Stat(filepath.Join(root, "Work_ Q1_Q2", "n1.md")); err == nil {
		fmt.Println("stored under Work_ Q1_Q2")
	}
	// Output:
	// n1 in f1
	// stored under Work_ Q1_Q2
}

// ExampleMigrate upgrades a flat legacy store.
func ExampleMigrate() {
	tmpDir, err := os.MkdirTemp("", "notefold-migrate-*")
	if err != nil {
		log.Fatal(err)
	}
	defer os.RemoveAll(tmpDir)

	legacyNotes := filepath.Join(tmpDir, "notes")
	legacyFolders := filepath.Join(tmpDir, "folders")
	_ = os.MkdirAll(legacyNotes, 0755)
	_ = os.MkdirAll(legacyFolders, 0755)
	_ = os.WriteFile(filepath.Join(legacyFolders, "f1.json"), []byte(`{"id":"f1","name":"Ideas"}`), 0644)
	_ = os.WriteFile(filepath.Join(legacyNotes, "n1.md"), []byte("---\nid: n1\nfolderId: f1\n---\nhello"), 0644)

	report, err := notefold.Migrate(context.Background(), filepath.Join(tmpDir, "store"))
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("folders=%d notes=%d fallbacks=%d\n", report.Folders, report.Notes, report.Fallbacks)
	// Output:
	// folders=1 notes=1 fallbacks=0
}
