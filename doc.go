// Package notefold is the composition root of a note store that uses a plain
// directory tree as its database.
//
// Folders are directories, each carrying a small JSON sidecar with its stable
// ID. Notes are Markdown files with YAML front matter, named after their ID.
// Everything else is derived by rescanning the tree, so files moved or edited
// by hand are picked up on the next read. Directories without a sidecar are
// adopted and given one.
//
// Usage:
//
//	svc, err := notefold.New("./store", notefold.WithLogger(logger))
//	if err != nil {
//		return err
//	}
//
//	// Push the folder list; directories are created, renamed or moved to match.
//	err = svc.SaveFolders(ctx, []notefold.Folder{{ID: "f1", Name: "Work"}})
//
//	// Save a note into its folder.
//	err = svc.SaveNote(ctx, notefold.Note{ID: "n1", FolderID: "f1", Content: "# Hello"})
//
// On open, a flat legacy store (notes/ and folders/ next to the root) is
// migrated into the tree and the old directories are renamed with an
// "_old_backup" suffix.
package notefold
