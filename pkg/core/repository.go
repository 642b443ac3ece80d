package core

import "context"

// Store defines the contract for persisting notes and folders.
// The filesystem adapter is the reference implementation; the interface keeps
// the service and the request layers independent of it.
type Store interface {
	// ListNotes returns every note, each with the folder it physically lives in.
	ListNotes(ctx context.Context) ([]Note, error)

	// ListFolders returns the logical folder tree as a flat list with parent links.
	ListFolders(ctx context.Context) ([]Folder, error)

	// SaveNote writes a note under its folder, removing any copy left at an older location.
	SaveNote(ctx context.Context, n Note) error

	// DeleteNote removes a note. Deleting an absent note succeeds.
	DeleteNote(ctx context.Context, id string) error

	// SaveFolders makes the physical tree match the desired folder list.
	SaveFolders(ctx context.Context, folders []Folder) error

	// DeleteFolder removes a folder directory and everything in it.
	DeleteFolder(ctx context.Context, id string) error

	// Initialize ensures the underlying storage is ready.
	Initialize(ctx context.Context) error
}

// Watchable is implemented by stores that can report changes made behind their back.
type Watchable interface {
	Watch(ctx context.Context) (<-chan Event, error)
}

type contextKey string

// ChangeReasonKey is the context key for passing a change reason (commit message)
// to stores that version their writes.
const ChangeReasonKey contextKey = "change_reason"

// ReconcileReport lists the folder IDs touched by a folder list push, by outcome.
type ReconcileReport struct {
	Created   []string
	Moved     []string
	Merged    []string // moved into an existing directory; same-named files were overwritten
	Unchanged []string
	Failed    []string
}

// Changed reports whether any directory or sidecar was written.
func (r ReconcileReport) Changed() bool {
	return len(r.Created)+len(r.Moved)+len(r.Merged)+len(r.Unchanged) > 0
}

// FolderApplier is implemented by stores that report what a folder list push did.
type FolderApplier interface {
	ApplyFolders(ctx context.Context, folders []Folder) (ReconcileReport, error)
}
