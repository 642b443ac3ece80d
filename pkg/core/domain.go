// Package core holds the storage-agnostic domain of notefold: notes, folders,
// and the contract a store must satisfy.
package core

import (
	"encoding/json"
	"fmt"
)

// Metadata represents the flexible key-value pairs associated with a note.
type Metadata map[string]any

// Reserved keys. They are managed by the store and never kept in Note.Metadata.
const (
	KeyID       = "id"
	KeyFolderID = "folderId"
	KeyContent  = "content"
)

// Note is a Markdown document. FolderID is empty for notes in the
// Uncategorized bucket.
type Note struct {
	ID       string
	FolderID string
	Content  string
	Metadata Metadata
}

// Title returns the "title" metadata field, or "" when absent.
func (n Note) Title() string {
	if t, ok := n.Metadata["title"].(string); ok {
		return t
	}
	return ""
}

// MarshalJSON flattens the note into a single object: metadata keys plus
// id, folderId and content.
func (n Note) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(n.Metadata)+3)
	for k, v := range n.Metadata {
		out[k] = v
	}
	out[KeyID] = n.ID
	if n.FolderID == "" {
		out[KeyFolderID] = nil
	} else {
		out[KeyFolderID] = n.FolderID
	}
	out[KeyContent] = n.Content
	return json.Marshal(out)
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (n *Note) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*n = NoteFromMap(raw)
	return nil
}

// NoteFromMap splits a flat key-value body into a Note. Reserved keys are
// lifted out of the metadata.
func NoteFromMap(raw map[string]any) Note {
	n := Note{Metadata: make(Metadata, len(raw))}
	for k, v := range raw {
		switch k {
		case KeyID:
			n.ID = scalarString(v)
		case KeyFolderID:
			n.FolderID = scalarString(v)
		case KeyContent:
			n.Content = scalarString(v)
		default:
			n.Metadata[k] = v
		}
	}
	return n
}

func scalarString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	default:
		return fmt.Sprint(s)
	}
}

// Folder is a logical folder. Its physical directory is derived from the
// sanitized names of the folder and its ancestors; only ID and display
// attributes are persisted (in the sidecar file).
type Folder struct {
	ID        string `json:"id"`
	ParentID  string `json:"parentId"`
	Name      string `json:"name"`
	Icon      string `json:"icon,omitempty"`
	Color     string `json:"color,omitempty"`
	CreatedAt string `json:"createdAt,omitempty"`
}

// EventType represents the type of change in the store.
type EventType string

const (
	EventCreate EventType = "CREATE"
	EventModify EventType = "MODIFY"
	EventDelete EventType = "DELETE"
)

// EntryKind tells whether an event refers to a note file or a folder directory.
type EntryKind string

const (
	KindNote   EntryKind = "note"
	KindFolder EntryKind = "folder"
)

// Event represents a change observed on disk.
type Event struct {
	Type      EventType
	Kind      EntryKind
	ID        string // logical ID; empty when unknown (e.g. an unadopted folder)
	Path      string // absolute path
	Timestamp int64  // Unix timestamp
}

func (e Event) String() string {
	if e.ID != "" {
		return fmt.Sprintf("%s %s %s", e.Type, e.Kind, e.ID)
	}
	return fmt.Sprintf("%s %s %s", e.Type, e.Kind, e.Path)
}
