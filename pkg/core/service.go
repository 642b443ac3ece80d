package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
)

// Service handles the business logic for notes and folders.
type Service struct {
	repo   Store
	logger *slog.Logger
}

// NewService creates a new Service. A nil logger discards output.
func NewService(repo Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{repo: repo, logger: logger}
}

// ValidateID reports whether id can be used as a note or folder identifier.
// IDs double as file names, so separators and dot-only names are rejected.
func ValidateID(id string) error {
	if id == "" {
		return fmt.Errorf("%w: empty", ErrInvalidID)
	}
	if strings.ContainsAny(id, `/\`) || strings.ContainsRune(id, 0) {
		return fmt.Errorf("%w: %q contains a path separator", ErrInvalidID, id)
	}
	if strings.Trim(id, ".") == "" {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return nil
}

// ListNotes retrieves all notes.
func (s *Service) ListNotes(ctx context.Context) ([]Note, error) {
	return s.repo.ListNotes(ctx)
}

// ListFolders retrieves all folders.
func (s *Service) ListFolders(ctx context.Context) ([]Folder, error) {
	return s.repo.ListFolders(ctx)
}

// SaveNote persists a note with an existing ID.
func (s *Service) SaveNote(ctx context.Context, n Note) error {
	if err := ValidateID(n.ID); err != nil {
		return err
	}
	if n.FolderID != "" {
		if err := ValidateID(n.FolderID); err != nil {
			return fmt.Errorf("folder: %w", err)
		}
	}
	s.logger.Debug("saving note", "id", n.ID, "folder", n.FolderID)
	return s.repo.SaveNote(ctx, n)
}

// CreateNote assigns an ID when the note has none, then saves it.
// It returns the note as stored.
func (s *Service) CreateNote(ctx context.Context, n Note) (Note, error) {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if err := s.SaveNote(ctx, n); err != nil {
		return Note{}, err
	}
	return n, nil
}

// DeleteNote removes a note. Absent notes are not an error.
func (s *Service) DeleteNote(ctx context.Context, id string) error {
	if err := ValidateID(id); err != nil {
		return err
	}
	return s.repo.DeleteNote(ctx, id)
}

// SaveFolders pushes the authoritative folder list to the store.
func (s *Service) SaveFolders(ctx context.Context, folders []Folder) error {
	if err := prepareFolders(folders); err != nil {
		return err
	}
	s.logger.Debug("saving folder list", "count", len(folders))
	return s.repo.SaveFolders(ctx, folders)
}

// ApplyFolders is SaveFolders returning what the store did. Stores that
// cannot report return an empty report.
func (s *Service) ApplyFolders(ctx context.Context, folders []Folder) (ReconcileReport, error) {
	if err := prepareFolders(folders); err != nil {
		return ReconcileReport{}, err
	}
	s.logger.Debug("applying folder list", "count", len(folders))

	applier, ok := s.repo.(FolderApplier)
	if !ok {
		return ReconcileReport{}, s.repo.SaveFolders(ctx, folders)
	}
	report, err := applier.ApplyFolders(ctx, folders)
	if len(report.Merged) > 0 {
		s.logger.Warn("folder list merged directories", "ids", report.Merged)
	}
	return report, err
}

// prepareFolders assigns missing IDs and rejects invalid or repeated ones.
func prepareFolders(folders []Folder) error {
	seen := make(map[string]bool, len(folders))
	for i := range folders {
		if folders[i].ID == "" {
			folders[i].ID = uuid.NewString()
		}
		if err := ValidateID(folders[i].ID); err != nil {
			return err
		}
		if seen[folders[i].ID] {
			return fmt.Errorf("%w: duplicate folder %q", ErrInvalidID, folders[i].ID)
		}
		seen[folders[i].ID] = true
	}
	return nil
}

// DeleteFolder removes a folder and its contents.
func (s *Service) DeleteFolder(ctx context.Context, id string) error {
	if err := ValidateID(id); err != nil {
		return err
	}
	return s.repo.DeleteFolder(ctx, id)
}

// Watch observes changes in the store if supported.
func (s *Service) Watch(ctx context.Context) (<-chan Event, error) {
	w, ok := s.repo.(Watchable)
	if !ok {
		return nil, ErrWatchNotSupported
	}
	return w.Watch(ctx)
}

// Store exposes the underlying store for adapter-specific operations.
func (s *Service) Store() Store {
	return s.repo
}

// IsClientError reports whether err stems from bad input rather than storage.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidID)
}
