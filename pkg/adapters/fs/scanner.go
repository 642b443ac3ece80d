package fs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/aretw0/notefold/pkg/core"
)

// ScanResult is the logical view of the tree produced by Scan.
type ScanResult struct {
	Notes   []core.Note
	Folders []core.Folder

	// FolderIndex and NoteIndex map logical IDs to absolute paths.
	FolderIndex map[string]string
	NoteIndex   map[string]string

	// Duplicates holds extra files carrying an ID already present in NoteIndex.
	Duplicates map[string][]string
}

// notePaths returns every file known to carry the note ID.
func (s *ScanResult) notePaths(id string) []string {
	var paths []string
	if p, ok := s.NoteIndex[id]; ok {
		paths = append(paths, p)
	}
	return append(paths, s.Duplicates[id]...)
}

// Scan walks the storage root depth-first and builds the folder and note
// lists plus their ID indices.
//
// Directories without a sidecar are adopted: they get a fresh ID which is
// persisted immediately. A note's FolderID always reflects the directory it
// physically lives in, whatever its front matter says. Per-entry failures are
// logged and skipped; only an unreadable root fails the scan.
func (r *Repository) Scan(ctx context.Context) (*ScanResult, error) {
	if !r.config.ReadOnly {
		if err := os.MkdirAll(r.UncategorizedPath(), 0755); err != nil {
			r.logger.Warn("failed to ensure "+r.config.Uncategorized, "error", err)
		}
	}

	entries, err := os.ReadDir(r.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrStoreUnavailable, err)
	}

	res := &ScanResult{
		FolderIndex: make(map[string]string),
		NoteIndex:   make(map[string]string),
		Duplicates:  make(map[string][]string),
	}
	s := scan{repo: r, ctx: ctx, res: res}
	s.walk(r.Path, entries, "", true)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(res.Folders, func(i, j int) bool {
		return res.FolderIndex[res.Folders[i].ID] < res.FolderIndex[res.Folders[j].ID]
	})
	sort.SliceStable(res.Notes, func(i, j int) bool {
		return res.NoteIndex[res.Notes[i].ID] < res.NoteIndex[res.Notes[j].ID]
	})

	now := time.Now()
	r.mu.Lock()
	r.lastScan = &now
	r.mu.Unlock()

	return res, nil
}

type scan struct {
	repo *Repository
	ctx  context.Context
	res  *ScanResult
}

func (s *scan) walk(dir string, entries []os.DirEntry, parentID string, atRoot bool) {
	r := s.repo
	for _, entry := range entries {
		if s.ctx.Err() != nil {
			return
		}
		name := entry.Name()
		if r.isSystemName(name) {
			continue
		}
		path := filepath.Join(dir, name)

		if entry.IsDir() {
			if atRoot && name == r.config.Uncategorized {
				s.descend(path, parentID)
				continue
			}
			folder := s.folder(path, name, parentID)
			s.res.FolderIndex[folder.ID] = path
			s.res.Folders = append(s.res.Folders, folder)
			s.descend(path, folder.ID)
			continue
		}

		if !strings.EqualFold(filepath.Ext(name), r.config.Extension) {
			continue
		}
		n, ok := r.codec.ReadNote(path)
		if !ok {
			continue
		}
		n.FolderID = parentID
		if _, dup := s.res.NoteIndex[n.ID]; dup {
			r.logger.Warn("duplicate note id", "id", n.ID, "path", path, "kept", s.res.NoteIndex[n.ID])
			s.res.Duplicates[n.ID] = append(s.res.Duplicates[n.ID], path)
			continue
		}
		s.res.NoteIndex[n.ID] = path
		s.res.Notes = append(s.res.Notes, n)
	}
}

func (s *scan) descend(path, parentID string) {
	entries, err := os.ReadDir(path)
	if err != nil {
		s.repo.logger.Warn("skipping unreadable directory", "path", path, "error", err)
		return
	}
	s.walk(path, entries, parentID, false)
}

// folder builds the Folder record for path, adopting the directory when it
// has no usable sidecar or when its ID was already claimed in this scan.
func (s *scan) folder(path, name, parentID string) core.Folder {
	r := s.repo
	sc, ok := r.readSidecar(path)
	_, taken := s.res.FolderIndex[sc.ID]

	if !ok || taken {
		if taken {
			r.logger.Warn("duplicate folder id, assigning a new one", "id", sc.ID, "path", path)
		}
		sc.ID = uuid.NewString()
		if sc.CreatedAt == "" {
			sc.CreatedAt = time.Now().UTC().Format(time.RFC3339)
			if info, err := os.Stat(path); err == nil {
				sc.CreatedAt = info.ModTime().UTC().Format(time.RFC3339)
			}
		}
		if r.config.ReadOnly {
			r.logger.Debug("read-only store, folder id not persisted", "path", path)
		} else if err := r.writeSidecar(path, sc); err != nil {
			r.logger.Warn("failed to persist adopted folder id", "path", path, "error", err)
		} else {
			r.logger.Info("adopted folder", "id", sc.ID, "path", path)
		}
	}

	return core.Folder{
		ID:        sc.ID,
		ParentID:  parentID,
		Name:      name,
		Icon:      sc.Icon,
		Color:     sc.Color,
		CreatedAt: sc.CreatedAt,
	}
}
