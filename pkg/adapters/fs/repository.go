// Package fs stores notes and folders on the local filesystem.
//
// Every folder is a directory carrying a JSON sidecar with its stable ID;
// every note is a Markdown file with YAML front matter inside the directory of
// its folder. Physical location is the source of truth for folder membership.
package fs

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/notefold/pkg/core"
	"github.com/aretw0/notefold/pkg/git"
)

// Defaults applied by NewRepository to zero-valued Config fields.
const (
	DefaultExtension     = ".md"
	DefaultSidecarName   = ".folder.json"
	DefaultUncategorized = "Uncategorized"
	DefaultEventBuffer   = 100
)

// Config holds the configuration for the filesystem repository.
type Config struct {
	Path          string
	Extension     string   // note file extension, e.g. ".md"
	SidecarName   string   // folder metadata file name, e.g. ".folder.json"
	Uncategorized string   // bucket directory for notes without a folder
	SystemDirs    []string // doublestar patterns for directories to skip

	// Legacy flat stores consumed by Migrate. Empty disables the respective store.
	LegacyNotesDir   string
	LegacyFoldersDir string

	MustExist   bool
	ReadOnly    bool
	Versioning  bool // commit every mutation to a git repository at Path
	AutoInit    bool // git init when Versioning is on and Path is not a repository
	EventBuffer int
	Logger      *slog.Logger

	// ErrorHandler receives runtime watcher failures.
	ErrorHandler func(error)
}

// Repository implements core.Store on top of a directory tree.
type Repository struct {
	Path   string
	config Config
	codec  *Codec
	git    *git.Client
	logger *slog.Logger

	// tree serializes folder-structure changes against note operations.
	tree      sync.RWMutex
	noteLocks *keyLocker

	mu            sync.RWMutex
	watcherActive bool
	lastScan      *time.Time
	lastMigration *MigrationReport
}

// NewRepository creates a new filesystem-backed repository.
func NewRepository(config Config) *Repository {
	if config.Extension == "" {
		config.Extension = DefaultExtension
	}
	if !strings.HasPrefix(config.Extension, ".") {
		config.Extension = "." + config.Extension
	}
	if config.SidecarName == "" {
		config.SidecarName = DefaultSidecarName
	}
	if config.Uncategorized == "" {
		config.Uncategorized = DefaultUncategorized
	}
	if config.SystemDirs == nil {
		config.SystemDirs = DefaultSystemDirs()
	}
	if config.EventBuffer <= 0 {
		config.EventBuffer = DefaultEventBuffer
	}
	config.Path = filepath.Clean(config.Path)
	logger := orDiscard(config.Logger)
	config.Logger = logger

	return &Repository{
		Path:      config.Path,
		config:    config,
		codec:     NewCodec(logger),
		git:       git.NewClient(config.Path, filepath.Join(".git", "notefold.lock"), logger),
		logger:    logger,
		noteLocks: newKeyLocker(),
	}
}

// Codec returns the note codec used by the repository.
func (r *Repository) Codec() *Codec {
	return r.codec
}

// UncategorizedPath is the absolute path of the bucket for folderless notes.
func (r *Repository) UncategorizedPath() string {
	return filepath.Join(r.Path, r.config.Uncategorized)
}

// Initialize makes sure the storage root is usable: it exists (or is created),
// holds the Uncategorized bucket, and is a git repository when versioning.
func (r *Repository) Initialize(ctx context.Context) error {
	if r.config.MustExist || r.config.ReadOnly {
		info, err := os.Stat(r.Path)
		if err != nil {
			return fmt.Errorf("%w: %v", core.ErrStoreUnavailable, err)
		}
		if !info.IsDir() {
			return fmt.Errorf("%w: %s is not a directory", core.ErrStoreUnavailable, r.Path)
		}
	} else if err := os.MkdirAll(r.Path, 0755); err != nil {
		return fmt.Errorf("%w: failed to create storage root: %v", core.ErrStoreUnavailable, err)
	}

	if r.config.ReadOnly {
		return nil
	}

	if err := os.MkdirAll(r.UncategorizedPath(), 0755); err != nil {
		return fmt.Errorf("%w: failed to create %s: %v", core.ErrStoreUnavailable, r.config.Uncategorized, err)
	}

	if r.config.Versioning {
		if !git.IsInstalled() {
			return fmt.Errorf("git is not installed")
		}
		if !r.git.IsRepo() {
			if !r.config.AutoInit {
				return fmt.Errorf("path is not a git repository: %s", r.Path)
			}
			if err := r.git.Init(); err != nil {
				return fmt.Errorf("failed to git init: %w", err)
			}
		}
	}
	return nil
}

// ListNotes scans the tree and returns every note.
func (r *Repository) ListNotes(ctx context.Context) ([]core.Note, error) {
	r.tree.RLock()
	defer r.tree.RUnlock()

	res, err := r.Scan(ctx)
	if err != nil {
		return nil, err
	}
	return res.Notes, nil
}

// ListFolders scans the tree and returns every folder.
func (r *Repository) ListFolders(ctx context.Context) ([]core.Folder, error) {
	r.tree.RLock()
	defer r.tree.RUnlock()

	res, err := r.Scan(ctx)
	if err != nil {
		return nil, err
	}
	return res.Folders, nil
}

// GetNote returns the note with the given ID.
func (r *Repository) GetNote(ctx context.Context, id string) (core.Note, error) {
	r.tree.RLock()
	defer r.tree.RUnlock()

	res, err := r.Scan(ctx)
	if err != nil {
		return core.Note{}, err
	}
	for _, n := range res.Notes {
		if n.ID == id {
			return n, nil
		}
	}
	return core.Note{}, fmt.Errorf("note %s: %w", id, core.ErrNotFound)
}

// SaveNote persists a note.
//
// Workflow:
//  1. Scan to learn where folders and existing copies of the note live.
//  2. Resolve the target directory (the folder's directory, else Uncategorized).
//  3. Encode and write {dir}/{id}{ext} atomically.
//  4. Remove every other file carrying the same note ID.
//  5. (If versioning) commit.
func (r *Repository) SaveNote(ctx context.Context, n core.Note) error {
	if r.config.ReadOnly {
		return core.ErrReadOnly
	}
	if err := core.ValidateID(n.ID); err != nil {
		return err
	}

	r.tree.RLock()
	defer r.tree.RUnlock()
	unlock := r.noteLocks.Lock(n.ID)
	defer unlock()

	res, err := r.Scan(ctx)
	if err != nil {
		return err
	}

	targetDir := r.UncategorizedPath()
	folderID := ""
	if n.FolderID != "" {
		if dir, ok := res.FolderIndex[n.FolderID]; ok {
			targetDir = dir
			folderID = n.FolderID
		} else {
			r.logger.Warn("unknown folder, saving note to "+r.config.Uncategorized, "id", n.ID, "folder", n.FolderID)
		}
	}

	meta := make(core.Metadata, len(n.Metadata)+2)
	for k, v := range n.Metadata {
		meta[k] = v
	}
	delete(meta, core.KeyContent)
	meta[core.KeyID] = n.ID
	if folderID != "" {
		meta[core.KeyFolderID] = folderID
	} else {
		delete(meta, core.KeyFolderID)
	}

	data, err := r.codec.Encode(meta, n.Content)
	if err != nil {
		return fmt.Errorf("failed to encode note %s: %w", n.ID, err)
	}

	if err := os.MkdirAll(targetDir, 0755); err != nil {
		return fmt.Errorf("failed to create directories: %w", err)
	}
	target := filepath.Join(targetDir, n.ID+r.config.Extension)
	if err := writeFileAtomic(target, data, 0644); err != nil {
		return fmt.Errorf("failed to write note %s: %w", n.ID, err)
	}

	for _, old := range res.notePaths(n.ID) {
		if filepath.Clean(old) == filepath.Clean(target) {
			continue
		}
		if err := os.Remove(old); err != nil && !os.IsNotExist(err) {
			r.logger.Warn("failed to remove stale note copy", "id", n.ID, "path", old, "error", err)
			continue
		}
		r.logger.Debug("removed stale note copy", "id", n.ID, "path", old)
	}

	r.commit(ctx, "update note "+n.ID)
	return nil
}

// DeleteNote removes every file carrying the note ID. Absent notes succeed.
func (r *Repository) DeleteNote(ctx context.Context, id string) error {
	if r.config.ReadOnly {
		return core.ErrReadOnly
	}
	if err := core.ValidateID(id); err != nil {
		return err
	}

	r.tree.RLock()
	defer r.tree.RUnlock()
	unlock := r.noteLocks.Lock(id)
	defer unlock()

	res, err := r.Scan(ctx)
	if err != nil {
		return err
	}

	paths := res.notePaths(id)
	if len(paths) == 0 {
		return nil
	}
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove note %s: %w", id, err)
		}
	}

	r.commit(ctx, "delete note "+id)
	return nil
}

// SaveFolders reconciles the physical tree with the desired folder list.
func (r *Repository) SaveFolders(ctx context.Context, folders []core.Folder) error {
	_, err := r.ApplyFolders(ctx, folders)
	return err
}

// ApplyFolders is SaveFolders returning the reconciliation report, which
// tells callers when folders were merged because of a name collision.
func (r *Repository) ApplyFolders(ctx context.Context, folders []core.Folder) (ReconcileReport, error) {
	if r.config.ReadOnly {
		return ReconcileReport{}, core.ErrReadOnly
	}

	r.tree.Lock()
	defer r.tree.Unlock()

	res, err := r.Scan(ctx)
	if err != nil {
		return ReconcileReport{}, err
	}

	report, err := r.Reconcile(ctx, folders, res.FolderIndex)
	if report.Changed() {
		r.commit(ctx, "update folders")
	}
	return report, err
}

// DeleteFolder removes the folder directory recursively, including the notes
// and subfolders inside it. Absent folders succeed.
func (r *Repository) DeleteFolder(ctx context.Context, id string) error {
	if r.config.ReadOnly {
		return core.ErrReadOnly
	}
	if err := core.ValidateID(id); err != nil {
		return err
	}

	r.tree.Lock()
	defer r.tree.Unlock()

	res, err := r.Scan(ctx)
	if err != nil {
		return err
	}

	dir, ok := res.FolderIndex[id]
	if !ok {
		return nil
	}
	if !isWithin(dir, r.Path) || filepath.Clean(dir) == r.Path {
		return fmt.Errorf("refusing to remove %s outside the store", dir)
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to remove folder %s: %w", id, err)
	}

	r.commit(ctx, "delete folder "+id)
	return nil
}

// commit records the working tree in git when versioning is enabled.
// Failures are logged; the filesystem write already succeeded.
func (r *Repository) commit(ctx context.Context, msg string) {
	if !r.config.Versioning {
		return
	}
	if val, ok := ctx.Value(core.ChangeReasonKey).(string); ok && val != "" {
		msg = val
	}

	unlock, err := r.git.Lock(ctx)
	if err != nil {
		r.logger.Warn("failed to acquire git lock", "error", err)
		return
	}
	defer unlock()

	if err := r.git.Add("-A"); err != nil {
		r.logger.Warn("failed to git add", "error", err)
		return
	}
	if err := r.git.Commit(msg); err != nil && !git.IsNothingToCommit(err) {
		r.logger.Warn("failed to git commit", "error", err)
	}
}

// keyLocker hands out one mutex per key.
type keyLocker struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newKeyLocker() *keyLocker {
	return &keyLocker{locks: make(map[string]*sync.Mutex)}
}

func (l *keyLocker) Lock(key string) func() {
	l.mu.Lock()
	m, ok := l.locks[key]
	if !ok {
		m = &sync.Mutex{}
		l.locks[key] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}

var _ core.Store = (*Repository)(nil)
var _ core.FolderApplier = (*Repository)(nil)
