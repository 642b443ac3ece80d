package fs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/aretw0/notefold/pkg/core"
)

// BackupSuffix is appended to legacy store directories once migrated.
const BackupSuffix = "_old_backup"

// MigrationReport summarizes one Migrate run.
type MigrationReport struct {
	Folders    int
	Notes      int
	Fallbacks  int      // notes copied to Uncategorized because their folder could not be resolved
	Collisions int      // folders renamed because a sibling already took their directory name
	BackedUp   []string // new names of the legacy directories
	Skipped    bool     // no legacy store was found
}

// HasLegacyNotes reports whether the flat legacy notes directory exists.
func (r *Repository) HasLegacyNotes() bool {
	return isDir(r.config.LegacyNotesDir)
}

// HasLegacyFolders reports whether the legacy folder records directory exists.
func (r *Repository) HasLegacyFolders() bool {
	return isDir(r.config.LegacyFoldersDir)
}

// Migrate upgrades a flat legacy store into the folder tree.
//
// Legacy folders (one JSON record per file) become directories with sidecars;
// legacy notes are copied into the directory of the folder named by their
// front matter, or into Uncategorized when that fails. The legacy directories
// are then renamed to *_old_backup, so running Migrate again is a no-op.
func (r *Repository) Migrate(ctx context.Context) (MigrationReport, error) {
	var report MigrationReport

	hasNotes, hasFolders := r.HasLegacyNotes(), r.HasLegacyFolders()
	if !hasNotes && !hasFolders {
		report.Skipped = true
		return report, nil
	}
	if r.config.ReadOnly {
		return report, core.ErrReadOnly
	}

	r.tree.Lock()
	defer r.tree.Unlock()

	r.logger.Info("migrating legacy store", "notes", r.config.LegacyNotesDir, "folders", r.config.LegacyFoldersDir)

	if err := os.MkdirAll(r.UncategorizedPath(), 0755); err != nil {
		return report, fmt.Errorf("%w: failed to create %s: %v", core.ErrStoreUnavailable, r.config.Uncategorized, err)
	}

	var errs []error
	dirs := make(map[string]string)
	if hasFolders {
		folders := r.loadLegacyFolders()
		dirs = r.migrateFolders(ctx, folders, &report)
	}

	if hasNotes {
		if err := r.migrateNotes(ctx, dirs, &report); err != nil {
			errs = append(errs, err)
		}
	}

	if err := ctx.Err(); err != nil {
		return report, err
	}

	for _, dir := range []string{r.config.LegacyNotesDir, r.config.LegacyFoldersDir} {
		if !isDir(dir) {
			continue
		}
		backup, err := backupDir(dir)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		report.BackedUp = append(report.BackedUp, backup)
		r.logger.Info("legacy store backed up", "from", dir, "to", backup)
	}

	r.mu.Lock()
	r.lastMigration = &report
	r.mu.Unlock()

	r.commit(ctx, "migrate legacy store")
	return report, errors.Join(errs...)
}

// loadLegacyFolders reads every *.json record. Records without an id take the
// file name; unreadable records are logged and skipped.
func (r *Repository) loadLegacyFolders() map[string]core.Folder {
	folders := make(map[string]core.Folder)

	entries, err := os.ReadDir(r.config.LegacyFoldersDir)
	if err != nil {
		r.logger.Warn("failed to read legacy folders", "path", r.config.LegacyFoldersDir, "error", err)
		return folders
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".json") {
			continue
		}
		path := filepath.Join(r.config.LegacyFoldersDir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			r.logger.Warn("skipping unreadable legacy folder", "path", path, "error", err)
			continue
		}
		var raw map[string]any
		if err := json.Unmarshal(data, &raw); err != nil {
			r.logger.Warn("skipping malformed legacy folder", "path", path, "error", err)
			continue
		}

		f := core.Folder{
			ID:        flexString(raw["id"]),
			ParentID:  flexString(raw["parentId"]),
			Name:      flexString(raw["name"]),
			Icon:      flexString(raw["icon"]),
			Color:     flexString(raw["color"]),
			CreatedAt: flexString(raw["createdAt"]),
		}
		if f.ID == "" {
			f.ID = strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name()))
		}
		if err := core.ValidateID(f.ID); err != nil {
			r.logger.Warn("skipping legacy folder with invalid id", "path", path, "id", f.ID)
			continue
		}
		folders[f.ID] = f
	}
	return folders
}

// migrateFolders creates a directory and sidecar per legacy folder and returns
// the folder ID to directory mapping. Parents are created before children;
// a parent cycle is broken at the first folder revisited, which is placed at
// the root. Siblings whose names sanitize to the same directory get a " (N)"
// suffix instead of sharing it.
func (r *Repository) migrateFolders(ctx context.Context, folders map[string]core.Folder, report *MigrationReport) map[string]string {
	dirs := make(map[string]string, len(folders))
	claimed := make(map[string]string, len(folders))
	failed := make(map[string]bool)

	var place func(id string, visiting map[string]bool) (string, bool)
	place = func(id string, visiting map[string]bool) (string, bool) {
		if dir, ok := dirs[id]; ok {
			return dir, true
		}
		if failed[id] {
			return "", false
		}
		f := folders[id]
		visiting[id] = true

		parentDir, atRoot := r.Path, true
		if _, ok := folders[f.ParentID]; ok && !visiting[f.ParentID] {
			if dir, ok := place(f.ParentID, visiting); ok {
				parentDir, atRoot = dir, false
			}
		}

		dir, err := r.migratedDir(f, parentDir, atRoot, claimed, report)
		if err != nil {
			r.logger.Warn("failed to create migrated folder", "id", id, "error", err)
			failed[id] = true
			return "", false
		}
		dirs[id] = dir
		claimed[strings.ToLower(dir)] = id
		report.Folders++
		return dir, true
	}

	ids := make([]string, 0, len(folders))
	for id := range folders {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		if ctx.Err() != nil {
			return dirs
		}
		place(id, make(map[string]bool))
	}
	return dirs
}

// migratedDir creates the directory and sidecar of one legacy folder.
func (r *Repository) migratedDir(f core.Folder, parentDir string, atRoot bool, claimed map[string]string, report *MigrationReport) (string, error) {
	base := core.Sanitize(f.Name)
	name, err := r.folderName(base, atRoot, nil)
	if err != nil {
		return "", err
	}
	if other, taken := claimed[strings.ToLower(filepath.Join(parentDir, name))]; taken {
		name, err = r.folderName(base, atRoot, func(candidate string) bool {
			_, taken := claimed[strings.ToLower(filepath.Join(parentDir, candidate))]
			return !taken
		})
		if err != nil {
			return "", err
		}
		report.Collisions++
		r.logger.Warn("legacy folder name already used by a sibling, renamed",
			"id", f.ID, "other", other, "name", f.Name, "dir", name)
	}

	dir := filepath.Join(parentDir, name)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", dir, err)
	}
	if f.CreatedAt == "" {
		f.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	}
	if err := r.writeSidecar(dir, sidecarFromFolder(f)); err != nil {
		return "", fmt.Errorf("failed to write sidecar in %s: %w", dir, err)
	}
	return dir, nil
}

// migrateNotes copies every legacy note into its resolved directory.
func (r *Repository) migrateNotes(ctx context.Context, dirs map[string]string, report *MigrationReport) error {
	entries, err := os.ReadDir(r.config.LegacyNotesDir)
	if err != nil {
		return fmt.Errorf("failed to read legacy notes: %w", err)
	}

	var errs []error
	for _, entry := range entries {
		if ctx.Err() != nil {
			return nil
		}
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), r.config.Extension) {
			continue
		}
		src := filepath.Join(r.config.LegacyNotesDir, entry.Name())

		target := r.UncategorizedPath()
		n, ok := r.codec.ReadNote(src)
		if ok && n.FolderID != "" {
			if dir, found := dirs[n.FolderID]; found {
				target = dir
			} else {
				r.logger.Warn("legacy note references unknown folder", "path", src, "folder", n.FolderID)
			}
		}

		dst := filepath.Join(target, entry.Name())
		if err := copyFile(src, dst); err != nil {
			r.logger.Warn("failed to migrate note, falling back to "+r.config.Uncategorized, "path", src, "error", err)
			dst = filepath.Join(r.UncategorizedPath(), entry.Name())
			if err := copyFile(src, dst); err != nil {
				r.logger.Warn("failed to migrate note", "path", src, "error", err)
				errs = append(errs, fmt.Errorf("note %s: %w", entry.Name(), err))
				continue
			}
			report.Fallbacks++
		} else if target == r.UncategorizedPath() && ok && n.FolderID != "" {
			report.Fallbacks++
		}
		report.Notes++
	}
	return errors.Join(errs...)
}

// backupDir renames dir to dir_old_backup, or dir_old_backup_N when taken.
func backupDir(dir string) (string, error) {
	dir = filepath.Clean(dir)
	backup := dir + BackupSuffix
	for i := 2; ; i++ {
		if _, err := os.Lstat(backup); os.IsNotExist(err) {
			break
		}
		backup = dir + BackupSuffix + "_" + strconv.Itoa(i)
	}
	if err := os.Rename(dir, backup); err != nil {
		return "", fmt.Errorf("failed to back up %s: %w", dir, err)
	}
	return backup, nil
}

func isDir(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
