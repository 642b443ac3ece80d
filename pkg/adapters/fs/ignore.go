package fs

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// DefaultSystemDirs lists the directory names the store never treats as folders.
// Entries are doublestar patterns matched against a single path segment.
func DefaultSystemDirs() []string {
	return []string{
		".trash",
		".settings",
		".backups",
		".git",
		"node_modules",
		".tasks",
		".questions",
		"*_old_backup",
		"*_old_backup_*",
	}
}

// isSystemName reports whether a directory entry must be skipped entirely.
func (r *Repository) isSystemName(name string) bool {
	if strings.HasPrefix(name, TempFilePrefix) {
		return true
	}
	for _, pattern := range r.config.SystemDirs {
		ok, err := doublestar.Match(pattern, name)
		if err != nil {
			r.logger.Debug("invalid system dir pattern", "pattern", pattern, "error", err)
			continue
		}
		if ok {
			return true
		}
	}
	return false
}

// isReservedName reports whether name cannot be used for a folder directory.
// The Uncategorized bucket is only reserved at the root.
func (r *Repository) isReservedName(name string, atRoot bool) bool {
	if atRoot && strings.EqualFold(name, r.config.Uncategorized) {
		return true
	}
	return r.isSystemName(name)
}

// maxNameAttempts bounds the " (N)" suffixes tried by folderName.
const maxNameAttempts = 100

// folderName returns name, or name with a " (N)" suffix, so that the result is
// not reserved and free reports it available. A nil free accepts any name.
func (r *Repository) folderName(name string, atRoot bool, free func(string) bool) (string, error) {
	candidate := name
	for n := 2; n < maxNameAttempts+2; n++ {
		if !r.isReservedName(candidate, atRoot) && (free == nil || free(candidate)) {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s (%d)", name, n)
	}
	return "", fmt.Errorf("no usable directory name for %q", name)
}

// isSystemPath reports whether any segment of path below the root is a
// system name.
func (r *Repository) isSystemPath(path string) bool {
	rel, err := filepath.Rel(r.Path, path)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return false
	}
	for _, seg := range strings.Split(rel, string(filepath.Separator)) {
		if r.isSystemName(seg) {
			return true
		}
	}
	return false
}
