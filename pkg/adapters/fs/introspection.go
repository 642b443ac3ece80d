package fs

import (
	"time"

	"github.com/aretw0/introspection"
)

// RepositoryState exposes internal state for observability.
type RepositoryState struct {
	Path          string           `json:"path"`
	Extension     string           `json:"extension"`
	SidecarName   string           `json:"sidecar_name"`
	Uncategorized string           `json:"uncategorized"`
	SystemDirs    []string         `json:"system_dirs"`
	ReadOnly      bool             `json:"read_only"`
	Versioning    bool             `json:"versioning"`
	LegacyPending bool             `json:"legacy_pending"`
	WatcherActive bool             `json:"watcher_active"`
	LastScan      *time.Time       `json:"last_scan,omitempty"`
	LastMigration *MigrationReport `json:"last_migration,omitempty"`
}

// State implements introspection.Introspectable.
func (r *Repository) State() any {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return RepositoryState{
		Path:          r.Path,
		Extension:     r.config.Extension,
		SidecarName:   r.config.SidecarName,
		Uncategorized: r.config.Uncategorized,
		SystemDirs:    append([]string(nil), r.config.SystemDirs...),
		ReadOnly:      r.config.ReadOnly,
		Versioning:    r.config.Versioning,
		LegacyPending: r.HasLegacyNotes() || r.HasLegacyFolders(),
		WatcherActive: r.watcherActive,
		LastScan:      r.lastScan,
		LastMigration: r.lastMigration,
	}
}

// ComponentType implements introspection.Component.
func (r *Repository) ComponentType() string {
	return "repository"
}

var _ introspection.Introspectable = (*Repository)(nil)
var _ introspection.Component = (*Repository)(nil)

func (r *Repository) setWatcherActive(active bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.watcherActive = active
}
