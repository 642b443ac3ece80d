package platform

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/aretw0/notefold/pkg/adapters/fs"
	"github.com/aretw0/notefold/pkg/core"
)

// Init builds and initializes the store at uri.
// The uri is adapter-specific (a directory for "fs").
func Init(uri string, opts ...Option) (core.Store, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	return initStore(context.Background(), uri, o)
}

func initStore(ctx context.Context, uri string, o *options) (core.Store, error) {
	if o.repository != nil {
		return o.repository, nil
	}

	var repo core.Store
	var err error
	switch o.adapter {
	case "fs":
		repo, err = initFS(uri, o)
	default:
		return nil, fmt.Errorf("unknown adapter: %s", o.adapter)
	}
	if err != nil {
		return nil, err
	}

	if err := repo.Initialize(ctx); err != nil {
		return nil, err
	}
	return repo, nil
}

// initFS maps the options onto an fs.Config.
func initFS(path string, o *options) (*fs.Repository, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: empty path", core.ErrStoreUnavailable)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path: %w", err)
	}

	extension, _ := o.config["extension"].(string)
	sidecar, _ := o.config["sidecar"].(string)
	uncategorized, _ := o.config["uncategorized"].(string)
	systemDirs, _ := o.config["system_dirs"].([]string)
	versioning, _ := o.config["versioning"].(bool)
	autoInit, _ := o.config["auto_init"].(bool)
	mustExist, _ := o.config["must_exist"].(bool)
	readOnly, _ := o.config["read_only"].(bool)
	eventBuffer, _ := o.config["event_buffer"].(int)
	errorHandler, _ := o.config["watcher_error_handler"].(func(error))

	legacyNotes, ok := o.config["legacy_notes"].(string)
	if !ok {
		legacyNotes = filepath.Join(filepath.Dir(abs), "notes")
	}
	legacyFolders, ok := o.config["legacy_folders"].(string)
	if !ok {
		legacyFolders = filepath.Join(filepath.Dir(abs), "folders")
	}

	if o.logger != nil && readOnly {
		o.logger.Debug("running in read-only mode", "path", abs)
	}

	return fs.NewRepository(fs.Config{
		Path:             abs,
		Extension:        extension,
		SidecarName:      sidecar,
		Uncategorized:    uncategorized,
		SystemDirs:       systemDirs,
		LegacyNotesDir:   legacyNotes,
		LegacyFoldersDir: legacyFolders,
		MustExist:        mustExist,
		ReadOnly:         readOnly,
		Versioning:       versioning,
		AutoInit:         autoInit,
		EventBuffer:      eventBuffer,
		Logger:           o.logger,
		ErrorHandler:     errorHandler,
	}), nil
}

// Migrator is implemented by stores that can upgrade a legacy layout.
type Migrator interface {
	Migrate(ctx context.Context) (fs.MigrationReport, error)
}

// Migrate runs the legacy migration for the store at uri.
func Migrate(ctx context.Context, uri string, opts ...Option) (fs.MigrationReport, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	repo, err := initStore(ctx, uri, o)
	if err != nil {
		return fs.MigrationReport{}, err
	}
	m, ok := repo.(Migrator)
	if !ok {
		return fs.MigrationReport{}, fmt.Errorf("store does not support migration")
	}
	return m.Migrate(ctx)
}
