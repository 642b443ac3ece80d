package platform

import (
	"log/slog"

	"github.com/aretw0/notefold/pkg/core"
)

// options holds the internal configuration for a notefold store.
type options struct {
	repository core.Store
	logger     *slog.Logger
	adapter    string
	config     map[string]any
}

// Option defines a functional option for configuring notefold.
type Option func(*options)

func defaultOptions() *options {
	return &options{
		adapter: "fs",
		config:  make(map[string]any),
	}
}

// WithLogger sets the logger for the service and the store.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithRepository injects a custom store. The filesystem adapter is skipped.
func WithRepository(repo core.Store) Option {
	return func(o *options) {
		o.repository = repo
	}
}

// WithAdapter selects the storage adapter by name. Defaults to "fs".
func WithAdapter(name string) Option {
	return func(o *options) {
		o.adapter = name
	}
}

// WithExtension sets the note file extension (default ".md").
func WithExtension(ext string) Option {
	return func(o *options) {
		o.config["extension"] = ext
	}
}

// WithSidecarName sets the folder metadata file name (default ".folder.json").
func WithSidecarName(name string) Option {
	return func(o *options) {
		o.config["sidecar"] = name
	}
}

// WithUncategorized sets the bucket directory for notes without a folder.
func WithUncategorized(name string) Option {
	return func(o *options) {
		o.config["uncategorized"] = name
	}
}

// WithSystemDirs replaces the reserved directory patterns.
func WithSystemDirs(patterns ...string) Option {
	return func(o *options) {
		o.config["system_dirs"] = patterns
	}
}

// WithLegacyDirs points the migration at a flat legacy store. Empty strings
// keep the defaults (notes/ and folders/ next to the store root).
func WithLegacyDirs(notesDir, foldersDir string) Option {
	return func(o *options) {
		if notesDir != "" {
			o.config["legacy_notes"] = notesDir
		}
		if foldersDir != "" {
			o.config["legacy_folders"] = foldersDir
		}
	}
}

// WithMigration enables or disables the legacy migration run by New.
// Enabled by default.
func WithMigration(enabled bool) Option {
	return func(o *options) {
		o.config["migrate"] = enabled
	}
}

// WithVersioning commits every mutation to git.
func WithVersioning(enabled bool) Option {
	return func(o *options) {
		o.config["versioning"] = enabled
	}
}

// WithAutoInit runs git init when versioning an uninitialized root.
func WithAutoInit(auto bool) Option {
	return func(o *options) {
		o.config["auto_init"] = auto
	}
}

// WithMustExist requires the store root to exist already.
func WithMustExist(must bool) Option {
	return func(o *options) {
		o.config["must_exist"] = must
	}
}

// WithReadOnly enables read-only mode.
// In this mode:
// 1. Write operations return core.ErrReadOnly.
// 2. Initialization creates nothing and the migration is skipped.
// 3. Directories without a sidecar get an ID that is not persisted.
func WithReadOnly(enabled bool) Option {
	return func(o *options) {
		o.config["read_only"] = enabled
	}
}

// WithEventBuffer sets the size of the watch event channel.
// Zero means default (100).
func WithEventBuffer(size int) Option {
	return func(o *options) {
		o.config["event_buffer"] = size
	}
}

// WithWatcherErrorHandler registers a callback for runtime watcher failures
// (e.g. permission denied), which are otherwise only logged.
func WithWatcherErrorHandler(fn func(error)) Option {
	return func(o *options) {
		o.config["watcher_error_handler"] = fn
	}
}
