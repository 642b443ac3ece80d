package notefold

import (
	"context"
	"log/slog"

	"github.com/aretw0/notefold/internal/platform"
	"github.com/aretw0/notefold/pkg/adapters/fs"
	"github.com/aretw0/notefold/pkg/core"
)

// --- Types ---

// Note is a public alias for the core note model.
type Note = core.Note

// Folder is a public alias for the core folder model.
type Folder = core.Folder

// Event is a public alias for a store change event.
type Event = core.Event

// MigrationReport summarizes a legacy migration run.
type MigrationReport = fs.MigrationReport

// --- Configuration ---

// Option defines a functional option for configuring notefold.
type Option = platform.Option

// WithLogger sets the logger for the service and the store.
func WithLogger(logger *slog.Logger) Option {
	return platform.WithLogger(logger)
}

// WithRepository allows injecting a custom store.
func WithRepository(repo core.Store) Option {
	return platform.WithRepository(repo)
}

// WithAdapter selects the storage adapter by name.
func WithAdapter(name string) Option {
	return platform.WithAdapter(name)
}

// WithExtension sets the note file extension (default ".md").
func WithExtension(ext string) Option {
	return platform.WithExtension(ext)
}

// WithSidecarName sets the folder metadata file name (default ".folder.json").
func WithSidecarName(name string) Option {
	return platform.WithSidecarName(name)
}

// WithUncategorized sets the bucket directory for notes without a folder.
func WithUncategorized(name string) Option {
	return platform.WithUncategorized(name)
}

// WithSystemDirs replaces the reserved directory patterns.
func WithSystemDirs(patterns ...string) Option {
	return platform.WithSystemDirs(patterns...)
}

// WithLegacyDirs points the migration at a flat legacy store.
func WithLegacyDirs(notesDir, foldersDir string) Option {
	return platform.WithLegacyDirs(notesDir, foldersDir)
}

// WithMigration enables or disables the migration run on open.
func WithMigration(enabled bool) Option {
	return platform.WithMigration(enabled)
}

// WithVersioning commits every mutation to git.
func WithVersioning(enabled bool) Option {
	return platform.WithVersioning(enabled)
}

// WithAutoInit runs git init on an uninitialized versioned root.
func WithAutoInit(auto bool) Option {
	return platform.WithAutoInit(auto)
}

// WithMustExist ensures the store root already exists.
func WithMustExist(must bool) Option {
	return platform.WithMustExist(must)
}

// WithReadOnly rejects every write with core.ErrReadOnly.
func WithReadOnly(enabled bool) Option {
	return platform.WithReadOnly(enabled)
}

// WithEventBuffer sets the size of the watch event channel.
func WithEventBuffer(size int) Option {
	return platform.WithEventBuffer(size)
}

// WithWatcherErrorHandler registers a callback for runtime watcher failures.
func WithWatcherErrorHandler(fn func(error)) Option {
	return platform.WithWatcherErrorHandler(fn)
}

// --- Factory ---

// New opens the store at path, migrating a legacy layout first.
func New(path string, opts ...Option) (*core.Service, error) {
	return platform.New(path, opts...)
}

// Open is New with a caller-supplied context.
func Open(ctx context.Context, path string, opts ...Option) (*core.Service, error) {
	return platform.Open(ctx, path, opts...)
}

// Init initializes the store without wrapping it in a service.
func Init(path string, opts ...Option) (core.Store, error) {
	return platform.Init(path, opts...)
}

// Migrate upgrades a flat legacy store into the tree at path.
func Migrate(ctx context.Context, path string, opts ...Option) (MigrationReport, error) {
	return platform.Migrate(ctx, path, opts...)
}

// FindRoot looks upwards from dir for a store root.
// An empty uncategorized name uses the default bucket.
func FindRoot(dir, uncategorized string) (string, error) {
	return platform.FindRoot(dir, uncategorized)
}

// Sanitize turns a display name into a safe directory name.
func Sanitize(name string) string {
	return core.Sanitize(name)
}
