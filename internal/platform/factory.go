package platform

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aretw0/notefold/pkg/core"
)

// New opens the store at uri and returns the service on top of it.
// The legacy migration runs before the service is handed out, unless
// disabled with WithMigration(false) or in read-only mode.
//
//	svc, err := notefold.New("./notes-store", notefold.WithLogger(logger))
func New(uri string, opts ...Option) (*core.Service, error) {
	return Open(context.Background(), uri, opts...)
}

// Open is New with a caller-supplied context.
func Open(ctx context.Context, uri string, opts ...Option) (*core.Service, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = slog.New(slog.DiscardHandler)
	}

	repo, err := initStore(ctx, uri, o)
	if err != nil {
		return nil, err
	}

	migrate, ok := o.config["migrate"].(bool)
	if !ok {
		migrate = true
	}
	readOnly, _ := o.config["read_only"].(bool)

	if m, isMigrator := repo.(Migrator); isMigrator && migrate && !readOnly {
		report, err := m.Migrate(ctx)
		if err != nil && (errors.Is(err, core.ErrStoreUnavailable) || ctx.Err() != nil) {
			return nil, fmt.Errorf("failed to migrate legacy store: %w", err)
		}
		if err != nil {
			// Failed items stay in the legacy backup; the store still opens.
			o.logger.Warn("legacy migration finished with errors", "error", err)
		}
		if !report.Skipped {
			o.logger.Info("legacy store migrated",
				"folders", report.Folders,
				"notes", report.Notes,
				"fallbacks", report.Fallbacks,
				"collisions", report.Collisions,
			)
		}
	}

	return core.NewService(repo, o.logger), nil
}
