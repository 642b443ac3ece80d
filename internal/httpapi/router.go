// Package httpapi exposes the note service as a small JSON API.
package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/aretw0/notefold/pkg/core"
)

// Deps holds the dependencies for the HTTP handlers.
type Deps struct {
	Service *core.Service
	Logger  *slog.Logger
}

// NewRouter creates the chi router with all API routes.
func NewRouter(deps *Deps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	h := &handlers{svc: deps.Service}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(LoggerMiddleware(logger))
	r.Use(CORS)

	r.Route("/api", func(r chi.Router) {
		r.Get("/state", h.state)

		r.Route("/notes", func(r chi.Router) {
			r.Get("/", h.listNotes)
			r.Post("/", h.createNote)
			r.Put("/{id}", h.saveNote)
			r.Delete("/{id}", h.deleteNote)
		})

		r.Route("/folders", func(r chi.Router) {
			r.Get("/", h.listFolders)
			r.Put("/", h.saveFolders)
			r.Delete("/{id}", h.deleteFolder)
		})
	})

	return r
}
