package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/aretw0/notefold/pkg/core"
)

// maxBody caps request bodies at 8 MiB.
const maxBody = 8 << 20

type handlers struct {
	svc *core.Service
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *handlers) state(w http.ResponseWriter, r *http.Request) {
	out := map[string]any{"service": h.svc.State()}
	if s, ok := h.svc.Store().(interface{ State() any }); ok {
		out["store"] = s.State()
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handlers) listNotes(w http.ResponseWriter, r *http.Request) {
	notes, err := h.svc.ListNotes(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if notes == nil {
		notes = []core.Note{}
	}
	writeJSON(w, http.StatusOK, notes)
}

func (h *handlers) createNote(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if !decode(w, r, &body) {
		return
	}
	n, err := h.svc.CreateNote(r.Context(), core.NoteFromMap(body))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, n)
}

func (h *handlers) saveNote(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if !decode(w, r, &body) {
		return
	}
	n := core.NoteFromMap(body)
	n.ID = chi.URLParam(r, "id")
	if err := h.svc.SaveNote(r.Context(), n); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, n)
}

func (h *handlers) deleteNote(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteNote(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) listFolders(w http.ResponseWriter, r *http.Request) {
	folders, err := h.svc.ListFolders(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if folders == nil {
		folders = []core.Folder{}
	}
	writeJSON(w, http.StatusOK, folders)
}

func (h *handlers) saveFolders(w http.ResponseWriter, r *http.Request) {
	var folders []core.Folder
	if !decode(w, r, &folders) {
		return
	}
	report, err := h.svc.ApplyFolders(r.Context(), folders)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if len(report.Merged) > 0 {
		LoggerFromContext(r.Context()).WarnContext(r.Context(), "folders merged", "ids", report.Merged)
	}
	h.listFolders(w, r)
}

func (h *handlers) deleteFolder(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteFolder(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		LoggerFromContext(r.Context()).WarnContext(r.Context(), "invalid request body", "error", err)
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	logger := LoggerFromContext(r.Context())
	if status >= http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "request failed", "error", err)
	} else {
		logger.WarnContext(r.Context(), "request rejected", "error", err)
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrInvalidID):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrReadOnly):
		return http.StatusForbidden
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
