package httpapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/notefold/internal/platform"
	"github.com/aretw0/notefold/pkg/core"
)

func newTestServer(t *testing.T, opts ...platform.Option) (http.Handler, string) {
	t.Helper()
	root := filepath.Join(t.TempDir(), "store")
	require.NoError(t, os.MkdirAll(root, 0755))
	opts = append([]platform.Option{platform.WithMigration(false)}, opts...)
	svc, err := platform.New(root, opts...)
	require.NoError(t, err)
	return NewRouter(&Deps{Service: svc}), root
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestRouter(t *testing.T) {
	t.Run("Empty Lists", func(t *testing.T) {
		h, _ := newTestServer(t)

		w := do(t, h, http.MethodGet, "/api/notes", "")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `[]`, w.Body.String())

		w = do(t, h, http.MethodGet, "/api/folders", "")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `[]`, w.Body.String())
	})

	t.Run("Folder And Note Round Trip", func(t *testing.T) {
		h, root := newTestServer(t)

		w := do(t, h, http.MethodPut, "/api/folders", `[{"id":"f1","parentId":"","name":"Work"}]`)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.DirExists(t, filepath.Join(root, "Work"))

		w = do(t, h, http.MethodPut, "/api/notes/n1", `{"folderId":"f1","content":"hello","title":"Hi"}`)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.FileExists(t, filepath.Join(root, "Work", "n1.md"))

		w = do(t, h, http.MethodGet, "/api/notes", "")
		require.Equal(t, http.StatusOK, w.Code)
		var notes []map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &notes))
		require.Len(t, notes, 1)
		assert.Equal(t, "n1", notes[0]["id"])
		assert.Equal(t, "f1", notes[0]["folderId"])
		assert.Equal(t, "hello", notes[0]["content"])
		assert.Equal(t, "Hi", notes[0]["title"])
	})

	t.Run("Create Assigns ID", func(t *testing.T) {
		h, _ := newTestServer(t)

		w := do(t, h, http.MethodPost, "/api/notes", `{"content":"x"}`)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		var note map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &note))
		assert.NotEmpty(t, note["id"])
		assert.Nil(t, note["folderId"])
	})

	t.Run("Delete Is Idempotent", func(t *testing.T) {
		h, root := newTestServer(t)

		require.Equal(t, http.StatusOK, do(t, h, http.MethodPut, "/api/notes/n1", `{"content":"x"}`).Code)
		assert.Equal(t, http.StatusNoContent, do(t, h, http.MethodDelete, "/api/notes/n1", "").Code)
		assert.NoFileExists(t, filepath.Join(root, "Uncategorized", "n1.md"))
		assert.Equal(t, http.StatusNoContent, do(t, h, http.MethodDelete, "/api/notes/n1", "").Code)
		assert.Equal(t, http.StatusNoContent, do(t, h, http.MethodDelete, "/api/folders/nope", "").Code)
	})

	t.Run("Bad Input", func(t *testing.T) {
		h, _ := newTestServer(t)

		w := do(t, h, http.MethodPut, "/api/notes/n1", `{not json`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.JSONEq(t, `{"error":"invalid request body"}`, w.Body.String())

		w = do(t, h, http.MethodPut, "/api/notes/..", `{"content":"x"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)

		w = do(t, h, http.MethodPut, "/api/folders", `[{"id":"a","name":"A"},{"id":"a","name":"B"}]`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Read Only Forbidden", func(t *testing.T) {
		h, _ := newTestServer(t, platform.WithReadOnly(true))

		w := do(t, h, http.MethodPut, "/api/notes/n1", `{"content":"x"}`)
		assert.Equal(t, http.StatusForbidden, w.Code)
		var resp errorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.NotEmpty(t, resp.Error)
	})

	t.Run("State", func(t *testing.T) {
		h, _ := newTestServer(t)

		w := do(t, h, http.MethodGet, "/api/state", "")
		require.Equal(t, http.StatusOK, w.Code)
		var state map[string]map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &state))
		assert.Equal(t, "repository", state["service"]["repository_type"])
		assert.Contains(t, state, "store")
	})

	t.Run("CORS Preflight", func(t *testing.T) {
		h, _ := newTestServer(t)

		req := httptest.NewRequest(http.MethodOptions, "/api/notes", nil)
		req.Header.Set("Origin", "http://localhost:3000")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
	})
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{core.ErrInvalidID, http.StatusBadRequest},
		{core.ErrReadOnly, http.StatusForbidden},
		{core.ErrNotFound, http.StatusNotFound},
		{context.Canceled, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}

func TestLoggerMiddleware(t *testing.T) {
	var captured any
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = r.Context().Value(loggerKey)
		w.WriteHeader(http.StatusOK)
	})

	w := httptest.NewRecorder()
	LoggerMiddleware(slog.New(slog.DiscardHandler))(handler).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.IsType(t, &slog.Logger{}, captured)
	assert.Same(t, slog.Default(), LoggerFromContext(context.Background()))
}
