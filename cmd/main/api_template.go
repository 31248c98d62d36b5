package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/CTAG07/apidocs/pkg/build"
	"github.com/CTAG07/apidocs/pkg/templating"
	"github.com/go-chi/chi/v5"
	"github.com/natefinch/atomic"
)

// maxTemplateSize caps request bodies of the template endpoints.
const maxTemplateSize = 1 << 20

// TemplateAPI holds the dependencies for the template API handlers.
type TemplateAPI struct {
	tm     *templating.TemplateManager
	logger *slog.Logger
}

// NewTemplateAPI creates a new instance of the TemplateAPI.
func NewTemplateAPI(tm *templating.TemplateManager, logger *slog.Logger) *TemplateAPI {
	return &TemplateAPI{
		tm:     tm,
		logger: logger,
	}
}

// RegisterRoutes sets up the routing for all /api/templates endpoints.
func (t *TemplateAPI) RegisterRoutes(r chi.Router) {
	r.Get("/templates", t.handleList)
	r.Post("/templates/refresh", t.handleRefresh)
	r.Post("/templates/test", t.handleTest)
	r.Get("/templates/{name}", t.handleGetFile)
	r.Put("/templates/{name}", t.handlePutFile)
	r.Delete("/templates/{name}", t.handleDeleteFile)
}

// handleRefresh triggers a manual refresh of templates from disk.
func (t *TemplateAPI) handleRefresh(w http.ResponseWriter, _ *http.Request) {
	if err := t.tm.Refresh(); err != nil {
		t.logger.Error("API triggered refresh failed", "error", err)
		respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to refresh templates: %v", err))
		return
	}
	t.logger.Info("Templates refreshed via API")
	w.WriteHeader(http.StatusNoContent)
}

// handleList returns the loaded template names and the pages a build renders.
func (t *TemplateAPI) handleList(w http.ResponseWriter, _ *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string][]string{
		"templates": t.tm.GetTemplateNames(),
		"pages":     t.tm.GetPageNames(),
	})
}

// handleTest renders the request body as a template without saving it. The
// helpers and partials are available to it.
func (t *TemplateAPI) handleTest(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxTemplateSize))
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to read request body: %v", err))
		return
	}

	data := build.PageData{Name: "inline", Path: "inline.html"}
	var buf bytes.Buffer
	if err = t.tm.ExecuteTemplateString(&buf, string(body), data); err != nil {
		respondWithError(w, http.StatusBadRequest, fmt.Sprintf("Template execution failed: %v", err))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

// templatePath resolves a template file name inside the template directory. It
// writes an error response and returns false for anything that isn't a page or
// partial file directly in that directory.
func (t *TemplateAPI) templatePath(w http.ResponseWriter, r *http.Request) (string, bool) {
	name := chi.URLParam(r, "name")
	if name == "" || strings.Contains(name, "..") || strings.ContainsAny(name, `/\`) ||
		(!strings.HasSuffix(name, ".tmpl.html") && !strings.HasSuffix(name, ".part.html")) {
		respondWithError(w, http.StatusBadRequest, "Invalid template name format")
		return "", false
	}

	templateDir, err := filepath.Abs(t.tm.GetTemplateDir())
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to resolve template directory")
		return "", false
	}
	return filepath.Join(templateDir, name), true
}

func (t *TemplateAPI) handleGetFile(w http.ResponseWriter, r *http.Request) {
	path, ok := t.templatePath(w, r)
	if !ok {
		return
	}
	content, err := os.ReadFile(path)
	if err != nil {
		respondWithError(w, http.StatusNotFound, "Template not found")
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write(content)
}

func (t *TemplateAPI) handlePutFile(w http.ResponseWriter, r *http.Request) {
	path, ok := t.templatePath(w, r)
	if !ok {
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxTemplateSize))
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to read request body: %v", err))
		return
	}
	if err = os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to create template directory: %v", err))
		return
	}
	if err = atomic.WriteFile(path, bytes.NewReader(body)); err != nil {
		respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to write template file: %v", err))
		return
	}
	if err = t.tm.Refresh(); err != nil {
		// The file is saved but broken; report it so the editor can fix it.
		respondWithError(w, http.StatusUnprocessableEntity, fmt.Sprintf("Template saved but failed to parse: %v", err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (t *TemplateAPI) handleDeleteFile(w http.ResponseWriter, r *http.Request) {
	path, ok := t.templatePath(w, r)
	if !ok {
		return
	}
	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			respondWithError(w, http.StatusNotFound, "Template not found")
			return
		}
		respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to delete template file: %v", err))
		return
	}
	_ = t.tm.Refresh()
	w.WriteHeader(http.StatusNoContent)
}
