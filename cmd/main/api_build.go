package main

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/CTAG07/apidocs/pkg/build"
	"github.com/CTAG07/apidocs/pkg/templating"
	"github.com/go-chi/chi/v5"
)

// BuildAPI holds the dependencies for the build API handlers.
type BuildAPI struct {
	builder *build.Builder
	tm      *templating.TemplateManager
	logger  *slog.Logger
}

// NewBuildAPI creates a new instance of the BuildAPI.
func NewBuildAPI(builder *build.Builder, tm *templating.TemplateManager, logger *slog.Logger) *BuildAPI {
	return &BuildAPI{
		builder: builder,
		tm:      tm,
		logger:  logger,
	}
}

// RegisterRoutes sets up the routing for the /api/build and /api/builds endpoints.
func (a *BuildAPI) RegisterRoutes(r chi.Router) {
	r.Post("/build", a.handleBuild)
	r.Get("/builds", a.handleHistory)
	r.Get("/builds/{id}", a.handleGetBuild)
	r.Get("/pages", a.handlePages)
}

// handleBuild runs a build of every page. The query parameters "force" and
// "prune" map to the build options of the same name.
func (a *BuildAPI) handleBuild(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	force, _ := strconv.ParseBool(query.Get("force"))
	prune, _ := strconv.ParseBool(query.Get("prune"))

	tmplConfig := a.tm.GetConfig()
	opts := build.Options{
		Force: force,
		Prune: prune,
		Data:  TemplateInput{Version: Version, Site: tmplConfig.Site},
	}

	result, err := a.builder.Build(r.Context(), a.tm.GetPageNames(), opts)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Build %s failed: %v", result.BuildID, err))
		return
	}
	respondWithJSON(w, http.StatusOK, result)
}

// handleHistory lists recent builds. "limit" defaults to 20.
func (a *BuildAPI) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil {
		limit = 20
	}
	builds, err := a.builder.History(r.Context(), limit)
	if err != nil {
		a.logger.Error("Failed to load build history", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Failed to load build history")
		return
	}
	respondWithJSON(w, http.StatusOK, builds)
}

func (a *BuildAPI) handleGetBuild(w http.ResponseWriter, r *http.Request) {
	info, err := a.builder.GetBuild(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, build.ErrBuildNotFound) {
			respondWithError(w, http.StatusNotFound, "Build not found")
			return
		}
		a.logger.Error("Failed to load build", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Failed to load build")
		return
	}
	respondWithJSON(w, http.StatusOK, info)
}

// handlePages returns the build manifest.
func (a *BuildAPI) handlePages(w http.ResponseWriter, r *http.Request) {
	pages, err := a.builder.Pages(r.Context())
	if err != nil {
		a.logger.Error("Failed to load page manifest", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Failed to load page manifest")
		return
	}
	respondWithJSON(w, http.StatusOK, pages)
}
