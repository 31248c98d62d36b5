package main

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/CTAG07/apidocs/pkg/build"
	"github.com/CTAG07/apidocs/pkg/helpers"
	"github.com/CTAG07/apidocs/pkg/templating"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// TemplateInput is the site-wide data every page receives as .Data.
type TemplateInput struct {
	Version string
	Site    helpers.Site
}

// Server wires the template manager, the builder and the preview API together.
type Server struct {
	cm          *ConfigManager
	db          *sql.DB
	logger      *slog.Logger
	tm          *templating.TemplateManager
	builder     *build.Builder
	templateAPI *TemplateAPI
	buildAPI    *BuildAPI
	serverAPI   *ServerAPI
	router      chi.Router
}

// newSite creates the template manager and builder shared by the build and
// serve commands.
func newSite(config *Config, logger *slog.Logger, db *sql.DB) (*templating.TemplateManager, *build.Builder, error) {
	tm, err := templating.NewTemplateManager(logger, config.Templates, config.Server.DataDir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create template manager: %w", err)
	}

	builder, err := build.NewBuilder(db, tm, logger, config.Server.OutputDir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create builder: %w", err)
	}
	return tm, builder, nil
}

// NewServer creates the preview server and registers its routes.
func NewServer(cm *ConfigManager, logger *slog.Logger, db *sql.DB, actionChan chan string) (*Server, error) {
	config := cm.Get()

	tm, builder, err := newSite(&config, logger, db)
	if err != nil {
		return nil, err
	}
	cm.SetTemplateManager(tm)

	server := &Server{
		cm:          cm,
		db:          db,
		logger:      logger,
		tm:          tm,
		builder:     builder,
		templateAPI: NewTemplateAPI(tm, logger),
		buildAPI:    NewBuildAPI(builder, tm, logger),
		serverAPI:   NewServerAPI(cm, actionChan, logger),
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(logger))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", server.serverAPI.handleHealthCheck)
		server.templateAPI.RegisterRoutes(r)
		server.buildAPI.RegisterRoutes(r)
		server.serverAPI.RegisterRoutes(r)
	})

	r.Get("/preview/{name}", server.handlePreview)
	r.Handle("/*", http.FileServer(http.Dir(config.Server.OutputDir)))

	server.router = r
	return server, nil
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Close releases the builder's statements. The database is owned by the caller.
func (s *Server) Close() {
	s.builder.Close()
}

// handlePreview renders a page live from the current templates, so edits show
// up without a build. Both "users" and "users.tmpl.html" are accepted.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	name := path.Base(chi.URLParam(r, "name"))
	if !strings.HasSuffix(name, ".tmpl.html") {
		name = strings.TrimSuffix(name, ".html") + ".tmpl.html"
	}

	config := s.cm.Get()
	data := build.PageData{
		Name: name,
		Path: build.OutputPath(name),
		Data: TemplateInput{Version: Version, Site: config.Templates.Site},
	}

	var buf bytes.Buffer
	if err := s.tm.Execute(&buf, name, data); err != nil {
		if strings.Contains(err.Error(), "is undefined") {
			http.NotFound(w, r)
			return
		}
		s.logger.Error("Failed to render preview", "template", name, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

// requestLogger logs every request through slog.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Debug("Request served",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

func respondWithJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			slog.Error("Failed to encode JSON response", "error", err)
		}
	}
}
