package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
)

const (
	actionShutdown = "shutdown"
	actionRestart  = "restart"
)

// ServerAPI holds the dependencies for the main application API handlers.
type ServerAPI struct {
	cm         *ConfigManager
	actionChan chan string
	logger     *slog.Logger
}

// VersionInfo defines the structure for build/version information.
type VersionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date"`
}

// NewServerAPI creates a new instance of the ServerAPI.
func NewServerAPI(cm *ConfigManager, actionChan chan string, logger *slog.Logger) *ServerAPI {
	return &ServerAPI{
		cm:         cm,
		actionChan: actionChan,
		logger:     logger,
	}
}

// RegisterRoutes sets up the routing for all /api/server endpoints.
func (a *ServerAPI) RegisterRoutes(r chi.Router) {
	r.Get("/server/config", a.handleGetConfig)
	r.Put("/server/config", a.handlePutConfig)
	r.Get("/server/version", a.handleVersion)
	r.Post("/server/shutdown", a.handleShutdown)
	r.Post("/server/restart", a.handleRestart)
}

func (a *ServerAPI) handleGetConfig(w http.ResponseWriter, _ *http.Request) {
	respondWithJSON(w, http.StatusOK, a.cm.Get())
}

// handlePutConfig replaces the configuration. Template settings take effect
// immediately; server settings such as the address need a restart.
func (a *ServerAPI) handlePutConfig(w http.ResponseWriter, r *http.Request) {
	var newConfig Config
	if err := json.NewDecoder(r.Body).Decode(&newConfig); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid JSON request body")
		return
	}

	if err := a.cm.Update(newConfig); err != nil {
		a.logger.Error("Failed to update configuration", "error", err)
		respondWithError(w, http.StatusBadRequest, fmt.Sprintf("Failed to update configuration: %v", err))
		return
	}

	a.logger.Info("Application configuration updated and saved via API. Some changes may require a restart.")
	respondWithJSON(w, http.StatusOK, a.cm.Get())
}

// handleVersion returns the application's build information.
func (a *ServerAPI) handleVersion(w http.ResponseWriter, _ *http.Request) {
	respondWithJSON(w, http.StatusOK, VersionInfo{
		Version:   Version,
		Commit:    Commit,
		BuildDate: BuildDate,
	})
}

// handleShutdown initiates a graceful shutdown of the server.
func (a *ServerAPI) handleShutdown(w http.ResponseWriter, _ *http.Request) {
	a.logger.Info("Shutdown requested via API")
	respondWithJSON(w, http.StatusAccepted, map[string]string{"status": "shutting down"})
	a.sendAction(actionShutdown)
}

// handleRestart reloads the configuration and restarts the server.
func (a *ServerAPI) handleRestart(w http.ResponseWriter, _ *http.Request) {
	a.logger.Info("Restart requested via API")
	respondWithJSON(w, http.StatusAccepted, map[string]string{"status": "restarting"})
	a.sendAction(actionRestart)
}

// sendAction hands the action to the run loop without blocking if one is
// already pending.
func (a *ServerAPI) sendAction(action string) {
	select {
	case a.actionChan <- action:
	default:
		a.logger.Warn("An action is already pending, ignoring", "action", action)
	}
}

// handleHealthCheck reports that the server is up. It needs no configuration
// and is safe to expose to container health probes.
func (a *ServerAPI) handleHealthCheck(w http.ResponseWriter, _ *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
