package main

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/CTAG07/apidocs/pkg/build"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPage = `<html><body>{{template "header" .}}` +
	`{{code_tabs "install"}}` +
	`<ul>{{argument "limit" "Max results" (dict "default" 10)}}{{argument "id" "User id"}}</ul>` +
	`<p>{{status_code 201}}</p><footer>{{.Data.Version}}</footer></body></html>`

// setupTestServer creates a Server over a temporary data directory holding one
// page and one partial.
func setupTestServer(t *testing.T) (*Server, *Config) {
	t.Helper()
	root := t.TempDir()

	config := DefaultConfig()
	config.Server.DataDir = filepath.Join(root, "data")
	config.Server.OutputDir = filepath.Join(root, "public")
	config.Server.DatabasePath = filepath.Join(root, "data", "apidocs.db")

	templateDir := filepath.Join(config.Server.DataDir, "templates")
	require.NoError(t, os.MkdirAll(templateDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(templateDir, "users.tmpl.html"), []byte(testPage), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(templateDir, "header.part.html"),
		[]byte(`{{define "header"}}<h1>{{.Name}}</h1>{{end}}`), 0644))

	db, err := initDB(config.Server.DatabasePath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cm := NewConfigManager(config, filepath.Join(root, "config.json"), logger)
	server, err := NewServer(cm, logger, db, make(chan string, 1))
	require.NoError(t, err)
	t.Cleanup(server.Close)
	return server, config
}

func doRequest(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader = http.NoBody
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestServer_Health(t *testing.T) {
	server, _ := setupTestServer(t)
	rec := doRequest(t, server, http.MethodGet, "/api/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestServer_Preview(t *testing.T) {
	server, _ := setupTestServer(t)

	for _, target := range []string{"/preview/users", "/preview/users.html", "/preview/users.tmpl.html"} {
		rec := doRequest(t, server, http.MethodGet, target, "")
		require.Equal(t, http.StatusOK, rec.Code, target)
		body := rec.Body.String()
		assert.Contains(t, body, "<h1>users.tmpl.html</h1>")
		assert.Contains(t, body, `<ul class="nav nav-tabs" id="install-tabs">`)
		assert.Contains(t, body, "<strong>limit [optional, default=10]</strong>")
		assert.Contains(t, body, "<strong>id [required]</strong>")
		assert.Contains(t, body, "<p>201 Created</p>")
		assert.Contains(t, body, "<footer>dev</footer>")
	}

	rec := doRequest(t, server, http.MethodGet, "/preview/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_TemplateTest(t *testing.T) {
	server, _ := setupTestServer(t)

	rec := doRequest(t, server, http.MethodPost, "/api/templates/test", `{{code_tabs "auth"}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `href="#auth-ruby"`)

	rec = doRequest(t, server, http.MethodPost, "/api/templates/test", `{{code_tabs}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_TemplateFiles(t *testing.T) {
	server, _ := setupTestServer(t)

	rec := doRequest(t, server, http.MethodGet, "/api/templates", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var listing map[string][]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listing))
	assert.Equal(t, []string{"users.tmpl.html"}, listing["pages"])

	rec = doRequest(t, server, http.MethodPut, "/api/templates/about.tmpl.html", `About {{status_code 200}}`)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doRequest(t, server, http.MethodGet, "/api/templates/about.tmpl.html", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `About {{status_code 200}}`, rec.Body.String())

	rec = doRequest(t, server, http.MethodGet, "/preview/about", "")
	assert.Equal(t, "About 200 OK", rec.Body.String())

	rec = doRequest(t, server, http.MethodGet, "/api/templates/config.json", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, server, http.MethodDelete, "/api/templates/about.tmpl.html", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = doRequest(t, server, http.MethodDelete, "/api/templates/about.tmpl.html", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_BuildAndServe(t *testing.T) {
	server, config := setupTestServer(t)

	rec := doRequest(t, server, http.MethodPost, "/api/build", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var result build.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, []string{"users.tmpl.html"}, result.Written)

	_, err := os.Stat(filepath.Join(config.Server.OutputDir, "users.html"))
	require.NoError(t, err)

	rec = doRequest(t, server, http.MethodGet, "/users.html", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `id="install-tabs"`)

	rec = doRequest(t, server, http.MethodPost, "/api/build", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Empty(t, result.Written)
	assert.Equal(t, []string{"users.tmpl.html"}, result.Skipped)

	rec = doRequest(t, server, http.MethodGet, "/api/builds?limit=5", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var history []build.BuildInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &history))
	require.Len(t, history, 2)

	rec = doRequest(t, server, http.MethodGet, "/api/builds/"+history[0].ID, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = doRequest(t, server, http.MethodGet, "/api/builds/unknown", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doRequest(t, server, http.MethodGet, "/api/pages", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var pages []build.PageRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &pages))
	require.Len(t, pages, 1)
	assert.Equal(t, "users.html", pages[0].OutputPath)
}

func TestServer_Config(t *testing.T) {
	server, _ := setupTestServer(t)

	rec := doRequest(t, server, http.MethodGet, "/api/server/config", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var config Config
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &config))

	config.Templates.Site.Languages = []string{"Ruby", "Go"}
	config.Templates.Site.ActiveLanguage = "Go"
	body, err := json.Marshal(config)
	require.NoError(t, err)

	rec = doRequest(t, server, http.MethodPut, "/api/server/config", string(body))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = doRequest(t, server, http.MethodPost, "/api/templates/test", `{{code_tabs "x"}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `<li class="active"> <a data-toggle="tab" class="lang-tab go-lang-tab"`)

	config.Templates.Site.ActiveLanguage = "Perl"
	body, err = json.Marshal(config)
	require.NoError(t, err)
	rec = doRequest(t, server, http.MethodPut, "/api/server/config", string(body))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_Actions(t *testing.T) {
	server, _ := setupTestServer(t)

	rec := doRequest(t, server, http.MethodPost, "/api/server/restart", "")
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, actionRestart, <-server.serverAPI.actionChan)

	rec = doRequest(t, server, http.MethodGet, "/api/server/version", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"version":"dev"`)

	rec = doRequest(t, server, http.MethodGet, "/api/server/shutdown", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
