package main

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/CTAG07/apidocs/pkg/templating"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_WritesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	config, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultServerConfig(), config.Server)
	assert.Equal(t, "Python", config.Templates.Site.ActiveLanguage)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var onDisk Config
	require.NoError(t, json.Unmarshal(data, &onDisk))
	assert.Equal(t, config.Server, onDisk.Server)
	assert.Equal(t, "200 OK", onDisk.Templates.Site.StatusCodes[200])
}

func TestLoadConfig_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server_config:
  addr: ":9000"
  log_level: debug
  output_dir: ./site
template_config:
  enabled_templates: [index.tmpl.html]
  site:
    status_codes:
      200: "200 OK"
      418: "418 I'm a teapot"
    languages: [Go, Python]
    active_language: Go
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	config, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, ":9000", config.Server.Addr)
	assert.Equal(t, "./site", config.Server.OutputDir)
	// Fields missing from the file keep their defaults.
	assert.Equal(t, DefaultServerConfig().DataDir, config.Server.DataDir)
	assert.Equal(t, []string{"index.tmpl.html"}, config.Templates.EnabledTemplates)
	assert.Equal(t, []string{"Go", "Python"}, config.Templates.Site.Languages)
	assert.Equal(t, "418 I'm a teapot", config.Templates.Site.StatusCodes[418])
}

func TestLoadConfig_YAMLDefaultsWritten(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	_, err := LoadConfig(path)
	require.NoError(t, err)

	reloaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Server, reloaded.Server)
	assert.Equal(t, DefaultConfig().Templates.Site, reloaded.Templates.Site)
}

func TestLoadConfig_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"server_config": [}`), 0644))
	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("APIDOCS_LOG_LEVEL", "debug")
	t.Setenv("APIDOCS_OUTPUT_DIR", "/tmp/out")
	t.Setenv("APIDOCS_CONFIG", "docs.yaml")

	overrides, err := loadEnv()
	require.NoError(t, err)
	assert.Equal(t, "docs.yaml", overrides.ConfigPath)

	config := DefaultConfig()
	overrides.apply(config)
	assert.Equal(t, "debug", config.Server.LogLevel)
	assert.Equal(t, "/tmp/out", config.Server.OutputDir)
	assert.Equal(t, DefaultServerConfig().Addr, config.Server.Addr)
}

func TestConfigManager_Update(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	config, err := LoadConfig(path)
	require.NoError(t, err)

	cm := NewConfigManager(config, path, slog.New(slog.NewTextHandler(io.Discard, nil)))

	updated := cm.Get()
	updated.Server = &ServerConfig{Addr: ":1234", LogLevel: "warn"}
	require.NoError(t, cm.Update(updated))
	assert.Equal(t, ":1234", cm.Get().Server.Addr)

	reloaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, ":1234", reloaded.Server.Addr)

	assert.Error(t, cm.Update(Config{}))
}

func TestConfigManager_UpdateWriteFailure(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	config := DefaultConfig()
	// The parent directory doesn't exist, so saving fails.
	path := filepath.Join(t.TempDir(), "missing", "config.json")

	tm, err := templating.NewTemplateManager(logger, config.Templates, t.TempDir())
	require.NoError(t, err)

	cm := NewConfigManager(config, path, logger)
	cm.SetTemplateManager(tm)

	tmplConfig := templating.DefaultConfig()
	tmplConfig.Site.ActiveLanguage = "Ruby"
	updated := Config{
		Server:    &ServerConfig{Addr: ":1234", LogLevel: "warn"},
		Templates: tmplConfig,
	}

	err = cm.Update(updated)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to write config file")

	assert.Equal(t, ":4000", cm.Get().Server.Addr)
	assert.Equal(t, "Python", cm.Get().Templates.Site.ActiveLanguage)
	assert.Equal(t, "Python", tm.GetConfig().Site.ActiveLanguage)
	assert.Equal(t, "active", tm.Helpers().LanguageClass("Python"))

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestParseArgs(t *testing.T) {
	opts, err := parseArgs(nil, "./config.json")
	require.NoError(t, err)
	assert.Equal(t, "build", opts.command)
	assert.Equal(t, "./config.json", opts.configPath)

	opts, err = parseArgs([]string{"serve", "-config", "site.yaml"}, "./config.json")
	require.NoError(t, err)
	assert.Equal(t, "serve", opts.command)
	assert.Equal(t, "site.yaml", opts.configPath)

	opts, err = parseArgs([]string{"-force", "-prune"}, "./config.json")
	require.NoError(t, err)
	assert.True(t, opts.force)
	assert.True(t, opts.prune)

	_, err = parseArgs([]string{"deploy"}, "./config.json")
	assert.Error(t, err)
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLogLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, parseLogLevel("warn"))
	assert.Equal(t, slog.LevelError, parseLogLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLogLevel("verbose"))
}
