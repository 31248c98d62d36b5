package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/CTAG07/apidocs/pkg/templating"
	"github.com/natefinch/atomic"
	"gopkg.in/yaml.v3"
)

// ServerConfig holds the configuration for the builder and the preview server.
type ServerConfig struct {
	Addr         string `json:"addr" yaml:"addr"`
	LogLevel     string `json:"log_level" yaml:"log_level"`
	DataDir      string `json:"data_dir" yaml:"data_dir"`
	OutputDir    string `json:"output_dir" yaml:"output_dir"`
	DatabasePath string `json:"database_path" yaml:"database_path"`
}

// Config is the top-level configuration struct that aggregates all other configs.
type Config struct {
	Server    *ServerConfig              `json:"server_config" yaml:"server_config"`
	Templates *templating.TemplateConfig `json:"template_config" yaml:"template_config"`
}

// DefaultServerConfig creates a server configuration with default values.
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Addr:         ":4000",
		LogLevel:     "info",
		DataDir:      "./data",
		OutputDir:    "./public",
		DatabasePath: "./data/apidocs.db?_journal_mode=WAL&_busy_timeout=5000",
	}
}

// DefaultConfig returns the full default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server:    DefaultServerConfig(),
		Templates: templating.DefaultConfig(),
	}
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// marshalConfig encodes config in the format implied by the file extension.
func marshalConfig(path string, config *Config) ([]byte, error) {
	if isYAML(path) {
		return yaml.Marshal(config)
	}
	return json.MarshalIndent(config, "", "  ")
}

func unmarshalConfig(path string, data []byte, config *Config) error {
	if isYAML(path) {
		return yaml.Unmarshal(data, config)
	}
	return json.Unmarshal(data, config)
}

// LoadConfig reads the configuration from a JSON or YAML file at the given path.
// If the file doesn't exist, it creates one with default values.
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()

	file, err := os.ReadFile(path)
	if err != nil {
		// If the file doesn't exist, create it with the default config.
		if errors.Is(err, os.ErrNotExist) {
			var data []byte
			data, err = marshalConfig(path, config)
			if err != nil {
				return nil, fmt.Errorf("failed to marshal default config: %w", err)
			}
			if err = atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
				// Log a warning instead of failing, as the builder can still run with defaults.
				fmt.Printf("warning: failed to write default config file: %v\n", err)
			}
			return config, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err = unmarshalConfig(path, file, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Sections missing from the file fall back to their defaults.
	if config.Server == nil {
		config.Server = DefaultServerConfig()
	}
	if config.Templates == nil {
		config.Templates = templating.DefaultConfig()
	}
	return config, nil
}

// ConfigManager handles thread-safe access to the configuration and keeps the
// template manager in sync with it.
type ConfigManager struct {
	config     *Config
	mu         sync.RWMutex
	configPath string
	logger     *slog.Logger
	tm         *templating.TemplateManager
}

// NewConfigManager wraps an already loaded config.
func NewConfigManager(config *Config, path string, logger *slog.Logger) *ConfigManager {
	return &ConfigManager{
		config:     config,
		configPath: path,
		logger:     logger,
	}
}

// SetTemplateManager registers the template manager to receive config updates.
func (cm *ConfigManager) SetTemplateManager(tm *templating.TemplateManager) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.tm = tm
}

// Get returns a copy of the current configuration.
func (cm *ConfigManager) Get() Config {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return *cm.config
}

// Update validates the new configuration against the template manager, saves
// it to disk and swaps it in. Nothing changes, in memory or on disk, if the new
// configuration can't be applied or written.
func (cm *ConfigManager) Update(newConfig Config) error {
	if newConfig.Server == nil || newConfig.Templates == nil {
		return errors.New("server_config and template_config are required")
	}

	cm.mu.Lock()
	defer cm.mu.Unlock()

	oldTmplConfig := cm.config.Templates
	rollback := func() {
		if cm.tm == nil {
			return
		}
		_ = cm.tm.SetConfig(oldTmplConfig)
		_ = cm.tm.Refresh()
	}

	if cm.tm != nil {
		if err := cm.tm.SetConfig(newConfig.Templates); err != nil {
			return fmt.Errorf("template configuration rejected: %w", err)
		}
		if err := cm.tm.Refresh(); err != nil {
			rollback()
			return fmt.Errorf("template configuration rejected: %w", err)
		}
	}

	data, err := marshalConfig(cm.configPath, &newConfig)
	if err != nil {
		rollback()
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err = atomic.WriteFile(cm.configPath, bytes.NewReader(data)); err != nil {
		rollback()
		return fmt.Errorf("failed to write config file: %w", err)
	}

	*cm.config = newConfig
	cm.logger.Info("Configuration updated", "path", cm.configPath)
	return nil
}
