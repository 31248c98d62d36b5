package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// EnvOverrides are settings read from the environment (and an optional .env
// file). Non-empty values win over the config file.
type EnvOverrides struct {
	ConfigPath string `env:"APIDOCS_CONFIG" envDefault:"./config.json"`
	LogLevel   string `env:"APIDOCS_LOG_LEVEL"`
	OutputDir  string `env:"APIDOCS_OUTPUT_DIR"`
	Addr       string `env:"APIDOCS_ADDR"`
}

// loadEnv loads .env from the working directory if present and parses the
// overrides from the environment.
func loadEnv() (EnvOverrides, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return EnvOverrides{}, fmt.Errorf("failed to load .env: %w", err)
	}
	var overrides EnvOverrides
	if err := env.Parse(&overrides); err != nil {
		return EnvOverrides{}, fmt.Errorf("parse env: %w", err)
	}
	return overrides, nil
}

// apply copies the non-empty overrides into config.
func (e EnvOverrides) apply(config *Config) {
	if e.LogLevel != "" {
		config.Server.LogLevel = e.LogLevel
	}
	if e.OutputDir != "" {
		config.Server.OutputDir = e.OutputDir
	}
	if e.Addr != "" {
		config.Server.Addr = e.Addr
	}
}
