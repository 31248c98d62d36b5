package main

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/CTAG07/apidocs/pkg/build"
)

// initDB opens the manifest database, creating its directory if needed, and
// sets up the schema.
func initDB(dataSource string) (*sql.DB, error) {
	path, _, _ := strings.Cut(dataSource, "?")
	if dir := filepath.Dir(path); path != "" && path != ":memory:" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := openDB(dataSource)
	if err != nil {
		return nil, err
	}
	if err = db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err = build.SetupSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to set up build schema: %w", err)
	}
	return db, nil
}
