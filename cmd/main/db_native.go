//go:build !cgo_sqlite

package main

import (
	"database/sql"
	"strings"

	_ "modernc.org/sqlite"
)

const sqliteDriver = "sqlite"

// openDB opens the pure Go driver. modernc.org/sqlite takes pragmas as
// _pragma=name(value) rather than mattn's _name=value, so the common ones are
// translated to keep a single database_path format in the config.
func openDB(dataSource string) (*sql.DB, error) {
	dataSource = strings.NewReplacer(
		"_journal_mode=WAL", "_pragma=journal_mode(WAL)",
		"_busy_timeout=5000", "_pragma=busy_timeout(5000)",
	).Replace(dataSource)
	return sql.Open(sqliteDriver, dataSource)
}
