package build

import (
	"database/sql"
	"fmt"
)

// SetupSchema initializes the manifest tables in the provided database. It is
// idempotent and safe to call on an already-initialized database.
func SetupSchema(db *sql.DB) error {

	const (
		schemaBuilds = `
CREATE TABLE IF NOT EXISTS builds (
    build_id      TEXT    PRIMARY KEY,
    started_at    INTEGER NOT NULL,
    finished_at   INTEGER,
    pages_written INTEGER NOT NULL DEFAULT 0,
    pages_skipped INTEGER NOT NULL DEFAULT 0,
    pages_removed INTEGER NOT NULL DEFAULT 0,
    error         TEXT    NOT NULL DEFAULT ''
);
`
		schemaPages = `
CREATE TABLE IF NOT EXISTS build_pages (
    page_name    TEXT    PRIMARY KEY,
    output_path  TEXT    NOT NULL,
    content_hash TEXT    NOT NULL,
    build_id     TEXT    NOT NULL,
    built_at     INTEGER NOT NULL
);
`
	)

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	if _, err = tx.Exec(schemaBuilds); err != nil {
		return fmt.Errorf("could not create builds schema: %w", err)
	}

	if _, err = tx.Exec(schemaPages); err != nil {
		return fmt.Errorf("could not create pages schema: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("could not commit transaction: %w", err)
	}

	return nil
}
