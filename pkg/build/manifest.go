package build

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrBuildNotFound is returned by GetBuild for an unknown build id.
var ErrBuildNotFound = errors.New("build not found")

// PageRecord is the manifest entry of a page as of its last write.
type PageRecord struct {
	Name        string    `json:"name"`
	OutputPath  string    `json:"output_path"`
	ContentHash string    `json:"content_hash"`
	BuildID     string    `json:"build_id"`
	BuiltAt     time.Time `json:"built_at"`
}

// BuildInfo is a row of the build history.
type BuildInfo struct {
	ID           string     `json:"id"`
	StartedAt    time.Time  `json:"started_at"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
	PagesWritten int        `json:"pages_written"`
	PagesSkipped int        `json:"pages_skipped"`
	PagesRemoved int        `json:"pages_removed"`
	Error        string     `json:"error,omitempty"`
}

// Pages returns the manifest ordered by page name.
func (b *Builder) Pages(ctx context.Context) ([]PageRecord, error) {
	return b.listPages(ctx)
}

func (b *Builder) listPages(ctx context.Context) ([]PageRecord, error) {
	rows, err := b.stmtListPages.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not query pages: %w", err)
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	records := []PageRecord{}
	for rows.Next() {
		var rec PageRecord
		var builtAt int64
		if err = rows.Scan(&rec.Name, &rec.OutputPath, &rec.ContentHash, &rec.BuildID, &builtAt); err != nil {
			return nil, err
		}
		rec.BuiltAt = time.UnixMilli(builtAt)
		records = append(records, rec)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

// History returns up to limit builds, most recent first.
func (b *Builder) History(ctx context.Context, limit int) ([]BuildInfo, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := b.stmtListBuilds.QueryContext(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("could not query builds: %w", err)
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	builds := []BuildInfo{}
	for rows.Next() {
		info, err := scanBuild(rows)
		if err != nil {
			return nil, err
		}
		builds = append(builds, info)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return builds, nil
}

// GetBuild returns a single build by id.
func (b *Builder) GetBuild(ctx context.Context, id string) (BuildInfo, error) {
	info, err := scanBuild(b.stmtGetBuildByID.QueryRowContext(ctx, id))
	if errors.Is(err, sql.ErrNoRows) {
		return BuildInfo{}, ErrBuildNotFound
	}
	return info, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBuild(row rowScanner) (BuildInfo, error) {
	var info BuildInfo
	var startedAt int64
	var finishedAt sql.NullInt64
	err := row.Scan(&info.ID, &startedAt, &finishedAt, &info.PagesWritten, &info.PagesSkipped, &info.PagesRemoved, &info.Error)
	if err != nil {
		return BuildInfo{}, err
	}
	info.StartedAt = time.UnixMilli(startedAt)
	if finishedAt.Valid {
		t := time.UnixMilli(finishedAt.Int64)
		info.FinishedAt = &t
	}
	return info, nil
}
