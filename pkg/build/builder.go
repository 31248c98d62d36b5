package build

import (
	"bytes"
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/natefinch/atomic"
)

// Renderer executes a named page template. *templating.TemplateManager
// satisfies it.
type Renderer interface {
	Execute(w io.Writer, name string, data any) error
}

// PageData is passed as dot to every page rendered by a build.
type PageData struct {
	// Name is the template name of the page, e.g. "users.tmpl.html".
	Name string
	// Path is the output file name relative to the output directory.
	Path string
	// Data is the caller supplied site data.
	Data any
}

// Options controls a single build.
type Options struct {
	// Force rewrites every page even when its content is unchanged.
	Force bool
	// Prune deletes output files and manifest entries of pages that are no
	// longer part of the site.
	Prune bool
	// Data is made available to every page as .Data.
	Data any
}

// Result summarizes a build.
type Result struct {
	BuildID    string    `json:"build_id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Written    []string  `json:"written"`
	Skipped    []string  `json:"skipped"`
	Removed    []string  `json:"removed"`
}

// Builder renders pages into an output directory and keeps the manifest up to
// date. Builds are serialized; a Builder is safe for concurrent use.
type Builder struct {
	db               *sql.DB
	renderer         Renderer
	logger           *slog.Logger
	outputDir        string
	mu               sync.Mutex
	stmtInsertBuild  *sql.Stmt
	stmtFinishBuild  *sql.Stmt
	stmtGetPageHash  *sql.Stmt
	stmtUpsertPage   *sql.Stmt
	stmtDeletePage   *sql.Stmt
	stmtListPages    *sql.Stmt
	stmtListBuilds   *sql.Stmt
	stmtGetBuildByID *sql.Stmt
}

// NewBuilder creates a Builder writing into outputDir. The schema must have
// been set up with SetupSchema. All SQL statements are prepared up front.
func NewBuilder(db *sql.DB, renderer Renderer, logger *slog.Logger, outputDir string) (*Builder, error) {
	b := &Builder{
		db:        db,
		renderer:  renderer,
		logger:    logger,
		outputDir: outputDir,
	}

	prepare := func(dst **sql.Stmt, query string) error {
		stmt, err := db.Prepare(query)
		if err != nil {
			b.Close()
			return fmt.Errorf("failed to prepare %q: %w", query, err)
		}
		*dst = stmt
		return nil
	}

	statements := []struct {
		dst   **sql.Stmt
		query string
	}{
		{&b.stmtInsertBuild, `INSERT INTO builds (build_id, started_at) VALUES (?, ?);`},
		{&b.stmtFinishBuild, `UPDATE builds SET finished_at = ?, pages_written = ?, pages_skipped = ?, pages_removed = ?, error = ? WHERE build_id = ?;`},
		{&b.stmtGetPageHash, `SELECT content_hash, output_path FROM build_pages WHERE page_name = ?;`},
		{&b.stmtUpsertPage, `INSERT INTO build_pages (page_name, output_path, content_hash, build_id, built_at) VALUES (?, ?, ?, ?, ?)
ON CONFLICT(page_name) DO UPDATE SET output_path = excluded.output_path, content_hash = excluded.content_hash, build_id = excluded.build_id, built_at = excluded.built_at;`},
		{&b.stmtDeletePage, `DELETE FROM build_pages WHERE page_name = ?;`},
		{&b.stmtListPages, `SELECT page_name, output_path, content_hash, build_id, built_at FROM build_pages ORDER BY page_name;`},
		{&b.stmtListBuilds, `SELECT build_id, started_at, finished_at, pages_written, pages_skipped, pages_removed, error FROM builds ORDER BY started_at DESC, rowid DESC LIMIT ?;`},
		{&b.stmtGetBuildByID, `SELECT build_id, started_at, finished_at, pages_written, pages_skipped, pages_removed, error FROM builds WHERE build_id = ?;`},
	}
	for _, s := range statements {
		if err := prepare(s.dst, s.query); err != nil {
			return nil, err
		}
	}

	return b, nil
}

// Close releases the prepared statements. It does not close the database.
func (b *Builder) Close() {
	for _, stmt := range []*sql.Stmt{
		b.stmtInsertBuild, b.stmtFinishBuild, b.stmtGetPageHash, b.stmtUpsertPage,
		b.stmtDeletePage, b.stmtListPages, b.stmtListBuilds, b.stmtGetBuildByID,
	} {
		if stmt != nil {
			_ = stmt.Close()
		}
	}
}

// OutputDir returns the directory pages are written to.
func (b *Builder) OutputDir() string {
	return b.outputDir
}

// OutputPath maps a page template name to its output file name:
// "users.tmpl.html" becomes "users.html".
func OutputPath(page string) string {
	if base, ok := strings.CutSuffix(page, ".tmpl.html"); ok {
		return base + ".html"
	}
	return page
}

// Build renders pages in order. A page whose rendered content matches the
// manifest and whose output file still exists is skipped. A render or write
// failure stops the build; the pages handled so far stay recorded and the
// build row is finalized with the error.
func (b *Builder) Build(ctx context.Context, pages []string, opts Options) (result Result, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	result = Result{
		BuildID:   uuid.NewString(),
		StartedAt: time.Now(),
		Written:   []string{},
		Skipped:   []string{},
		Removed:   []string{},
	}

	if err = os.MkdirAll(b.outputDir, 0755); err != nil {
		return result, fmt.Errorf("failed to create output directory: %w", err)
	}

	if _, err = b.stmtInsertBuild.ExecContext(ctx, result.BuildID, result.StartedAt.UnixMilli()); err != nil {
		return result, fmt.Errorf("failed to record build: %w", err)
	}

	b.logger.InfoContext(ctx, "Build started",
		slog.String("build_id", result.BuildID),
		slog.Int("pages", len(pages)),
		slog.Bool("force", opts.Force),
	)

	defer func() {
		result.FinishedAt = time.Now()
		var errText string
		if err != nil {
			errText = err.Error()
		}
		// The build row is finalized even if ctx was cancelled.
		_, finishErr := b.stmtFinishBuild.ExecContext(context.WithoutCancel(ctx),
			result.FinishedAt.UnixMilli(), len(result.Written), len(result.Skipped), len(result.Removed),
			errText, result.BuildID)
		if finishErr != nil {
			b.logger.Error("Failed to finalize build record", "build_id", result.BuildID, "error", finishErr)
			if err == nil {
				err = fmt.Errorf("failed to finalize build record: %w", finishErr)
			}
		}
		if err != nil {
			b.logger.Error("Build failed", "build_id", result.BuildID, "error", err)
			return
		}
		b.logger.Info("Build finished",
			"build_id", result.BuildID,
			"written", len(result.Written),
			"skipped", len(result.Skipped),
			"removed", len(result.Removed),
			"duration", result.FinishedAt.Sub(result.StartedAt),
		)
	}()

	var buf bytes.Buffer
	for _, page := range pages {
		if err = ctx.Err(); err != nil {
			return result, err
		}

		var written bool
		written, err = b.buildPage(ctx, &buf, page, result.BuildID, opts)
		if err != nil {
			return result, err
		}
		if written {
			result.Written = append(result.Written, page)
		} else {
			result.Skipped = append(result.Skipped, page)
		}
	}

	if opts.Prune {
		result.Removed, err = b.prune(ctx, pages)
		if err != nil {
			return result, err
		}
	}

	return result, nil
}

// buildPage renders a single page and writes it if needed. It reports whether
// the output file was written.
func (b *Builder) buildPage(ctx context.Context, buf *bytes.Buffer, page, buildID string, opts Options) (bool, error) {
	outPath := OutputPath(page)

	buf.Reset()
	if err := b.renderer.Execute(buf, page, PageData{Name: page, Path: outPath, Data: opts.Data}); err != nil {
		return false, fmt.Errorf("failed to render page %s: %w", page, err)
	}

	sum := sha256.Sum256(buf.Bytes())
	hash := hex.EncodeToString(sum[:])
	fullPath := filepath.Join(b.outputDir, outPath)

	if !opts.Force {
		var oldHash, oldPath string
		err := b.stmtGetPageHash.QueryRowContext(ctx, page).Scan(&oldHash, &oldPath)
		switch {
		case errors.Is(err, sql.ErrNoRows):
		case err != nil:
			return false, fmt.Errorf("failed to look up page %s: %w", page, err)
		case oldHash == hash && oldPath == outPath:
			if _, statErr := os.Stat(fullPath); statErr == nil {
				b.logger.Debug("Page unchanged, skipping", "page", page)
				return false, nil
			}
		}
	}

	if err := atomic.WriteFile(fullPath, bytes.NewReader(buf.Bytes())); err != nil {
		return false, fmt.Errorf("failed to write page %s: %w", page, err)
	}

	if _, err := b.stmtUpsertPage.ExecContext(ctx, page, outPath, hash, buildID, time.Now().UnixMilli()); err != nil {
		return false, fmt.Errorf("failed to record page %s: %w", page, err)
	}

	b.logger.Debug("Page written", "page", page, "path", fullPath)
	return true, nil
}

// prune removes outputs of manifest pages that aren't in keep.
func (b *Builder) prune(ctx context.Context, keep []string) ([]string, error) {
	records, err := b.listPages(ctx)
	if err != nil {
		return nil, err
	}

	keepSet := make(map[string]struct{}, len(keep))
	for _, page := range keep {
		keepSet[page] = struct{}{}
	}

	removed := []string{}
	for _, rec := range records {
		if _, ok := keepSet[rec.Name]; ok {
			continue
		}
		err = os.Remove(filepath.Join(b.outputDir, rec.OutputPath))
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return removed, fmt.Errorf("failed to remove stale page %s: %w", rec.Name, err)
		}
		if _, err = b.stmtDeletePage.ExecContext(ctx, rec.Name); err != nil {
			return removed, fmt.Errorf("failed to forget stale page %s: %w", rec.Name, err)
		}
		b.logger.Info("Removed stale page", "page", rec.Name, "path", rec.OutputPath)
		removed = append(removed, rec.Name)
	}
	return removed, nil
}
