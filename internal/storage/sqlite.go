// Package storage persists papers in SQLite and exchanges them as JSONL.
package storage

import (
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/matsen/arxivterm/internal/logging"
	"github.com/matsen/arxivterm/internal/paper"
	"modernc.org/sqlite"
)

// Errors returned by store operations.
var (
	ErrNotFound         = errors.New("paper not found")
	ErrStoreUnavailable = errors.New("paper store unavailable")
	ErrEmptyEntryID     = errors.New("paper has empty entry_id")
)

// TimeLayout is the fixed-width UTC layout used for stored timestamps.
// Fixed width keeps lexical order equal to chronological order.
const TimeLayout = "2006-01-02T15:04:05.000000Z"

// selectPaperFields contains the standard field list for SELECT queries.
const selectPaperFields = `entry_id, updated, published, title, summary, authors, categories, viewed`

// SQLite's own lower() and LIKE only fold ASCII letters.
func init() {
	sqlite.MustRegisterDeterministicScalarFunction("unicode_lower", 1,
		func(ctx *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
			if s, ok := args[0].(string); ok {
				return strings.ToLower(s), nil
			}
			return args[0], nil
		})
}

// DB wraps a SQLite database connection.
type DB struct {
	db   *sql.DB
	path string
	log  *logging.Logger
}

// UpsertStats reports what UpsertMany did.
type UpsertStats struct {
	Inserted int `json:"inserted"`
	Updated  int `json:"updated"`
}

// OpenDB opens or creates a SQLite database at the given path.
func OpenDB(path string, log *logging.Logger) (*DB, error) {
	if log == nil {
		log = logging.Nop()
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: opening database: %v", ErrStoreUnavailable, err)
	}

	db.SetMaxOpenConns(1) // SQLite doesn't support concurrent writes

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: creating schema: %v", ErrStoreUnavailable, err)
	}

	log.Debug("Opened paper store", "path", path)
	return &DB{db: db, path: path, log: log}, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.db.Close()
}

// Path returns the database file path.
func (d *DB) Path() string {
	return d.path
}

// createSchema creates the database schema if it doesn't exist.
func createSchema(db *sql.DB) error {
	schema := `
		CREATE TABLE IF NOT EXISTS papers (
			entry_id TEXT PRIMARY KEY,
			updated TIMESTAMP,
			published TIMESTAMP,
			title TEXT,
			summary TEXT,
			authors TEXT,
			categories TEXT,
			viewed BOOLEAN DEFAULT 0
		);

		CREATE INDEX IF NOT EXISTS idx_papers_published ON papers(published);
	`

	_, err := db.Exec(schema)
	return err
}

// UpsertMany inserts new papers and overwrites existing ones keyed by entry_id.
// Existing IDs are fetched in a single query before the loop, and all writes
// happen in one transaction. The viewed flag of existing papers is preserved.
func (d *DB) UpsertMany(papers []paper.Paper) (UpsertStats, error) {
	return d.upsert(papers, false)
}

// ImportPapers upserts papers from an export and restores their viewed flags.
// Unlike ingestion, a viewed paper in the import marks the stored paper viewed.
// The whole import is one transaction.
func (d *DB) ImportPapers(papers []paper.Paper) (UpsertStats, error) {
	return d.upsert(papers, true)
}

// upsert writes papers in one transaction. With restoreViewed, papers marked
// viewed in the input are stored as viewed; the flag is never cleared.
func (d *DB) upsert(papers []paper.Paper, restoreViewed bool) (UpsertStats, error) {
	var stats UpsertStats

	for i, p := range papers {
		if p.EntryID == "" {
			return stats, fmt.Errorf("%w (record %d)", ErrEmptyEntryID, i)
		}
	}

	existing, err := d.existingIDs()
	if err != nil {
		return stats, err
	}

	tx, err := d.db.Begin()
	if err != nil {
		return stats, fmt.Errorf("%w: beginning transaction: %v", ErrStoreUnavailable, err)
	}
	defer tx.Rollback()

	updateStmt, err := tx.Prepare(`
		UPDATE papers SET
			updated = ?,
			published = ?,
			title = ?,
			summary = ?,
			authors = ?,
			categories = ?
		WHERE entry_id = ?
	`)
	if err != nil {
		return stats, fmt.Errorf("preparing update: %w", err)
	}
	defer updateStmt.Close()

	insertStmt, err := tx.Prepare(`
		INSERT INTO papers (` + selectPaperFields + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return stats, fmt.Errorf("preparing insert: %w", err)
	}
	defer insertStmt.Close()

	viewedStmt, err := tx.Prepare("UPDATE papers SET viewed = 1 WHERE entry_id = ?")
	if err != nil {
		return stats, fmt.Errorf("preparing viewed update: %w", err)
	}
	defer viewedStmt.Close()

	for _, p := range papers {
		updated := formatTime(p.Updated)
		published := formatTime(p.Published)
		authors := paper.JoinList(p.Authors)
		categories := paper.JoinList(p.Categories)
		viewed := restoreViewed && p.Viewed

		if existing[p.EntryID] {
			if _, err := updateStmt.Exec(updated, published, p.Title, p.Summary, authors, categories, p.EntryID); err != nil {
				return stats, fmt.Errorf("updating %s: %w", p.EntryID, err)
			}
			if viewed {
				if _, err := viewedStmt.Exec(p.EntryID); err != nil {
					return stats, fmt.Errorf("marking %s viewed: %w", p.EntryID, err)
				}
			}
			stats.Updated++
			continue
		}

		if _, err := insertStmt.Exec(p.EntryID, updated, published, p.Title, p.Summary, authors, categories, viewed); err != nil {
			return stats, fmt.Errorf("inserting %s: %w", p.EntryID, err)
		}
		// A batch may repeat an ID; later copies become updates.
		existing[p.EntryID] = true
		stats.Inserted++
	}

	if err := tx.Commit(); err != nil {
		return UpsertStats{}, fmt.Errorf("%w: committing: %v", ErrStoreUnavailable, err)
	}

	d.log.Info("Saved papers", "inserted", stats.Inserted, "updated", stats.Updated)
	return stats, nil
}

// existingIDs returns the set of all stored entry IDs.
func (d *DB) existingIDs() (map[string]bool, error) {
	rows, err := d.db.Query("SELECT entry_id FROM papers")
	if err != nil {
		return nil, fmt.Errorf("%w: listing ids: %v", ErrStoreUnavailable, err)
	}
	defer rows.Close()

	ids := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids[id] = true
	}
	return ids, rows.Err()
}

// PublishedAfter returns papers with published >= threshold, oldest first.
func (d *DB) PublishedAfter(threshold time.Time) ([]paper.Paper, error) {
	rows, err := d.db.Query(`
		SELECT `+selectPaperFields+`
		FROM papers
		WHERE published >= ?
		ORDER BY published ASC
	`, formatTime(threshold))
	if err != nil {
		return nil, fmt.Errorf("%w: querying papers: %v", ErrStoreUnavailable, err)
	}
	defer rows.Close()

	return scanPapers(rows)
}

// ListAll returns every stored paper, oldest first.
func (d *DB) ListAll() ([]paper.Paper, error) {
	rows, err := d.db.Query(`SELECT ` + selectPaperFields + ` FROM papers ORDER BY published ASC`)
	if err != nil {
		return nil, fmt.Errorf("%w: listing papers: %v", ErrStoreUnavailable, err)
	}
	defer rows.Close()

	return scanPapers(rows)
}

// SearchText returns papers whose title or summary contains query as a
// case-insensitive substring, oldest first. Case folding follows Unicode
// lower-casing, so "über" matches "Über". LIKE wildcards in query are
// matched literally.
func (d *DB) SearchText(query string) ([]paper.Paper, error) {
	pattern := "%" + escapeLike(strings.ToLower(query)) + "%"

	rows, err := d.db.Query(`
		SELECT `+selectPaperFields+`
		FROM papers
		WHERE unicode_lower(title) LIKE ? ESCAPE '\' OR unicode_lower(summary) LIKE ? ESCAPE '\'
		ORDER BY published ASC
	`, pattern, pattern)
	if err != nil {
		return nil, fmt.Errorf("%w: searching papers: %v", ErrStoreUnavailable, err)
	}
	defer rows.Close()

	return scanPapers(rows)
}

// escapeLike escapes LIKE metacharacters using backslash as the escape character.
func escapeLike(s string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(s)
}

// DeleteAll removes every paper.
func (d *DB) DeleteAll() error {
	if _, err := d.db.Exec("DELETE FROM papers"); err != nil {
		return fmt.Errorf("%w: deleting papers: %v", ErrStoreUnavailable, err)
	}
	d.log.Info("Deleted all papers from the database")
	return nil
}

// StatsByDate returns the number of papers per published calendar date (UTC), ascending.
func (d *DB) StatsByDate() ([]paper.DateCount, error) {
	rows, err := d.db.Query(`
		SELECT substr(published, 1, 10) AS date, COUNT(*) AS count
		FROM papers
		GROUP BY date
		ORDER BY date ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("%w: querying stats: %v", ErrStoreUnavailable, err)
	}
	defer rows.Close()

	var stats []paper.DateCount
	for rows.Next() {
		var s paper.DateCount
		if err := rows.Scan(&s.Date, &s.Count); err != nil {
			return nil, err
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

// MarkViewed sets viewed=true for the given paper.
// Returns ErrNotFound if no paper has that entry ID.
func (d *DB) MarkViewed(entryID string) error {
	res, err := d.db.Exec("UPDATE papers SET viewed = 1 WHERE entry_id = ?", entryID)
	if err != nil {
		return fmt.Errorf("%w: marking viewed: %v", ErrStoreUnavailable, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, entryID)
	}
	return nil
}

// Get retrieves a paper by entry ID. Returns ErrNotFound if absent.
func (d *DB) Get(entryID string) (*paper.Paper, error) {
	row := d.db.QueryRow(`SELECT `+selectPaperFields+` FROM papers WHERE entry_id = ?`, entryID)
	p, err := scanPaper(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, entryID)
		}
		return nil, err
	}
	return p, nil
}

// Count returns the total number of papers.
func (d *DB) Count() (int, error) {
	var count int
	if err := d.db.QueryRow("SELECT COUNT(*) FROM papers").Scan(&count); err != nil {
		return 0, fmt.Errorf("%w: counting papers: %v", ErrStoreUnavailable, err)
	}
	return count, nil
}

// scanner interface for sql.Row and sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanPaper(s scanner) (*paper.Paper, error) {
	var p paper.Paper
	var updated, published, title, summary, authors, categories sql.NullString
	var viewed sql.NullBool

	if err := s.Scan(&p.EntryID, &updated, &published, &title, &summary, &authors, &categories, &viewed); err != nil {
		return nil, err
	}

	var err error
	if p.Updated, err = parseTime(updated.String); err != nil {
		return nil, fmt.Errorf("parsing updated for %s: %w", p.EntryID, err)
	}
	if p.Published, err = parseTime(published.String); err != nil {
		return nil, fmt.Errorf("parsing published for %s: %w", p.EntryID, err)
	}

	p.Title = title.String
	p.Summary = summary.String
	p.Authors = paper.SplitList(authors.String)
	p.Categories = paper.SplitList(categories.String)
	p.Viewed = viewed.Valid && viewed.Bool

	return &p, nil
}

func scanPapers(rows *sql.Rows) ([]paper.Paper, error) {
	var papers []paper.Paper
	for rows.Next() {
		p, err := scanPaper(rows)
		if err != nil {
			return nil, err
		}
		papers = append(papers, *p)
	}
	return papers, rows.Err()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}
