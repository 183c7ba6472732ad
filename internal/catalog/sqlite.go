package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/kailas-cloud/bookrec/internal/domain/book"
)

const booksSchema = `
CREATE TABLE IF NOT EXISTS books (
	isbn13      INTEGER PRIMARY KEY,
	title       TEXT NOT NULL DEFAULT '',
	authors     TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	thumbnail   TEXT NOT NULL DEFAULT '',
	category    TEXT NOT NULL DEFAULT '',
	joy         REAL NOT NULL,
	surprise    REAL NOT NULL,
	anger       REAL NOT NULL,
	fear        REAL NOT NULL,
	sadness     REAL NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_books_category ON books(category);
`

// SQLiteCatalog stores the catalog in a SQLite database. It is both a Source
// and the import target of the CLI.
type SQLiteCatalog struct {
	db *sql.DB
}

// OpenSQLite opens or creates the catalog database at path.
// Parent directories are created if they do not exist.
func OpenSQLite(path string) (*SQLiteCatalog, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create catalog directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open catalog database: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if _, err := db.Exec(booksSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return &SQLiteCatalog{db: db}, nil
}

// Close releases the database handle.
func (c *SQLiteCatalog) Close() error {
	return c.db.Close()
}

// Load reads every book ordered by isbn13.
func (c *SQLiteCatalog) Load(ctx context.Context) ([]book.Record, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT isbn13, title, authors, description, thumbnail, category,
		       joy, surprise, anger, fear, sadness
		FROM books ORDER BY isbn13`)
	if err != nil {
		return nil, fmt.Errorf("query books: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []book.Record
	for rows.Next() {
		var r book.Record
		if err := rows.Scan(
			&r.ID, &r.Title, &r.Authors, &r.Description, &r.Thumbnail, &r.Category,
			&r.Emotions.Joy, &r.Emotions.Surprise, &r.Emotions.Anger, &r.Emotions.Fear, &r.Emotions.Sadness,
		); err != nil {
			return nil, fmt.Errorf("scan book: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate books: %w", err)
	}
	return records, nil
}

// Import upserts records in a single transaction and returns how many were written.
func (c *SQLiteCatalog) Import(ctx context.Context, records []book.Record) (int, error) {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin import: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO books (isbn13, title, authors, description, thumbnail, category,
		                   joy, surprise, anger, fear, sadness)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(isbn13) DO UPDATE SET
			title = excluded.title,
			authors = excluded.authors,
			description = excluded.description,
			thumbnail = excluded.thumbnail,
			category = excluded.category,
			joy = excluded.joy,
			surprise = excluded.surprise,
			anger = excluded.anger,
			fear = excluded.fear,
			sadness = excluded.sadness`)
	if err != nil {
		return 0, fmt.Errorf("prepare import: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for i := range records {
		r := &records[i]
		if _, err := stmt.ExecContext(ctx,
			r.ID, r.Title, r.Authors, r.Description, r.Thumbnail, r.Category,
			r.Emotions.Joy, r.Emotions.Surprise, r.Emotions.Anger, r.Emotions.Fear, r.Emotions.Sadness,
		); err != nil {
			return 0, fmt.Errorf("insert isbn13 %d: %w", r.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit import: %w", err)
	}
	return len(records), nil
}
