package db

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite" // SQLite driver
)

// SQLiteDB is a record store backed by an embedded SQLite database.
type SQLiteDB struct {
	db *sql.DB
}

// NewSQLite opens the database at path, which may be ":memory:", and creates
// the schema if needed.
func NewSQLite(path string) (*SQLiteDB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// An in-memory database exists per connection.
	if path == ":memory:" {
		conn.SetMaxOpenConns(1)
	}

	s := &SQLiteDB{db: conn}
	if err := s.initSchema(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

func (s *SQLiteDB) initSchema() error {
	_, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS entries (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		document_id TEXT NOT NULL,
		content_type TEXT NOT NULL,
		locale TEXT NOT NULL DEFAULT '',
		data TEXT,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		published_at DATETIME
	);

	CREATE INDEX IF NOT EXISTS idx_entries_content_type ON entries(content_type);
	`)
	return err
}

// Close closes the database.
func (s *SQLiteDB) Close() error {
	return s.db.Close()
}

// Ping checks the database connection.
func (s *SQLiteDB) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// InsertEntry stores e, assigning a document id when empty.
func (s *SQLiteDB) InsertEntry(ctx context.Context, e *Entry) error {
	e.prepare()

	var data any
	if len(e.Data) > 0 {
		data = string(e.Data)
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO entries (document_id, content_type, locale, data, created_at, updated_at, published_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.DocumentID, e.ContentType, e.Locale, data, e.CreatedAt, e.UpdatedAt, e.PublishedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting entry: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading entry id: %w", err)
	}
	e.ID = id
	return nil
}

// CountEntries counts the entries stored for a content type.
func (s *SQLiteDB) CountEntries(ctx context.Context, uid string, filter Filter) (int64, error) {
	if err := filter.Validate(); err != nil {
		return 0, err
	}
	where, args := filter.where(uid, sqlitePlaceholder)
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM entries WHERE `+where, args...).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting entries for %s: %w", uid, err)
	}
	return n, nil
}
