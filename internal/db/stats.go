package db

import (
	"context"
	"fmt"
)

// CountEntries counts the entries stored for a content type.
func (db *DB) CountEntries(ctx context.Context, uid string, filter Filter) (int64, error) {
	if err := filter.Validate(); err != nil {
		return 0, err
	}
	where, args := filter.where(uid, postgresPlaceholder)
	var n int64
	err := db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM entries WHERE `+where, args...).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting entries for %s: %w", uid, err)
	}
	return n, nil
}

// InsertEntry stores e, assigning a document id when empty.
func (db *DB) InsertEntry(ctx context.Context, e *Entry) error {
	e.prepare()
	var data any
	if len(e.Data) > 0 {
		data = []byte(e.Data)
	}
	err := db.Pool.QueryRow(ctx,
		`INSERT INTO entries (document_id, content_type, locale, data, created_at, updated_at, published_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
		e.DocumentID, e.ContentType, e.Locale, data, e.CreatedAt, e.UpdatedAt, e.PublishedAt,
	).Scan(&e.ID)
	if err != nil {
		return fmt.Errorf("inserting entry: %w", err)
	}
	return nil
}
