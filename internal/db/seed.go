package db

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
)

// EntryWriter stores entries. Both record stores implement it.
type EntryWriter interface {
	InsertEntry(ctx context.Context, e *Entry) error
}

// prepare fills the generated fields of a new entry.
func (e *Entry) prepare() {
	if e.DocumentID == "" {
		e.DocumentID = uuid.NewString()
	}
	now := time.Now().UTC()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	e.UpdatedAt = now
}

// SeedFile inserts the entries of a JSON array file, for development
// databases. It returns the number of entries written.
func SeedFile(ctx context.Context, w EntryWriter, path string) (int, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("reading seed file: %w", err)
	}
	var entries []Entry
	if err := json.Unmarshal(b, &entries); err != nil {
		return 0, fmt.Errorf("parsing seed file %s: %w", path, err)
	}
	for i := range entries {
		if entries[i].ContentType == "" {
			return i, fmt.Errorf("seed entry %d: content_type is required", i)
		}
		if err := w.InsertEntry(ctx, &entries[i]); err != nil {
			return i, fmt.Errorf("seed entry %d: %w", i, err)
		}
	}
	return len(entries), nil
}
