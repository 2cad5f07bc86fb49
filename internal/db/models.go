package db

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Entry statuses accepted by Filter.
const (
	StatusDraft     = "draft"
	StatusPublished = "published"
)

// Entry is one stored record of a content type.
type Entry struct {
	ID          int64           `json:"id"`
	DocumentID  string          `json:"document_id"`
	ContentType string          `json:"content_type"`
	Locale      string          `json:"locale,omitempty"`
	Data        json.RawMessage `json:"data,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	PublishedAt *time.Time      `json:"published_at,omitempty"`
}

// Filter narrows a count query. The zero Filter matches every entry of the
// content type.
type Filter struct {
	Status string // "", StatusDraft or StatusPublished
	Locale string
}

// Validate rejects unknown statuses.
func (f Filter) Validate() error {
	switch f.Status {
	case "", StatusDraft, StatusPublished:
		return nil
	default:
		return fmt.Errorf("unknown status filter %q", f.Status)
	}
}

func postgresPlaceholder(i int) string { return fmt.Sprintf("$%d", i) }

func sqlitePlaceholder(int) string { return "?" }

// where builds the WHERE clause for uid and the filter.
func (f Filter) where(uid string, placeholder func(int) string) (string, []any) {
	clauses := []string{"content_type = " + placeholder(1)}
	args := []any{uid}

	switch f.Status {
	case StatusPublished:
		clauses = append(clauses, "published_at IS NOT NULL")
	case StatusDraft:
		clauses = append(clauses, "published_at IS NULL")
	}
	if f.Locale != "" {
		args = append(args, f.Locale)
		clauses = append(clauses, "locale = "+placeholder(len(args)))
	}
	return strings.Join(clauses, " AND "), args
}
