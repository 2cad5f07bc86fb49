package counts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/contentmetrics/contentmetrics/internal/db"
	"github.com/contentmetrics/contentmetrics/internal/schema"
)

// ErrUnknownContentType is returned by Breakdown for a UID the registry does
// not hold.
var ErrUnknownContentType = errors.New("unknown content type")

// RecordStore counts stored records for a content type.
type RecordStore interface {
	CountEntries(ctx context.Context, uid string, filter db.Filter) (int64, error)
}

// Observer is notified of every count query.
type Observer interface {
	ObserveCount(uid string, n int64, elapsed time.Duration, err error)
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithConcurrency bounds the number of count queries in flight per request.
func WithConcurrency(n int) Option {
	return func(a *Aggregator) { a.concurrency = n }
}

// WithObserver reports count queries to o.
func WithObserver(o Observer) Option {
	return func(a *Aggregator) { a.observer = o }
}

// WithDiagnostic calls fn with every completed Result. Intended for debug
// logging only.
func WithDiagnostic(fn func(*Result)) Option {
	return func(a *Aggregator) { a.diagnostic = fn }
}

// Aggregator computes the name→count mapping for user-defined content types.
// Nothing is retained between calls.
type Aggregator struct {
	schemas     schema.Provider
	store       RecordStore
	concurrency int
	observer    Observer
	diagnostic  func(*Result)
}

// NewAggregator creates an Aggregator over the given registry and store.
func NewAggregator(schemas schema.Provider, store RecordStore, opts ...Option) *Aggregator {
	a := &Aggregator{
		schemas:     schemas,
		store:       store,
		concurrency: 4,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Plan enumerates the user-defined content types and returns a Result whose
// values are deferred count queries. Each type is keyed by its display name;
// when two types share a name the later UID wins.
func (a *Aggregator) Plan(ctx context.Context) (*Result, error) {
	types, err := a.schemas.ContentTypes(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing content types: %w", err)
	}

	result := NewResult()
	for _, ct := range types {
		if !schema.IsUserDefined(ct.UID) {
			continue
		}
		result.Set(ct.Name(), Deferred(a.counter(ct.UID)))
	}
	return result, nil
}

// Count runs the full aggregation. Any failure aborts the whole request and
// no partial Result is returned.
func (a *Aggregator) Count(ctx context.Context) (*Result, error) {
	result, err := a.Plan(ctx)
	if err != nil {
		return nil, err
	}
	if err := result.Collapse(ctx, a.concurrency); err != nil {
		return nil, fmt.Errorf("counting records: %w", err)
	}
	if a.diagnostic != nil {
		a.diagnostic(result)
	}
	return result, nil
}

func (a *Aggregator) counter(uid string) Producer {
	return func(ctx context.Context) (any, error) {
		start := time.Now()
		n, err := a.store.CountEntries(ctx, uid, db.Filter{})
		if a.observer != nil {
			a.observer.ObserveCount(uid, n, time.Since(start), err)
		}
		if err != nil {
			return nil, fmt.Errorf("counting %s: %w", uid, err)
		}
		return n, nil
	}
}

// Breakdown is the record count of one content type split by publication
// status.
type Breakdown struct {
	ContentType schema.ContentType `json:"-"`
	Locale      string             `json:"locale,omitempty"`
	Total       int64              `json:"total"`
	Published   int64              `json:"published"`
	Draft       int64              `json:"draft"`
}

// Breakdown counts the records of a single registered content type, optionally
// restricted to one locale. It does not report to the observer.
func (a *Aggregator) Breakdown(ctx context.Context, uid, locale string) (Breakdown, error) {
	ct, ok := a.schemas.Lookup(uid)
	if !ok {
		return Breakdown{}, fmt.Errorf("%w: %s", ErrUnknownContentType, uid)
	}

	out := Breakdown{ContentType: ct, Locale: locale}
	for _, q := range []struct {
		status string
		dst    *int64
	}{
		{"", &out.Total},
		{db.StatusPublished, &out.Published},
		{db.StatusDraft, &out.Draft},
	} {
		n, err := a.store.CountEntries(ctx, uid, db.Filter{Status: q.status, Locale: locale})
		if err != nil {
			return Breakdown{}, fmt.Errorf("counting %s: %w", uid, err)
		}
		*q.dst = n
	}
	return out, nil
}
