package counts

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contentmetrics/contentmetrics/internal/db"
	"github.com/contentmetrics/contentmetrics/internal/schema"
)

type fakeStore struct {
	mu     sync.Mutex
	counts map[string]int64
	fail   map[string]error
	calls  []string
}

func (f *fakeStore) CountEntries(_ context.Context, uid string, filter db.Filter) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, uid)
	if filter != (db.Filter{}) {
		return 0, errors.New("expected empty filter")
	}
	if err := f.fail[uid]; err != nil {
		return 0, err
	}
	return f.counts[uid], nil
}

type failingProvider struct{}

func (failingProvider) ContentTypes(context.Context) ([]schema.ContentType, error) {
	return nil, schema.ErrRegistryUnavailable
}

func (failingProvider) Lookup(string) (schema.ContentType, bool) { return schema.ContentType{}, false }

type recordingObserver struct {
	calls atomic.Int64
}

func (o *recordingObserver) ObserveCount(string, int64, time.Duration, error) { o.calls.Add(1) }

func newRegistry(types ...schema.ContentType) *schema.Registry {
	return schema.NewRegistry(append(schema.SystemTypes(), types...)...)
}

func TestAggregatorCountsUserTypes(t *testing.T) {
	reg := newRegistry(
		schema.ContentType{UID: "api::article.article", DisplayName: "Article"},
		schema.ContentType{UID: "api::page.page", DisplayName: "Page"},
	)
	store := &fakeStore{counts: map[string]int64{
		"api::article.article":           5,
		"api::page.page":                 2,
		"plugin::users-permissions.user": 9,
	}}
	obs := &recordingObserver{}

	result, err := NewAggregator(reg, store, WithObserver(obs)).Count(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, result.Len())

	entries := result.Entries()
	assert.Equal(t, "Article", entries[0].Name)
	assert.Equal(t, "Page", entries[1].Name)
	n, ok := entries[0].Value.Int()
	require.True(t, ok)
	assert.Equal(t, int64(5), n)
	n, _ = entries[1].Value.Int()
	assert.Equal(t, int64(2), n)

	assert.ElementsMatch(t, []string{"api::article.article", "api::page.page"}, store.calls)
	assert.Equal(t, int64(2), obs.calls.Load())
}

func TestAggregatorExcludesSystemTypes(t *testing.T) {
	reg := newRegistry()
	store := &fakeStore{counts: map[string]int64{"admin::user": 3}}

	result, err := NewAggregator(reg, store).Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, result.Len())
	assert.Empty(t, store.calls)

	body, err := json.Marshal(result)
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(body))
}

func TestAggregatorZeroRecords(t *testing.T) {
	reg := newRegistry(schema.ContentType{UID: "api::tag.tag", DisplayName: "Tag"})

	result, err := NewAggregator(reg, &fakeStore{}).Count(context.Background())
	require.NoError(t, err)
	v, ok := result.Get("Tag")
	require.True(t, ok)
	n, _ := v.Int()
	assert.Equal(t, int64(0), n)
}

func TestAggregatorDisplayNameFallback(t *testing.T) {
	reg := newRegistry(schema.ContentType{UID: "api::faq.faq"})
	store := &fakeStore{counts: map[string]int64{"api::faq.faq": 4}}

	result, err := NewAggregator(reg, store).Count(context.Background())
	require.NoError(t, err)
	v, ok := result.Get("api::faq.faq")
	require.True(t, ok)
	assert.Equal(t, "4", v.String())
}

func TestAggregatorNameCollisionLastWins(t *testing.T) {
	reg := newRegistry(
		schema.ContentType{UID: "api::a-post.post", DisplayName: "Post"},
		schema.ContentType{UID: "api::b-post.post", DisplayName: "Post"},
	)
	store := &fakeStore{counts: map[string]int64{
		"api::a-post.post": 1,
		"api::b-post.post": 7,
	}}

	result, err := NewAggregator(reg, store).Count(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, result.Len())
	v, _ := result.Get("Post")
	assert.Equal(t, "7", v.String())
}

func TestAggregatorIdempotent(t *testing.T) {
	reg := newRegistry(
		schema.ContentType{UID: "api::article.article", DisplayName: "Article"},
		schema.ContentType{UID: "api::page.page", DisplayName: "Page"},
	)
	store := &fakeStore{counts: map[string]int64{"api::article.article": 5, "api::page.page": 2}}
	agg := NewAggregator(reg, store, WithConcurrency(1))

	first, err := agg.Count(context.Background())
	require.NoError(t, err)
	second, err := agg.Count(context.Background())
	require.NoError(t, err)

	a, err := json.Marshal(first)
	require.NoError(t, err)
	b, err := json.Marshal(second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
	assert.Equal(t, `{"Article":5,"Page":2}`, string(a))
}

func TestAggregatorRegistryFailure(t *testing.T) {
	result, err := NewAggregator(failingProvider{}, &fakeStore{}).Count(context.Background())
	assert.Nil(t, result)
	assert.ErrorIs(t, err, schema.ErrRegistryUnavailable)
}

func TestAggregatorStoreFailureAbortsWholeRequest(t *testing.T) {
	reg := newRegistry(
		schema.ContentType{UID: "api::article.article", DisplayName: "Article"},
		schema.ContentType{UID: "api::page.page", DisplayName: "Page"},
	)
	boom := errors.New("connection reset")
	store := &fakeStore{
		counts: map[string]int64{"api::article.article": 5},
		fail:   map[string]error{"api::page.page": boom},
	}

	result, err := NewAggregator(reg, store).Count(context.Background())
	assert.Nil(t, result)
	assert.ErrorIs(t, err, boom)
	assert.ErrorContains(t, err, "connection reset")
}

func TestAggregatorDiagnosticHook(t *testing.T) {
	reg := newRegistry(schema.ContentType{UID: "api::article.article", DisplayName: "Article"})
	var seen int
	agg := NewAggregator(reg, &fakeStore{}, WithDiagnostic(func(r *Result) { seen = r.Len() }))

	_, err := agg.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, seen)
}

func TestPlanLeavesValuesDeferred(t *testing.T) {
	reg := newRegistry(schema.ContentType{UID: "api::article.article", DisplayName: "Article"})
	store := &fakeStore{}

	plan, err := NewAggregator(reg, store).Plan(context.Background())
	require.NoError(t, err)
	v, ok := plan.Get("Article")
	require.True(t, ok)
	assert.Equal(t, KindDeferred, v.Kind())
	assert.Empty(t, store.calls)

	_, err = json.Marshal(plan)
	assert.Error(t, err)
}

func TestBreakdownSplitsByStatus(t *testing.T) {
	store, err := db.NewSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	ctx := context.Background()
	published := time.Now().UTC()
	for _, e := range []db.Entry{
		{ContentType: "api::article.article", PublishedAt: &published},
		{ContentType: "api::article.article"},
		{ContentType: "api::article.article", Locale: "fr", PublishedAt: &published},
		{ContentType: "api::page.page"},
	} {
		require.NoError(t, store.InsertEntry(ctx, &e))
	}

	reg := newRegistry(schema.ContentType{UID: "api::article.article", DisplayName: "Article"})
	obs := &recordingObserver{}
	agg := NewAggregator(reg, store, WithObserver(obs))

	b, err := agg.Breakdown(ctx, "api::article.article", "")
	require.NoError(t, err)
	assert.Equal(t, "Article", b.ContentType.Name())
	assert.Equal(t, int64(3), b.Total)
	assert.Equal(t, int64(2), b.Published)
	assert.Equal(t, int64(1), b.Draft)

	b, err = agg.Breakdown(ctx, "api::article.article", "fr")
	require.NoError(t, err)
	assert.Equal(t, Breakdown{ContentType: b.ContentType, Locale: "fr", Total: 1, Published: 1}, b)

	assert.Zero(t, obs.calls.Load())
}

func TestBreakdownUnknownType(t *testing.T) {
	_, err := NewAggregator(newRegistry(), &fakeStore{}).Breakdown(context.Background(), "api::ghost.ghost", "")
	assert.ErrorIs(t, err, ErrUnknownContentType)
}

func TestBreakdownStoreFailure(t *testing.T) {
	reg := newRegistry(schema.ContentType{UID: "api::article.article"})
	boom := errors.New("connection reset")
	store := &fakeStore{fail: map[string]error{"api::article.article": boom}}

	_, err := NewAggregator(reg, store).Breakdown(context.Background(), "api::article.article", "")
	assert.ErrorIs(t, err, boom)
}
