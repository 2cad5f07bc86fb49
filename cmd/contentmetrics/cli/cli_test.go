package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contentmetrics/contentmetrics/internal/api"
	"github.com/contentmetrics/contentmetrics/internal/auth"
	"github.com/contentmetrics/contentmetrics/internal/counts"
	"github.com/contentmetrics/contentmetrics/internal/db"
	"github.com/contentmetrics/contentmetrics/internal/metrics"
	"github.com/contentmetrics/contentmetrics/internal/schema"
	"github.com/contentmetrics/contentmetrics/internal/widget"
)

const (
	testEmail    = "admin@example.com"
	testPassword = "hunter22"
)

type testServer struct {
	url   string
	token string
	store *db.SQLiteDB
	auth  *auth.Auth
}

func newTestServer(t *testing.T, types ...schema.ContentType) *testServer {
	t.Helper()

	store, err := db.NewSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	hash, err := auth.HashPassword(testPassword)
	require.NoError(t, err)
	authSvc := auth.New("cli-test-secret", time.Hour, testEmail, hash)
	token, err := authSvc.GenerateJWT(testEmail, "admin")
	require.NoError(t, err)

	reg := schema.NewRegistry(append(schema.SystemTypes(), types...)...)
	widgets := widget.NewRegistry()
	require.NoError(t, widgets.Register(widget.MetricsWidget(defaultPluginID)))
	prom := metrics.NewProm()

	srv := api.NewServer(counts.NewAggregator(reg, store), reg, widgets, authSvc, store, prom,
		api.Options{PluginID: defaultPluginID})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	return &testServer{url: ts.URL, token: token, store: store, auth: authSvc}
}

func (s *testServer) client(token string) *APIClient {
	c := NewClientWithURL(s.url)
	c.Token = token
	return c
}

func (s *testServer) seed(t *testing.T, uid string, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		require.NoError(t, s.store.InsertEntry(context.Background(), &db.Entry{ContentType: uid}))
	}
}

func articleAndPage() []schema.ContentType {
	return []schema.ContentType{
		{UID: "api::page.page", DisplayName: "Page"},
		{UID: "api::article.article", DisplayName: "Article"},
	}
}

func TestFetchCountsKeepsServerOrder(t *testing.T) {
	s := newTestServer(t, articleAndPage()...)
	s.seed(t, "api::article.article", 5)
	s.seed(t, "api::page.page", 2)

	result, err := s.client(s.token).FetchCounts(context.Background())
	require.NoError(t, err)

	entries := result.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "Article", entries[0].Name)
	assert.Equal(t, "5", entries[0].Value.String())
	assert.Equal(t, "Page", entries[1].Name)
	assert.Equal(t, "2", entries[1].Value.String())
}

func TestAPIErrorCarriesServerMessage(t *testing.T) {
	s := newTestServer(t)

	_, err := s.client("bogus").FetchCounts(context.Background())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 401, apiErr.StatusCode)
	assert.Equal(t, "invalid token", apiErr.Message)
}

func TestLoginReturnsToken(t *testing.T) {
	s := newTestServer(t)
	c := s.client("")

	token, err := c.Login(context.Background(), testEmail, testPassword)
	require.NoError(t, err)
	claims, err := s.auth.ValidateJWT(token)
	require.NoError(t, err)
	assert.Equal(t, testEmail, claims.Email)

	_, err = c.Login(context.Background(), testEmail, "wrong")
	assert.Error(t, err)
}

func TestRenderMetricsTable(t *testing.T) {
	s := newTestServer(t, articleAndPage()...)
	s.seed(t, "api::article.article", 5)
	s.seed(t, "api::page.page", 2)

	var out bytes.Buffer
	require.NoError(t, renderMetrics(context.Background(), s.client(s.token), &out, defaultPluginID, "table"))
	assert.Equal(t, "Content Metrics\nArticle  5\nPage     2\n", out.String())
}

func TestRenderMetricsEmpty(t *testing.T) {
	s := newTestServer(t)

	var out bytes.Buffer
	require.NoError(t, renderMetrics(context.Background(), s.client(s.token), &out, defaultPluginID, "table"))
	assert.Equal(t, "Content Metrics\n"+widget.EmptyText+"\n", out.String())
}

func TestRenderMetricsErrorShowsGenericIndicator(t *testing.T) {
	s := newTestServer(t)

	var out bytes.Buffer
	err := renderMetrics(context.Background(), s.client("bogus"), &out, defaultPluginID, "table")
	assert.ErrorContains(t, err, "invalid token")
	assert.Contains(t, out.String(), widget.ErrorText)
	assert.NotContains(t, out.String(), "invalid token")
}

func TestRenderMetricsJSON(t *testing.T) {
	s := newTestServer(t, articleAndPage()...)
	s.seed(t, "api::page.page", 1)

	var out bytes.Buffer
	require.NoError(t, renderMetrics(context.Background(), s.client(s.token), &out, defaultPluginID, "json"))

	var rows []widget.Row
	require.NoError(t, json.Unmarshal(out.Bytes(), &rows))
	assert.Equal(t, []widget.Row{{Name: "Article", Value: "0"}, {Name: "Page", Value: "1"}}, rows)
}

func TestRenderMetricsRejectsUnknownFormat(t *testing.T) {
	err := renderMetrics(context.Background(), nil, &bytes.Buffer{}, defaultPluginID, "yaml")
	assert.ErrorContains(t, err, "unknown output format")
}

func TestListContentTypes(t *testing.T) {
	s := newTestServer(t, articleAndPage()...)

	items, err := s.client(s.token).ListContentTypes(context.Background())
	require.NoError(t, err)
	require.Len(t, items, len(schema.SystemTypes())+2)

	var user []string
	for _, it := range items {
		if it.UserDefined {
			user = append(user, it.UID)
		}
	}
	assert.Equal(t, []string{"api::article.article", "api::page.page"}, user)
}

func TestTokenRoundTrip(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	_, err := LoadToken()
	assert.ErrorContains(t, err, "not logged in")

	require.NoError(t, SaveToken(TokenData{Token: "abc", Server: "http://localhost:1337", Email: testEmail}))

	info, err := os.Stat(filepath.Join(home, configDir, tokenFile))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	data, err := LoadToken()
	require.NoError(t, err)
	assert.Equal(t, "abc", data.Token)

	c, err := NewClient("", "")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:1337", c.BaseURL)
	assert.Equal(t, "abc", c.Token)

	c, err = NewClient("http://other:1337/", "override")
	require.NoError(t, err)
	assert.Equal(t, "http://other:1337", c.BaseURL)
	assert.Equal(t, "override", c.Token)
}

func TestDoctor(t *testing.T) {
	s := newTestServer(t)

	var out bytes.Buffer
	require.NoError(t, runDoctor(context.Background(), s.client(s.token), &out, time.Now()))
	assert.Contains(t, out.String(), "/metrics-widget/count")
	assert.NotContains(t, out.String(), "FAIL")

	out.Reset()
	err := runDoctor(context.Background(), s.client("bogus"), &out, time.Now())
	assert.Error(t, err)
	assert.Contains(t, out.String(), "token rejected")
}

func TestCheckTokenExpiry(t *testing.T) {
	s := newTestServer(t)
	now := time.Now()

	c := checkTokenExpiry(s.token, now)
	assert.True(t, c.ok)
	assert.True(t, c.warn)

	c = checkTokenExpiry(s.token, now.Add(2*time.Hour))
	assert.False(t, c.ok)
	assert.Contains(t, c.detail, "expired")

	c = checkTokenExpiry("not-a-jwt", now)
	assert.True(t, c.warn)
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "45s", formatDuration(45*time.Second))
	assert.Equal(t, "5m", formatDuration(5*time.Minute))
	assert.Equal(t, "2h30m", formatDuration(150*time.Minute))
	assert.Equal(t, "1d3h", formatDuration(27*time.Hour))
}

func TestRenderMetricsNonObjectBodyIsEmpty(t *testing.T) {
	for _, body := range []string{`"hello"`, `5`, `[]`} {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/"+defaultPluginID+"/count", r.URL.Path)
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(body))
		}))

		var out bytes.Buffer
		require.NoError(t, renderMetrics(context.Background(), NewClientWithURL(ts.URL), &out, defaultPluginID, "table"), body)
		assert.Equal(t, "Content Metrics\n"+widget.EmptyText+"\n", out.String(), body)
		ts.Close()
	}
}

func TestRenderMetricsUsesGivenPlugin(t *testing.T) {
	s := newTestServer(t)
	c := s.client(s.token)
	c.PluginID = "other-plugin"

	var out bytes.Buffer
	err := renderMetrics(context.Background(), c, &out, c.PluginID, "table")
	assert.ErrorContains(t, err, "404")
	assert.Equal(t, "Content Metrics\n"+widget.ErrorText+"\n", out.String())
}

func TestShowContentType(t *testing.T) {
	s := newTestServer(t, articleAndPage()...)
	published := time.Now().UTC()
	require.NoError(t, s.store.InsertEntry(context.Background(),
		&db.Entry{ContentType: "api::article.article", Locale: "fr", PublishedAt: &published}))
	s.seed(t, "api::article.article", 1)

	var out bytes.Buffer
	require.NoError(t, showContentType(context.Background(), s.client(s.token), &out, "api::article.article", ""))
	assert.Equal(t, "UID        api::article.article\nName       Article\nTotal      2\nPublished  1\nDraft      1\n", out.String())

	detail, err := s.client(s.token).GetContentType(context.Background(), "api::article.article", "fr")
	require.NoError(t, err)
	assert.Equal(t, int64(1), detail.Counts.Total)
	assert.Equal(t, "fr", detail.Counts.Locale)

	err = showContentType(context.Background(), s.client(s.token), &out, "api::ghost.ghost", "")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
}
