package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medrag-mcp-server/internal/caching"
	"github.com/medrag-mcp-server/internal/config"
	"github.com/medrag-mcp-server/internal/domain"
	"github.com/medrag-mcp-server/internal/history"
	"github.com/medrag-mcp-server/internal/knowledge"
	"github.com/medrag-mcp-server/internal/service"
)

type testServer struct {
	*Server
	store history.Store
}

func newTestServer(t *testing.T, withHistory bool, rateLimit domain.RateLimitConfig) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel)

	catalog, err := knowledge.Open("", logger)
	require.NoError(t, err)

	cacheCfg := domain.CacheConfig{Enabled: true, MaxItems: 100, TTL: time.Minute}
	cache := caching.New(cacheCfg, logger)
	t.Cleanup(func() { cache.Close() })

	var store history.Store
	if withHistory {
		sqlite, err := history.NewSQLiteStore(filepath.Join(t.TempDir(), "history.db"))
		require.NoError(t, err)
		t.Cleanup(func() { sqlite.Close() })
		store = sqlite
	}

	cfg := &domain.Config{
		Server:    domain.ServerConfig{Port: 8080, RequestTimeout: 5 * time.Second},
		Cache:     cacheCfg,
		History:   domain.HistoryConfig{SummaryLength: 80},
		RateLimit: rateLimit,
		Logging:   domain.LoggingConfig{Level: "fatal", Format: "json"},
	}

	srv := NewServer(config.NewStatic(cfg), Dependencies{
		Resolver: service.NewResolver(catalog, logger, service.WithCache(cache)),
		Cache:    cache,
		History:  store,
		Logger:   logger,
	})
	return &testServer{Server: srv, store: store}
}

func (ts *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	ts.Handler().ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

type resolveBody struct {
	Subject    string                 `json:"subject"`
	Stage      domain.Stage           `json:"stage"`
	Category   domain.Category        `json:"category"`
	Confidence domain.ConfidenceLevel `json:"confidence"`
	Sections   []domain.Section       `json:"sections"`
	Citations  []domain.Citation      `json:"citations"`
	Google     string                 `json:"google_search"`
	PubMed     string                 `json:"pubmed_search"`
	Query      string                 `json:"query"`
	HistoryID  string                 `json:"history_id"`
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, false, domain.RateLimitConfig{})

	w := ts.do(t, http.MethodGet, "/health", nil)

	require.Equal(t, http.StatusOK, w.Code)
	body := decode[map[string]any](t, w)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, Version, body["version"])
	checks := body["checks"].(map[string]any)
	assert.Equal(t, "embedded", checks["knowledge"].(map[string]any)["source"])
	assert.Equal(t, false, checks["history"].(map[string]any)["enabled"])
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.NotEmpty(t, w.Header().Get("X-Correlation-ID"))
}

func TestResolve_Stages(t *testing.T) {
	ts := newTestServer(t, true, domain.RateLimitConfig{})

	tests := []struct {
		query   string
		stage   domain.Stage
		subject string
	}{
		{"Type 2 Diabetes first-line treatment", domain.StageDirect, "Type 2 Diabetes"},
		{"HTN management", domain.StageAlias, "Hypertension"},
		{"metformin and insulin resistance", domain.StageFuzzy, "Type 2 Diabetes"},
		{"Kawasaki disease treatment protocol", domain.StageFallback, "Kawasaki disease"},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			w := ts.do(t, http.MethodPost, "/api/v1/resolve", ResolveRequest{Query: tt.query, UserID: "dr-who"})
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())

			body := decode[resolveBody](t, w)
			assert.Equal(t, tt.stage, body.Stage)
			assert.Equal(t, tt.subject, body.Subject)
			assert.Equal(t, tt.query, body.Query)
			assert.NotEmpty(t, body.Sections)
			assert.NotEmpty(t, body.Citations)
			assert.True(t, strings.HasPrefix(body.Google, "https://www.google.com/search?q="))
			assert.True(t, strings.HasPrefix(body.PubMed, "https://pubmed.ncbi.nlm.nih.gov/?term="))
			assert.NotEmpty(t, body.HistoryID)
		})
	}
}

func TestResolve_EmptyQuery(t *testing.T) {
	ts := newTestServer(t, true, domain.RateLimitConfig{})

	bodies := map[string]any{
		"punctuation only": ResolveRequest{Query: "?!  ..."},
		"empty string":     ResolveRequest{Query: ""},
		"whitespace":       ResolveRequest{Query: " \t "},
		"missing field":    map[string]string{"user_id": "dr-grey"},
	}
	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			w := ts.do(t, http.MethodPost, "/api/v1/resolve", body)

			require.Equal(t, http.StatusBadRequest, w.Code)
			apiErr := decode[domain.APIError](t, w)
			assert.Equal(t, domain.ErrCodeEmptyQuery, apiErr.Code)
			assert.Equal(t, w.Header().Get("X-Correlation-ID"), apiErr.RequestID)
		})
	}

	count, err := ts.store.Count(t.Context())
	require.NoError(t, err)
	assert.Zero(t, count, "rejected queries are not recorded")
}

func TestResolve_InvalidBody(t *testing.T) {
	ts := newTestServer(t, false, domain.RateLimitConfig{})

	for _, body := range []any{[]string{"asthma"}, map[string]int{"query": 5}} {
		w := ts.do(t, http.MethodPost, "/api/v1/resolve", body)

		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, domain.ErrCodeInvalidInput, decode[domain.APIError](t, w).Code)
	}
}

func TestClassify(t *testing.T) {
	ts := newTestServer(t, false, domain.RateLimitConfig{})

	w := ts.do(t, http.MethodGet, "/api/v1/classify?q=necrotising+fasciitis+in+children", nil)
	require.Equal(t, http.StatusOK, w.Code)

	got := decode[service.Classification](t, w)
	assert.Equal(t, domain.CategoryInfectiousSevere, got.Category)
	assert.True(t, got.Acute)
	assert.Contains(t, got.Modifiers, domain.ModifierPaediatric)

	w = ts.do(t, http.MethodGet, "/api/v1/classify", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestConditions(t *testing.T) {
	ts := newTestServer(t, false, domain.RateLimitConfig{})

	w := ts.do(t, http.MethodGet, "/api/v1/conditions", nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[struct {
		Conditions []string `json:"conditions"`
		Count      int      `json:"count"`
	}](t, w)
	assert.Equal(t, len(list.Conditions), list.Count)
	assert.Contains(t, list.Conditions, "Hypertension")

	w = ts.do(t, http.MethodGet, "/api/v1/conditions/hypertension", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Hypertension", decode[domain.KnowledgeEntry](t, w).Name)

	w = ts.do(t, http.MethodGet, "/api/v1/conditions/kawasaki", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHistoryEndpoints(t *testing.T) {
	ts := newTestServer(t, true, domain.RateLimitConfig{})

	first := decode[resolveBody](t, ts.do(t, http.MethodPost, "/api/v1/resolve", ResolveRequest{Query: "asthma", UserID: "alice"}))
	ts.do(t, http.MethodPost, "/api/v1/resolve", ResolveRequest{Query: "HTN", UserID: "bob"})
	ts.do(t, http.MethodPost, "/api/v1/resolve", ResolveRequest{Query: "Kawasaki disease", UserID: "alice"})

	w := ts.do(t, http.MethodGet, "/api/v1/history?user_id=alice", nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[struct {
		Records []history.Record `json:"records"`
		Count   int              `json:"count"`
	}](t, w)
	assert.Equal(t, 2, list.Count)

	w = ts.do(t, http.MethodGet, "/api/v1/history/"+first.HistoryID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	record := decode[history.Record](t, w)
	assert.Equal(t, "asthma", record.Query)
	assert.Equal(t, "alice", record.UserID)
	assert.LessOrEqual(t, len([]rune(record.Summary)), 80)

	w = ts.do(t, http.MethodGet, "/api/v1/history/does-not-exist", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = ts.do(t, http.MethodGet, "/api/v1/history/export", nil)
	require.Equal(t, http.StatusOK, w.Code)
	export := decode[history.Export](t, w)
	assert.Equal(t, 3, export.Count)

	w = ts.do(t, http.MethodGet, "/api/v1/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	stats := decode[StatsResponse](t, w)
	assert.Equal(t, int64(3), stats.Queries)
	assert.Equal(t, int64(1), stats.ByStage[domain.StageFallback])
	assert.Positive(t, stats.Conditions)
	require.NotNil(t, stats.Cache)
}

func TestHistoryDisabled(t *testing.T) {
	ts := newTestServer(t, false, domain.RateLimitConfig{})

	w := ts.do(t, http.MethodGet, "/api/v1/history", nil)
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, domain.ErrCodeUnavailable, decode[domain.APIError](t, w).Code)

	w = ts.do(t, http.MethodPost, "/api/v1/resolve", ResolveRequest{Query: "asthma"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[resolveBody](t, w).HistoryID)
}

func TestRepeatedResolveHitsCache(t *testing.T) {
	ts := newTestServer(t, false, domain.RateLimitConfig{})

	a := decode[resolveBody](t, ts.do(t, http.MethodPost, "/api/v1/resolve", ResolveRequest{Query: "HTN management"}))
	b := decode[resolveBody](t, ts.do(t, http.MethodPost, "/api/v1/resolve", ResolveRequest{Query: "  htn   MANAGEMENT "}))
	assert.Equal(t, a.Subject, b.Subject)
	assert.Equal(t, a.Sections, b.Sections)

	stats := decode[StatsResponse](t, ts.do(t, http.MethodGet, "/api/v1/stats", nil))
	require.NotNil(t, stats.Cache)
	assert.Equal(t, int64(1), stats.Cache.Hits)
}

func TestRateLimit(t *testing.T) {
	ts := newTestServer(t, false, domain.RateLimitConfig{Enabled: true, RequestsPerSecond: 0.001, Burst: 1})

	assert.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/api/v1/conditions", nil).Code)
	w := ts.do(t, http.MethodGet, "/api/v1/conditions", nil)
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, domain.ErrCodeRateLimit, decode[domain.APIError](t, w).Code)

	// Health checks are never limited.
	assert.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/health", nil).Code)
}
