package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/research-verify/internal/metrics"
	"github.com/sells-group/research-verify/internal/model"
	"github.com/sells-group/research-verify/internal/search"
)

type mockResearcher struct{ mock.Mock }

func (m *mockResearcher) Research(ctx context.Context, query string, maxResults int) ([]model.Article, error) {
	args := m.Called(ctx, query, maxResults)
	a, _ := args.Get(0).([]model.Article)
	return a, args.Error(1)
}

func (m *mockResearcher) ClearCache(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

type staticArticles []model.Article

func (s staticArticles) All() []model.Article { return s }

type mockHistory struct{ mock.Mock }

func (m *mockHistory) ListResearch(ctx context.Context, limit int) ([]model.ResearchRecord, error) {
	args := m.Called(ctx, limit)
	r, _ := args.Get(0).([]model.ResearchRecord)
	return r, args.Error(1)
}

func (m *mockHistory) ClearResearch(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

var zimbabwe = model.Article{
	URL:              "https://en.wikipedia.org/wiki/Zimbabwe",
	Title:            "Zimbabwe",
	Content:          "Zimbabwe is a landlocked country.",
	CredibilityScore: 0.92,
	DomainTrust:      0.95,
}

func serveRequest(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestRouter_Health(t *testing.T) {
	h := buildRouter(&mockResearcher{}, staticArticles(nil), &mockHistory{}, nil, 5)

	rr := serveRequest(t, h, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "application/json")
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
}

func TestRouter_Research(t *testing.T) {
	rs := &mockResearcher{}
	rs.On("Research", mock.Anything, "Zimbabwe", 5).Return([]model.Article{zimbabwe}, nil)
	h := buildRouter(rs, staticArticles(nil), &mockHistory{}, nil, 5)

	rr := serveRequest(t, h, http.MethodPost, "/research", map[string]any{"query": "  Zimbabwe "})
	require.Equal(t, http.StatusOK, rr.Code)

	var resp struct {
		Results []map[string]any `json:"results"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Len(t, resp.Results, 1)
	assert.Equal(t, zimbabwe.URL, resp.Results[0]["url"])
	assert.Equal(t, true, resp.Results[0]["is_verified"])
	rs.AssertExpectations(t)
}

func TestRouter_Research_EmptyResultsIsArray(t *testing.T) {
	rs := &mockResearcher{}
	rs.On("Research", mock.Anything, "nothing", 3).Return(nil, nil)
	h := buildRouter(rs, staticArticles(nil), &mockHistory{}, nil, 5)

	rr := serveRequest(t, h, http.MethodPost, "/research", map[string]any{"query": "nothing", "max_results": 3})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"results":[]}`, rr.Body.String())
}

func TestRouter_Research_BadRequests(t *testing.T) {
	h := buildRouter(&mockResearcher{}, staticArticles(nil), &mockHistory{}, nil, 5)

	rr := serveRequest(t, h, http.MethodPost, "/research", map[string]any{"query": "   "})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.JSONEq(t, `{"results":[],"error":"query is required"}`, rr.Body.String())

	req := httptest.NewRequest(http.MethodPost, "/research", bytes.NewBufferString("{nope"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid request body")
}

func TestRouter_Research_Error(t *testing.T) {
	rs := &mockResearcher{}
	rs.On("Research", mock.Anything, "q", 5).Return(nil, search.ErrNoCandidates)
	h := buildRouter(rs, staticArticles(nil), &mockHistory{}, nil, 5)

	rr := serveRequest(t, h, http.MethodPost, "/research", map[string]any{"query": "q"})
	assert.Equal(t, http.StatusInternalServerError, rr.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Contains(t, resp["error"], "no candidate urls")
	assert.Equal(t, []any{}, resp["results"])
}

func TestRouter_Cache(t *testing.T) {
	rs := &mockResearcher{}
	rs.On("ClearCache", mock.Anything).Return(nil).Once()
	h := buildRouter(rs, staticArticles{zimbabwe}, &mockHistory{}, nil, 5)

	rr := serveRequest(t, h, http.MethodGet, "/cache", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var listed struct {
		Count    int             `json:"count"`
		Articles []model.Article `json:"articles"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &listed))
	assert.Equal(t, 1, listed.Count)
	assert.Equal(t, zimbabwe.URL, listed.Articles[0].URL)

	rr = serveRequest(t, h, http.MethodDelete, "/cache", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"cache_cleared"}`, rr.Body.String())
	rs.AssertExpectations(t)
}

func TestRouter_CacheClearError(t *testing.T) {
	rs := &mockResearcher{}
	rs.On("ClearCache", mock.Anything).Return(errors.New("disk full"))
	h := buildRouter(rs, staticArticles(nil), &mockHistory{}, nil, 5)

	rr := serveRequest(t, h, http.MethodDelete, "/cache", nil)
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Contains(t, rr.Body.String(), "disk full")
}

func TestRouter_History(t *testing.T) {
	hist := &mockHistory{}
	hist.On("ListResearch", mock.Anything, 2).Return([]model.ResearchRecord{{ID: "r1", Query: "Zimbabwe", ResultCount: 1}}, nil)
	hist.On("ListResearch", mock.Anything, 0).Return(nil, nil)
	hist.On("ClearResearch", mock.Anything).Return(3, nil)
	h := buildRouter(&mockResearcher{}, staticArticles(nil), hist, nil, 5)

	rr := serveRequest(t, h, http.MethodGet, "/history?limit=2", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var recs []model.ResearchRecord
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &recs))
	require.Len(t, recs, 1)
	assert.Equal(t, "r1", recs[0].ID)

	rr = serveRequest(t, h, http.MethodGet, "/history", nil)
	assert.JSONEq(t, `[]`, rr.Body.String())

	rr = serveRequest(t, h, http.MethodDelete, "/history", nil)
	assert.JSONEq(t, `{"status":"history_cleared","deleted":3}`, rr.Body.String())
	hist.AssertExpectations(t)
}

func TestRouter_Metrics(t *testing.T) {
	m := metrics.New()
	m.SearchFallback()
	h := buildRouter(&mockResearcher{}, staticArticles(nil), &mockHistory{}, m, 5)

	rr := serveRequest(t, h, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "research_search_fallback_total 1")
}

func TestRouter_CORSPreflight(t *testing.T) {
	h := buildRouter(&mockResearcher{}, staticArticles(nil), &mockHistory{}, nil, 5)

	req := httptest.NewRequest(http.MethodOptions, "/research", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
}
