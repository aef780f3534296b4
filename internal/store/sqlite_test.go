package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/research-verify/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func testArticle(url string, score float64) model.Article {
	return model.Article{
		URL:              url,
		Title:            "Title",
		Content:          "alpha beta",
		WordCount:        2,
		DomainTrust:      0.95,
		CredibilityScore: score,
		Verification:     model.Verification{Score: 0.9, Method: model.MethodAIVerified, Reason: "AI analysis"},
		Source:           "structured_api",
		ScrapedAt:        time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC),
	}
}

func TestSQLite_MigrateIdempotent(t *testing.T) {
	st := newTestSQLiteStore(t)
	require.NoError(t, st.Migrate(context.Background()))
}

func TestSQLite_Articles_SaveAndLoad(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	in := []model.Article{
		testArticle("https://b.example", 0.7),
		testArticle("https://a.example", 0.92),
	}
	require.NoError(t, st.SaveArticles(ctx, in))

	got, err := st.LoadArticles(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "https://a.example", got[0].URL)
	assert.Equal(t, in[1], got[0])
}

func TestSQLite_Articles_SaveReplaces(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, st.SaveArticles(ctx, []model.Article{testArticle("https://a.example", 0.9)}))
	require.NoError(t, st.SaveArticles(ctx, []model.Article{testArticle("https://b.example", 0.9)}))

	got, err := st.LoadArticles(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "https://b.example", got[0].URL)

	require.NoError(t, st.SaveArticles(ctx, nil))
	got, err = st.LoadArticles(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSQLite_Research_RecordAndList(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	first, err := st.RecordResearch(ctx, "zimbabwe", []model.Article{testArticle("https://a.example", 0.92)})
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)
	assert.Equal(t, 1, first.ResultCount)

	time.Sleep(5 * time.Millisecond)
	_, err = st.RecordResearch(ctx, "empty run", nil)
	require.NoError(t, err)

	recs, err := st.ListResearch(ctx, 0)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "empty run", recs[0].Query)
	assert.Equal(t, 0, recs[0].ResultCount)
	assert.Equal(t, "zimbabwe", recs[1].Query)
	require.Len(t, recs[1].Sources, 1)
	assert.Equal(t, "https://a.example", recs[1].Sources[0].URL)
	assert.InDelta(t, 0.92, recs[1].Sources[0].CredibilityScore, 1e-9)

	limited, err := st.ListResearch(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestSQLite_Research_Clear(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	for _, q := range []string{"a", "b", "c"} {
		_, err := st.RecordResearch(ctx, q, nil)
		require.NoError(t, err)
	}

	n, err := st.ClearResearch(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	recs, err := st.ListResearch(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, recs)
}
