// Package store persists research history and the verified article set.
package store

import (
	"context"

	"github.com/sells-group/research-verify/internal/model"
)

// DefaultHistoryLimit is used by ListResearch when limit is not positive.
const DefaultHistoryLimit = 10

// Store defines the persistence interface for research runs and articles.
type Store interface {
	// History
	RecordResearch(ctx context.Context, query string, articles []model.Article) (*model.ResearchRecord, error)
	ListResearch(ctx context.Context, limit int) ([]model.ResearchRecord, error)
	ClearResearch(ctx context.Context) (int, error)

	// Articles. SaveArticles replaces the whole set.
	LoadArticles(ctx context.Context) ([]model.Article, error)
	SaveArticles(ctx context.Context, articles []model.Article) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

func historyLimit(limit int) int {
	if limit <= 0 {
		return DefaultHistoryLimit
	}
	return limit
}
