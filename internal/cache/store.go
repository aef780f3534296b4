package cache

import (
	"context"

	"github.com/sells-group/research-verify/internal/model"
)

// ArticleStore is the slice of a relational store the cache needs.
type ArticleStore interface {
	LoadArticles(ctx context.Context) ([]model.Article, error)
	SaveArticles(ctx context.Context, articles []model.Article) error
}

// StorePersister adapts an ArticleStore to Persister.
type StorePersister struct {
	store ArticleStore
}

// NewStorePersister creates a StorePersister.
func NewStorePersister(s ArticleStore) *StorePersister {
	return &StorePersister{store: s}
}

func (p *StorePersister) Load(ctx context.Context) ([]model.Article, error) {
	return p.store.LoadArticles(ctx)
}

func (p *StorePersister) Save(ctx context.Context, articles []model.Article) error {
	return p.store.SaveArticles(ctx, articles)
}

var (
	_ Persister = (*FilePersister)(nil)
	_ Persister = (*RedisPersister)(nil)
	_ Persister = (*StorePersister)(nil)
	_ Persister = MemoryPersister{}
)
