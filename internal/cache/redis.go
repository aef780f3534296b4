package cache

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/research-verify/internal/model"
)

// DefaultRedisKey is the hash that holds cached articles.
const DefaultRedisKey = "research:articles"

// RedisPersister stores the cache in a single Redis hash: field = URL,
// value = article JSON.
type RedisPersister struct {
	client redis.UniversalClient
	key    string
}

// NewRedisPersister creates a RedisPersister on key.
func NewRedisPersister(client redis.UniversalClient, key string) *RedisPersister {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisPersister{client: client, key: key}
}

// Load reads every field of the hash. Undecodable values are skipped.
func (p *RedisPersister) Load(ctx context.Context) ([]model.Article, error) {
	fields, err := p.client.HGetAll(ctx, p.key).Result()
	if err != nil {
		return nil, eris.Wrapf(err, "cache: redis hgetall %s", p.key)
	}

	out := make([]model.Article, 0, len(fields))
	for url, raw := range fields {
		var a model.Article
		if err := json.Unmarshal([]byte(raw), &a); err != nil {
			zap.L().Warn("cache: skipping undecodable redis entry", zap.String("url", url), zap.Error(err))
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].URL < out[j].URL })
	return out, nil
}

// Save replaces the hash contents in one MULTI/EXEC transaction.
func (p *RedisPersister) Save(ctx context.Context, articles []model.Article) error {
	values := make([]any, 0, 2*len(articles))
	for _, a := range articles {
		data, err := json.Marshal(a)
		if err != nil {
			return eris.Wrapf(err, "cache: encode %s", a.URL)
		}
		values = append(values, a.URL, string(data))
	}

	_, err := p.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, p.key)
		if len(values) > 0 {
			pipe.HSet(ctx, p.key, values...)
		}
		return nil
	})
	if err != nil {
		return eris.Wrapf(err, "cache: redis save %s", p.key)
	}
	return nil
}

// NewRedisClient builds a go-redis client from connection settings.
func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}
