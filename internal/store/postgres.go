package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/research-verify/internal/model"
)

// Pool is the subset of *pgxpool.Pool used by PostgresStore. pgxmock
// pools satisfy it in tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

var articleColumns = []string{"url", "data", "credibility_score", "scraped_at"}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(4)
	minConns := int32(1)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS articles (
	url               TEXT PRIMARY KEY,
	data              JSONB NOT NULL,
	credibility_score DOUBLE PRECISION NOT NULL,
	scraped_at        TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS research_history (
	id           TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	query        TEXT NOT NULL,
	result_count INTEGER NOT NULL,
	sources      JSONB NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_research_history_created_at ON research_history(created_at DESC);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) RecordResearch(ctx context.Context, query string, articles []model.Article) (*model.ResearchRecord, error) {
	rec := model.NewResearchRecord(uuid.New().String(), query, articles, time.Now())

	sourcesJSON, err := json.Marshal(rec.Sources)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal sources")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO research_history (id, query, result_count, sources, created_at) VALUES ($1, $2, $3, $4, $5)`,
		rec.ID, rec.Query, rec.ResultCount, sourcesJSON, rec.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert research")
	}
	return &rec, nil
}

func (s *PostgresStore) ListResearch(ctx context.Context, limit int) ([]model.ResearchRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, query, result_count, sources, created_at FROM research_history
		 ORDER BY created_at DESC LIMIT $1`,
		historyLimit(limit),
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list research")
	}
	defer rows.Close()

	var out []model.ResearchRecord
	for rows.Next() {
		var rec model.ResearchRecord
		var sourcesJSON []byte
		if err := rows.Scan(&rec.ID, &rec.Query, &rec.ResultCount, &sourcesJSON, &rec.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan research")
		}
		if err := json.Unmarshal(sourcesJSON, &rec.Sources); err != nil {
			return nil, eris.Wrapf(err, "postgres: unmarshal sources for %s", rec.ID)
		}
		out = append(out, rec)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list research iterate")
}

func (s *PostgresStore) ClearResearch(ctx context.Context) (int, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM research_history`)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: clear research")
	}
	return int(tag.RowsAffected()), nil
}

func (s *PostgresStore) LoadArticles(ctx context.Context) ([]model.Article, error) {
	rows, err := s.pool.Query(ctx, `SELECT data FROM articles ORDER BY url`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: load articles")
	}
	defer rows.Close()

	var out []model.Article
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, eris.Wrap(err, "postgres: scan article")
		}
		var a model.Article
		if err := json.Unmarshal(data, &a); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal article")
		}
		out = append(out, a)
	}
	return out, eris.Wrap(rows.Err(), "postgres: load articles iterate")
}

// SaveArticles replaces the articles table in one transaction, bulk
// loading rows with COPY.
func (s *PostgresStore) SaveArticles(ctx context.Context, articles []model.Article) error {
	rows := make([][]any, 0, len(articles))
	for _, a := range articles {
		data, err := json.Marshal(a)
		if err != nil {
			return eris.Wrapf(err, "postgres: marshal article %s", a.URL)
		}
		rows = append(rows, []any{a.URL, data, a.CredibilityScore, a.ScrapedAt})
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `DELETE FROM articles`); err != nil {
		return eris.Wrap(err, "postgres: delete articles")
	}
	if len(rows) > 0 {
		if _, err := tx.CopyFrom(ctx, pgx.Identifier{"articles"}, articleColumns, pgx.CopyFromRows(rows)); err != nil {
			return eris.Wrap(err, "postgres: COPY INTO articles")
		}
	}
	return eris.Wrap(tx.Commit(ctx), "postgres: commit articles")
}

var _ Store = (*PostgresStore)(nil)
