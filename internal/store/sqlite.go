package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/research-verify/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS articles (
	url               TEXT PRIMARY KEY,
	data              TEXT NOT NULL,
	credibility_score REAL NOT NULL,
	scraped_at        DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS research_history (
	id           TEXT PRIMARY KEY,
	query        TEXT NOT NULL,
	result_count INTEGER NOT NULL,
	sources      TEXT NOT NULL,
	created_at   DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_research_history_created_at ON research_history(created_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) RecordResearch(ctx context.Context, query string, articles []model.Article) (*model.ResearchRecord, error) {
	rec := model.NewResearchRecord(uuid.New().String(), query, articles, time.Now())

	sourcesJSON, err := json.Marshal(rec.Sources)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal sources")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO research_history (id, query, result_count, sources, created_at) VALUES (?, ?, ?, ?, ?)`,
		rec.ID, rec.Query, rec.ResultCount, string(sourcesJSON), rec.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert research")
	}
	return &rec, nil
}

func (s *SQLiteStore) ListResearch(ctx context.Context, limit int) ([]model.ResearchRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, query, result_count, sources, created_at FROM research_history
		 ORDER BY created_at DESC LIMIT ?`,
		historyLimit(limit),
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list research")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.ResearchRecord
	for rows.Next() {
		var rec model.ResearchRecord
		var sourcesJSON string
		if err := rows.Scan(&rec.ID, &rec.Query, &rec.ResultCount, &sourcesJSON, &rec.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan research")
		}
		if err := json.Unmarshal([]byte(sourcesJSON), &rec.Sources); err != nil {
			return nil, eris.Wrapf(err, "sqlite: unmarshal sources for %s", rec.ID)
		}
		out = append(out, rec)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list research iterate")
}

func (s *SQLiteStore) ClearResearch(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM research_history`)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: clear research")
	}
	n, err := res.RowsAffected()
	return int(n), eris.Wrap(err, "sqlite: rows affected")
}

func (s *SQLiteStore) LoadArticles(ctx context.Context) ([]model.Article, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT data FROM articles ORDER BY url`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: load articles")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.Article
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan article")
		}
		var a model.Article
		if err := json.Unmarshal([]byte(data), &a); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal article")
		}
		out = append(out, a)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: load articles iterate")
}

func (s *SQLiteStore) SaveArticles(ctx context.Context, articles []model.Article) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin")
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM articles`); err != nil {
		return eris.Wrap(err, "sqlite: delete articles")
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO articles (url, data, credibility_score, scraped_at) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare insert article")
	}
	defer stmt.Close() //nolint:errcheck

	for _, a := range articles {
		data, err := json.Marshal(a)
		if err != nil {
			return eris.Wrapf(err, "sqlite: marshal article %s", a.URL)
		}
		if _, err := stmt.ExecContext(ctx, a.URL, string(data), a.CredibilityScore, a.ScrapedAt); err != nil {
			return eris.Wrapf(err, "sqlite: insert article %s", a.URL)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit articles")
}

var _ Store = (*SQLiteStore)(nil)
