package cache

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/research-verify/internal/model"
)

func TestRedisPersister_Save(t *testing.T) {
	db, mock := redismock.NewClientMock()
	p := NewRedisPersister(db, "")

	a := verifiedArticle("https://a.example", 0.9)
	data, err := json.Marshal(a)
	require.NoError(t, err)

	mock.ExpectTxPipeline()
	mock.ExpectDel(DefaultRedisKey).SetVal(1)
	mock.ExpectHSet(DefaultRedisKey, a.URL, string(data)).SetVal(1)
	mock.ExpectTxPipelineExec()

	require.NoError(t, p.Save(context.Background(), []model.Article{a}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisPersister_SaveEmptyOnlyDeletes(t *testing.T) {
	db, mock := redismock.NewClientMock()
	p := NewRedisPersister(db, "k")

	mock.ExpectTxPipeline()
	mock.ExpectDel("k").SetVal(1)
	mock.ExpectTxPipelineExec()

	require.NoError(t, p.Save(context.Background(), nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisPersister_Load(t *testing.T) {
	db, mock := redismock.NewClientMock()
	p := NewRedisPersister(db, "k")

	a := verifiedArticle("https://a.example", 0.9)
	data, err := json.Marshal(a)
	require.NoError(t, err)

	mock.ExpectHGetAll("k").SetVal(map[string]string{
		a.URL:               string(data),
		"https://broken.io": "{oops",
	})

	got, err := p.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []model.Article{a}, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisPersister_LoadError(t *testing.T) {
	db, mock := redismock.NewClientMock()
	p := NewRedisPersister(db, "k")

	mock.ExpectHGetAll("k").SetErr(errors.New("connection refused"))

	_, err := p.Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis hgetall")
}
