package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) }) //nolint:errcheck
	return dir
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "jina", cfg.Search.Provider)
	assert.Equal(t, 15, cfg.Search.TimeoutSecs)
	assert.Equal(t, 3, cfg.Search.Retries)
	assert.Equal(t, []string{"/*.pdf", "/*.zip", "/login*"}, cfg.Search.ExcludePaths)
	assert.Equal(t, "https://s.jina.ai", cfg.Jina.SearchBaseURL)
	assert.Equal(t, 15, cfg.Scrape.TimeoutSecs)
	assert.EqualValues(t, 2<<20, cfg.Scrape.MaxBodyBytes)
	assert.Equal(t, "text", cfg.Scrape.Mode)
	assert.Equal(t, "none", cfg.Scoring.Provider)
	assert.Equal(t, 1, cfg.Scoring.Retries)
	assert.Equal(t, "claude-haiku-4-5-20251001", cfg.Anthropic.Model)
	assert.Equal(t, "sonar", cfg.Perplexity.Model)
	assert.Equal(t, "file", cfg.Cache.Backend)
	assert.Equal(t, "research_cache.json", cfg.Cache.Path)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "research:articles", cfg.Redis.Key)
	assert.Equal(t, 3, cfg.Research.MaxConcurrent)
	assert.Equal(t, 5, cfg.Research.MaxResults)
	assert.Equal(t, 45, cfg.Research.TaskTimeoutSecs)
	assert.Zero(t, cfg.Research.DeadlineSecs)
	assert.Equal(t, 8080, cfg.Server.Port)

	assert.NoError(t, cfg.Validate(ModeResearch))
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
log:
  level: debug
  format: console
scoring:
  provider: anthropic
anthropic:
  key: sk-test
cache:
  backend: redis
redis:
  addr: redis:6379
  db: 2
research:
  deadline_secs: 120
trust:
  tiers_file: tiers.yaml
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, "anthropic", cfg.Scoring.Provider)
	assert.Equal(t, "sk-test", cfg.Anthropic.Key)
	assert.Equal(t, "redis", cfg.Cache.Backend)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
	assert.Equal(t, 2, cfg.Redis.DB)
	assert.Equal(t, 120, cfg.Research.DeadlineSecs)
	assert.Equal(t, "tiers.yaml", cfg.Trust.TiersFile)
	// Defaults still apply for unset values
	assert.Equal(t, 3, cfg.Research.MaxConcurrent)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: sqlite
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	t.Setenv("RESEARCH_STORE_DRIVER", "postgres")
	t.Setenv("RESEARCH_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	chdirTemp(t)
	t.Setenv("RESEARCH_SERVER_PORT", "3000")
	t.Setenv("RESEARCH_SEARCH_PROVIDER", "brave")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, "brave", cfg.Search.Provider)
}

func TestLoadMalformedFile(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("log: [unclosed"), 0o644))

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config: read file")
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}
