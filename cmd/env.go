package main

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/research-verify/internal/cache"
	"github.com/sells-group/research-verify/internal/config"
	"github.com/sells-group/research-verify/internal/credibility"
	"github.com/sells-group/research-verify/internal/metrics"
	"github.com/sells-group/research-verify/internal/research"
	"github.com/sells-group/research-verify/internal/resilience"
	"github.com/sells-group/research-verify/internal/scrape"
	"github.com/sells-group/research-verify/internal/search"
	"github.com/sells-group/research-verify/internal/store"
	"github.com/sells-group/research-verify/internal/trust"
	anthropicpkg "github.com/sells-group/research-verify/pkg/anthropic"
	"github.com/sells-group/research-verify/pkg/brave"
	"github.com/sells-group/research-verify/pkg/jina"
	"github.com/sells-group/research-verify/pkg/perplexity"
)

// appEnv holds the initialized store, cache, and pipeline used by the
// research, cache, history, and serve commands.
type appEnv struct {
	Store    store.Store
	Cache    *cache.Cache
	Pipeline *research.Pipeline // nil outside research/serve
	Metrics  *metrics.Metrics
	redis    *redis.Client
}

// Close releases resources held by the environment.
func (e *appEnv) Close() {
	if e.redis != nil {
		_ = e.redis.Close()
	}
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// initEnv validates config for mode, opens the store and cache, and for
// research/serve builds the pipeline. Callers should defer env.Close().
func initEnv(ctx context.Context, mode string) (*appEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	st, err := initStore(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	env := &appEnv{Store: st, Metrics: metrics.New()}

	if mode == config.ModeHistory {
		return env, nil
	}

	persister, redisClient, err := initPersister(cfg, st)
	if err != nil {
		env.Close()
		return nil, err
	}
	env.redis = redisClient
	env.Cache = cache.New(persister)
	if err := env.Cache.Load(ctx); err != nil {
		zap.L().Warn("cache load failed, starting empty",
			zap.String("backend", cfg.Cache.Backend),
			zap.Error(err),
		)
	}

	if mode != config.ModeResearch && mode != config.ModeServe {
		return env, nil
	}

	p, err := buildPipeline(cfg, env)
	if err != nil {
		env.Close()
		return nil, err
	}
	env.Pipeline = p
	return env, nil
}

func initStore(ctx context.Context, sc config.StoreConfig) (store.Store, error) {
	switch sc.Driver {
	case "sqlite":
		dsn := sc.DatabaseURL
		if dsn == "" {
			dsn = "research.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, sc.DatabaseURL, &store.PoolConfig{MaxConns: sc.MaxConns})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", sc.Driver)
	}
}

func initPersister(c *config.Config, st store.Store) (cache.Persister, *redis.Client, error) {
	switch c.Cache.Backend {
	case "file":
		return cache.NewFilePersister(c.Cache.Path), nil, nil
	case "store":
		return cache.NewStorePersister(st), nil, nil
	case "redis":
		rc := cache.NewRedisClient(c.Redis.Addr, c.Redis.Password, c.Redis.DB)
		return cache.NewRedisPersister(rc, c.Redis.Key), rc, nil
	default:
		return nil, nil, eris.Errorf("unsupported cache backend: %s", c.Cache.Backend)
	}
}

func buildPipeline(c *config.Config, env *appEnv) (*research.Pipeline, error) {
	tc, err := initTrust(c.Trust)
	if err != nil {
		return nil, err
	}

	matcher := scrape.NewPathMatcher(c.Search.ExcludePaths)

	breakerCfg := resilience.CircuitFromConfig(c.Search.BreakerThreshold, c.Search.BreakerResetSecs)
	breakerCfg.OnStateChange = resilience.StateLogger(c.Search.Provider)
	orchestrator := search.NewOrchestrator(initProvider(c), search.Options{
		Retry:   resilience.RetryFromConfig(c.Search.Retries, c.Search.TimeoutSecs),
		Breaker: resilience.NewCircuitBreaker(breakerCfg),
		Matcher: matcher,
		Metrics: env.Metrics,
	})

	chain := scrape.NewChain(matcher,
		scrape.NewWikipediaScraper(),
		scrape.NewHTMLScraper(scrape.HTMLOptions{
			Timeout:      secs(c.Scrape.TimeoutSecs),
			UserAgent:    c.Scrape.UserAgent,
			MaxBodyBytes: c.Scrape.MaxBodyBytes,
			Mode:         c.Scrape.Mode,
			HostRate:     c.Scrape.HostRate,
			HostBurst:    c.Scrape.HostBurst,
		}),
	)

	scorer := credibility.NewScorer(initRater(c), credibility.Options{
		Timeout:  secs(c.Scoring.TimeoutSecs),
		Attempts: c.Scoring.Retries,
	})

	zap.L().Info("research pipeline ready",
		zap.String("search", c.Search.Provider),
		zap.String("scoring", c.Scoring.Provider),
		zap.String("cache", c.Cache.Backend),
		zap.String("store", c.Store.Driver),
	)

	return research.New(orchestrator, chain, scorer, tc, env.Cache, research.Options{
		MaxConcurrent: c.Research.MaxConcurrent,
		TaskTimeout:   secs(c.Research.TaskTimeoutSecs),
		Deadline:      secs(c.Research.DeadlineSecs),
		History:       env.Store,
		Metrics:       env.Metrics,
	}), nil
}

// initProvider returns nil for provider "none", which makes every search
// resolve to the fallback targets.
func initProvider(c *config.Config) search.Provider {
	switch c.Search.Provider {
	case search.ProviderBrave:
		return search.NewBraveProvider(brave.NewClient(c.Brave.Key, brave.WithBaseURL(c.Brave.BaseURL)))
	case search.ProviderJina:
		var opts []jina.Option
		if c.Jina.SearchBaseURL != "" {
			opts = append(opts, jina.WithSearchBaseURL(c.Jina.SearchBaseURL))
		}
		return search.NewJinaProvider(jina.NewClient(c.Jina.Key, opts...))
	default:
		return nil
	}
}

func initRater(c *config.Config) credibility.Rater {
	switch c.Scoring.Provider {
	case "anthropic":
		var opts []anthropicpkg.Option
		if c.Anthropic.BaseURL != "" {
			opts = append(opts, anthropicpkg.WithBaseURL(c.Anthropic.BaseURL))
		}
		return credibility.NewAnthropicRater(anthropicpkg.NewClient(c.Anthropic.Key, opts...), c.Anthropic.Model)
	case "perplexity":
		return credibility.NewPerplexityRater(perplexity.NewClient(c.Perplexity.Key,
			perplexity.WithBaseURL(c.Perplexity.BaseURL),
			perplexity.WithModel(c.Perplexity.Model),
		))
	default:
		return credibility.NopRater{}
	}
}

func initTrust(tc config.TrustConfig) (*trust.Classifier, error) {
	if tc.TiersFile == "" {
		return trust.Default(), nil
	}
	tiers, err := trust.LoadTiers(tc.TiersFile)
	if err != nil {
		return nil, eris.Wrap(err, "load trust tiers")
	}
	return trust.NewClassifier(tiers), nil
}

func secs(n int) time.Duration {
	if n <= 0 {
		return 0
	}
	return time.Duration(n) * time.Second
}
