package config

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
)

// Validation modes, one per command family.
const (
	ModeResearch = "research"
	ModeServe    = "serve"
	ModeCache    = "cache"
	ModeHistory  = "history"
)

// MaxConcurrentCeiling caps research.max_concurrent. Lower values are allowed.
const MaxConcurrentCeiling = 3

// Validate checks the keys a command needs. All problems are reported at
// once.
func (c *Config) Validate(mode string) error {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	switch mode {
	case ModeResearch, ModeServe:
		c.validateSearch(add)
		c.validateScoring(add)
		c.validateCache(add)
		c.validateResearch(add)
		if mode == ModeServe && (c.Server.Port <= 0 || c.Server.Port > 65535) {
			add("server.port must be in 1..65535, got %d", c.Server.Port)
		}
	case ModeCache:
		c.validateCache(add)
	case ModeHistory:
		c.validateStore(add)
	default:
		return eris.Errorf("config: unknown validation mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.Errorf("config: invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

func (c *Config) validateSearch(add func(string, ...any)) {
	switch c.Search.Provider {
	case "jina", "none":
	case "brave":
		if c.Brave.Key == "" {
			add("brave.key is required when search.provider is brave")
		}
	default:
		add("search.provider must be jina, brave, or none, got %q", c.Search.Provider)
	}
}

func (c *Config) validateScoring(add func(string, ...any)) {
	switch c.Scoring.Provider {
	case "none":
	case "anthropic":
		if c.Anthropic.Key == "" {
			add("anthropic.key is required when scoring.provider is anthropic")
		}
	case "perplexity":
		if c.Perplexity.Key == "" {
			add("perplexity.key is required when scoring.provider is perplexity")
		}
	default:
		add("scoring.provider must be anthropic, perplexity, or none, got %q", c.Scoring.Provider)
	}
	if c.Scrape.Mode != "text" && c.Scrape.Mode != "readability" {
		add("scrape.mode must be text or readability, got %q", c.Scrape.Mode)
	}
}

func (c *Config) validateCache(add func(string, ...any)) {
	switch c.Cache.Backend {
	case "file":
		if c.Cache.Path == "" {
			add("cache.path is required when cache.backend is file")
		}
	case "store":
		c.validateStore(add)
	case "redis":
		if c.Redis.Addr == "" {
			add("redis.addr is required when cache.backend is redis")
		}
	default:
		add("cache.backend must be file, store, or redis, got %q", c.Cache.Backend)
	}
}

func (c *Config) validateStore(add func(string, ...any)) {
	switch c.Store.Driver {
	case "sqlite", "postgres":
		if c.Store.DatabaseURL == "" {
			add("store.database_url is required")
		}
	default:
		add("store.driver must be sqlite or postgres, got %q", c.Store.Driver)
	}
}

func (c *Config) validateResearch(add func(string, ...any)) {
	if c.Research.MaxConcurrent < 1 || c.Research.MaxConcurrent > MaxConcurrentCeiling {
		add("research.max_concurrent must be in 1..%d, got %d", MaxConcurrentCeiling, c.Research.MaxConcurrent)
	}
	if c.Research.MaxResults < 1 {
		add("research.max_results must be positive, got %d", c.Research.MaxResults)
	}
	if c.Research.TaskTimeoutSecs < 1 {
		add("research.task_timeout_secs must be positive, got %d", c.Research.TaskTimeoutSecs)
	}
	if c.Research.DeadlineSecs < 0 {
		add("research.deadline_secs must not be negative, got %d", c.Research.DeadlineSecs)
	}
}
