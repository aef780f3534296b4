// Package search turns a query into a bounded list of candidate URLs.
package search

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/research-verify/internal/metrics"
	"github.com/sells-group/research-verify/internal/model"
	"github.com/sells-group/research-verify/internal/resilience"
	"github.com/sells-group/research-verify/internal/scrape"
)

// Static fallback targets used when search yields nothing.
const (
	fallbackBase    = "https://en.wikipedia.org/wiki/"
	fallbackGeneral = fallbackBase + "Artificial_intelligence"
)

// ErrNoCandidates is returned when neither search nor the fallback list
// produced a usable URL.
var ErrNoCandidates = eris.New("search: no candidate urls")

var errEmptyResults = eris.New("search: provider returned no results")

// Options configures an Orchestrator. Zero values take defaults.
type Options struct {
	Retry   resilience.RetryConfig
	Breaker *resilience.CircuitBreaker
	Matcher *scrape.PathMatcher
	Metrics *metrics.Metrics
}

// Orchestrator runs a Provider under retry and circuit-breaker policy and
// falls back to static targets.
type Orchestrator struct {
	provider Provider
	retry    resilience.RetryConfig
	breaker  *resilience.CircuitBreaker
	matcher  *scrape.PathMatcher
	metrics  *metrics.Metrics
}

// NewOrchestrator creates an Orchestrator. A nil provider always falls back.
func NewOrchestrator(p Provider, opts Options) *Orchestrator {
	retry := opts.Retry
	if retry.MaxAttempts <= 0 {
		retry = resilience.DefaultRetryConfig()
	}
	retry.ShouldRetry = func(err error) bool {
		return !errors.Is(err, resilience.ErrCircuitOpen)
	}
	if retry.OnRetry == nil && p != nil {
		retry.OnRetry = resilience.RetryLogger(p.Name(), "search")
	}

	breaker := opts.Breaker
	if breaker == nil && p != nil {
		cfg := resilience.DefaultCircuitBreakerConfig()
		cfg.OnStateChange = resilience.StateLogger(p.Name())
		breaker = resilience.NewCircuitBreaker(cfg)
	}

	matcher := opts.Matcher
	if matcher == nil {
		matcher = scrape.NewPathMatcher(nil)
	}

	return &Orchestrator{
		provider: p,
		retry:    retry,
		breaker:  breaker,
		matcher:  matcher,
		metrics:  opts.Metrics,
	}
}

// Search returns up to maxResults candidate URLs for query. Provider
// failures never surface; they resolve to the fallback list.
func (o *Orchestrator) Search(ctx context.Context, query string, maxResults int) ([]string, error) {
	if maxResults <= 0 {
		maxResults = model.DefaultMaxResults
	}

	if o.provider != nil {
		urls, err := o.searchProvider(ctx, query, maxResults)
		if err == nil {
			return urls, nil
		}
		zap.L().Warn("search: using fallback targets",
			zap.String("query", query),
			zap.String("provider", o.provider.Name()),
			zap.Error(err),
		)
	}

	o.metrics.SearchFallback()
	urls := fallbackURLs(query)
	if len(urls) == 0 {
		return nil, ErrNoCandidates
	}
	return urls, nil
}

func (o *Orchestrator) searchProvider(ctx context.Context, query string, maxResults int) ([]string, error) {
	return resilience.DoVal(ctx, o.retry, func(ctx context.Context) ([]string, error) {
		hits, err := resilience.ExecuteVal(ctx, o.breaker, func(ctx context.Context) ([]Hit, error) {
			return o.provider.TextSearch(ctx, query, maxResults)
		})
		o.metrics.SearchResult(o.provider.Name(), err)
		if err != nil {
			return nil, err
		}
		urls := o.candidates(hits, maxResults)
		if len(urls) == 0 {
			return nil, errEmptyResults
		}
		return urls, nil
	})
}

// candidates dedups, validates, filters, and truncates hit URLs.
func (o *Orchestrator) candidates(hits []Hit, maxResults int) []string {
	raw := make([]string, 0, len(hits))
	for _, h := range hits {
		if u := strings.TrimSpace(h.URL); isFetchable(u) {
			raw = append(raw, u)
		}
	}
	urls := dedup(o.matcher.Filter(raw))
	if len(urls) > maxResults {
		urls = urls[:maxResults]
	}
	return urls
}

// fallbackURLs builds the Wikipedia article for the query plus a general
// article. Unusable entries are dropped.
func fallbackURLs(query string) []string {
	var out []string
	if title := strings.ReplaceAll(strings.TrimSpace(query), " ", "_"); title != "" {
		out = append(out, fallbackBase+url.PathEscape(title))
	}
	out = append(out, fallbackGeneral)

	valid := out[:0]
	for _, u := range out {
		if isFetchable(u) {
			valid = append(valid, u)
		}
	}
	return dedup(valid)
}

func isFetchable(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}

func dedup(urls []string) []string {
	seen := make(map[string]struct{}, len(urls))
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	return out
}
