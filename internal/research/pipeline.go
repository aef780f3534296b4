// Package research runs the search, extract, verify, and cache pipeline
// for a single query.
package research

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/sells-group/research-verify/internal/cache"
	"github.com/sells-group/research-verify/internal/metrics"
	"github.com/sells-group/research-verify/internal/model"
	"github.com/sells-group/research-verify/internal/scrape"
)

const (
	DefaultMaxConcurrent = 3
	DefaultTaskTimeout   = 45 * time.Second
)

// Searcher produces candidate URLs for a query.
type Searcher interface {
	Search(ctx context.Context, query string, maxResults int) ([]string, error)
}

// Extractor fetches and cleans a single URL.
type Extractor interface {
	Scrape(ctx context.Context, url string) (*scrape.Result, error)
}

// CredibilityScorer rates page content. It never fails; degraded paths
// are reported through the verification method.
type CredibilityScorer interface {
	Score(ctx context.Context, text, title string) model.Verification
}

// TrustScorer maps a URL to its domain trust weight and tier name.
type TrustScorer interface {
	Trust(url string) float64
	Tier(url string) string
}

// ArticleCache holds verified articles keyed by URL.
type ArticleCache interface {
	Get(url string) (model.Article, bool)
	Put(ctx context.Context, a model.Article) error
	Clear(ctx context.Context) error
}

// HistoryRecorder persists a summary of each run.
type HistoryRecorder interface {
	RecordResearch(ctx context.Context, query string, articles []model.Article) (*model.ResearchRecord, error)
}

// Options tunes a Pipeline. Zero values take defaults.
type Options struct {
	MaxConcurrent int
	TaskTimeout   time.Duration
	// Deadline bounds a whole Research call. Zero means none.
	Deadline time.Duration
	History  HistoryRecorder
	Metrics  *metrics.Metrics
}

// Pipeline wires the collaborators of a research run.
type Pipeline struct {
	search  Searcher
	extract Extractor
	scorer  CredibilityScorer
	trust   TrustScorer
	cache   ArticleCache
	opts    Options
	now     func() time.Time

	flight singleflight.Group
	mu     sync.Mutex
	calls  map[string]*flightCall
}

// flightCall is the context shared by every waiter on one URL. It is
// cancelled only once the last waiter has gone.
type flightCall struct {
	ctx     context.Context
	cancel  context.CancelFunc
	waiters int
}

// New creates a Pipeline.
func New(s Searcher, e Extractor, sc CredibilityScorer, t TrustScorer, c ArticleCache, opts Options) *Pipeline {
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = DefaultMaxConcurrent
	}
	if opts.TaskTimeout <= 0 {
		opts.TaskTimeout = DefaultTaskTimeout
	}
	return &Pipeline{
		search:  s,
		extract: e,
		scorer:  sc,
		trust:   t,
		cache:   c,
		opts:    opts,
		now:     time.Now,
		calls:   make(map[string]*flightCall),
	}
}

var errNotVerified = eris.New("research: article below credibility threshold")

// Research returns the verified articles for query in completion order.
// Cached articles are returned without network I/O. An empty result is
// not an error; only a failure to produce any candidate URL is.
func (p *Pipeline) Research(ctx context.Context, query string, maxResults int) ([]model.Article, error) {
	start := time.Now()
	req := model.SearchRequest{Query: query, MaxResults: maxResults}.Normalize()
	log := zap.L().With(zap.String("query", req.Query))

	urls, err := p.search.Search(ctx, req.Query, req.MaxResults)
	if err != nil {
		return nil, eris.Wrap(err, "research: search")
	}

	runCtx := ctx
	if p.opts.Deadline > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, p.opts.Deadline)
		defer cancel()
	}

	var (
		mu  sync.Mutex
		out = make([]model.Article, 0, len(urls))
	)
	emit := func(a model.Article) {
		mu.Lock()
		out = append(out, a)
		mu.Unlock()
	}

	var g errgroup.Group
	g.SetLimit(p.opts.MaxConcurrent)

	seen := make(map[string]struct{}, len(urls))
	for _, u := range urls {
		if _, dup := seen[u]; dup {
			continue
		}
		seen[u] = struct{}{}

		if cached, ok := p.cache.Get(u); ok {
			p.opts.Metrics.ScrapeOutcome(metrics.OutcomeCached)
			emit(cached)
			continue
		}

		g.Go(func() error {
			if runCtx.Err() != nil {
				return nil
			}
			if a, err := p.fetch(runCtx, u); err == nil {
				emit(a)
			}
			return nil
		})
	}
	_ = g.Wait()

	log.Info("research: scrape audit",
		zap.Strings("urls", urls),
		zap.Int("verified", len(out)),
		zap.Bool("success", len(out) > 0),
		zap.Duration("elapsed", time.Since(start)),
	)
	p.opts.Metrics.ResearchRun(time.Since(start))
	p.record(ctx, req.Query, out)

	return out, nil
}

// ClearCache drops every cached article.
func (p *Pipeline) ClearCache(ctx context.Context) error {
	return eris.Wrap(p.cache.Clear(ctx), "research: clear cache")
}

// fetch collapses concurrent work on the same URL into one call. A
// caller that gives up only stops waiting; the shared work keeps running
// for the others.
func (p *Pipeline) fetch(ctx context.Context, url string) (model.Article, error) {
	call := p.join(ctx, url)
	defer p.leave(url, call)

	ch := p.flight.DoChan(url, func() (any, error) {
		return p.process(call.ctx, url)
	})
	select {
	case r := <-ch:
		if r.Err != nil {
			return model.Article{}, r.Err
		}
		return r.Val.(model.Article), nil
	case <-ctx.Done():
		return model.Article{}, eris.Wrap(ctx.Err(), "research: wait for "+url)
	}
}

func (p *Pipeline) join(ctx context.Context, url string) *flightCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	call, ok := p.calls[url]
	if !ok {
		callCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		call = &flightCall{ctx: callCtx, cancel: cancel}
		p.calls[url] = call
	}
	call.waiters++
	return call
}

func (p *Pipeline) leave(url string, call *flightCall) {
	p.mu.Lock()
	defer p.mu.Unlock()
	call.waiters--
	if call.waiters > 0 {
		return
	}
	call.cancel()
	if p.calls[url] == call {
		delete(p.calls, url)
	}
	// A later caller must start fresh instead of joining cancelled work.
	p.flight.Forget(url)
}

func (p *Pipeline) process(ctx context.Context, url string) (model.Article, error) {
	if cached, ok := p.cache.Get(url); ok {
		p.opts.Metrics.ScrapeOutcome(metrics.OutcomeCached)
		return cached, nil
	}

	log := zap.L().With(zap.String("url", url))
	start := time.Now()

	taskCtx, cancel := context.WithTimeout(ctx, p.opts.TaskTimeout)
	defer cancel()

	res, err := p.extract.Scrape(taskCtx, url)
	if err == nil && (res == nil || res.Page.Content == "") {
		err = eris.New("empty content")
	}
	if err != nil {
		log.Warn("research: extraction failed", zap.Error(err))
		p.opts.Metrics.ScrapeOutcome(metrics.OutcomeFailed)
		return model.Article{}, eris.Wrap(err, "research: extract")
	}

	domainTrust := p.trust.Trust(url)
	v := p.scorer.Score(taskCtx, res.Page.Content, res.Page.Title)
	p.opts.Metrics.Rating(string(v.Method))

	a := model.NewArticle(res.Page, res.Source, domainTrust, v, p.now())
	p.opts.Metrics.ScrapeDuration(res.Source, time.Since(start))

	if !a.IsVerified() {
		log.Info("research: dropping unverified article",
			zap.Float64("credibility", a.CredibilityScore),
			zap.Float64("domain_trust", domainTrust),
			zap.String("trust_tier", p.trust.Tier(url)),
			zap.String("method", string(v.Method)),
		)
		p.opts.Metrics.ScrapeOutcome(metrics.OutcomeUnverified)
		return model.Article{}, errNotVerified
	}

	if err := p.cache.Put(context.WithoutCancel(ctx), a); err != nil {
		var pe *cache.PersistError
		if errors.As(err, &pe) {
			log.Error("research: cache persist failed", zap.Error(err))
			p.opts.Metrics.PersistError()
		} else {
			log.Warn("research: cache put failed", zap.Error(err))
		}
	}

	p.opts.Metrics.ScrapeOutcome(metrics.OutcomeVerified)
	log.Debug("research: verified article",
		zap.String("source", a.Source),
		zap.Float64("credibility", a.CredibilityScore),
	)
	return a, nil
}

func (p *Pipeline) record(ctx context.Context, query string, articles []model.Article) {
	if p.opts.History == nil {
		return
	}
	if _, err := p.opts.History.RecordResearch(context.WithoutCancel(ctx), query, articles); err != nil {
		zap.L().Warn("research: failed to record history", zap.String("query", query), zap.Error(err))
	}
}
