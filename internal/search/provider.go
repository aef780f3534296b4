package search

import (
	"context"
	"errors"
	"strings"

	"github.com/sells-group/research-verify/internal/resilience"
	"github.com/sells-group/research-verify/pkg/brave"
	"github.com/sells-group/research-verify/pkg/jina"
)

// Provider names accepted by config.
const (
	ProviderJina  = "jina"
	ProviderBrave = "brave"
)

// Hit is one search result.
type Hit struct {
	URL     string `json:"url"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

// Provider returns ranked hits for a text query.
type Provider interface {
	TextSearch(ctx context.Context, query string, maxResults int) ([]Hit, error)
	Name() string
}

// JinaProvider searches through the Jina Search API.
type JinaProvider struct {
	client jina.Client
}

// NewJinaProvider wraps a jina.Client.
func NewJinaProvider(c jina.Client) *JinaProvider {
	return &JinaProvider{client: c}
}

func (p *JinaProvider) Name() string { return ProviderJina }

func (p *JinaProvider) TextSearch(ctx context.Context, query string, maxResults int) ([]Hit, error) {
	resp, err := p.client.Search(ctx, query, jina.WithCount(maxResults))
	if err != nil {
		var se *jina.StatusError
		if errors.As(err, &se) {
			return nil, resilience.HTTPStatusError(ProviderJina, se.StatusCode, se.Body)
		}
		return nil, err
	}
	hits := make([]Hit, 0, len(resp.Data))
	for _, r := range resp.Data {
		snippet := r.Description
		if snippet == "" {
			snippet = r.Content
		}
		hits = append(hits, Hit{URL: r.URL, Title: r.Title, Snippet: snippet})
	}
	return hits, nil
}

// BraveProvider searches through the Brave web search API.
type BraveProvider struct {
	client brave.Client
}

// NewBraveProvider wraps a brave.Client.
func NewBraveProvider(c brave.Client) *BraveProvider {
	return &BraveProvider{client: c}
}

func (p *BraveProvider) Name() string { return ProviderBrave }

func (p *BraveProvider) TextSearch(ctx context.Context, query string, maxResults int) ([]Hit, error) {
	resp, err := p.client.WebSearch(ctx, query, maxResults)
	if err != nil {
		var se *brave.StatusError
		if errors.As(err, &se) {
			return nil, resilience.HTTPStatusError(ProviderBrave, se.StatusCode, se.Body)
		}
		return nil, err
	}
	hits := make([]Hit, 0, len(resp.Web.Results))
	for _, r := range resp.Web.Results {
		hits = append(hits, Hit{URL: r.URL, Title: r.Title, Snippet: strings.TrimSpace(r.Description)})
	}
	return hits, nil
}

var (
	_ Provider = (*JinaProvider)(nil)
	_ Provider = (*BraveProvider)(nil)
)
