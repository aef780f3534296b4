package scrape

import (
	"context"

	"github.com/sells-group/research-verify/internal/model"
)

// Source tags reported in Result.Source.
const (
	SourceStructuredAPI = "structured_api"
	SourceHTMLParse     = "html_parse"
	SourceReadability   = "readability"
)

// Result holds an extracted page with the strategy that produced it.
type Result struct {
	Page   model.Page
	Source string
}

// Scraper fetches a single URL and returns its cleaned content.
type Scraper interface {
	Scrape(ctx context.Context, url string) (*Result, error)
	Name() string
	Supports(url string) bool
}
