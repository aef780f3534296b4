package scrape

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/research-verify/internal/model"
)

const (
	wikiMarker       = "wikipedia.org/wiki/"
	wikiUserAgent    = "ResearchVerify/1.0 (https://github.com/sells-group/research-verify)"
	wikiMissingPage  = "-1"
	maxWikiBodyBytes = 8 << 20
)

// WikipediaOption configures a WikipediaScraper.
type WikipediaOption func(*WikipediaScraper)

// WithAPIURL pins the MediaWiki API endpoint instead of deriving it from
// the article host.
func WithAPIURL(u string) WikipediaOption {
	return func(s *WikipediaScraper) { s.apiURL = u }
}

// WithWikipediaHTTPClient sets a custom HTTP client.
func WithWikipediaHTTPClient(c *http.Client) WikipediaOption {
	return func(s *WikipediaScraper) { s.http = c }
}

// WikipediaScraper reads article plain text from the MediaWiki query API
// rather than parsing rendered HTML.
type WikipediaScraper struct {
	http   *http.Client
	apiURL string
}

// NewWikipediaScraper creates a WikipediaScraper.
func NewWikipediaScraper(opts ...WikipediaOption) *WikipediaScraper {
	s := &WikipediaScraper{
		http: &http.Client{Timeout: defaultHTMLTimeout},
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *WikipediaScraper) Name() string { return SourceStructuredAPI }

// Supports reports whether targetURL is a Wikipedia article.
func (s *WikipediaScraper) Supports(targetURL string) bool {
	return isWikipediaArticle(targetURL)
}

type wikiResponse struct {
	Query struct {
		Pages map[string]wikiPage `json:"pages"`
	} `json:"query"`
}

type wikiPage struct {
	Title   string          `json:"title"`
	Extract string          `json:"extract"`
	Missing json.RawMessage `json:"missing,omitempty"`
}

// Scrape fetches the plain-text extract of the article named in targetURL.
func (s *WikipediaScraper) Scrape(ctx context.Context, targetURL string) (*Result, error) {
	title, err := wikiTitle(targetURL)
	if err != nil {
		return nil, err
	}
	endpoint, err := s.endpoint(targetURL)
	if err != nil {
		return nil, err
	}

	params := url.Values{
		"action":      {"query"},
		"format":      {"json"},
		"titles":      {title},
		"prop":        {"extracts"},
		"explaintext": {"1"},
		"redirects":   {"1"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "structured_api: create request")
	}
	req.Header.Set("User-Agent", wikiUserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "structured_api: fetch")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("structured_api: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxWikiBodyBytes))
	if err != nil {
		return nil, eris.Wrap(err, "structured_api: read body")
	}

	var parsed wikiResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, eris.Wrap(err, "structured_api: decode response")
	}
	if len(parsed.Query.Pages) == 0 {
		return nil, eris.Errorf("structured_api: no pages returned for %q", title)
	}

	for id, page := range parsed.Query.Pages {
		if id == wikiMissingPage || len(page.Missing) > 0 {
			return nil, eris.Errorf("structured_api: page not found: %q", title)
		}
		content := cleanLines(strings.Split(page.Extract, "\n"))
		if content == "" {
			return nil, eris.Errorf("structured_api: empty extract for %q", title)
		}
		pageTitle := page.Title
		if pageTitle == "" {
			pageTitle = title
		}
		return &Result{
			Page:   model.NewPage(targetURL, pageTitle, content, resp.StatusCode),
			Source: SourceStructuredAPI,
		}, nil
	}
	return nil, eris.Errorf("structured_api: no pages returned for %q", title)
}

func (s *WikipediaScraper) endpoint(targetURL string) (string, error) {
	if s.apiURL != "" {
		return s.apiURL, nil
	}
	u, err := url.Parse(targetURL)
	if err != nil || u.Host == "" {
		return "", eris.Errorf("structured_api: invalid url %q", targetURL)
	}
	scheme := u.Scheme
	if scheme == "" {
		scheme = "https"
	}
	return scheme + "://" + u.Host + "/w/api.php", nil
}

// wikiTitle extracts the article title from a /wiki/<title> URL.
func wikiTitle(targetURL string) (string, error) {
	idx := indexFold(targetURL, wikiMarker)
	if idx < 0 {
		return "", eris.Errorf("structured_api: not a wikipedia article: %s", targetURL)
	}
	raw := targetURL[idx+len(wikiMarker):]
	if cut := strings.IndexAny(raw, "?#"); cut >= 0 {
		raw = raw[:cut]
	}
	title, err := url.PathUnescape(raw)
	if err != nil {
		return "", eris.Wrapf(err, "structured_api: unescape title %q", raw)
	}
	title = strings.TrimSpace(strings.ReplaceAll(title, "_", " "))
	if title == "" {
		return "", eris.Errorf("structured_api: empty title in %s", targetURL)
	}
	return title, nil
}

func isWikipediaArticle(targetURL string) bool {
	return indexFold(targetURL, wikiMarker) >= 0
}

// indexFold is a case-insensitive strings.Index for an ASCII needle.
func indexFold(s, needle string) int {
	for i := 0; i+len(needle) <= len(s); i++ {
		if strings.EqualFold(s[i:i+len(needle)], needle) {
			return i
		}
	}
	return -1
}

var (
	_ Scraper = (*WikipediaScraper)(nil)
	_ Scraper = (*HTMLScraper)(nil)
)
