package scrape

import (
	"bytes"
	"context"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
	"github.com/rotisserie/eris"
	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/unicode/norm"
	"golang.org/x/time/rate"

	"github.com/sells-group/research-verify/internal/model"
)

// Extraction modes for HTMLScraper.
const (
	ModeText        = "text"
	ModeReadability = "readability"
)

const (
	defaultHTMLTimeout  = 15 * time.Second
	defaultMaxBodyBytes = 2 << 20
	defaultUserAgent    = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// Elements dropped before text extraction.
const boilerplateSelector = "script, style, nav, footer, header, noscript"

// HTMLOptions configures an HTMLScraper. Zero values take defaults.
type HTMLOptions struct {
	Timeout      time.Duration
	UserAgent    string
	MaxBodyBytes int64
	Mode         string
	// HostRate is requests per second per host. Zero disables limiting.
	HostRate  float64
	HostBurst int
}

// HTMLScraper fetches pages over plain HTTP and reduces them to visible text.
type HTMLScraper struct {
	client    *http.Client
	opts      HTMLOptions
	limiter   *HostLimiter
	wikiMatch func(string) bool
}

// NewHTMLScraper creates an HTMLScraper.
func NewHTMLScraper(opts HTMLOptions) *HTMLScraper {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultHTMLTimeout
	}
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = defaultMaxBodyBytes
	}
	if opts.Mode == "" {
		opts.Mode = ModeText
	}
	limit := rate.Inf
	if opts.HostRate > 0 {
		limit = rate.Limit(opts.HostRate)
	}
	return &HTMLScraper{
		client: &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: 10 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
		opts:      opts,
		limiter:   NewHostLimiter(limit, opts.HostBurst),
		wikiMatch: isWikipediaArticle,
	}
}

// Name returns the source tag for results produced in the configured mode.
func (s *HTMLScraper) Name() string {
	if s.opts.Mode == ModeReadability {
		return SourceReadability
	}
	return SourceHTMLParse
}

// Supports accepts everything except Wikipedia article URLs, which are
// served by the structured API only.
func (s *HTMLScraper) Supports(targetURL string) bool {
	return !s.wikiMatch(targetURL)
}

// Scrape fetches a URL, detects blocks, and extracts the visible text.
func (s *HTMLScraper) Scrape(ctx context.Context, targetURL string) (*Result, error) {
	if err := s.limiter.Wait(ctx, targetURL); err != nil {
		return nil, eris.Wrap(err, "html_parse: rate limit wait")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "html_parse: create request")
	}
	setBrowserHeaders(req, s.opts.UserAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "html_parse: fetch")
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, s.opts.MaxBodyBytes))
	if err != nil {
		return nil, eris.Wrap(err, "html_parse: read body")
	}

	if block := DetectBlock(resp, body); block.Blocked() {
		return nil, eris.Errorf("html_parse: blocked (%s)", block)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("html_parse: status %d", resp.StatusCode)
	}

	decoded, err := io.ReadAll(utf8Reader(body, resp.Header.Get("Content-Type")))
	if err != nil {
		return nil, eris.Wrap(err, "html_parse: decode charset")
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(decoded))
	if err != nil {
		return nil, eris.Wrap(err, "html_parse: parse html")
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())
	source := SourceHTMLParse
	var content string

	if s.opts.Mode == ModeReadability {
		if text, rTitle := readableText(decoded, targetURL); text != "" {
			content = text
			source = SourceReadability
			if title == "" {
				title = rTitle
			}
		}
	}

	if content == "" {
		doc.Find(boilerplateSelector).Remove()
		root := doc.Find("body")
		if root.Length() == 0 {
			root = doc.Selection
		}
		content = visibleText(root)
	}

	if content == "" {
		return nil, eris.New("html_parse: empty content")
	}

	return &Result{
		Page:   model.NewPage(targetURL, title, content, resp.StatusCode),
		Source: source,
	}, nil
}

func setBrowserHeaders(req *http.Request, userAgent string) {
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")
	req.Header.Set("DNT", "1")
	req.Header.Set("Upgrade-Insecure-Requests", "1")
}

// utf8Reader returns a UTF-8 reader over body. Unknown charsets fall
// back to the raw bytes.
func utf8Reader(body []byte, contentType string) io.Reader {
	r, err := charset.NewReader(bytes.NewReader(body), contentType)
	if err != nil {
		return bytes.NewReader(body)
	}
	return r
}

// readableText runs readability over the page and returns its main text.
func readableText(page []byte, targetURL string) (string, string) {
	u, err := url.Parse(targetURL)
	if err != nil {
		return "", ""
	}
	article, err := readability.FromReader(bytes.NewReader(page), u)
	if err != nil {
		return "", ""
	}
	return cleanLines(strings.Split(article.TextContent, "\n")), strings.TrimSpace(article.Title)
}

// visibleText collects every text node under sel, one per line.
func visibleText(sel *goquery.Selection) string {
	var lines []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			lines = append(lines, n.Data)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range sel.Nodes {
		walk(n)
	}
	return cleanLines(lines)
}

// cleanLines trims each line, collapses inner whitespace, drops blanks,
// and NFC-normalizes the joined result.
func cleanLines(lines []string) string {
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		l = strings.Join(strings.Fields(l), " ")
		if l != "" {
			out = append(out, l)
		}
	}
	return norm.NFC.String(strings.Join(out, "\n"))
}
