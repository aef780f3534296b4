package scrape

import (
	"net/url"
	"path"
	"strings"
)

// defaultExcludePatterns skip binary downloads and login walls.
var defaultExcludePatterns = []string{
	"/*.pdf",
	"/*.zip",
	"/login*",
}

// PathMatcher rejects candidate URLs whose path matches a glob pattern.
// A pattern ending in "/*" also matches everything below that directory.
type PathMatcher struct {
	patterns []string
}

// NewPathMatcher creates a PathMatcher from glob patterns (e.g. "/*.pdf").
// An empty list selects the defaults.
func NewPathMatcher(patterns []string) *PathMatcher {
	if len(patterns) == 0 {
		patterns = defaultExcludePatterns
	}
	lowered := make([]string, 0, len(patterns))
	for _, p := range patterns {
		lowered = append(lowered, strings.ToLower(p))
	}
	return &PathMatcher{patterns: lowered}
}

// Patterns returns the configured patterns, lowercased.
func (m *PathMatcher) Patterns() []string {
	return m.patterns
}

// IsExcluded reports whether rawURL matches any pattern. Unparsable URLs
// are always excluded.
func (m *PathMatcher) IsExcluded(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return true
	}
	p := strings.ToLower(u.Path)
	for _, pattern := range m.patterns {
		if matchSegmented(pattern, p) {
			return true
		}
	}
	return false
}

// Filter returns the URLs that are not excluded, preserving order.
func (m *PathMatcher) Filter(urls []string) []string {
	kept := make([]string, 0, len(urls))
	for _, u := range urls {
		if !m.IsExcluded(u) {
			kept = append(kept, u)
		}
	}
	return kept
}

func matchSegmented(pattern, urlPath string) bool {
	if ok, _ := path.Match(pattern, urlPath); ok {
		return true
	}
	if strings.HasSuffix(pattern, "/*") {
		prefix := strings.TrimSuffix(pattern, "/*")
		return urlPath == prefix || strings.HasPrefix(urlPath, prefix+"/")
	}
	return false
}
