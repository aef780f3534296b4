package model

import (
	"encoding/json"
	"strings"
	"time"
)

// VerifiedThreshold is the minimum credibility score for an article to be kept.
const VerifiedThreshold = 0.6

// Blend weights for the final credibility score.
const (
	DomainTrustWeight  = 0.4
	VerificationWeight = 0.6
)

// DefaultMaxResults is used when a search request does not set MaxResults.
const DefaultMaxResults = 5

// VerificationMethod records how a verification score was produced.
type VerificationMethod string

const (
	MethodHeuristic         VerificationMethod = "heuristic"
	MethodAIVerified        VerificationMethod = "ai_verified"
	MethodHeuristicFallback VerificationMethod = "heuristic_fallback"
)

// Verification is the content-level credibility opinion for a page.
type Verification struct {
	Score  float64            `json:"score"`
	Method VerificationMethod `json:"method"`
	Reason string             `json:"reason"`
}

// Article is a verified, scored unit of extracted web content.
type Article struct {
	URL              string       `json:"url"`
	Title            string       `json:"title"`
	Content          string       `json:"content"`
	WordCount        int          `json:"word_count"`
	DomainTrust      float64      `json:"domain_trust"`
	CredibilityScore float64      `json:"credibility_score"`
	Verification     Verification `json:"verification"`
	Source           string       `json:"source,omitempty"`
	ScrapedAt        time.Time    `json:"scraped_at"`
}

// IsVerified reports whether the credibility score meets VerifiedThreshold.
func (a Article) IsVerified() bool {
	return a.CredibilityScore >= VerifiedThreshold
}

// articleJSON carries the derived is_verified flag on the wire.
type articleJSON struct {
	articleAlias
	IsVerified bool `json:"is_verified"`
}

type articleAlias Article

// MarshalJSON emits is_verified computed from the score.
func (a Article) MarshalJSON() ([]byte, error) {
	return json.Marshal(articleJSON{
		articleAlias: articleAlias(a),
		IsVerified:   a.IsVerified(),
	})
}

// UnmarshalJSON ignores any stored is_verified value; it is always derived.
func (a *Article) UnmarshalJSON(data []byte) error {
	var alias articleAlias
	if err := json.Unmarshal(data, &alias); err != nil {
		return err
	}
	*a = Article(alias)
	return nil
}

// BlendCredibility combines domain trust and a verification score into the
// final credibility score.
func BlendCredibility(domainTrust, verificationScore float64) float64 {
	return domainTrust*DomainTrustWeight + verificationScore*VerificationWeight
}

// NewArticle builds an Article from an extracted page and its scores.
func NewArticle(page Page, source string, domainTrust float64, v Verification, scrapedAt time.Time) Article {
	title := strings.TrimSpace(page.Title)
	if title == "" {
		title = UntitledTitle
	}
	return Article{
		URL:              page.URL,
		Title:            title,
		Content:          page.Content,
		WordCount:        len(strings.Fields(page.Content)),
		DomainTrust:      domainTrust,
		CredibilityScore: BlendCredibility(domainTrust, v.Score),
		Verification:     v,
		Source:           source,
		ScrapedAt:        scrapedAt.UTC(),
	}
}

// SearchRequest is an ephemeral research query.
type SearchRequest struct {
	Query      string `json:"query"`
	MaxResults int    `json:"max_results"`
}

// Normalize fills defaults and trims the query.
func (r SearchRequest) Normalize() SearchRequest {
	r.Query = strings.TrimSpace(r.Query)
	if r.MaxResults <= 0 {
		r.MaxResults = DefaultMaxResults
	}
	return r
}
