package model

import "time"

// ResearchRecord is one persisted research run.
type ResearchRecord struct {
	ID          string           `json:"id"`
	Query       string           `json:"query"`
	ResultCount int              `json:"result_count"`
	Sources     []ResearchSource `json:"sources"`
	CreatedAt   time.Time        `json:"created_at"`
}

// ResearchSource is the summary of one article kept in a research record.
type ResearchSource struct {
	URL              string  `json:"url"`
	Title            string  `json:"title"`
	CredibilityScore float64 `json:"credibility_score"`
}

// NewResearchRecord summarizes the articles returned by a run.
func NewResearchRecord(id, query string, articles []Article, createdAt time.Time) ResearchRecord {
	sources := make([]ResearchSource, 0, len(articles))
	for _, a := range articles {
		sources = append(sources, ResearchSource{
			URL:              a.URL,
			Title:            a.Title,
			CredibilityScore: a.CredibilityScore,
		})
	}
	return ResearchRecord{
		ID:          id,
		Query:       query,
		ResultCount: len(articles),
		Sources:     sources,
		CreatedAt:   createdAt.UTC(),
	}
}
