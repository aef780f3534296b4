package model

// UntitledTitle is used when a page has no discoverable title.
const UntitledTitle = "Untitled"

// Page is the cleaned output of a single-URL extraction.
type Page struct {
	URL        string `json:"url"`
	Title      string `json:"title"`
	Content    string `json:"content"`
	Length     int    `json:"length"`
	StatusCode int    `json:"status_code"`
}

// NewPage builds a Page and derives its length from content.
func NewPage(url, title, content string, statusCode int) Page {
	if title == "" {
		title = UntitledTitle
	}
	return Page{
		URL:        url,
		Title:      title,
		Content:    content,
		Length:     len(content),
		StatusCode: statusCode,
	}
}
