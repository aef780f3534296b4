package research

import (
	"strings"

	"github.com/sells-group/research-verify/internal/model"
)

// DefaultContextChars is the per-article content budget of BuildContext.
const DefaultContextChars = 2000

// NoResearchContext is returned by BuildContext when there is nothing to cite.
const NoResearchContext = "No specific external research found. Rely on general academic knowledge."

// BuildContext renders articles as citation blocks for a downstream
// generator. Content is cut to perArticle runes.
func BuildContext(articles []model.Article, perArticle int) string {
	if perArticle <= 0 {
		perArticle = DefaultContextChars
	}
	var b strings.Builder
	for _, a := range articles {
		if a.Content == "" {
			continue
		}
		b.WriteString("\nSource: ")
		b.WriteString(a.Title)
		b.WriteString(" (")
		b.WriteString(a.URL)
		b.WriteString(")\n")
		b.WriteString(cut(a.Content, perArticle))
		b.WriteString("\n")
	}
	if b.Len() == 0 {
		return NoResearchContext
	}
	return b.String()
}

func cut(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
