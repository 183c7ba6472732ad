// Package recommendation projects catalog records into the externally visible shape.
package recommendation

import (
	"strings"

	"github.com/kailas-cloud/bookrec/internal/domain/book"
)

const (
	// ThumbnailSizeHint asks the cover CDN for an 800px wide image.
	ThumbnailSizeHint = "&fife=w800"
	// PlaceholderThumbnail is served when a record has no cover.
	PlaceholderThumbnail = "sample-cover.png"
	// SummaryWords is the description length kept in Summary.
	SummaryWords = 30
)

// Recommendation is a projected catalog record. Never persisted.
type Recommendation struct {
	ID          int64
	Title       string
	Authors     string
	Description string
	Summary     string
	Thumbnail   string
	Category    string
	Emotions    book.Emotions
}

// Project maps a record into a Recommendation. Absent fields degrade to empty strings.
func Project(r book.Record) Recommendation {
	return Recommendation{
		ID:          r.ID,
		Title:       r.Title,
		Authors:     HumanizeAuthors(r.Authors),
		Description: r.Description,
		Summary:     Summary(r.Description),
		Thumbnail:   Thumbnail(r.Thumbnail),
		Category:    r.Category,
		Emotions:    r.Emotions,
	}
}

// ProjectAll projects records preserving order.
func ProjectAll(records []book.Record) []Recommendation {
	out := make([]Recommendation, len(records))
	for i := range records {
		out[i] = Project(records[i])
	}
	return out
}

// Thumbnail appends the size hint to a stored cover URL or returns the placeholder.
func Thumbnail(stored string) string {
	if strings.TrimSpace(stored) == "" {
		return PlaceholderThumbnail
	}
	return stored + ThumbnailSizeHint
}

// HumanizeAuthors renders a semicolon-delimited author list for display:
// "A" stays "A", "A;B" becomes "A and B", "A;B;C" becomes "A, B and C".
func HumanizeAuthors(authors string) string {
	if !strings.Contains(authors, ";") {
		return authors
	}

	names := make([]string, 0, strings.Count(authors, ";")+1)
	for _, n := range strings.Split(authors, ";") {
		if n = strings.TrimSpace(n); n != "" {
			names = append(names, n)
		}
	}

	switch len(names) {
	case 0:
		return ""
	case 1:
		return names[0]
	default:
		last := len(names) - 1
		return strings.Join(names[:last], ", ") + " and " + names[last]
	}
}

// Summary keeps the first SummaryWords words of a description, marking truncation with "...".
func Summary(description string) string {
	words := strings.Fields(description)
	if len(words) <= SummaryWords {
		return strings.Join(words, " ")
	}
	return strings.Join(words[:SummaryWords], " ") + "..."
}
