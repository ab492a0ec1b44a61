package cover

import (
	"regexp"
	"strings"
)

var (
	quoteReplacer = strings.NewReplacer(
		"‘", "'", "’", "'",
		"“", `"`, "”", `"`,
		"–", "-", "—", "-",
	)
	parenthesized = regexp.MustCompile(`\([^)]*\)`)
	seriesMarker  = regexp.MustCompile(`(?i)\b(Book|Bk|Volume|Vol|Part|Duet|Trilogy|Series)\b\.?\s*#?\d+\b`)
	hashNumber    = regexp.MustCompile(`#\d+\b`)
	multiSpace    = regexp.MustCompile(`\s{2,}`)
)

// CleanTitle strips series annotations from a title so that it searches
// well: "(Villain #2)", "Book 3", "Duet #2", "Vol. 1" and bare "#4" tokens
// are removed, typographic quotes and dashes become ASCII, and whitespace
// is collapsed.
func CleanTitle(raw string) string {
	t := quoteReplacer.Replace(raw)
	t = parenthesized.ReplaceAllString(t, " ")
	t = seriesMarker.ReplaceAllString(t, " ")
	t = hashNumber.ReplaceAllString(t, " ")
	t = multiSpace.ReplaceAllString(t, " ")
	return strings.TrimSpace(t)
}

// FirstTwoWords returns at most the first two whitespace-separated words of s.
func FirstTwoWords(s string) string {
	words := strings.Fields(s)
	if len(words) > 2 {
		words = words[:2]
	}
	return strings.Join(words, " ")
}
