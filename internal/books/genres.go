package books

import (
	"fmt"
	"strings"
)

// ParseGenres normalizes the genre representations seen in legacy data into
// an ordered list: a comma-delimited string, a list of strings, or a list of
// tagged objects carrying a "name" field. Numeric list elements are kept as
// text. Empty entries are dropped; order is preserved and duplicates are
// kept.
func ParseGenres(raw any) []string {
	switch v := raw.(type) {
	case nil:
		return []string{}
	case string:
		return splitGenres(v)
	case []string:
		out := make([]string, 0, len(v))
		for _, s := range v {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
		return out
	case []map[string]any:
		out := make([]string, 0, len(v))
		for _, m := range v {
			if s := genreName(m); s != "" {
				out = append(out, s)
			}
		}
		return out
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s := genreName(item); s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return []string{}
}

// DedupGenres removes exact (case-sensitive) duplicates, keeping the first
// occurrence of each genre.
func DedupGenres(genres []string) []string {
	seen := make(map[string]bool, len(genres))
	out := make([]string, 0, len(genres))
	for _, g := range genres {
		if g == "" || seen[g] {
			continue
		}
		seen[g] = true
		out = append(out, g)
	}
	return out
}

func splitGenres(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// genreName extracts a genre from a single list element.
func genreName(item any) string {
	switch v := item.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case map[string]any:
		return genreName(v["name"])
	case map[string]string:
		return strings.TrimSpace(v["name"])
	case bool:
		return ""
	case fmt.Stringer:
		return strings.TrimSpace(v.String())
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		// YAML seeds decode bare numbers such as 1984 this way.
		return fmt.Sprint(v)
	}
	return ""
}
